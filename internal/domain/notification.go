package domain

import "time"

type NotificationKind string

const (
	NotificationUpdate  NotificationKind = "update"
	NotificationRestart NotificationKind = "restart"
	NotificationSystem  NotificationKind = "system"
)

type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"type"`
	ProfileID   string           `json:"profileId"`
	ProfileName string           `json:"profileName"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func UpdateNotificationID(profileID string) string {
	return "update-" + profileID
}

func RestartNotificationID(profileID string) string {
	return "restart-" + profileID
}

// Webhook embed colors.
const (
	ColorGreen  = 5763719
	ColorRed    = 15548997
	ColorYellow = 16776960
	ColorBlue   = 5814783
)
