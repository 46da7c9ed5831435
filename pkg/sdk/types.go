package sdk

import (
	"time"

	"arkwarden/internal/domain"
)

type (
	Profile        = domain.Profile
	ServerConfig   = domain.ServerConfig
	Notification   = domain.Notification
	AppSettings    = domain.AppSettings
	StatsSample    = domain.StatsSample
	TimedOperation = domain.TimedOperation
)

type CommandEntry struct {
	Time     time.Time `json:"time"`
	Command  string    `json:"command"`
	Response string    `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
	Attempts int       `json:"attempts"`
}

type UpdateInfo struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
}

type UpdateCheck struct {
	Profile
	UpdateAvailable bool `json:"updateAvailable"`
}

type CreateProfileRequest struct {
	Name string `json:"profileName"`
	Path string `json:"path"`
}

type UpdateProfileRequest struct {
	Name *string `json:"profileName,omitempty"`
	Path *string `json:"path,omitempty"`
}

type SettingsRequest struct {
	NotificationsEnabled *bool `json:"notificationsEnabled,omitempty"`
	AutoSaveOnStart      *bool `json:"autoSaveOnStart,omitempty"`
	StartWithSystem      *bool `json:"startWithWindows,omitempty"`
}

// Drift resolution choices for ResolveStart.
const (
	ChoiceSaveAppConfig = "save-app-config"
	ChoiceLoadDisk      = "load-disk-config"
	ChoiceCancel        = "cancel"
)

// Log channels for StreamURL.
const (
	ChannelManager = "manager-log"
	ChannelServer  = "server-log"
	ChannelUpdate  = "update-log"
)
