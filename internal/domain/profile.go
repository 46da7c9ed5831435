package domain

import "time"

type Profile struct {
	ID          string       `json:"id"`
	Name        string       `json:"profileName"`
	InstallPath string       `json:"path,omitempty"`
	Config      ServerConfig `json:"config"`
	Status      Status       `json:"status"`

	CurrentBuildID  string     `json:"currentBuildId,omitempty"`
	LatestBuildID   string     `json:"latestBuildId,omitempty"`
	LastUpdateCheck *time.Time `json:"lastUpdateCheck,omitempty"`

	UptimeSeconds uint64 `json:"uptime,omitempty"`
	MemoryBytes   uint64 `json:"memoryUsage,omitempty"`
	PlayerCount   int    `json:"playerCount,omitempty"`
	PID           int    `json:"pid,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (p *Profile) Installed() bool {
	return p.InstallPath != ""
}

// UpdateAvailable is true only when both build ids are known and differ.
func (p *Profile) UpdateAvailable() bool {
	return p.CurrentBuildID != "" && p.LatestBuildID != "" && p.CurrentBuildID != p.LatestBuildID
}

// ClearLiveStats drops the values that only make sense while the process is up.
func (p *Profile) ClearLiveStats() {
	p.UptimeSeconds = 0
	p.MemoryBytes = 0
	p.PlayerCount = 0
	p.PID = 0
}

type TimedOperationKind string

const (
	TimedShutdown TimedOperationKind = "shutdown"
	TimedRestart  TimedOperationKind = "restart"
)

type TimedOperation struct {
	ProfileID               string             `json:"profileId"`
	Kind                    TimedOperationKind `json:"kind"`
	EndsAt                  time.Time          `json:"endsAt"`
	Reason                  string             `json:"reason,omitempty"`
	LastAnnouncedCheckpoint int                `json:"lastAnnouncedCheckpoint"`
}

type ServerStats struct {
	UptimeSeconds uint64 `json:"uptimeSeconds"`
	MemoryBytes   uint64 `json:"memoryBytes"`
}

type StatsSample struct {
	ProfileID   string    `json:"profileId"`
	Timestamp   time.Time `json:"timestamp"`
	MemoryBytes uint64    `json:"memoryUsage"`
	PlayerCount int       `json:"playerCount"`
}

type AppSettings struct {
	NotificationsEnabled bool `json:"notificationsEnabled"`
	AutoSaveOnStart      bool `json:"autoSaveOnStart"`
	StartWithSystem      bool `json:"startWithWindows"`
}
