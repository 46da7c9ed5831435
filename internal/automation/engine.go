// Package automation runs the per-profile background jobs: update checks,
// the daily scheduled restart with its in-game announcements, the restart
// warning notification and the stats poll of the profile being viewed.
package automation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"arkwarden/internal/clock"
	"arkwarden/internal/dispatch"
	"arkwarden/internal/domain"
	"arkwarden/internal/metrics"

	"go.uber.org/zap"
)

var (
	ScheduledRestartPoll = 5 * time.Second
	RestartWarningPoll   = 30 * time.Second
	StatsPoll            = 5 * time.Second

	// AnnouncementMinutes are the remaining-minute values announced in game
	// ahead of a scheduled restart.
	AnnouncementMinutes = []int{60, 45, 30, 15, 10, 5, 3, 2, 1}
	TriggerWindow       = 5 * time.Second
	WarningHorizon      = time.Hour
)

type Registry interface {
	Get(id string) (domain.Profile, error)
	Update(id string, fn func(p *domain.Profile) error) (domain.Profile, error)
}

type Lifecycle interface {
	Restart(ctx context.Context, id string, scheduled bool) error
	CheckForUpdate(ctx context.Context, id string) (domain.Profile, error)
}

type Broadcaster interface {
	Send(ctx context.Context, profileID, command string) (dispatch.Entry, error)
}

type StatsSource interface {
	QueryStats(ctx context.Context, p domain.Profile) (domain.ServerStats, error)
}

type StatsStore interface {
	SaveStatsSample(sample domain.StatsSample) error
}

type Notifications interface {
	Add(n domain.Notification) bool
	Retract(id string) bool
}

type Desktop interface {
	Notify(title, message string)
}

// settingsKey is what a profile's timers were armed for. Timers are re-armed
// only when it changes.
type settingsKey struct {
	installed      bool
	autoUpdate     bool
	updateEvery    int
	restartEnabled bool
	restartTime    string
}

type schedule struct {
	key     settingsKey
	update  *repeater
	restart *repeater
	warning *repeater

	lastAnnounced int
	lastTrigger   time.Time
}

type Engine struct {
	Profiles      Registry
	Lifecycle     Lifecycle
	Broadcast     Broadcaster
	Stats         StatsSource
	StatsStore    StatsStore
	Notifications Notifications
	Desktop       Desktop
	Clock         clock.Clock
	Logger        *zap.Logger

	mu        sync.Mutex
	schedules map[string]*schedule
	selected  string
	stats     *repeater
	closed    bool
}

func NewEngine(profiles Registry, lifecycle Lifecycle, clk clock.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		Profiles:  profiles,
		Lifecycle: lifecycle,
		Clock:     clk,
		Logger:    logger,
		schedules: make(map[string]*schedule),
	}
}

func keyFor(p domain.Profile) settingsKey {
	return settingsKey{
		installed:      p.Installed(),
		autoUpdate:     p.Config.AutoUpdateEnabled,
		updateEvery:    p.Config.AutoUpdateFrequencyMinutes,
		restartEnabled: p.Config.ScheduledRestartEnabled,
		restartTime:    p.Config.ScheduledRestartTime,
	}
}

// Sync arms the profile's jobs for its current settings. Calling it again
// with unchanged settings leaves running timers alone.
func (e *Engine) Sync(p domain.Profile) {
	key := keyFor(p)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if s, ok := e.schedules[p.ID]; ok {
		if s.key == key {
			return
		}
		s.stopAll()
	}

	s := &schedule{key: key}
	e.schedules[p.ID] = s
	id := p.ID

	if key.installed && key.autoUpdate && key.updateEvery > 0 {
		s.update = startRepeater(e.Clock, time.Duration(key.updateEvery)*time.Minute, true, func() {
			e.checkUpdate(id)
		})
	}
	if key.restartEnabled && key.restartTime != "" {
		s.restart = startRepeater(e.Clock, ScheduledRestartPoll, false, func() {
			e.checkScheduledRestart(id, s)
		})
		s.warning = startRepeater(e.Clock, RestartWarningPoll, false, func() {
			e.checkRestartWarning(id)
		})
	} else if e.Notifications != nil {
		e.Notifications.Retract(domain.RestartNotificationID(id))
	}
	e.Logger.Debug("automation armed", zap.String("profile", id),
		zap.Bool("autoUpdate", s.update != nil), zap.Bool("scheduledRestart", s.restart != nil))
}

func (s *schedule) stopAll() {
	s.update.stop()
	s.restart.stop()
	s.warning.stop()
}

// Remove disarms everything for a deleted profile.
func (e *Engine) Remove(profileID string) {
	e.mu.Lock()
	if s, ok := e.schedules[profileID]; ok {
		s.stopAll()
		delete(e.schedules, profileID)
	}
	if e.selected == profileID {
		e.stats.stop()
		e.stats = nil
		e.selected = ""
	}
	e.mu.Unlock()

	if e.Notifications != nil {
		e.Notifications.Retract(domain.RestartNotificationID(profileID))
		e.Notifications.Retract(domain.UpdateNotificationID(profileID))
	}
}

// Select switches the stats poll to another profile. The automation timers
// of every profile keep running.
func (e *Engine) Select(profileID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.selected == profileID {
		return
	}
	e.stats.stop()
	e.stats = nil
	e.selected = profileID
	if profileID != "" {
		e.stats = startRepeater(e.Clock, StatsPoll, true, func() { e.pollStats(profileID) })
	}
}

func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for id, s := range e.schedules {
		s.stopAll()
		delete(e.schedules, id)
	}
	e.stats.stop()
	e.stats = nil
}

func (e *Engine) checkUpdate(id string) {
	p, err := e.Profiles.Get(id)
	if err != nil || !p.Installed() || p.Status == domain.StatusUpdating {
		return
	}

	p, err = e.Lifecycle.CheckForUpdate(context.Background(), id)
	if err != nil {
		e.Logger.Warn("scheduled update check failed", zap.String("profile", id), zap.Error(err))
		return
	}
	if e.Notifications == nil {
		return
	}

	nid := domain.UpdateNotificationID(id)
	if !p.UpdateAvailable() {
		e.Notifications.Retract(nid)
		return
	}
	msg := fmt.Sprintf("A new update is available for \"%s\" (build %s).", p.Name, p.LatestBuildID)
	added := e.Notifications.Add(domain.Notification{
		ID:          nid,
		Kind:        domain.NotificationUpdate,
		ProfileID:   id,
		ProfileName: p.Name,
		Message:     msg,
	})
	if added && e.Desktop != nil {
		e.Desktop.Notify("Update Available", msg)
	}
}

// occurrences returns the next occurrence of hh:mm at or after now and the
// latest one at or before now.
func occurrences(now time.Time, hour, minute int) (next, prev time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	next, prev = today, today
	if today.Before(now) {
		next = today.AddDate(0, 0, 1)
	}
	if today.After(now) {
		prev = today.AddDate(0, 0, -1)
	}
	return next, prev
}

func announces(minutes int) bool {
	for _, m := range AnnouncementMinutes {
		if m == minutes {
			return true
		}
	}
	return false
}

func (e *Engine) checkScheduledRestart(id string, s *schedule) {
	p, err := e.Profiles.Get(id)
	if err != nil {
		return
	}
	cfg := p.Config
	if !cfg.ScheduledRestartEnabled {
		return
	}
	hour, minute, err := domain.ParseTimeOfDay(cfg.ScheduledRestartTime)
	if err != nil {
		return
	}

	now := e.Clock.Now()
	next, prev := occurrences(now, hour, minute)
	until := next.Sub(now)
	running := p.Status == domain.StatusRunning
	ctx := context.Background()

	lead := cfg.RestartAnnouncementMinutes
	minutes := int(math.Ceil(until.Minutes()))
	e.mu.Lock()
	announce := false
	if minutes > lead {
		s.lastAnnounced = 0
	} else if cfg.RCONEnabled && lead > 0 && running && announces(minutes) && s.lastAnnounced != minutes {
		s.lastAnnounced = minutes
		announce = true
	}
	e.mu.Unlock()
	if announce {
		if _, err := e.Broadcast.Send(ctx, id, fmt.Sprintf("ServerChat Scheduled restart in %d minute(s).", minutes)); err != nil {
			e.Logger.Debug("restart announcement not delivered", zap.String("profile", id), zap.Error(err))
		}
	}

	var occurrence time.Time
	switch {
	case until <= TriggerWindow:
		occurrence = next
	case now.Sub(prev) < TriggerWindow:
		occurrence = prev
	default:
		return
	}
	if !running {
		return
	}

	e.mu.Lock()
	if s.lastTrigger.Equal(occurrence) {
		e.mu.Unlock()
		return
	}
	s.lastTrigger = occurrence
	e.mu.Unlock()

	metrics.ScheduledRestarts.Inc()
	e.Logger.Info("scheduled restart due", zap.String("profile", id), zap.Time("at", occurrence))
	if err := e.Lifecycle.Restart(ctx, id, true); err != nil {
		e.Logger.Warn("scheduled restart failed", zap.String("profile", id), zap.Error(err))
	}
}

func (e *Engine) checkRestartWarning(id string) {
	p, err := e.Profiles.Get(id)
	if err != nil || e.Notifications == nil {
		return
	}
	nid := domain.RestartNotificationID(id)
	hour, minute, err := domain.ParseTimeOfDay(p.Config.ScheduledRestartTime)
	if !p.Config.ScheduledRestartEnabled || err != nil {
		e.Notifications.Retract(nid)
		return
	}

	next, _ := occurrences(e.Clock.Now(), hour, minute)
	until := next.Sub(e.Clock.Now())
	if until <= 0 || until >= WarningHorizon {
		e.Notifications.Retract(nid)
		return
	}
	e.Notifications.Add(domain.Notification{
		ID:          nid,
		Kind:        domain.NotificationRestart,
		ProfileID:   id,
		ProfileName: p.Name,
		Message:     fmt.Sprintf("Server \"%s\" will restart in ~%d minutes.", p.Name, int(math.Round(until.Minutes()))),
	})
}

func (e *Engine) pollStats(id string) {
	p, err := e.Profiles.Get(id)
	if err != nil || p.Status != domain.StatusRunning || e.Stats == nil {
		return
	}

	stats, err := e.Stats.QueryStats(context.Background(), p)
	if err != nil {
		e.Logger.Debug("stats unavailable", zap.String("profile", id), zap.Error(err))
		_, _ = e.Profiles.Update(id, func(p *domain.Profile) error {
			p.UptimeSeconds = 0
			p.MemoryBytes = 0
			return nil
		})
		return
	}

	p, err = e.Profiles.Update(id, func(p *domain.Profile) error {
		if p.Status != domain.StatusRunning {
			return domain.ErrNotRunning
		}
		p.UptimeSeconds = stats.UptimeSeconds
		p.MemoryBytes = stats.MemoryBytes
		return nil
	})
	if err != nil {
		return
	}
	metrics.MemoryBytes.WithLabelValues(id).Set(float64(stats.MemoryBytes))

	if e.StatsStore != nil {
		sample := domain.StatsSample{
			ProfileID:   id,
			Timestamp:   e.Clock.Now(),
			MemoryBytes: stats.MemoryBytes,
			PlayerCount: p.PlayerCount,
		}
		if err := e.StatsStore.SaveStatsSample(sample); err != nil {
			e.Logger.Warn("could not save stats sample", zap.String("profile", id), zap.Error(err))
		}
	}
}
