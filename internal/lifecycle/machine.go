// Package lifecycle owns profile status. Every status change a profile goes
// through is made here, through the registry's single update entry point.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"arkwarden/internal/clock"
	"arkwarden/internal/domain"
	"arkwarden/internal/metrics"
	"arkwarden/internal/runner"
	"arkwarden/internal/ws"

	"go.uber.org/zap"
)

var ErrStartupTimeout = errors.New("server did not report running before the startup timeout")

type Registry interface {
	Get(id string) (domain.Profile, error)
	Update(id string, fn func(p *domain.Profile) error) (domain.Profile, error)
}

type Supervisor interface {
	Launch(ctx context.Context, p domain.Profile, args []string) (int, error)
	Terminate(ctx context.Context, p domain.Profile) error
	Update(ctx context.Context, p domain.Profile) error
}

type BuildSource interface {
	CurrentBuild(ctx context.Context, installPath string) (string, error)
	Query(ctx context.Context, installPath string) (current, latest string, err error)
}

type ConfigSource interface {
	Read(installPath string) (*domain.ConfigSnapshot, error)
	Write(installPath string, cfg domain.ServerConfig) error
}

type Countdowns interface {
	CancelAll(profileID string)
}

type Settings interface {
	AutoSaveOnStart() bool
	EnableAutoSaveOnStart() error
}

type Notifications interface {
	Add(n domain.Notification) bool
	Retract(id string) bool
}

type Desktop interface {
	Notify(title, message string)
}

type Webhooks interface {
	Notify(p domain.Profile, title, description string, color int)
}

type LogSink interface {
	Publish(profileID string, channel ws.Channel, line string)
	ClearChannel(profileID string, channel ws.Channel)
}

// resumeAction is what a stop leads into once the process is gone.
type resumeAction int

const (
	resumeNone resumeAction = iota
	resumeStart
	resumeUpdate
)

type Machine struct {
	Profiles      Registry
	Supervisor    Supervisor
	Builds        BuildSource
	Config        ConfigSource
	Countdowns    Countdowns
	Settings      Settings
	Notifications Notifications
	Desktop       Desktop
	Webhooks      Webhooks
	Logs          LogSink
	Clock         clock.Clock
	Logger        *zap.Logger

	StartupTimeout time.Duration

	// opMu makes precondition checks and the status change that follows
	// them atomic.
	opMu sync.Mutex

	mu        sync.Mutex
	watchdogs map[string]clock.Timer
	resume    map[string]resumeAction
	pending   map[string]*PendingStart
	pids      map[string]int
	closed    bool
}

func NewMachine(profiles Registry, supervisor Supervisor, clk clock.Clock, logger *zap.Logger) *Machine {
	return &Machine{
		Profiles:       profiles,
		Supervisor:     supervisor,
		Clock:          clk,
		Logger:         logger,
		StartupTimeout: 15 * time.Minute,
		watchdogs:      make(map[string]clock.Timer),
		resume:         make(map[string]resumeAction),
		pending:        make(map[string]*PendingStart),
		pids:           make(map[string]int),
	}
}

// RecordTransition counts status changes. Register it with the profile
// registry's change hooks.
func RecordTransition(before, after domain.Profile) {
	if before.ID == "" || after.ID == "" || before.Status == after.Status {
		return
	}
	metrics.Transitions.WithLabelValues(string(after.Status)).Inc()
	if after.Status != domain.StatusRunning {
		metrics.MemoryBytes.DeleteLabelValues(after.ID)
		metrics.Players.DeleteLabelValues(after.ID)
	}
}

func (m *Machine) setStatus(id string, to domain.Status, fn func(p *domain.Profile)) (domain.Profile, error) {
	return m.Profiles.Update(id, func(p *domain.Profile) error {
		p.Status = to
		if fn != nil {
			fn(p)
		}
		return nil
	})
}

func (m *Machine) log(id, line string) {
	if m.Logs != nil {
		m.Logs.Publish(id, ws.ChannelManager, line)
	}
}

func (m *Machine) desktop(title, message string) {
	if m.Desktop != nil {
		m.Desktop.Notify(title, message)
	}
}

func (m *Machine) webhook(p domain.Profile, title, description string, color int) {
	if m.Webhooks != nil {
		m.Webhooks.Notify(p, title, description, color)
	}
}

func (m *Machine) cancelCountdowns(id string) {
	if m.Countdowns != nil {
		m.Countdowns.CancelAll(id)
	}
}

func (m *Machine) armWatchdog(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.watchdogs[id]; ok {
		t.Stop()
	}
	if m.closed {
		delete(m.watchdogs, id)
		return
	}
	m.watchdogs[id] = m.Clock.AfterFunc(m.StartupTimeout, func() { m.watchdogFired(id) })
}

func (m *Machine) cancelWatchdog(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.watchdogs[id]; ok {
		t.Stop()
		delete(m.watchdogs, id)
	}
}

// Forget drops the watchdog and any held state of a deleted profile.
func (m *Machine) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.watchdogs[id]; ok {
		t.Stop()
		delete(m.watchdogs, id)
	}
	delete(m.resume, id)
	delete(m.pending, id)
	delete(m.pids, id)
}

// Close stops every watchdog. No new ones are armed afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.watchdogs {
		t.Stop()
		delete(m.watchdogs, id)
	}
	clear(m.resume)
	clear(m.pending)
	clear(m.pids)
}

func (m *Machine) setResume(id string, action resumeAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if action == resumeNone {
		delete(m.resume, id)
		return
	}
	m.resume[id] = action
}

func (m *Machine) takeResume(id string) resumeAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	action := m.resume[id]
	delete(m.resume, id)
	return action
}

// fail resolves a broken operation to Error and tells the operator.
func (m *Machine) fail(id, operation string, cause error) {
	m.cancelWatchdog(id)
	m.cancelCountdowns(id)
	m.setResume(id, resumeNone)

	metrics.Failures.WithLabelValues(operation).Inc()
	m.Logger.Error("lifecycle operation failed", zap.String("profile", id), zap.String("operation", operation), zap.Error(cause))

	p, err := m.setStatus(id, domain.StatusError, nil)
	if err != nil {
		m.Logger.Error("could not record error status", zap.String("profile", id), zap.Error(err))
		return
	}
	m.log(id, fmt.Sprintf("Failed to %s server: %v", operation, cause))
	m.desktop("Server Error", fmt.Sprintf("Failed to %s \"%s\": %v", operation, p.Name, cause))
	m.webhook(p, "Server Error", fmt.Sprintf("Failed to %s the server: %v", operation, cause), domain.ColorRed)
}

func (m *Machine) watchdogFired(id string) {
	m.mu.Lock()
	delete(m.watchdogs, id)
	m.mu.Unlock()

	p, err := m.Profiles.Get(id)
	if err != nil || p.Status != domain.StatusStarting {
		return
	}
	m.fail(id, "start", fmt.Errorf("%w (%s)", ErrStartupTimeout, m.StartupTimeout))

	if err := m.Supervisor.Terminate(context.Background(), p); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		m.Logger.Warn("could not terminate stalled server", zap.String("profile", id), zap.Error(err))
	}
}

// Verify resolves a profile's status from what is on disk. Used on load.
func (m *Machine) Verify(ctx context.Context, id string) (domain.Profile, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	p, err := m.Profiles.Get(id)
	if err != nil {
		return domain.Profile{}, err
	}
	if p.Status.Busy() && p.Status != domain.StatusVerifying {
		return p, domain.ErrBusy
	}
	if p.Status == domain.StatusRunning {
		return p, domain.ErrBusy
	}
	if p.Status != domain.StatusVerifying {
		if p, err = m.setStatus(id, domain.StatusVerifying, nil); err != nil {
			return p, err
		}
	}

	if !p.Installed() {
		return m.setStatus(id, domain.StatusNotInstalled, nil)
	}

	_, err = os.Stat(runner.ExecutablePath(p.InstallPath))
	switch {
	case err == nil:
		current := p.CurrentBuildID
		if m.Builds != nil {
			if build, berr := m.Builds.CurrentBuild(ctx, p.InstallPath); berr == nil {
				current = build
			}
		}
		return m.setStatus(id, domain.StatusStopped, func(p *domain.Profile) { p.CurrentBuildID = current })
	case errors.Is(err, os.ErrNotExist):
		return m.setStatus(id, domain.StatusNotInstalled, nil)
	default:
		m.Logger.Warn("could not verify install", zap.String("profile", id), zap.Error(err))
		return m.setStatus(id, domain.StatusError, nil)
	}
}

// Relocate points a profile at a new install path. The old build ids no
// longer apply. An empty path leaves the profile NotInstalled; anything else
// is verified. Refused while an operation is in flight or the server runs.
func (m *Machine) Relocate(ctx context.Context, id, installPath string) (domain.Profile, error) {
	installPath = strings.TrimSpace(installPath)

	m.opMu.Lock()
	p, err := m.Profiles.Update(id, func(p *domain.Profile) error {
		if p.InstallPath == installPath {
			return nil
		}
		if p.Status.Busy() || p.Status == domain.StatusRunning {
			return domain.ErrBusy
		}
		p.InstallPath = installPath
		p.CurrentBuildID = ""
		p.LatestBuildID = ""
		p.LastUpdateCheck = nil
		if p.Installed() {
			p.Status = domain.StatusVerifying
		} else {
			p.Status = domain.StatusNotInstalled
		}
		return nil
	})
	if err == nil {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}
	m.opMu.Unlock()
	if err != nil || p.Status != domain.StatusVerifying {
		return p, err
	}

	m.log(id, fmt.Sprintf("Install path changed to %s.", installPath))
	return m.Verify(ctx, id)
}

// CheckForUpdate refreshes both build ids. LastUpdateCheck moves even when
// the query fails.
func (m *Machine) CheckForUpdate(ctx context.Context, id string) (domain.Profile, error) {
	p, err := m.Profiles.Get(id)
	if err != nil {
		return domain.Profile{}, err
	}
	if !p.Installed() {
		return p, domain.ErrNotInstalled
	}

	current, latest, qerr := m.Builds.Query(ctx, p.InstallPath)
	now := m.Clock.Now()
	p, err = m.Profiles.Update(id, func(p *domain.Profile) error {
		p.LastUpdateCheck = &now
		if qerr == nil {
			p.CurrentBuildID = current
			p.LatestBuildID = latest
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	if qerr != nil {
		metrics.UpdateChecks.WithLabelValues("error").Inc()
		return p, fmt.Errorf("update check failed: %w", qerr)
	}
	if p.UpdateAvailable() {
		metrics.UpdateChecks.WithLabelValues("available").Inc()
	} else {
		metrics.UpdateChecks.WithLabelValues("current").Inc()
	}
	return p, nil
}
