package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arkwarden/internal/domain"
	"arkwarden/internal/reconcile"
	"arkwarden/internal/ws"

	"go.uber.org/zap"
)

type DriftChoice string

const (
	ChoiceSaveAppConfig DriftChoice = "save-app-config"
	ChoiceLoadDisk      DriftChoice = "load-disk-config"
	ChoiceCancel        DriftChoice = "cancel"
)

// PendingStart is a start that is waiting for the operator to decide which
// configuration wins.
type PendingStart struct {
	ProfileID string                 `json:"profileId"`
	Fields    []string               `json:"fields"`
	Snapshot  *domain.ConfigSnapshot `json:"-"`
}

func (m *Machine) Pending(id string) (PendingStart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps, ok := m.pending[id]
	if !ok {
		return PendingStart{}, false
	}
	return *ps, true
}

func startable(p domain.Profile) error {
	if !p.Installed() {
		return domain.ErrNotInstalled
	}
	switch p.Status {
	case domain.StatusStopped, domain.StatusError:
		return nil
	case domain.StatusRunning:
		return domain.ErrAlreadyRunning
	case domain.StatusNotInstalled:
		return domain.ErrNotInstalled
	}
	return domain.ErrBusy
}

// Start launches the server, unless the server files carry settings that
// differ from the stored config. Then it returns ErrDriftDetected and waits
// for ResolvePendingStart.
func (m *Machine) Start(ctx context.Context, id string) error {
	p, err := m.Profiles.Get(id)
	if err != nil {
		return err
	}
	if err := startable(p); err != nil {
		return err
	}

	if m.Config != nil {
		if m.Settings != nil && m.Settings.AutoSaveOnStart() {
			if err := m.Config.Write(p.InstallPath, p.Config); err != nil {
				return fmt.Errorf("could not save configuration before start: %w", err)
			}
			m.log(id, "Saved configuration to server files.")
		} else if fields := m.drift(p); len(fields) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrDriftDetected, strings.Join(fields, ", "))
		}
	}

	return m.launch(ctx, id, false)
}

func (m *Machine) drift(p domain.Profile) []string {
	snap, err := m.Config.Read(p.InstallPath)
	if err != nil {
		m.Logger.Warn("could not read server config files", zap.String("profile", p.ID), zap.Error(err))
		return nil
	}
	if !reconcile.Differs(p.Config, snap) {
		return nil
	}

	fields := reconcile.Diff(p.Config, snap)
	m.mu.Lock()
	m.pending[p.ID] = &PendingStart{ProfileID: p.ID, Fields: fields, Snapshot: snap}
	m.mu.Unlock()

	m.log(p.ID, fmt.Sprintf("Server files differ from saved settings (%s). Waiting for a decision before starting.", strings.Join(fields, ", ")))
	return fields
}

// ResolvePendingStart applies the operator's decision for a start held back
// by drift. rememberAutoSave turns on auto-save on start for later starts.
func (m *Machine) ResolvePendingStart(ctx context.Context, id string, choice DriftChoice, rememberAutoSave bool) error {
	switch choice {
	case ChoiceSaveAppConfig, ChoiceLoadDisk, ChoiceCancel:
	default:
		return fmt.Errorf("unknown choice %q", choice)
	}

	m.mu.Lock()
	ps, ok := m.pending[id]
	delete(m.pending, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrNoPendingStart
	}

	p, err := m.Profiles.Get(id)
	if err != nil {
		return err
	}

	switch choice {
	case ChoiceCancel:
		m.log(id, "Start cancelled.")
		return nil
	case ChoiceSaveAppConfig:
		if rememberAutoSave && m.Settings != nil {
			if err := m.Settings.EnableAutoSaveOnStart(); err != nil {
				m.Logger.Warn("could not enable auto-save on start", zap.Error(err))
			}
		}
		if err := m.Config.Write(p.InstallPath, p.Config); err != nil {
			return fmt.Errorf("could not save configuration: %w", err)
		}
		m.log(id, "Saved configuration to server files.")
	case ChoiceLoadDisk:
		snap := ps.Snapshot
		if fresh, err := m.Config.Read(p.InstallPath); err != nil {
			m.Logger.Warn("could not re-read server config files", zap.String("profile", id), zap.Error(err))
		} else {
			snap = fresh
		}
		merged := reconcile.Merge(p.Config, snap)
		if _, err := m.Profiles.Update(id, func(p *domain.Profile) error {
			p.Config = merged
			return nil
		}); err != nil {
			return err
		}
		m.log(id, "Loaded configuration from server files.")
	}

	return m.launch(ctx, id, false)
}

// launch moves the profile to Starting and hands it to the supervisor.
// resuming allows the Restarting -> Starting edge.
func (m *Machine) launch(ctx context.Context, id string, resuming bool) error {
	m.opMu.Lock()
	p, err := m.Profiles.Get(id)
	if err != nil {
		m.opMu.Unlock()
		return err
	}
	if !(resuming && p.Status == domain.StatusRestarting) {
		if err := startable(p); err != nil {
			m.opMu.Unlock()
			return err
		}
	}
	p, err = m.setStatus(id, domain.StatusStarting, nil)
	m.opMu.Unlock()
	if err != nil {
		return err
	}

	if m.Logs != nil {
		m.Logs.ClearChannel(id, ws.ChannelServer)
	}
	m.log(id, "Starting server...")
	m.desktop("Server Starting", fmt.Sprintf("The server \"%s\" is starting up.", p.Name))
	m.armWatchdog(id)

	pid, err := m.Supervisor.Launch(ctx, p, BuildLaunchArgs(p.Config))
	if err != nil {
		m.fail(id, "start", err)
		return fmt.Errorf("launch failed: %w", err)
	}

	m.mu.Lock()
	m.pids[id] = pid
	m.mu.Unlock()
	m.log(id, fmt.Sprintf("Server process started (PID %d). Waiting for it to come online...", pid))
	return nil
}

// Stop terminates a starting or running server.
func (m *Machine) Stop(ctx context.Context, id string) error {
	m.opMu.Lock()
	p, err := m.Profiles.Get(id)
	if err != nil {
		m.opMu.Unlock()
		return err
	}
	switch p.Status {
	case domain.StatusStarting, domain.StatusRunning:
	default:
		m.opMu.Unlock()
		if p.Status.Busy() {
			return domain.ErrBusy
		}
		return domain.ErrNotRunning
	}

	m.cancelCountdowns(id)
	m.cancelWatchdog(id)
	m.setResume(id, resumeNone)
	p, err = m.setStatus(id, domain.StatusStopping, nil)
	m.opMu.Unlock()
	if err != nil {
		return err
	}

	m.log(id, "Stopping server...")
	return m.terminate(ctx, p, "stop")
}

// Restart is stop then start. A scheduled restart with update-on-restart
// becomes an update when a newer build is already known.
func (m *Machine) Restart(ctx context.Context, id string, scheduled bool) error {
	p, err := m.Profiles.Get(id)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusRunning {
		if p.Status.Busy() {
			return domain.ErrBusy
		}
		return domain.ErrNotRunning
	}

	if scheduled {
		m.desktop("Scheduled Restart", fmt.Sprintf("Server \"%s\" is beginning its scheduled restart.", p.Name))
	}
	m.webhook(p, "Server Restarting", "The server is restarting...", domain.ColorYellow)
	if scheduled && p.Config.UpdateOnRestart && p.UpdateAvailable() {
		m.log(id, fmt.Sprintf("Build %s is available (installed %s). Updating instead of restarting.", p.LatestBuildID, p.CurrentBuildID))
		m.desktop("Update Found", fmt.Sprintf("An update was found during the scheduled restart for \"%s\". Updating now.", p.Name))
		return m.stopThenUpdate(ctx, id)
	}

	m.opMu.Lock()
	if p, err = m.Profiles.Get(id); err != nil {
		m.opMu.Unlock()
		return err
	}
	if p.Status != domain.StatusRunning {
		m.opMu.Unlock()
		return domain.ErrBusy
	}
	m.cancelCountdowns(id)
	m.setResume(id, resumeStart)
	p, err = m.setStatus(id, domain.StatusRestarting, nil)
	m.opMu.Unlock()
	if err != nil {
		m.setResume(id, resumeNone)
		return err
	}

	m.log(id, "Restarting server...")
	return m.terminate(ctx, p, "restart")
}

// Update installs or updates the server files. A running server is stopped
// first and the update follows once the process is gone.
func (m *Machine) Update(ctx context.Context, id string) error {
	p, err := m.Profiles.Get(id)
	if err != nil {
		return err
	}
	if !p.Installed() {
		return domain.ErrNotInstalled
	}
	if p.Status == domain.StatusRunning {
		return m.stopThenUpdate(ctx, id)
	}
	return m.beginUpdate(ctx, id)
}

func (m *Machine) stopThenUpdate(ctx context.Context, id string) error {
	m.opMu.Lock()
	p, err := m.Profiles.Get(id)
	if err != nil {
		m.opMu.Unlock()
		return err
	}
	if p.Status != domain.StatusRunning {
		m.opMu.Unlock()
		return domain.ErrBusy
	}
	m.cancelCountdowns(id)
	m.setResume(id, resumeUpdate)
	p, err = m.setStatus(id, domain.StatusStopping, nil)
	m.opMu.Unlock()
	if err != nil {
		m.setResume(id, resumeNone)
		return err
	}

	m.log(id, "Stopping server to apply update...")
	return m.terminate(ctx, p, "update")
}

func (m *Machine) beginUpdate(ctx context.Context, id string) error {
	m.opMu.Lock()
	p, err := m.Profiles.Get(id)
	if err != nil {
		m.opMu.Unlock()
		return err
	}
	if !p.Installed() {
		m.opMu.Unlock()
		return domain.ErrNotInstalled
	}
	switch p.Status {
	case domain.StatusStopped, domain.StatusError, domain.StatusNotInstalled:
	default:
		m.opMu.Unlock()
		return domain.ErrBusy
	}
	p, err = m.setStatus(id, domain.StatusUpdating, nil)
	m.opMu.Unlock()
	if err != nil {
		return err
	}

	m.log(id, "Updating server files...")
	m.webhook(p, "Server Updating", "The server files are being updated.", domain.ColorBlue)
	if err := m.Supervisor.Update(ctx, p); err != nil {
		m.fail(id, "update", err)
		return fmt.Errorf("update failed to start: %w", err)
	}
	return nil
}

func (m *Machine) terminate(ctx context.Context, p domain.Profile, operation string) error {
	err := m.Supervisor.Terminate(ctx, p)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotRunning) {
		// nothing to kill, settle as if the stop event arrived
		m.HandleStopped(p.ID, nil)
		return nil
	}
	m.fail(p.ID, operation, err)
	return err
}
