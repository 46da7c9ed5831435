package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"arkwarden/internal/domain"
	"arkwarden/internal/metrics"

	"go.uber.org/zap"
)

var errUpdateFailed = errors.New("steamcmd reported a failed update")

func (m *Machine) HandleRunning(id string) {
	m.cancelWatchdog(id)

	m.mu.Lock()
	pid := m.pids[id]
	m.mu.Unlock()

	p, err := m.Profiles.Get(id)
	if err != nil {
		return
	}
	if p.Status != domain.StatusStarting {
		m.Logger.Debug("running event ignored", zap.String("profile", id), zap.String("status", string(p.Status)))
		return
	}
	p, err = m.setStatus(id, domain.StatusRunning, func(p *domain.Profile) { p.PID = pid })
	if err != nil {
		m.Logger.Error("could not mark server running", zap.String("profile", id), zap.Error(err))
		return
	}

	m.log(id, "Server is online and advertising for join.")
	m.desktop("Server Online", fmt.Sprintf("The server \"%s\" is now online.", p.Name))
	m.webhook(p, "Server Online", "The server is now online and ready for players to join.", domain.ColorGreen)
}

// HandleStopped settles a profile after its process exited. A pending
// resume set by Restart or Update decides what happens next.
func (m *Machine) HandleStopped(id string, exitCode *int) {
	m.cancelWatchdog(id)
	m.cancelCountdowns(id)
	m.mu.Lock()
	delete(m.pids, id)
	m.mu.Unlock()
	resume := m.takeResume(id)

	p, err := m.Profiles.Get(id)
	if err != nil {
		return
	}
	ctx := context.Background()

	switch p.Status {
	case domain.StatusRestarting:
		if resume != resumeUpdate {
			m.log(id, "Server stopped. Starting it again...")
			if err := m.launch(ctx, id, true); err != nil {
				m.Logger.Warn("restart could not launch server", zap.String("profile", id), zap.Error(err))
			}
			return
		}
		fallthrough
	case domain.StatusStopping:
		p, err = m.setStatus(id, domain.StatusStopped, nil)
		if err != nil {
			m.Logger.Error("could not mark server stopped", zap.String("profile", id), zap.Error(err))
			return
		}
		if resume == resumeUpdate {
			if err := m.beginUpdate(ctx, id); err != nil {
				m.Logger.Warn("update after stop did not start", zap.String("profile", id), zap.Error(err))
			}
			return
		}
		m.log(id, "Server stopped.")
		m.desktop("Server Stopped", fmt.Sprintf("The server \"%s\" has stopped.", p.Name))
		m.webhook(p, "Server Offline", "The server has been shut down.", domain.ColorRed)

	case domain.StatusStarting, domain.StatusRunning:
		if exitCode == nil || *exitCode != 0 {
			code := "unknown"
			if exitCode != nil {
				code = fmt.Sprint(*exitCode)
			}
			m.fail(id, "run", fmt.Errorf("server exited unexpectedly (exit code %s)", code))
			return
		}
		if p.Status == domain.StatusRunning {
			if _, err := m.setStatus(id, domain.StatusStopping, nil); err != nil {
				m.Logger.Error("could not record server exit", zap.String("profile", id), zap.Error(err))
				return
			}
		}
		if p, err = m.setStatus(id, domain.StatusStopped, nil); err != nil {
			m.Logger.Error("could not record server exit", zap.String("profile", id), zap.Error(err))
			return
		}
		m.log(id, "Server exited on its own.")
		m.webhook(p, "Server Offline", "The server has shut down.", domain.ColorRed)
	}
}

func (m *Machine) HandleUpdateFinished(id string, success bool) {
	p, err := m.Profiles.Get(id)
	if err != nil || p.Status != domain.StatusUpdating {
		return
	}
	if !success {
		m.fail(id, "update", errUpdateFailed)
		return
	}

	current := p.CurrentBuildID
	if m.Builds != nil {
		if build, err := m.Builds.CurrentBuild(context.Background(), p.InstallPath); err == nil {
			current = build
		} else {
			m.Logger.Warn("could not read installed build", zap.String("profile", id), zap.Error(err))
		}
	}
	p, err = m.setStatus(id, domain.StatusStopped, func(p *domain.Profile) { p.CurrentBuildID = current })
	if err != nil {
		m.Logger.Error("could not mark update finished", zap.String("profile", id), zap.Error(err))
		return
	}
	if !p.UpdateAvailable() && m.Notifications != nil {
		m.Notifications.Retract(domain.UpdateNotificationID(id))
	}

	m.log(id, fmt.Sprintf("Update finished. Installed build %s.", current))
	m.desktop("Update Complete", fmt.Sprintf("The server \"%s\" has been updated.", p.Name))
	m.webhook(p, "Server Updated", "The server files have been updated.", domain.ColorGreen)
}

func (m *Machine) HandlePlayerCount(id string, count int) {
	_, err := m.Profiles.Update(id, func(p *domain.Profile) error {
		if p.Status != domain.StatusRunning {
			return domain.ErrNotRunning
		}
		p.PlayerCount = count
		return nil
	})
	if err != nil {
		return
	}
	metrics.Players.WithLabelValues(id).Set(float64(count))
}
