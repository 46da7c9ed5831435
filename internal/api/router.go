package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"arkwarden/internal/app"
	"arkwarden/internal/dispatch"
	"arkwarden/internal/domain"
	"arkwarden/internal/lifecycle"
	"arkwarden/internal/metrics"
	"arkwarden/internal/updater"
	"arkwarden/internal/ws"

	"go.uber.org/zap"
)

type Profiles interface {
	List() []domain.Profile
	Get(id string) (domain.Profile, error)
	Create(name, installPath string) (domain.Profile, error)
	Update(id string, fn func(p *domain.Profile) error) (domain.Profile, error)
	Delete(id string) error
}

type Lifecycle interface {
	Start(ctx context.Context, id string) error
	ResolvePendingStart(ctx context.Context, id string, choice lifecycle.DriftChoice, rememberAutoSave bool) error
	Pending(id string) (lifecycle.PendingStart, bool)
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string, scheduled bool) error
	Update(ctx context.Context, id string) error
	CheckForUpdate(ctx context.Context, id string) (domain.Profile, error)
	Verify(ctx context.Context, id string) (domain.Profile, error)
	Relocate(ctx context.Context, id, installPath string) (domain.Profile, error)
}

type Countdowns interface {
	Arm(ctx context.Context, profileID string, kind domain.TimedOperationKind, minutes int, reason string) (domain.TimedOperation, error)
	Cancel(ctx context.Context, profileID string) error
	Active(profileID string) (domain.TimedOperation, bool)
}

type Commands interface {
	Send(ctx context.Context, profileID, command string) (dispatch.Entry, error)
	Log(profileID string) []dispatch.Entry
}

type Selector interface {
	Select(profileID string)
	Selected() string
}

type Store interface {
	ListStatsSamples(profileID string, since time.Time) ([]domain.StatsSample, error)
	SetSetting(key, value string) error
}

type Notifications interface {
	List() []domain.Notification
	MarkAllRead()
	Clear()
}

type Settings interface {
	Get() domain.AppSettings
	Update(fn func(a *domain.AppSettings)) (domain.AppSettings, error)
}

type Autostart interface {
	Apply(enabled bool) error
}

type AppUpdates interface {
	CheckForUpdates(ctx context.Context) (*updater.UpdateInfo, error)
}

type Server struct {
	Profiles      Profiles
	Lifecycle     Lifecycle
	Countdowns    Countdowns
	Commands      Commands
	Selector      Selector
	Store         Store
	Notifications Notifications
	Settings      Settings
	Autostart     Autostart
	Updates       AppUpdates
	HubManager    *ws.HubManager
	Logger        *zap.Logger
}

func NewAPIServer(container *app.Container) *Server {
	s := &Server{
		Profiles:      container.Registry,
		Lifecycle:     container.Machine,
		Countdowns:    container.Countdowns,
		Commands:      container.Dispatcher,
		Selector:      container.Automation,
		Store:         container.Store,
		Notifications: container.Notifications,
		Settings:      container.Settings,
		Updates:       container.Updater,
		HubManager:    container.HubManager,
		Logger:        container.Logger,
	}
	if container.Autostart != nil {
		s.Autostart = container.Autostart
	}
	return s
}

func (api *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if ex, err := os.Executable(); err == nil {
		webDistPath := filepath.Join(filepath.Dir(ex), "web_dist")
		if info, err := os.Stat(webDistPath); err == nil && info.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(webDistPath)))
		}
	}

	mux.HandleFunc("GET /profiles", api.handleListProfiles)
	mux.HandleFunc("POST /profiles", api.handleCreateProfile)
	mux.HandleFunc("GET /profiles/{id}", api.handleGetProfile)
	mux.HandleFunc("PUT /profiles/{id}", api.handleUpdateProfile)
	mux.HandleFunc("DELETE /profiles/{id}", api.handleDeleteProfile)
	mux.HandleFunc("PUT /profiles/{id}/config", api.handleUpdateConfig)

	mux.HandleFunc("POST /profiles/{id}/start", api.handleStart)
	mux.HandleFunc("POST /profiles/{id}/start/resolve", api.handleResolveStart)
	mux.HandleFunc("POST /profiles/{id}/stop", api.handleStop)
	mux.HandleFunc("POST /profiles/{id}/restart", api.handleRestart)
	mux.HandleFunc("POST /profiles/{id}/update", api.handleUpdate)
	mux.HandleFunc("POST /profiles/{id}/check-update", api.handleCheckUpdate)

	mux.HandleFunc("POST /profiles/{id}/timed/{kind}", api.handleArmTimed)
	mux.HandleFunc("GET /profiles/{id}/timed", api.handleGetTimed)
	mux.HandleFunc("DELETE /profiles/{id}/timed", api.handleCancelTimed)

	mux.HandleFunc("POST /profiles/{id}/command", api.handleCommand)
	mux.HandleFunc("GET /profiles/{id}/commands", api.handleCommandLog)
	mux.HandleFunc("POST /profiles/{id}/select", api.handleSelect)
	mux.HandleFunc("GET /profiles/{id}/stats", api.handleStats)

	mux.HandleFunc("GET /notifications", api.handleListNotifications)
	mux.HandleFunc("POST /notifications/read", api.handleMarkNotificationsRead)
	mux.HandleFunc("DELETE /notifications", api.handleClearNotifications)

	mux.HandleFunc("GET /settings", api.handleGetSettings)
	mux.HandleFunc("PUT /settings", api.handleUpdateSettings)
	mux.HandleFunc("GET /app/update", api.handleAppUpdate)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /ws/profiles/{id}/{channel}", api.handleLogStream)

	return api.corsMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts the listener down.
func (api *Server) Start(ctx context.Context, listenAddr string) error {
	srv := &http.Server{Addr: listenAddr, Handler: api.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			api.Logger.Warn("API shutdown failed", zap.Error(err))
		}
	}()

	api.Logger.Info("API listening", zap.String("addr", "http://0.0.0.0"+listenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
