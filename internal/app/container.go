package app

import (
	"context"
	"fmt"
	"strings"

	"arkwarden/internal/automation"
	"arkwarden/internal/buildinfo"
	"arkwarden/internal/clock"
	"arkwarden/internal/config"
	"arkwarden/internal/countdown"
	"arkwarden/internal/dispatch"
	"arkwarden/internal/domain"
	"arkwarden/internal/gameini"
	"arkwarden/internal/lifecycle"
	"arkwarden/internal/metrics"
	"arkwarden/internal/notify"
	"arkwarden/internal/profile"
	"arkwarden/internal/rcon"
	"arkwarden/internal/runner"
	"arkwarden/internal/storage"
	"arkwarden/internal/system"
	"arkwarden/internal/updater"
	"arkwarden/internal/webhook"
	"arkwarden/internal/ws"

	"go.uber.org/zap"
)

const AppName = "arkwarden"

type Container struct {
	Config        *config.Config
	Settings      *config.Settings
	Logger        *zap.Logger
	Clock         clock.Clock
	Store         *storage.GormStore
	Registry      *profile.Registry
	HubManager    *ws.HubManager
	Supervisor    *runner.Supervisor
	Builds        *buildinfo.Source
	GameConfig    *gameini.Source
	Watcher       *gameini.Watcher
	Dispatcher    *dispatch.Dispatcher
	Countdowns    *countdown.Scheduler
	Notifications *notify.Center
	Desktop       *notify.Desktop
	Webhooks      *webhook.Sender
	Machine       *lifecycle.Machine
	Automation    *automation.Engine
	Autostart     *system.Autostart
	Updater       *updater.Checker
}

// New builds every component and connects them. Nothing runs until Load.
func New(configDir string, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	store, err := storage.NewGormStore(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	c := &Container{
		Config:        cfg,
		Settings:      config.NewSettings(configDir, cfg),
		Logger:        logger,
		Clock:         clock.Real(),
		Store:         store,
		Registry:      profile.NewRegistry(store),
		HubManager:    ws.NewHubManager(cfg.LogHistorySize, logger),
		Builds:        buildinfo.NewSource(cfg.SteamCMDTimeoutDuration()),
		GameConfig:    gameini.NewSource(),
		Notifications: notify.NewCenter(),
		Webhooks:      webhook.NewSender(logger),
		Updater:       updater.NewChecker(),
	}
	c.Desktop = notify.NewDesktop(AppName, c.Settings.NotificationsEnabled, logger)
	c.Supervisor = runner.NewSupervisor(c.HubManager, logger)

	c.Dispatcher = dispatch.NewDispatcher(c.Registry, rcon.NewTransport(), c.Clock, c.HubManager, logger)
	c.Countdowns = countdown.NewScheduler(c.Registry, c.Dispatcher, c.Clock, logger)

	m := lifecycle.NewMachine(c.Registry, c.Supervisor, c.Clock, logger)
	m.Builds = c.Builds
	m.Config = c.GameConfig
	m.Countdowns = c.Countdowns
	m.Settings = c.Settings
	m.Notifications = c.Notifications
	m.Desktop = c.Desktop
	m.Webhooks = c.Webhooks
	m.Logs = c.HubManager
	m.StartupTimeout = cfg.StartupTimeout()
	c.Machine = m

	c.Supervisor.Events = m
	c.Countdowns.Actions = m

	e := automation.NewEngine(c.Registry, m, c.Clock, logger)
	e.Broadcast = c.Dispatcher
	e.Stats = c.Supervisor
	e.StatsStore = store
	e.Notifications = c.Notifications
	e.Desktop = c.Desktop
	c.Automation = e

	c.Watcher, err = gameini.NewWatcher(c.GameConfig, logger, c.externalConfigChanged)
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	}

	if c.Autostart, err = system.NewAutostart(AppName, "arkwarden server manager"); err != nil {
		logger.Warn("autostart unavailable", zap.Error(err))
	}

	c.HubManager.OnCommand = func(profileID, command string) {
		command = strings.TrimSpace(command)
		if command == "" {
			return
		}
		if _, err := c.Dispatcher.Send(context.Background(), profileID, command); err != nil {
			logger.Debug("console command failed", zap.String("profile", profileID), zap.Error(err))
		}
	}

	c.Registry.OnChange(lifecycle.RecordTransition)
	c.Registry.OnChange(func(before, after domain.Profile) {
		metrics.SetProfileStatuses(c.Registry.List())
	})
	c.Registry.OnChange(c.profileChanged)

	return c, nil
}

func (c *Container) profileChanged(before, after domain.Profile) {
	if after.ID == "" {
		c.forget(before.ID)
		return
	}
	c.Automation.Sync(after)
	if c.Watcher != nil && before.InstallPath != after.InstallPath {
		if after.Installed() {
			c.Watcher.Watch(after.ID, after.InstallPath)
		} else {
			c.Watcher.Unwatch(after.ID)
		}
	}
}

// forget drops everything kept for a deleted profile.
func (c *Container) forget(id string) {
	c.Automation.Remove(id)
	c.Countdowns.CancelAll(id)
	c.Machine.Forget(id)
	c.Dispatcher.Forget(id)
	c.Notifications.RetractProfile(id)
	c.HubManager.RemoveProfile(id)
	if c.Watcher != nil {
		c.Watcher.Unwatch(id)
	}
	if err := c.Store.ClearStatsSamples(id); err != nil {
		c.Logger.Warn("could not clear stats samples", zap.String("profile", id), zap.Error(err))
	}
}

func (c *Container) externalConfigChanged(profileID string) {
	c.HubManager.Publish(profileID, ws.ChannelManager, "External configuration change detected. It will be compared with the stored configuration on the next start.")
}

func (c *Container) Close() {
	c.Automation.Close()
	c.Countdowns.Close()
	c.Machine.Close()
	c.Supervisor.Close()
	c.Webhooks.Wait()
	if c.Watcher != nil {
		c.Watcher.Close()
	}
	c.HubManager.Close()
	if err := c.Store.Close(); err != nil {
		c.Logger.Warn("could not close database", zap.Error(err))
	}
}
