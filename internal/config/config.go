package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"arkwarden/internal/domain"
)

const (
	defaultConfigName      = "config.json"
	defaultDatabaseFile    = "arkwarden.db"
	defaultPort            = 23450
	defaultStartupTimeout  = 900
	defaultSteamCMDTimeout = 120
	defaultLogHistorySize  = 500
)

type Config struct {
	DatabasePath          string `json:"profiles_db_path"`
	Port                  int    `json:"port"`
	StartupTimeoutSeconds int    `json:"startup_timeout_seconds"`
	NotificationsEnabled  bool   `json:"notifications_enabled"`
	AutoSaveOnStart       bool   `json:"auto_save_on_start"`
	StartWithSystem       bool   `json:"start_with_system"`
	TrayEnabled           bool   `json:"tray_enabled"`
	SteamCMDTimeout       int    `json:"steamcmd_timeout_seconds"`
	LogHistorySize        int    `json:"log_history_size"`
}

func (c Config) StartupTimeout() time.Duration {
	return time.Duration(c.StartupTimeoutSeconds) * time.Second
}

func (c Config) SteamCMDTimeoutDuration() time.Duration {
	return time.Duration(c.SteamCMDTimeout) * time.Second
}

func (c Config) AppSettings() domain.AppSettings {
	return domain.AppSettings{
		NotificationsEnabled: c.NotificationsEnabled,
		AutoSaveOnStart:      c.AutoSaveOnStart,
		StartWithSystem:      c.StartWithSystem,
	}
}

func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, defaultConfigName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath, configDir)
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := defaults(configDir)
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.StartupTimeoutSeconds <= 0 {
		cfg.StartupTimeoutSeconds = defaultStartupTimeout
	}
	if cfg.LogHistorySize <= 0 {
		cfg.LogHistorySize = defaultLogHistorySize
	}

	return &cfg, nil
}

func SaveConfig(configDir string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, defaultConfigName), data, 0644)
}

func defaults(configDir string) Config {
	return Config{
		DatabasePath:          filepath.Join(configDir, defaultDatabaseFile),
		Port:                  defaultPort,
		StartupTimeoutSeconds: defaultStartupTimeout,
		NotificationsEnabled:  true,
		TrayEnabled:           true,
		SteamCMDTimeout:       defaultSteamCMDTimeout,
		LogHistorySize:        defaultLogHistorySize,
	}
}

func createDefaultConfig(configPath, configDir string) (*Config, error) {
	cfg := defaults(configDir)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Settings guards the app-level toggles that can change at runtime and
// writes them back to config.json.
type Settings struct {
	dir string
	mu  sync.RWMutex
	cfg Config
}

func NewSettings(configDir string, cfg *Config) *Settings {
	return &Settings{dir: configDir, cfg: *cfg}
}

func (s *Settings) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Settings) Get() domain.AppSettings {
	return s.Config().AppSettings()
}

func (s *Settings) NotificationsEnabled() bool {
	return s.Config().NotificationsEnabled
}

func (s *Settings) AutoSaveOnStart() bool {
	return s.Config().AutoSaveOnStart
}

func (s *Settings) EnableAutoSaveOnStart() error {
	_, err := s.Update(func(a *domain.AppSettings) { a.AutoSaveOnStart = true })
	return err
}

func (s *Settings) Update(fn func(a *domain.AppSettings)) (domain.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.AppSettings()
	fn(&next)

	cfg := s.cfg
	cfg.NotificationsEnabled = next.NotificationsEnabled
	cfg.AutoSaveOnStart = next.AutoSaveOnStart
	cfg.StartWithSystem = next.StartWithSystem
	if err := SaveConfig(s.dir, cfg); err != nil {
		return s.cfg.AppSettings(), fmt.Errorf("could not save settings: %w", err)
	}
	s.cfg = cfg
	return next, nil
}
