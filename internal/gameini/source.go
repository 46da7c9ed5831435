// Package gameini reads and writes the dedicated server's own INI files,
// which operators may edit while the manager is running.
package gameini

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"arkwarden/internal/domain"
)

const (
	userSettingsFile = "GameUserSettings.ini"
	gameFile         = "Game.ini"
)

func ConfigDir(installPath string) string {
	return filepath.Join(installPath, "ShooterGame", "Saved", "Config", "WindowsServer")
}

type Source struct {
	mu        sync.Mutex
	lastWrite map[string]time.Time
}

func NewSource() *Source {
	return &Source{lastWrite: make(map[string]time.Time)}
}

// Read returns nil without error when the config directory or both files
// are missing, or when nothing mappable was found.
func (s *Source) Read(installPath string) (*domain.ConfigSnapshot, error) {
	dir := ConfigDir(installPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config dir: %w", err)
	}

	var gusContent, gameContent string
	found := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var dst *string
		switch strings.ToLower(e.Name()) {
		case strings.ToLower(userSettingsFile):
			dst = &gusContent
		case strings.ToLower(gameFile):
			dst = &gameContent
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		*dst = string(data)
		found++
	}
	if found == 0 {
		return nil, nil
	}

	snap := toSnapshot(parse(gusContent), parse(gameContent))
	if snap == (domain.ConfigSnapshot{}) {
		return nil, nil
	}
	return &snap, nil
}

func (s *Source) Write(installPath string, cfg domain.ServerConfig) error {
	dir := ConfigDir(installPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	s.mu.Lock()
	s.lastWrite[filepath.Clean(dir)] = time.Now()
	s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(dir, userSettingsFile), renderUserSettings(cfg), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", userSettingsFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, gameFile), renderGame(cfg), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", gameFile, err)
	}
	return nil
}

// wroteRecently reports whether this process wrote dir within window.
func (s *Source) wroteRecently(dir string, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastWrite[filepath.Clean(dir)]
	return ok && time.Since(t) < window
}

func renderUserSettings(cfg domain.ServerConfig) []byte {
	var b bytes.Buffer
	kv := func(k string, v any) {
		switch val := v.(type) {
		case float64:
			fmt.Fprintf(&b, "%s=%.6f\n", k, val)
		default:
			fmt.Fprintf(&b, "%s=%v\n", k, val)
		}
	}

	b.WriteString("[ServerSettings]\n")
	kv("SessionName", cfg.SessionName)
	kv("MapName", cfg.Map)
	kv("ServerPassword", cfg.ServerPassword)
	kv("ServerAdminPassword", cfg.AdminPassword)
	kv("RCONEnabled", cfg.RCONEnabled)
	kv("RCONPort", cfg.RCONPort)
	kv("RCONServerAdminPassword", cfg.RCONPassword)
	kv("ServerPVE", cfg.ServerPVE)
	kv("ServerCrosshair", cfg.ServerCrosshair)
	kv("ShowMapPlayerLocation", cfg.ShowMapPlayerLocation)
	kv("EnablePvPGamma", false)
	kv("DisablePvEGamma", false)
	kv("AlwaysAllowStructurePickup", cfg.AlwaysAllowStructurePickup)
	kv("DifficultyOffset", cfg.DifficultyOffset)
	kv("XPMultiplier", cfg.XPMultiplier)
	kv("TamingSpeedMultiplier", cfg.TamingSpeedMultiplier)
	kv("HarvestAmountMultiplier", cfg.HarvestAmountMultiplier)
	kv("HarvestHealthMultiplier", cfg.HarvestHealthMultiplier)
	kv("MatingIntervalMultiplier", cfg.MatingIntervalMultiplier)
	kv("EggHatchSpeedMultiplier", cfg.EggHatchSpeedMultiplier)
	kv("BabyMatureSpeedMultiplier", cfg.BabyMatureSpeedMultiplier)
	kv("PlayerCharacterWaterDrainMultiplier", cfg.PlayerCharacterWaterDrainMultiplier)
	kv("PlayerCharacterFoodDrainMultiplier", cfg.PlayerCharacterFoodDrainMultiplier)
	kv("DinoCharacterFoodDrainMultiplier", cfg.DinoCharacterFoodDrainMultiplier)
	kv("DinoCharacterStaminaDrainMultiplier", cfg.DinoCharacterStaminaDrainMultiplier)
	kv("DinoCharacterHealthRecoveryMultiplier", cfg.DinoCharacterHealthRecoveryMultiplier)
	kv("TamedDinoDamageMultiplier", cfg.TamedDinoDamageMultiplier)
	kv("TamedDinoResistanceMultiplier", cfg.TamedDinoResistanceMultiplier)
	kv("NightTimeSpeedScale", cfg.NightTimeSpeedScale)
	kv("AutoSavePeriodMinutes", cfg.AutoSavePeriodMinutes)
	kv("ItemSpoilingTimeMultiplier", cfg.ItemSpoilingTimeMultiplier)
	kv("FuelConsumptionIntervalMultiplier", cfg.FuelConsumptionIntervalMultiplier)
	kv("AllowAnyoneBabyImprintCuddle", cfg.AllowAnyoneBabyImprintCuddle)
	kv("AllowCaveBuildingPvE", cfg.AllowCaveBuildingPvE)
	kv("AllowFlyingStaminaRecovery", cfg.AllowFlyingStaminaRecovery)
	kv("DisableImprintDinoBuff", cfg.DisableImprintDinoBuff)
	kv("globalVoiceChat", cfg.GlobalVoiceChat)
	kv("ProximityChat", cfg.ProximityChat)
	kv("noTributeDownloads", cfg.NoTributeDownloads)
	kv("PreventDownloadSurvivors", cfg.PreventDownloadSurvivors)
	kv("PreventDownloadItems", cfg.PreventDownloadItems)
	kv("PreventDownloadDinos", cfg.PreventDownloadDinos)
	kv("ActiveMods", cfg.Mods)

	multiHome := cfg.MultiHome
	if multiHome == "" {
		multiHome = "0.0.0.0"
	}
	b.WriteString("\n[MultiHome]\n")
	kv("MultiHome", multiHome)

	b.WriteString("\n[/Script/Engine.GameSession]\n")
	kv("MaxPlayers", cfg.MaxPlayers)

	b.WriteString("\n[/Script/ShooterGame.ShooterGameUserSettings]\n")
	kv("bAllowThirdPersonPlayer", cfg.AllowThirdPersonPlayer)
	kv("bShowFloatingDamageText", cfg.ShowFloatingDamageText)
	kv("bAllowFlyerCarryPvE", cfg.AllowFlyerCarryPvE)
	kv("bDisableStructurePlacementCollision", cfg.DisableStructurePlacementCollide)

	return b.Bytes()
}

func renderGame(cfg domain.ServerConfig) []byte {
	return []byte(fmt.Sprintf("[/script/shootergame.shootergamemode]\nbDisableFriendlyFire=%v\n", cfg.DisableFriendlyFire))
}
