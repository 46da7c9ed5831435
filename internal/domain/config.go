package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ServerConfig struct {
	SessionName    string `json:"sessionName" validate:"required"`
	Map            string `json:"map" validate:"required"`
	MaxPlayers     int    `json:"maxPlayers" validate:"min=1,max=255"`
	Mods           string `json:"mods"`
	AdminPassword  string `json:"adminPassword"`
	ServerPassword string `json:"serverPassword"`
	GamePort       int    `json:"gamePort" validate:"min=1,max=65535"`
	QueryPort      int    `json:"queryPort" validate:"min=1,max=65535"`
	MultiHome      string `json:"rconIp" validate:"omitempty,ip"`
	ServerPlatform string `json:"serverPlatform" validate:"oneof=All PC"`

	RCONEnabled  bool   `json:"bEnableRcon"`
	RCONPort     int    `json:"rconPort" validate:"min=1,max=65535"`
	RCONPassword string `json:"rconPassword"`

	DisableBattlEye bool `json:"bDisableBattleEye"`

	ClusteringEnabled  bool   `json:"bEnableClustering"`
	ClusterID          string `json:"clusterId"`
	ClusterDirOverride string `json:"clusterDirOverride"`

	XPMultiplier                          float64 `json:"xpMultiplier" validate:"gte=0"`
	TamingSpeedMultiplier                 float64 `json:"tamingSpeedMultiplier" validate:"gte=0"`
	HarvestAmountMultiplier               float64 `json:"harvestAmountMultiplier" validate:"gte=0"`
	HarvestHealthMultiplier               float64 `json:"harvestHealthMultiplier" validate:"gte=0"`
	MatingIntervalMultiplier              float64 `json:"matingIntervalMultiplier" validate:"gte=0"`
	EggHatchSpeedMultiplier               float64 `json:"eggHatchSpeedMultiplier" validate:"gte=0"`
	BabyMatureSpeedMultiplier             float64 `json:"babyMatureSpeedMultiplier" validate:"gte=0"`
	PlayerCharacterWaterDrainMultiplier   float64 `json:"playerCharacterWaterDrainMultiplier" validate:"gte=0"`
	PlayerCharacterFoodDrainMultiplier    float64 `json:"playerCharacterFoodDrainMultiplier" validate:"gte=0"`
	DinoCharacterFoodDrainMultiplier      float64 `json:"dinoCharacterFoodDrainMultiplier" validate:"gte=0"`
	DinoCharacterStaminaDrainMultiplier   float64 `json:"dinoCharacterStaminaDrainMultiplier" validate:"gte=0"`
	DinoCharacterHealthRecoveryMultiplier float64 `json:"dinoCharacterHealthRecoveryMultiplier" validate:"gte=0"`
	TamedDinoDamageMultiplier             float64 `json:"tamedDinoDamageMultiplier" validate:"gte=0"`
	TamedDinoResistanceMultiplier         float64 `json:"tamedDinoResistanceMultiplier" validate:"gte=0"`
	DifficultyOffset                      float64 `json:"difficultyOffset" validate:"gte=0"`
	NightTimeSpeedScale                   float64 `json:"nightTimeSpeedScale" validate:"gte=0"`
	AutoSavePeriodMinutes                 float64 `json:"autoSavePeriodMinutes" validate:"gte=0"`
	ItemSpoilingTimeMultiplier            float64 `json:"itemSpoilingTimeMultiplier" validate:"gte=0"`
	FuelConsumptionIntervalMultiplier     float64 `json:"fuelConsumptionIntervalMultiplier" validate:"gte=0"`

	ServerPVE                        bool `json:"bServerPVE"`
	ServerCrosshair                  bool `json:"bServerCrosshair"`
	ShowMapPlayerLocation            bool `json:"bShowMapPlayerLocation"`
	AllowThirdPersonPlayer           bool `json:"bAllowThirdPersonPlayer"`
	ShowFloatingDamageText           bool `json:"bShowFloatingDamageText"`
	AllowFlyerCarryPvE               bool `json:"bAllowFlyerCarryPvE"`
	DisableStructurePlacementCollide bool `json:"bDisableStructurePlacementCollision"`
	GlobalVoiceChat                  bool `json:"bGlobalVoiceChat"`
	ProximityChat                    bool `json:"bProximityChat"`
	AllowAnyoneBabyImprintCuddle     bool `json:"bAllowAnyoneBabyImprintCuddle"`
	AllowFlyingStaminaRecovery       bool `json:"bAllowFlyingStaminaRecovery"`
	DisableImprintDinoBuff           bool `json:"bDisableImprintDinoBuff"`
	DisableFriendlyFire              bool `json:"bDisableFriendlyFire"`
	AllowCaveBuildingPvE             bool `json:"bAllowCaveBuildingPvE"`
	AlwaysAllowStructurePickup       bool `json:"bAlwaysAllowStructurePickup"`
	NoTributeDownloads               bool `json:"bNoTributeDownloads"`
	PreventDownloadSurvivors         bool `json:"bPreventDownloadSurvivors"`
	PreventDownloadItems             bool `json:"bPreventDownloadItems"`
	PreventDownloadDinos             bool `json:"bPreventDownloadDinos"`

	AutomationSettings

	WebhookURL     string `json:"discordWebhookUrl" validate:"omitempty,url"`
	WebhookEnabled bool   `json:"discordNotificationsEnabled"`
}

type AutomationSettings struct {
	AutoUpdateEnabled          bool   `json:"autoUpdateEnabled"`
	AutoUpdateFrequencyMinutes int    `json:"autoUpdateFrequency" validate:"gte=0"`
	ScheduledRestartEnabled    bool   `json:"scheduledRestartEnabled"`
	ScheduledRestartTime       string `json:"scheduledRestartTime" validate:"omitempty,clock"`
	UpdateOnRestart            bool   `json:"updateOnRestart"`
	RestartAnnouncementMinutes int    `json:"restartAnnouncementMinutes" validate:"gte=0"`
}

func DefaultServerConfig(profileCount int) ServerConfig {
	return ServerConfig{
		SessionName:    fmt.Sprintf("My Ark Server %d", profileCount+1),
		Map:            "TheIsland_WP",
		MaxPlayers:     20,
		AdminPassword:  "adminpassword",
		GamePort:       7777,
		QueryPort:      27015,
		MultiHome:      "127.0.0.1",
		ServerPlatform: "All",
		RCONPort:       27020,

		DisableBattlEye: true,
		ClusterID:       "MyCluster123",

		XPMultiplier:                          1,
		TamingSpeedMultiplier:                 1,
		HarvestAmountMultiplier:               1,
		HarvestHealthMultiplier:               1,
		MatingIntervalMultiplier:              1,
		EggHatchSpeedMultiplier:               1,
		BabyMatureSpeedMultiplier:             1,
		PlayerCharacterWaterDrainMultiplier:   1,
		PlayerCharacterFoodDrainMultiplier:    1,
		DinoCharacterFoodDrainMultiplier:      1,
		DinoCharacterStaminaDrainMultiplier:   1,
		DinoCharacterHealthRecoveryMultiplier: 1,
		TamedDinoDamageMultiplier:             1,
		TamedDinoResistanceMultiplier:         1,
		DifficultyOffset:                      1,
		NightTimeSpeedScale:                   1,
		AutoSavePeriodMinutes:                 15,
		ItemSpoilingTimeMultiplier:            1,
		FuelConsumptionIntervalMultiplier:     1,

		ServerPVE:                  true,
		ServerCrosshair:            true,
		ShowMapPlayerLocation:      true,
		AllowThirdPersonPlayer:     true,
		ShowFloatingDamageText:     true,
		GlobalVoiceChat:            true,
		AllowFlyingStaminaRecovery: true,
		AllowCaveBuildingPvE:       true,

		AutomationSettings: AutomationSettings{
			AutoUpdateFrequencyMinutes: 60,
			ScheduledRestartTime:       "04:00",
			UpdateOnRestart:            true,
			RestartAnnouncementMinutes: 10,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

func (c ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if c.AutoUpdateEnabled && c.AutoUpdateFrequencyMinutes <= 0 {
		return fmt.Errorf("invalid server config: auto update frequency must be positive")
	}
	if c.ScheduledRestartEnabled && c.ScheduledRestartTime == "" {
		return fmt.Errorf("invalid server config: scheduled restart time is required")
	}
	return nil
}

// ParseTimeOfDay parses a 24h "HH:MM" string.
func ParseTimeOfDay(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
