package domain

// ConfigSnapshot is a partial ServerConfig read from the server's own
// configuration files. A nil field was not present in the source.
type ConfigSnapshot struct {
	SessionName    *string `json:"sessionName,omitempty"`
	Map            *string `json:"map,omitempty"`
	MaxPlayers     *int    `json:"maxPlayers,omitempty"`
	Mods           *string `json:"mods,omitempty"`
	AdminPassword  *string `json:"adminPassword,omitempty"`
	ServerPassword *string `json:"serverPassword,omitempty"`
	GamePort       *int    `json:"gamePort,omitempty"`
	QueryPort      *int    `json:"queryPort,omitempty"`
	MultiHome      *string `json:"rconIp,omitempty"`

	RCONEnabled  *bool   `json:"bEnableRcon,omitempty"`
	RCONPort     *int    `json:"rconPort,omitempty"`
	RCONPassword *string `json:"rconPassword,omitempty"`

	XPMultiplier                          *float64 `json:"xpMultiplier,omitempty"`
	TamingSpeedMultiplier                 *float64 `json:"tamingSpeedMultiplier,omitempty"`
	HarvestAmountMultiplier               *float64 `json:"harvestAmountMultiplier,omitempty"`
	HarvestHealthMultiplier               *float64 `json:"harvestHealthMultiplier,omitempty"`
	MatingIntervalMultiplier              *float64 `json:"matingIntervalMultiplier,omitempty"`
	EggHatchSpeedMultiplier               *float64 `json:"eggHatchSpeedMultiplier,omitempty"`
	BabyMatureSpeedMultiplier             *float64 `json:"babyMatureSpeedMultiplier,omitempty"`
	PlayerCharacterWaterDrainMultiplier   *float64 `json:"playerCharacterWaterDrainMultiplier,omitempty"`
	PlayerCharacterFoodDrainMultiplier    *float64 `json:"playerCharacterFoodDrainMultiplier,omitempty"`
	DinoCharacterFoodDrainMultiplier      *float64 `json:"dinoCharacterFoodDrainMultiplier,omitempty"`
	DinoCharacterStaminaDrainMultiplier   *float64 `json:"dinoCharacterStaminaDrainMultiplier,omitempty"`
	DinoCharacterHealthRecoveryMultiplier *float64 `json:"dinoCharacterHealthRecoveryMultiplier,omitempty"`
	TamedDinoDamageMultiplier             *float64 `json:"tamedDinoDamageMultiplier,omitempty"`
	TamedDinoResistanceMultiplier         *float64 `json:"tamedDinoResistanceMultiplier,omitempty"`
	DifficultyOffset                      *float64 `json:"difficultyOffset,omitempty"`
	NightTimeSpeedScale                   *float64 `json:"nightTimeSpeedScale,omitempty"`
	AutoSavePeriodMinutes                 *float64 `json:"autoSavePeriodMinutes,omitempty"`
	ItemSpoilingTimeMultiplier            *float64 `json:"itemSpoilingTimeMultiplier,omitempty"`
	FuelConsumptionIntervalMultiplier     *float64 `json:"fuelConsumptionIntervalMultiplier,omitempty"`

	ServerPVE                        *bool `json:"bServerPVE,omitempty"`
	ServerCrosshair                  *bool `json:"bServerCrosshair,omitempty"`
	ShowMapPlayerLocation            *bool `json:"bShowMapPlayerLocation,omitempty"`
	AllowThirdPersonPlayer           *bool `json:"bAllowThirdPersonPlayer,omitempty"`
	ShowFloatingDamageText           *bool `json:"bShowFloatingDamageText,omitempty"`
	AllowFlyerCarryPvE               *bool `json:"bAllowFlyerCarryPvE,omitempty"`
	DisableStructurePlacementCollide *bool `json:"bDisableStructurePlacementCollision,omitempty"`
	GlobalVoiceChat                  *bool `json:"bGlobalVoiceChat,omitempty"`
	ProximityChat                    *bool `json:"bProximityChat,omitempty"`
	AllowAnyoneBabyImprintCuddle     *bool `json:"bAllowAnyoneBabyImprintCuddle,omitempty"`
	AllowFlyingStaminaRecovery       *bool `json:"bAllowFlyingStaminaRecovery,omitempty"`
	DisableImprintDinoBuff           *bool `json:"bDisableImprintDinoBuff,omitempty"`
	DisableFriendlyFire              *bool `json:"bDisableFriendlyFire,omitempty"`
	AllowCaveBuildingPvE             *bool `json:"bAllowCaveBuildingPvE,omitempty"`
	AlwaysAllowStructurePickup       *bool `json:"bAlwaysAllowStructurePickup,omitempty"`
	NoTributeDownloads               *bool `json:"bNoTributeDownloads,omitempty"`
	PreventDownloadSurvivors         *bool `json:"bPreventDownloadSurvivors,omitempty"`
	PreventDownloadItems             *bool `json:"bPreventDownloadItems,omitempty"`
	PreventDownloadDinos             *bool `json:"bPreventDownloadDinos,omitempty"`
}

// Ptr returns a pointer to v. Handy for building snapshots.
func Ptr[T any](v T) *T {
	return &v
}
