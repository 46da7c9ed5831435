package reconcile

import (
	"math"
	"strings"

	"arkwarden/internal/domain"
)

type field struct {
	name   string
	differ func(cfg *domain.ServerConfig, snap *domain.ConfigSnapshot) bool
	apply  func(cfg *domain.ServerConfig, snap *domain.ConfigSnapshot)
}

func scalar[T comparable](name string, dst func(*domain.ServerConfig) *T, src func(*domain.ConfigSnapshot) *T) field {
	return field{
		name: name,
		differ: func(cfg *domain.ServerConfig, snap *domain.ConfigSnapshot) bool {
			v := src(snap)
			return v != nil && *v != *dst(cfg)
		},
		apply: func(cfg *domain.ServerConfig, snap *domain.ConfigSnapshot) {
			if v := src(snap); v != nil {
				*dst(cfg) = *v
			}
		},
	}
}

// floatTolerance matches the six decimals multipliers are written with.
const floatTolerance = 1e-6

// decimal is a float field. Values that agree to floatTolerance are equal.
func decimal(name string, dst func(*domain.ServerConfig) *float64, src func(*domain.ConfigSnapshot) *float64) field {
	f := scalar(name, dst, src)
	f.differ = func(cfg *domain.ServerConfig, snap *domain.ConfigSnapshot) bool {
		v := src(snap)
		return v != nil && math.Abs(*v-*dst(cfg)) > floatTolerance
	}
	return f
}

type (
	cfgT  = domain.ServerConfig
	snapT = domain.ConfigSnapshot
)

var fields = []field{
	scalar("sessionName", func(c *cfgT) *string { return &c.SessionName }, func(s *snapT) *string { return s.SessionName }),
	scalar("map", func(c *cfgT) *string { return &c.Map }, func(s *snapT) *string { return s.Map }),
	scalar("maxPlayers", func(c *cfgT) *int { return &c.MaxPlayers }, func(s *snapT) *int { return s.MaxPlayers }),
	{
		name: "mods",
		differ: func(c *cfgT, s *snapT) bool {
			return s.Mods != nil && strings.TrimSpace(*s.Mods) != strings.TrimSpace(c.Mods)
		},
		apply: func(c *cfgT, s *snapT) {
			if s.Mods != nil {
				c.Mods = *s.Mods
			}
		},
	},
	scalar("adminPassword", func(c *cfgT) *string { return &c.AdminPassword }, func(s *snapT) *string { return s.AdminPassword }),
	scalar("serverPassword", func(c *cfgT) *string { return &c.ServerPassword }, func(s *snapT) *string { return s.ServerPassword }),
	scalar("gamePort", func(c *cfgT) *int { return &c.GamePort }, func(s *snapT) *int { return s.GamePort }),
	scalar("queryPort", func(c *cfgT) *int { return &c.QueryPort }, func(s *snapT) *int { return s.QueryPort }),
	scalar("rconIp", func(c *cfgT) *string { return &c.MultiHome }, func(s *snapT) *string { return s.MultiHome }),

	scalar("bEnableRcon", func(c *cfgT) *bool { return &c.RCONEnabled }, func(s *snapT) *bool { return s.RCONEnabled }),
	scalar("rconPort", func(c *cfgT) *int { return &c.RCONPort }, func(s *snapT) *int { return s.RCONPort }),
	scalar("rconPassword", func(c *cfgT) *string { return &c.RCONPassword }, func(s *snapT) *string { return s.RCONPassword }),

	decimal("xpMultiplier", func(c *cfgT) *float64 { return &c.XPMultiplier }, func(s *snapT) *float64 { return s.XPMultiplier }),
	decimal("tamingSpeedMultiplier", func(c *cfgT) *float64 { return &c.TamingSpeedMultiplier }, func(s *snapT) *float64 { return s.TamingSpeedMultiplier }),
	decimal("harvestAmountMultiplier", func(c *cfgT) *float64 { return &c.HarvestAmountMultiplier }, func(s *snapT) *float64 { return s.HarvestAmountMultiplier }),
	decimal("harvestHealthMultiplier", func(c *cfgT) *float64 { return &c.HarvestHealthMultiplier }, func(s *snapT) *float64 { return s.HarvestHealthMultiplier }),
	decimal("matingIntervalMultiplier", func(c *cfgT) *float64 { return &c.MatingIntervalMultiplier }, func(s *snapT) *float64 { return s.MatingIntervalMultiplier }),
	decimal("eggHatchSpeedMultiplier", func(c *cfgT) *float64 { return &c.EggHatchSpeedMultiplier }, func(s *snapT) *float64 { return s.EggHatchSpeedMultiplier }),
	decimal("babyMatureSpeedMultiplier", func(c *cfgT) *float64 { return &c.BabyMatureSpeedMultiplier }, func(s *snapT) *float64 { return s.BabyMatureSpeedMultiplier }),
	decimal("playerCharacterWaterDrainMultiplier", func(c *cfgT) *float64 { return &c.PlayerCharacterWaterDrainMultiplier }, func(s *snapT) *float64 { return s.PlayerCharacterWaterDrainMultiplier }),
	decimal("playerCharacterFoodDrainMultiplier", func(c *cfgT) *float64 { return &c.PlayerCharacterFoodDrainMultiplier }, func(s *snapT) *float64 { return s.PlayerCharacterFoodDrainMultiplier }),
	decimal("dinoCharacterFoodDrainMultiplier", func(c *cfgT) *float64 { return &c.DinoCharacterFoodDrainMultiplier }, func(s *snapT) *float64 { return s.DinoCharacterFoodDrainMultiplier }),
	decimal("dinoCharacterStaminaDrainMultiplier", func(c *cfgT) *float64 { return &c.DinoCharacterStaminaDrainMultiplier }, func(s *snapT) *float64 { return s.DinoCharacterStaminaDrainMultiplier }),
	decimal("dinoCharacterHealthRecoveryMultiplier", func(c *cfgT) *float64 { return &c.DinoCharacterHealthRecoveryMultiplier }, func(s *snapT) *float64 { return s.DinoCharacterHealthRecoveryMultiplier }),
	decimal("tamedDinoDamageMultiplier", func(c *cfgT) *float64 { return &c.TamedDinoDamageMultiplier }, func(s *snapT) *float64 { return s.TamedDinoDamageMultiplier }),
	decimal("tamedDinoResistanceMultiplier", func(c *cfgT) *float64 { return &c.TamedDinoResistanceMultiplier }, func(s *snapT) *float64 { return s.TamedDinoResistanceMultiplier }),
	decimal("difficultyOffset", func(c *cfgT) *float64 { return &c.DifficultyOffset }, func(s *snapT) *float64 { return s.DifficultyOffset }),
	decimal("nightTimeSpeedScale", func(c *cfgT) *float64 { return &c.NightTimeSpeedScale }, func(s *snapT) *float64 { return s.NightTimeSpeedScale }),
	decimal("autoSavePeriodMinutes", func(c *cfgT) *float64 { return &c.AutoSavePeriodMinutes }, func(s *snapT) *float64 { return s.AutoSavePeriodMinutes }),
	decimal("itemSpoilingTimeMultiplier", func(c *cfgT) *float64 { return &c.ItemSpoilingTimeMultiplier }, func(s *snapT) *float64 { return s.ItemSpoilingTimeMultiplier }),
	decimal("fuelConsumptionIntervalMultiplier", func(c *cfgT) *float64 { return &c.FuelConsumptionIntervalMultiplier }, func(s *snapT) *float64 { return s.FuelConsumptionIntervalMultiplier }),

	scalar("bServerPVE", func(c *cfgT) *bool { return &c.ServerPVE }, func(s *snapT) *bool { return s.ServerPVE }),
	scalar("bServerCrosshair", func(c *cfgT) *bool { return &c.ServerCrosshair }, func(s *snapT) *bool { return s.ServerCrosshair }),
	scalar("bShowMapPlayerLocation", func(c *cfgT) *bool { return &c.ShowMapPlayerLocation }, func(s *snapT) *bool { return s.ShowMapPlayerLocation }),
	scalar("bAllowThirdPersonPlayer", func(c *cfgT) *bool { return &c.AllowThirdPersonPlayer }, func(s *snapT) *bool { return s.AllowThirdPersonPlayer }),
	scalar("bShowFloatingDamageText", func(c *cfgT) *bool { return &c.ShowFloatingDamageText }, func(s *snapT) *bool { return s.ShowFloatingDamageText }),
	scalar("bAllowFlyerCarryPvE", func(c *cfgT) *bool { return &c.AllowFlyerCarryPvE }, func(s *snapT) *bool { return s.AllowFlyerCarryPvE }),
	scalar("bDisableStructurePlacementCollision", func(c *cfgT) *bool { return &c.DisableStructurePlacementCollide }, func(s *snapT) *bool { return s.DisableStructurePlacementCollide }),
	scalar("bGlobalVoiceChat", func(c *cfgT) *bool { return &c.GlobalVoiceChat }, func(s *snapT) *bool { return s.GlobalVoiceChat }),
	scalar("bProximityChat", func(c *cfgT) *bool { return &c.ProximityChat }, func(s *snapT) *bool { return s.ProximityChat }),
	scalar("bAllowAnyoneBabyImprintCuddle", func(c *cfgT) *bool { return &c.AllowAnyoneBabyImprintCuddle }, func(s *snapT) *bool { return s.AllowAnyoneBabyImprintCuddle }),
	scalar("bAllowFlyingStaminaRecovery", func(c *cfgT) *bool { return &c.AllowFlyingStaminaRecovery }, func(s *snapT) *bool { return s.AllowFlyingStaminaRecovery }),
	scalar("bDisableImprintDinoBuff", func(c *cfgT) *bool { return &c.DisableImprintDinoBuff }, func(s *snapT) *bool { return s.DisableImprintDinoBuff }),
	scalar("bDisableFriendlyFire", func(c *cfgT) *bool { return &c.DisableFriendlyFire }, func(s *snapT) *bool { return s.DisableFriendlyFire }),
	scalar("bAllowCaveBuildingPvE", func(c *cfgT) *bool { return &c.AllowCaveBuildingPvE }, func(s *snapT) *bool { return s.AllowCaveBuildingPvE }),
	scalar("bAlwaysAllowStructurePickup", func(c *cfgT) *bool { return &c.AlwaysAllowStructurePickup }, func(s *snapT) *bool { return s.AlwaysAllowStructurePickup }),
	scalar("bNoTributeDownloads", func(c *cfgT) *bool { return &c.NoTributeDownloads }, func(s *snapT) *bool { return s.NoTributeDownloads }),
	scalar("bPreventDownloadSurvivors", func(c *cfgT) *bool { return &c.PreventDownloadSurvivors }, func(s *snapT) *bool { return s.PreventDownloadSurvivors }),
	scalar("bPreventDownloadItems", func(c *cfgT) *bool { return &c.PreventDownloadItems }, func(s *snapT) *bool { return s.PreventDownloadItems }),
	scalar("bPreventDownloadDinos", func(c *cfgT) *bool { return &c.PreventDownloadDinos }, func(s *snapT) *bool { return s.PreventDownloadDinos }),
}
