package gameini

import (
	"bufio"
	"strconv"
	"strings"

	"arkwarden/internal/domain"
)

// sections maps lowercased section names to their key/value pairs. Keys keep
// their original case since the server itself is inconsistent about it.
type sections map[string]map[string]string

func parse(content string) sections {
	out := make(sections)
	current := ""

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.ToLower(line[1 : len(line)-1])
			if _, ok := out[current]; !ok {
				out[current] = make(map[string]string)
			}
			continue
		}
		if current == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			out[current][strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return out
}

func (s sections) section(names ...string) map[string]string {
	for _, n := range names {
		if sec, ok := s[n]; ok {
			return sec
		}
	}
	return map[string]string{}
}

// lookup returns the first non-empty value among keys.
func lookup(sec map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v := sec[k]; v != "" {
			return v, true
		}
	}
	return "", false
}

func setString(dst **string, sec map[string]string, keys ...string) {
	if v, ok := lookup(sec, keys...); ok {
		*dst = &v
	}
}

// setSecret drops anything after '?', which would otherwise leak launch
// options pasted into a password field.
func setSecret(dst **string, sec map[string]string, key string) {
	if v, ok := lookup(sec, key); ok {
		v = strings.SplitN(v, "?", 2)[0]
		*dst = &v
	}
}

func setBool(dst **bool, sec map[string]string, keys ...string) {
	if v, ok := lookup(sec, keys...); ok {
		b := strings.EqualFold(v, "true")
		*dst = &b
	}
}

func setInt(dst **int, sec map[string]string, keys ...string) {
	if v, ok := lookup(sec, keys...); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = &n
		}
	}
}

func setFloat(dst **float64, sec map[string]string, keys ...string) {
	if v, ok := lookup(sec, keys...); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = &f
		}
	}
}

func toSnapshot(gus, game sections) domain.ConfigSnapshot {
	var snap domain.ConfigSnapshot

	srv := gus.section("serversettings")
	setString(&snap.SessionName, srv, "SessionName", "ServerName")
	setString(&snap.Map, srv, "MapName")
	setSecret(&snap.ServerPassword, srv, "ServerPassword")
	setSecret(&snap.AdminPassword, srv, "ServerAdminPassword")
	setBool(&snap.RCONEnabled, srv, "RCONEnabled")
	setInt(&snap.RCONPort, srv, "RCONPort")
	setString(&snap.RCONPassword, srv, "RCONServerAdminPassword")

	setBool(&snap.ServerPVE, srv, "ServerPVE", "serverPVE")
	setBool(&snap.ServerCrosshair, srv, "ServerCrosshair")
	setBool(&snap.ShowMapPlayerLocation, srv, "ShowMapPlayerLocation")
	setBool(&snap.AllowAnyoneBabyImprintCuddle, srv, "AllowAnyoneBabyImprintCuddle")
	setBool(&snap.AllowFlyingStaminaRecovery, srv, "AllowFlyingStaminaRecovery")
	setBool(&snap.DisableImprintDinoBuff, srv, "DisableImprintDinoBuff")
	setBool(&snap.AllowCaveBuildingPvE, srv, "AllowCaveBuildingPvE")
	setBool(&snap.AlwaysAllowStructurePickup, srv, "AlwaysAllowStructurePickup")
	setBool(&snap.GlobalVoiceChat, srv, "globalVoiceChat")
	setBool(&snap.ProximityChat, srv, "ProximityChat")
	setBool(&snap.NoTributeDownloads, srv, "noTributeDownloads")
	setBool(&snap.PreventDownloadSurvivors, srv, "PreventDownloadSurvivors")
	setBool(&snap.PreventDownloadItems, srv, "PreventDownloadItems")
	setBool(&snap.PreventDownloadDinos, srv, "PreventDownloadDinos")

	setFloat(&snap.XPMultiplier, srv, "XPMultiplier")
	setFloat(&snap.TamingSpeedMultiplier, srv, "TamingSpeedMultiplier")
	setFloat(&snap.HarvestAmountMultiplier, srv, "HarvestAmountMultiplier")
	setFloat(&snap.HarvestHealthMultiplier, srv, "HarvestHealthMultiplier")
	setFloat(&snap.MatingIntervalMultiplier, srv, "MatingIntervalMultiplier")
	setFloat(&snap.EggHatchSpeedMultiplier, srv, "EggHatchSpeedMultiplier")
	setFloat(&snap.BabyMatureSpeedMultiplier, srv, "BabyMatureSpeedMultiplier")
	setFloat(&snap.DifficultyOffset, srv, "DifficultyOffset")
	setFloat(&snap.NightTimeSpeedScale, srv, "NightTimeSpeedScale")
	setFloat(&snap.PlayerCharacterWaterDrainMultiplier, srv, "PlayerCharacterWaterDrainMultiplier")
	setFloat(&snap.PlayerCharacterFoodDrainMultiplier, srv, "PlayerCharacterFoodDrainMultiplier")
	setFloat(&snap.DinoCharacterFoodDrainMultiplier, srv, "DinoCharacterFoodDrainMultiplier")
	setFloat(&snap.DinoCharacterStaminaDrainMultiplier, srv, "DinoCharacterStaminaDrainMultiplier")
	setFloat(&snap.DinoCharacterHealthRecoveryMultiplier, srv, "DinoCharacterHealthRecoveryMultiplier")
	setFloat(&snap.TamedDinoDamageMultiplier, srv, "TamedDinoDamageMultiplier")
	setFloat(&snap.TamedDinoResistanceMultiplier, srv, "TamedDinoResistanceMultiplier")
	setFloat(&snap.ItemSpoilingTimeMultiplier, srv, "ItemSpoilingTimeMultiplier")
	setFloat(&snap.AutoSavePeriodMinutes, srv, "AutoSavePeriodMinutes")
	setFloat(&snap.FuelConsumptionIntervalMultiplier, srv, "FuelConsumptionIntervalMultiplier")

	session := gus.section("sessionsettings")
	setInt(&snap.GamePort, session, "Port")
	setInt(&snap.QueryPort, session, "QueryPort")
	setInt(&snap.MaxPlayers, session, "MaxPlayers")
	setInt(&snap.MaxPlayers, gus.section("/script/engine.gamesession"), "MaxPlayers")

	setString(&snap.MultiHome, gus.section("multihome"), "MultiHome")

	user := gus.section(
		"/script/shootergame.shootergameusersettings",
		"/script/shootergame.shootergamesettings",
		"/script/shootergame.shootergamemode",
	)
	setBool(&snap.AllowThirdPersonPlayer, user, "bAllowThirdPersonPlayer", "bThirdPersonPlayer")
	setBool(&snap.ShowFloatingDamageText, user, "bShowFloatingDamageText")
	setBool(&snap.AllowFlyerCarryPvE, user, "bAllowFlyerCarryPvE", "bAllowFlyerCarryPVE")
	setBool(&snap.DisableStructurePlacementCollide, user, "bDisableStructurePlacementCollision")

	mode := game.section("/script/shootergame.shootergamemode")
	setBool(&snap.DisableFriendlyFire, mode, "bDisableFriendlyFire")

	// GameUserSettings wins since it doubles as the launch override.
	setString(&snap.Mods, mode, "ActiveMods")
	setString(&snap.Mods, srv, "ActiveMods")

	return snap
}
