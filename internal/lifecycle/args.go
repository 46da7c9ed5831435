package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"arkwarden/internal/domain"
)

// BuildLaunchArgs turns a config into the dedicated server command line.
// Session options travel in the map URL, everything else as flags.
func BuildLaunchArgs(cfg domain.ServerConfig) []string {
	url := fmt.Sprintf("%s?SessionName=%s?ServerPVE=%s", cfg.Map, cfg.SessionName, strconv.FormatBool(cfg.ServerPVE))

	multiHome := cfg.MultiHome
	if multiHome == "" {
		multiHome = "0.0.0.0"
	}

	args := []string{
		url,
		fmt.Sprintf("-Port=%d", cfg.GamePort),
		fmt.Sprintf("-QueryPort=%d", cfg.QueryPort),
		fmt.Sprintf("-WinLiveMaxPlayers=%d", cfg.MaxPlayers),
		"-MultiHome=" + multiHome,
		"-ServerPlatform=" + cfg.ServerPlatform,
		"-servergamelog",
	}

	if cfg.ServerPassword != "" {
		args = append(args, "-ServerPassword="+cfg.ServerPassword)
	}
	admin := cfg.AdminPassword
	if admin == "" {
		admin = "password"
	}
	args = append(args, "-ServerAdminPassword="+admin)

	if cfg.RCONEnabled {
		args = append(args, "-RCONEnabled", fmt.Sprintf("-RCONPort=%d", cfg.RCONPort))
		if pw := strings.TrimSpace(cfg.RCONPassword); pw != "" {
			args = append(args, "-RCONServerAdminPassword="+pw)
		}
	}

	if cfg.DisableBattlEye {
		args = append(args, "-NoBattlEye")
	}
	if mods := strings.TrimSpace(cfg.Mods); mods != "" {
		args = append(args, "-mods="+mods)
	}

	if cfg.ClusteringEnabled && cfg.ClusterID != "" && cfg.ClusterDirOverride != "" {
		args = append(args,
			"-ClusterID="+cfg.ClusterID,
			"-ClusterDirOverride="+cfg.ClusterDirOverride,
			"-NoTransferFromFiltering",
		)
	}
	return args
}
