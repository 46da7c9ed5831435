package runner

import (
	"os"
	"path/filepath"
	"regexp"
)

const (
	readyLine = "Server has completed startup and is now advertising for join."
	appDir    = "ARK Survival Ascended Dedicated Server"
)

var playerEventRe = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}_\d{2}\.\d{2}\.\d{2}:\s(?P<name>.*?)\s+\[UniqueNetId:(?P<id>[a-fA-F0-9]+)[^\]]*\]\s+(?P<action>joined|left)\s+this\s+ARK!`)

func ExecutablePath(installPath string) string {
	return filepath.Join(installPath, "ShooterGame", "Binaries", "Win64", "ArkAscendedServer.exe")
}

// LogPath prefers the steamcmd library layout when the game was installed
// through the bundled steamcmd.
func LogPath(installPath string) string {
	nested := filepath.Join(installPath, "steamcmd", "steamapps", "common", appDir, "ShooterGame")
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		return filepath.Join(nested, "Saved", "Logs", "ShooterGame.log")
	}
	return filepath.Join(installPath, "ShooterGame", "Saved", "Logs", "ShooterGame.log")
}

type PlayerEvent struct {
	Name   string
	ID     string
	Joined bool
}

func ParsePlayerEvent(line string) (PlayerEvent, bool) {
	m := playerEventRe.FindStringSubmatch(line)
	if m == nil {
		return PlayerEvent{}, false
	}
	return PlayerEvent{
		Name:   m[playerEventRe.SubexpIndex("name")],
		ID:     m[playerEventRe.SubexpIndex("id")],
		Joined: m[playerEventRe.SubexpIndex("action")] == "joined",
	}, true
}
