package cmd

import (
	"arkwarden/internal/cli/ui"
)

func RunDashboard() {
	for {
		profileID := ui.RunDashboard(Client)
		if profileID == "" {
			return
		}
		if back := ui.RunLogs(Client, profileID); !back {
			return
		}
	}
}

func RunLogs(profileID string) {
	ui.RunLogs(Client, profileID)
}
