package cmd

import (
	"fmt"
	"log"

	"arkwarden/pkg/sdk"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications",
	Run: func(cmd *cobra.Command, args []string) {
		handleListNotifications()
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark all notifications as read",
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.MarkNotificationsRead(); err != nil {
			log.Fatalf("Error marking notifications: %v", err)
		}
		fmt.Println("Notifications marked as read.")
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all notifications",
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.ClearNotifications(); err != nil {
			log.Fatalf("Error clearing notifications: %v", err)
		}
		fmt.Println("Notifications cleared.")
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show application settings",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := Client.GetSettings()
		if err != nil {
			log.Fatalf("Error getting settings: %v", err)
		}
		printSettings(s)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change application settings",
	Run: func(cmd *cobra.Command, args []string) {
		var req sdk.SettingsRequest
		flags := cmd.Flags()
		if flags.Changed("notifications") {
			v, _ := flags.GetBool("notifications")
			req.NotificationsEnabled = &v
		}
		if flags.Changed("auto-save") {
			v, _ := flags.GetBool("auto-save")
			req.AutoSaveOnStart = &v
		}
		if flags.Changed("start-with-system") {
			v, _ := flags.GetBool("start-with-system")
			req.StartWithSystem = &v
		}
		if req == (sdk.SettingsRequest{}) {
			log.Fatal("Error: nothing to change, pass at least one flag")
		}
		s, err := Client.UpdateSettings(req)
		if err != nil {
			log.Fatalf("Error updating settings: %v", err)
		}
		fmt.Println("Settings updated successfully!")
		printSettings(s)
	},
}

var updateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Check for arkwarden updates",
	Run: func(cmd *cobra.Command, args []string) {
		handleCheckUpdates()
	},
}

func init() {
	notificationsCmd.AddCommand(notificationsReadCmd, notificationsClearCmd)

	settingsSetCmd.Flags().Bool("notifications", true, "Show desktop notifications")
	settingsSetCmd.Flags().Bool("auto-save", false, "Save the app config on start without asking")
	settingsSetCmd.Flags().Bool("start-with-system", false, "Launch the daemon at login")
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)

	RootCmd.AddCommand(notificationsCmd, settingsCmd, updateCmd)
}

func handleListNotifications() {
	list, err := Client.ListNotifications()
	if err != nil {
		log.Fatalf("Error listing notifications: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("No notifications.")
		return
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Printf("%s %s  %-16s %s\n", mark, n.CreatedAt.Local().Format("Jan 2 15:04"), n.ProfileName, n.Message)
	}
}

func printSettings(s *sdk.AppSettings) {
	fmt.Println("\n--- SETTINGS ---")
	fmt.Printf("Desktop notifications: %t\n", s.NotificationsEnabled)
	fmt.Printf("Auto-save on start:    %t\n", s.AutoSaveOnStart)
	fmt.Printf("Start with system:     %t\n", s.StartWithSystem)
}

func handleCheckUpdates() {
	info, err := Client.CheckUpdates()
	if err != nil {
		log.Fatalf("Error checking updates: %v", err)
	}

	fmt.Println("\n--- UPDATE CHECK ---")
	fmt.Printf("Current version: %s\n", info.CurrentVersion)
	fmt.Printf("Latest version:  %s\n", info.LatestVersion)

	if info.UpdateAvailable {
		fmt.Println("\nUpdate available!")
		fmt.Printf("Download it here: %s\n", info.ReleaseURL)
	} else {
		fmt.Println("\nYou are up to date.")
	}
}
