package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arkwarden/pkg/sdk"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Manage server profiles",
}

var createName, createPath string

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new profile",
	Run: func(cmd *cobra.Command, args []string) {
		handleCreate(createName, createPath)
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		handleList()
	},
}

var startChoice string
var startRemember bool

var profileStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Start a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleStart(args[0], startChoice, startRemember)
	},
}

var profileStopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.StopProfile(args[0]); err != nil {
			log.Fatalf("Error stopping server: %v", err)
		}
		fmt.Println("Stop command sent.")
	},
}

var profileRestartCmd = &cobra.Command{
	Use:   "restart [id]",
	Short: "Restart a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.RestartProfile(args[0]); err != nil {
			log.Fatalf("Error restarting server: %v", err)
		}
		fmt.Println("Restart command sent.")
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Install or update the server files",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.UpdateServerFiles(args[0]); err != nil {
			log.Fatalf("Error updating server: %v", err)
		}
		fmt.Println("Update started. Follow it with: profile logs", args[0])
	},
}

var profileCheckCmd = &cobra.Command{
	Use:   "check-update [id]",
	Short: "Check whether a newer server build is available",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleCheckUpdate(args[0])
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.DeleteProfile(args[0]); err != nil {
			log.Fatalf("Error deleting profile: %v", err)
		}
		fmt.Println("Profile deleted successfully.")
	},
}

var profileLogsCmd = &cobra.Command{
	Use:   "logs [id]",
	Short: "View server logs and console",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		RunLogs(args[0])
	},
}

var profileSelectCmd = &cobra.Command{
	Use:   "select [id]",
	Short: "Select the profile shown in live stats",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.SelectProfile(args[0]); err != nil {
			log.Fatalf("Error selecting profile: %v", err)
		}
		fmt.Println("Profile selected.")
	},
}

var statsSince time.Duration

var profileStatsCmd = &cobra.Command{
	Use:   "stats [id]",
	Short: "Show recorded player and memory samples",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleStats(args[0], statsSince)
	},
}

func init() {
	profileCreateCmd.Flags().StringVar(&createName, "name", "", "Profile name")
	profileCreateCmd.Flags().StringVar(&createPath, "path", "", "Server install directory")
	profileCreateCmd.MarkFlagRequired("name")

	profileStartCmd.Flags().StringVar(&startChoice, "choice", "", "How to resolve changed config files: save-app-config, load-disk-config or cancel")
	profileStartCmd.Flags().BoolVar(&startRemember, "remember", false, "Always save the app config on start from now on")

	profileStatsCmd.Flags().DurationVar(&statsSince, "since", 24*time.Hour, "How far back to look")

	profileCmd.AddCommand(
		profileCreateCmd,
		profileListCmd,
		profileStartCmd,
		profileStopCmd,
		profileRestartCmd,
		profileUpdateCmd,
		profileCheckCmd,
		profileDeleteCmd,
		profileLogsCmd,
		profileSelectCmd,
		profileStatsCmd,
	)
	RootCmd.AddCommand(profileCmd)
}

func handleCreate(name, path string) {
	p, err := Client.CreateProfile(sdk.CreateProfileRequest{Name: name, Path: path})
	if err != nil {
		log.Fatalf("Error creating profile: %v", err)
	}
	fmt.Printf("Profile %s created (%s) [%s]\n", p.Name, p.ID, p.Status)
}

func handleList() {
	profiles, err := Client.ListProfiles()
	if err != nil {
		log.Fatalf("Error listing profiles: %v", err)
	}

	fmt.Println("Profiles:")
	for _, p := range profiles {
		line := fmt.Sprintf("- %s (%s) [%s] Map: %s Port: %d", p.Name, p.ID, p.Status, p.Config.Map, p.Config.GamePort)
		if p.UpdateAvailable() {
			line += " (update available)"
		}
		fmt.Println(line)
	}
}

func handleStart(id, choice string, remember bool) {
	err := Client.StartProfile(id)
	var drift *sdk.DriftError
	if errors.As(err, &drift) {
		fmt.Printf("The config files on disk differ from the stored config: %s\n", strings.Join(drift.Fields, ", "))
		if choice == "" {
			fmt.Println("Run again with --choice save-app-config, load-disk-config or cancel.")
			if cerr := Client.ResolveStart(id, sdk.ChoiceCancel, false); cerr != nil {
				log.Printf("Error cancelling pending start: %v", cerr)
			}
			return
		}
		err = Client.ResolveStart(id, choice, remember)
		if err == nil && choice == sdk.ChoiceCancel {
			fmt.Println("Start cancelled.")
			return
		}
	}
	if err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
	fmt.Println("Start command sent.")
}

func handleCheckUpdate(id string) {
	check, err := Client.CheckServerUpdate(id)
	if err != nil {
		log.Fatalf("Error checking for updates: %v", err)
	}
	fmt.Printf("Installed build: %s\n", check.CurrentBuildID)
	fmt.Printf("Latest build:    %s\n", check.LatestBuildID)
	if check.UpdateAvailable {
		fmt.Println("\nUpdate available! Install it with: profile update", id)
	} else {
		fmt.Println("\nThe server is up to date.")
	}
}

func handleStats(id string, since time.Duration) {
	samples, err := Client.Stats(id, time.Now().Add(-since))
	if err != nil {
		log.Fatalf("Error reading stats: %v", err)
	}
	if len(samples) == 0 {
		fmt.Println("No samples recorded.")
		return
	}
	for _, s := range samples {
		fmt.Printf("%s  players: %3d  memory: %6.1f MB\n",
			s.Timestamp.Local().Format("2006-01-02 15:04"),
			s.PlayerCount,
			float64(s.MemoryBytes)/1024/1024,
		)
	}
}
