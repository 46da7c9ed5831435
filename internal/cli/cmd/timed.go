package cmd

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"arkwarden/pkg/sdk"

	"github.com/spf13/cobra"
)

var timedCmd = &cobra.Command{
	Use:   "timed",
	Short: "Schedule announced shutdowns and restarts",
}

var timedMinutes int
var timedReason string

var timedShutdownCmd = &cobra.Command{
	Use:   "shutdown [id]",
	Short: "Shut a server down after a countdown",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		op, err := Client.ScheduleShutdown(args[0], timedMinutes, timedReason)
		printTimed(op, err)
	},
}

var timedRestartCmd = &cobra.Command{
	Use:   "restart [id]",
	Short: "Restart a server after a countdown",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		op, err := Client.ScheduleRestart(args[0], timedMinutes, timedReason)
		printTimed(op, err)
	},
}

var timedShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the pending timed operation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		op, err := Client.ActiveTimed(args[0])
		var apiErr *sdk.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			fmt.Println("No timed operation pending.")
			return
		}
		if err != nil {
			log.Fatalf("Error reading timed operation: %v", err)
		}
		printTimed(op, nil)
	},
}

var timedCancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel the pending timed operation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.CancelTimed(args[0]); err != nil {
			log.Fatalf("Error cancelling timed operation: %v", err)
		}
		fmt.Println("Timed operation cancelled.")
	},
}

var commandCmd = &cobra.Command{
	Use:   "command [id] [command...]",
	Short: "Send a console command over RCON",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		entry, err := Client.SendCommand(args[0], strings.Join(args[1:], " "))
		if err != nil {
			log.Fatalf("Error sending command: %v", err)
		}
		if entry.Response != "" {
			fmt.Println(entry.Response)
		} else {
			fmt.Println("Command sent.")
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show recently sent console commands",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := Client.CommandLog(args[0])
		if err != nil {
			log.Fatalf("Error reading command log: %v", err)
		}
		for _, e := range entries {
			result := e.Response
			if e.Error != "" {
				result = "error: " + e.Error
			}
			fmt.Printf("%s  %-24s %s\n", e.Time.Local().Format("15:04:05"), e.Command, result)
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{timedShutdownCmd, timedRestartCmd} {
		c.Flags().IntVar(&timedMinutes, "minutes", 5, "Countdown length in minutes")
		c.Flags().StringVar(&timedReason, "reason", "", "Reason announced to players")
	}
	timedCmd.AddCommand(timedShutdownCmd, timedRestartCmd, timedShowCmd, timedCancelCmd)

	RootCmd.AddCommand(timedCmd, commandCmd, historyCmd)
}

func printTimed(op *sdk.TimedOperation, err error) {
	if err != nil {
		log.Fatalf("Error scheduling operation: %v", err)
	}
	fmt.Printf("Timed %s at %s", op.Kind, op.EndsAt.Local().Format("15:04:05"))
	if op.Reason != "" {
		fmt.Printf(" (%s)", op.Reason)
	}
	fmt.Println()
}
