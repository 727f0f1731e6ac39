// Command steamsync mirrors Steam partner sales, wishlist, and follower data
// into PostgreSQL on a daily schedule.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/JonMunkholm/steamsync/internal/core/tables" // Register all tables
)

var rootCmd = &cobra.Command{
	Use:   "steamsync",
	Short: "Sync Steam partner reports into PostgreSQL",
	Long: `steamsync downloads the Steam partner sales and wishlist CSV reports and the
community follower counts for the tracked packages and apps, and stores them in
PostgreSQL.

Process settings come from the environment (a .env file in the working directory
is loaded first). The tracked packages and apps are listed in the entities file
named by SYNC_ENTITIES_FILE.

Example usage:
  steamsync serve                 # Run at startup, then daily, with the status page
  steamsync once                  # Run every task once and exit
  steamsync once --task sales     # Run only the sales task
  steamsync parse report.csv      # Print a saved report as JSON`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
