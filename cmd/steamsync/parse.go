package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/steamsync/internal/report"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Decode a saved partner report and print it as JSON",
	Long: `Decode a partner CSV report saved to disk the way a sync would: the first two
non-blank lines are skipped, the third is the header. Prints the header and the
records as JSON. Needs no database or configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		header, records, err := report.Parse(string(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Header  []string        `json:"header"`
			Records []report.Record `json:"records"`
		}{header, records})
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
