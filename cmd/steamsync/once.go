package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/steamsync/internal/core"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run the sync tasks once and print the report",
	Long: `Run the sync tasks once, print the run report as JSON, and exit.
The exit status is 1 when any task failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetStringSlice("task")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		tasks, err := selectTasks(a.service.Tasks(), only)
		if err != nil {
			return err
		}

		report, _ := core.NewScheduler(tasks, core.SchedulerConfig{}).RunNow(ctx, core.TriggerManual)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if report.Failed() {
			for _, t := range report.Tasks {
				if t.Failed() {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (Code: %s)\n", t.Name, t.Err, t.Code)
				}
			}
			return fmt.Errorf("run %s failed", report.RunID)
		}
		return nil
	},
}

// selectTasks keeps the named tasks in run order. No names keeps all.
func selectTasks(all []core.Task, names []string) ([]core.Task, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []core.Task
	for _, t := range all {
		if want[t.Name] {
			out = append(out, t)
			delete(want, t.Name)
		}
	}
	for _, n := range names {
		if want[n] {
			return nil, fmt.Errorf("unknown task %q (want %s, %s or %s)", n, core.TaskSales, core.TaskWishlists, core.TaskFollowers)
		}
	}
	return out, nil
}

func init() {
	onceCmd.Flags().StringSlice("task", nil, "Run only these tasks (sales, wishlists, followers)")
	rootCmd.AddCommand(onceCmd)
}
