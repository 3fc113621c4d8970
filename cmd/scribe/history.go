package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tgoodwin/scribe/internal/state"
)

var (
	historyLimit  int
	historyShowID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent script generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := state.OpenDefault()
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer db.Close()

		if historyShowID != "" {
			return showRun(db, historyShowID)
		}

		runs, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded yet")
			return nil
		}

		for _, r := range runs {
			status := color.GreenString("ok")
			if !r.Success {
				status = color.RedString("failed")
			}
			fmt.Printf("%s  %s  %s  %d subtasks  %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				shortID(r.ID), status, r.Metrics.SubTaskCount, truncate(r.Request, 60))
		}
		return nil
	},
}

func showRun(db *state.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	fmt.Printf("Run:     %s\n", run.ID)
	fmt.Printf("Request: %s\n", run.Request)
	fmt.Printf("Success: %v\n", run.Success)
	fmt.Printf("Cost:    ~$%.4f\n", run.Metrics.EstimatedCost)
	for _, w := range run.Warnings {
		color.Yellow("warning: %s", w)
	}
	for _, e := range run.Errors {
		color.Red("error: %s", e)
	}
	if run.Script != "" {
		fmt.Printf("\n%s\n", run.Script)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyShowID, "show", "", "Show one run in full by id")
}
