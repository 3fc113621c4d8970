package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tgoodwin/scribe/internal/config"
	"github.com/tgoodwin/scribe/internal/docsearch"
	"github.com/tgoodwin/scribe/internal/llm"
	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/internal/orchestrator"
	"github.com/tgoodwin/scribe/internal/state"
)

var (
	runOutputFile string
	runNoSave     bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Generate a script for a natural-language request",
	Long: `Generate a script by decomposing the request into subtasks, searching
command documentation for each subtask in parallel, and assembling the
results into one script.

The script is printed to stdout; diagnostics go to the log file. Each run
is recorded in the local history database unless --no-save is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		request := strings.Join(args, " ")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if rootVerbose {
			cfg.Logging.Verbose = true
		}

		log := logging.Get(cfg.Logging.Verbose)
		defer log.Close()

		client, err := llm.NewClient(llm.ClientConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			return err
		}

		searcher := docsearch.NewClient(cfg.Search.BaseURL, log)

		o := orchestrator.New(cfg, client, searcher, log,
			orchestrator.WithTokenTracker(client.Tracker()))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result := o.ProcessRequest(ctx, request)

		if !runNoSave {
			if db, dbErr := state.OpenDefault(); dbErr == nil {
				if saveErr := db.SaveRun(result); saveErr != nil {
					log.Errorf("save run: %v", saveErr)
				}
				db.Close()
			} else {
				log.Errorf("open history db: %v", dbErr)
			}
		}

		for _, w := range result.Warnings {
			color.Yellow("warning: %s", w)
		}

		if !result.Success {
			for _, e := range result.Errors {
				color.Red("error: %s", e)
			}
			return fmt.Errorf("script generation failed")
		}

		if runOutputFile != "" {
			if err := os.WriteFile(runOutputFile, []byte(result.Script+"\n"), 0644); err != nil {
				return fmt.Errorf("write script to %s: %w", runOutputFile, err)
			}
			color.Green("script written to %s", runOutputFile)
		} else {
			fmt.Println(result.Script)
		}

		m := result.Metrics
		color.Cyan("%d subtasks, %d commands, %.0fms total, ~$%.4f",
			m.SubTaskCount, m.TotalCommandsFound,
			float64(m.TotalTime.Milliseconds()), m.EstimatedCost)

		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOutputFile, "output", "o", "", "Write the script to a file instead of stdout")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Skip recording the run in history")
}
