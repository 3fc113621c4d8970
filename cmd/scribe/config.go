package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgoodwin/scribe/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		fmt.Printf("user config:    %s\n", config.GetUserConfigPath())
		if project := config.GetProjectConfigPath(); project != "" {
			fmt.Printf("project config: %s\n", project)
		}
		fmt.Println()

		apiKey := "(not set)"
		if cfg.Anthropic.APIKey != "" {
			apiKey = "(set)"
		}
		fmt.Printf("anthropic.api_key:                    %s\n", apiKey)
		fmt.Printf("anthropic.model:                      %s\n", orDefault(cfg.Anthropic.Model, "(sdk default)"))
		fmt.Printf("anthropic.use_bedrock:                %v\n", cfg.Anthropic.UseBedrock)
		fmt.Printf("orchestrator.max_concurrent_agents:   %d\n", cfg.Orchestrator.MaxConcurrentAgents)
		fmt.Printf("orchestrator.max_subtasks_per_request: %d\n", cfg.Orchestrator.MaxSubTasksPerRequest)
		fmt.Printf("orchestrator.max_commands_per_subtask: %d\n", cfg.Orchestrator.MaxCommandsPerSubTask)
		fmt.Printf("timeouts.decomposition:               %s\n", cfg.Timeouts.Decomposition)
		fmt.Printf("timeouts.specialist_search:           %s\n", cfg.Timeouts.SpecialistSearch)
		fmt.Printf("timeouts.assembly:                    %s\n", cfg.Timeouts.Assembly)
		fmt.Printf("search.base_url:                      %s\n", cfg.Search.BaseURL)
		fmt.Printf("search.page_size:                     %d\n", cfg.Search.PageSize)
		fmt.Printf("logging.verbose:                      %v\n", cfg.Logging.Verbose)

		return nil
	},
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
