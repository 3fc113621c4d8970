// Package config handles configuration loading and management for Scribe.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for Scribe.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts"`
	Search       SearchConfig       `mapstructure:"search"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier used for decomposition and assembly calls.
	Model string `mapstructure:"model"`
	// UseBedrock routes LLM calls through AWS Bedrock instead of the direct API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS shared config profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// OrchestratorConfig holds pipeline-wide settings.
type OrchestratorConfig struct {
	// MaxConcurrentAgents caps how many specialist searches run at once.
	MaxConcurrentAgents int `mapstructure:"max_concurrent_agents"`
	// MaxSubTasksPerRequest is an advisory cap on decomposition size.
	// Exceeding it logs a warning; the pipeline still proceeds.
	MaxSubTasksPerRequest int `mapstructure:"max_subtasks_per_request"`
	// MaxCommandsPerSubTask caps how many matches one agent keeps.
	MaxCommandsPerSubTask int `mapstructure:"max_commands_per_subtask"`
}

// TimeoutsConfig holds per-phase timeout settings.
type TimeoutsConfig struct {
	Decomposition    time.Duration `mapstructure:"decomposition"`
	SpecialistSearch time.Duration `mapstructure:"specialist_search"`
	Assembly         time.Duration `mapstructure:"assembly"`
}

// SearchConfig holds documentation search service settings.
type SearchConfig struct {
	// BaseURL is the root of the documentation search HTTP service.
	BaseURL string `mapstructure:"base_url"`
	// PageSize is the pageSize query parameter sent per search.
	PageSize int `mapstructure:"page_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
	// File is the log file path; empty means stderr.
	File string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, SCRIBE_*)
// 2. Project config (.scribe.yaml in current directory or parent)
// 3. User config (~/.config/scribe/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("SCRIBE")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("search.base_url", "SCRIBE_SEARCH_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Watch reloads the config file at path whenever it changes and invokes
// onChange with the freshly parsed configuration. Parse failures keep the
// previous configuration and are reported through onError.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reloading config after %s: %w", e.Op, err))
			}
			return
		}
		cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("orchestrator.max_concurrent_agents", 10)
	v.SetDefault("orchestrator.max_subtasks_per_request", 20)
	v.SetDefault("orchestrator.max_commands_per_subtask", 5)

	v.SetDefault("timeouts.decomposition", "60s")
	v.SetDefault("timeouts.specialist_search", "15s")
	v.SetDefault("timeouts.assembly", "90s")

	v.SetDefault("search.base_url", "http://localhost:5100")
	v.SetDefault("search.page_size", 5)

	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.file", "")
}

// getUserConfigDir returns the XDG config directory for Scribe.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "scribe")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "scribe")
	}
	return filepath.Join(home, ".config", "scribe")
}

// findProjectConfig searches for .scribe.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".scribe.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxConcurrentAgents:   10,
			MaxSubTasksPerRequest: 20,
			MaxCommandsPerSubTask: 5,
		},
		Timeouts: TimeoutsConfig{
			Decomposition:    60 * time.Second,
			SpecialistSearch: 15 * time.Second,
			Assembly:         90 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:  "http://localhost:5100",
			PageSize: 5,
		},
		Logging: LoggingConfig{
			Verbose: false,
			File:    "",
		},
	}
}
