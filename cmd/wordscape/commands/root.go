package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wordscape/wordscape/cmd/wordscape/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wordscape",
	Short: "Voice conversation client with a 3D vocabulary map",
	Long: `wordscape - talk with an AI and watch your vocabulary grow in 3D.

A push-to-talk voice session runs over a realtime peer connection; every
word the assistant says is captured, positioned in 3D space by the
embedding service, and persisted to your local vocabulary store.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/wordscape/
  Linux:   ~/.config/wordscape/
  Windows: %AppData%/wordscape/

Examples:
  # Configure once
  wordscape config set api_key YOUR_KEY

  # Talk, holding Enter-to-Enter as push-to-talk
  wordscape talk

  # Look up word positions directly
  wordscape embed ocean mountain river

  # Inspect what you have learned
  wordscape vocab list`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
