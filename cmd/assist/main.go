// Package main is the entry point of the clinic assistant: an interactive
// chat panel plus a few scripted commands against the same service.
package main

import (
	"fmt"
	"os"
	"time"

	"ambuassist/internal/assistant"
	"ambuassist/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	scope      string
	baseURL    string
	timeout    time.Duration

	// Logger for the scripted commands; the interactive panel logs to files.
	logger *zap.Logger
)

// rootCmd launches the interactive panel.
var rootCmd = &cobra.Command{
	Use:   "assist",
	Short: "Assistente IA dell'ambulatorio",
	Long: `assist is the conversational assistant of the clinic.

It creates patients, books appointments, copies records and reads patient
lists from photos. Every request is scoped to one ambulatorio.

Run without arguments to open the interactive chat panel.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive panel has its own file logging.
		if cmd == cmd.Root() {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .ambuassist/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&scope, "scope", "a", "", "Ambulatorio the requests are scoped to (or AMBUASSIST_SCOPE)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Assistant service URL, ending in /api (or AMBUASSIST_BASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (default from config)")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(extractCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies the command-line overrides and
// validates the result. It also returns the path it read.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if scope != "" {
		cfg.Scope = scope
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.API.Timeout = timeout.String()
	}
}

func newClient(cfg *config.Config) *assistant.Client {
	return assistant.New(cfg.API.BaseURL, cfg.Scope, cfg.API.Token, cfg.GetAPITimeout())
}
