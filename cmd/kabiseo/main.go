package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kabiseo/internal/config"
	"kabiseo/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	serverURL  string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kabiseo",
	Short: "kabiseo - reviewer assistant chat in the terminal",
	Long: `kabiseo connects to the reviewer assistant chat server and opens the
conversation for the logged-in reviewer.

Run without arguments to start the chat. Use 'kabiseo login' first to set
who you are.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Runtime(configDir())); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		// The chat owns the terminal; console logging would tear the screen.
		if isChat(cmd) {
			logger = zap.NewNop()
			return nil
		}
		var err error
		logger, err = newConsoleLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the chat
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $KABISEO_CONFIG or user config dir)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Chat server url, overrides server.url")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolvedConfigPath is --config, or the default location.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// configDir holds the config file, the identity file and the logs.
func configDir() string {
	return filepath.Dir(resolvedConfigPath())
}

func loadConfig() error {
	loaded, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}
	if serverURL != "" {
		loaded.Server.URL = serverURL
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = loaded
	return nil
}

// isChat reports whether cmd opens the chat screen: the root command or
// the chat subcommand.
func isChat(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "chat"
}

func newConsoleLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}
