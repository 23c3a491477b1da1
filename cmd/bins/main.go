package main

import (
	"fmt"
	"os"
	"time"

	"binops/internal/config"
	"binops/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	baseURL    string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// annotationSkipConfig marks commands that run without loading the config file.
const annotationSkipConfig = "bins/skip-config"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bins",
	Short: "bins - dumpster fleet console",
	Long: `bins manages a municipal dumpster fleet through the dumpster service API.

Log in once, then list dumpsters with their fill levels, register new ones,
report fill, look at usage history and route dumpsters to recycling plants.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// the dashboard builds its own file-only logger
		if !cmd.HasParent() {
			return nil
		}
		// config init has to work when the existing file is broken
		if cmd.Annotations[annotationSkipConfig] != "" {
			var err error
			logger, err = logging.New(logging.Options{Verbose: verbose})
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			File:    cfg.Logging.File,
			Verbose: verbose,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.bins/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Dumpster service URL (overrides config and BINS_BASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	// Add commands to root
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(dumpstersCmd)
	rootCmd.AddCommand(plantsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the --base-url flag.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
