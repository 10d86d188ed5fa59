package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clargs/internal/config"
)

var (
	logLevel   string
	configPath string
	dataDir    string
	logger     *slog.Logger
	cfg        = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "clargs",
	Short: "Extract kernel argument metadata from OpenCL sources",
	Long: `clargs parses an OpenCL C source file, finds its single kernel and
reports each argument's memory space, base type, vector width and the host
numeric type used to size buffers for it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		if err := applyConfig(cmd, cfg); err != nil {
			return err
		}

		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: clargs.yaml found in the current or a parent directory)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for reports and history")
}

// loadConfig reads --config, or the nearest clargs.yaml, or returns the
// defaults when there is none.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		found, err := config.Find(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return config.Default(), nil
		}
		path = found
	}
	return config.Load(path)
}

// applyConfig copies config values into the flags the user did not set.
func applyConfig(cmd *cobra.Command, c *config.Config) error {
	values := map[string]string{
		"log-level": c.LogLevel,
		"data-dir":  c.DataDir,
		"format":    c.Format,
		"addr":      c.Addr,
		"save":      strconv.FormatBool(c.SaveReports),
	}
	for name, value := range values {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("failed to apply config value for --%s: %w", name, err)
		}
	}
	return nil
}
