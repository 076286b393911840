package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/premiumscan/config"
)

var (
	configPath string
	verbose    bool
	logFormat  string

	// cfg lo carga PersistentPreRunE antes de cualquier subcomando.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "premiumscan",
	Short:         "Options premium scanner: IV vs HV mispricing, scoring and volatility analytics",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}
		setupLogger(loaded.Log)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "set log level to debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "format", "", "log format: text|json (overrides config)")

	rootCmd.AddCommand(scanCmd, priceCmd, ivCmd, volCmd, coneCmd, chainCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("premiumscan failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig carga el YAML. Si el archivo por defecto no existe se usan los defaults;
// un --config explícito que no existe es un error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	loaded, err := config.Load(path)
	if err == nil {
		return loaded, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
		return config.Default(), nil
	}
	return nil, err
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
