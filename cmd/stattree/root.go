package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/udisondev/statustree/internal/config"
)

const (
	DefaultConfigPath = "config/stattree.yaml"
	ConfigPathEnv     = "STATTREE_CONFIG"
)

// app carries global flags and the loaded config to subcommands.
type app struct {
	configPath string
	logLevel   string
	cfg        config.StatServer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "stattree",
		Short: "Stat tree definition tool and evaluation service",
		Long: `stattree works with stat tree definitions: flat YAML records describing
a tree of arithmetic operator nodes and literal value leaves.

It can validate definitions, evaluate them with ad-hoc writes, copy them
to and from PostgreSQL, and serve Prometheus metrics together with
read-only tree endpoints.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		fmt.Sprintf("config file path (default $%s or %s)", ConfigPathEnv, DefaultConfigPath))
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level: debug, info, warn, error")

	cmd.AddCommand(
		newValidateCmd(a),
		newEvalCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newServeCmd(a),
	)
	return cmd
}

// setup loads the config and installs the default logger.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = DefaultConfigPath
		if p := os.Getenv(ConfigPathEnv); p != "" {
			path = p
		}
	}

	cfg, err := config.LoadStatServer(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Debug("config loaded", "path", path, "log_level", cfg.LogLevel)
	return nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseAssignment splits "key=number".
func parseAssignment(s string) (string, float64, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", 0, fmt.Errorf("invalid assignment %q: want key=number", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid number in %q: %w", s, err)
	}
	return key, v, nil
}
