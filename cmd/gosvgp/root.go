package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lucasmaystre/gosvgp/base"
	"github.com/lucasmaystre/gosvgp/config"
)

var (
	// Global flags
	cfgFile     string
	logLevel    string
	showMetrics bool
)

var rootCmd = &cobra.Command{
	Use:   "gosvgp",
	Short: "Sparse GP conditionals and kernel expectations",
	Long: `gosvgp evaluates the closed-form building blocks of sparse variational
Gaussian processes: conditionals at new inputs given inducing values, and
expectations of kernel and mean function terms under Gaussian inputs.

Problems are read from YAML files; numerical settings (jitter, quadrature)
from an optional settings file.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "settings file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides settings)")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print dispatch counters to stderr when done")
}

func loadSettings() (config.Settings, error) {
	settings := config.Default()
	if cfgFile != "" {
		var err error
		if settings, err = config.Load(cfgFile); err != nil {
			return config.Settings{}, err
		}
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
		if err := settings.Validate(); err != nil {
			return config.Settings{}, err
		}
	}
	return settings, nil
}

// newEngine builds the engine for one command run, logging to stderr.
func newEngine(cmd *cobra.Command) (*base.Engine, *prometheus.Registry, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: settings.Level()}))
	reg := prometheus.NewRegistry()
	e, err := base.NewEngine(settings, logger, reg)
	if err != nil {
		return nil, nil, err
	}
	return e, reg, nil
}

// writeMetrics prints every counter gathered from reg, one per line.
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g",
				family.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func finish(cmd *cobra.Command, reg *prometheus.Registry) error {
	if !showMetrics {
		return nil
	}
	return writeMetrics(cmd.ErrOrStderr(), reg)
}
