package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dpllt/pkg/dpllt/config"
	"dpllt/pkg/dpllt/logging"
	"dpllt/pkg/dpllt/metrics"
)

// loadOptions builds Options from the --config flag (falling back to
// Default) and then applies --verbosity as an override, matching the
// persistent-flag precedence cobra CLIs in this pack use.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	path, _ := cmd.Flags().GetString("config")
	opts := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Options{}, err
		}
		opts = loaded
	}
	if v, _ := cmd.Flags().GetInt("verbosity"); cmd.Flags().Changed("verbosity") {
		opts.Verbosity = v
	}
	return opts, nil
}

// newLogger builds a *zap.Logger from the resolved options' verbosity,
// tagged with a fresh run id so separate invocations' log lines can be
// told apart in aggregated output.
func newLogger(opts config.Options) (*zap.Logger, error) {
	log, err := logging.NewFromVerbosity(opts.Verbosity)
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("run_id", uuid.NewString())), nil
}

// newMonitor builds a MetricsMonitor. Registration against a Prometheus
// registry is left to a future metrics-exporter subcommand; the CLI's
// solve/explain/round-trip paths only need the counters themselves
// wired into the kernel and definition engine, not exposed over HTTP.
func newMonitor() *metrics.MetricsMonitor {
	return metrics.NewMetricsMonitor()
}
