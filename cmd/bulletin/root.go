package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/infrastructure/middleware"
	"github.com/cloudecole/go-bulletin/internal/application"
	"github.com/cloudecole/go-bulletin/internal/domain"
)

// errUnsupportedOutput is returned for an unknown --format value.
var errUnsupportedOutput = errors.New("unsupported output format")

// cliOptions holds the persistent flags shared by every command.
type cliOptions struct {
	logLevel string
	format   string
	metrics  bool

	stdout io.Writer
	stderr io.Writer

	logger   *slog.Logger
	registry *prometheus.Registry
	recorder *middleware.PrometheusMetrics
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "bulletin",
		Short:         "Compute report card results for class snapshots",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.dumpMetrics()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flags.StringVarP(&opts.format, "format", "o", "json", "output format: json or yaml")
	flags.BoolVar(&opts.metrics, "metrics", false, "print collected Prometheus metrics to stderr on exit")

	root.AddCommand(
		newPalmaresCmd(opts),
		newRanksCmd(opts),
		newGroupsCmd(opts),
		newRepechageCmd(opts),
		newReportCmd(opts),
		newBatchCmd(opts),
	)

	return root
}

// setup builds the logger and the metrics registry from the flags.
func (o *cliOptions) setup() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	switch strings.ToLower(o.format) {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: %q", errUnsupportedOutput, o.format)
	}

	o.logger = slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: level}))
	o.registry = prometheus.NewRegistry()
	o.recorder = middleware.NewPrometheusMetrics(o.registry)
	return nil
}

// unitRegistry returns a registry whose units are traced, timed, and
// logged.
func (o *cliOptions) unitRegistry() *application.DefaultUnitRegistry {
	observer := middleware.NewOTelUnitObserver(o.recorder, o.logger)
	return application.NewDefaultUnitRegistry(middleware.Monitor(observer))
}

// loadSnapshot reads one snapshot file.
func (o *cliOptions) loadSnapshot(path string) (*domain.Snapshot, error) {
	if path == "" {
		return nil, errors.New("--snapshot is required")
	}
	return application.NewSnapshotLoader(o.logger).LoadFile(path)
}

// runUnit creates one unit from the registry and runs it on snap.
// prepare, when set, adds inputs to the state before the run.
func (o *cliOptions) runUnit(
	ctx context.Context,
	unitType string,
	params map[string]any,
	snap *domain.Snapshot,
	prepare func(domain.State) domain.State,
) (domain.State, error) {
	unit, err := o.unitRegistry().CreateUnit(unitType, unitType, params)
	if err != nil {
		return domain.State{}, err
	}

	state := domain.With(domain.NewState(), domain.KeySnapshot, snap).
		WithExecutionContext(domain.ExecutionContext{
			ConfigName:  "cli",
			ClassID:     snap.Class().ID,
			ExecutionID: uuid.NewString(),
		})
	if prepare != nil {
		state = prepare(state)
	}

	return application.NewUnitAdapter(unit, unitType).Execute(ctx, state)
}

// computed returns the value a unit run by runUnit stored under key.
func computed[T any](state domain.State, unitType string, key domain.Key[T]) (T, error) {
	v, ok := domain.Get(state, key)
	if !ok {
		return v, fmt.Errorf("%s unit did not compute %s", unitType, key.Name())
	}
	return v, nil
}

// write encodes v on stdout in the selected format.
func (o *cliOptions) write(v any) error {
	switch strings.ToLower(o.format) {
	case "yaml":
		enc := yaml.NewEncoder(o.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML output: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
}

// dumpMetrics writes the gathered metrics in the Prometheus text format
// when --metrics is set.
func (o *cliOptions) dumpMetrics() error {
	if !o.metrics || o.registry == nil {
		return nil
	}
	families, err := o.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(o.stderr, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
