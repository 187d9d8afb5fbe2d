package units

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/engine"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

var _ ports.Unit = (*PalmaresUnit)(nil)

// PalmaresUnit builds the class leaderboard for one period group and
// stores it under domain.KeyPalmares.
// The unit is stateless and thread-safe for concurrent execution.
type PalmaresUnit struct {
	// name is the unique identifier for this unit instance.
	name string
	// config contains the validated configuration parameters.
	config PalmaresConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// PalmaresConfig defines the configuration parameters for the PalmaresUnit.
type PalmaresConfig struct {
	// Group is the period group the students are ranked on, for example
	// "SEM1" or "ANNUAL".
	Group domain.PeriodGroup `yaml:"group" json:"group" validate:"required,periodgroup"`

	// ExcludeAbandoned leaves students who abandoned out of the list.
	// The class size reported in the statistics still counts them.
	ExcludeAbandoned bool `yaml:"exclude_abandoned" json:"exclude_abandoned"`
}

// NewPalmaresUnit creates a new PalmaresUnit with the specified configuration.
// Returns an error if configuration validation fails.
func NewPalmaresUnit(name string, config PalmaresConfig) (*PalmaresUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &PalmaresUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("palmares-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (pu *PalmaresUnit) Name() string { return pu.name }

// Execute ranks the students of the snapshot on the configured group,
// attaching mentions, decisions, and class statistics.
func (pu *PalmaresUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := pu.tracer.Start(ctx, "PalmaresUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "palmares"),
			attribute.String("unit.id", pu.name),
			attribute.String("config.group", string(pu.config.Group)),
			attribute.Bool("config.exclude_abandoned", pu.config.ExcludeAbandoned),
		),
	)
	defer span.End()

	snap, err := snapshotFrom(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	p, err := engine.BuildPalmares(snap, engine.PalmaresOptions{
		Group:            pu.config.Group,
		ExcludeAbandoned: pu.config.ExcludeAbandoned,
	})
	if err != nil {
		err = fmt.Errorf("building palmares for %s: %w", pu.config.Group, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	span.SetAttributes(
		attribute.String("class.id", string(snap.Class().ID)),
		attribute.Int("palmares.total", p.Stats.Total),
		attribute.Int("palmares.passed", p.Stats.Passed),
		attribute.Int("palmares.failed", p.Stats.Failed),
		attribute.Int("palmares.unranked", p.Stats.Unranked),
	)

	return domain.With(state, domain.KeyPalmares, p), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (pu *PalmaresUnit) Validate() error {
	if err := validate.Struct(pu.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and returns
// a new PalmaresUnit instance.
// Returns a new unit instance or an error if YAML parsing fails or validation fails.
func (pu *PalmaresUnit) UnmarshalParameters(params yaml.Node) (*PalmaresUnit, error) {
	config := DefaultPalmaresConfig()
	if params.Kind != 0 {
		if err := decodeStrict(params, &config); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	return &PalmaresUnit{
		name:   pu.name,
		config: config,
		tracer: pu.tracer,
	}, nil
}

// DefaultPalmaresConfig returns a PalmaresConfig ranking the whole year
// with every student listed.
func DefaultPalmaresConfig() PalmaresConfig {
	return PalmaresConfig{
		Group:            domain.GroupAnnual,
		ExcludeAbandoned: false,
	}
}

// CreatePalmaresUnit is a factory function that creates a PalmaresUnit
// from a configuration map, following the UnitFactory pattern.
func CreatePalmaresUnit(id string, config map[string]any) (*PalmaresUnit, error) {
	cfg := DefaultPalmaresConfig()

	if group, ok := config["group"].(string); ok {
		cfg.Group = groupParam(group)
	}

	if exclude, ok := config["exclude_abandoned"].(bool); ok {
		cfg.ExcludeAbandoned = exclude
	}

	return NewPalmaresUnit(id, cfg)
}
