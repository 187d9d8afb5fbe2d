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

var _ ports.Unit = (*AggregationUnit)(nil)

// AggregationUnit computes, for every student of the class snapshot, the
// score of each period group under the configured policy and stores the
// result under domain.KeyAggregates.
// The unit is stateless and thread-safe for concurrent execution.
type AggregationUnit struct {
	// name is the unique identifier for this unit instance.
	name string
	// config contains the validated configuration parameters.
	config AggregationConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// AggregationConfig defines the configuration parameters for the
// AggregationUnit.
type AggregationConfig struct {
	// Policy decides how a missing grade propagates: "strict" leaves the
	// score absent, "lenient" counts the grade as 0.
	Policy engine.Policy `yaml:"policy" json:"policy" validate:"required,policy"`
}

// NewAggregationUnit creates a new AggregationUnit with the specified configuration.
// Returns an error if configuration validation fails.
func NewAggregationUnit(name string, config AggregationConfig) (*AggregationUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &AggregationUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("aggregation-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (au *AggregationUnit) Name() string { return au.name }

// Execute aggregates the grades of the snapshot found in state.
func (au *AggregationUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := au.tracer.Start(ctx, "AggregationUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "aggregation"),
			attribute.String("unit.id", au.name),
			attribute.String("config.policy", string(au.config.Policy)),
		),
	)
	defer span.End()

	snap, err := snapshotFrom(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	aggs := engine.NewAggregator(snap).Aggregate(au.config.Policy)

	span.SetAttributes(
		attribute.String("class.id", string(snap.Class().ID)),
		attribute.Int("class.students", len(aggs)),
	)

	return domain.With(state, domain.KeyAggregates, aggs), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (au *AggregationUnit) Validate() error {
	if err := validate.Struct(au.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and returns
// a new AggregationUnit instance. Fields missing from params keep their
// default value; unknown fields are rejected.
func (au *AggregationUnit) UnmarshalParameters(params yaml.Node) (*AggregationUnit, error) {
	config := DefaultAggregationConfig()
	if params.Kind != 0 {
		if err := decodeStrict(params, &config); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	return &AggregationUnit{
		name:   au.name,
		config: config,
		tracer: au.tracer,
	}, nil
}

// DefaultAggregationConfig returns an AggregationConfig using the strict
// policy, which never invents points for ungraded periods.
func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{Policy: engine.PolicyStrict}
}

// CreateAggregationUnit is a factory function that creates an
// AggregationUnit from a configuration map, following the UnitFactory
// pattern.
func CreateAggregationUnit(id string, config map[string]any) (*AggregationUnit, error) {
	cfg := DefaultAggregationConfig()

	if policy, ok := config["policy"].(string); ok {
		cfg.Policy = policyParam(policy)
	}

	return NewAggregationUnit(id, cfg)
}
