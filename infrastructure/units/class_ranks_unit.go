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

var _ ports.Unit = (*ClassRanksUnit)(nil)

// ClassRanksUnit builds the rank table of the whole class, one
// competition rank per student and column, and stores it under
// domain.KeyClassRanks.
type ClassRanksUnit struct {
	name   string
	config ClassRanksConfig
	tracer trace.Tracer
}

// ClassRanksConfig defines the configuration parameters for the
// ClassRanksUnit.
type ClassRanksConfig struct {
	// Policy is the aggregation policy the table is computed on.
	// The lenient policy ranks every student.
	Policy engine.Policy `yaml:"policy" json:"policy" validate:"required,policy"`
}

// NewClassRanksUnit creates a new ClassRanksUnit with the specified configuration.
func NewClassRanksUnit(name string, config ClassRanksConfig) (*ClassRanksUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &ClassRanksUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("class-ranks-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (cu *ClassRanksUnit) Name() string { return cu.name }

// Execute ranks every student of the snapshot in every column.
func (cu *ClassRanksUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := cu.tracer.Start(ctx, "ClassRanksUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "class_ranks"),
			attribute.String("unit.id", cu.name),
			attribute.String("config.policy", string(cu.config.Policy)),
		),
	)
	defer span.End()

	snap, err := snapshotFrom(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	ranks := engine.ClassRanks(snap, cu.config.Policy)
	span.SetAttributes(
		attribute.String("class.id", string(snap.Class().ID)),
		attribute.Int("class.students", ranks.TotalStudents),
	)

	return domain.With(state, domain.KeyClassRanks, ranks), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (cu *ClassRanksUnit) Validate() error {
	if err := validate.Struct(cu.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and returns
// a new ClassRanksUnit instance.
func (cu *ClassRanksUnit) UnmarshalParameters(params yaml.Node) (*ClassRanksUnit, error) {
	config := DefaultClassRanksConfig()
	if params.Kind != 0 {
		if err := decodeStrict(params, &config); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	return &ClassRanksUnit{
		name:   cu.name,
		config: config,
		tracer: cu.tracer,
	}, nil
}

// DefaultClassRanksConfig returns a ClassRanksConfig using the lenient
// policy.
func DefaultClassRanksConfig() ClassRanksConfig {
	return ClassRanksConfig{Policy: engine.PolicyLenient}
}

// CreateClassRanksUnit is a factory function that creates a
// ClassRanksUnit from a configuration map.
func CreateClassRanksUnit(id string, config map[string]any) (*ClassRanksUnit, error) {
	cfg := DefaultClassRanksConfig()

	if policy, ok := config["policy"].(string); ok {
		cfg.Policy = policyParam(policy)
	}

	return NewClassRanksUnit(id, cfg)
}
