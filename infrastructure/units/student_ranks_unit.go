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

var _ ports.Unit = (*StudentRanksUnit)(nil)

// StudentRanksUnit ranks the student named by domain.KeyTargetStudent in
// every report-card column. Tied students get consecutive positions, so
// the rank shown on one bulletin is the student's place in the sorted
// column. The result is stored under domain.KeyStudentRanks.
type StudentRanksUnit struct {
	name   string
	config StudentRanksConfig
	tracer trace.Tracer
}

// StudentRanksConfig defines the configuration parameters for the
// StudentRanksUnit.
type StudentRanksConfig struct {
	// Policy is the aggregation policy the ranks are computed on.
	// The strict policy leaves students with a missing grade unranked.
	Policy engine.Policy `yaml:"policy" json:"policy" validate:"required,policy"`
}

// NewStudentRanksUnit creates a new StudentRanksUnit with the specified configuration.
func NewStudentRanksUnit(name string, config StudentRanksConfig) (*StudentRanksUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &StudentRanksUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("student-ranks-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (su *StudentRanksUnit) Name() string { return su.name }

// Execute ranks the target student against the rest of the class.
func (su *StudentRanksUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := su.tracer.Start(ctx, "StudentRanksUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "student_ranks"),
			attribute.String("unit.id", su.name),
			attribute.String("config.policy", string(su.config.Policy)),
		),
	)
	defer span.End()

	fail := func(err error) (domain.State, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	snap, err := snapshotFrom(state)
	if err != nil {
		return fail(err)
	}

	target, ok := domain.Get(state, domain.KeyTargetStudent)
	if !ok || target == "" {
		return fail(fmt.Errorf("%w: %w", ErrNoTargetStudent, domain.MissingKey(domain.KeyTargetStudent)))
	}
	span.SetAttributes(attribute.String("student.id", string(target)))

	res, err := engine.StudentRanks(snap, target, su.config.Policy)
	if err != nil {
		return fail(fmt.Errorf("ranking student %q: %w", target, err))
	}

	span.SetAttributes(
		attribute.Int("class.students", res.TotalStudents),
		attribute.Int("rank.tg", res.Ranks.TG),
	)

	return domain.With(state, domain.KeyStudentRanks, res), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (su *StudentRanksUnit) Validate() error {
	if err := validate.Struct(su.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and returns
// a new StudentRanksUnit instance.
func (su *StudentRanksUnit) UnmarshalParameters(params yaml.Node) (*StudentRanksUnit, error) {
	config := DefaultStudentRanksConfig()
	if params.Kind != 0 {
		if err := decodeStrict(params, &config); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	return &StudentRanksUnit{
		name:   su.name,
		config: config,
		tracer: su.tracer,
	}, nil
}

// DefaultStudentRanksConfig returns a StudentRanksConfig using the strict
// policy.
func DefaultStudentRanksConfig() StudentRanksConfig {
	return StudentRanksConfig{Policy: engine.PolicyStrict}
}

// CreateStudentRanksUnit is a factory function that creates a
// StudentRanksUnit from a configuration map.
func CreateStudentRanksUnit(id string, config map[string]any) (*StudentRanksUnit, error) {
	cfg := DefaultStudentRanksConfig()

	if policy, ok := config["policy"].(string); ok {
		cfg.Policy = policyParam(policy)
	}

	return NewStudentRanksUnit(id, cfg)
}
