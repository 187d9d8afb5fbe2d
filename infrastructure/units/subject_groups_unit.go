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

var _ ports.Unit = (*SubjectGroupsUnit)(nil)

// Grouping modes accepted by the SubjectGroupsUnit.
const (
	// GroupingAuto picks domains for the primary curriculum and maxima
	// tuples for the secondary one.
	GroupingAuto = "auto"
	// GroupingMaxima always groups subjects by maxima tuple.
	GroupingMaxima = "maxima"
	// GroupingDomain always groups subjects by domain.
	GroupingDomain = "domain"
)

// SubjectGroupsUnit partitions the subjects of the class into the blocks
// printed on a bulletin, with per-student subtotals, and stores them under
// domain.KeySubjectGroups.
type SubjectGroupsUnit struct {
	name   string
	config SubjectGroupsConfig
	tracer trace.Tracer
}

// SubjectGroupsConfig defines the configuration parameters for the
// SubjectGroupsUnit.
type SubjectGroupsConfig struct {
	// Mode selects the grouping strategy: "auto", "maxima", or "domain".
	Mode string `yaml:"mode" json:"mode" validate:"required,oneof=auto maxima domain"`
}

// NewSubjectGroupsUnit creates a new SubjectGroupsUnit with the specified configuration.
func NewSubjectGroupsUnit(name string, config SubjectGroupsConfig) (*SubjectGroupsUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &SubjectGroupsUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("subject-groups-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (gu *SubjectGroupsUnit) Name() string { return gu.name }

// Execute groups the subjects of the snapshot found in state.
func (gu *SubjectGroupsUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := gu.tracer.Start(ctx, "SubjectGroupsUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "subject_groups"),
			attribute.String("unit.id", gu.name),
			attribute.String("config.mode", gu.config.Mode),
		),
	)
	defer span.End()

	snap, err := snapshotFrom(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	var groups []domain.SubjectGroup
	switch gu.config.Mode {
	case GroupingMaxima:
		groups = engine.GroupByMaxima(snap)
	case GroupingDomain:
		groups = engine.GroupByDomain(snap)
	default:
		groups = engine.GroupSubjects(snap)
	}

	span.SetAttributes(
		attribute.String("class.id", string(snap.Class().ID)),
		attribute.Int("groups.count", len(groups)),
	)

	return domain.With(state, domain.KeySubjectGroups, groups), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (gu *SubjectGroupsUnit) Validate() error {
	if err := validate.Struct(gu.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and returns
// a new SubjectGroupsUnit instance.
func (gu *SubjectGroupsUnit) UnmarshalParameters(params yaml.Node) (*SubjectGroupsUnit, error) {
	config := DefaultSubjectGroupsConfig()
	if params.Kind != 0 {
		if err := decodeStrict(params, &config); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	return &SubjectGroupsUnit{
		name:   gu.name,
		config: config,
		tracer: gu.tracer,
	}, nil
}

// DefaultSubjectGroupsConfig returns a SubjectGroupsConfig following the
// curriculum of each class.
func DefaultSubjectGroupsConfig() SubjectGroupsConfig {
	return SubjectGroupsConfig{Mode: GroupingAuto}
}

// CreateSubjectGroupsUnit is a factory function that creates a
// SubjectGroupsUnit from a configuration map.
func CreateSubjectGroupsUnit(id string, config map[string]any) (*SubjectGroupsUnit, error) {
	cfg := DefaultSubjectGroupsConfig()

	if mode, ok := config["mode"].(string); ok {
		cfg.Mode = mode
	}

	return NewSubjectGroupsUnit(id, cfg)
}
