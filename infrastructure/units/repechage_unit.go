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

var _ ports.Unit = (*RepechageUnit)(nil)

// RepechageUnit converts the make-up exam percentages recorded in the
// snapshot into points and stores them under domain.KeyRepechages.
type RepechageUnit struct {
	name   string
	config RepechageConfig
	tracer trace.Tracer
}

// RepechageConfig defines the configuration parameters for the
// RepechageUnit.
type RepechageConfig struct {
	// SkipUnknownSubjects drops repêchages that reference a subject the
	// class does not have instead of failing the run.
	SkipUnknownSubjects bool `yaml:"skip_unknown_subjects" json:"skip_unknown_subjects"`
}

// NewRepechageUnit creates a new RepechageUnit with the specified configuration.
func NewRepechageUnit(name string, config RepechageConfig) (*RepechageUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	return &RepechageUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("repechage-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (ru *RepechageUnit) Name() string { return ru.name }

// Execute converts every repêchage of the snapshot found in state.
func (ru *RepechageUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := ru.tracer.Start(ctx, "RepechageUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "repechage"),
			attribute.String("unit.id", ru.name),
			attribute.Bool("config.skip_unknown_subjects", ru.config.SkipUnknownSubjects),
		),
	)
	defer span.End()

	snap, err := snapshotFrom(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	var results []domain.RepechageResult
	if ru.config.SkipUnknownSubjects {
		results = ru.knownOnly(snap)
	} else {
		results, err = engine.Repechages(snap)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
	}

	span.SetAttributes(attribute.Int("repechages.count", len(results)))

	return domain.With(state, domain.KeyRepechages, results), nil
}

func (ru *RepechageUnit) knownOnly(snap *domain.Snapshot) []domain.RepechageResult {
	out := make([]domain.RepechageResult, 0, len(snap.Repechages()))
	for _, r := range snap.Repechages() {
		sub, ok := snap.Subject(r.SubjectID)
		if !ok {
			continue
		}
		out = append(out, engine.ConvertRepechage(sub, r))
	}
	return out
}

// Validate checks if the unit is properly configured and ready for execution.
func (ru *RepechageUnit) Validate() error {
	if err := validate.Struct(ru.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and returns
// a new RepechageUnit instance.
func (ru *RepechageUnit) UnmarshalParameters(params yaml.Node) (*RepechageUnit, error) {
	config := DefaultRepechageConfig()
	if params.Kind != 0 {
		if err := decodeStrict(params, &config); err != nil {
			return nil, err
		}
	}

	return &RepechageUnit{
		name:   ru.name,
		config: config,
		tracer: ru.tracer,
	}, nil
}

// DefaultRepechageConfig returns a RepechageConfig that fails on
// repêchages for unknown subjects.
func DefaultRepechageConfig() RepechageConfig {
	return RepechageConfig{SkipUnknownSubjects: false}
}

// CreateRepechageUnit is a factory function that creates a RepechageUnit
// from a configuration map.
func CreateRepechageUnit(id string, config map[string]any) (*RepechageUnit, error) {
	cfg := DefaultRepechageConfig()

	if skip, ok := config["skip_unknown_subjects"].(bool); ok {
		cfg.SkipUnknownSubjects = skip
	}

	return NewRepechageUnit(id, cfg)
}
