// Package units provides the report stages that implement the ports.Unit
// interface for the go-bulletin report engine.
package units

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/engine"
)

// Common errors returned by report units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNoSnapshot is returned when a unit runs on a state without a class snapshot.
	ErrNoSnapshot = errors.New("class snapshot not found in state")

	// ErrNoTargetStudent is returned when a rank lookup has no student to rank.
	ErrNoTargetStudent = errors.New("target student not found in state")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or a nil function.
	_ = v.RegisterValidation("periodgroup", func(fl validator.FieldLevel) bool {
		return domain.PeriodGroup(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("policy", func(fl validator.FieldLevel) bool {
		return engine.Policy(fl.Field().String()).Valid()
	})
	return v
}

// snapshotFrom extracts the class snapshot every unit reads from.
func snapshotFrom(state domain.State) (*domain.Snapshot, error) {
	snap, ok := domain.Get(state, domain.KeySnapshot)
	if !ok || snap == nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, domain.MissingKey(domain.KeySnapshot))
	}
	return snap, nil
}

// decodeStrict re-encodes a yaml.Node and decodes it into out, rejecting
// unknown fields so that typos in parameters are reported.
func decodeStrict(params yaml.Node, out any) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	if err := encoder.Encode(&params); err != nil {
		return fmt.Errorf("failed to encode YAML node: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close YAML encoder: %w", err)
	}

	decoder := yaml.NewDecoder(&buf)
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode parameters (check for typos): %w", err)
	}
	return nil
}

// policyParam normalizes a policy name. An unknown name is kept as is so
// that validation reports it.
func policyParam(s string) engine.Policy {
	if p, err := engine.ParsePolicy(s); err == nil {
		return p
	}
	return engine.Policy(s)
}

// groupParam normalizes a period group name. An unknown name is kept as
// is so that validation reports it.
func groupParam(s string) domain.PeriodGroup {
	if g, err := domain.ParsePeriodGroup(s); err == nil {
		return g
	}
	return domain.PeriodGroup(s)
}
