// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// Unit represents one stage of the report pipeline.
// Each Unit reads what it needs from the report State and returns a new
// State carrying its result, so stages can be composed and reordered by
// configuration. Units should be stateless and safe for concurrent use.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, metrics labels, and configuration.
	Name() string

	// Execute performs the unit's computation on the provided State.
	// It returns a new State containing the result of the computation.
	// The original State must not be modified.
	// Any errors during execution should be returned rather than panicking.
	//
	// The context parameter allows for cancellation and deadline propagation.
	//
	// Example:
	//
	//	newState, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return state, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks if the unit is properly configured and ready for execution.
	// It is typically called during pipeline construction.
	// Return nil if validation passes, or an error describing what is invalid.
	Validate() error
}

// UnitFactory builds a Unit from its configuration identifier and its
// decoded YAML parameters.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry resolves unit types named in a report configuration to the
// factories that build them.
type UnitRegistry interface {
	// CreateUnit builds a unit of the given type.
	// CreateUnit returns an error if the type is not registered or the
	// parameters are rejected by the factory.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// RegisterUnitFactory adds or replaces the factory for a unit type.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// GetSupportedTypes lists every registered unit type.
	GetSupportedTypes() []string
}
