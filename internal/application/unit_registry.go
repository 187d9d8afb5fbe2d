package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cloudecole/go-bulletin/infrastructure/units"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// UnitMiddleware decorates a unit created by the registry, for example to
// record metrics around its execution.
type UnitMiddleware func(unitType string, unit ports.Unit) ports.Unit

// DefaultUnitRegistry implements the UnitRegistry interface providing
// a factory for creating report units based on type and configuration.
// It supports dynamic registration of unit factories and applies the
// configured middleware to every unit it creates.
type DefaultUnitRegistry struct {
	// factories maps unit type strings to their factory functions.
	factories map[string]ports.UnitFactory
	// middleware wraps every created unit, outermost last.
	middleware []UnitMiddleware
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultUnitRegistry creates a new unit registry with the built-in
// report stages pre-registered: aggregation, student_ranks, class_ranks,
// palmares, subject_groups, and repechage.
func NewDefaultUnitRegistry(middleware ...UnitMiddleware) *DefaultUnitRegistry {
	registry := &DefaultUnitRegistry{
		factories:  make(map[string]ports.UnitFactory),
		middleware: middleware,
	}

	registry.registerBuiltinFactories()

	return registry
}

// registerBuiltinFactories registers the report stages provided by the
// units package.
func (r *DefaultUnitRegistry) registerBuiltinFactories() {
	r.factories["aggregation"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.CreateAggregationUnit(id, config)
	}
	r.factories["student_ranks"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.CreateStudentRanksUnit(id, config)
	}
	r.factories["class_ranks"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.CreateClassRanksUnit(id, config)
	}
	r.factories["palmares"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.CreatePalmaresUnit(id, config)
	}
	r.factories["subject_groups"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.CreateSubjectGroupsUnit(id, config)
	}
	r.factories["repechage"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.CreateRepechageUnit(id, config)
	}
}

// CreateUnit creates a new unit instance based on the provided type,
// identifier, and configuration.
// It looks up the appropriate factory function, delegates unit creation,
// and wraps the result in the registry middleware.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	middleware := r.middleware
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedUnitType, unitType)
	}

	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}

	for _, mw := range middleware {
		unit = mw(unitType, unit)
	}

	return unit, nil
}

// RegisterUnitFactory registers a new factory function for a specific unit type.
// This allows extending the registry with custom unit types at runtime.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory,
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns the sorted list of all registered unit types.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for unitType := range r.factories {
		types = append(types, unitType)
	}
	sort.Strings(types)

	return types
}
