// Package middleware provides cross-cutting concerns for the report engine.
// It implements the middleware/wrapper pattern to keep grading logic clean
// while adding tracing, metrics, and logging around report units.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudecole/go-bulletin/internal/application"
	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// UnitInfo identifies the unit being observed.
type UnitInfo struct {
	// Type is the registry type the unit was created from, such as
	// "palmares".
	Type string

	// ID is the unit identifier from the report configuration.
	ID string

	// ClassID is the class whose report is being computed, when known.
	ClassID string

	// ExecutionID identifies the report run, when known.
	ExecutionID string
}

// UnitObserver provides observability hooks around unit execution.
// Implementations can add tracing, metrics, and logging without
// coupling observability concerns to the grading units.
type UnitObserver interface {
	// PreExecute is called before the unit runs. The returned context is
	// passed to the unit and to PostExecute.
	PreExecute(ctx context.Context, info UnitInfo) context.Context

	// PostExecute is called after the unit returns with its output state
	// and timing information.
	PostExecute(ctx context.Context, info UnitInfo, out domain.State, elapsed time.Duration, err error)
}

var _ ports.Unit = (*UnitMonitor)(nil)

// UnitMonitor wraps a unit and reports every execution to an observer.
// It holds no mutable state and is safe for concurrent use.
type UnitMonitor struct {
	// unitType is the registry type of the wrapped unit.
	unitType string

	// next holds the next middleware or unit in the execution chain.
	next ports.Unit

	// observer receives the execution hooks.
	observer UnitObserver
}

// NewUnitMonitor creates a UnitMonitor for next. A nil observer makes the
// monitor a pass-through.
func NewUnitMonitor(unitType string, next ports.Unit, observer UnitObserver) *UnitMonitor {
	if next == nil {
		panic("unit monitor: next unit is required")
	}
	return &UnitMonitor{
		unitType: unitType,
		next:     next,
		observer: observer,
	}
}

// Name returns the name of the wrapped unit so that monitored units keep
// their configured identifiers.
func (m *UnitMonitor) Name() string { return m.next.Name() }

// Unwrap returns the wrapped unit.
func (m *UnitMonitor) Unwrap() ports.Unit { return m.next }

// Execute runs the wrapped unit between the observer hooks.
func (m *UnitMonitor) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if m.observer == nil {
		return m.next.Execute(ctx, state)
	}

	info := UnitInfo{Type: m.unitType, ID: m.next.Name()}
	if classID, ok := domain.Get(state, domain.KeyClassID); ok {
		info.ClassID = string(classID)
	}
	if executionID, ok := domain.Get(state, domain.KeyExecutionID); ok {
		info.ExecutionID = executionID
	}

	ctx = m.observer.PreExecute(ctx, info)

	start := time.Now()
	out, err := m.next.Execute(ctx, state)
	m.observer.PostExecute(ctx, info, out, time.Since(start), err)

	return out, err
}

// Validate checks that the monitor wraps a valid unit.
func (m *UnitMonitor) Validate() error {
	if m.next == nil {
		return fmt.Errorf("unit monitor: next unit is required")
	}
	return m.next.Validate()
}

// Monitor returns a registry middleware that wraps every created unit in
// a UnitMonitor reporting to observer.
func Monitor(observer UnitObserver) application.UnitMiddleware {
	return func(unitType string, unit ports.Unit) ports.Unit {
		return NewUnitMonitor(unitType, unit, observer)
	}
}
