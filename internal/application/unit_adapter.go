package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// UnitAdapter is an adapter that wraps a ports.Unit to implement the
// ports.Executable interface, enabling units to participate in graph
// execution workflows.
// Use UnitAdapter when you need to integrate report units into
// pipelines, layers, or graphs that expect the Executable interface.
type UnitAdapter struct {
	// unit is the underlying report unit that performs the actual
	// work when Execute is called.
	unit ports.Unit
	// id is the unique identifier for this adapter within the graph
	// scope, used for referencing and error reporting.
	id string
	// timeout bounds a single execution of the unit. Zero means no limit.
	timeout time.Duration
}

// NewUnitAdapter creates a new adapter that wraps a ports.Unit to
// implement the ports.Executable interface, enabling the unit to
// participate in graph-based execution workflows.
func NewUnitAdapter(unit ports.Unit, id string) *UnitAdapter {
	return &UnitAdapter{
		unit: unit,
		id:   id,
	}
}

// WithTimeout returns the adapter with its execution limited to d.
func (ua *UnitAdapter) WithTimeout(d time.Duration) *UnitAdapter {
	ua.timeout = d
	return ua
}

// Execute delegates to the underlying unit's Execute method under the
// configured timeout. A failure is returned as a *ports.UnitError carrying
// the unit ID, the class of the run, and the elapsed time; a deadline
// overrun also matches ports.ErrTimeout.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if ua.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ua.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := ua.unit.Execute(ctx, state)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ports.ErrTimeout) {
			err = fmt.Errorf("%w after %v: %w", ports.ErrTimeout, ua.timeout, err)
		}
		classID, _ := domain.Get(state, domain.KeyClassID)
		uerr := ports.NewUnitError(ua.id, string(classID), err)
		uerr.Elapsed = time.Since(start)
		return state, uerr
	}
	return out, nil
}

// ID returns the unique string identifier for this adapter.
func (ua *UnitAdapter) ID() string { return ua.id }
