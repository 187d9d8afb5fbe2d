package ports

import (
	"context"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// MergeStrategy combines the outputs of the executables of one layer.
// baseState is the layer input and states holds the successful outputs in
// the order the executables were added. Merge must be deterministic and
// must not modify its inputs.
type MergeStrategy interface {
	Merge(baseState domain.State, states []domain.State) (domain.State, error)
}

// Executable is anything a report graph can run: a unit adapter, a
// pipeline, or a layer.
type Executable interface {
	// Execute returns the state extended with the executable's results.
	// The input state is shared with concurrent executables of the same
	// layer and must be treated as read-only; derive new states with
	// domain.With or State.WithMultiple.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID identifies the executable in graph edges and error messages. It
	// is unique within a graph and never changes.
	ID() string
}

// Pipeline runs executables in order, feeding each one the output of the
// previous one. Stages that read aggregates, such as rank tables, follow
// the aggregation stage in a pipeline.
type Pipeline interface {
	Executable

	// Add appends exec. It fails on a nil executable or a duplicate ID.
	Add(exec Executable) error

	// Executables returns the executables in run order.
	Executables() []Executable
}

// Layer runs executables concurrently on the same input and merges their
// outputs. The class rank table and the subject groups can share a layer
// because neither reads the other's result.
type Layer interface {
	Executable

	// Add includes exec. It fails on a nil executable or a duplicate ID.
	Add(exec Executable) error

	// Executables returns the executables in the order they were added.
	Executables() []Executable

	// SetMergeStrategy replaces the default key-union merge. Call it
	// before Execute.
	SetMergeStrategy(strategy MergeStrategy)
}

// Graph orders executables by dependency edges and runs them.
type Graph interface {
	// AddNode registers exec under its ID, which must be new.
	AddNode(exec Executable) error

	// AddEdge makes targetID run after sourceID. It fails when a node is
	// missing, when the edge exists, or when the edge would close a cycle.
	AddEdge(sourceID, targetID string) error

	// TopologicalSort returns the nodes with every source before its
	// targets.
	TopologicalSort() ([]Executable, error)

	// Execute runs every node in topological order, threading the state
	// returned by each node into the next one.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// HasCycle reports whether the nodes cannot be ordered.
	HasCycle() bool

	// GetNode returns the node registered under id. The returned value is
	// the instance held by the graph and must not be mutated.
	GetNode(id string) (Executable, bool)
}
