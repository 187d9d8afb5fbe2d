package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// defaultLayerConcurrency bounds a layer whose limit was never set.
func defaultLayerConcurrency() int { return runtime.NumCPU() * 2 }

// memberSet is an ordered list of executables with unique IDs, shared by
// Pipeline and Layer.
type memberSet struct {
	kind    string
	members []ports.Executable
	ids     map[string]struct{}
	mu      sync.RWMutex
}

func (m *memberSet) add(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to %s", m.kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ids == nil {
		m.ids = make(map[string]struct{})
	}
	id := exec.ID()
	if _, dup := m.ids[id]; dup {
		return fmt.Errorf("executable with ID %s already exists in %s", id, m.kind)
	}
	m.members = append(m.members, exec)
	m.ids[id] = struct{}{}
	return nil
}

func (m *memberSet) snapshot() []ports.Executable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.members)
}

// Pipeline runs its executables one after the other; each one receives
// the state returned by the previous one. The aggregation stage and the
// rank stages that read the aggregates belong in a pipeline.
type Pipeline struct {
	id string
	memberSet
}

// NewPipeline returns an empty pipeline.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{id: id, memberSet: memberSet{kind: "pipeline"}}
}

// Execute threads state through the executables in the order they were
// added. It stops at the first failure, wrapping the error with the
// pipeline and executable IDs, and checks ctx before each step.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	current := state
	for _, exec := range p.snapshot() {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		next, err := exec.Execute(ctx, current)
		if err != nil {
			return current, fmt.Errorf("pipeline %s: execution failed at %s: %w", p.id, exec.ID(), err)
		}
		current = next
	}
	return current, nil
}

// ID returns the pipeline identifier used by graph edges.
func (p *Pipeline) ID() string { return p.id }

// Add appends exec. IDs must be unique within the pipeline.
func (p *Pipeline) Add(exec ports.Executable) error { return p.add(exec) }

// Executables returns a copy of the pipeline's executables in run order.
func (p *Pipeline) Executables() []ports.Executable { return p.snapshot() }

// Layer runs its executables concurrently on the same input state and
// merges their outputs. Stages that read only the snapshot and keys
// written before the layer, such as the palmarès and subject grouping,
// can share a layer.
type Layer struct {
	id string
	memberSet

	// Guarded by memberSet.mu.
	mergeStrategy    ports.MergeStrategy
	concurrencyLimit int
}

// NewLayer returns an empty layer bounded to twice the number of CPUs.
func NewLayer(id string) *Layer {
	return &Layer{
		id:               id,
		memberSet:        memberSet{kind: "layer"},
		concurrencyLimit: defaultLayerConcurrency(),
	}
}

// Execute runs every executable on state, at most concurrencyLimit at a
// time. Failures do not stop the other executables: they are joined into
// a single error once all have returned. On success the outputs are
// merged in the order the executables were added.
func (l *Layer) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	l.mu.RLock()
	executables := slices.Clone(l.members)
	limit := l.concurrencyLimit
	strategy := l.mergeStrategy
	l.mu.RUnlock()

	if len(executables) == 0 {
		return state, nil
	}
	if limit <= 0 {
		limit = defaultLayerConcurrency()
	}
	if strategy == nil {
		strategy = KeyUnionMerge{}
	}

	outputs := make([]domain.State, len(executables))
	errs := make([]error, len(executables))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, exec := range executables {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out, err := exec.Execute(ctx, state)
			if err != nil {
				errs[i] = fmt.Errorf("executable %s: %w", exec.ID(), err)
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return state, err
	}

	failed := slices.DeleteFunc(errs, func(err error) bool { return err == nil })
	if len(failed) > 0 {
		return state, fmt.Errorf("layer %s failed with %d errors: %w", l.id, len(failed), errors.Join(failed...))
	}

	merged, err := strategy.Merge(state, outputs)
	if err != nil {
		return state, fmt.Errorf("layer %s: merge failed: %w", l.id, err)
	}
	return merged, nil
}

// ID returns the layer identifier used by graph edges.
func (l *Layer) ID() string { return l.id }

// Add includes exec in the layer. IDs must be unique within the layer.
func (l *Layer) Add(exec ports.Executable) error { return l.add(exec) }

// Executables returns a copy of the layer's executables in the order
// they were added.
func (l *Layer) Executables() []ports.Executable { return l.snapshot() }

// SetMergeStrategy replaces the default KeyUnionMerge. Call it before
// Execute.
func (l *Layer) SetMergeStrategy(strategy ports.MergeStrategy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mergeStrategy = strategy
}

// SetConcurrencyLimit bounds the executables running at once. A value of
// 0 or less restores the default.
func (l *Layer) SetConcurrencyLimit(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.concurrencyLimit = limit
}

// Graph orders pipelines, layers, and standalone units by their
// dependencies. Edges are rejected when they would close a cycle, so a
// Graph is always a DAG.
type Graph struct {
	nodes    map[string]ports.Executable
	edges    map[string][]string // source ID -> target IDs
	edgeSet  map[string]struct{} // "source->target"
	inDegree map[string]int
	mu       sync.RWMutex
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]ports.Executable),
		edges:    make(map[string][]string),
		edgeSet:  make(map[string]struct{}),
		inDegree: make(map[string]int),
	}
}

// AddNode registers exec under its ID.
func (g *Graph) AddNode(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to graph")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := exec.ID()
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node with ID %s already exists in graph", id)
	}
	g.nodes[id] = exec
	g.edges[id] = nil
	g.inDegree[id] = 0
	return nil
}

// AddEdge makes targetID run after sourceID. Both nodes must exist, the
// edge must be new, and it must not create a cycle; a rejected edge
// leaves the graph unchanged.
func (g *Graph) AddEdge(sourceID, targetID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[sourceID]; !ok {
		return fmt.Errorf("source node %s does not exist", sourceID)
	}
	if _, ok := g.nodes[targetID]; !ok {
		return fmt.Errorf("target node %s does not exist", targetID)
	}

	key := sourceID + "->" + targetID
	if _, dup := g.edgeSet[key]; dup {
		return fmt.Errorf("edge from %s to %s already exists", sourceID, targetID)
	}
	if sourceID == targetID || g.reachable(targetID, sourceID) {
		return fmt.Errorf("adding edge from %s to %s would create a cycle", sourceID, targetID)
	}

	g.edges[sourceID] = append(g.edges[sourceID], targetID)
	g.edgeSet[key] = struct{}{}
	g.inDegree[targetID]++
	return nil
}

// reachable reports whether to can be reached from from. The caller
// holds g.mu.
func (g *Graph) reachable(from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		for _, next := range g.edges[id] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// TopologicalSort returns the nodes so that every node comes after all
// of its sources (Kahn's algorithm). Nodes that become ready together are
// ordered by ID, so the order is the same on every run.
func (g *Graph) TopologicalSort() ([]ports.Executable, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]int, len(g.inDegree))
	var ready []string
	for id, degree := range g.inDegree {
		remaining[id] = degree
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]ports.Executable, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, g.nodes[id])

		var unlocked []string
		for _, next := range g.edges[id] {
			remaining[next]--
			if remaining[next] == 0 {
				unlocked = append(unlocked, next)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph contains a cycle")
	}
	return order, nil
}

// HasCycle reports whether the graph contains a cycle. AddEdge refuses
// cycles, so this only returns true for a graph built by other means.
func (g *Graph) HasCycle() bool {
	_, err := g.TopologicalSort()
	return err != nil
}

// GetNode returns the node registered under id.
func (g *Graph) GetNode(id string) (ports.Executable, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	exec, ok := g.nodes[id]
	return exec, ok
}

// Execute runs the nodes one after the other in topological order. Each
// node receives the state produced by the node before it, so a node sees
// every key written by the nodes it depends on. Execute stops at the
// first failing node or on context cancellation.
func (g *Graph) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return state, err
	}

	current := state
	for _, node := range order {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		next, err := node.Execute(ctx, current)
		if err != nil {
			return current, fmt.Errorf("node %s: %w", node.ID(), err)
		}
		current = next
	}
	return current, nil
}

// KeyUnionMerge is the default layer merge strategy. It applies to the
// base state every key that an executable added or changed. Two
// executables writing different values under the same key is a conflict.
type KeyUnionMerge struct{}

var _ ports.MergeStrategy = KeyUnionMerge{}

// Merge implements ports.MergeStrategy.
func (KeyUnionMerge) Merge(baseState domain.State, states []domain.State) (domain.State, error) {
	if len(states) == 0 {
		return baseState, nil
	}

	updates := make(map[string]any)
	writers := make(map[string]int)
	for i, st := range states {
		for _, key := range st.Keys() {
			value, _ := st.GetRaw(key)
			if base, ok := baseState.GetRaw(key); ok && reflect.DeepEqual(base, value) {
				continue
			}
			if prev, ok := updates[key]; ok && !reflect.DeepEqual(prev, value) {
				return baseState, fmt.Errorf("conflicting writes to key %q by results %d and %d", key, writers[key], i)
			}
			updates[key] = value
			writers[key] = i
		}
	}

	if len(updates) == 0 {
		return baseState, nil
	}
	return baseState.WithMultiple(updates), nil
}
