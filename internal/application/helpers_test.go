package application

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// mockExecutable is a test implementation of ports.Executable.
type mockExecutable struct {
	id          string
	executeFunc func(ctx context.Context, state domain.State) (domain.State, error)
	executed    bool
	mu          sync.Mutex
}

func (m *mockExecutable) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	m.mu.Lock()
	m.executed = true
	m.mu.Unlock()

	if m.executeFunc != nil {
		return m.executeFunc(ctx, state)
	}
	return state, nil
}

func (m *mockExecutable) ID() string { return m.id }

func (m *mockExecutable) wasExecuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executed
}

// writer returns an executable that stores value under key.
func writer(id string, key domain.Key[string], value string) *mockExecutable {
	return &mockExecutable{
		id: id,
		executeFunc: func(_ context.Context, state domain.State) (domain.State, error) {
			return domain.With(state, key, value), nil
		},
	}
}

// testMockUnit implements ports.Unit for testing custom factory registration.
type testMockUnit struct {
	name    string
	execute func(ctx context.Context, state domain.State) (domain.State, error)
}

func (m *testMockUnit) Name() string { return m.name }

func (m *testMockUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if m.execute != nil {
		return m.execute(ctx, state)
	}
	return state, nil
}

func (m *testMockUnit) Validate() error { return nil }

// memoryCache is a JSON-backed ports.CacheStore that can be told to fail.
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
	failSet error
	gets    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return false, c.failGet
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, ports.NewCacheError(key, "Get", ports.ErrCacheCorrupted)
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet != nil {
		return c.failSet
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	return nil
}

// recordingMetrics is a ports.MetricsCollector that remembers what it saw.
type recordingMetrics struct {
	mu         sync.Mutex
	latencies  map[string]int
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
	labels     map[string][]map[string]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		latencies:  make(map[string]int),
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
		labels:     make(map[string][]map[string]string),
	}
}

func (m *recordingMetrics) RecordLatency(op string, _ time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[op]++
	m.labels[op] = append(m.labels[op], labels)
}

func (m *recordingMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric] += value
	m.labels[metric] = append(m.labels[metric], labels)
}

func (m *recordingMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metric] = value
}

func (m *recordingMetrics) RecordHistogram(metric string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[metric] = append(m.histograms[metric], value)
}

// semesterReportYAML computes aggregates, class ranks, and the first
// semester palmares.
const semesterReportYAML = `
version: "1.0.0"
metadata:
  name: semester
units:
  - id: aggregate
    type: aggregation
  - id: classranks
    type: class_ranks
  - id: palmares
    type: palmares
    parameters:
      group: SEM1
  - id: groups
    type: subject_groups
graph:
  pipelines:
    - id: main
      units: [aggregate]
  layers:
    - id: outputs
      units: [classranks, palmares, groups]
  edges:
    - from: main
      to: outputs
cache:
  enabled: true
  ttl_seconds: 60
  prefix: test
`

// compile loads src with the default registry.
func compile(t *testing.T, src string) *CompiledReport {
	t.Helper()
	loader, err := NewReportLoader(NewDefaultUnitRegistry())
	require.NoError(t, err)
	compiled, err := loader.LoadFromReader(context.Background(), strings.NewReader(src))
	require.NoError(t, err)
	return compiled
}
