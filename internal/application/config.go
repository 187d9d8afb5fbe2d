package application

import (
	"time"

	"gopkg.in/yaml.v3"
)

// ReportConfig defines a complete report graph and
// serves as the primary configuration entry point for the system.
// Use ReportConfig to choose which stages run for a class, with which
// parameters, and in which order.
type ReportConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the report graph.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Units defines the report stages that will execute within this graph,
	// each with its own parameters.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
	// Graph specifies the execution topology that determines how units
	// are connected and the order in which they execute.
	Graph GraphTopology `yaml:"graph" validate:"required"`
	// Cache controls the storage of computed reports.
	Cache CacheConfig `yaml:"cache"`
	// Batch controls how many classes are computed at once.
	Batch BatchConfig `yaml:"batch"`
}

// Metadata provides descriptive information about a report graph.
type Metadata struct {
	// Name is the human-readable identifier for this report graph and is
	// recorded on every report it produces.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description provides a detailed explanation of the graph's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels that enable filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for integration with external
	// systems.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// UnitConfig defines a single report unit.
type UnitConfig struct {
	// ID is the unique identifier for this unit within the graph
	// and must be alphanumeric for safe referencing in topologies.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type specifies the unit implementation to instantiate,
	// determining the available parameters and execution behavior.
	Type string `yaml:"type" validate:"required,oneof=aggregation student_ranks class_ranks palmares subject_groups repechage custom"`
	// Parameters contains type-specific configuration as flexible YAML
	// that is validated according to the unit type.
	Parameters yaml.Node `yaml:"parameters"`
	// Timeout defines execution time limits for the unit.
	Timeout TimeoutConfig `yaml:"timeout"`
}

// TimeoutConfig controls execution time limits for report units.
type TimeoutConfig struct {
	// ExecutionTimeout specifies the maximum time in seconds that a unit
	// is allowed to execute before being interrupted and marked as failed.
	// Zero disables the limit.
	ExecutionTimeout int `yaml:"execution_timeout_seconds" validate:"omitempty,min=1,max=3600"`
}

// Duration returns the execution timeout, or 0 when none is set.
func (t TimeoutConfig) Duration() time.Duration {
	return time.Duration(t.ExecutionTimeout) * time.Second
}

// GraphTopology specifies the structural organization and execution flow
// of units within a report graph, supporting both sequential and
// parallel execution patterns.
type GraphTopology struct {
	// Pipelines define sequential execution chains where units execute
	// in strict order, with each unit's output feeding to the next.
	Pipelines []PipelineConfig `yaml:"pipelines" validate:"dive"`
	// Layers define parallel execution groups whose units share their
	// input and whose outputs are united.
	Layers []LayerConfig `yaml:"layers" validate:"dive"`
	// Edges specify directed dependencies between units, pipelines, and
	// layers.
	Edges []EdgeConfig `yaml:"edges" validate:"dive"`
}

// PipelineConfig defines a sequential execution chain.
type PipelineConfig struct {
	// ID is the unique identifier for this pipeline within the graph
	// topology, used for referencing in edges.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Units lists the unit IDs in execution order.
	Units []string `yaml:"units" validate:"required,min=1,dive,alphanum"`
}

// LayerConfig defines a parallel execution group.
type LayerConfig struct {
	// ID is the unique identifier for this layer within the graph
	// topology, used for referencing in edges.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Units lists the unit IDs that will execute in parallel,
	// with a minimum of two units required to justify layer overhead.
	Units []string `yaml:"units" validate:"required,min=2,dive,alphanum"`
	// Concurrency caps the number of units running at once.
	// Zero uses the layer default.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1,max=64"`
}

// EdgeConfig establishes a directed dependency between two graph nodes.
type EdgeConfig struct {
	// From identifies the source node (unit, pipeline, or layer) that
	// must complete before the target node can begin execution.
	From string `yaml:"from" validate:"required,alphanum"`
	// To identifies the target node.
	To string `yaml:"to" validate:"required,alphanum"`
}

// CacheConfig controls whether computed reports are cached and for how
// long.
type CacheConfig struct {
	// Enabled turns report caching on.
	Enabled bool `yaml:"enabled"`
	// TTLSeconds is the lifetime of a cached report. Zero keeps reports
	// until they are evicted.
	TTLSeconds int `yaml:"ttl_seconds" validate:"min=0,max=2592000"`
	// Prefix namespaces the cache keys.
	Prefix string `yaml:"prefix" validate:"omitempty,max=64"`
}

// TTL returns the configured lifetime of a cached report.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// BatchConfig controls the computation of many classes at once.
type BatchConfig struct {
	// Concurrency is the maximum number of classes computed in parallel.
	// Zero uses the runner default.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1,max=256"`
}
