package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/ports"
)

// DefaultReportYAML is the report configuration used when none is given.
// It aggregates under the strict policy, then computes the class ranks,
// the annual palmares, the subject groups, and the repêchages in parallel.
//
//go:embed default_report.yaml
var DefaultReportYAML []byte

// CompiledReport is a validated report configuration together with the
// executable graph built from it.
// A CompiledReport is shared between callers and MUST NOT be mutated.
type CompiledReport struct {
	// Config is the parsed configuration.
	Config *ReportConfig
	// Hash is the SHA256 of the normalized configuration. It identifies
	// the configuration in report cache keys.
	Hash string
	// Graph is the execution topology of the units.
	Graph *Graph
}

// ReportLoader provides YAML configuration parsing, validation, and caching
// for report graphs, transforming declarative YAML definitions into
// executable graph structures.
// Use ReportLoader to load configurations from files or readers while
// benefiting from SHA256-based caching and comprehensive validation.
type ReportLoader struct {
	// validator performs struct field validation and custom validation
	// rules for report configurations and their nested components.
	validator *validator.Validate
	// unitRegistry provides factory methods for creating report units
	// based on their type and configuration parameters.
	unitRegistry ports.UnitRegistry
	// cache stores compiled reports indexed by SHA256 hash of the
	// normalized configuration to avoid recompilation.
	// WARNING: Cached graphs MUST NOT be mutated. The Graph methods
	// AddNode and AddEdge should never be called on cached graphs.
	cache map[string]*CompiledReport
	// cacheMu provides thread-safe access to the cache map.
	cacheMu sync.RWMutex
	// sf prevents duplicate compilation when multiple goroutines
	// request the same configuration simultaneously.
	sf singleflight.Group
}

// NewReportLoader creates a new report loader with validation capabilities
// and an empty cache.
// NewReportLoader returns an error if validator registration fails.
func NewReportLoader(unitRegistry ports.UnitRegistry) (*ReportLoader, error) {
	v := validator.New()

	if err := RegisterReportValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &ReportLoader{
		validator:    v,
		unitRegistry: unitRegistry,
		cache:        make(map[string]*CompiledReport),
	}, nil
}

// load is the common implementation for loading reports from byte data,
// utilizing singleflight to prevent duplicate compilation and SHA256-based
// caching for efficiency.
func (rl *ReportLoader) load(ctx context.Context, data []byte) (*CompiledReport, error) {
	// Parse YAML first to normalize it before hashing.
	config, err := rl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := rl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := rl.sf.Do(hash, func() (any, error) {
		// Check cache inside singleflight to handle race between cache check
		// and singleflight group execution.
		if compiled, ok := rl.getCached(hash); ok {
			return compiled, nil
		}

		if err := rl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		graph, err := rl.buildGraph(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph: %w", err)
		}

		compiled := &CompiledReport{Config: config, Hash: hash, Graph: graph}
		rl.store(hash, compiled)

		return compiled, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*CompiledReport), nil
}

// LoadFromFile loads and compiles a report configuration from a YAML file.
// LoadFromFile returns an error if file reading, parsing, validation,
// or graph compilation fails.
func (rl *ReportLoader) LoadFromFile(ctx context.Context, path string) (*CompiledReport, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.NewConfigError(cleanPath, ports.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return rl.load(ctx, data)
}

// LoadFromReader loads and compiles a report configuration from an
// io.Reader, applying the same caching and validation as LoadFromFile.
func (rl *ReportLoader) LoadFromReader(ctx context.Context, r io.Reader) (*CompiledReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return rl.load(ctx, data)
}

// LoadDefault compiles DefaultReportYAML.
func (rl *ReportLoader) LoadDefault(ctx context.Context) (*CompiledReport, error) {
	return rl.load(ctx, DefaultReportYAML)
}

// parseYAML unmarshals YAML byte data into a ReportConfig using strict
// decoding, so that configuration typos are reported instead of ignored.
func (rl *ReportLoader) parseYAML(data []byte) (*ReportConfig, error) {
	var config ReportConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig performs struct field validation and semantic validation
// of the relationships between configuration elements.
func (rl *ReportLoader) validateConfig(config *ReportConfig) error {
	if err := rl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := rl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics checks the rules that cannot be expressed through
// struct tags: node IDs are unique across units, pipelines, and layers,
// every reference points to an existing node, and unit parameters match
// their unit type.
func (rl *ReportLoader) validateSemantics(config *ReportConfig) error {
	allNodeIDs := make(map[string]string) // ID -> node type for error messages.
	unitIDs := make(map[string]struct{})

	for _, unit := range config.Units {
		if nodeType, exists := allNodeIDs[unit.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", unit.ID, nodeType)
		}
		allNodeIDs[unit.ID] = "unit"
		unitIDs[unit.ID] = struct{}{}

		if err := ValidateUnitParameters(unit.Type, unit.Parameters); err != nil {
			return fmt.Errorf("unit %s parameter validation failed: %w", unit.ID, err)
		}
	}

	placed := make(map[string]string)

	for _, pipeline := range config.Graph.Pipelines {
		if nodeType, exists := allNodeIDs[pipeline.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", pipeline.ID, nodeType)
		}
		allNodeIDs[pipeline.ID] = "pipeline"

		for _, unitID := range pipeline.Units {
			if _, exists := unitIDs[unitID]; !exists {
				return fmt.Errorf("pipeline %s references non-existent unit: %s", pipeline.ID, unitID)
			}
			if owner, exists := placed[unitID]; exists {
				return fmt.Errorf("unit %s is placed in both %s and %s", unitID, owner, pipeline.ID)
			}
			placed[unitID] = pipeline.ID
		}
	}

	for _, layer := range config.Graph.Layers {
		if nodeType, exists := allNodeIDs[layer.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", layer.ID, nodeType)
		}
		allNodeIDs[layer.ID] = "layer"

		for _, unitID := range layer.Units {
			if _, exists := unitIDs[unitID]; !exists {
				return fmt.Errorf("layer %s references non-existent unit: %s", layer.ID, unitID)
			}
			if owner, exists := placed[unitID]; exists {
				return fmt.Errorf("unit %s is placed in both %s and %s", unitID, owner, layer.ID)
			}
			placed[unitID] = layer.ID
		}
	}

	for _, edge := range config.Graph.Edges {
		if _, exists := allNodeIDs[edge.From]; !exists {
			return fmt.Errorf("edge references non-existent source node: %s", edge.From)
		}
		if _, exists := allNodeIDs[edge.To]; !exists {
			return fmt.Errorf("edge references non-existent target node: %s", edge.To)
		}
		if _, inGroup := placed[edge.From]; inGroup {
			return fmt.Errorf("edge source %s is a unit inside %s", edge.From, placed[edge.From])
		}
		if _, inGroup := placed[edge.To]; inGroup {
			return fmt.Errorf("edge target %s is a unit inside %s", edge.To, placed[edge.To])
		}
	}

	return nil
}

// buildGraph constructs an executable graph from a validated configuration,
// creating units, pipelines, layers, and their dependency relationships.
// buildGraph returns an error if unit creation, graph construction,
// or cycle detection fails.
func (rl *ReportLoader) buildGraph(ctx context.Context, config *ReportConfig) (*Graph, error) {
	graph := NewGraph()

	adapters := make(map[string]*UnitAdapter)
	for _, unitConfig := range config.Units {
		unit, err := rl.createUnit(unitConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", unitConfig.ID, err)
		}
		adapters[unitConfig.ID] = NewUnitAdapter(unit, unitConfig.ID).WithTimeout(unitConfig.Timeout.Duration())
	}

	placedUnits := make(map[string]struct{})

	for _, pipelineConfig := range config.Graph.Pipelines {
		pipeline := NewPipeline(pipelineConfig.ID)

		for _, unitID := range pipelineConfig.Units {
			if err := pipeline.Add(adapters[unitID]); err != nil {
				return nil, fmt.Errorf("failed to add unit to pipeline: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}

		if err := graph.AddNode(pipeline); err != nil {
			return nil, fmt.Errorf("failed to add pipeline to graph: %w", err)
		}
	}

	for _, layerConfig := range config.Graph.Layers {
		layer := NewLayer(layerConfig.ID)
		if layerConfig.Concurrency > 0 {
			layer.SetConcurrencyLimit(layerConfig.Concurrency)
		}

		for _, unitID := range layerConfig.Units {
			if err := layer.Add(adapters[unitID]); err != nil {
				return nil, fmt.Errorf("failed to add unit to layer: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}

		if err := graph.AddNode(layer); err != nil {
			return nil, fmt.Errorf("failed to add layer to graph: %w", err)
		}
	}

	// Add standalone units in declaration order.
	for _, unitConfig := range config.Units {
		if _, isPlaced := placedUnits[unitConfig.ID]; isPlaced {
			continue
		}
		if err := graph.AddNode(adapters[unitConfig.ID]); err != nil {
			return nil, fmt.Errorf("failed to add unit to graph: %w", err)
		}
	}

	for _, edge := range config.Graph.Edges {
		if err := graph.AddEdge(edge.From, edge.To); err != nil {
			return nil, fmt.Errorf("failed to add edge: %w", err)
		}
	}

	if graph.HasCycle() {
		return nil, fmt.Errorf("graph contains cycles")
	}

	return graph, nil
}

// createUnit instantiates a report unit from its configuration through
// the unit registry.
func (rl *ReportLoader) createUnit(config UnitConfig) (ports.Unit, error) {
	params := make(map[string]any)
	if config.Parameters.Kind != 0 {
		if err := config.Parameters.Decode(&params); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
	}

	unit, err := rl.unitRegistry.CreateUnit(config.Type, config.ID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	return unit, nil
}

// calculateConfigHash computes the SHA256 hash of a normalized ReportConfig,
// so that semantically identical configurations produce the same hash
// regardless of whitespace or comment differences.
func (rl *ReportLoader) calculateConfigHash(config *ReportConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// getCached returns a previously compiled report.
// getCached is safe for concurrent use.
func (rl *ReportLoader) getCached(hash string) (*CompiledReport, bool) {
	rl.cacheMu.RLock()
	defer rl.cacheMu.RUnlock()

	compiled, ok := rl.cache[hash]
	return compiled, ok
}

// store records a compiled report under the hash of its configuration.
func (rl *ReportLoader) store(hash string, compiled *CompiledReport) {
	rl.cacheMu.Lock()
	defer rl.cacheMu.Unlock()

	rl.cache[hash] = compiled
}

// ClearCache removes all compiled reports, forcing subsequent loads to
// recompile from source.
// ClearCache is safe for concurrent use.
func (rl *ReportLoader) ClearCache() {
	rl.cacheMu.Lock()
	defer rl.cacheMu.Unlock()

	rl.cache = make(map[string]*CompiledReport)
}
