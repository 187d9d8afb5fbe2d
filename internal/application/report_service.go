package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// Metric names recorded by the report service.
const (
	MetricReportDuration = "report_generate"
	MetricReports        = "reports_total"
	MetricCacheHits      = "report_cache_hits_total"
	MetricClassSize      = "class_size"
	MetricRanked         = "palmares_ranked"
	MetricUnranked       = "palmares_unranked"
	MetricPercentage     = "palmares_percentage"
)

// ErrNilReport is returned when a ReportService is built without a
// compiled report.
var ErrNilReport = errors.New("compiled report cannot be nil")

// ReportService runs a compiled report graph on class snapshots and
// assembles the results into domain.Report values. Reports are cached by
// class, snapshot digest, and configuration hash when a cache is set and
// the configuration enables caching.
// ReportService is safe for concurrent use.
type ReportService struct {
	compiled *CompiledReport
	cache    ports.CacheStore
	metrics  ports.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a ReportService.
type ServiceOption func(*ReportService)

// WithCache stores computed reports in store.
func WithCache(store ports.CacheStore) ServiceOption {
	return func(s *ReportService) { s.cache = store }
}

// WithMetrics records report metrics on collector.
func WithMetrics(collector ports.MetricsCollector) ServiceOption {
	return func(s *ReportService) { s.metrics = collector }
}

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *ReportService) { s.logger = logger }
}

// WithClock sets the source of Report.GeneratedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *ReportService) { s.now = now }
}

// NewReportService creates a ReportService for compiled.
func NewReportService(compiled *CompiledReport, opts ...ServiceOption) (*ReportService, error) {
	if compiled == nil || compiled.Graph == nil || compiled.Config == nil {
		return nil, ErrNilReport
	}

	s := &ReportService{
		compiled: compiled,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// ConfigName returns the name of the report configuration.
func (s *ReportService) ConfigName() string { return s.compiled.Config.Metadata.Name }

// Generate computes the report of one class snapshot.
// Cache failures are logged and never fail the call.
func (s *ReportService) Generate(ctx context.Context, snap *domain.Snapshot) (domain.Report, error) {
	if snap == nil {
		return domain.Report{}, fmt.Errorf("snapshot cannot be nil")
	}

	start := time.Now()
	classID := snap.Class().ID

	key, cacheable := s.cacheKey(snap)
	if cacheable {
		var cached domain.Report
		found, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			s.logger.Warn("report cache read failed", "class_id", classID, "key", key, "error", err)
		case found:
			s.recordCounter(MetricCacheHits, map[string]string{"config": s.ConfigName()})
			s.recordOutcome(start, "cached", snap, cached)
			return cached, nil
		}
	}

	executionID := uuid.NewString()
	state := domain.With(domain.NewState(), domain.KeySnapshot, snap).
		WithExecutionContext(domain.ExecutionContext{
			ConfigName:  s.ConfigName(),
			ClassID:     classID,
			ExecutionID: executionID,
		})

	out, err := s.compiled.Graph.Execute(ctx, state)
	if err != nil {
		s.recordOutcome(start, "error", snap, domain.Report{})
		s.logger.Error("report generation failed",
			"class_id", classID,
			"execution_id", executionID,
			"error", err,
		)
		return domain.Report{}, fmt.Errorf("generate report: %w", err)
	}

	report := s.assemble(snap, out)

	if cacheable {
		if err := s.cache.Set(ctx, key, report, s.compiled.Config.Cache.TTL()); err != nil {
			s.logger.Warn("report cache write failed", "class_id", classID, "key", key, "error", err)
		}
	}

	s.recordOutcome(start, "success", snap, report)
	s.logger.Debug("report generated",
		"class_id", classID,
		"execution_id", executionID,
		"report_id", report.ID,
		"elapsed", time.Since(start),
	)

	return report, nil
}

// assemble reads the outputs of the graph from state. Outputs the
// configuration does not compute stay at their zero value.
func (s *ReportService) assemble(snap *domain.Snapshot, state domain.State) domain.Report {
	report := domain.Report{
		ID:            uuid.NewString(),
		ClassID:       snap.Class().ID,
		ClassName:     snap.Class().Name,
		Curriculum:    snap.Curriculum(),
		LevelKnown:    snap.LevelKnown(),
		TotalStudents: snap.Len(),
		ConfigName:    s.ConfigName(),
		GeneratedAt:   s.now().UTC(),
	}

	if aggs, ok := domain.Get(state, domain.KeyAggregates); ok {
		report.Aggregates = aggs
	}
	if ranks, ok := domain.Get(state, domain.KeyClassRanks); ok {
		report.ClassRanks = ranks
	}
	if palmares, ok := domain.Get(state, domain.KeyPalmares); ok {
		report.Palmares = palmares
	}
	if groups, ok := domain.Get(state, domain.KeySubjectGroups); ok {
		report.SubjectGroups = groups
	}
	if repechages, ok := domain.Get(state, domain.KeyRepechages); ok {
		report.Repechages = repechages
	}

	return report
}

// cacheKey returns the cache key of snap and whether the report can be
// cached at all.
func (s *ReportService) cacheKey(snap *domain.Snapshot) (string, bool) {
	cfg := s.compiled.Config.Cache
	if s.cache == nil || !cfg.Enabled {
		return "", false
	}

	digest, err := SnapshotDigest(snap)
	if err != nil {
		s.logger.Warn("snapshot digest failed, skipping cache", "class_id", snap.Class().ID, "error", err)
		return "", false
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bulletin"
	}
	return fmt.Sprintf("%s:report:%s:%s:%s", prefix, snap.Class().ID, digest, s.compiled.Hash), true
}

func (s *ReportService) recordCounter(metric string, labels map[string]string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCounter(metric, 1, labels)
}

func (s *ReportService) recordOutcome(start time.Time, status string, snap *domain.Snapshot, report domain.Report) {
	if s.metrics == nil {
		return
	}

	labels := map[string]string{"config": s.ConfigName(), "status": status}
	s.metrics.RecordLatency(MetricReportDuration, time.Since(start), labels)
	s.metrics.RecordCounter(MetricReports, 1, labels)

	if status == "error" {
		return
	}

	classLabels := map[string]string{"class_id": string(snap.Class().ID)}
	s.metrics.RecordGauge(MetricClassSize, float64(snap.Len()), classLabels)
	if report.Palmares.Group != "" {
		stats := report.Palmares.Stats
		s.metrics.RecordGauge(MetricRanked, float64(stats.Total-stats.Unranked), classLabels)
		s.metrics.RecordGauge(MetricUnranked, float64(stats.Unranked), classLabels)

		groupLabels := map[string]string{"group": string(report.Palmares.Group)}
		for _, row := range report.Palmares.Students {
			if !row.Unranked {
				s.metrics.RecordHistogram(MetricPercentage, row.Percentage, groupLabels)
			}
		}
	}
}
