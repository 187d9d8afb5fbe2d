package ports

import (
	"context"
	"time"
)

// CacheStore keeps computed reports between runs. A report depends only
// on its snapshot and configuration, so a store that loses entries costs
// a recomputation and nothing else.
type CacheStore interface {
	// Get decodes the value stored under key into dest, a pointer. It
	// reports false with a nil error on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key. An expiration of zero keeps the entry
	// until it is deleted.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the store.
	Clear(ctx context.Context) error
}

// MetricsCollector receives the measurements of report runs: latencies
// per operation, report and cache counters, class gauges, and the
// distribution of palmarès percentages.
type MetricsCollector interface {
	RecordLatency(operation string, duration time.Duration, labels map[string]string)
	RecordCounter(metric string, value float64, labels map[string]string)
	RecordGauge(metric string, value float64, labels map[string]string)
	RecordHistogram(metric string, value float64, labels map[string]string)
}
