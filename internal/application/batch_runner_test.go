package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/testutils"
)

// fakeGenerator fails for the classes in fail and tracks how many calls
// run at once.
type fakeGenerator struct {
	fail    map[domain.ClassID]error
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (g *fakeGenerator) Generate(ctx context.Context, snap *domain.Snapshot) (domain.Report, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return domain.Report{}, ctx.Err()
		}
	}

	if err := g.fail[snap.Class().ID]; err != nil {
		return domain.Report{}, err
	}
	return domain.Report{ClassID: snap.Class().ID, TotalStudents: snap.Len()}, nil
}

func classSnapshots(t *testing.T, ids ...string) []*domain.Snapshot {
	t.Helper()
	snaps := make([]*domain.Snapshot, 0, len(ids))
	for _, id := range ids {
		snaps = append(snaps, testutils.NewSnapshotBuilder(id, testutils.LevelSecondary).
			Student("s1", "Ilunga", "Jean").
			Subject("math", "Mathématiques", testutils.UniformMaxima(20)).
			Grades("s1", "math", 12).
			Build(t))
	}
	return snaps
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

// TestBatchRunner_Run verifies ordering and per-class error collection.
func TestBatchRunner_Run(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name       string
		ids        []string
		fail       map[domain.ClassID]error
		wantFailed []domain.ClassID
	}{
		{
			name: "all classes succeed",
			ids:  []string{"c1", "c2", "c3", "c4", "c5"},
		},
		{
			name:       "one class fails",
			ids:        []string{"c1", "c2", "c3"},
			fail:       map[domain.ClassID]error{"c2": errBoom},
			wantFailed: []domain.ClassID{"c2"},
		},
		{
			name:       "every class fails",
			ids:        []string{"c1", "c2"},
			fail:       map[domain.ClassID]error{"c1": errBoom, "c2": errBoom},
			wantFailed: []domain.ClassID{"c1", "c2"},
		},
		{
			name: "empty batch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			runner := NewBatchRunner(&fakeGenerator{fail: tt.fail, delay: time.Millisecond}, 2, quietLogger(&logs))

			results, err := runner.Run(context.Background(), classSnapshots(t, tt.ids...))
			require.Len(t, results, len(tt.ids))

			var failed []domain.ClassID
			for i, r := range results {
				assert.Equal(t, domain.ClassID(tt.ids[i]), r.ClassID, "results keep input order")
				if r.Err != nil {
					failed = append(failed, r.ClassID)
					continue
				}
				assert.Equal(t, r.ClassID, r.Report.ClassID)
			}
			assert.Equal(t, tt.wantFailed, failed)

			if len(tt.wantFailed) == 0 {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, errBoom)
				for _, id := range tt.wantFailed {
					assert.Contains(t, err.Error(), "class "+string(id))
				}
				assert.Contains(t, logs.String(), "class report failed")
			}
			assert.Contains(t, logs.String(), "batch finished")
		})
	}
}

// TestBatchRunner_NilSnapshot verifies that a nil entry fails alone.
func TestBatchRunner_NilSnapshot(t *testing.T) {
	snaps := classSnapshots(t, "c1", "c2")
	snaps = append(snaps[:1], nil, snaps[1])

	runner := NewBatchRunner(&fakeGenerator{}, 0, quietLogger(&bytes.Buffer{}))
	results, err := runner.Run(context.Background(), snaps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot 1 is nil")

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

// TestBatchRunner_ConcurrencyLimit verifies that no more than the
// configured number of classes run at once.
func TestBatchRunner_ConcurrencyLimit(t *testing.T) {
	gen := &fakeGenerator{delay: 5 * time.Millisecond}
	runner := NewBatchRunner(gen, 3, quietLogger(&bytes.Buffer{}))

	_, err := runner.Run(context.Background(), classSnapshots(t, "c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9"))
	require.NoError(t, err)
	assert.LessOrEqual(t, gen.maxSeen.Load(), int32(3))
	assert.GreaterOrEqual(t, gen.maxSeen.Load(), int32(1))
}

// TestBatchRunner_Cancelled verifies that a cancelled context fails the
// classes that have not run.
func TestBatchRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewBatchRunner(&fakeGenerator{delay: time.Second}, 1, quietLogger(&bytes.Buffer{}))
	results, err := runner.Run(ctx, classSnapshots(t, "c1", "c2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

// TestBatchRunner_WithReportService runs real reports through the batch.
func TestBatchRunner_WithReportService(t *testing.T) {
	service, err := NewReportService(compile(t, semesterReportYAML), WithLogger(quietLogger(&bytes.Buffer{})))
	require.NoError(t, err)

	snaps := []*domain.Snapshot{
		testutils.ThreeStudentClass().Build(t),
		testutils.PrimaryClass().Build(t),
	}

	results, err := NewBatchRunner(service, 2, quietLogger(&bytes.Buffer{})).Run(context.Background(), snaps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].Report.TotalStudents)
	assert.Equal(t, domain.Primary, results[1].Report.Curriculum)

	t.Run("failures name the class once", func(t *testing.T) {
		lookup, err := NewReportService(compile(t, `
version: "1.0.0"
metadata:
  name: lookup
units:
  - id: ranks
    type: student_ranks
graph: {}
`), WithLogger(quietLogger(&bytes.Buffer{})))
		require.NoError(t, err)

		results, err := NewBatchRunner(lookup, 1, quietLogger(&bytes.Buffer{})).Run(context.Background(), snaps[:1])
		require.Error(t, err)
		require.Len(t, results, 1)
		assert.Error(t, results[0].Err)
		assert.Equal(t, 1, strings.Count(err.Error(), "class c1:"), err.Error())
	})
}
