package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClassify checks every band boundary.
func TestClassify(t *testing.T) {
	tests := []struct {
		pct  float64
		want Mention
	}{
		{pct: 100, want: MentionExcellent},
		{pct: 80, want: MentionExcellent},
		{pct: 79.9, want: MentionVeryGood},
		{pct: 60, want: MentionVeryGood},
		{pct: 59.9, want: MentionGood},
		{pct: 50, want: MentionGood},
		{pct: 49.9, want: MentionPoor},
		{pct: 30, want: MentionPoor},
		{pct: 29.9, want: MentionVeryPoor},
		{pct: 0, want: MentionVeryPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.pct), "Classify(%v)", tt.pct)
	}

	assert.Equal(t, "Très bien", MentionVeryGood.Label())
	assert.Equal(t, "Médiocre", MentionVeryPoor.Label())
	assert.Empty(t, MentionNone.Label())
}

// TestSubjectFailed covers the pass mark and subjects without maxima.
func TestSubjectFailed(t *testing.T) {
	assert.True(t, SubjectFailed(9, 20))
	assert.False(t, SubjectFailed(10, 20))
	assert.False(t, SubjectFailed(0, 0), "A subject without maxima is never failed.")
}

// TestDecide verifies the precedence of palmarès decisions.
func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		abandoned bool
		unranked  bool
		pct       float64
		failed    int
		want      Decision
	}{
		{name: "abandon beats everything", abandoned: true, unranked: true, pct: 90, want: DecisionAbandoned},
		{name: "unranked", unranked: true, want: DecisionUnranked},
		{name: "below pass mark", pct: 49.9, failed: 3, want: DecisionRetake},
		{name: "passed with failures", pct: 62, failed: 1, want: DecisionPartialFailure},
		{name: "passed", pct: 50, want: DecisionPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.abandoned, tt.unranked, tt.pct, tt.failed))
		})
	}

	assert.Equal(t, "Redouble la classe", DecisionRetake.Label())
	assert.Equal(t, "Non classé", DecisionUnranked.Label())
}
