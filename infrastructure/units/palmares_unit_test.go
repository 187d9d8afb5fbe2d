package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/testutils"
)

func TestNewPalmaresUnit(t *testing.T) {
	tests := []struct {
		name      string
		unitName  string
		config    PalmaresConfig
		wantError string
	}{
		{name: "semester", unitName: "palmares", config: PalmaresConfig{Group: domain.GroupSem1}},
		{name: "single period", unitName: "palmares", config: PalmaresConfig{Group: domain.GroupExam2, ExcludeAbandoned: true}},
		{name: "default configuration", unitName: "palmares", config: DefaultPalmaresConfig()},
		{name: "empty unit name", unitName: "", config: DefaultPalmaresConfig(), wantError: "unit name cannot be empty"},
		{name: "unknown group", unitName: "palmares", config: PalmaresConfig{Group: "SEM3"}, wantError: "periodgroup"},
		{name: "missing group", unitName: "palmares", config: PalmaresConfig{}, wantError: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewPalmaresUnit(tt.unitName, tt.config)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				assert.Nil(t, unit)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, unit.Validate())
		})
	}
}

// TestPalmaresUnit_Execute verifies the leaderboard stored in state.
func TestPalmaresUnit_Execute(t *testing.T) {
	snap := testutils.ThreeStudentClass().Build(t)
	unit, err := NewPalmaresUnit("palmares", PalmaresConfig{Group: domain.GroupSem1})
	require.NoError(t, err)

	out, err := unit.Execute(context.Background(), stateFor(snap))
	require.NoError(t, err)

	p, ok := domain.Get(out, domain.KeyPalmares)
	require.True(t, ok)
	assert.Equal(t, domain.GroupSem1, p.Group)
	require.Len(t, p.Students, 3)
	assert.Equal(t, domain.StudentID("a"), p.Students[0].Student.ID)
	assert.Equal(t, 1, p.Students[0].Rank)
	assert.Equal(t, domain.MentionExcellent, p.Students[0].Mention)
	assert.True(t, p.Students[2].Unranked)
	assert.Equal(t, domain.PalmaresStats{Total: 3, Passed: 2, Failed: 0, Unranked: 1}, p.Stats)
}

// TestPalmaresUnit_ExcludeAbandoned verifies that abandoned students can
// be left out of the list.
func TestPalmaresUnit_ExcludeAbandoned(t *testing.T) {
	snap := testutils.ThreeStudentClass().
		WithStudent(domain.Student{ID: "d", LastName: "Dunia", FirstName: "Dan", Abandoned: true}).
		Grades("d", "math", 20, 20, 20).
		Build(t)

	unit, err := CreatePalmaresUnit("palmares", map[string]any{"group": "SEM1", "exclude_abandoned": true})
	require.NoError(t, err)

	out, err := unit.Execute(context.Background(), stateFor(snap))
	require.NoError(t, err)

	p, ok := domain.Get(out, domain.KeyPalmares)
	require.True(t, ok)
	require.Len(t, p.Students, 3)
	for _, s := range p.Students {
		assert.NotEqual(t, domain.StudentID("d"), s.Student.ID)
	}
	assert.Equal(t, 4, p.Stats.Total)
}

// TestPalmaresUnit_UnmarshalParameters verifies strict YAML decoding.
func TestPalmaresUnit_UnmarshalParameters(t *testing.T) {
	base, err := NewPalmaresUnit("palmares", DefaultPalmaresConfig())
	require.NoError(t, err)

	unit, err := base.UnmarshalParameters(yamlNode(t, "group: P3\nexclude_abandoned: true"))
	require.NoError(t, err)
	assert.Equal(t, PalmaresConfig{Group: domain.GroupP3, ExcludeAbandoned: true}, unit.config)
	assert.Equal(t, domain.GroupAnnual, base.config.Group)

	_, err = base.UnmarshalParameters(yamlNode(t, "group: P3\nexclude: true"))
	assert.ErrorContains(t, err, "check for typos")

	_, err = base.UnmarshalParameters(yamlNode(t, "group: P9"))
	assert.ErrorContains(t, err, "parameter validation failed")

	_, err = base.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
