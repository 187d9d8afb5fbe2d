package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/engine"
	"github.com/cloudecole/go-bulletin/internal/testutils"
)

// TestClassRanksUnit_Execute verifies the competition ranks stored for the
// whole class.
func TestClassRanksUnit_Execute(t *testing.T) {
	snap := testutils.ThreeStudentClass().Build(t)
	unit, err := NewClassRanksUnit("classranks", DefaultClassRanksConfig())
	require.NoError(t, err)

	out, err := unit.Execute(context.Background(), stateFor(snap))
	require.NoError(t, err)

	ranks, ok := domain.Get(out, domain.KeyClassRanks)
	require.True(t, ok)
	assert.Equal(t, 3, ranks.TotalStudents)
	assert.Equal(t, 1, ranks.Ranks["a"].P1)
	assert.Equal(t, 2, ranks.Ranks["b"].P1)
	assert.Equal(t, 3, ranks.Ranks["c"].P1)
	assert.Equal(t, 1, ranks.Ranks["c"].Tot2, "Everybody ties on an ungraded semester.")
}

// TestClassRanksUnit_StrictPolicy verifies that the strict policy leaves
// students with missing grades unranked in the table.
func TestClassRanksUnit_StrictPolicy(t *testing.T) {
	snap := testutils.ThreeStudentClass().Build(t)
	unit, err := CreateClassRanksUnit("classranks", map[string]any{"policy": "strict"})
	require.NoError(t, err)

	out, err := unit.Execute(context.Background(), stateFor(snap))
	require.NoError(t, err)

	ranks, ok := domain.Get(out, domain.KeyClassRanks)
	require.True(t, ok)
	assert.Equal(t, 0, ranks.Ranks["c"].P1)
	assert.Equal(t, 2, ranks.Ranks["c"].P2)
}

// TestClassRanksUnit_Configuration verifies validation and parameter
// decoding.
func TestClassRanksUnit_Configuration(t *testing.T) {
	assert.Equal(t, engine.PolicyLenient, DefaultClassRanksConfig().Policy)

	_, err := NewClassRanksUnit("classranks", ClassRanksConfig{Policy: "random"})
	assert.ErrorContains(t, err, "configuration validation failed")

	unit, err := NewClassRanksUnit("classranks", DefaultClassRanksConfig())
	require.NoError(t, err)

	_, err = unit.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	strict, err := unit.UnmarshalParameters(yamlNode(t, "policy: strict"))
	require.NoError(t, err)
	assert.Equal(t, engine.PolicyStrict, strict.config.Policy)
	assert.Equal(t, engine.PolicyLenient, unit.config.Policy, "The original unit should keep its configuration.")
}
