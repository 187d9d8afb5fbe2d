package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStateError checks the message and unwrapping of StateError.
func TestStateError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StateError
		wantMsg   string
		wantCause error
	}{
		{
			name:      "missing snapshot",
			err:       MissingKey(KeySnapshot),
			wantMsg:   "state error: operation=Get, key=snapshot, err=key not found",
			wantCause: ErrKeyNotFound,
		},
		{
			name:      "missing target student",
			err:       MissingKey(KeyTargetStudent),
			wantMsg:   "state error: operation=Get, key=target_student, err=key not found",
			wantCause: ErrKeyNotFound,
		},
		{
			name:      "wrapped cause",
			err:       NewStateError(KeyPalmares.Name(), "With", ErrUnknownPeriodGroup),
			wantMsg:   "state error: operation=With, key=palmares, err=unknown period group",
			wantCause: ErrUnknownPeriodGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.wantCause)
			assert.Equal(t, tt.wantCause, errors.Unwrap(tt.err))
		})
	}
}

// TestStateError_As verifies that a StateError can be recovered from a
// wrapped unit error.
func TestStateError_As(t *testing.T) {
	err := fmt.Errorf("palmares unit: %w", MissingKey(KeyAggregates))

	var serr *StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "aggregates", serr.Key)
	assert.Equal(t, "Get", serr.Operation)
}

// TestValidationError verifies message formatting and accumulation.
func TestValidationError(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		err := NewValidationError(`snapshot of class "c1"`)
		assert.False(t, err.HasErrors())
		assert.Empty(t, err.Errors)
	})

	t.Run("single problem", func(t *testing.T) {
		err := NewValidationError(`snapshot of class "c1"`)
		err.AddError(`duplicate student id "a"`)

		assert.True(t, err.HasErrors())
		assert.Equal(t, `validation error for snapshot of class "c1": duplicate student id "a"`, err.Error())
	})

	t.Run("several problems keep their order", func(t *testing.T) {
		err := NewValidationError(`snapshot of class "c1"`)
		err.AddError(`grade for unknown student "x"`)
		err.AddError(`negative grade -2 for student "a"`)

		assert.Equal(t, []string{`grade for unknown student "x"`, `negative grade -2 for student "a"`}, err.Errors)
		assert.Contains(t, err.Error(), `validation errors for snapshot of class "c1"`)
	})
}

// TestDomainErrors checks the messages of the sentinel errors.
func TestDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrKeyNotFound, "key not found"},
		{ErrUnknownPeriod, "unknown period"},
		{ErrUnknownPeriodGroup, "unknown period group"},
		{ErrUnknownColumn, "unknown rank column"},
		{ErrUnknownCurriculum, "unknown curriculum"},
		{ErrStudentNotFound, "student not found"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}
