package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePeriod covers period codes in any case and rejects unknown
// codes with ErrUnknownPeriod.
func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{in: "P1", want: P1},
		{in: "p2", want: P2},
		{in: " exam1 ", want: Exam1},
		{in: "P3", want: P3},
		{in: "P4", want: P4},
		{in: "EXAM2", want: Exam2},
		{in: "P5", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestPeriod_Properties checks ordering, exam detection, and the string
// form of every period.
func TestPeriod_Properties(t *testing.T) {
	periods := Periods()
	require.Len(t, periods, 6)

	for i := 1; i < len(periods); i++ {
		assert.Less(t, periods[i-1], periods[i], "Periods should be in calendar order.")
	}

	assert.True(t, Exam1.IsExam())
	assert.True(t, Exam2.IsExam())
	assert.False(t, P1.IsExam())
	assert.False(t, P4.IsExam())

	assert.Equal(t, "EXAM1", Exam1.String())
	assert.Equal(t, "Period(9)", Period(9).String())
	assert.False(t, Period(-1).Valid())
}

// TestPeriod_JSON verifies that periods travel as their codes.
func TestPeriod_JSON(t *testing.T) {
	raw, err := json.Marshal(Grade{StudentID: "a", SubjectID: "math", Period: Exam2, Value: 14})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"period":"EXAM2"`)

	var g Grade
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":"a","subject_id":"math","period":"p3","value":7}`), &g))
	assert.Equal(t, P3, g.Period)

	err = json.Unmarshal([]byte(`{"period":"P9"}`), &g)
	assert.ErrorIs(t, err, ErrUnknownPeriod)

	_, err = json.Marshal(Grade{Period: Period(12)})
	assert.Error(t, err, "Marshalling an invalid period should fail.")
}

// TestPeriodGroup_Periods verifies the atomic periods behind every group.
func TestPeriodGroup_Periods(t *testing.T) {
	tests := []struct {
		group  PeriodGroup
		want   []Period
		atomic bool
	}{
		{group: GroupP1, want: []Period{P1}, atomic: true},
		{group: GroupP2, want: []Period{P2}, atomic: true},
		{group: GroupExam1, want: []Period{Exam1}, atomic: true},
		{group: GroupSem1, want: []Period{P1, P2, Exam1}},
		{group: GroupP3, want: []Period{P3}, atomic: true},
		{group: GroupP4, want: []Period{P4}, atomic: true},
		{group: GroupExam2, want: []Period{Exam2}, atomic: true},
		{group: GroupSem2, want: []Period{P3, P4, Exam2}},
		{group: GroupAnnual, want: []Period{P1, P2, Exam1, P3, P4, Exam2}},
	}

	require.Len(t, PeriodGroups(), len(tests), "Every group should be covered.")
	for _, tt := range tests {
		t.Run(string(tt.group), func(t *testing.T) {
			assert.True(t, tt.group.Valid())
			assert.Equal(t, tt.want, tt.group.Periods())
			assert.Equal(t, tt.atomic, tt.group.IsAtomic())
		})
	}

	assert.False(t, PeriodGroup("SEM3").Valid())
	assert.Nil(t, PeriodGroup("SEM3").Periods())
}

// TestParsePeriodGroup covers case folding and unknown names.
func TestParsePeriodGroup(t *testing.T) {
	g, err := ParsePeriodGroup("sem1")
	require.NoError(t, err)
	assert.Equal(t, GroupSem1, g)

	g, err = ParsePeriodGroup(" Annual ")
	require.NoError(t, err)
	assert.Equal(t, GroupAnnual, g)

	_, err = ParsePeriodGroup("trimester")
	assert.ErrorIs(t, err, ErrUnknownPeriodGroup)
}

// TestColumns verifies the column to period group mapping in both
// directions.
func TestColumns(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, 9)

	seen := make(map[PeriodGroup]bool)
	for _, c := range cols {
		assert.True(t, c.Valid(), "Column %s should be valid.", c)
		g := c.Group()
		assert.True(t, g.Valid(), "Column %s should map to a valid group.", c)
		assert.False(t, seen[g], "Group %s should be mapped once.", g)
		seen[g] = true

		back, ok := ColumnFor(g)
		require.True(t, ok)
		assert.Equal(t, c, back)
	}

	assert.Equal(t, GroupSem1, ColTot1.Group())
	assert.Equal(t, GroupAnnual, ColTG.Group())
	assert.False(t, Column("tot3").Valid())

	_, ok := ColumnFor("SEM9")
	assert.False(t, ok)
}
