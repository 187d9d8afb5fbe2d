package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// TestAbbreviateConduct covers exact labels, codes, accents, separators,
// typos, and unknown values in both curricula.
func TestAbbreviateConduct(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		curriculum domain.Curriculum
		want       string
	}{
		{name: "exact label", label: "Excellent", curriculum: domain.Secondary, want: "E"},
		{name: "accents and case", label: "très bien", curriculum: domain.Secondary, want: "TB"},
		{name: "separator", label: "Tres-Bien", curriculum: domain.Secondary, want: "TB"},
		{name: "extra spaces", label: "  TRÈS   BIEN ", curriculum: domain.Secondary, want: "TB"},
		{name: "already a code", label: "tb", curriculum: domain.Secondary, want: "TB"},
		{name: "code with accent", label: "Mé", curriculum: domain.Secondary, want: "Me"},
		{name: "secondary mediocre", label: "Médiocre", curriculum: domain.Secondary, want: "Me"},
		{name: "primary mediocre", label: "Médiocre", curriculum: domain.Primary, want: "Mé"},
		{name: "primary code", label: "me", curriculum: domain.Primary, want: "Mé"},
		{name: "typo", label: "Mauvias", curriculum: domain.Secondary, want: "Ma"},
		{name: "missing letter", label: "Excelent", curriculum: domain.Primary, want: "E"},
		{name: "unknown", label: "Passable", curriculum: domain.Secondary, want: ""},
		{name: "empty", label: "   ", curriculum: domain.Secondary, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AbbreviateConduct(tt.label, tt.curriculum))
		})
	}
}

// TestConductLine verifies the conduct column of each period group.
func TestConductLine(t *testing.T) {
	st := domain.Student{
		ConductP1: "Excellent",
		ConductP2: "",
		ConductP3: "Passable",
		ConductP4: "Médiocre",
	}

	tests := []struct {
		group      domain.PeriodGroup
		curriculum domain.Curriculum
		want       string
	}{
		{group: domain.GroupP1, curriculum: domain.Secondary, want: "E"},
		{group: domain.GroupP2, curriculum: domain.Secondary, want: "-"},
		{group: domain.GroupExam1, curriculum: domain.Secondary, want: "-"},
		{group: domain.GroupSem1, curriculum: domain.Secondary, want: "E / -"},
		{group: domain.GroupSem2, curriculum: domain.Secondary, want: "Passable / Me"},
		{group: domain.GroupSem2, curriculum: domain.Primary, want: "Passable / Mé"},
		{group: domain.GroupAnnual, curriculum: domain.Secondary, want: "E / - / Passable / Me"},
	}

	for _, tt := range tests {
		t.Run(string(tt.group)+"_"+tt.curriculum.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ConductLine(st, tt.group, tt.curriculum))
		})
	}
}
