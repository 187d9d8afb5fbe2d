package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/testutils"
)

func groupMembers(groups []domain.SubjectGroup) [][]domain.SubjectID {
	out := make([][]domain.SubjectID, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.SubjectIDs)
	}
	return out
}

// TestGroupByMaxima verifies that groups are ordered by the sum of their
// maxima and that equal sums keep the order of first appearance.
func TestGroupByMaxima(t *testing.T) {
	snap := testutils.NewSnapshotBuilder("c1", testutils.LevelSecondary).
		Student("a", "Amani", "Alice").
		Subject("s1", "Mathématiques", testutils.UniformMaxima(20)).
		Subject("s2", "Religion", testutils.UniformMaxima(10)).
		Subject("s3", "Physique", testutils.UniformMaxima(20)).
		Subject("s4", "Histoire", domain.Maxima{P1: 10, P2: 10, Exam1: 20, P3: 10, P4: 10, Exam2: 20}).
		Subject("s5", "Stage", domain.Maxima{P1: 20, P2: 20, Exam1: 20}).
		Grades("a", "s1", 10, 12).
		Grades("a", "s3", 15).
		Build(t)

	groups := GroupSubjects(snap)
	require.Len(t, groups, 4)
	assert.Equal(t, [][]domain.SubjectID{{"s2"}, {"s5"}, {"s4"}, {"s1", "s3"}}, groupMembers(groups))

	for _, g := range groups {
		assert.Equal(t, domain.GroupingByMaxima, g.Kind)
		assert.Equal(t, "MAXIMA", g.Label)
	}
	assert.Equal(t, "10/10/10/10/10/10", groups[0].Key)

	big := groups[3]
	assert.Equal(t, testutils.UniformMaxima(20), big.Maxima)
	assert.Equal(t, 40.0, big.Max[domain.GroupP1])
	assert.Equal(t, 240.0, big.Max[domain.GroupAnnual])
	assert.Equal(t, domain.Graded(25), big.Subtotals["a"][domain.GroupP1])
	assert.Equal(t, domain.Graded(37), big.Subtotals["a"][domain.GroupSem1])
	assert.False(t, big.Subtotals["a"][domain.GroupSem2].IsSet(), "A group without grades should have an absent subtotal.")
	assert.False(t, groups[0].Subtotal("a", domain.GroupP1).Obtained.IsSet())
}

// TestGroupByDomain verifies the domain order of a primary class and the
// placement of unknown and missing domains.
func TestGroupByDomain(t *testing.T) {
	snap := testutils.PrimaryClass().Build(t)

	groups := GroupSubjects(snap)
	require.Len(t, groups, 4)

	labels := make([]string, 0, len(groups))
	for _, g := range groups {
		labels = append(labels, g.Label)
		assert.Equal(t, domain.GroupingByDomain, g.Kind)
	}
	assert.Equal(t, []string{"Sciences", "Langues", domain.UnknownDomainLabel, domain.UncategorizedLabel}, labels)
	assert.Equal(t, [][]domain.SubjectID{{"calc", "svt"}, {"fr"}, {"mus"}, {"dess"}}, groupMembers(groups))
	assert.Equal(t, "ghost", groups[2].Key)
	assert.True(t, groups[3].Uncategorized)

	sci := groups[0]
	assert.Equal(t, 80.0, sci.Max[domain.GroupSem1], "Two subjects worth 10+10+20 each.")
	assert.Equal(t, domain.Graded(51), sci.Subtotals["p"][domain.GroupSem1])
	assert.Equal(t, domain.Graded(31), sci.Subtotals["q"][domain.GroupSem1])
	assert.False(t, sci.Subtotals["q"][domain.GroupSem2].IsSet())

	mus := groups[2]
	assert.False(t, mus.Subtotal("q", domain.GroupSem1).Obtained.IsSet(), "Q has no music grade.")
	assert.Equal(t, domain.Graded(20), mus.Subtotal("p", domain.GroupSem1).Obtained)
}

// TestGroupByDomain_SameOrder verifies that domains with the same display
// order fall back to their name.
func TestGroupByDomain_SameOrder(t *testing.T) {
	m := domain.Maxima{P1: 10, Exam1: 20}
	snap := testutils.NewSnapshotBuilder("c8", "8ème").
		Domain("z", "Zoologie", 1).
		Domain("a", "Arts", 1).
		SubjectInDomain("s1", "Faune", "z", m).
		SubjectInDomain("s2", "Peinture", "a", m).
		Build(t)

	groups := GroupSubjects(snap)
	require.Len(t, groups, 2)
	assert.Equal(t, "Arts", groups[0].Label)
	assert.Equal(t, "Zoologie", groups[1].Label)
}

// TestSumGroups_ReconcilesWithAggregation checks, over generated classes,
// that the group subtotals of a student add up to the lenient total.
func TestSumGroups_ReconcilesWithAggregation(t *testing.T) {
	for _, level := range []string{testutils.LevelPrimary, testutils.LevelSecondary} {
		for seed := int64(1); seed <= 3; seed++ {
			cfg := testutils.DefaultClassGenConfig()
			cfg.Level = level
			cfg.Students = 8
			cfg.MissingRate = 0.15
			snap, err := domain.NewSnapshot(testutils.GenerateClassSnapshot(cfg, seed))
			require.NoError(t, err)

			groups := GroupSubjects(snap)
			var count int
			for _, g := range groups {
				count += len(g.SubjectIDs)
			}
			require.Equal(t, len(snap.Subjects()), count, "Every subject should be in exactly one group.")

			agg := NewAggregator(snap)
			for _, st := range snap.Students() {
				for _, pg := range domain.PeriodGroups() {
					want := agg.StudentScore(st.ID, pg, PolicyLenient)
					got := SumGroups(groups, st.ID, pg)
					assert.InDelta(t, want.Obtained.OrZero(), got.Obtained.OrZero(), 1e-6,
						"%s %s %s subtotal mismatch.", level, st.ID, pg)
					assert.InDelta(t, want.Max, got.Max, 1e-6)
				}
			}
		}
	}
}

// TestGroupSubjects_NoSubjects verifies that a class without subjects has
// no groups.
func TestGroupSubjects_NoSubjects(t *testing.T) {
	snap := testutils.NewSnapshotBuilder("c1", testutils.LevelSecondary).
		Student("a", "Amani", "Alice").
		Build(t)

	assert.Empty(t, GroupSubjects(snap))
	assert.Equal(t, domain.Score{}, SumGroups(nil, "a", domain.GroupAnnual))
}
