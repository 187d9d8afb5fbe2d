package engine

import (
	"fmt"
	"sort"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// GroupSubjects partitions the subjects of snap with the strategy of its
// curriculum: by domain for the primary curriculum, by maxima tuple for
// the secondary one.
func GroupSubjects(snap *domain.Snapshot) []domain.SubjectGroup {
	if snap.Curriculum() == domain.Primary {
		return GroupByDomain(snap)
	}
	return GroupByMaxima(snap)
}

// GroupByMaxima groups subjects whose six declared maxima are identical.
// Groups are ordered by ascending sum of their maxima; groups with equal
// sums keep the order in which their first subject appears.
func GroupByMaxima(snap *domain.Snapshot) []domain.SubjectGroup {
	var groups []*domain.SubjectGroup
	index := make(map[domain.Maxima]*domain.SubjectGroup)

	for _, sub := range snap.Subjects() {
		g, ok := index[sub.Maxima]
		if !ok {
			m := sub.Maxima
			g = &domain.SubjectGroup{
				Kind:   domain.GroupingByMaxima,
				Key:    maximaKey(m),
				Label:  "MAXIMA",
				Maxima: m,
			}
			index[m] = g
			groups = append(groups, g)
		}
		g.SubjectIDs = append(g.SubjectIDs, sub.ID)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Maxima.Total() < groups[j].Maxima.Total()
	})
	return fillSubtotals(snap, groups)
}

func maximaKey(m domain.Maxima) string {
	return fmt.Sprintf("%g/%g/%g/%g/%g/%g", m.P1, m.P2, m.Exam1, m.P3, m.P4, m.Exam2)
}

// GroupByDomain groups subjects by their declared domain. Known domains
// come first, ordered by display order then name. Domain ids without a
// matching record follow under UnknownDomainLabel in order of first
// appearance. Subjects without a domain close the list in a single
// uncategorised group.
func GroupByDomain(snap *domain.Snapshot) []domain.SubjectGroup {
	var known, unknown []*domain.SubjectGroup
	var other *domain.SubjectGroup
	index := make(map[domain.DomainID]*domain.SubjectGroup)

	for _, sub := range snap.Subjects() {
		if sub.DomainID == "" {
			if other == nil {
				other = &domain.SubjectGroup{
					Kind:          domain.GroupingByDomain,
					Label:         domain.UncategorizedLabel,
					Uncategorized: true,
				}
			}
			other.SubjectIDs = append(other.SubjectIDs, sub.ID)
			continue
		}

		g, ok := index[sub.DomainID]
		if !ok {
			g = &domain.SubjectGroup{
				Kind: domain.GroupingByDomain,
				Key:  string(sub.DomainID),
			}
			if d, found := snap.Domain(sub.DomainID); found {
				g.Label = d.Name
				g.DisplayOrder = d.DisplayOrder
				known = append(known, g)
			} else {
				g.Label = domain.UnknownDomainLabel
				unknown = append(unknown, g)
			}
			index[sub.DomainID] = g
		}
		g.SubjectIDs = append(g.SubjectIDs, sub.ID)
	}

	sort.SliceStable(known, func(i, j int) bool {
		if known[i].DisplayOrder != known[j].DisplayOrder {
			return known[i].DisplayOrder < known[j].DisplayOrder
		}
		return known[i].Label < known[j].Label
	})

	groups := append(known, unknown...)
	if other != nil {
		groups = append(groups, other)
	}
	return fillSubtotals(snap, groups)
}

// fillSubtotals computes the maxima and every student's obtained points
// of each group, for every period group. Each subtotal is the sum of the
// member subjects' SubjectScore, so it reconciles with the aggregation.
func fillSubtotals(snap *domain.Snapshot, groups []*domain.SubjectGroup) []domain.SubjectGroup {
	agg := NewAggregator(snap)
	students := snap.Students()
	pgs := domain.PeriodGroups()

	out := make([]domain.SubjectGroup, 0, len(groups))
	for _, g := range groups {
		g.Max = make(map[domain.PeriodGroup]float64, len(pgs))
		g.Subtotals = make(map[domain.StudentID]map[domain.PeriodGroup]domain.Points, len(students))

		members := make([]domain.Subject, 0, len(g.SubjectIDs))
		for _, id := range g.SubjectIDs {
			if sub, ok := snap.Subject(id); ok {
				members = append(members, sub)
			}
		}

		for _, pg := range pgs {
			for _, sub := range members {
				g.Max[pg] += snap.Curriculum().GroupMax(sub.Maxima, pg)
			}
		}

		for _, st := range students {
			sub := make(map[domain.PeriodGroup]domain.Points, len(pgs))
			for _, pg := range pgs {
				var total domain.Points
				for _, s := range members {
					total = total.Add(agg.SubjectScore(st.ID, s, pg).Obtained)
				}
				sub[pg] = total
			}
			g.Subtotals[st.ID] = sub
		}
		out = append(out, *g)
	}
	return out
}

// SumGroups adds the subtotals of every group for one student and period
// group. For a complete partition of the subjects it equals the lenient
// StudentScore of the student, with absent points when nothing is graded.
func SumGroups(groups []domain.SubjectGroup, student domain.StudentID, pg domain.PeriodGroup) domain.Score {
	var total domain.Score
	for _, g := range groups {
		s := g.Subtotal(student, pg)
		total.Obtained = total.Obtained.Add(s.Obtained)
		total.Max += s.Max
	}
	return total
}
