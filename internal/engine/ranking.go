package engine

import (
	"fmt"
	"sort"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// tolerance absorbs floating-point noise when comparing totals built
// from decimal grades.
const tolerance = 1e-9

type rankEntry struct {
	id    domain.StudentID
	value float64
}

// RankTable holds, for every rank column, the students sorted once by
// descending total. Both rank modes read from the same sorted order, so
// ranking a whole class costs one sort per column instead of one per
// student and column.
//
// Students whose score for a column is absent are left out of that
// column's order and receive rank 0.
type RankTable struct {
	total       int
	order       map[domain.Column][]rankEntry
	unranked    map[domain.Column][]domain.StudentID
	ordinal     map[domain.Column]map[domain.StudentID]int
	competition map[domain.Column]map[domain.StudentID]int
	students    []domain.StudentID
	known       map[domain.StudentID]struct{}
}

// NewRankTable sorts the aggregates of a class for every rank column.
// Ties keep the aggregates' order, which makes the table deterministic
// for a given snapshot.
func NewRankTable(aggs []domain.StudentAggregate) *RankTable {
	cols := domain.Columns()
	t := &RankTable{
		total:       len(aggs),
		order:       make(map[domain.Column][]rankEntry, len(cols)),
		unranked:    make(map[domain.Column][]domain.StudentID, len(cols)),
		ordinal:     make(map[domain.Column]map[domain.StudentID]int, len(cols)),
		competition: make(map[domain.Column]map[domain.StudentID]int, len(cols)),
		students:    make([]domain.StudentID, 0, len(aggs)),
		known:       make(map[domain.StudentID]struct{}, len(aggs)),
	}
	for _, a := range aggs {
		t.students = append(t.students, a.StudentID)
		t.known[a.StudentID] = struct{}{}
	}

	for _, c := range cols {
		g := c.Group()
		entries := make([]rankEntry, 0, len(aggs))
		var unranked []domain.StudentID
		for _, a := range aggs {
			v, ok := a.Score(g).Obtained.Value()
			if !ok {
				unranked = append(unranked, a.StudentID)
				continue
			}
			entries = append(entries, rankEntry{id: a.StudentID, value: v})
		}

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].value > entries[j].value+tolerance
		})

		ord := make(map[domain.StudentID]int, len(entries))
		comp := make(map[domain.StudentID]int, len(entries))
		rank := 0
		for i, e := range entries {
			ord[e.id] = i + 1
			if i == 0 || e.value < entries[i-1].value-tolerance {
				rank = i + 1
			}
			comp[e.id] = rank
		}

		t.order[c] = entries
		t.unranked[c] = unranked
		t.ordinal[c] = ord
		t.competition[c] = comp
	}
	return t
}

// TotalStudents returns the number of students in the table.
func (t *RankTable) TotalStudents() int { return t.total }

// StudentRanks returns the ordinal position of one student in every
// column. Ties are not collapsed: two students with equal totals get
// consecutive ranks, in snapshot order.
func (t *RankTable) StudentRanks(id domain.StudentID) (domain.StudentRankResult, error) {
	if _, ok := t.known[id]; !ok {
		return domain.StudentRankResult{}, fmt.Errorf("%w: %q", domain.ErrStudentNotFound, id)
	}
	res := domain.StudentRankResult{StudentID: id, TotalStudents: t.total}
	for _, c := range domain.Columns() {
		res.Ranks.Set(c, t.ordinal[c][id])
	}
	return res, nil
}

// ClassRanks returns the competition ranks of every student: students
// with equal totals share a rank and the next lower total is ranked by
// its 1-based position, leaving a gap.
func (t *RankTable) ClassRanks() domain.ClassRanks {
	out := domain.ClassRanks{
		Ranks:         make(map[domain.StudentID]domain.StudentRanks, len(t.students)),
		TotalStudents: t.total,
	}
	for _, id := range t.students {
		var r domain.StudentRanks
		for _, c := range domain.Columns() {
			r.Set(c, t.competition[c][id])
		}
		out.Ranks[id] = r
	}
	return out
}

// Order returns the students of column c from strongest to weakest,
// followed by the unranked students in snapshot order.
func (t *RankTable) Order(c domain.Column) ([]domain.StudentID, error) {
	entries, ok := t.order[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownColumn, c)
	}
	out := make([]domain.StudentID, 0, t.total)
	for _, e := range entries {
		out = append(out, e.id)
	}
	return append(out, t.unranked[c]...), nil
}

// StudentRanks ranks one student of snap in every column using ordinal
// positions. Callers normally pass PolicyStrict, which leaves students
// with missing grades unranked.
func StudentRanks(snap *domain.Snapshot, id domain.StudentID, policy Policy) (domain.StudentRankResult, error) {
	table := NewRankTable(NewAggregator(snap).Aggregate(policy))
	return table.StudentRanks(id)
}

// ClassRanks builds the competition rank table of snap. Callers normally
// pass PolicyLenient, which ranks every student and places those with
// missing grades as if they scored 0 there.
func ClassRanks(snap *domain.Snapshot, policy Policy) domain.ClassRanks {
	return NewRankTable(NewAggregator(snap).Aggregate(policy)).ClassRanks()
}
