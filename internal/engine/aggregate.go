// Package engine implements the grade aggregation and ranking engine:
// period group scores under a strict or lenient policy, rank tables,
// the class palmarès, report-card subject grouping, conduct codes, and
// repêchage points. Every function is pure and synchronous; it reads an
// immutable domain.Snapshot and returns freshly allocated results, so
// calls over different snapshots can run in parallel without
// coordination.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// Policy decides how missing grades propagate into a student's score.
type Policy string

const (
	// PolicyStrict leaves a student's score absent, and the student
	// unranked, as soon as one period of one subject is ungraded.
	PolicyStrict Policy = "strict"

	// PolicyLenient counts missing grades as 0 while still counting the
	// full maximum, so every student gets a printable score.
	PolicyLenient Policy = "lenient"
)

// ErrUnknownPolicy is returned when parsing an unsupported policy name.
var ErrUnknownPolicy = errors.New("unknown aggregation policy")

// Valid reports whether p is a supported policy.
func (p Policy) Valid() bool { return p == PolicyStrict || p == PolicyLenient }

// ParsePolicy converts "strict" or "lenient" into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
	return p, nil
}

// Aggregator sums grades and maxima over period groups for one snapshot,
// using the curriculum the snapshot resolved.
type Aggregator struct {
	snap     *domain.Snapshot
	subjects []domain.Subject
}

// NewAggregator returns an Aggregator reading from snap.
func NewAggregator(snap *domain.Snapshot) *Aggregator {
	return &Aggregator{snap: snap, subjects: snap.Subjects()}
}

// SubjectScore returns a student's score in one subject over g. Obtained
// is the sum of the graded periods and is absent when none of them is
// graded. Max follows the curriculum maxima formula. Complete reports
// whether every period of g is graded.
func (a *Aggregator) SubjectScore(student domain.StudentID, subject domain.Subject, g domain.PeriodGroup) domain.Score {
	cur := a.snap.Curriculum()
	score := domain.Score{Complete: true}
	for _, p := range g.Periods() {
		pts := a.snap.Grade(student, subject.ID, p)
		score.Obtained = score.Obtained.Add(pts)
		score.Max += cur.PeriodMax(subject.Maxima, p)
		if !pts.IsSet() {
			score.Complete = false
		}
	}
	return score
}

// StudentScore returns a student's score over all subjects for g under
// policy. Under PolicyStrict the obtained points are absent unless every
// subject is complete for g. Under PolicyLenient they are always present,
// with missing grades counted as 0.
func (a *Aggregator) StudentScore(student domain.StudentID, g domain.PeriodGroup, policy Policy) domain.Score {
	var periods [6]domain.Score
	for _, p := range g.Periods() {
		periods[p] = a.periodScore(student, p)
	}
	return combine(periods, g, policy)
}

// Aggregate computes every student's score for the nine period groups.
// Results follow the snapshot's student order.
func (a *Aggregator) Aggregate(policy Policy) []domain.StudentAggregate {
	students := a.snap.Students()
	out := make([]domain.StudentAggregate, 0, len(students))
	for _, st := range students {
		out = append(out, a.aggregateStudent(st.ID, policy))
	}
	return out
}

// AggregateStudent computes one student's scores for the nine period
// groups.
func (a *Aggregator) AggregateStudent(student domain.StudentID, policy Policy) (domain.StudentAggregate, error) {
	if _, ok := a.snap.Student(student); !ok {
		return domain.StudentAggregate{}, fmt.Errorf("%w: %q", domain.ErrStudentNotFound, student)
	}
	return a.aggregateStudent(student, policy), nil
}

func (a *Aggregator) aggregateStudent(student domain.StudentID, policy Policy) domain.StudentAggregate {
	var periods [6]domain.Score
	for _, p := range domain.Periods() {
		periods[p] = a.periodScore(student, p)
	}

	groups := domain.PeriodGroups()
	agg := domain.StudentAggregate{
		StudentID: student,
		Scores:    make(map[domain.PeriodGroup]domain.Score, len(groups)),
	}
	for _, g := range groups {
		agg.Scores[g] = combine(periods, g, policy)
	}
	return agg
}

// periodScore sums one period over every subject. Obtained holds the sum
// of the graded subjects and is absent only when no subject is graded.
func (a *Aggregator) periodScore(student domain.StudentID, p domain.Period) domain.Score {
	cur := a.snap.Curriculum()
	score := domain.Score{Complete: true}
	for _, sub := range a.subjects {
		pts := a.snap.Grade(student, sub.ID, p)
		score.Obtained = score.Obtained.Add(pts)
		score.Max += cur.PeriodMax(sub.Maxima, p)
		if !pts.IsSet() {
			score.Complete = false
		}
	}
	return score
}

func combine(periods [6]domain.Score, g domain.PeriodGroup, policy Policy) domain.Score {
	total := domain.Score{Complete: true}
	var obtained float64
	for _, p := range g.Periods() {
		ps := periods[p]
		obtained += ps.Obtained.OrZero()
		total.Max += ps.Max
		total.Complete = total.Complete && ps.Complete
	}

	if policy == PolicyStrict && !total.Complete {
		total.Obtained = domain.Ungraded()
		return total
	}
	total.Obtained = domain.Graded(obtained)
	return total
}
