package domain

import (
	"fmt"
	"strings"
)

// Period is one of the six atomic grading windows of a school year.
// The zero value is P1; periods compare in calendar order.
type Period int

// The six atomic periods, in the fixed order in which they are graded.
const (
	P1 Period = iota
	P2
	Exam1
	P3
	P4
	Exam2
)

var periodCodes = [...]string{"P1", "P2", "EXAM1", "P3", "P4", "EXAM2"}

// Periods returns the six atomic periods in calendar order.
func Periods() []Period {
	return []Period{P1, P2, Exam1, P3, P4, Exam2}
}

// String returns the period code as stored by the grade book (e.g. "EXAM1").
func (p Period) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodCodes[p]
}

// Valid reports whether p is one of the six atomic periods.
func (p Period) Valid() bool { return p >= P1 && p <= Exam2 }

// IsExam reports whether p closes a semester.
func (p Period) IsExam() bool { return p == Exam1 || p == Exam2 }

// conductIndex maps a non-exam period to its conduct slot (0..3).
// Exams carry no conduct rating and return -1.
func (p Period) conductIndex() int {
	switch p {
	case P1:
		return 0
	case P2:
		return 1
	case P3:
		return 2
	case P4:
		return 3
	default:
		return -1
	}
}

// ParsePeriod converts a period code into a Period. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParsePeriod(s string) (Period, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for i, c := range periodCodes {
		if c == code {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPeriod, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PeriodGroup names a set of periods that are aggregated together:
// a single period, a semester, or the whole year.
type PeriodGroup string

// Supported period groups.
const (
	GroupP1     PeriodGroup = "P1"
	GroupP2     PeriodGroup = "P2"
	GroupExam1  PeriodGroup = "EXAM1"
	GroupSem1   PeriodGroup = "SEM1"
	GroupP3     PeriodGroup = "P3"
	GroupP4     PeriodGroup = "P4"
	GroupExam2  PeriodGroup = "EXAM2"
	GroupSem2   PeriodGroup = "SEM2"
	GroupAnnual PeriodGroup = "ANNUAL"
)

// PeriodGroups returns every supported group in report-column order.
func PeriodGroups() []PeriodGroup {
	return []PeriodGroup{
		GroupP1, GroupP2, GroupExam1, GroupSem1,
		GroupP3, GroupP4, GroupExam2, GroupSem2,
		GroupAnnual,
	}
}

// Periods returns the atomic periods of the group in calendar order.
// An unknown group has no periods.
func (g PeriodGroup) Periods() []Period {
	switch g {
	case GroupP1:
		return []Period{P1}
	case GroupP2:
		return []Period{P2}
	case GroupExam1:
		return []Period{Exam1}
	case GroupP3:
		return []Period{P3}
	case GroupP4:
		return []Period{P4}
	case GroupExam2:
		return []Period{Exam2}
	case GroupSem1:
		return []Period{P1, P2, Exam1}
	case GroupSem2:
		return []Period{P3, P4, Exam2}
	case GroupAnnual:
		return Periods()
	default:
		return nil
	}
}

// Valid reports whether g is a supported group.
func (g PeriodGroup) Valid() bool { return len(g.Periods()) > 0 }

// IsAtomic reports whether g covers exactly one period.
func (g PeriodGroup) IsAtomic() bool { return len(g.Periods()) == 1 }

// ParsePeriodGroup converts a group name such as "sem1" into a PeriodGroup.
func ParsePeriodGroup(s string) (PeriodGroup, error) {
	g := PeriodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriodGroup, s)
	}
	return g, nil
}

// Column identifies one of the nine rank columns of a report card.
type Column string

// The rank columns, in the order they appear on a report card.
const (
	ColP1   Column = "p1"
	ColP2   Column = "p2"
	ColEx1  Column = "ex1"
	ColTot1 Column = "tot1"
	ColP3   Column = "p3"
	ColP4   Column = "p4"
	ColEx2  Column = "ex2"
	ColTot2 Column = "tot2"
	ColTG   Column = "tg"
)

var columnGroups = map[Column]PeriodGroup{
	ColP1:   GroupP1,
	ColP2:   GroupP2,
	ColEx1:  GroupExam1,
	ColTot1: GroupSem1,
	ColP3:   GroupP3,
	ColP4:   GroupP4,
	ColEx2:  GroupExam2,
	ColTot2: GroupSem2,
	ColTG:   GroupAnnual,
}

// Columns returns the nine rank columns in report-card order.
func Columns() []Column {
	return []Column{ColP1, ColP2, ColEx1, ColTot1, ColP3, ColP4, ColEx2, ColTot2, ColTG}
}

// Group returns the period group aggregated by the column.
func (c Column) Group() PeriodGroup { return columnGroups[c] }

// Valid reports whether c is one of the nine rank columns.
func (c Column) Valid() bool {
	_, ok := columnGroups[c]
	return ok
}

// ColumnFor returns the rank column that aggregates g.
func ColumnFor(g PeriodGroup) (Column, bool) {
	for c, cg := range columnGroups {
		if cg == g {
			return c, true
		}
	}
	return "", false
}
