package domain

import (
	"fmt"
	"strings"
)

// Curriculum selects the maxima formula, the subject grouping strategy,
// and the conduct vocabulary that apply to a class.
type Curriculum int

const (
	// Secondary is the default curriculum. Each period of a subject
	// declares its own maximum.
	Secondary Curriculum = iota
	// Primary covers the 7ème and 8ème levels. The non-exam periods of a
	// subject all share max_p1.
	Primary
)

// String returns "primary" or "secondary".
func (c Curriculum) String() string {
	if c == Primary {
		return "primary"
	}
	return "secondary"
}

// MarshalText implements encoding.TextMarshaler.
func (c Curriculum) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Curriculum) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "primary":
		*c = Primary
	case "secondary":
		*c = Secondary
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCurriculum, text)
	}
	return nil
}

var (
	primaryLevels   = []string{"7ème", "8ème"}
	secondaryLevels = []string{"1ère", "2ème", "3ème", "4ème"}
)

// CurriculumForLevel resolves the curriculum of a class level. Unknown
// levels fall back to Secondary; the second result reports whether the
// level was recognised so callers can flag bad data.
func CurriculumForLevel(level string) (Curriculum, bool) {
	l := strings.TrimSpace(level)
	for _, p := range primaryLevels {
		if strings.EqualFold(l, p) {
			return Primary, true
		}
	}
	for _, s := range secondaryLevels {
		if strings.EqualFold(l, s) {
			return Secondary, true
		}
	}
	return Secondary, false
}

// PeriodMax returns the maximum a subject contributes for p.
func (c Curriculum) PeriodMax(m Maxima, p Period) float64 {
	if c == Primary && !p.IsExam() {
		return m.P1
	}
	return m.For(p)
}

// GroupMax returns the maximum a subject contributes for every period
// of g. For the primary curriculum a semester is 2*max_p1 + exam and the
// year is 4*max_p1 + exam1 + exam2.
func (c Curriculum) GroupMax(m Maxima, g PeriodGroup) float64 {
	var total float64
	for _, p := range g.Periods() {
		total += c.PeriodMax(m, p)
	}
	return total
}
