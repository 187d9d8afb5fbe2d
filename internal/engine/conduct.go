package engine

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// maxConductDistance is the largest edit distance at which a misspelt
// conduct label still maps to a code.
const maxConductDistance = 2

type conductCode struct {
	label string
	code  string
}

// The two curricula share the rating scale but print "médiocre"
// differently.
var (
	secondaryConduct = []conductCode{
		{"EXCELLENT", "E"},
		{"TRES BIEN", "TB"},
		{"BIEN", "B"},
		{"MAUVAIS", "Ma"},
		{"MEDIOCRE", "Me"},
	}
	primaryConduct = []conductCode{
		{"EXCELLENT", "E"},
		{"TRES BIEN", "TB"},
		{"BIEN", "B"},
		{"MAUVAIS", "Ma"},
		{"MEDIOCRE", "Mé"},
	}
)

func conductVocabulary(c domain.Curriculum) []conductCode {
	if c == domain.Primary {
		return primaryConduct
	}
	return secondaryConduct
}

// normalizeConduct upper-cases a label, strips its accents, and collapses
// separators so "très-bien" and "TRES  BIEN" compare equal.
func normalizeConduct(label string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		label,
	)
	if err != nil {
		stripped = label
	}
	upper := cases.Upper(language.French).String(stripped)
	upper = strings.NewReplacer("-", " ", "_", " ").Replace(upper)
	return strings.Join(strings.Fields(upper), " ")
}

// AbbreviateConduct maps a free-text conduct rating to its printed code
// for the curriculum. Matching ignores case and accents, accepts labels
// that are already codes, and tolerates small typos. It returns "" when
// the label matches nothing.
func AbbreviateConduct(label string, c domain.Curriculum) string {
	n := normalizeConduct(label)
	if n == "" {
		return ""
	}

	vocab := conductVocabulary(c)
	for _, v := range vocab {
		if n == v.label || n == normalizeConduct(v.code) {
			return v.code
		}
	}

	best, bestDist := "", maxConductDistance+1
	for _, v := range vocab {
		if d := levenshtein.ComputeDistance(n, v.label); d < bestDist {
			best, bestDist = v.code, d
		}
	}
	return best
}

// ConductLine renders the conduct of a student over the non-exam periods
// of g, e.g. "TB / B" for a semester. Unrecognised ratings are printed as
// entered and empty ones as "-". A group made only of an exam yields "-".
func ConductLine(student domain.Student, g domain.PeriodGroup, c domain.Curriculum) string {
	var parts []string
	for _, p := range g.Periods() {
		if p.IsExam() {
			continue
		}
		raw := strings.TrimSpace(student.ConductFor(p))
		switch code := AbbreviateConduct(raw, c); {
		case code != "":
			parts = append(parts, code)
		case raw != "":
			parts = append(parts, raw)
		default:
			parts = append(parts, "-")
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " / ")
}
