package engine

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// PalmaresOptions selects what a palmarès covers.
type PalmaresOptions struct {
	// Group is the period group the students are ranked on.
	Group domain.PeriodGroup
	// ExcludeAbandoned leaves students who abandoned out of the list.
	ExcludeAbandoned bool
}

type palmaresRow struct {
	row   domain.RankedStudent
	ratio float64
	name  string
}

// BuildPalmares ranks the students of snap on opts.Group under the
// strict policy.
//
// For each student the subjects are walked in snapshot order; the first
// missing grade marks the student unranked and stops the walk, keeping
// the subject lines collected so far. Ranked students are sorted by
// descending percentage, then alphabetically (French collation, ignoring
// case and accents) on last name, post-name, and first name, and ranked
// 1..n. Unranked students follow in snapshot order with rank 0.
func BuildPalmares(snap *domain.Snapshot, opts PalmaresOptions) (domain.Palmares, error) {
	if !opts.Group.Valid() {
		return domain.Palmares{}, domain.ErrUnknownPeriodGroup
	}

	cur := snap.Curriculum()
	subjects := snap.Subjects()
	periods := opts.Group.Periods()

	var ranked, unranked []palmaresRow
	for _, st := range snap.Students() {
		if opts.ExcludeAbandoned && st.Abandoned {
			continue
		}

		row := domain.RankedStudent{
			Student:        st,
			FailedSubjects: []string{},
			Subjects:       []domain.SubjectResult{},
			Conduct:        ConductLine(st, opts.Group, cur),
		}
		var obtained, maxPoints float64
		complete := true

	subjectLoop:
		for _, sub := range subjects {
			var subObtained, subMax float64
			for _, p := range periods {
				v, ok := snap.Grade(st.ID, sub.ID, p).Value()
				if !ok {
					complete = false
					break subjectLoop
				}
				subObtained += v
				subMax += cur.PeriodMax(sub.Maxima, p)
			}

			obtained += subObtained
			maxPoints += subMax
			failed := domain.SubjectFailed(subObtained, subMax)
			if failed {
				row.FailedSubjects = append(row.FailedSubjects, sub.Label())
			}
			row.Subjects = append(row.Subjects, domain.SubjectResult{
				SubjectID:  sub.ID,
				Label:      sub.Label(),
				Obtained:   subObtained,
				Max:        subMax,
				Percentage: domain.Percentage(subObtained, subMax),
				Failed:     failed,
			})
		}

		if !complete {
			row.Unranked = true
			row.Mention = domain.MentionNone
			row.Decision = domain.Decide(st.Abandoned, true, 0, 0)
			unranked = append(unranked, palmaresRow{row: row})
			continue
		}

		var ratio float64
		if maxPoints > 0 {
			ratio = obtained / maxPoints
		}
		row.Obtained = obtained
		row.Max = maxPoints
		row.Percentage = domain.Percentage(obtained, maxPoints)
		row.Mention = domain.Classify(row.Percentage)
		row.Decision = domain.Decide(st.Abandoned, false, row.Percentage, len(row.FailedSubjects))
		ranked = append(ranked, palmaresRow{row: row, ratio: ratio, name: st.SortName()})
	}

	col := collate.New(language.French, collate.Loose)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ratio != b.ratio {
			return a.ratio > b.ratio
		}
		return col.CompareString(a.name, b.name) < 0
	})

	out := domain.Palmares{
		Group:    opts.Group,
		Students: make([]domain.RankedStudent, 0, len(ranked)+len(unranked)),
		Stats: domain.PalmaresStats{
			Total:    snap.Len(),
			Unranked: len(unranked),
		},
	}
	for i, r := range ranked {
		r.row.Rank = i + 1
		if domain.Passed(r.row.Percentage) {
			out.Stats.Passed++
		} else {
			out.Stats.Failed++
		}
		out.Students = append(out.Students, r.row)
	}
	for _, r := range unranked {
		out.Students = append(out.Students, r.row)
	}
	return out, nil
}
