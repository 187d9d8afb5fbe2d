package engine

import (
	"fmt"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// RepechagePoints converts a make-up exam percentage into points on the
// scale of the subject's whole year: percentage * (sum of the six
// declared maxima) / 100, rounded to one decimal. A subject without
// maxima yields 0.
func RepechagePoints(subject domain.Subject, percentage float64) float64 {
	total := subject.Maxima.Total()
	if total <= 0 {
		return 0
	}
	return domain.Round1(percentage * total / 100)
}

// Repechages converts every repêchage recorded in snap into points, in
// snapshot order. A repêchage for an unknown subject is an error.
func Repechages(snap *domain.Snapshot) ([]domain.RepechageResult, error) {
	recs := snap.Repechages()
	out := make([]domain.RepechageResult, 0, len(recs))
	for _, r := range recs {
		sub, ok := snap.Subject(r.SubjectID)
		if !ok {
			return nil, fmt.Errorf("repechage for student %q references unknown subject %q", r.StudentID, r.SubjectID)
		}
		out = append(out, ConvertRepechage(sub, r))
	}
	return out, nil
}

// ConvertRepechage expresses r in points of subject.
func ConvertRepechage(subject domain.Subject, r domain.Repechage) domain.RepechageResult {
	return domain.RepechageResult{
		StudentID:  r.StudentID,
		SubjectID:  r.SubjectID,
		Label:      subject.Label(),
		Percentage: r.Percentage,
		Points:     RepechagePoints(subject, r.Percentage),
		Max:        subject.Maxima.Total(),
	}
}
