package domain

// PassMark is the percentage below which a subject is failed and a year
// must be repeated.
const PassMark = 50.0

// Mention is the letter-coded band ("application") of a percentage.
type Mention string

// Mention bands, strongest first.
const (
	MentionExcellent Mention = "E"
	MentionVeryGood  Mention = "TB"
	MentionGood      Mention = "B"
	MentionPoor      Mention = "Ma"
	MentionVeryPoor  Mention = "Mé"
	// MentionNone marks a student that could not be classified.
	MentionNone Mention = "-"
)

// Classify maps a percentage to its mention band.
func Classify(percentage float64) Mention {
	switch {
	case percentage >= 80:
		return MentionExcellent
	case percentage >= 60:
		return MentionVeryGood
	case percentage >= 50:
		return MentionGood
	case percentage >= 30:
		return MentionPoor
	default:
		return MentionVeryPoor
	}
}

// Label returns the French wording printed for the mention.
func (m Mention) Label() string {
	switch m {
	case MentionExcellent:
		return "Excellent"
	case MentionVeryGood:
		return "Très bien"
	case MentionGood:
		return "Bien"
	case MentionPoor:
		return "Mauvaise"
	case MentionVeryPoor:
		return "Médiocre"
	default:
		return ""
	}
}

// Passed reports whether a percentage reaches the pass mark.
func Passed(percentage float64) bool { return percentage >= PassMark }

// SubjectFailed reports whether a subject result counts as a failure:
// its percentage is below the pass mark and it has a positive maximum.
func SubjectFailed(obtained, max float64) bool {
	return max > 0 && 100*obtained/max < PassMark
}

// Decision is the observation printed next to a student on the palmarès.
type Decision string

// Palmarès decisions.
const (
	DecisionAbandoned      Decision = "abandoned"
	DecisionUnranked       Decision = "unranked"
	DecisionRetake         Decision = "retake"
	DecisionPartialFailure Decision = "partial_failure"
	DecisionPassed         Decision = "passed"
)

// Label returns the French wording of the decision.
func (d Decision) Label() string {
	switch d {
	case DecisionAbandoned:
		return "Abandon"
	case DecisionUnranked:
		return "Non classé"
	case DecisionRetake:
		return "Redouble la classe"
	case DecisionPartialFailure:
		return "Échec"
	case DecisionPassed:
		return "Passé"
	default:
		return ""
	}
}

// Decide returns the decision for a student. Abandonment takes
// precedence over every grade-based outcome.
func Decide(abandoned, unranked bool, percentage float64, failedSubjects int) Decision {
	switch {
	case abandoned:
		return DecisionAbandoned
	case unranked:
		return DecisionUnranked
	case !Passed(percentage):
		return DecisionRetake
	case failedSubjects > 0:
		return DecisionPartialFailure
	default:
		return DecisionPassed
	}
}
