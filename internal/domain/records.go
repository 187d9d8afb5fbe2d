package domain

import "strings"

// Identifiers of the records handled by the engine.
type (
	StudentID string
	SubjectID string
	DomainID  string
	ClassID   string
)

// ClassInfo describes the class a snapshot belongs to. Level drives the
// curriculum selection.
type ClassInfo struct {
	ID      ClassID `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Level   string  `json:"level" yaml:"level"`
	Option  string  `json:"option" yaml:"option"`
	Section string  `json:"section" yaml:"section"`
}

// Student is a pupil enrolled in a class, with the conduct rating
// recorded for each of the four non-exam periods.
type Student struct {
	ID            StudentID `json:"id" yaml:"id"`
	FirstName     string    `json:"first_name" yaml:"first_name"`
	LastName      string    `json:"last_name" yaml:"last_name"`
	PostName      string    `json:"post_name,omitempty" yaml:"post_name,omitempty"`
	Gender        string    `json:"gender,omitempty" yaml:"gender,omitempty"`
	BirthDate     string    `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	Birthplace    string    `json:"birthplace,omitempty" yaml:"birthplace,omitempty"`
	ClassID       ClassID   `json:"class_id" yaml:"class_id"`
	ConductP1     string    `json:"conduct_p1,omitempty" yaml:"conduct_p1,omitempty"`
	ConductP2     string    `json:"conduct_p2,omitempty" yaml:"conduct_p2,omitempty"`
	ConductP3     string    `json:"conduct_p3,omitempty" yaml:"conduct_p3,omitempty"`
	ConductP4     string    `json:"conduct_p4,omitempty" yaml:"conduct_p4,omitempty"`
	Abandoned     bool      `json:"is_abandoned" yaml:"is_abandoned"`
	AbandonReason string    `json:"abandon_reason,omitempty" yaml:"abandon_reason,omitempty"`
}

// FullName returns the display name, last name first.
func (s Student) FullName() string {
	return joinNonEmpty(strings.ToUpper(s.LastName), strings.ToUpper(s.PostName), s.FirstName)
}

// SortName returns the key used to order students alphabetically:
// last name, then post-name, then first name.
func (s Student) SortName() string {
	return joinNonEmpty(s.LastName, s.PostName, s.FirstName)
}

// ConductFor returns the conduct rating recorded for p. Exams have none.
func (s Student) ConductFor(p Period) string {
	switch p.conductIndex() {
	case 0:
		return s.ConductP1
	case 1:
		return s.ConductP2
	case 2:
		return s.ConductP3
	case 3:
		return s.ConductP4
	default:
		return ""
	}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Maxima holds the declared maximum points of a subject for each period.
// It is comparable, so two subjects share a maxima tuple exactly when
// their Maxima values are equal.
type Maxima struct {
	P1    float64 `json:"max_p1" yaml:"max_p1"`
	P2    float64 `json:"max_p2" yaml:"max_p2"`
	Exam1 float64 `json:"max_exam1" yaml:"max_exam1"`
	P3    float64 `json:"max_p3" yaml:"max_p3"`
	P4    float64 `json:"max_p4" yaml:"max_p4"`
	Exam2 float64 `json:"max_exam2" yaml:"max_exam2"`
}

// For returns the declared maximum for p.
func (m Maxima) For(p Period) float64 {
	switch p {
	case P1:
		return m.P1
	case P2:
		return m.P2
	case Exam1:
		return m.Exam1
	case P3:
		return m.P3
	case P4:
		return m.P4
	case Exam2:
		return m.Exam2
	default:
		return 0
	}
}

// Total returns the sum of the six declared maxima.
func (m Maxima) Total() float64 {
	return m.P1 + m.P2 + m.Exam1 + m.P3 + m.P4 + m.Exam2
}

// Subject is a course taught in a class.
type Subject struct {
	ID       SubjectID `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Code     string    `json:"code,omitempty" yaml:"code,omitempty"`
	ClassID  ClassID   `json:"class_id" yaml:"class_id"`
	DomainID DomainID  `json:"domain_id,omitempty" yaml:"domain_id,omitempty"`
	Category string    `json:"category,omitempty" yaml:"category,omitempty"`
	Maxima   `yaml:",inline"`
}

// Label returns the short code of the subject, or its name when it has
// no code.
func (s Subject) Label() string {
	if s.Code != "" {
		return s.Code
	}
	return s.Name
}

// Grade records the points a student obtained in a subject for a period.
// A missing Grade means the period is not graded yet.
type Grade struct {
	StudentID StudentID `json:"student_id" yaml:"student_id"`
	SubjectID SubjectID `json:"subject_id" yaml:"subject_id"`
	Period    Period    `json:"period" yaml:"period"`
	Value     float64   `json:"value" yaml:"value"`
}

// Domain is a primary-curriculum subject category.
type Domain struct {
	ID           DomainID `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	DisplayOrder int      `json:"display_order" yaml:"display_order"`
}

// Repechage records the percentage a student obtained at a make-up exam
// in a subject.
type Repechage struct {
	StudentID  StudentID `json:"student_id" yaml:"student_id"`
	SubjectID  SubjectID `json:"subject_id" yaml:"subject_id"`
	Percentage float64   `json:"percentage" yaml:"percentage"`
}
