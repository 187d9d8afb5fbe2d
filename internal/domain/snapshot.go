package domain

import (
	"fmt"
	"math"
)

// SnapshotData is the raw content of one class as handed over by the
// record store: every student, subject, and grade of the class.
type SnapshotData struct {
	Class      ClassInfo   `json:"class" yaml:"class"`
	Students   []Student   `json:"students" yaml:"students"`
	Subjects   []Subject   `json:"subjects" yaml:"subjects"`
	Grades     []Grade     `json:"grades" yaml:"grades"`
	Domains    []Domain    `json:"domains,omitempty" yaml:"domains,omitempty"`
	Repechages []Repechage `json:"repechages,omitempty" yaml:"repechages,omitempty"`
}

type gradeKey struct {
	student StudentID
	subject SubjectID
	period  Period
}

// Snapshot is a frozen, indexed view of one class. The curriculum is
// resolved once, when the snapshot is built, and every engine component
// reads it from here. A Snapshot is never modified after NewSnapshot
// returns and is safe for concurrent use.
type Snapshot struct {
	data       SnapshotData
	curriculum Curriculum
	levelKnown bool
	grades     map[gradeKey]float64
	students   map[StudentID]int
	subjects   map[SubjectID]int
	domains    map[DomainID]int
}

// NewSnapshot validates and indexes the records of a class. It rejects
// empty or duplicate identifiers, grades that reference unknown students
// or subjects, unknown periods, negative values, and duplicate grades for
// the same student, subject, and period. An unrecognised class level is
// not an error: the snapshot falls back to the secondary curriculum and
// LevelKnown reports false.
func NewSnapshot(data SnapshotData) (*Snapshot, error) {
	verr := NewValidationError(fmt.Sprintf("snapshot of class %q", data.Class.ID))

	s := &Snapshot{
		data:     cloneData(data),
		grades:   make(map[gradeKey]float64, len(data.Grades)),
		students: make(map[StudentID]int, len(data.Students)),
		subjects: make(map[SubjectID]int, len(data.Subjects)),
		domains:  make(map[DomainID]int, len(data.Domains)),
	}
	s.curriculum, s.levelKnown = CurriculumForLevel(data.Class.Level)

	for i, st := range data.Students {
		if st.ID == "" {
			verr.AddError(fmt.Sprintf("student at index %d has an empty id", i))
			continue
		}
		if _, dup := s.students[st.ID]; dup {
			verr.AddError(fmt.Sprintf("duplicate student id %q", st.ID))
			continue
		}
		s.students[st.ID] = i
	}

	for i, sub := range data.Subjects {
		if sub.ID == "" {
			verr.AddError(fmt.Sprintf("subject at index %d has an empty id", i))
			continue
		}
		if _, dup := s.subjects[sub.ID]; dup {
			verr.AddError(fmt.Sprintf("duplicate subject id %q", sub.ID))
			continue
		}
		if p, ok := sub.Maxima.nonFinite(); ok {
			verr.AddError(fmt.Sprintf("subject %q has a non-finite maximum for %s", sub.ID, p))
			continue
		}
		s.subjects[sub.ID] = i
	}

	for i, d := range data.Domains {
		if _, dup := s.domains[d.ID]; dup {
			verr.AddError(fmt.Sprintf("duplicate domain id %q", d.ID))
			continue
		}
		s.domains[d.ID] = i
	}

	for _, g := range data.Grades {
		if _, ok := s.students[g.StudentID]; !ok {
			verr.AddError(fmt.Sprintf("grade references unknown student %q", g.StudentID))
			continue
		}
		if _, ok := s.subjects[g.SubjectID]; !ok {
			verr.AddError(fmt.Sprintf("grade references unknown subject %q", g.SubjectID))
			continue
		}
		if !g.Period.Valid() {
			verr.AddError(fmt.Sprintf("grade for student %q has invalid period %d", g.StudentID, int(g.Period)))
			continue
		}
		if !finite(g.Value) {
			verr.AddError(fmt.Sprintf("non-finite grade %v for student %q, subject %q, period %s",
				g.Value, g.StudentID, g.SubjectID, g.Period))
			continue
		}
		if g.Value < 0 {
			verr.AddError(fmt.Sprintf("negative grade %v for student %q, subject %q, period %s",
				g.Value, g.StudentID, g.SubjectID, g.Period))
			continue
		}
		key := gradeKey{student: g.StudentID, subject: g.SubjectID, period: g.Period}
		if _, dup := s.grades[key]; dup {
			verr.AddError(fmt.Sprintf("duplicate grade for student %q, subject %q, period %s",
				g.StudentID, g.SubjectID, g.Period))
			continue
		}
		s.grades[key] = g.Value
	}

	for _, r := range data.Repechages {
		if !finite(r.Percentage) {
			verr.AddError(fmt.Sprintf("non-finite repechage percentage for student %q, subject %q",
				r.StudentID, r.SubjectID))
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return s, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// nonFinite returns the first period whose declared maximum is NaN or
// infinite.
func (m Maxima) nonFinite() (Period, bool) {
	for _, p := range Periods() {
		if !finite(m.For(p)) {
			return p, true
		}
	}
	return 0, false
}

func cloneData(d SnapshotData) SnapshotData {
	return SnapshotData{
		Class:      d.Class,
		Students:   append([]Student(nil), d.Students...),
		Subjects:   append([]Subject(nil), d.Subjects...),
		Grades:     append([]Grade(nil), d.Grades...),
		Domains:    append([]Domain(nil), d.Domains...),
		Repechages: append([]Repechage(nil), d.Repechages...),
	}
}

// Class returns the class the snapshot describes.
func (s *Snapshot) Class() ClassInfo { return s.data.Class }

// Curriculum returns the curriculum resolved from the class level.
func (s *Snapshot) Curriculum() Curriculum { return s.curriculum }

// LevelKnown reports whether the class level was recognised.
func (s *Snapshot) LevelKnown() bool { return s.levelKnown }

// Len returns the number of students in the class.
func (s *Snapshot) Len() int { return len(s.data.Students) }

// Students returns the students in their original order.
func (s *Snapshot) Students() []Student { return append([]Student(nil), s.data.Students...) }

// Subjects returns the subjects in their original order.
func (s *Snapshot) Subjects() []Subject { return append([]Subject(nil), s.data.Subjects...) }

// Domains returns the declared domains in their original order.
func (s *Snapshot) Domains() []Domain { return append([]Domain(nil), s.data.Domains...) }

// Repechages returns the recorded make-up exam results.
func (s *Snapshot) Repechages() []Repechage {
	return append([]Repechage(nil), s.data.Repechages...)
}

// Data returns a copy of the raw records.
func (s *Snapshot) Data() SnapshotData { return cloneData(s.data) }

// Student looks up a student by id.
func (s *Snapshot) Student(id StudentID) (Student, bool) {
	i, ok := s.students[id]
	if !ok {
		return Student{}, false
	}
	return s.data.Students[i], true
}

// Subject looks up a subject by id.
func (s *Snapshot) Subject(id SubjectID) (Subject, bool) {
	i, ok := s.subjects[id]
	if !ok {
		return Subject{}, false
	}
	return s.data.Subjects[i], true
}

// Domain looks up a domain by id.
func (s *Snapshot) Domain(id DomainID) (Domain, bool) {
	i, ok := s.domains[id]
	if !ok {
		return Domain{}, false
	}
	return s.data.Domains[i], true
}

// Grade returns the points recorded for a student, subject, and period,
// or Ungraded when no grade exists.
func (s *Snapshot) Grade(student StudentID, subject SubjectID, p Period) Points {
	v, ok := s.grades[gradeKey{student: student, subject: subject, period: p}]
	if !ok {
		return Ungraded()
	}
	return Graded(v)
}
