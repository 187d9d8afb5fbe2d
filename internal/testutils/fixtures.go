// Package testutils provides fixtures and synthetic data generators for
// testing. These components are intended for internal use within the
// project's test suites and are not part of the public API.
package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// Class levels used by fixtures.
const (
	LevelPrimary   = "7ème"
	LevelSecondary = "1ère"
)

// UniformMaxima returns maxima where every period is worth v points.
func UniformMaxima(v float64) domain.Maxima {
	return domain.Maxima{P1: v, P2: v, Exam1: v, P3: v, P4: v, Exam2: v}
}

// SnapshotBuilder assembles class records for tests.
type SnapshotBuilder struct {
	data domain.SnapshotData
}

// NewSnapshotBuilder starts a class with the given level.
func NewSnapshotBuilder(classID, level string) *SnapshotBuilder {
	return &SnapshotBuilder{data: domain.SnapshotData{
		Class: domain.ClassInfo{ID: domain.ClassID(classID), Name: classID, Level: level},
	}}
}

// Student adds a student.
func (b *SnapshotBuilder) Student(id, lastName, firstName string) *SnapshotBuilder {
	b.data.Students = append(b.data.Students, domain.Student{
		ID:        domain.StudentID(id),
		LastName:  lastName,
		FirstName: firstName,
		ClassID:   b.data.Class.ID,
	})
	return b
}

// WithStudent adds a fully specified student.
func (b *SnapshotBuilder) WithStudent(s domain.Student) *SnapshotBuilder {
	if s.ClassID == "" {
		s.ClassID = b.data.Class.ID
	}
	b.data.Students = append(b.data.Students, s)
	return b
}

// Subject adds a subject without a domain.
func (b *SnapshotBuilder) Subject(id, name string, m domain.Maxima) *SnapshotBuilder {
	return b.SubjectInDomain(id, name, "", m)
}

// SubjectInDomain adds a subject belonging to domainID.
func (b *SnapshotBuilder) SubjectInDomain(id, name, domainID string, m domain.Maxima) *SnapshotBuilder {
	b.data.Subjects = append(b.data.Subjects, domain.Subject{
		ID:       domain.SubjectID(id),
		Name:     name,
		ClassID:  b.data.Class.ID,
		DomainID: domain.DomainID(domainID),
		Maxima:   m,
	})
	return b
}

// Domain declares a subject domain.
func (b *SnapshotBuilder) Domain(id, name string, order int) *SnapshotBuilder {
	b.data.Domains = append(b.data.Domains, domain.Domain{
		ID:           domain.DomainID(id),
		Name:         name,
		DisplayOrder: order,
	})
	return b
}

// Grade records a grade.
func (b *SnapshotBuilder) Grade(student, subject string, p domain.Period, v float64) *SnapshotBuilder {
	b.data.Grades = append(b.data.Grades, domain.Grade{
		StudentID: domain.StudentID(student),
		SubjectID: domain.SubjectID(subject),
		Period:    p,
		Value:     v,
	})
	return b
}

// Grades records the same subject for several periods in calendar order,
// starting at P1.
func (b *SnapshotBuilder) Grades(student, subject string, values ...float64) *SnapshotBuilder {
	for i, v := range values {
		b.Grade(student, subject, domain.Period(i), v)
	}
	return b
}

// Repechage records a make-up exam percentage.
func (b *SnapshotBuilder) Repechage(student, subject string, pct float64) *SnapshotBuilder {
	b.data.Repechages = append(b.data.Repechages, domain.Repechage{
		StudentID:  domain.StudentID(student),
		SubjectID:  domain.SubjectID(subject),
		Percentage: pct,
	})
	return b
}

// Data returns the records assembled so far.
func (b *SnapshotBuilder) Data() domain.SnapshotData { return b.data }

// Build freezes the records into a snapshot, failing the test on error.
func (b *SnapshotBuilder) Build(t testing.TB) *domain.Snapshot {
	t.Helper()
	snap, err := domain.NewSnapshot(b.data)
	require.NoError(t, err)
	return snap
}

// ThreeStudentClass returns a secondary class with one subject worth 20
// points per period. Over the first semester, student "a" scores 54/60,
// "b" scores 30/60, and "c" has no P1 grade.
func ThreeStudentClass() *SnapshotBuilder {
	return NewSnapshotBuilder("c1", LevelSecondary).
		Student("a", "Amani", "Alice").
		Student("b", "Bahati", "Bruno").
		Student("c", "Chiza", "Carine").
		Subject("math", "Mathématiques", UniformMaxima(20)).
		Grades("a", "math", 18, 16, 20).
		Grades("b", "math", 10, 10, 10).
		Grade("c", "math", domain.P2, 12).
		Grade("c", "math", domain.Exam1, 14)
}

// PrimaryClass returns a 7ème class with domains, a subject in an
// undeclared domain, and a subject without a domain. Every subject has
// max_p1 = 10 and exams worth 20.
func PrimaryClass() *SnapshotBuilder {
	m := domain.Maxima{P1: 10, P2: 10, Exam1: 20, P3: 10, P4: 10, Exam2: 20}
	return NewSnapshotBuilder("c7", LevelPrimary).
		Domain("lang", "Langues", 2).
		Domain("sci", "Sciences", 1).
		SubjectInDomain("fr", "Français", "lang", m).
		SubjectInDomain("calc", "Calcul", "sci", m).
		Subject("dess", "Dessin", m).
		SubjectInDomain("mus", "Musique", "ghost", m).
		SubjectInDomain("svt", "Éveil", "sci", m).
		Student("p", "Kasongo", "Paul").
		Student("q", "Mbuyi", "Queen").
		Grades("p", "fr", 8, 7, 15, 9, 8, 16).
		Grades("p", "calc", 6, 5, 12, 7, 7, 14).
		Grades("p", "dess", 9, 9, 18, 9, 9, 18).
		Grades("p", "mus", 5, 5, 10, 5, 5, 10).
		Grades("p", "svt", 7, 7, 14, 7, 7, 14).
		Grades("q", "fr", 4, 3, 8).
		Grades("q", "calc", 2, 3, 6).
		Grades("q", "svt", 5, 5, 10)
}
