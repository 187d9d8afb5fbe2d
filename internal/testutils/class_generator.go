package testutils

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// ClassGenConfig controls the shape of a generated class.
type ClassGenConfig struct {
	// Level is the class level; it decides the curriculum.
	Level string
	// Students is the number of pupils.
	Students int
	// Subjects is the number of courses.
	Subjects int
	// MissingRate is the probability (0.0-1.0) that a grade is left out.
	MissingRate float64
}

// DefaultClassGenConfig returns a secondary class of 30 pupils and 10
// subjects with 5% of grades missing.
func DefaultClassGenConfig() ClassGenConfig {
	return ClassGenConfig{
		Level:       LevelSecondary,
		Students:    30,
		Subjects:    10,
		MissingRate: 0.05,
	}
}

var (
	sampleLastNames  = []string{"Kabila", "Lumumba", "Mulamba", "Ilunga", "Tshisekedi", "Kasa", "Mbala", "Ngoy", "Banza", "Kalala"}
	sampleFirstNames = []string{"Amani", "Bahati", "Chance", "Dorcas", "Esther", "Fiston", "Grâce", "Héritier", "Israël", "Joël"}
	sampleSubjects   = []string{"Mathématiques", "Français", "Physique", "Chimie", "Biologie", "Histoire", "Géographie", "Anglais", "Religion", "Éducation civique", "Informatique", "Dessin"}
	sampleMaxima     = []float64{10, 20, 40, 50}
	sampleConduct    = []string{"Excellent", "Très bien", "Bien", "Mauvais", "Médiocre"}
)

// GenerateClassSnapshot creates a synthetic class. Grades never exceed
// their declared maximum. The seed controls randomization: use a fixed
// value for reproducible tests.
func GenerateClassSnapshot(cfg ClassGenConfig, seed int64) domain.SnapshotData {
	rng := rand.New(rand.NewSource(seed))
	classID := domain.ClassID(fmt.Sprintf("gen-%d", seed))
	cur, _ := domain.CurriculumForLevel(cfg.Level)

	data := domain.SnapshotData{
		Class: domain.ClassInfo{ID: classID, Name: "Classe " + cfg.Level, Level: cfg.Level, Section: "A"},
	}
	if cur == domain.Primary {
		data.Domains = []domain.Domain{
			{ID: "d1", Name: "Langues", DisplayOrder: 1},
			{ID: "d2", Name: "Sciences", DisplayOrder: 2},
		}
	}

	for i := range cfg.Subjects {
		per := sampleMaxima[rng.Intn(len(sampleMaxima))]
		sub := domain.Subject{
			ID:      domain.SubjectID(fmt.Sprintf("sub%02d", i+1)),
			Name:    sampleSubjects[i%len(sampleSubjects)],
			ClassID: classID,
			Maxima:  domain.Maxima{P1: per, P2: per, Exam1: 2 * per, P3: per, P4: per, Exam2: 2 * per},
		}
		if cur == domain.Primary && i%3 != 2 {
			sub.DomainID = data.Domains[i%2].ID
		}
		data.Subjects = append(data.Subjects, sub)
	}

	for i := range cfg.Students {
		st := domain.Student{
			ID:        domain.StudentID(fmt.Sprintf("st%03d", i+1)),
			LastName:  sampleLastNames[rng.Intn(len(sampleLastNames))],
			FirstName: sampleFirstNames[rng.Intn(len(sampleFirstNames))],
			ClassID:   classID,
			ConductP1: sampleConduct[rng.Intn(len(sampleConduct))],
			ConductP2: sampleConduct[rng.Intn(len(sampleConduct))],
			ConductP3: sampleConduct[rng.Intn(len(sampleConduct))],
			ConductP4: sampleConduct[rng.Intn(len(sampleConduct))],
		}
		data.Students = append(data.Students, st)

		for _, sub := range data.Subjects {
			for _, p := range domain.Periods() {
				if rng.Float64() < cfg.MissingRate {
					continue
				}
				max := cur.PeriodMax(sub.Maxima, p)
				data.Grades = append(data.Grades, domain.Grade{
					StudentID: st.ID,
					SubjectID: sub.ID,
					Period:    p,
					Value:     domain.Round1(rng.Float64() * max),
				})
			}
		}
	}
	return data
}

// GenerateClassSnapshotDefault creates a default class with a time-based seed.
func GenerateClassSnapshotDefault() domain.SnapshotData {
	return GenerateClassSnapshot(DefaultClassGenConfig(), time.Now().UnixNano())
}

// SaveSnapshotData writes class records as indented JSON, creating the
// parent directory when needed.
func SaveSnapshotData(data domain.SnapshotData, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
