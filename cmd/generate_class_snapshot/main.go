// Command generate_class_snapshot writes synthetic class snapshots used to
// exercise the bulletin commands on realistic class sizes.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/testutils"
)

func main() {
	defaults := testutils.DefaultClassGenConfig()
	var (
		students   = flag.Int("students", defaults.Students, "Number of students in each class")
		subjects   = flag.Int("subjects", defaults.Subjects, "Number of subjects in each class")
		level      = flag.String("level", defaults.Level, "Class level, for example 7ème or 1ère")
		missing    = flag.Float64("missing", defaults.MissingRate, "Probability that a grade is left out (0.0-1.0)")
		classes    = flag.Int("classes", 1, "Number of classes to generate")
		seed       = flag.Int64("seed", 0, "Random seed (default: current time)")
		outputPath = flag.String("output", "testdata/snapshots", "Output directory")
	)
	flag.Parse()

	if *missing < 0 || *missing > 1 {
		log.Fatalf("-missing must be between 0 and 1, got %v", *missing)
	}
	if *students <= 0 || *subjects <= 0 || *classes <= 0 {
		log.Fatalf("-students, -subjects, and -classes must be positive")
	}

	cfg := testutils.ClassGenConfig{
		Level:       *level,
		Students:    *students,
		Subjects:    *subjects,
		MissingRate: *missing,
	}
	if _, ok := domain.CurriculumForLevel(cfg.Level); !ok {
		log.Printf("Warning: level %q is not a known level, the secondary curriculum applies", cfg.Level)
	}

	base := *seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	for i := 0; i < *classes; i++ {
		data := testutils.GenerateClassSnapshot(cfg, base+int64(i))
		path := filepath.Join(*outputPath, string(data.Class.ID)+".json")
		if err := testutils.SaveSnapshotData(data, path); err != nil {
			log.Fatalf("Failed to save snapshot: %v", err)
		}

		fmt.Printf("Generated class snapshot:\n")
		fmt.Printf("- Path: %s\n", path)
		fmt.Printf("- Students: %d\n", len(data.Students))
		fmt.Printf("- Subjects: %d\n", len(data.Subjects))
		fmt.Printf("- Grades: %d\n", len(data.Grades))
	}
}
