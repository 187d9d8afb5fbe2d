package domain

import "time"

// Score pairs the points obtained over a period group with the maximum
// that can be obtained over it. Complete reports whether every period
// that makes up the score was graded.
type Score struct {
	Obtained Points  `json:"obtained" yaml:"obtained"`
	Max      float64 `json:"max" yaml:"max"`
	Complete bool    `json:"complete" yaml:"complete"`
}

// Percentage returns the rounded percentage of the score, treating
// absent points as 0.
func (s Score) Percentage() float64 {
	return Percentage(s.Obtained.OrZero(), s.Max)
}

// Add combines two scores. The sum is complete only if both operands are.
func (s Score) Add(o Score) Score {
	return Score{
		Obtained: s.Obtained.Add(o.Obtained),
		Max:      s.Max + o.Max,
		Complete: s.Complete && o.Complete,
	}
}

// StudentAggregate holds a student's score for every period group: the
// six periods, the two semesters, and the year.
type StudentAggregate struct {
	StudentID StudentID             `json:"student_id" yaml:"student_id"`
	Scores    map[PeriodGroup]Score `json:"scores" yaml:"scores"`
}

// Score returns the score for g.
func (a StudentAggregate) Score(g PeriodGroup) Score { return a.Scores[g] }

// StudentRanks holds one rank per report-card column. A rank of 0 means
// the student is unranked for that column.
type StudentRanks struct {
	P1   int `json:"p1" yaml:"p1"`
	P2   int `json:"p2" yaml:"p2"`
	Ex1  int `json:"ex1" yaml:"ex1"`
	Tot1 int `json:"tot1" yaml:"tot1"`
	P3   int `json:"p3" yaml:"p3"`
	P4   int `json:"p4" yaml:"p4"`
	Ex2  int `json:"ex2" yaml:"ex2"`
	Tot2 int `json:"tot2" yaml:"tot2"`
	TG   int `json:"tg" yaml:"tg"`
}

func (r *StudentRanks) slot(c Column) *int {
	switch c {
	case ColP1:
		return &r.P1
	case ColP2:
		return &r.P2
	case ColEx1:
		return &r.Ex1
	case ColTot1:
		return &r.Tot1
	case ColP3:
		return &r.P3
	case ColP4:
		return &r.P4
	case ColEx2:
		return &r.Ex2
	case ColTot2:
		return &r.Tot2
	case ColTG:
		return &r.TG
	default:
		return nil
	}
}

// Get returns the rank for c, or 0 for an unknown column.
func (r StudentRanks) Get(c Column) int {
	if p := r.slot(c); p != nil {
		return *p
	}
	return 0
}

// Set records the rank for c. Unknown columns are ignored.
func (r *StudentRanks) Set(c Column, rank int) {
	if p := r.slot(c); p != nil {
		*p = rank
	}
}

// StudentRankResult is the rank lookup of a single student.
type StudentRankResult struct {
	StudentID     StudentID    `json:"student_id" yaml:"student_id"`
	Ranks         StudentRanks `json:"ranks" yaml:"ranks"`
	TotalStudents int          `json:"total_students" yaml:"total_students"`
}

// ClassRanks is the rank table of a whole class.
type ClassRanks struct {
	Ranks         map[StudentID]StudentRanks `json:"ranks" yaml:"ranks"`
	TotalStudents int                        `json:"total_students" yaml:"total_students"`
}

// SubjectResult is one subject line of a palmarès row.
type SubjectResult struct {
	SubjectID  SubjectID `json:"subject_id" yaml:"subject_id"`
	Label      string    `json:"label" yaml:"label"`
	Obtained   float64   `json:"obtained" yaml:"obtained"`
	Max        float64   `json:"max" yaml:"max"`
	Percentage float64   `json:"percentage" yaml:"percentage"`
	Failed     bool      `json:"failed" yaml:"failed"`
}

// RankedStudent is one row of the palmarès.
type RankedStudent struct {
	Student        Student         `json:"student" yaml:"student"`
	Rank           int             `json:"rank" yaml:"rank"`
	Obtained       float64         `json:"obtained" yaml:"obtained"`
	Max            float64         `json:"max" yaml:"max"`
	Percentage     float64         `json:"percentage" yaml:"percentage"`
	Mention        Mention         `json:"mention" yaml:"mention"`
	Unranked       bool            `json:"unranked" yaml:"unranked"`
	FailedSubjects []string        `json:"failed_subjects" yaml:"failed_subjects"`
	Subjects       []SubjectResult `json:"subjects" yaml:"subjects"`
	Decision       Decision        `json:"decision" yaml:"decision"`
	Conduct        string          `json:"conduct" yaml:"conduct"`
}

// PalmaresStats summarises a palmarès.
type PalmaresStats struct {
	Total    int `json:"total" yaml:"total"`
	Passed   int `json:"passed" yaml:"passed"`
	Failed   int `json:"failed" yaml:"failed"`
	Unranked int `json:"unranked" yaml:"unranked"`
}

// Palmares is the class leaderboard for one period group: ranked
// students first, then unranked students in their original order.
type Palmares struct {
	Group    PeriodGroup     `json:"group" yaml:"group"`
	Students []RankedStudent `json:"students" yaml:"students"`
	Stats    PalmaresStats   `json:"stats" yaml:"stats"`
}

// GroupingKind names the strategy that produced a SubjectGroup.
type GroupingKind string

// Grouping strategies.
const (
	GroupingByMaxima GroupingKind = "maxima"
	GroupingByDomain GroupingKind = "domain"
)

// UncategorizedLabel is the heading of the group holding subjects that
// belong to no domain.
const UncategorizedLabel = "Autres matières"

// UnknownDomainLabel is the heading used for a domain id that has no
// matching Domain record.
const UnknownDomainLabel = "Domaine inconnu"

// SubjectGroup is a set of subjects printed together on a report card,
// with the subtotal of each student over the group's subjects.
type SubjectGroup struct {
	Kind          GroupingKind                         `json:"kind" yaml:"kind"`
	Key           string                               `json:"key" yaml:"key"`
	Label         string                               `json:"label" yaml:"label"`
	Maxima        Maxima                               `json:"maxima" yaml:"maxima"`
	DisplayOrder  int                                  `json:"display_order" yaml:"display_order"`
	Uncategorized bool                                 `json:"uncategorized" yaml:"uncategorized"`
	SubjectIDs    []SubjectID                          `json:"subject_ids" yaml:"subject_ids"`
	Max           map[PeriodGroup]float64              `json:"max" yaml:"max"`
	Subtotals     map[StudentID]map[PeriodGroup]Points `json:"subtotals" yaml:"subtotals"`
}

// Subtotal returns a student's obtained points over the group for pg.
func (g SubjectGroup) Subtotal(student StudentID, pg PeriodGroup) Score {
	return Score{
		Obtained: g.Subtotals[student][pg],
		Max:      g.Max[pg],
	}
}

// RepechageResult is a repêchage expressed in points.
type RepechageResult struct {
	StudentID  StudentID `json:"student_id" yaml:"student_id"`
	SubjectID  SubjectID `json:"subject_id" yaml:"subject_id"`
	Label      string    `json:"label" yaml:"label"`
	Percentage float64   `json:"percentage" yaml:"percentage"`
	Points     float64   `json:"points" yaml:"points"`
	Max        float64   `json:"max" yaml:"max"`
}

// Report bundles everything computed for one class snapshot.
type Report struct {
	ID            string             `json:"id" yaml:"id"`
	ClassID       ClassID            `json:"class_id" yaml:"class_id"`
	ClassName     string             `json:"class_name" yaml:"class_name"`
	Curriculum    Curriculum         `json:"curriculum" yaml:"curriculum"`
	LevelKnown    bool               `json:"level_known" yaml:"level_known"`
	TotalStudents int                `json:"total_students" yaml:"total_students"`
	ConfigName    string             `json:"config_name" yaml:"config_name"`
	Aggregates    []StudentAggregate `json:"aggregates" yaml:"aggregates"`
	ClassRanks    ClassRanks         `json:"class_ranks" yaml:"class_ranks"`
	Palmares      Palmares           `json:"palmares" yaml:"palmares"`
	SubjectGroups []SubjectGroup     `json:"subject_groups" yaml:"subject_groups"`
	Repechages    []RepechageResult  `json:"repechages" yaml:"repechages"`
	GeneratedAt   time.Time          `json:"generated_at" yaml:"generated_at"`
}
