package models

import "time"

// DefaultTotalPoints is the points possible assumed when a grade entry omits its own.
const DefaultTotalPoints = 20.0

// DefaultCreditWeight is applied when a course carries a missing or invalid credit weight.
const DefaultCreditWeight = 1.0

// GradeEntry is one numeric grade captured during a class session.
type GradeEntry struct {
	Value       float64   `json:"value"`
	TotalPoints float64   `json:"total_points"`
	Date        time.Time `json:"date"`
}

// AssessmentEntry is one qualitative mark captured during a class session.
// Weight, when present, is an explicit adjustment carried on the entry itself
// and takes precedence over any weight table.
type AssessmentEntry struct {
	Label  string    `json:"label"`
	Weight *float64  `json:"weight,omitempty"`
	Date   time.Time `json:"date"`
}

// SessionRecord is the raw unit of input: one class session for one student.
type SessionRecord struct {
	ID          string            `json:"id"`
	StudentID   string            `json:"student_id"`
	TeacherID   string            `json:"teacher_id"`
	CourseID    string            `json:"course_id"`
	Date        time.Time         `json:"date"`
	Grades      []GradeEntry      `json:"grades"`
	Assessments []AssessmentEntry `json:"assessments"`
}

// Normalize applies ingestion defaults so downstream computation never
// branches on absent fields.
func (r *SessionRecord) Normalize() {
	for i := range r.Grades {
		if r.Grades[i].TotalPoints <= 0 {
			r.Grades[i].TotalPoints = DefaultTotalPoints
		}
	}
}

// Course describes a taught course and its credit weight ("vahed").
type Course struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	CreditWeight float64 `db:"credit_weight" json:"credit_weight"`
}

// EffectiveCreditWeight returns the credit weight with the ≥1 invariant applied.
func (c Course) EffectiveCreditWeight() float64 {
	if c.CreditWeight < DefaultCreditWeight {
		return DefaultCreditWeight
	}
	return c.CreditWeight
}

// AssessmentWeightTable maps an assessment label to its numeric weight.
type AssessmentWeightTable map[string]float64

// WeightTableSources carries the raw label→weight maps fetched from storage,
// lowest to highest precedence: school default, global override, per-teacher
// override. CourseTeachers scopes teacher overrides to teachers actually
// assigned to each course.
type WeightTableSources struct {
	SchoolDefault    AssessmentWeightTable
	GlobalOverride   AssessmentWeightTable
	TeacherOverrides map[string]AssessmentWeightTable
	CourseTeachers   map[string][]string
}

// MonthlyScore is the computed score for one student/course/local-month.
// FinalScore is nil when no grade entry exists for the month.
type MonthlyScore struct {
	StudentID            string   `json:"student_id"`
	CourseID             string   `json:"course_id"`
	LocalMonth           int      `json:"local_month"`
	FinalScore           *float64 `json:"final_score"`
	BaseGrade            *float64 `json:"base_grade"`
	AssessmentAdjustment float64  `json:"assessment_adjustment"`
}

// CourseAverage is the mean of the non-nil monthly scores for one student/course.
type CourseAverage struct {
	StudentID    string  `json:"student_id"`
	CourseID     string  `json:"course_id"`
	Average      float64 `json:"average"`
	CreditWeight float64 `json:"credit_weight"`
}

// OverallAverage is the credit-weighted mean across a student's course averages.
type OverallAverage struct {
	StudentID string  `json:"student_id"`
	Average   float64 `json:"average"`
}

// RankEntry is one ranked subject with its competition rank.
type RankEntry struct {
	SubjectID string  `json:"subject_id"`
	Average   float64 `json:"average"`
	Rank      int     `json:"rank"`
}

// RankingScope selects a school year and an optional local month (1-12).
// Month 0 covers the whole school year.
type RankingScope struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
}

// PageRequest bounds the requested window of the overall ranking.
type PageRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RankedPage is one window of the overall ranking plus slice metadata.
type RankedPage struct {
	Entries []RankEntry `json:"entries"`
	Total   int         `json:"total"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"has_more"`
}

// CohortStats summarises the ranked population.
type CohortStats struct {
	StudentCount int      `json:"student_count"`
	ClassAverage *float64 `json:"class_average"`
	CourseCount  int      `json:"course_count"`
}

// RankingResult is the full output of one ranking computation.
type RankingResult struct {
	OverallRanking RankedPage             `json:"overall_ranking"`
	RequesterRank  int                    `json:"requester_rank"`
	RequesterEntry *RankEntry             `json:"requester_entry"`
	CourseRankings map[string][]RankEntry `json:"course_rankings"`
	CohortStats    CohortStats            `json:"cohort_stats"`
}
