// Package engine implements the student performance ranking computation: a
// pure, synchronous batch pass over pre-fetched session records that produces
// calendar-aware, credit-weighted averages and deterministic competition
// rankings. The engine performs no I/O and holds no state across invocations.
package engine

import (
	"fmt"

	"github.com/sepandmal/karname-api/internal/models"
	appErrors "github.com/sepandmal/karname-api/pkg/errors"
)

// Input bundles everything one ranking computation needs. Every field is
// fetched by the caller before invocation.
type Input struct {
	Records      []models.SessionRecord
	Courses      []models.Course
	WeightTables map[string]models.AssessmentWeightTable
	Students     []models.Student
	Scope        models.RankingScope
	Page         models.PageRequest
	RequesterID  string
}

// ComputeRankings runs the full pipeline: aggregate → weighted overall →
// rank → paginate. Repeated calls with identical input yield identical
// output. Scope violations return a typed validation error; data sparsity
// never does.
func ComputeRankings(in Input) (*models.RankingResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	known := studentIndex(in.Students)
	byStudent := Aggregate(in.Records, in.Courses, in.WeightTables, in.Scope)

	overallEntries := make([]models.RankEntry, 0, len(byStudent))
	courseEntries := make(map[string][]models.RankEntry)
	for studentID, byCourse := range byStudent {
		if len(known) > 0 {
			if _, ok := known[studentID]; !ok {
				continue
			}
		}
		courseAverages := make([]models.CourseAverage, 0, len(byCourse))
		for _, ca := range byCourse {
			courseAverages = append(courseAverages, ca)
			courseEntries[ca.CourseID] = append(courseEntries[ca.CourseID], models.RankEntry{
				SubjectID: studentID,
				Average:   ca.Average,
			})
		}
		overall := ComputeOverall(courseAverages)
		if overall == nil {
			continue
		}
		overallEntries = append(overallEntries, models.RankEntry{SubjectID: studentID, Average: *overall})
	}

	ranked := Rank(overallEntries)
	page := Paginate(ranked, in.Page.Offset, in.Page.Limit)

	courseRankings := make(map[string][]models.RankEntry, len(courseEntries))
	for courseID, entries := range courseEntries {
		courseRankings[courseID] = Rank(entries)
	}

	result := &models.RankingResult{
		OverallRanking: page,
		CourseRankings: courseRankings,
		CohortStats:    cohortStats(ranked, len(in.Courses)),
	}
	if entry, rank, ok := lookupSubject(ranked, in.RequesterID); ok {
		result.RequesterRank = rank
		result.RequesterEntry = entry
	}
	return result, nil
}

// lookupSubject finds a subject's entry in the full ranked list so the
// requester's rank is reported even when it falls outside the page window.
func lookupSubject(ranked []models.RankEntry, subjectID string) (*models.RankEntry, int, bool) {
	if subjectID == "" {
		return nil, 0, false
	}
	for i := range ranked {
		if ranked[i].SubjectID == subjectID {
			entry := ranked[i]
			return &entry, entry.Rank, true
		}
	}
	return nil, 0, false
}

func cohortStats(ranked []models.RankEntry, courseCount int) models.CohortStats {
	stats := models.CohortStats{
		StudentCount: len(ranked),
		CourseCount:  courseCount,
	}
	if len(ranked) == 0 {
		return stats
	}
	var sum float64
	for _, entry := range ranked {
		sum += entry.Average
	}
	avg := round2(sum / float64(len(ranked)))
	stats.ClassAverage = &avg
	return stats
}

func validateInput(in Input) error {
	if in.Scope.Year <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidScope, "school year must be positive")
	}
	if in.Scope.Month < 0 || in.Scope.Month > 12 {
		return appErrors.Clone(appErrors.ErrInvalidScope, fmt.Sprintf("month %d outside 1-12", in.Scope.Month))
	}
	if len(in.Courses) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "course list required")
	}
	return nil
}

func studentIndex(students []models.Student) map[string]struct{} {
	if len(students) == 0 {
		return nil
	}
	index := make(map[string]struct{}, len(students))
	for _, s := range students {
		index[s.ID] = struct{}{}
	}
	return index
}
