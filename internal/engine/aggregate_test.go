package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepandmal/karname-api/internal/models"
)

var (
	mehrDate = time.Date(2023, 10, 15, 8, 0, 0, 0, time.UTC) // local month 7, school year 1402
	abanDate = time.Date(2023, 11, 5, 8, 0, 0, 0, time.UTC)  // local month 8, school year 1402
)

func sessionWith(studentID, courseID string, date time.Time, grades []models.GradeEntry, assessments []models.AssessmentEntry) models.SessionRecord {
	return models.SessionRecord{
		StudentID:   studentID,
		TeacherID:   "t-1",
		CourseID:    courseID,
		Date:        date,
		Grades:      grades,
		Assessments: assessments,
	}
}

func TestAggregateConcatenatesSessionsWithinMonth(t *testing.T) {
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(18, 20)}, nil),
		sessionWith("stu-1", "math", mehrDate.Add(48*time.Hour), []models.GradeEntry{gradeOf(14, 20)}, nil),
	}
	courses := []models.Course{{ID: "math", CreditWeight: 2}}

	result := Aggregate(records, courses, nil, models.RankingScope{Year: 1402})
	require.Contains(t, result, "stu-1")
	avg := result["stu-1"]["math"]
	// 32/40 * 20 = 16 for the single scored month.
	assert.InDelta(t, 16, avg.Average, 1e-9)
	assert.InDelta(t, 2, avg.CreditWeight, 1e-9)
}

func TestAggregateAveragesAcrossMonths(t *testing.T) {
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(18, 20)}, nil),
		sessionWith("stu-1", "math", abanDate, []models.GradeEntry{gradeOf(12, 20)}, nil),
	}
	courses := []models.Course{{ID: "math", CreditWeight: 1}}

	result := Aggregate(records, courses, nil, models.RankingScope{Year: 1402})
	assert.InDelta(t, 15, result["stu-1"]["math"].Average, 1e-9)
}

func TestAggregateScopeMonthRestriction(t *testing.T) {
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(18, 20)}, nil),
		sessionWith("stu-1", "math", abanDate, []models.GradeEntry{gradeOf(12, 20)}, nil),
	}
	courses := []models.Course{{ID: "math", CreditWeight: 1}}

	result := Aggregate(records, courses, nil, models.RankingScope{Year: 1402, Month: 8})
	assert.InDelta(t, 12, result["stu-1"]["math"].Average, 1e-9)
}

func TestAggregateDropsOutOfScopeAndUnusableRecords(t *testing.T) {
	records := []models.SessionRecord{
		// Previous school year.
		sessionWith("stu-1", "math", time.Date(2022, 10, 15, 8, 0, 0, 0, time.UTC), []models.GradeEntry{gradeOf(20, 20)}, nil),
		// Zero date: unusable, silently dropped.
		sessionWith("stu-1", "math", time.Time{}, []models.GradeEntry{gradeOf(20, 20)}, nil),
		// Unknown course.
		sessionWith("stu-1", "art", mehrDate, []models.GradeEntry{gradeOf(20, 20)}, nil),
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(10, 20)}, nil),
	}
	courses := []models.Course{{ID: "math", CreditWeight: 1}}

	result := Aggregate(records, courses, nil, models.RankingScope{Year: 1402})
	require.Contains(t, result, "stu-1")
	assert.Len(t, result["stu-1"], 1)
	assert.InDelta(t, 10, result["stu-1"]["math"].Average, 1e-9)
}

func TestAggregateOmitsAssessmentOnlyCourses(t *testing.T) {
	weight := 2.0
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, nil, []models.AssessmentEntry{{Label: "excellent", Weight: &weight}}),
	}
	courses := []models.Course{{ID: "math", CreditWeight: 1}}

	result := Aggregate(records, courses, nil, models.RankingScope{Year: 1402})
	assert.NotContains(t, result, "stu-1")
}

func TestAggregateAppliesCourseWeightTable(t *testing.T) {
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(16, 20)}, []models.AssessmentEntry{{Label: "excellent"}}),
	}
	courses := []models.Course{{ID: "math", CreditWeight: 1}}
	tables := map[string]models.AssessmentWeightTable{
		"math": {"excellent": 2},
	}

	result := Aggregate(records, courses, tables, models.RankingScope{Year: 1402})
	assert.InDelta(t, 18, result["stu-1"]["math"].Average, 1e-9)
}
