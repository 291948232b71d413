package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepandmal/karname-api/internal/models"
	appErrors "github.com/sepandmal/karname-api/pkg/errors"
)

func TestComputeRankingsEndToEnd(t *testing.T) {
	courses := []models.Course{{ID: "math", Name: "Math", CreditWeight: 2}}
	tables := map[string]models.AssessmentWeightTable{
		"math": {"excellent": 2},
	}
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(18, 20)}, nil),
		sessionWith("stu-1", "math", abanDate,
			[]models.GradeEntry{gradeOf(16, 20)},
			[]models.AssessmentEntry{{Label: "excellent"}}),
		sessionWith("stu-2", "math", mehrDate, []models.GradeEntry{gradeOf(12, 20)}, nil),
	}

	result, err := ComputeRankings(Input{
		Records:      records,
		Courses:      courses,
		WeightTables: tables,
		Scope:        models.RankingScope{Year: 1402},
		Page:         models.PageRequest{Offset: 0, Limit: 10},
		RequesterID:  "stu-1",
	})
	require.NoError(t, err)

	// stu-1: month 7 = 18, month 8 = 16+2 = 18, course average 18,
	// single course so overall 18.
	require.Len(t, result.OverallRanking.Entries, 2)
	assert.Equal(t, "stu-1", result.OverallRanking.Entries[0].SubjectID)
	assert.InDelta(t, 18, result.OverallRanking.Entries[0].Average, 1e-9)
	assert.Equal(t, 1, result.OverallRanking.Entries[0].Rank)
	assert.Equal(t, "stu-2", result.OverallRanking.Entries[1].SubjectID)
	assert.InDelta(t, 12, result.OverallRanking.Entries[1].Average, 1e-9)
	assert.Equal(t, 2, result.OverallRanking.Entries[1].Rank)

	require.NotNil(t, result.RequesterEntry)
	assert.Equal(t, 1, result.RequesterRank)

	courseRanking := result.CourseRankings["math"]
	require.Len(t, courseRanking, 2)
	assert.Equal(t, "stu-1", courseRanking[0].SubjectID)

	assert.Equal(t, 2, result.CohortStats.StudentCount)
	assert.Equal(t, 1, result.CohortStats.CourseCount)
	require.NotNil(t, result.CohortStats.ClassAverage)
	assert.InDelta(t, 15, *result.CohortStats.ClassAverage, 1e-9)
}

func TestComputeRankingsRequesterOutsidePage(t *testing.T) {
	courses := []models.Course{{ID: "math", CreditWeight: 1}}
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(19, 20)}, nil),
		sessionWith("stu-2", "math", mehrDate, []models.GradeEntry{gradeOf(15, 20)}, nil),
		sessionWith("stu-3", "math", mehrDate, []models.GradeEntry{gradeOf(11, 20)}, nil),
	}

	result, err := ComputeRankings(Input{
		Records:     records,
		Courses:     courses,
		Scope:       models.RankingScope{Year: 1402},
		Page:        models.PageRequest{Offset: 0, Limit: 1},
		RequesterID: "stu-3",
	})
	require.NoError(t, err)

	assert.Len(t, result.OverallRanking.Entries, 1)
	assert.True(t, result.OverallRanking.HasMore)
	require.NotNil(t, result.RequesterEntry)
	assert.Equal(t, 3, result.RequesterRank)
	assert.Equal(t, "stu-3", result.RequesterEntry.SubjectID)
}

func TestComputeRankingsFiltersToKnownStudents(t *testing.T) {
	courses := []models.Course{{ID: "math", CreditWeight: 1}}
	records := []models.SessionRecord{
		sessionWith("stu-1", "math", mehrDate, []models.GradeEntry{gradeOf(19, 20)}, nil),
		sessionWith("stu-ghost", "math", mehrDate, []models.GradeEntry{gradeOf(20, 20)}, nil),
	}

	result, err := ComputeRankings(Input{
		Records:  records,
		Courses:  courses,
		Students: []models.Student{{ID: "stu-1", FullName: "Sara Ahmadi"}},
		Scope:    models.RankingScope{Year: 1402},
		Page:     models.PageRequest{Limit: 10},
	})
	require.NoError(t, err)

	require.Len(t, result.OverallRanking.Entries, 1)
	assert.Equal(t, "stu-1", result.OverallRanking.Entries[0].SubjectID)
}

func TestComputeRankingsEmptyCohort(t *testing.T) {
	result, err := ComputeRankings(Input{
		Courses: []models.Course{{ID: "math", CreditWeight: 1}},
		Scope:   models.RankingScope{Year: 1402},
		Page:    models.PageRequest{Limit: 10},
	})
	require.NoError(t, err)

	assert.Empty(t, result.OverallRanking.Entries)
	assert.Equal(t, 0, result.OverallRanking.Total)
	assert.Zero(t, result.RequesterRank)
	assert.Nil(t, result.RequesterEntry)
	assert.Nil(t, result.CohortStats.ClassAverage)
}

func TestComputeRankingsInvalidScope(t *testing.T) {
	base := Input{
		Courses: []models.Course{{ID: "math", CreditWeight: 1}},
		Page:    models.PageRequest{Limit: 10},
	}

	badYear := base
	badYear.Scope = models.RankingScope{Year: 0}
	_, err := ComputeRankings(badYear)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrInvalidScope.Code, typed.Code)

	badMonth := base
	badMonth.Scope = models.RankingScope{Year: 1402, Month: 13}
	_, err = ComputeRankings(badMonth)
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrInvalidScope.Code, typed.Code)
}

func TestComputeRankingsRequiresCourses(t *testing.T) {
	_, err := ComputeRankings(Input{Scope: models.RankingScope{Year: 1402}})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}
