package engine

import (
	"github.com/sepandmal/karname-api/internal/models"
)

// monthBucket accumulates every grade and assessment recorded for one
// student/course/local-month across all of its session records.
type monthBucket struct {
	grades      []models.GradeEntry
	assessments []models.AssessmentEntry
}

// Aggregate filters session records to the requested scope, groups them by
// student, course and local month, scores every considered month and reduces
// the non-nil monthly scores into one course average per student/course pair.
// Pairs with no scored month are omitted entirely rather than reported as
// zero. Records with an unknown course or an unusable date are skipped.
func Aggregate(records []models.SessionRecord, courses []models.Course, weightTables map[string]models.AssessmentWeightTable, scope models.RankingScope) map[string]map[string]models.CourseAverage {
	courseIndex := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		courseIndex[c.ID] = c
	}

	// buckets[studentID][courseID][month 1-12]
	buckets := make(map[string]map[string]map[int]*monthBucket)
	for _, record := range records {
		if record.Date.IsZero() {
			continue
		}
		course, ok := courseIndex[record.CourseID]
		if !ok {
			continue
		}
		local := ToLocalDate(record.Date)
		if !local.InScope(scope.Year, scope.Month) {
			continue
		}

		byCourse, ok := buckets[record.StudentID]
		if !ok {
			byCourse = make(map[string]map[int]*monthBucket)
			buckets[record.StudentID] = byCourse
		}
		byMonth, ok := byCourse[course.ID]
		if !ok {
			byMonth = emptyMonths()
			byCourse[course.ID] = byMonth
		}
		bucket := byMonth[local.Month]
		bucket.grades = append(bucket.grades, record.Grades...)
		bucket.assessments = append(bucket.assessments, record.Assessments...)
	}

	result := make(map[string]map[string]models.CourseAverage, len(buckets))
	for studentID, byCourse := range buckets {
		for courseID, byMonth := range byCourse {
			average, scored := reduceMonths(byMonth, weightTables[courseID], scope.Month)
			if !scored {
				continue
			}
			byCourseAvg, ok := result[studentID]
			if !ok {
				byCourseAvg = make(map[string]models.CourseAverage)
				result[studentID] = byCourseAvg
			}
			byCourseAvg[courseID] = models.CourseAverage{
				StudentID:    studentID,
				CourseID:     courseID,
				Average:      average,
				CreditWeight: courseIndex[courseID].EffectiveCreditWeight(),
			}
		}
	}
	return result
}

// emptyMonths initializes all 12 local months so absent months are explicit
// "no data" buckets rather than missing keys.
func emptyMonths() map[int]*monthBucket {
	months := make(map[int]*monthBucket, 12)
	for m := 1; m <= 12; m++ {
		months[m] = &monthBucket{}
	}
	return months
}

// reduceMonths scores the considered months and returns the mean of the
// non-nil final scores. The boolean is false when no month produced a score.
func reduceMonths(byMonth map[int]*monthBucket, weights models.AssessmentWeightTable, scopeMonth int) (float64, bool) {
	var sum float64
	var count int
	for m := 1; m <= 12; m++ {
		if scopeMonth != 0 && m != scopeMonth {
			continue
		}
		breakdown := ComputeFinalScore(byMonth[m].grades, byMonth[m].assessments, weights)
		if breakdown.FinalScore == nil {
			continue
		}
		sum += *breakdown.FinalScore
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
