package engine

import (
	"github.com/sepandmal/karname-api/internal/models"
)

// DefaultAssessmentWeights is the built-in, lowest-precedence label map used
// when a deployment configures no school-wide default for a label.
var DefaultAssessmentWeights = models.AssessmentWeightTable{
	"excellent": 2,
	"very_good": 1,
	"good":      0.5,
	"weak":      -1,
	"very_weak": -2,
}

// BuildWeightTables precomputes one merged assessment weight table per course.
// Layers merge lowest to highest precedence: built-in defaults, the school
// default table, the school-wide global override, then overrides from the
// teachers assigned to that course (in assignment order). Later layers
// replace earlier entries for the same label.
func BuildWeightTables(courses []models.Course, src models.WeightTableSources) map[string]models.AssessmentWeightTable {
	tables := make(map[string]models.AssessmentWeightTable, len(courses))
	for _, course := range courses {
		table := make(models.AssessmentWeightTable, len(DefaultAssessmentWeights))
		mergeWeights(table, DefaultAssessmentWeights)
		mergeWeights(table, src.SchoolDefault)
		mergeWeights(table, src.GlobalOverride)
		for _, teacherID := range src.CourseTeachers[course.ID] {
			mergeWeights(table, src.TeacherOverrides[teacherID])
		}
		tables[course.ID] = table
	}
	return tables
}

func mergeWeights(dst, src models.AssessmentWeightTable) {
	for label, weight := range src {
		dst[label] = weight
	}
}
