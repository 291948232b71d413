package engine

import (
	"github.com/sepandmal/karname-api/internal/models"
)

const (
	// ScoreScale re-bases normalized grades onto the national 0-20 scale.
	ScoreScale = 20.0
)

// ScoreBreakdown is the outcome of scoring one student/course/month bucket.
// FinalScore and BaseGrade are nil when the bucket holds no numeric grades.
type ScoreBreakdown struct {
	FinalScore           *float64
	BaseGrade            *float64
	AssessmentAdjustment float64
}

// ComputeFinalScore combines a month's numeric grades and qualitative
// assessments into a single 0-20 score. Each grade is normalized against its
// own possible points before re-basing; the assessment adjustment is only
// applied (and the result clamped) when at least one assessment exists.
func ComputeFinalScore(grades []models.GradeEntry, assessments []models.AssessmentEntry, weights models.AssessmentWeightTable) ScoreBreakdown {
	var adjustment float64
	for _, a := range assessments {
		adjustment += resolveAssessmentWeight(a, weights)
	}

	if len(grades) == 0 {
		return ScoreBreakdown{AssessmentAdjustment: adjustment}
	}

	var earned, possible float64
	for _, g := range grades {
		earned += g.Value
		total := g.TotalPoints
		if total <= 0 {
			total = models.DefaultTotalPoints
		}
		possible += total
	}

	base := earned / possible * ScoreScale
	final := base
	if len(assessments) > 0 {
		final = clamp(base+adjustment, 0, ScoreScale)
	}
	return ScoreBreakdown{FinalScore: &final, BaseGrade: &base, AssessmentAdjustment: adjustment}
}

// resolveAssessmentWeight applies the precedence chain: the entry's own
// explicit weight, otherwise the merged table, otherwise zero.
func resolveAssessmentWeight(a models.AssessmentEntry, weights models.AssessmentWeightTable) float64 {
	if a.Weight != nil {
		return *a.Weight
	}
	if w, ok := weights[a.Label]; ok {
		return w
	}
	return 0
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
