package engine

import (
	"math"

	"github.com/sepandmal/karname-api/internal/models"
)

// ComputeOverall reduces a student's course averages into one credit-weighted
// overall average rounded to two decimals. It returns nil when the student
// has no course averages at all.
func ComputeOverall(averages []models.CourseAverage) *float64 {
	var weightedSum, totalWeight float64
	for _, ca := range averages {
		weight := ca.CreditWeight
		if weight < models.DefaultCreditWeight {
			weight = models.DefaultCreditWeight
		}
		weightedSum += ca.Average * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return nil
	}
	overall := round2(weightedSum / totalWeight)
	return &overall
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
