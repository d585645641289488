package scorer

import (
	"github.com/nhstools/datagovernor/pkg/models"
)

// Quality dimensions, after the NHS Data Quality Maturity Index.
const (
	Completeness = "completeness"
	Validity     = "validity"
	Uniqueness   = "uniqueness"
	Consistency  = "consistency"
)

// Weights is the fixed dimension weighting of the overall score. Weights are
// renormalized over the dimensions that actually scored.
var Weights = map[string]float64{
	Completeness: 0.4,
	Validity:     0.3,
	Uniqueness:   0.15,
	Consistency:  0.15,
}

var validityRules = map[string]bool{
	"match_regex":       true,
	"in_list":           true,
	"match_time_format": true,
}

// Score aggregates per-column validation outcomes into dimension scores and
// one weighted overall score. A dimension with no contributing column stays
// nil and carries no weight.
func Score(results []models.ColumnValidation) *models.QualityScore {
	samples := map[string][]float64{
		Completeness: nil,
		Validity:     nil,
		Uniqueness:   nil,
		Consistency:  nil,
	}

	for _, cr := range results {
		passed := make(map[string]bool, len(cr.RulesPassed))
		for _, r := range cr.RulesPassed {
			passed[r] = true
		}

		validityTested, validityPassed := 0, 0
		otherTested, otherPassed := 0, 0

		for _, rule := range cr.RulesTested {
			switch {
			case rule == "not_null":
				samples[Completeness] = append(samples[Completeness], passFail(passed[rule]))
			case rule == "unique":
				samples[Uniqueness] = append(samples[Uniqueness], passFail(passed[rule]))
			case validityRules[rule]:
				validityTested++
				if passed[rule] {
					validityPassed++
				}
			default:
				// Everything not claimed by another dimension counts toward
				// consistency; changing this bucketing would change scores.
				otherTested++
				if passed[rule] {
					otherPassed++
				}
			}
		}

		if validityTested > 0 {
			samples[Validity] = append(samples[Validity], float64(validityPassed)/float64(validityTested)*100)
		}
		if otherTested > 0 {
			samples[Consistency] = append(samples[Consistency], float64(otherPassed)/float64(otherTested)*100)
		}
	}

	scores := make(map[string]*float64, len(samples))
	for dim, vals := range samples {
		if len(vals) == 0 {
			scores[dim] = nil
			continue
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		avg := sum / float64(len(vals))
		scores[dim] = &avg
	}

	weightedSum, weightSum := 0.0, 0.0
	for dim, score := range scores {
		if score != nil {
			weightedSum += *score * Weights[dim]
			weightSum += Weights[dim]
		}
	}
	overall := 0.0
	if weightSum > 0 {
		overall = weightedSum / weightSum
	}

	return &models.QualityScore{
		OverallScore:    overall,
		DimensionScores: scores,
		Interpretation:  Interpret(overall),
		Weights:         Weights,
	}
}

// Interpret buckets a quality score into its qualitative reading.
func Interpret(score float64) string {
	switch {
	case score >= 95:
		return "Excellent - Data meets the highest quality standards"
	case score >= 85:
		return "Good - Data is reliable with minor quality issues"
	case score >= 70:
		return "Adequate - Data is usable but has notable quality issues"
	case score >= 50:
		return "Poor - Data has significant quality issues requiring attention"
	default:
		return "Critical - Data quality is severely compromised"
	}
}

func passFail(ok bool) float64 {
	if ok {
		return 100
	}
	return 0
}
