package fundamental

import (
	"math"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/pkg/models"
)

// GrahamNumber computes the classic Benjamin Graham intrinsic value.
// Graham Number = sqrt(22.5 × EPS × Book Value per Share)
func GrahamNumber(eps, bps null.Float) null.Float {
	if !eps.Valid || !bps.Valid || eps.Float64 <= 0 || bps.Float64 <= 0 {
		return null.Float{}
	}
	return null.FloatFrom(math.Sqrt(22.5 * eps.Float64 * bps.Float64))
}

// EarningsYield computes earnings yield in percent (inverse of PER).
func EarningsYield(eps, price null.Float) null.Float {
	return ratio(eps, price, 100)
}

// Assess classifies PER, PBR and ROE against the thresholds. The overall
// verdict needs both multiples to agree; otherwise it is fair.
func Assess(m models.ValuationMetrics, t config.AssessmentThresholds) models.ValuationAssessment {
	a := models.ValuationAssessment{
		PER: classifyMultiple(m.PER, t.PERUndervalued, t.PEROvervalued),
		PBR: classifyMultiple(m.PBR, t.PBRUndervalued, t.PBROvervalued),
		ROE: classifyROE(m.ROEPct, t.ROEExcellent, t.ROEGood),
	}

	var under, over int
	for _, s := range []models.Assessment{a.PER, a.PBR} {
		switch s {
		case models.AssessUndervalued:
			under++
		case models.AssessOvervalued:
			over++
		}
	}
	switch {
	case under >= 2:
		a.Overall = models.AssessUndervalued
	case over >= 2:
		a.Overall = models.AssessOvervalued
	default:
		a.Overall = models.AssessFair
	}
	return a
}

func classifyMultiple(v null.Float, under, over float64) models.Assessment {
	switch {
	case !v.Valid:
		return models.AssessUnavailable
	case v.Float64 < under:
		return models.AssessUndervalued
	case v.Float64 > over:
		return models.AssessOvervalued
	}
	return models.AssessFair
}

func classifyROE(v null.Float, excellent, good float64) models.Assessment {
	switch {
	case !v.Valid:
		return models.AssessUnavailable
	case v.Float64 > excellent:
		return models.AssessExcellent
	case v.Float64 > good:
		return models.AssessGood
	}
	return models.AssessNeedsImprovement
}
