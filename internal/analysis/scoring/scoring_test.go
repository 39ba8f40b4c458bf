package scoring

import (
	"math/rand"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/pkg/models"
)

func newEngine() *Engine {
	return NewEngine(config.DefaultScoring())
}

func toyotaMetrics() models.ValuationMetrics {
	return models.ValuationMetrics{
		PER:                null.FloatFrom(14),
		PBR:                null.FloatFrom(2.52),
		ROEPct:             null.FloatFrom(18),
		ROAPct:             null.FloatFrom(7.2),
		OperatingMarginPct: null.FloatFrom(15),
		NetMarginPct:       null.FloatFrom(9),
		EquityRatioPct:     null.FloatFrom(40),
	}
}

func subScore(t *testing.T, r models.ScoreResult, name string) models.SubScore {
	t.Helper()
	for _, s := range r.SubScores {
		if s.Criterion == name {
			return s
		}
	}
	t.Fatalf("sub-score %q not found", name)
	return models.SubScore{}
}

func TestScoreValuation(t *testing.T) {
	r := newEngine().ScoreValuation(toyotaMetrics())

	assert.Equal(t, models.AxisValuation, r.Axis)
	assert.Equal(t, 20.0, subScore(t, r, "per").Points)
	assert.Equal(t, 8.0, subScore(t, r, "pbr").Points)
	assert.Equal(t, 20.0, subScore(t, r, "roe").Points)
	assert.Equal(t, 10.0, subScore(t, r, "equity_ratio").Points)
	assert.Equal(t, 10.0, subScore(t, r, "operating_margin").Points, "15% is not above 15")
	assert.Equal(t, 68.0, r.Total)
	assert.Equal(t, 100.0, r.MaxScore)
	assert.Equal(t, "attractive", r.Rating)
	assert.Equal(t, models.AssessUndervalued, r.Assessment)
}

func TestScoreValuationUnavailableIsNeutral(t *testing.T) {
	r := newEngine().ScoreValuation(models.ValuationMetrics{})

	for _, s := range r.SubScores {
		assert.False(t, s.Available)
		assert.Equal(t, s.MaxPoints*0.5, s.Points, s.Criterion)
		assert.NotEmpty(t, s.Note)
	}
	assert.Equal(t, 50.0, r.Total)
	assert.Equal(t, "neutral", r.Rating)
	assert.Equal(t, models.AssessFair, r.Assessment)
}

func TestScoreValuationBest(t *testing.T) {
	r := newEngine().ScoreValuation(models.ValuationMetrics{
		PER:                null.FloatFrom(6),
		PBR:                null.FloatFrom(0.7),
		ROEPct:             null.FloatFrom(25),
		OperatingMarginPct: null.FloatFrom(20),
		EquityRatioPct:     null.FloatFrom(70),
	})
	assert.Equal(t, 100.0, r.Total)
	assert.Equal(t, "very attractive", r.Rating)
}

func sampleGrowth() models.GrowthAnalysis {
	return models.GrowthAnalysis{
		NetSales:           models.MetricGrowth{CAGR: null.FloatFrom(0.12), Trend: models.TrendStable},
		NetIncome:          models.MetricGrowth{CAGR: null.FloatFrom(0.229), Trend: models.TrendDecelerating},
		OverallConsistency: null.FloatFrom(1),
		Profitability:      models.QualityImproving,
		Efficiency:         models.QualityUnknown,
	}
}

func TestScoreGrowth(t *testing.T) {
	r := newEngine().ScoreGrowth(sampleGrowth())

	assert.Equal(t, models.AxisGrowth, r.Axis)
	assert.Equal(t, 15.0, subScore(t, r, "sales_cagr").Points)
	assert.Equal(t, 20.0, subScore(t, r, "profit_cagr").Points)
	assert.Equal(t, 20.0, subScore(t, r, "consistency").Points)
	assert.Equal(t, 10.0, subScore(t, r, "profitability_trend").Points)
	assert.Equal(t, 5.0, subScore(t, r, "efficiency_trend").Points)
	assert.False(t, subScore(t, r, "efficiency_trend").Available)
	assert.Equal(t, 9.0, subScore(t, r, "trend").Points, "(0.7 + 0.2) / 2 × 20")
	assert.Equal(t, 79.0, r.Total)
	assert.Equal(t, "growth", r.Rating)
	assert.Equal(t, models.AssessFavorable, r.Assessment)
}

func TestScoreGrowthNoData(t *testing.T) {
	r := newEngine().ScoreGrowth(models.GrowthAnalysis{
		NetSales:  models.MetricGrowth{Trend: models.TrendInsufficient},
		NetIncome: models.MetricGrowth{Trend: models.TrendInsufficient},
	})
	assert.Equal(t, 50.0, r.Total)
	assert.Equal(t, models.AssessFair, r.Assessment)
}

func TestScoreGrowthDeteriorating(t *testing.T) {
	r := newEngine().ScoreGrowth(models.GrowthAnalysis{
		NetSales:           models.MetricGrowth{CAGR: null.FloatFrom(-0.05), Trend: models.TrendDecelerating},
		NetIncome:          models.MetricGrowth{CAGR: null.FloatFrom(-0.1), Trend: models.TrendDecelerating},
		OverallConsistency: null.FloatFrom(0),
		Profitability:      models.QualityDeteriorating,
		Efficiency:         models.QualityDeteriorating,
	})
	assert.Equal(t, 4.0, r.Total)
	assert.Equal(t, "slowing", r.Rating)
	assert.Equal(t, models.AssessUnfavorable, r.Assessment)
}

func TestCustomScoringTable(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.NeutralFactor = 0
	cfg.Valuation.PER = config.Criterion{Weight: 25, Bands: []config.Band{{Points: 25}}}

	r := NewEngine(cfg).ScoreValuation(models.ValuationMetrics{PER: null.FloatFrom(99)})
	assert.Equal(t, 25.0, r.Total, "only PER scores, missing metrics count zero")
}

func TestScoresStayInRange(t *testing.T) {
	e := newEngine()
	rng := rand.New(rand.NewSource(7))
	pick := func(lo, hi float64) null.Float {
		if rng.Intn(5) == 0 {
			return null.Float{}
		}
		return null.FloatFrom(lo + rng.Float64()*(hi-lo))
	}
	trends := []models.Trend{models.TrendAccelerating, models.TrendDecelerating, models.TrendStable, models.TrendMixed, models.TrendInsufficient}
	qualities := []models.QualityTrend{models.QualityImproving, models.QualityDeteriorating, models.QualityUnknown}

	for i := 0; i < 1000; i++ {
		v := e.ScoreValuation(models.ValuationMetrics{
			PER:                pick(-50, 200),
			PBR:                pick(-5, 20),
			ROEPct:             pick(-100, 100),
			OperatingMarginPct: pick(-100, 100),
			EquityRatioPct:     pick(-10, 100),
		})
		require.GreaterOrEqual(t, v.Total, 0.0)
		require.LessOrEqual(t, v.Total, 100.0)

		g := e.ScoreGrowth(models.GrowthAnalysis{
			NetSales:           models.MetricGrowth{CAGR: pick(-1, 3), Trend: trends[rng.Intn(len(trends))]},
			NetIncome:          models.MetricGrowth{CAGR: pick(-1, 3), Trend: trends[rng.Intn(len(trends))]},
			OverallConsistency: pick(0, 1),
			Profitability:      qualities[rng.Intn(len(qualities))],
			Efficiency:         qualities[rng.Intn(len(qualities))],
		})
		require.GreaterOrEqual(t, g.Total, 0.0)
		require.LessOrEqual(t, g.Total, 100.0)
	}
}
