// Package scoring turns metrics and growth analysis into 0-100 axis scores,
// risk factors and a final recommendation. Every threshold and weight comes
// from config.ScoringConfig.
package scoring

import (
	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Engine scores both axes with one scoring table.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates a scoring engine.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the scoring table in use.
func (e *Engine) Config() config.ScoringConfig { return e.cfg }

// ScoreValuation scores PER, PBR, ROE, equity ratio and operating margin.
func (e *Engine) ScoreValuation(m models.ValuationMetrics) models.ScoreResult {
	v := e.cfg.Valuation
	subs := []models.SubScore{
		e.banded("per", v.PER, m.PER),
		e.banded("pbr", v.PBR, m.PBR),
		e.banded("roe", v.ROE, m.ROEPct),
		e.banded("equity_ratio", v.EquityRatio, m.EquityRatioPct),
		e.banded("operating_margin", v.OperatingMargin, m.OperatingMarginPct),
	}
	return e.result(models.AxisValuation, subs, e.cfg.ValuationRatings)
}

// ScoreGrowth scores CAGR, consistency, quality trends and rate trends.
func (e *Engine) ScoreGrowth(g models.GrowthAnalysis) models.ScoreResult {
	gs := e.cfg.Growth
	subs := []models.SubScore{
		e.banded("sales_cagr", gs.SalesCAGR, percent(g.NetSales.CAGR)),
		e.banded("profit_cagr", gs.ProfitCAGR, percent(g.NetIncome.CAGR)),
		e.fraction("consistency", gs.Consistency, g.OverallConsistency),
		e.fraction("profitability_trend", gs.Profitability, qualityFactor(g.Profitability)),
		e.fraction("efficiency_trend", gs.Efficiency, qualityFactor(g.Efficiency)),
		e.trend(gs.Trend, g.NetSales.Trend, g.NetIncome.Trend),
	}
	return e.result(models.AxisGrowth, subs, e.cfg.GrowthRatings)
}

// banded scores a value against the criterion's band table.
func (e *Engine) banded(name string, c config.Criterion, v null.Float) models.SubScore {
	if !v.Valid {
		return e.neutral(name, c)
	}
	points, ok := c.Points(v.Float64)
	if !ok {
		return e.neutral(name, c)
	}
	return models.SubScore{Criterion: name, Points: utils.Round2(points), MaxPoints: c.Weight, Available: true}
}

// fraction awards weight × f for f in [0,1].
func (e *Engine) fraction(name string, c config.Criterion, f null.Float) models.SubScore {
	if !f.Valid {
		return e.neutral(name, c)
	}
	return models.SubScore{Criterion: name, Points: utils.Round2(clamp(c.Weight*f.Float64, 0, c.Weight)), MaxPoints: c.Weight, Available: true}
}

// trend averages the sales and profit trend factors.
func (e *Engine) trend(c config.Criterion, trends ...models.Trend) models.SubScore {
	var (
		sum       float64
		available bool
	)
	for _, t := range trends {
		factor, ok := e.cfg.Growth.TrendFactors[string(t)]
		if t == models.TrendInsufficient || !ok {
			factor = e.cfg.NeutralFactor
		} else {
			available = true
		}
		sum += factor
	}
	if !available {
		return e.neutral("trend", c)
	}
	f := sum / float64(len(trends))
	return models.SubScore{Criterion: "trend", Points: utils.Round2(clamp(c.Weight*f, 0, c.Weight)), MaxPoints: c.Weight, Available: true}
}

func (e *Engine) neutral(name string, c config.Criterion) models.SubScore {
	return models.SubScore{
		Criterion: name,
		Points:    utils.Round2(c.Weight * e.cfg.NeutralFactor),
		MaxPoints: c.Weight,
		Note:      "unavailable, scored at neutral",
	}
}

func (e *Engine) result(axis models.Axis, subs []models.SubScore, ratings []config.RatingBand) models.ScoreResult {
	var total float64
	for _, s := range subs {
		total += s.Points
	}
	total = utils.Round2(clamp(total, 0, 100))
	return models.ScoreResult{
		Axis:       axis,
		Total:      total,
		MaxScore:   100,
		Rating:     config.Rating(ratings, total),
		Assessment: e.assessAxis(axis, total),
		SubScores:  subs,
	}
}

// assessAxis maps a total onto the axis's ordered label set.
func (e *Engine) assessAxis(axis models.Axis, total float64) models.Assessment {
	high, mid, low := models.AssessFavorable, models.AssessFair, models.AssessUnfavorable
	if axis == models.AxisValuation {
		high, low = models.AssessUndervalued, models.AssessOvervalued
	}
	switch {
	case total >= e.cfg.HighScore:
		return high
	case total >= e.cfg.FairScore:
		return mid
	}
	return low
}

func percent(v null.Float) null.Float {
	if !v.Valid {
		return v
	}
	return null.FloatFrom(v.Float64 * 100)
}

func qualityFactor(q models.QualityTrend) null.Float {
	switch q {
	case models.QualityImproving:
		return null.FloatFrom(1)
	case models.QualityDeteriorating:
		return null.FloatFrom(0)
	}
	return null.Float{}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
