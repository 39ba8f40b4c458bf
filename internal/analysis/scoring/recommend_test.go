package scoring

import (
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/kabuai/pkg/models"
)

func score(total float64) *models.ScoreResult {
	return &models.ScoreResult{Total: total, Rating: "r"}
}

func TestSynthesizeRuleTable(t *testing.T) {
	tests := []struct {
		name      string
		valuation *models.ScoreResult
		growth    *models.ScoreResult
		want      models.Decision
	}{
		{"both high", score(75), score(60), models.DecisionStrong},
		{"valuation only", score(60), score(59.99), models.DecisionValue},
		{"growth only", score(40), score(85), models.DecisionGrowth},
		{"both low", score(30), score(20), models.DecisionPass},
		{"growth missing", score(80), nil, models.DecisionValue},
		{"valuation missing", nil, score(80), models.DecisionGrowth},
		{"nothing", nil, nil, models.DecisionPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newEngine().Synthesize(tt.valuation, tt.growth, nil)
			assert.Equal(t, tt.want, rec.Decision)
			assert.NotEmpty(t, rec.Label)
			assert.NotEmpty(t, rec.Summary)
			assert.NotNil(t, rec.RiskFactors)
		})
	}
}

func TestSynthesizeSummary(t *testing.T) {
	risks := []models.RiskFactor{{Factor: "x", Severity: models.SeverityHigh}, {Factor: "y", Severity: models.SeverityLow}}
	rec := newEngine().Synthesize(score(70), nil, risks)

	assert.Contains(t, rec.Summary, "Value-oriented")
	assert.Contains(t, rec.Summary, "valuation 70.00/100")
	assert.Contains(t, rec.Summary, "growth not analyzed")
	assert.Contains(t, rec.Summary, "2 risk factor(s), 1 high")
	assert.Len(t, rec.RiskFactors, 2)
}

func TestValuationRisks(t *testing.T) {
	e := newEngine()

	risks := e.ValuationRisks(models.ValuationMetrics{
		PER:                null.FloatFrom(35),
		PBR:                null.FloatFrom(0.7),
		ROEPct:             null.FloatFrom(5),
		ROAPct:             null.FloatFrom(1),
		OperatingMarginPct: null.FloatFrom(3),
		NetMarginPct:       null.FloatFrom(1),
		EquityRatioPct:     null.FloatFrom(25),
	}, models.ValuationAssessment{})
	require.Len(t, risks, 4)
	assert.Equal(t, models.SeverityHigh, risks[0].Severity)
	assert.Contains(t, risks[0].Factor, "High PER")
	assert.Equal(t, models.SeverityMedium, risks[1].Severity)
	assert.Equal(t, models.SeverityHigh, risks[2].Severity)
	assert.Equal(t, models.SeverityMedium, risks[3].Severity)

	fair := models.ValuationAssessment{PER: models.AssessFair, PBR: models.AssessFair, ROE: models.AssessExcellent}
	assert.Empty(t, e.ValuationRisks(toyotaMetrics(), fair))

	sparse := toyotaMetrics()
	sparse.PER = null.Float{}
	sparse.PBR = null.Float{}
	risks = e.ValuationRisks(sparse, models.ValuationAssessment{PER: models.AssessUnavailable, PBR: models.AssessUnavailable})
	require.Len(t, risks, 1)
	assert.Contains(t, risks[0].Factor, "Insufficient disclosure")
	assert.Contains(t, risks[0].Factor, "per, pbr")
}

func TestValuationRisksCountUnfavorable(t *testing.T) {
	e := newEngine()

	partial := toyotaMetrics()
	partial.PBR = null.Float{}
	weak := models.ValuationAssessment{
		PER: models.AssessOvervalued,
		PBR: models.AssessUnavailable,
		ROE: models.AssessFair,
	}
	assert.Equal(t, []string{"per"}, weak.Unfavorable())

	risks := e.ValuationRisks(partial, weak)
	require.Len(t, risks, 1)
	assert.Equal(t, models.SeverityMedium, risks[0].Severity)
	assert.Contains(t, risks[0].Factor, "2 metrics unfavorable or unavailable")
	assert.Contains(t, risks[0].Factor, "per, pbr")

	assert.Empty(t, e.ValuationRisks(partial, models.ValuationAssessment{PER: models.AssessFair}))
}

func TestGrowthRisks(t *testing.T) {
	g := sampleGrowth()
	g.OverallConsistency = null.FloatFrom(0.3)
	g.Profitability = models.QualityDeteriorating

	risks := newEngine().GrowthRisks(g)
	require.Len(t, risks, 3)
	assert.Contains(t, risks[0].Factor, "Unstable growth")
	assert.Contains(t, risks[1].Factor, "decelerating")
	assert.Contains(t, risks[2].Factor, "margin")
}

func TestKeyInsights(t *testing.T) {
	e := newEngine()
	m := toyotaMetrics()
	assert.Equal(t, []string{"Attractive combination of a low PER and a high ROE"}, e.KeyInsights(m))

	m.OperatingMarginPct = null.FloatFrom(20)
	m.EquityRatioPct = null.FloatFrom(65)
	assert.Len(t, e.KeyInsights(m), 3)

	assert.Empty(t, e.KeyInsights(models.ValuationMetrics{}))
}

func TestOutlookTimingCatalysts(t *testing.T) {
	e := newEngine()
	g := sampleGrowth()

	o := e.Outlook(g)
	assert.Equal(t, "high", o.Sustainability)
	assert.Equal(t, "limited", o.AccelerationPotential)

	g.NetSales.Trend = models.TrendAccelerating
	assert.Equal(t, "high", e.Outlook(g).AccelerationPotential)

	assert.Equal(t, "excellent timing", e.InvestmentTiming(g, models.ScoreResult{Total: 75}))
	assert.Equal(t, "good timing", e.InvestmentTiming(sampleGrowth(), models.ScoreResult{Total: 75}))
	assert.Equal(t, "consider carefully", e.InvestmentTiming(g, models.ScoreResult{Total: 45}))
	assert.Equal(t, "wait", e.InvestmentTiming(g, models.ScoreResult{Total: 10}))

	assert.Equal(t, []string{"Profit growing faster than sales", "Continuing margin improvement"}, e.Catalysts(sampleGrowth()))

	weak := models.GrowthAnalysis{NetSales: models.MetricGrowth{CAGR: null.FloatFrom(0.02)}}
	assert.Equal(t, "low", e.Outlook(weak).Sustainability)
	assert.Empty(t, e.Catalysts(weak))
}
