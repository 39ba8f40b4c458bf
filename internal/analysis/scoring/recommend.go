package scoring

import (
	"fmt"
	"strings"

	"github.com/seenimoa/kabuai/pkg/models"
)

// decisionRule is one row of the recommendation table.
type decisionRule struct {
	decision models.Decision
	label    string
}

// decisionTable is keyed by (valuation high, growth high).
var decisionTable = map[[2]bool]decisionRule{
	{true, true}:   {models.DecisionStrong, "strong recommendation"},
	{true, false}:  {models.DecisionValue, "value-oriented"},
	{false, true}:  {models.DecisionGrowth, "growth-oriented"},
	{false, false}: {models.DecisionPass, "pass"},
}

// Growth outlook cut-offs, in percent for CAGR.
const (
	sustainableSalesCAGR  = 10.0
	moderateSalesCAGR     = 5.0
	sustainableConsistent = 0.6
	catalystSalesCAGR     = 15.0
	primeTimingScore      = 70.0
	unstableConsistency   = 0.4
)

// Synthesize combines the axis scores and risks into a recommendation.
// A missing axis counts as not high.
func (e *Engine) Synthesize(valuation, growth *models.ScoreResult, risks []models.RiskFactor) models.Recommendation {
	key := [2]bool{e.isHigh(valuation), e.isHigh(growth)}
	rule := decisionTable[key]

	if risks == nil {
		risks = []models.RiskFactor{}
	}
	return models.Recommendation{
		Decision:    rule.decision,
		Label:       rule.label,
		Summary:     summarize(rule, valuation, growth, risks),
		Valuation:   valuation,
		Growth:      growth,
		RiskFactors: risks,
	}
}

func (e *Engine) isHigh(s *models.ScoreResult) bool {
	return s != nil && s.Total >= e.cfg.HighScore
}

func summarize(rule decisionRule, valuation, growth *models.ScoreResult, risks []models.RiskFactor) string {
	axis := func(name string, s *models.ScoreResult) string {
		if s == nil {
			return name + " not analyzed"
		}
		return fmt.Sprintf("%s %.2f/100 (%s)", name, s.Total, s.Rating)
	}

	var high int
	for _, r := range risks {
		if r.Severity == models.SeverityHigh {
			high++
		}
	}
	riskNote := "no risk factors"
	if len(risks) > 0 {
		riskNote = fmt.Sprintf("%d risk factor(s), %d high", len(risks), high)
	}

	return fmt.Sprintf("%s: %s, %s; %s",
		strings.ToUpper(rule.label[:1])+rule.label[1:],
		axis("valuation", valuation), axis("growth", growth), riskNote)
}

// ValuationRisks flags metric levels that warrant caution. Metrics the
// assessment rates unfavorable count toward the disclosure threshold along
// with unavailable ones.
func (e *Engine) ValuationRisks(m models.ValuationMetrics, a models.ValuationAssessment) []models.RiskFactor {
	t := e.cfg.Risk
	risks := []models.RiskFactor{}

	if m.PER.Valid && m.PER.Float64 > t.PERHigh {
		risks = append(risks, models.RiskFactor{
			Factor:   fmt.Sprintf("High PER (%.1fx): growth expectations priced in, downside risk", m.PER.Float64),
			Severity: models.SeverityHigh,
		})
	}
	if m.PBR.Valid && m.PBR.Float64 < t.PBRLow {
		risks = append(risks, models.RiskFactor{
			Factor:   fmt.Sprintf("Low PBR (%.2fx): market may be pricing in weaker earnings", m.PBR.Float64),
			Severity: models.SeverityMedium,
		})
	}
	if m.EquityRatioPct.Valid && m.EquityRatioPct.Float64 < t.EquityRatioLow {
		risks = append(risks, models.RiskFactor{
			Factor:   fmt.Sprintf("Low equity ratio (%.1f%%): financial stability risk", m.EquityRatioPct.Float64),
			Severity: models.SeverityHigh,
		})
	}
	if m.OperatingMarginPct.Valid && m.OperatingMarginPct.Float64 < t.OperatingMarginLow {
		risks = append(risks, models.RiskFactor{
			Factor:   fmt.Sprintf("Low operating margin (%.1f%%): profitability risk", m.OperatingMarginPct.Float64),
			Severity: models.SeverityMedium,
		})
	}
	missing, weak := m.Unavailable(), a.Unfavorable()
	if n := len(missing) + len(weak); n >= t.UnavailableCount {
		factor := fmt.Sprintf("Insufficient disclosure: %d metrics unavailable (%s)", n, strings.Join(missing, ", "))
		if len(weak) > 0 {
			factor = fmt.Sprintf("Weak or missing fundamentals: %d metrics unfavorable or unavailable (%s)",
				n, strings.Join(append(weak, missing...), ", "))
		}
		risks = append(risks, models.RiskFactor{Factor: factor, Severity: models.SeverityMedium})
	}
	return risks
}

// GrowthRisks flags unstable or weakening growth.
func (e *Engine) GrowthRisks(g models.GrowthAnalysis) []models.RiskFactor {
	risks := []models.RiskFactor{}
	if g.OverallConsistency.Valid && g.OverallConsistency.Float64 < unstableConsistency {
		risks = append(risks, models.RiskFactor{
			Factor:   fmt.Sprintf("Unstable growth (consistency %.2f)", g.OverallConsistency.Float64),
			Severity: models.SeverityMedium,
		})
	}
	if g.NetIncome.Trend == models.TrendDecelerating {
		risks = append(risks, models.RiskFactor{Factor: "Profit growth is decelerating", Severity: models.SeverityMedium})
	}
	if g.Profitability == models.QualityDeteriorating {
		risks = append(risks, models.RiskFactor{Factor: "Operating margin is deteriorating", Severity: models.SeverityMedium})
	}
	return risks
}

// KeyInsights lists the positive signals in the metrics.
func (e *Engine) KeyInsights(m models.ValuationMetrics) []string {
	t := e.cfg.Insights
	insights := []string{}
	if m.PER.Valid && m.PER.Float64 < t.PERMax && m.ROEPct.Valid && m.ROEPct.Float64 > t.ROEMin {
		insights = append(insights, "Attractive combination of a low PER and a high ROE")
	}
	if m.OperatingMarginPct.Valid && m.OperatingMarginPct.Float64 > t.OperatingMarginMin {
		insights = append(insights, "High operating margin suggests a competitive advantage")
	}
	if m.EquityRatioPct.Valid && m.EquityRatioPct.Float64 > t.EquityRatioMin {
		insights = append(insights, "Strong balance sheet with good risk tolerance")
	}
	return insights
}

// Outlook estimates whether growth can be sustained or accelerate.
func (e *Engine) Outlook(g models.GrowthAnalysis) models.FutureOutlook {
	salesCAGR := percent(g.NetSales.CAGR)
	consistent := g.OverallConsistency.Valid && g.OverallConsistency.Float64 >= sustainableConsistent

	o := models.FutureOutlook{Sustainability: "low", AccelerationPotential: "limited"}
	switch {
	case salesCAGR.Valid && salesCAGR.Float64 > sustainableSalesCAGR && consistent:
		o.Sustainability = "high"
	case salesCAGR.Valid && salesCAGR.Float64 > moderateSalesCAGR:
		o.Sustainability = "medium"
	}
	if g.NetSales.Trend == models.TrendAccelerating && g.Profitability == models.QualityImproving {
		o.AccelerationPotential = "high"
	}
	return o
}

// InvestmentTiming grades the entry point from the growth score.
func (e *Engine) InvestmentTiming(g models.GrowthAnalysis, score models.ScoreResult) string {
	switch {
	case score.Total >= primeTimingScore && g.NetSales.Trend == models.TrendAccelerating:
		return "excellent timing"
	case score.Total >= e.cfg.HighScore:
		return "good timing"
	case score.Total >= e.cfg.FairScore:
		return "consider carefully"
	}
	return "wait"
}

// Catalysts lists the drivers behind the growth profile.
func (e *Engine) Catalysts(g models.GrowthAnalysis) []string {
	sales, profit := percent(g.NetSales.CAGR), percent(g.NetIncome.CAGR)
	catalysts := []string{}
	if sales.Valid && sales.Float64 > catalystSalesCAGR {
		catalysts = append(catalysts, "High sales growth")
	}
	if sales.Valid && profit.Valid && profit.Float64 > sales.Float64 {
		catalysts = append(catalysts, "Profit growing faster than sales")
	}
	if g.Profitability == models.QualityImproving {
		catalysts = append(catalysts, "Continuing margin improvement")
	}
	return catalysts
}
