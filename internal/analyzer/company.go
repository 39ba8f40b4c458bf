package analyzer

import (
	"context"

	"github.com/seenimoa/kabuai/pkg/models"
)

// AnalyzeCompany runs both analyses for one company and synthesizes a
// recommendation from the valuation and growth scores together.
func (a *Analyzer) AnalyzeCompany(ctx context.Context, code string, years int, quarter *string, year *int) (*models.CompanyReport, error) {
	val, err := a.AnalyzeValuation(ctx, code, quarter, year)
	if err != nil {
		return nil, err
	}
	gr, err := a.AnalyzeGrowth(ctx, code, years, quarter)
	if err != nil {
		return nil, err
	}

	rep := &models.CompanyReport{
		Code:           val.Code,
		CompanyName:    val.CompanyName,
		Valuation:      val,
		Growth:         gr,
		Recommendation: a.Combine(val, gr),
	}
	a.logger.Info().
		Str("code", string(rep.Code)).
		Float64("valuation_score", val.Score.Total).
		Float64("growth_score", gr.Score.Total).
		Str("decision", string(rep.Recommendation.Decision)).
		Msg("combined recommendation")
	return rep, nil
}

// Combine synthesizes one recommendation from a valuation and a growth
// report, merging their risk factors.
func (a *Analyzer) Combine(val *models.ValuationReport, gr *models.GrowthReport) models.Recommendation {
	vs, gs := val.Score, gr.Score
	risks := make([]models.RiskFactor, 0, len(val.RiskFactors)+len(gr.GrowthRisks))
	risks = append(risks, val.RiskFactors...)
	risks = append(risks, gr.GrowthRisks...)
	return a.engine.Synthesize(&vs, &gs, risks)
}
