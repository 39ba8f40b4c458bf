package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/kabuai/internal/analysis/fundamental"
	"github.com/seenimoa/kabuai/pkg/models"
)

// MaxAnalysisYears bounds the growth window.
const MaxAnalysisYears = 10

// AnalyzeGrowth analyzes the last `years` fiscal years of one cadence
// (Annual unless quarter is given). years ≤ 0 uses the configured default.
func (a *Analyzer) AnalyzeGrowth(ctx context.Context, code string, years int, quarter *string) (*models.GrowthReport, error) {
	cc, err := models.ParseCompanyCode(code)
	if err != nil {
		return nil, err
	}
	if years <= 0 {
		years = a.years
	}
	if years < 2 || years > MaxAnalysisYears {
		return nil, &InvalidArgumentError{
			Field:  "analysis_years",
			Value:  fmt.Sprint(years),
			Reason: fmt.Sprintf("must be between 2 and %d", MaxAnalysisYears),
		}
	}
	cadence := models.PeriodAnnual
	period, err := parsePeriod(quarter)
	if err != nil {
		return nil, err
	}
	if period != nil {
		cadence = *period
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	recs, err := a.statements(ctx, cc, nil, &cadence)
	if err != nil {
		return nil, err
	}

	series := fundamental.BuildGrowthSeries(cc, recs, cadence, years, 0)
	growth, err := fundamental.AnalyzeGrowth(series)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cc, err)
	}

	score := a.engine.ScoreGrowth(growth)
	risks := a.engine.GrowthRisks(growth)

	report := &models.GrowthReport{
		ID:               uuid.NewString(),
		Code:             cc,
		CompanyName:      a.companyName(ctx, cc),
		AnalysisPeriod:   analysisPeriod(growth, series.Len()),
		Cadence:          cadence,
		Growth:           growth,
		Outlook:          a.engine.Outlook(growth),
		Score:            score,
		InvestmentTiming: a.engine.InvestmentTiming(growth, score),
		Catalysts:        a.engine.Catalysts(growth),
		GrowthRisks:      risks,
		Recommendation:   a.engine.Synthesize(nil, &score, risks),
		GeneratedAt:      a.now(),
	}
	if n := series.Len(); n < years {
		report.DataGaps = append(report.DataGaps, fmt.Sprintf("requested %d fiscal years, %d available", years, n))
	}
	if missing := series.MissingYears(); len(missing) > 0 {
		report.DataGaps = append(report.DataGaps, fmt.Sprintf("fiscal years not consecutive: missing %s; CAGR spans FY%d-FY%d",
			fiscalYears(missing), growth.StartYear, growth.EndYear))
	}
	for _, g := range []models.MetricGrowth{growth.NetSales, growth.OperatingIncome, growth.NetIncome, growth.EPS} {
		if !g.CAGR.Valid {
			report.DataGaps = append(report.DataGaps, g.Metric+" CAGR undefined")
		}
	}

	a.logger.Info().
		Str("code", string(cc)).
		Str("period", report.AnalysisPeriod).
		Float64("score", score.Total).
		Str("decision", string(report.Recommendation.Decision)).
		Dur("elapsed", time.Since(start)).
		Msg("growth analysis complete")
	return report, nil
}

func fiscalYears(years []int) string {
	labels := make([]string, len(years))
	for i, y := range years {
		labels[i] = fmt.Sprintf("FY%d", y)
	}
	return strings.Join(labels, ", ")
}

func analysisPeriod(g models.GrowthAnalysis, n int) string {
	return fmt.Sprintf("FY%d-FY%d (%d years, %s)", g.StartYear, g.EndYear, n, g.Cadence)
}
