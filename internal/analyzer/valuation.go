package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/internal/analysis/fundamental"
	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Price lookup windows around a statement's period end.
const (
	priceWindow  = 7 * 24 * time.Hour
	recentWindow = 10 * 24 * time.Hour
	priceGapNote = "stock price unavailable; PER, PBR and earnings yield omitted"
)

// AnalyzeValuation scores one disclosed statement against the closing price
// at its period end. quarter and year are optional filters; without them the
// latest disclosure is used.
func (a *Analyzer) AnalyzeValuation(ctx context.Context, code string, quarter *string, year *int) (*models.ValuationReport, error) {
	cc, err := models.ParseCompanyCode(code)
	if err != nil {
		return nil, err
	}
	period, err := parsePeriod(quarter)
	if err != nil {
		return nil, err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	recs, err := a.statements(ctx, cc, year, period)
	if err != nil {
		return nil, err
	}
	rec, ok := fundamental.SelectStatement(recs, period, year)
	if !ok {
		return nil, fmt.Errorf("%s: %w", cc, ErrNoStatements)
	}

	pl, err := a.lookupPrice(ctx, cc, rec.PeriodEnd)
	if err != nil {
		return nil, err
	}

	raw := fundamental.ComputeMetrics(rec, pl.close)
	metrics := roundMetrics(raw)
	score := a.engine.ScoreValuation(raw)
	assessment := fundamental.Assess(raw, a.engine.Config().Assessment)
	risks := a.engine.ValuationRisks(raw, assessment)

	report := &models.ValuationReport{
		ID:             uuid.NewString(),
		Code:           cc,
		CompanyName:    a.companyName(ctx, cc),
		AnalysisTarget: analysisTarget(year, period),
		PeriodLabel:    rec.Period.String(),
		Period: models.PeriodRange{
			Start: formatDate(rec.PeriodStart),
			End:   formatDate(rec.PeriodEnd),
		},
		StockPrice:     metrics.Price,
		PriceDate:      pl.date,
		AnalysisDate:   utils.FormatDateJST(a.now()),
		Metrics:        metrics,
		Assessment:     assessment,
		Score:          score,
		RiskFactors:    risks,
		Recommendation: a.engine.Synthesize(&score, nil, risks),
		KeyInsights:    a.engine.KeyInsights(raw),
		GeneratedAt:    a.now(),
	}
	if pl.note != "" {
		report.DataGaps = append(report.DataGaps, pl.note)
	}
	if skipped := raw.Unavailable(); len(skipped) > 0 {
		a.logger.Debug().Str("code", string(cc)).Strs("metrics", skipped).Msg("metric computation skipped")
		for _, name := range skipped {
			report.DataGaps = append(report.DataGaps, name+" unavailable")
		}
	}
	if metrics.Annualized {
		report.DataGaps = append(report.DataGaps, fmt.Sprintf("%s flow figures annualized (x%d) for ROE, ROA and margins", rec.Period.Type, fundamental.QuarterAnnualizationFactor))
	}
	report.NextAnnouncement = a.nextAnnouncement(ctx, cc)

	a.logger.Info().
		Str("code", string(cc)).
		Str("period", report.PeriodLabel).
		Float64("score", score.Total).
		Str("decision", string(report.Recommendation.Decision)).
		Dur("elapsed", time.Since(start)).
		Msg("valuation analysis complete")
	return report, nil
}

// priceLookup is the close used for a statement plus how it was found.
type priceLookup struct {
	close null.Float
	date  string
	note  string
}

// lookupPrice finds the close for a period end: the first close on or after
// the end within a week, else the last close in the week before it, else
// the latest close of the last ten days. A missing price is a data gap, not
// an error; transport and auth failures still propagate.
func (a *Analyzer) lookupPrice(ctx context.Context, code models.CompanyCode, periodEnd time.Time) (priceLookup, error) {
	if !periodEnd.IsZero() {
		quotes, err := a.quotes(ctx, code, periodEnd.Add(-priceWindow), periodEnd.Add(priceWindow))
		if err != nil {
			return priceLookup{}, err
		}
		if q, ok := closeAround(quotes, periodEnd); ok {
			return priceLookup{close: q.Close, date: formatDate(q.Date)}, nil
		}
	}

	now := a.now()
	quotes, err := a.quotes(ctx, code, now.Add(-recentWindow), now)
	if err != nil {
		return priceLookup{}, err
	}
	if q, ok := latestClose(quotes); ok {
		pl := priceLookup{close: q.Close, date: formatDate(q.Date)}
		if !periodEnd.IsZero() {
			pl.note = "no close near the period end; latest close used"
		}
		return pl, nil
	}
	a.logger.Debug().Str("code", string(code)).Msg("no closing price found")
	return priceLookup{note: priceGapNote}, nil
}

// quotes fetches a price window, treating DataUnavailable as empty.
func (a *Analyzer) quotes(ctx context.Context, code models.CompanyCode, from, to time.Time) ([]models.PriceQuote, error) {
	quotes, err := a.data.GetPriceSeries(ctx, code, from, to)
	if err != nil {
		var du *jquants.DataUnavailable
		if errors.As(err, &du) {
			return nil, nil
		}
		return nil, err
	}
	return quotes, nil
}

// closeAround prefers the first valid close on or after end, then the last
// valid close before it. quotes are ordered by date.
func closeAround(quotes []models.PriceQuote, end time.Time) (models.PriceQuote, bool) {
	day := truncateDay(end)
	for _, q := range quotes {
		if q.Close.Valid && q.Close.Float64 > 0 && !truncateDay(q.Date).Before(day) {
			return q, true
		}
	}
	for i := len(quotes) - 1; i >= 0; i-- {
		q := quotes[i]
		if q.Close.Valid && q.Close.Float64 > 0 && truncateDay(q.Date).Before(day) {
			return q, true
		}
	}
	return models.PriceQuote{}, false
}

func latestClose(quotes []models.PriceQuote) (models.PriceQuote, bool) {
	for i := len(quotes) - 1; i >= 0; i-- {
		if quotes[i].Close.Valid && quotes[i].Close.Float64 > 0 {
			return quotes[i], true
		}
	}
	return models.PriceQuote{}, false
}

func truncateDay(t time.Time) time.Time {
	t = t.In(utils.JST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, utils.JST)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return utils.FormatDateJST(t)
}

// analysisTarget labels what the caller asked for, e.g. "FY2024 2Q" or
// "latest fiscal year, latest period".
func analysisTarget(year *int, period *models.PeriodType) string {
	y := "latest fiscal year"
	if year != nil {
		y = fmt.Sprintf("FY%d", *year)
	}
	p := "latest period"
	if period != nil {
		p = string(*period)
	}
	if year != nil {
		return y + " " + p
	}
	return y + ", " + p
}

func roundMetrics(m models.ValuationMetrics) models.ValuationMetrics {
	m.Price = utils.Round2Null(m.Price)
	m.EPS = utils.Round2Null(m.EPS)
	m.BPS = utils.Round2Null(m.BPS)
	m.PER = utils.Round2Null(m.PER)
	m.PBR = utils.Round2Null(m.PBR)
	m.ROEPct = utils.Round2Null(m.ROEPct)
	m.ROAPct = utils.Round2Null(m.ROAPct)
	m.OperatingMarginPct = utils.Round2Null(m.OperatingMarginPct)
	m.NetMarginPct = utils.Round2Null(m.NetMarginPct)
	m.EquityRatioPct = utils.Round2Null(m.EquityRatioPct)
	m.EarningsYieldPct = utils.Round2Null(m.EarningsYieldPct)
	m.GrahamNumber = utils.Round2Null(m.GrahamNumber)
	return m
}
