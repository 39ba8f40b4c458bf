package analyzer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/kabuai/internal/analysis/fundamental"
	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/internal/provider"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// fakeData serves canned statements and quotes per company.
type fakeData struct {
	mu         sync.Mutex
	statements map[models.CompanyCode][]models.StatementRecord
	quotes     map[models.CompanyCode][]models.PriceQuote
	quoteErr   error
	names      map[models.CompanyCode]string
	anns       []models.Announcement
	priceCalls [][2]time.Time
	calls      int
}

var _ provider.MarketData = (*fakeData)(nil)

func newFakeData() *fakeData {
	return &fakeData{
		statements: map[models.CompanyCode][]models.StatementRecord{},
		quotes:     map[models.CompanyCode][]models.PriceQuote{},
		names:      map[models.CompanyCode]string{},
	}
}

func (f *fakeData) Info() provider.Info { return provider.Info{Name: "fake"} }

func (f *fakeData) GetCompanyInfo(_ context.Context, code models.CompanyCode) (*models.CompanyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	name, ok := f.names[code]
	if !ok {
		return nil, &jquants.DataUnavailable{Code: code, What: "company info"}
	}
	return &models.CompanyInfo{Code: code, Name: name}, nil
}

func (f *fakeData) GetFinancialStatements(ctx context.Context, code models.CompanyCode, year *int, period *models.PeriodType) ([]models.StatementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.StatementRecord
	for _, r := range f.statements[code] {
		if year != nil && r.Period.Year != *year {
			continue
		}
		if period != nil && r.Period.Type != *period {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, &jquants.DataUnavailable{Code: code, What: "financial statements"}
	}
	return out, nil
}

func (f *fakeData) GetPriceSeries(_ context.Context, code models.CompanyCode, from, to time.Time) ([]models.PriceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.priceCalls = append(f.priceCalls, [2]time.Time{from, to})
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	var out []models.PriceQuote
	for _, q := range f.quotes[code] {
		if !q.Date.Before(from) && !q.Date.After(to) {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, &jquants.DataUnavailable{Code: code, What: "daily quotes"}
	}
	return out, nil
}

func (f *fakeData) GetAnnouncements(context.Context) ([]models.Announcement, error) {
	return f.anns, nil
}

func (f *fakeData) Ping(context.Context) error { return nil }

func jst(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, utils.JST)
}

func quote(d time.Time, close float64) models.PriceQuote {
	return models.PriceQuote{Date: d, Close: null.FloatFrom(close)}
}

func statement(code models.CompanyCode, ptype models.PeriodType, fy int, end time.Time, sales, opIncome, netIncome, equity, assets, shares float64) models.StatementRecord {
	return models.StatementRecord{
		Code:              code,
		Period:            models.FiscalPeriod{Type: ptype, Year: fy},
		DisclosedDate:     end.AddDate(0, 1, 10),
		PeriodStart:       end.AddDate(-1, 0, 1),
		PeriodEnd:         end,
		NetSales:          null.FloatFrom(sales),
		OperatingIncome:   null.FloatFrom(opIncome),
		NetIncome:         null.FloatFrom(netIncome),
		TotalEquity:       null.FloatFrom(equity),
		TotalAssets:       null.FloatFrom(assets),
		SharesOutstanding: null.FloatFrom(shares),
	}
}

// toyota: EPS 180, BPS 1000, equity ratio 40%, operating margin 15%.
func toyota() models.StatementRecord {
	return statement("7203", models.PeriodAnnual, 2024, jst(2024, 3, 31), 2000e6, 300e6, 180e6, 1000e6, 2500e6, 1e6)
}

var today = jst(2026, 3, 2)

func newAnalyzer(data provider.MarketData) *Analyzer {
	return New(data, config.Default(), WithClock(func() time.Time { return today }))
}

func TestAnalyzeValuation(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = []models.StatementRecord{toyota()}
	data.quotes["7203"] = []models.PriceQuote{
		quote(jst(2024, 3, 28), 2400),
		quote(jst(2024, 4, 1), 2520),
		quote(jst(2024, 4, 2), 2600),
	}
	data.names["7203"] = "トヨタ自動車"
	data.anns = []models.Announcement{{Code: "7203", Date: "2026-05-08"}}

	r, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "7203", nil, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.CompanyCode("7203"), r.Code)
	assert.Equal(t, "トヨタ自動車", r.CompanyName)
	assert.Equal(t, "FY2024 Annual", r.PeriodLabel)
	assert.Equal(t, "latest fiscal year, latest period", r.AnalysisTarget)
	assert.Equal(t, models.PeriodRange{Start: "2023-04-01", End: "2024-03-31"}, r.Period)
	assert.Equal(t, "2024-04-01", r.PriceDate, "first close on or after the period end")
	assert.Equal(t, "2026-03-02", r.AnalysisDate)
	assert.Equal(t, "2026-05-08", r.NextAnnouncement)

	assert.Equal(t, 2520.0, r.StockPrice.Float64)
	assert.Equal(t, 14.0, r.Metrics.PER.Float64)
	assert.Equal(t, 2.52, r.Metrics.PBR.Float64)
	assert.Equal(t, 18.0, r.Metrics.ROEPct.Float64)
	assert.Equal(t, 40.0, r.Metrics.EquityRatioPct.Float64)

	assert.Equal(t, 68.0, r.Score.Total)
	assert.Equal(t, models.DecisionValue, r.Recommendation.Decision)
	assert.Equal(t, models.AssessFair, r.Assessment.Overall)
	assert.Empty(t, r.DataGaps)
}

func TestAnalyzeValuationPriceBeforePeriodEnd(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = []models.StatementRecord{toyota()}
	data.quotes["7203"] = []models.PriceQuote{
		quote(jst(2024, 3, 27), 2300),
		quote(jst(2024, 3, 29), 2400),
	}

	r, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "7203", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-29", r.PriceDate)
	assert.Equal(t, 2400.0, r.StockPrice.Float64)
}

func TestAnalyzeValuationRecentPriceFallback(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = []models.StatementRecord{toyota()}
	data.quotes["7203"] = []models.PriceQuote{quote(jst(2026, 2, 27), 3000)}

	r, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "7203", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-27", r.PriceDate)
	assert.Equal(t, 3000.0, r.StockPrice.Float64)
	assert.Contains(t, r.DataGaps, "no close near the period end; latest close used")
	require.Len(t, data.priceCalls, 2)
	assert.Equal(t, today, data.priceCalls[1][1])
}

func TestAnalyzeValuationWithoutPrice(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = []models.StatementRecord{toyota()}

	r, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "7203", nil, nil)
	require.NoError(t, err)
	assert.False(t, r.StockPrice.Valid)
	assert.False(t, r.Metrics.PER.Valid)
	assert.False(t, r.Metrics.PBR.Valid)
	assert.True(t, r.Metrics.ROEPct.Valid)
	assert.Contains(t, r.DataGaps, priceGapNote)
	assert.Contains(t, r.DataGaps, "per unavailable")
}

func TestAnalyzeValuationLogsSkippedMetrics(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = []models.StatementRecord{toyota()}

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	a := New(data, config.Default(), WithClock(func() time.Time { return today }), WithLogger(logger))

	_, err := a.AnalyzeValuation(context.Background(), "7203", nil, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, "metric computation skipped")
	assert.Contains(t, out, `"per"`)
	assert.Contains(t, out, `"pbr"`)
}

func TestAnalyzeValuationPriceErrorPropagates(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = []models.StatementRecord{toyota()}
	data.quoteErr = &jquants.RateLimitExceeded{Attempts: 3}

	_, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "7203", nil, nil)
	var rl *jquants.RateLimitExceeded
	assert.ErrorAs(t, err, &rl)
}

func TestAnalyzeValuationQuarter(t *testing.T) {
	data := newFakeData()
	q2 := statement("7203", models.Period2Q, 2025, jst(2024, 9, 30), 500e6, 75e6, 45e6, 1000e6, 2500e6, 1e6)
	data.statements["7203"] = []models.StatementRecord{toyota(), q2}
	data.quotes["7203"] = []models.PriceQuote{quote(jst(2024, 9, 30), 2520)}

	label := "Q2"
	year := 2025
	r, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "7203", &label, &year)
	require.NoError(t, err)

	assert.Equal(t, "FY2025 2Q", r.PeriodLabel)
	assert.Equal(t, "FY2025 2Q", r.AnalysisTarget)
	assert.True(t, r.Metrics.Annualized)
	assert.Equal(t, 45.0, r.Metrics.EPS.Float64, "EPS uses the reported quarter")
	assert.Equal(t, 56.0, r.Metrics.PER.Float64)
	assert.Equal(t, 18.0, r.Metrics.ROEPct.Float64, "ROE uses quarterly net income x4")
	assert.Contains(t, r.DataGaps, "2Q flow figures annualized (x4) for ROE, ROA and margins")
}

func TestAnalyzeValuationNoStatements(t *testing.T) {
	data := newFakeData()

	_, err := newAnalyzer(data).AnalyzeValuation(context.Background(), "9999", nil, nil)
	assert.ErrorIs(t, err, ErrNoStatements)
	var du *jquants.DataUnavailable
	assert.ErrorAs(t, err, &du)
}

func TestAnalyzeValuationInvalidInput(t *testing.T) {
	data := newFakeData()
	a := newAnalyzer(data)

	_, err := a.AnalyzeValuation(context.Background(), "72-3", nil, nil)
	var invalid *models.InvalidCodeError
	assert.ErrorAs(t, err, &invalid)

	bad := "H1"
	_, err = a.AnalyzeValuation(context.Background(), "7203", &bad, nil)
	var arg *InvalidArgumentError
	require.ErrorAs(t, err, &arg)
	assert.Equal(t, "quarter", arg.Field)

	assert.Zero(t, data.calls)
}

func growthRecords(code models.CompanyCode) []models.StatementRecord {
	return []models.StatementRecord{
		statement(code, models.PeriodAnnual, 2023, jst(2023, 3, 31), 80e9, 8e9, 5e9, 50e9, 100e9, 1e6),
		statement(code, models.PeriodAnnual, 2024, jst(2024, 3, 31), 100e9, 11e9, 7e9, 55e9, 105e9, 1e6),
		statement(code, models.PeriodAnnual, 2025, jst(2025, 3, 31), 121e9, 14e9, 9e9, 60e9, 110e9, 1e6),
	}
}

func TestAnalyzeGrowth(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = growthRecords("6758")
	data.names["6758"] = "ソニーグループ"

	r, err := newAnalyzer(data).AnalyzeGrowth(context.Background(), "6758", 3, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "ソニーグループ", r.CompanyName)
	assert.Equal(t, models.PeriodAnnual, r.Cadence)
	assert.Equal(t, "FY2023-FY2025 (3 years, Annual)", r.AnalysisPeriod)
	assert.InDelta(t, 0.2298, r.Growth.NetSales.CAGR.Float64, 1e-3)
	assert.Equal(t, models.TrendDecelerating, r.Growth.NetSales.Trend)
	assert.GreaterOrEqual(t, r.Score.Total, 0.0)
	assert.LessOrEqual(t, r.Score.Total, 100.0)
	assert.NotEmpty(t, r.InvestmentTiming)
	assert.Nil(t, r.Recommendation.Valuation)
	assert.NotNil(t, r.Recommendation.Growth)
	assert.Empty(t, r.DataGaps)
}

func TestAnalyzeGrowthFewerYearsThanRequested(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = growthRecords("6758")

	r, err := newAnalyzer(data).AnalyzeGrowth(context.Background(), "6758", 5, nil)
	require.NoError(t, err)
	assert.Contains(t, r.DataGaps, "requested 5 fiscal years, 3 available")
}

func TestAnalyzeGrowthNotesMissingYears(t *testing.T) {
	data := newFakeData()
	recs := growthRecords("6758")
	data.statements["6758"] = []models.StatementRecord{
		statement("6758", models.PeriodAnnual, 2021, jst(2021, 3, 31), 60e9, 6e9, 3e9, 40e9, 90e9, 1e6),
		recs[1], recs[2],
	}

	r, err := newAnalyzer(data).AnalyzeGrowth(context.Background(), "6758", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2021, r.Growth.StartYear)
	assert.Contains(t, r.DataGaps, "fiscal years not consecutive: missing FY2022, FY2023; CAGR spans FY2021-FY2025")
}

func TestAnalyzeGrowthDefaultsToConfiguredYears(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = append(growthRecords("6758"),
		statement("6758", models.PeriodAnnual, 2022, jst(2022, 3, 31), 70e9, 7e9, 4e9, 45e9, 95e9, 1e6))

	r, err := newAnalyzer(data).AnalyzeGrowth(context.Background(), "6758", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2023, r.Growth.StartYear, "default window is 3 years")
}

func TestAnalyzeGrowthInsufficientData(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = growthRecords("6758")[:1]

	_, err := newAnalyzer(data).AnalyzeGrowth(context.Background(), "6758", 3, nil)
	var insufficient *fundamental.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Have)
}

func TestAnalyzeGrowthInvalidYears(t *testing.T) {
	a := newAnalyzer(newFakeData())
	for _, years := range []int{1, 11} {
		_, err := a.AnalyzeGrowth(context.Background(), "6758", years, nil)
		var arg *InvalidArgumentError
		assert.ErrorAs(t, err, &arg, "years=%d", years)
	}
}

func TestAnalyzeBatch(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = growthRecords("6758")
	data.statements["7203"] = growthRecords("7203")
	data.quotes["7203"] = []models.PriceQuote{quote(jst(2025, 3, 31), 2500)}

	results, err := newAnalyzer(data).AnalyzeBatch(context.Background(), BatchRequest{
		Codes: []string{"7203", "9999", "6758"},
		Kind:  KindBoth,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "7203", results[0].Code)
	assert.NotNil(t, results[0].Valuation)
	assert.NotNil(t, results[0].Growth)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, "9999", results[1].Code)
	assert.Nil(t, results[1].Valuation)
	assert.True(t, errors.Is(results[1].Err, ErrNoStatements))
	assert.NotEmpty(t, results[1].Error)

	assert.Equal(t, "6758", results[2].Code)
	assert.NotNil(t, results[2].Valuation, "missing price is a data gap, not a failure")
}

func TestAnalyzeBatchCombinesAxes(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = growthRecords("7203")
	data.quotes["7203"] = []models.PriceQuote{quote(jst(2025, 3, 31), 2500)}

	a := newAnalyzer(data)
	results, err := a.AnalyzeBatch(context.Background(), BatchRequest{Codes: []string{"7203"}, Kind: KindBoth})
	require.NoError(t, err)

	res := results[0]
	require.NotNil(t, res.Recommendation)
	require.NotNil(t, res.Recommendation.Valuation)
	require.NotNil(t, res.Recommendation.Growth)
	assert.Equal(t, res.Valuation.Score.Total, res.Recommendation.Valuation.Total)
	assert.Equal(t, res.Growth.Score.Total, res.Recommendation.Growth.Total)
	assert.Len(t, res.Recommendation.RiskFactors, len(res.Valuation.RiskFactors)+len(res.Growth.GrowthRisks))

	high := a.Engine().Config().HighScore
	want := map[[2]bool]models.Decision{
		{true, true}:   models.DecisionStrong,
		{true, false}:  models.DecisionValue,
		{false, true}:  models.DecisionGrowth,
		{false, false}: models.DecisionPass,
	}[[2]bool{res.Valuation.Score.Total >= high, res.Growth.Score.Total >= high}]
	assert.Equal(t, want, res.Recommendation.Decision)
}

func TestCombineStrongWhenBothAxesHigh(t *testing.T) {
	a := newAnalyzer(newFakeData())
	val := &models.ValuationReport{
		Score:       models.ScoreResult{Axis: models.AxisValuation, Total: 100, MaxScore: 100},
		RiskFactors: []models.RiskFactor{{Factor: "thin margin", Severity: models.SeverityMedium}},
	}
	gr := &models.GrowthReport{
		Score:       models.ScoreResult{Axis: models.AxisGrowth, Total: 100, MaxScore: 100},
		GrowthRisks: []models.RiskFactor{{Factor: "unstable growth", Severity: models.SeverityHigh}},
	}

	rec := a.Combine(val, gr)
	assert.Equal(t, models.DecisionStrong, rec.Decision)
	assert.Len(t, rec.RiskFactors, 2)

	gr.Score.Total = 10
	assert.Equal(t, models.DecisionValue, a.Combine(val, gr).Decision)
	val.Score.Total, gr.Score.Total = 10, 100
	assert.Equal(t, models.DecisionGrowth, a.Combine(val, gr).Decision)
}

func TestAnalyzeCompany(t *testing.T) {
	data := newFakeData()
	data.statements["7203"] = growthRecords("7203")
	data.quotes["7203"] = []models.PriceQuote{quote(jst(2025, 3, 31), 2500)}
	data.names["7203"] = "トヨタ自動車"

	rep, err := newAnalyzer(data).AnalyzeCompany(context.Background(), "7203", 3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CompanyCode("7203"), rep.Code)
	assert.Equal(t, "トヨタ自動車", rep.CompanyName)
	require.NotNil(t, rep.Valuation)
	require.NotNil(t, rep.Growth)
	assert.NotNil(t, rep.Recommendation.Valuation)
	assert.NotNil(t, rep.Recommendation.Growth)

	_, err = newAnalyzer(data).AnalyzeCompany(context.Background(), "9999", 3, nil, nil)
	assert.ErrorIs(t, err, ErrNoStatements)
}

func TestAnalyzeBatchGrowthOnly(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = growthRecords("6758")

	results, err := newAnalyzer(data).AnalyzeBatch(context.Background(), BatchRequest{
		Codes: []string{"6758"},
		Kind:  KindGrowth,
	})
	require.NoError(t, err)
	assert.Nil(t, results[0].Valuation)
	assert.NotNil(t, results[0].Growth)
	assert.Empty(t, data.priceCalls)
}

func TestAnalyzeBatchCanceled(t *testing.T) {
	data := newFakeData()
	data.statements["6758"] = growthRecords("6758")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newAnalyzer(data).AnalyzeBatch(ctx, BatchRequest{Codes: []string{"6758"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseAround(t *testing.T) {
	end := jst(2024, 3, 31)
	quotes := []models.PriceQuote{
		quote(jst(2024, 3, 28), 10),
		{Date: jst(2024, 3, 29), Close: null.Float{}},
		{Date: jst(2024, 4, 1), Close: null.Float{}},
		quote(jst(2024, 4, 2), 12),
	}
	q, ok := closeAround(quotes, end)
	require.True(t, ok)
	assert.Equal(t, 12.0, q.Close.Float64, "invalid closes are skipped")

	q, ok = closeAround(quotes[:3], end)
	require.True(t, ok)
	assert.Equal(t, 10.0, q.Close.Float64)

	_, ok = closeAround(nil, end)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&models.InvalidCodeError{Input: "x"}, ErrKindInvalidInput},
		{&InvalidArgumentError{Field: "quarter"}, ErrKindInvalidInput},
		{&jquants.AuthenticationError{Reason: "bad"}, ErrKindAuth},
		{&jquants.RateLimitExceeded{Attempts: 3}, ErrKindRateLimited},
		{&jquants.DataUnavailable{What: "daily quotes"}, ErrKindNotFound},
		{ErrNoStatements, ErrKindNotFound},
		{&fundamental.InsufficientDataError{Have: 1, Need: 2}, ErrKindInsufficient},
		{&jquants.NetworkError{Attempts: 3, Err: errors.New("reset")}, ErrKindNetwork},
		{&jquants.NetworkError{Attempts: 3, Err: &jquants.APIError{StatusCode: 503}}, ErrKindNetwork},
		{context.DeadlineExceeded, ErrKindTimeout},
		{context.Canceled, ErrKindCanceled},
		{&jquants.APIError{StatusCode: 400}, ErrKindProvider},
		{errors.New("boom"), ErrKindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}
