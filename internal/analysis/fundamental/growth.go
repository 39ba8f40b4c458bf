package fundamental

import (
	"fmt"
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/kabuai/pkg/models"
)

// FlatBand is the relative change treated as neither growth nor decline.
const FlatBand = 0.02

// Weights of the overall consistency score.
const (
	salesConsistencyWeight  = 0.6
	profitConsistencyWeight = 0.4
)

// InsufficientDataError is returned when a series is too short to analyze.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("growth analysis needs at least %d fiscal years, have %d", e.Need, e.Have)
}

// CAGR is the compound annual growth rate over `years` years, as a fraction.
// It is undefined unless start > 0 and end ≥ 0.
func CAGR(start, end null.Float, years float64) null.Float {
	if !start.Valid || !end.Valid || start.Float64 <= 0 || end.Float64 < 0 || years <= 0 {
		return null.Float{}
	}
	return null.FloatFrom(math.Pow(end.Float64/start.Float64, 1/years) - 1)
}

// YoY is the fractional change from prev to last, undefined unless prev > 0.
func YoY(prev, last null.Float) null.Float {
	if !prev.Valid || !last.Valid || prev.Float64 <= 0 {
		return null.Float{}
	}
	return null.FloatFrom(last.Float64/prev.Float64 - 1)
}

// ClassifyTrend compares successive growth rates with a non-strict rule:
// accelerating if each rate is ≥ the prior, decelerating if each is ≤ the
// prior, stable when both hold, mixed otherwise.
func ClassifyTrend(rates []float64) models.Trend {
	if len(rates) < 2 {
		return models.TrendInsufficient
	}
	nonDecreasing, nonIncreasing := true, true
	for i := 1; i < len(rates); i++ {
		if rates[i] < rates[i-1] {
			nonDecreasing = false
		}
		if rates[i] > rates[i-1] {
			nonIncreasing = false
		}
	}
	switch {
	case nonDecreasing && nonIncreasing:
		return models.TrendStable
	case nonDecreasing:
		return models.TrendAccelerating
	case nonIncreasing:
		return models.TrendDecelerating
	}
	return models.TrendMixed
}

// MeasureConsistency counts growth, decline and flat periods (±FlatBand)
// and sign flips between consecutive periods. The score is the flip-free
// share of transitions weighted by how many periods actually grew, so a
// steady decline scores 0 and uninterrupted growth scores 1.
func MeasureConsistency(values []null.Float) models.Consistency {
	var (
		c     models.Consistency
		signs []int
	)
	for i := 1; i < len(values); i++ {
		rate := YoY(values[i-1], values[i])
		if !rate.Valid {
			continue
		}
		switch {
		case rate.Float64 > FlatBand:
			c.Growth++
			signs = append(signs, 1)
		case rate.Float64 < -FlatBand:
			c.Decline++
			signs = append(signs, -1)
		default:
			c.Flat++
			signs = append(signs, 0)
		}
	}
	c.Total = len(signs)
	if c.Total == 0 {
		c.Level = ConsistencyLevel(null.Float{})
		return c
	}

	for i := 1; i < len(signs); i++ {
		if signs[i] != signs[i-1] {
			c.SignFlips++
		}
	}

	stability := 1.0
	if c.Total > 1 {
		stability = 1 - float64(c.SignFlips)/float64(c.Total-1)
	}
	c.GrowthRatio = float64(c.Growth) / float64(c.Total)
	direction := (float64(c.Growth) + 0.5*float64(c.Flat)) / float64(c.Total)
	c.Score = stability * direction
	c.Level = ConsistencyLevel(null.FloatFrom(c.Score))
	return c
}

// ConsistencyLevel labels a consistency score.
func ConsistencyLevel(score null.Float) string {
	if !score.Valid {
		return "insufficient data"
	}
	switch s := score.Float64; {
	case s >= 0.75:
		return "very high consistency"
	case s >= 0.6:
		return "high consistency"
	case s >= 0.4:
		return "moderate consistency"
	case s >= 0.25:
		return "somewhat unstable"
	}
	return "unstable"
}

// OverallConsistency weights sales 60% and net income 40%. A metric with no
// measurable period drops out and the other carries the full weight.
func OverallConsistency(sales, profit models.Consistency) null.Float {
	switch {
	case sales.Total > 0 && profit.Total > 0:
		return null.FloatFrom(salesConsistencyWeight*sales.Score + profitConsistencyWeight*profit.Score)
	case sales.Total > 0:
		return null.FloatFrom(sales.Score)
	case profit.Total > 0:
		return null.FloatFrom(profit.Score)
	}
	return null.Float{}
}

// AnalyzeGrowth computes growth rates, trends, consistency and quality
// trends for a same-cadence series of at least two fiscal years.
func AnalyzeGrowth(series models.GrowthSeries) (models.GrowthAnalysis, error) {
	if series.Len() < 2 {
		return models.GrowthAnalysis{}, &InsufficientDataError{Have: series.Len(), Need: 2}
	}
	if err := series.Validate(); err != nil {
		return models.GrowthAnalysis{}, err
	}

	yearly := make([]models.YearlyMetrics, len(series.Records))
	for i, r := range series.Records {
		yearly[i] = YearlySnapshot(r)
	}
	first, last := yearly[0], yearly[len(yearly)-1]
	span := float64(last.Year - first.Year)

	pick := func(f func(models.YearlyMetrics) null.Float) []null.Float {
		out := make([]null.Float, len(yearly))
		for i, y := range yearly {
			out[i] = f(y)
		}
		return out
	}

	ga := models.GrowthAnalysis{
		Code:            series.Code,
		Cadence:         series.Cadence,
		StartYear:       first.Year,
		EndYear:         last.Year,
		NetSales:        metricGrowth("net_sales", pick(func(y models.YearlyMetrics) null.Float { return y.NetSales }), span),
		OperatingIncome: metricGrowth("operating_income", pick(func(y models.YearlyMetrics) null.Float { return y.OperatingIncome }), span),
		NetIncome:       metricGrowth("net_income", pick(func(y models.YearlyMetrics) null.Float { return y.NetIncome }), span),
		EPS:             metricGrowth("eps", pick(func(y models.YearlyMetrics) null.Float { return y.EPS }), span),
		Yearly:          yearly,
	}

	ga.OverallConsistency = OverallConsistency(ga.NetSales.Consistency, ga.NetIncome.Consistency)
	ga.ConsistencyLevel = ConsistencyLevel(ga.OverallConsistency)

	margins := pick(func(y models.YearlyMetrics) null.Float { return y.OperatingMarginPct })
	ga.Profitability = qualityTrend(margins)
	ga.Efficiency = qualityTrend(pick(func(y models.YearlyMetrics) null.Float { return y.ROAPct }))
	ga.ROETrend = qualityTrend(pick(func(y models.YearlyMetrics) null.Float { return y.ROEPct }))
	if f, l, ok := endpoints(margins); ok {
		ga.MarginExpansion = null.FloatFrom(l - f)
	}

	for i := 1; i < len(yearly); i++ {
		prev, cur := yearly[i-1], yearly[i]
		yg := models.YearlyGrowth{
			Year:            cur.Year,
			PreviousYear:    prev.Year,
			NetSales:        YoY(prev.NetSales, cur.NetSales),
			OperatingIncome: YoY(prev.OperatingIncome, cur.OperatingIncome),
			NetIncome:       YoY(prev.NetIncome, cur.NetIncome),
			EPS:             YoY(prev.EPS, cur.EPS),
		}
		if prev.ROEPct.Valid && cur.ROEPct.Valid {
			yg.ROE = null.FloatFrom(cur.ROEPct.Float64 - prev.ROEPct.Float64)
		}
		if duplicateYear(prev, cur) {
			yg.Warning = fmt.Sprintf("FY%d figures are identical to FY%d; possible duplicate or forecast data", cur.Year, prev.Year)
			ga.Warnings = append(ga.Warnings, yg.Warning)
		}
		ga.YearlyGrowth = append(ga.YearlyGrowth, yg)
	}

	return ga, nil
}

func metricGrowth(name string, values []null.Float, span float64) models.MetricGrowth {
	mg := models.MetricGrowth{
		Metric:      name,
		CAGR:        CAGR(values[0], values[len(values)-1], span),
		Consistency: MeasureConsistency(values),
	}

	var defined []float64
	for i := 1; i < len(values); i++ {
		r := YoY(values[i-1], values[i])
		mg.YoYRates = append(mg.YoYRates, r)
		if r.Valid {
			defined = append(defined, r.Float64)
		}
	}
	if n := len(mg.YoYRates); n > 0 {
		mg.LatestYoY = mg.YoYRates[n-1]
	}
	if len(defined) > 0 {
		mean, std := stat.PopMeanStdDev(defined, nil)
		mg.MeanGrowth = null.FloatFrom(mean)
		mg.Volatility = null.FloatFrom(std)
	}
	mg.Trend = ClassifyTrend(defined)
	return mg
}

// qualityTrend compares the last available value with the first.
func qualityTrend(values []null.Float) models.QualityTrend {
	first, last, ok := endpoints(values)
	switch {
	case !ok:
		return models.QualityUnknown
	case last > first:
		return models.QualityImproving
	}
	return models.QualityDeteriorating
}

// endpoints returns the first and last valid values when at least two exist.
func endpoints(values []null.Float) (first, last float64, ok bool) {
	var n int
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if n == 0 {
			first = v.Float64
		}
		last = v.Float64
		n++
	}
	return first, last, n >= 2
}

func duplicateYear(prev, cur models.YearlyMetrics) bool {
	return prev.NetSales.Valid && cur.NetSales.Valid && prev.NetIncome.Valid && cur.NetIncome.Valid &&
		prev.NetSales.Float64 == cur.NetSales.Float64 && prev.NetIncome.Float64 == cur.NetIncome.Float64
}
