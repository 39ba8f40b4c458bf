package fundamental

import (
	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/pkg/models"
)

// ComputeMetrics derives the valuation metrics for one statement and one
// closing price. Per-share figures and the multiples built on them use the
// reported period as is; quarterly records are annualized only for the
// return and margin ratios. Each metric is independently null when an
// operand is missing or its denominator is not positive.
func ComputeMetrics(rec models.StatementRecord, price null.Float) models.ValuationMetrics {
	v := Annualize(rec)

	m := models.ValuationMetrics{
		Price:      price,
		Annualized: v.Annualized(),
	}

	m.EPS, m.BPS = PerShare(rec)
	m.PER = ratio(price, m.EPS, 1)
	m.PBR = ratio(price, m.BPS, 1)

	m.ROEPct = ratio(v.NetIncome, v.TotalEquity, 100)
	m.ROAPct = ratio(v.NetIncome, v.TotalAssets, 100)
	m.OperatingMarginPct = ratio(v.OperatingIncome, v.NetSales, 100)
	m.NetMarginPct = ratio(v.NetIncome, v.NetSales, 100)
	m.EquityRatioPct = ratio(v.TotalEquity, v.TotalAssets, 100)

	m.EarningsYieldPct = EarningsYield(m.EPS, price)
	m.GrahamNumber = GrahamNumber(m.EPS, m.BPS)
	return m
}

// ratio returns mult·num/den, or null when either side is missing or den ≤ 0.
func ratio(num, den null.Float, mult float64) null.Float {
	if !num.Valid || !den.Valid || den.Float64 <= 0 {
		return null.Float{}
	}
	return null.FloatFrom(mult * num.Float64 / den.Float64)
}

// YearlySnapshot extracts the per-year figures used by growth analysis.
func YearlySnapshot(rec models.StatementRecord) models.YearlyMetrics {
	v := Annualize(rec)
	eps, _ := PerShare(rec)
	return models.YearlyMetrics{
		Year:               rec.Period.Year,
		Period:             rec.Period.Type,
		NetSales:           rec.NetSales,
		OperatingIncome:    rec.OperatingIncome,
		NetIncome:          rec.NetIncome,
		TotalAssets:        rec.TotalAssets,
		TotalEquity:        rec.TotalEquity,
		EPS:                eps,
		ROEPct:             ratio(v.NetIncome, v.TotalEquity, 100),
		ROAPct:             ratio(v.NetIncome, v.TotalAssets, 100),
		OperatingMarginPct: ratio(v.OperatingIncome, v.NetSales, 100),
	}
}
