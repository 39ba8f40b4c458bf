// Package fundamental turns disclosed financial statements into comparable
// figures: period normalization, annualization, valuation metrics and
// multi-year growth analysis.
package fundamental

import (
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/pkg/models"
)

// QuarterAnnualizationFactor scales a quarterly flow figure to a full year.
const QuarterAnnualizationFactor = 4

// NormalizePeriodLabel maps the many spellings of a reporting period onto
// PeriodType. Matching is case-insensitive; unknown labels are rejected.
func NormalizePeriodLabel(s string) (models.PeriodType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1Q", "Q1":
		return models.Period1Q, true
	case "2Q", "Q2":
		return models.Period2Q, true
	case "3Q", "Q3":
		return models.Period3Q, true
	case "4Q", "Q4", "FY", "ANNUAL":
		return models.PeriodAnnual, true
	}
	return "", false
}

// FiscalYear returns the year a record belongs to: the year of the fiscal
// year end, falling back to the period end. Zero means unknown.
func FiscalYear(fiscalYearEnd, periodEnd time.Time) int {
	if !fiscalYearEnd.IsZero() {
		return fiscalYearEnd.Year()
	}
	if !periodEnd.IsZero() {
		return periodEnd.Year()
	}
	return 0
}

// SharesOutstanding is issued shares (treasury included) minus treasury
// stock. A missing treasury count is treated as zero.
func SharesOutstanding(issued, treasury null.Float) null.Float {
	if !issued.Valid {
		return null.Float{}
	}
	shares := issued.Float64
	if treasury.Valid {
		shares -= treasury.Float64
	}
	return null.FloatFrom(shares)
}

// PerShare derives EPS and BPS from the statement's own net income and
// equity. Both are null unless the share count is known and positive.
func PerShare(rec models.StatementRecord) (eps, bps null.Float) {
	if !rec.SharesOutstanding.Valid || rec.SharesOutstanding.Float64 <= 0 {
		return null.Float{}, null.Float{}
	}
	shares := rec.SharesOutstanding.Float64
	if rec.NetIncome.Valid {
		eps = null.FloatFrom(rec.NetIncome.Float64 / shares)
	}
	if rec.TotalEquity.Valid {
		bps = null.FloatFrom(rec.TotalEquity.Float64 / shares)
	}
	return eps, bps
}

// SelectStatement picks one record matching the optional period type and
// fiscal year. Among matches the latest disclosure wins, so corrections
// replace the originals. ok is false when nothing matches.
func SelectStatement(records []models.StatementRecord, period *models.PeriodType, year *int) (models.StatementRecord, bool) {
	var (
		best  models.StatementRecord
		found bool
	)
	for _, r := range records {
		if period != nil && r.Period.Type != *period {
			continue
		}
		if year != nil && r.Period.Year != *year {
			continue
		}
		if !found || laterDisclosure(r, best) {
			best, found = r, true
		}
	}
	return best, found
}

// laterDisclosure orders by disclosure date, then by period so that a
// same-day annual report outranks the quarter it closes.
func laterDisclosure(a, b models.StatementRecord) bool {
	if !a.DisclosedDate.Equal(b.DisclosedDate) {
		return a.DisclosedDate.After(b.DisclosedDate)
	}
	return b.Period.Less(a.Period)
}

// AnnualizedView is a statement with flow figures scaled to a full year.
// Stock figures (equity, assets, shares) are carried as-is.
type AnnualizedView struct {
	Record          models.StatementRecord
	Factor          float64
	NetSales        null.Float
	OperatingIncome null.Float
	NetIncome       null.Float
	TotalEquity     null.Float
	TotalAssets     null.Float
	Shares          null.Float
}

// Annualized reports whether flow figures were scaled.
func (v AnnualizedView) Annualized() bool { return v.Factor != 1 }

// Annualize is the single normalization step between a disclosed record
// and every metric computed from it.
func Annualize(rec models.StatementRecord) AnnualizedView {
	factor := 1.0
	if rec.Period.Type.IsQuarter() {
		factor = QuarterAnnualizationFactor
	}
	return AnnualizedView{
		Record:          rec,
		Factor:          factor,
		NetSales:        scale(rec.NetSales, factor),
		OperatingIncome: scale(rec.OperatingIncome, factor),
		NetIncome:       scale(rec.NetIncome, factor),
		TotalEquity:     rec.TotalEquity,
		TotalAssets:     rec.TotalAssets,
		Shares:          rec.SharesOutstanding,
	}
}

func scale(v null.Float, factor float64) null.Float {
	if !v.Valid {
		return v
	}
	return null.FloatFrom(v.Float64 * factor)
}

// BuildGrowthSeries keeps one record per fiscal year for the cadence (the
// latest disclosure of that year), then takes the most recent `years` points
// ending at endYear (0 = no upper bound), in ascending year order.
func BuildGrowthSeries(code models.CompanyCode, records []models.StatementRecord, cadence models.PeriodType, years, endYear int) models.GrowthSeries {
	byYear := make(map[int]models.StatementRecord)
	for _, r := range records {
		if r.Period.Type != cadence {
			continue
		}
		if endYear > 0 && r.Period.Year > endYear {
			continue
		}
		if cur, ok := byYear[r.Period.Year]; !ok || laterDisclosure(r, cur) {
			byYear[r.Period.Year] = r
		}
	}

	yearList := make([]int, 0, len(byYear))
	for y := range byYear {
		yearList = append(yearList, y)
	}
	sort.Ints(yearList)
	if years > 0 && len(yearList) > years {
		yearList = yearList[len(yearList)-years:]
	}

	series := models.GrowthSeries{Code: code, Cadence: cadence}
	for _, y := range yearList {
		series.Records = append(series.Records, byYear[y])
	}
	return series
}
