package models

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
)

// PeriodType tags a fiscal period by reporting cadence.
type PeriodType string

const (
	Period1Q     PeriodType = "1Q"
	Period2Q     PeriodType = "2Q"
	Period3Q     PeriodType = "3Q"
	Period4Q     PeriodType = "4Q"
	PeriodAnnual PeriodType = "Annual"
)

// IsQuarter reports whether the period covers a single quarter.
func (p PeriodType) IsQuarter() bool {
	switch p {
	case Period1Q, Period2Q, Period3Q, Period4Q:
		return true
	}
	return false
}

// index orders periods within a fiscal year. Annual sorts after 4Q.
func (p PeriodType) index() int {
	switch p {
	case Period1Q:
		return 1
	case Period2Q:
		return 2
	case Period3Q:
		return 3
	case Period4Q:
		return 4
	case PeriodAnnual:
		return 5
	}
	return 0
}

// FiscalPeriod identifies a quarter or full fiscal year.
type FiscalPeriod struct {
	Type PeriodType `json:"type"`
	Year int        `json:"year"` // calendar year of the fiscal year end
}

// Less orders periods chronologically by (year, quarter index).
func (p FiscalPeriod) Less(o FiscalPeriod) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Type.index() < o.Type.index()
}

// String returns a label such as "FY2024 2Q" or "FY2024 Annual".
func (p FiscalPeriod) String() string {
	return fmt.Sprintf("FY%d %s", p.Year, p.Type)
}

// StatementRecord is one disclosed financial statement for a company and period.
// Values that were not disclosed are invalid null.Float, never zero.
type StatementRecord struct {
	Code              CompanyCode  `json:"code"`
	Period            FiscalPeriod `json:"period"`
	DisclosedDate     time.Time    `json:"disclosed_date"`
	PeriodStart       time.Time    `json:"period_start"`
	PeriodEnd         time.Time    `json:"period_end"`
	DocumentType      string       `json:"document_type,omitempty"`
	NetSales          null.Float   `json:"net_sales"`
	OperatingIncome   null.Float   `json:"operating_income"`
	NetIncome         null.Float   `json:"net_income"`
	TotalEquity       null.Float   `json:"total_equity"`
	TotalAssets       null.Float   `json:"total_assets"`
	SharesOutstanding null.Float   `json:"shares_outstanding"` // issued minus treasury
	ReportedEPS       null.Float   `json:"reported_eps"`       // as disclosed by the company
	ReportedBPS       null.Float   `json:"reported_bps"`
}

// GrowthSeries is a same-cadence run of statements for one company,
// one record per fiscal year in ascending year order.
type GrowthSeries struct {
	Code    CompanyCode       `json:"code"`
	Cadence PeriodType        `json:"cadence"`
	Records []StatementRecord `json:"records"`
}

// Len returns the number of points in the series.
func (s GrowthSeries) Len() int { return len(s.Records) }

// Years returns the fiscal years covered by the series.
func (s GrowthSeries) Years() []int {
	years := make([]int, len(s.Records))
	for i, r := range s.Records {
		years[i] = r.Period.Year
	}
	return years
}

// MissingYears returns the fiscal years absent between the first and last
// points of the series.
func (s GrowthSeries) MissingYears() []int {
	var missing []int
	for i := 1; i < len(s.Records); i++ {
		for y := s.Records[i-1].Period.Year + 1; y < s.Records[i].Period.Year; y++ {
			missing = append(missing, y)
		}
	}
	return missing
}

// Validate checks the series invariants: same cadence and strictly increasing year.
func (s GrowthSeries) Validate() error {
	for i, r := range s.Records {
		if r.Period.Type != s.Cadence {
			return fmt.Errorf("growth series: record %d has cadence %s, want %s", i, r.Period.Type, s.Cadence)
		}
		if i > 0 && r.Period.Year <= s.Records[i-1].Period.Year {
			return fmt.Errorf("growth series: year %d does not follow %d", r.Period.Year, s.Records[i-1].Period.Year)
		}
	}
	return nil
}
