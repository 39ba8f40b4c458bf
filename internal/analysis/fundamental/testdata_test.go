package fundamental

import (
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// annualRecord builds an annual statement for fiscal year fy (ending March).
func annualRecord(fy int, sales, opIncome, netIncome, equity, assets, shares float64) models.StatementRecord {
	return models.StatementRecord{
		Code:              "7203",
		Period:            models.FiscalPeriod{Type: models.PeriodAnnual, Year: fy},
		DisclosedDate:     date(fy, time.May, 10),
		PeriodStart:       date(fy-1, time.April, 1),
		PeriodEnd:         date(fy, time.March, 31),
		NetSales:          null.FloatFrom(sales),
		OperatingIncome:   null.FloatFrom(opIncome),
		NetIncome:         null.FloatFrom(netIncome),
		TotalEquity:       null.FloatFrom(equity),
		TotalAssets:       null.FloatFrom(assets),
		SharesOutstanding: null.FloatFrom(shares),
	}
}
