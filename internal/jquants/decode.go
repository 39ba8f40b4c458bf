package jquants

import (
	"sort"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/kabuai/internal/analysis/fundamental"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Field names of the /fins/statements rows.
const (
	fieldIssuedShares   = "NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock"
	fieldTreasuryShares = "NumberOfTreasuryStockAtTheEndOfFiscalYear"
)

// decodeStatement converts one statements row. Rows with an unknown period
// type or no resolvable fiscal year are skipped.
func decodeStatement(row gjson.Result) (models.StatementRecord, bool) {
	ptype, ok := fundamental.NormalizePeriodLabel(row.Get("TypeOfCurrentPeriod").String())
	if !ok {
		return models.StatementRecord{}, false
	}
	periodEnd := date(row.Get("CurrentPeriodEndDate"))
	year := fundamental.FiscalYear(date(row.Get("CurrentFiscalYearEndDate")), periodEnd)
	if year == 0 {
		return models.StatementRecord{}, false
	}

	return models.StatementRecord{
		Code:              models.CompanyCode(utils.NormalizeCode(row.Get("LocalCode").String())),
		Period:            models.FiscalPeriod{Type: ptype, Year: year},
		DisclosedDate:     date(row.Get("DisclosedDate")),
		PeriodStart:       date(row.Get("CurrentPeriodStartDate")),
		PeriodEnd:         periodEnd,
		DocumentType:      row.Get("TypeOfDocument").String(),
		NetSales:          num(row.Get("NetSales")),
		OperatingIncome:   num(row.Get("OperatingProfit")),
		NetIncome:         num(row.Get("Profit")),
		TotalEquity:       num(row.Get("Equity")),
		TotalAssets:       num(row.Get("TotalAssets")),
		SharesOutstanding: fundamental.SharesOutstanding(num(row.Get(fieldIssuedShares)), num(row.Get(fieldTreasuryShares))),
		ReportedEPS:       num(row.Get("EarningsPerShare")),
		ReportedBPS:       num(row.Get("BookValuePerShare")),
	}, true
}

// decodeQuotes converts daily quote rows and sorts them by date.
func decodeQuotes(rows []gjson.Result) []models.PriceQuote {
	quotes := make([]models.PriceQuote, 0, len(rows))
	for _, row := range rows {
		d := date(row.Get("Date"))
		if d.IsZero() {
			continue
		}
		q := models.PriceQuote{
			Date:   d,
			Open:   num(row.Get("Open")),
			High:   num(row.Get("High")),
			Low:    num(row.Get("Low")),
			Close:  num(row.Get("Close")),
			Volume: num(row.Get("Volume")),
		}
		quotes = append(quotes, q)
	}
	sortQuotes(quotes)
	return quotes
}

func sortQuotes(quotes []models.PriceQuote) {
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].Date.Before(quotes[j].Date) })
}

func decodeInfo(row gjson.Result) models.CompanyInfo {
	return models.CompanyInfo{
		Code:          models.CompanyCode(utils.NormalizeCode(row.Get("Code").String())),
		Name:          row.Get("CompanyName").String(),
		NameEnglish:   row.Get("CompanyNameEnglish").String(),
		Sector17:      row.Get("Sector17CodeName").String(),
		Sector33:      row.Get("Sector33CodeName").String(),
		ScaleCategory: row.Get("ScaleCategory").String(),
		Market:        row.Get("MarketCodeName").String(),
		Date:          row.Get("Date").String(),
	}
}

func decodeAnnouncement(row gjson.Result) models.Announcement {
	return models.Announcement{
		Code:          models.CompanyCode(utils.NormalizeCode(row.Get("Code").String())),
		Date:          row.Get("Date").String(),
		CompanyName:   row.Get("CompanyName").String(),
		FiscalYear:    row.Get("FiscalYear").String(),
		FiscalQuarter: row.Get("FiscalQuarter").String(),
	}
}

func decodeTradingDay(row gjson.Result) models.TradingDay {
	return models.TradingDay{
		Date:        row.Get("Date").String(),
		HolidayFlag: row.Get("HolidayDivision").String(),
	}
}
