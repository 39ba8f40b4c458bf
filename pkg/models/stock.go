// Package models defines the core data structures used throughout kabuai.
package models

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/pkg/utils"
)

// CompanyCode is a 4-character listed-company identifier (e.g. "7203").
type CompanyCode string

// InvalidCodeError is returned when a company code fails validation.
type InvalidCodeError struct {
	Input string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid company code %q: expected 4 alphanumeric characters", e.Input)
}

// ParseCompanyCode normalizes and validates a user supplied code.
// Accepts "7203", "7203.T" and the provider's 5-character form "72030".
func ParseCompanyCode(s string) (CompanyCode, error) {
	code := utils.NormalizeCode(s)
	if !utils.IsValidCode(code) {
		return "", &InvalidCodeError{Input: s}
	}
	return CompanyCode(code), nil
}

// String implements fmt.Stringer.
func (c CompanyCode) String() string { return string(c) }

// CompanyInfo holds listing information for a company.
type CompanyInfo struct {
	Code          CompanyCode `json:"code"`
	Name          string      `json:"name"`           // e.g., "トヨタ自動車"
	NameEnglish   string      `json:"name_english"`   // e.g., "TOYOTA MOTOR CORPORATION"
	Sector17      string      `json:"sector17"`       // 17-sector classification name
	Sector33      string      `json:"sector33"`       // 33-sector classification name
	ScaleCategory string      `json:"scale_category"` // e.g., "TOPIX Core30"
	Market        string      `json:"market"`         // e.g., "プライム"
	Date          string      `json:"date"`           // listing info as of date
}

// PriceQuote is one trading day of price data.
type PriceQuote struct {
	Date   time.Time  `json:"date"`
	Open   null.Float `json:"open"`
	High   null.Float `json:"high"`
	Low    null.Float `json:"low"`
	Close  null.Float `json:"close"`
	Volume null.Float `json:"volume"`
}

// Announcement is a scheduled earnings disclosure.
type Announcement struct {
	Code          CompanyCode `json:"code"`
	Date          string      `json:"date"`           // scheduled disclosure date
	CompanyName   string      `json:"company_name"`
	FiscalYear    string      `json:"fiscal_year"`    // e.g., "3月31日"
	FiscalQuarter string      `json:"fiscal_quarter"` // e.g., "第１四半期"
}

// TradingDay is one entry of the exchange trading calendar.
type TradingDay struct {
	Date        string `json:"date"`
	HolidayFlag string `json:"holiday_flag"` // "0" non-business day, "1" business day, ...
}

// IsBusinessDay reports whether the exchange is open for trading.
func (d TradingDay) IsBusinessDay() bool {
	return d.HolidayFlag == "1" || d.HolidayFlag == "2"
}
