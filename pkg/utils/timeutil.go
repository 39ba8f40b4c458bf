package utils

import (
	"time"
)

// JST is the Japan Standard Time location (UTC+9).
var JST *time.Location

func init() {
	var err error
	JST, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		JST = time.FixedZone("JST", 9*60*60)
	}
}

// DateLayout is the provider's date format.
const DateLayout = "2006-01-02"

// NowJST returns the current time in JST.
func NowJST() time.Time {
	return time.Now().In(JST)
}

// MarketOpenTime returns the TSE morning session open (9:00 JST) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(JST)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, JST)
}

// LunchBreakStart returns the end of the morning session (11:30 JST).
func LunchBreakStart(date time.Time) time.Time {
	d := date.In(JST)
	return time.Date(d.Year(), d.Month(), d.Day(), 11, 30, 0, 0, JST)
}

// LunchBreakEnd returns the afternoon session open (12:30 JST).
func LunchBreakEnd(date time.Time) time.Time {
	d := date.In(JST)
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 30, 0, 0, JST)
}

// MarketCloseTime returns the TSE closing time (15:30 JST) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(JST)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 30, 0, 0, JST)
}

// IsMarketOpenAt checks if the TSE would be in a trading session at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(JST)
	if !IsTradingDay(t) {
		return false
	}

	morning := !t.Before(MarketOpenTime(t)) && t.Before(LunchBreakStart(t))
	afternoon := !t.Before(LunchBreakEnd(t)) && !t.After(MarketCloseTime(t))
	return morning || afternoon
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(JST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// PrevTradingDay returns the closest trading day strictly before the given date.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(JST).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// IsTradingHoliday checks if the given date is a TSE holiday.
// The provider's trading calendar is authoritative; this list backs the CLI status only.
func IsTradingHoliday(t time.Time) bool {
	_, isHoliday := tseHolidays2026[t.In(JST).Format(DateLayout)]
	return isHoliday
}

// TSE holidays for 2026 (update annually).
var tseHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-02": "Market Holiday",
	"2026-01-12": "Coming of Age Day",
	"2026-02-11": "National Foundation Day",
	"2026-02-23": "Emperor's Birthday",
	"2026-03-20": "Vernal Equinox Day",
	"2026-04-29": "Showa Day",
	"2026-05-04": "Greenery Day",
	"2026-05-05": "Children's Day",
	"2026-05-06": "Constitution Day (observed)",
	"2026-07-20": "Marine Day",
	"2026-08-11": "Mountain Day",
	"2026-09-21": "Respect for the Aged Day",
	"2026-09-22": "Citizens' Holiday",
	"2026-09-23": "Autumnal Equinox Day",
	"2026-10-12": "Sports Day",
	"2026-11-03": "Culture Day",
	"2026-11-23": "Labor Thanksgiving Day",
	"2026-12-31": "Market Holiday",
}

// ParseDateJST parses a date string in "2006-01-02" format and returns it in JST.
func ParseDateJST(dateStr string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, dateStr, JST)
}

// FormatDateJST formats a time.Time to "2006-01-02" in JST.
func FormatDateJST(t time.Time) string {
	return t.In(JST).Format(DateLayout)
}

// FormatDateTimeJST formats a time.Time to "2006-01-02 15:04:05 JST".
func FormatDateTimeJST(t time.Time) string {
	return t.In(JST).Format("2006-01-02 15:04:05 JST")
}

// MarketStatusAt returns the TSE session status at t.
func MarketStatusAt(t time.Time) string {
	now := t.In(JST)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}

	if holiday, ok := tseHolidays2026[now.Format(DateLayout)]; ok {
		return "CLOSED (" + holiday + ")"
	}

	switch {
	case now.Before(MarketOpenTime(now)):
		return "PRE-MARKET"
	case now.Before(LunchBreakStart(now)):
		return "OPEN (Morning Session)"
	case now.Before(LunchBreakEnd(now)):
		return "LUNCH BREAK"
	case !now.After(MarketCloseTime(now)):
		return "OPEN (Afternoon Session)"
	default:
		return "CLOSED"
	}
}

// MarketStatus returns the current TSE session status.
func MarketStatus() string {
	return MarketStatusAt(NowJST())
}
