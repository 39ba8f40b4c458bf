package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
)

// ── Company code tests ──

func TestParseCompanyCode(t *testing.T) {
	tests := []struct {
		input string
		want  CompanyCode
	}{
		{"7203", "7203"},
		{"7203.T", "7203"},
		{"72030", "7203"},
		{" 6758 ", "6758"},
		{"130a", "130A"},
	}
	for _, tt := range tests {
		got, err := ParseCompanyCode(tt.input)
		if err != nil {
			t.Errorf("ParseCompanyCode(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCompanyCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseCompanyCodeInvalid(t *testing.T) {
	for _, input := range []string{"", "72", "720", "72-3", "ab12", "123456"} {
		_, err := ParseCompanyCode(input)
		var invalid *InvalidCodeError
		if !errors.As(err, &invalid) {
			t.Errorf("ParseCompanyCode(%q) error = %v, want *InvalidCodeError", input, err)
			continue
		}
		if invalid.Input != input {
			t.Errorf("InvalidCodeError.Input = %q, want %q", invalid.Input, input)
		}
	}
}

// ── Fiscal period tests ──

func TestPeriodTypeIsQuarter(t *testing.T) {
	for _, p := range []PeriodType{Period1Q, Period2Q, Period3Q, Period4Q} {
		if !p.IsQuarter() {
			t.Errorf("%s.IsQuarter() = false", p)
		}
	}
	if PeriodAnnual.IsQuarter() {
		t.Error("Annual.IsQuarter() = true")
	}
}

func TestFiscalPeriodOrdering(t *testing.T) {
	ordered := []FiscalPeriod{
		{Type: Period3Q, Year: 2023},
		{Type: Period1Q, Year: 2024},
		{Type: Period2Q, Year: 2024},
		{Type: Period4Q, Year: 2024},
		{Type: PeriodAnnual, Year: 2024},
		{Type: Period1Q, Year: 2025},
	}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i-1].Less(ordered[i]) {
			t.Errorf("%s should sort before %s", ordered[i-1], ordered[i])
		}
		if ordered[i].Less(ordered[i-1]) {
			t.Errorf("%s should not sort before %s", ordered[i], ordered[i-1])
		}
	}
	if got := (FiscalPeriod{Type: Period2Q, Year: 2024}).String(); got != "FY2024 2Q" {
		t.Errorf("String() = %q, want FY2024 2Q", got)
	}
}

// ── Growth series tests ──

func record(fy int, p PeriodType) StatementRecord {
	return StatementRecord{Code: "7203", Period: FiscalPeriod{Type: p, Year: fy}}
}

func TestGrowthSeriesValidate(t *testing.T) {
	ok := GrowthSeries{Code: "7203", Cadence: PeriodAnnual, Records: []StatementRecord{
		record(2023, PeriodAnnual), record(2024, PeriodAnnual), record(2025, PeriodAnnual),
	}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if ok.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ok.Len())
	}
	years := ok.Years()
	if len(years) != 3 || years[0] != 2023 || years[2] != 2025 {
		t.Errorf("Years() = %v, want [2023 2024 2025]", years)
	}

	mixed := GrowthSeries{Cadence: PeriodAnnual, Records: []StatementRecord{
		record(2023, PeriodAnnual), record(2024, Period2Q),
	}}
	if err := mixed.Validate(); err == nil || !strings.Contains(err.Error(), "cadence") {
		t.Errorf("mixed cadence: error = %v", err)
	}

	duplicate := GrowthSeries{Cadence: PeriodAnnual, Records: []StatementRecord{
		record(2024, PeriodAnnual), record(2024, PeriodAnnual),
	}}
	if err := duplicate.Validate(); err == nil {
		t.Error("duplicate year: expected error")
	}
}

func TestGrowthSeriesMissingYears(t *testing.T) {
	gapped := GrowthSeries{Cadence: PeriodAnnual, Records: []StatementRecord{
		record(2020, PeriodAnnual), record(2023, PeriodAnnual), record(2024, PeriodAnnual),
	}}
	missing := gapped.MissingYears()
	if len(missing) != 2 || missing[0] != 2021 || missing[1] != 2022 {
		t.Errorf("MissingYears() = %v, want [2021 2022]", missing)
	}

	full := GrowthSeries{Cadence: PeriodAnnual, Records: []StatementRecord{
		record(2023, PeriodAnnual), record(2024, PeriodAnnual),
	}}
	if got := full.MissingYears(); len(got) != 0 {
		t.Errorf("MissingYears() = %v, want none", got)
	}
}

// ── Metrics tests ──

func TestValuationMetricsUnavailable(t *testing.T) {
	m := ValuationMetrics{
		PER:                null.FloatFrom(14),
		ROEPct:             null.FloatFrom(11.2),
		ROAPct:             null.FloatFrom(4.1),
		OperatingMarginPct: null.FloatFrom(10.5),
		NetMarginPct:       null.FloatFrom(7.9),
		EquityRatioPct:     null.FloatFrom(38),
	}
	got := m.Unavailable()
	if len(got) != 1 || got[0] != "pbr" {
		t.Errorf("Unavailable() = %v, want [pbr]", got)
	}
	if len(m.Fields()) != 7 {
		t.Errorf("Fields() has %d entries, want 7", len(m.Fields()))
	}
}

func TestValuationMetricsNullJSON(t *testing.T) {
	data, err := json.Marshal(ValuationMetrics{PER: null.FloatFrom(14)})
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["per"] != 14.0 {
		t.Errorf("per = %v, want 14", decoded["per"])
	}
	if v, ok := decoded["pbr"]; !ok || v != nil {
		t.Errorf("pbr = %v (present %v), want null", v, ok)
	}
}

// ── Calendar tests ──

func TestTradingDayIsBusinessDay(t *testing.T) {
	tests := map[string]bool{"0": false, "1": true, "2": true, "3": false}
	for flag, want := range tests {
		if got := (TradingDay{Date: "2026-02-18", HolidayFlag: flag}).IsBusinessDay(); got != want {
			t.Errorf("HolidayFlag %s: IsBusinessDay() = %v, want %v", flag, got, want)
		}
	}
}

func TestPriceQuoteJSON(t *testing.T) {
	q := PriceQuote{
		Date:  time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Close: null.FloatFrom(2520),
	}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"close":2520`) || !strings.Contains(s, `"open":null`) {
		t.Errorf("unexpected JSON: %s", s)
	}
}
