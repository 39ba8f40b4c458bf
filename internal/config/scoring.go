package config

// Band awards Points when a value satisfies both bounds. A nil bound is open.
// Bands are evaluated in order and the first match wins, so tables list the
// most favorable band first and end with a catch-all.
type Band struct {
	Below  *float64 `mapstructure:"below"  yaml:"below,omitempty"`  // value < Below
	Above  *float64 `mapstructure:"above"  yaml:"above,omitempty"`  // value > Above
	Points float64  `mapstructure:"points" yaml:"points"`
}

// Matches reports whether v falls inside the band.
func (b Band) Matches(v float64) bool {
	if b.Below != nil && !(v < *b.Below) {
		return false
	}
	if b.Above != nil && !(v > *b.Above) {
		return false
	}
	return true
}

// Criterion is one weighted scoring component.
type Criterion struct {
	Weight float64 `mapstructure:"weight" yaml:"weight" validate:"gte=0,lte=100"`
	Bands  []Band  `mapstructure:"bands"  yaml:"bands"`
}

// Points returns the band points for v, clamped to the criterion weight.
// ok is false when no band matches.
func (c Criterion) Points(v float64) (points float64, ok bool) {
	for _, b := range c.Bands {
		if b.Matches(v) {
			p := b.Points
			if p < 0 {
				p = 0
			}
			if p > c.Weight {
				p = c.Weight
			}
			return p, true
		}
	}
	return 0, false
}

// ValuationScoring holds the valuation axis criteria (weights sum to 100).
type ValuationScoring struct {
	PER             Criterion `mapstructure:"per"              yaml:"per"`
	PBR             Criterion `mapstructure:"pbr"              yaml:"pbr"`
	ROE             Criterion `mapstructure:"roe"              yaml:"roe"`
	EquityRatio     Criterion `mapstructure:"equity_ratio"     yaml:"equity_ratio"`
	OperatingMargin Criterion `mapstructure:"operating_margin" yaml:"operating_margin"`
}

// TotalWeight sums the criterion weights.
func (s ValuationScoring) TotalWeight() float64 {
	return s.PER.Weight + s.PBR.Weight + s.ROE.Weight + s.EquityRatio.Weight + s.OperatingMargin.Weight
}

// GrowthScoring holds the growth axis criteria (weights sum to 100).
// CAGR bands are expressed in percent.
type GrowthScoring struct {
	SalesCAGR     Criterion          `mapstructure:"sales_cagr"     yaml:"sales_cagr"`
	ProfitCAGR    Criterion          `mapstructure:"profit_cagr"    yaml:"profit_cagr"`
	Consistency   Criterion          `mapstructure:"consistency"    yaml:"consistency"`
	Profitability Criterion          `mapstructure:"profitability"  yaml:"profitability"`
	Efficiency    Criterion          `mapstructure:"efficiency"     yaml:"efficiency"`
	Trend         Criterion          `mapstructure:"trend"          yaml:"trend"`
	TrendFactors  map[string]float64 `mapstructure:"trend_factors"  yaml:"trend_factors"` // trend label → share of Trend weight
}

// TotalWeight sums the criterion weights.
func (s GrowthScoring) TotalWeight() float64 {
	return s.SalesCAGR.Weight + s.ProfitCAGR.Weight + s.Consistency.Weight +
		s.Profitability.Weight + s.Efficiency.Weight + s.Trend.Weight
}

// RatingBand maps a minimum score to a label. Tables are ordered high to low.
type RatingBand struct {
	Min   float64 `mapstructure:"min"   yaml:"min"`
	Label string  `mapstructure:"label" yaml:"label"`
}

// AssessmentThresholds classify individual valuation metrics.
type AssessmentThresholds struct {
	PERUndervalued float64 `mapstructure:"per_undervalued" yaml:"per_undervalued"` // PER below → undervalued
	PEROvervalued  float64 `mapstructure:"per_overvalued"  yaml:"per_overvalued"`  // PER above → overvalued
	PBRUndervalued float64 `mapstructure:"pbr_undervalued" yaml:"pbr_undervalued"`
	PBROvervalued  float64 `mapstructure:"pbr_overvalued"  yaml:"pbr_overvalued"`
	ROEExcellent   float64 `mapstructure:"roe_excellent"   yaml:"roe_excellent"`
	ROEGood        float64 `mapstructure:"roe_good"        yaml:"roe_good"`
}

// RiskThresholds trigger risk factors and insights.
type RiskThresholds struct {
	PERHigh            float64 `mapstructure:"per_high"             yaml:"per_high"`
	PBRLow             float64 `mapstructure:"pbr_low"              yaml:"pbr_low"`
	EquityRatioLow     float64 `mapstructure:"equity_ratio_low"     yaml:"equity_ratio_low"`
	OperatingMarginLow float64 `mapstructure:"operating_margin_low" yaml:"operating_margin_low"`
	UnavailableCount   int     `mapstructure:"unavailable_count"    yaml:"unavailable_count" validate:"gte=1"`
}

// InsightThresholds trigger the positive key insights of a valuation report.
type InsightThresholds struct {
	PERMax             float64 `mapstructure:"per_max"              yaml:"per_max"`
	ROEMin             float64 `mapstructure:"roe_min"              yaml:"roe_min"`
	OperatingMarginMin float64 `mapstructure:"operating_margin_min" yaml:"operating_margin_min"`
	EquityRatioMin     float64 `mapstructure:"equity_ratio_min"     yaml:"equity_ratio_min"`
}

// ScoringConfig is the complete, overridable scoring table.
type ScoringConfig struct {
	Valuation        ValuationScoring     `mapstructure:"valuation"         yaml:"valuation"`
	Growth           GrowthScoring        `mapstructure:"growth"            yaml:"growth"`
	NeutralFactor    float64              `mapstructure:"neutral_factor"    yaml:"neutral_factor"    validate:"gte=0,lte=1"`
	HighScore        float64              `mapstructure:"high_score"        yaml:"high_score"        validate:"gte=0,lte=100"`
	FairScore        float64              `mapstructure:"fair_score"        yaml:"fair_score"        validate:"gte=0,ltefield=HighScore"`
	ValuationRatings []RatingBand         `mapstructure:"valuation_ratings" yaml:"valuation_ratings" validate:"min=1"`
	GrowthRatings    []RatingBand         `mapstructure:"growth_ratings"    yaml:"growth_ratings"    validate:"min=1"`
	Assessment       AssessmentThresholds `mapstructure:"assessment"        yaml:"assessment"`
	Risk             RiskThresholds       `mapstructure:"risk"              yaml:"risk"`
	Insights         InsightThresholds    `mapstructure:"insights"          yaml:"insights"`
}

func f(v float64) *float64 { return &v }

// DefaultScoring returns the built-in scoring table.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Valuation: ValuationScoring{
			PER: Criterion{Weight: 25, Bands: []Band{
				{Below: f(10), Points: 25},
				{Below: f(15), Points: 20},
				{Below: f(25), Points: 10},
				{Points: 0},
			}},
			PBR: Criterion{Weight: 20, Bands: []Band{
				{Below: f(1), Points: 20},
				{Below: f(1.5), Points: 15},
				{Below: f(3), Points: 8},
				{Points: 0},
			}},
			ROE: Criterion{Weight: 25, Bands: []Band{
				{Above: f(20), Points: 25},
				{Above: f(15), Points: 20},
				{Above: f(10), Points: 12},
				{Points: 0},
			}},
			EquityRatio: Criterion{Weight: 15, Bands: []Band{
				{Above: f(50), Points: 15},
				{Above: f(30), Points: 10},
				{Points: 5},
			}},
			OperatingMargin: Criterion{Weight: 15, Bands: []Band{
				{Above: f(15), Points: 15},
				{Above: f(8), Points: 10},
				{Points: 5},
			}},
		},
		Growth: GrowthScoring{
			SalesCAGR: Criterion{Weight: 20, Bands: []Band{
				{Above: f(15), Points: 20},
				{Above: f(10), Points: 15},
				{Above: f(5), Points: 10},
				{Points: 0},
			}},
			ProfitCAGR: Criterion{Weight: 20, Bands: []Band{
				{Above: f(20), Points: 20},
				{Above: f(15), Points: 15},
				{Above: f(10), Points: 10},
				{Points: 0},
			}},
			Consistency:   Criterion{Weight: 20},
			Profitability: Criterion{Weight: 10},
			Efficiency:    Criterion{Weight: 10},
			Trend:         Criterion{Weight: 20},
			TrendFactors: map[string]float64{
				"accelerating": 1.0,
				"stable":       0.7,
				"mixed":        0.5,
				"decelerating": 0.2,
			},
		},
		NeutralFactor: 0.5,
		HighScore:     60,
		FairScore:     40,
		ValuationRatings: []RatingBand{
			{Min: 80, Label: "very attractive"},
			{Min: 60, Label: "attractive"},
			{Min: 40, Label: "neutral"},
			{Min: 0, Label: "weak"},
		},
		GrowthRatings: []RatingBand{
			{Min: 80, Label: "high growth"},
			{Min: 60, Label: "growth"},
			{Min: 40, Label: "stable"},
			{Min: 0, Label: "slowing"},
		},
		Assessment: AssessmentThresholds{
			PERUndervalued: 10,
			PEROvervalued:  25,
			PBRUndervalued: 1,
			PBROvervalued:  3,
			ROEExcellent:   15,
			ROEGood:        10,
		},
		Risk: RiskThresholds{
			PERHigh:            30,
			PBRLow:             0.8,
			EquityRatioLow:     30,
			OperatingMarginLow: 5,
			UnavailableCount:   2,
		},
		Insights: InsightThresholds{
			PERMax:             15,
			ROEMin:             12,
			OperatingMarginMin: 15,
			EquityRatioMin:     60,
		},
	}
}

// Rating returns the label of the first band whose minimum the score reaches.
func Rating(bands []RatingBand, score float64) string {
	for _, b := range bands {
		if score >= b.Min {
			return b.Label
		}
	}
	if len(bands) > 0 {
		return bands[len(bands)-1].Label
	}
	return ""
}
