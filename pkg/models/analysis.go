package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// ValuationMetrics are derived from exactly one statement and one closing price.
// A metric whose operands are missing or whose denominator is not positive is null.
type ValuationMetrics struct {
	Price              null.Float `json:"stock_price"`
	EPS                null.Float `json:"eps"`
	BPS                null.Float `json:"bps"`
	PER                null.Float `json:"per"`
	PBR                null.Float `json:"pbr"`
	ROEPct             null.Float `json:"roe_percentage"`
	ROAPct             null.Float `json:"roa_percentage"`
	OperatingMarginPct null.Float `json:"operating_margin_percentage"`
	NetMarginPct       null.Float `json:"net_margin_percentage"`
	EquityRatioPct     null.Float `json:"equity_ratio_percentage"`
	EarningsYieldPct   null.Float `json:"earnings_yield_percentage"`
	GrahamNumber       null.Float `json:"graham_number"`
	Annualized         bool       `json:"annualized"` // flow figures scaled from a quarter
}

// Fields returns the named metrics in report order.
func (m ValuationMetrics) Fields() []NamedValue {
	return []NamedValue{
		{"per", m.PER},
		{"pbr", m.PBR},
		{"roe_percentage", m.ROEPct},
		{"roa_percentage", m.ROAPct},
		{"operating_margin_percentage", m.OperatingMarginPct},
		{"net_margin_percentage", m.NetMarginPct},
		{"equity_ratio_percentage", m.EquityRatioPct},
	}
}

// Unavailable lists the core metrics that could not be computed.
func (m ValuationMetrics) Unavailable() []string {
	var out []string
	for _, f := range m.Fields() {
		if !f.Value.Valid {
			out = append(out, f.Name)
		}
	}
	return out
}

// NamedValue pairs a metric name with its optional value.
type NamedValue struct {
	Name  string     `json:"name"`
	Value null.Float `json:"value"`
}

// Assessment is a qualitative label for a metric or axis.
type Assessment string

const (
	AssessUndervalued      Assessment = "undervalued"
	AssessFair             Assessment = "fair"
	AssessOvervalued       Assessment = "overvalued"
	AssessFavorable        Assessment = "favorable"
	AssessUnfavorable      Assessment = "unfavorable"
	AssessExcellent        Assessment = "excellent"
	AssessGood             Assessment = "good"
	AssessNeedsImprovement Assessment = "needs_improvement"
	AssessUnavailable      Assessment = "unavailable"
)

// ValuationAssessment classifies the valuation metrics.
type ValuationAssessment struct {
	PER     Assessment `json:"per_assessment"`
	PBR     Assessment `json:"pbr_assessment"`
	ROE     Assessment `json:"roe_assessment"`
	Overall Assessment `json:"overall_valuation"`
}

// Unfavorable lists the assessed metrics rated overvalued or in need of
// improvement.
func (a ValuationAssessment) Unfavorable() []string {
	var out []string
	for _, f := range []struct {
		name string
		v    Assessment
	}{{"per", a.PER}, {"pbr", a.PBR}, {"roe", a.ROE}} {
		switch f.v {
		case AssessOvervalued, AssessNeedsImprovement, AssessUnfavorable:
			out = append(out, f.name)
		}
	}
	return out
}

// Axis names a scoring dimension.
type Axis string

const (
	AxisValuation Axis = "valuation"
	AxisGrowth    Axis = "growth"
)

// SubScore is the contribution of one criterion to an axis total.
type SubScore struct {
	Criterion string  `json:"criterion"`
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Available bool    `json:"available"` // false when scored at the neutral value
	Note      string  `json:"note,omitempty"`
}

// ScoreResult is the weighted composite for one axis.
type ScoreResult struct {
	Axis       Axis       `json:"axis"`
	Total      float64    `json:"total_score"` // 0-100
	MaxScore   float64    `json:"max_score"`
	Rating     string     `json:"rating"`
	Assessment Assessment `json:"assessment"`
	SubScores  []SubScore `json:"score_details"`
}

// Severity grades a risk factor.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskFactor is a single identified risk.
type RiskFactor struct {
	Factor   string   `json:"factor"`
	Severity Severity `json:"severity"`
}

// Decision is the final recommendation outcome.
type Decision string

const (
	DecisionStrong Decision = "strong_recommendation"
	DecisionValue  Decision = "value_oriented"
	DecisionGrowth Decision = "growth_oriented"
	DecisionPass   Decision = "pass"
)

// Recommendation combines both axes and the collected risks into a decision.
type Recommendation struct {
	Decision    Decision     `json:"decision"`
	Label       string       `json:"label"`
	Summary     string       `json:"summary"`
	Valuation   *ScoreResult `json:"valuation_score,omitempty"`
	Growth      *ScoreResult `json:"growth_score,omitempty"`
	RiskFactors []RiskFactor `json:"risk_factors"`
}

// Trend classifies the direction of successive growth rates.
type Trend string

const (
	TrendAccelerating Trend = "accelerating"
	TrendDecelerating Trend = "decelerating"
	TrendStable       Trend = "stable"
	TrendMixed        Trend = "mixed"
	TrendInsufficient Trend = "insufficient_data"
)

// QualityTrend describes whether a ratio improved over the series.
type QualityTrend string

const (
	QualityImproving     QualityTrend = "improving"
	QualityDeteriorating QualityTrend = "deteriorating"
	QualityUnknown       QualityTrend = "unknown"
)

// Consistency summarizes how steadily a metric grew.
type Consistency struct {
	Level       string  `json:"level"`
	Score       float64 `json:"score"`        // 0-1, 1 = grew every period
	GrowthRatio float64 `json:"growth_ratio"` // share of periods above the flat band
	Growth      int     `json:"growth_periods"`
	Decline     int     `json:"decline_periods"`
	Flat        int     `json:"flat_periods"`
	Total       int     `json:"total_periods"`
	SignFlips   int     `json:"sign_flips"`
}

// MetricGrowth is the growth profile of one financial line item.
type MetricGrowth struct {
	Metric      string       `json:"metric"`
	CAGR        null.Float   `json:"cagr"`          // fraction, e.g. 0.229
	LatestYoY   null.Float   `json:"latest_yoy"`    // fraction
	YoYRates    []null.Float `json:"yoy_rates"`     // one per consecutive pair
	MeanGrowth  null.Float   `json:"mean_growth"`   // mean of defined YoY rates
	Volatility  null.Float   `json:"volatility"`    // population std-dev of YoY rates
	Trend       Trend        `json:"trend"`
	Consistency Consistency  `json:"consistency"`
}

// YearlyMetrics is the per-year snapshot used by growth analysis.
type YearlyMetrics struct {
	Year               int        `json:"year"`
	Period             PeriodType `json:"period_type"`
	NetSales           null.Float `json:"net_sales"`
	OperatingIncome    null.Float `json:"operating_income"`
	NetIncome          null.Float `json:"net_income"`
	TotalAssets        null.Float `json:"total_assets"`
	TotalEquity        null.Float `json:"total_equity"`
	EPS                null.Float `json:"eps"`
	ROEPct             null.Float `json:"roe_percentage"`
	ROAPct             null.Float `json:"roa_percentage"`
	OperatingMarginPct null.Float `json:"operating_margin_percentage"`
}

// YearlyGrowth holds year-over-year growth between two consecutive points.
type YearlyGrowth struct {
	Year            int        `json:"year"`
	PreviousYear    int        `json:"previous_year"`
	NetSales        null.Float `json:"net_sales_growth"`
	OperatingIncome null.Float `json:"operating_income_growth"`
	NetIncome       null.Float `json:"net_income_growth"`
	EPS             null.Float `json:"eps_growth"`
	ROE             null.Float `json:"roe_change"` // percentage-point change
	Warning         string     `json:"warning,omitempty"`
}

// GrowthAnalysis is the full output of the growth analyzer.
type GrowthAnalysis struct {
	Code               CompanyCode     `json:"code"`
	Cadence            PeriodType      `json:"cadence"`
	StartYear          int             `json:"start_year"`
	EndYear            int             `json:"end_year"`
	NetSales           MetricGrowth    `json:"net_sales"`
	OperatingIncome    MetricGrowth    `json:"operating_income"`
	NetIncome          MetricGrowth    `json:"net_income"`
	EPS                MetricGrowth    `json:"eps"`
	ROETrend           QualityTrend    `json:"roe_trend"`
	OverallConsistency null.Float      `json:"overall_consistency_score"`
	ConsistencyLevel   string          `json:"consistency"`
	Profitability      QualityTrend    `json:"profitability_trend"`
	Efficiency         QualityTrend    `json:"efficiency_trend"`
	MarginExpansion    null.Float      `json:"margin_expansion"` // percentage points, last - first
	YearlyGrowth       []YearlyGrowth  `json:"yearly_growth_rates"`
	Yearly             []YearlyMetrics `json:"yearly_data"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// FutureOutlook is the qualitative forward view derived from growth.
type FutureOutlook struct {
	Sustainability        string `json:"growth_sustainability"` // high, medium, low
	AccelerationPotential string `json:"acceleration_potential"`
}

// PeriodRange is the statement coverage of a report.
type PeriodRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ValuationReport is the output of analyze_valuation.
type ValuationReport struct {
	ID               string              `json:"id"`
	Code             CompanyCode         `json:"code"`
	CompanyName      string              `json:"company_name,omitempty"`
	AnalysisTarget   string              `json:"analysis_target"`
	PeriodLabel      string              `json:"period_label"`
	Period           PeriodRange         `json:"period"`
	StockPrice       null.Float          `json:"stock_price"`
	PriceDate        string              `json:"price_date,omitempty"`
	AnalysisDate     string              `json:"analysis_date"`
	Metrics          ValuationMetrics    `json:"fundamental_metrics"`
	Assessment       ValuationAssessment `json:"valuation_assessment"`
	Score            ScoreResult         `json:"investment_score"`
	RiskFactors      []RiskFactor        `json:"risk_factors"`
	Recommendation   Recommendation      `json:"investment_recommendation"`
	KeyInsights      []string            `json:"key_insights"`
	DataGaps         []string            `json:"data_gaps,omitempty"`
	NextAnnouncement string              `json:"next_announcement,omitempty"`
	GeneratedAt      time.Time           `json:"generated_at"`
}

// GrowthReport is the output of analyze_growth.
type GrowthReport struct {
	ID               string         `json:"id"`
	Code             CompanyCode    `json:"code"`
	CompanyName      string         `json:"company_name,omitempty"`
	AnalysisPeriod   string         `json:"analysis_period"`
	Cadence          PeriodType     `json:"cadence"`
	Growth           GrowthAnalysis `json:"growth_metrics"`
	Outlook          FutureOutlook  `json:"future_outlook"`
	Score            ScoreResult    `json:"growth_score"`
	InvestmentTiming string         `json:"investment_timing"`
	Catalysts        []string       `json:"growth_catalysts"`
	GrowthRisks      []RiskFactor   `json:"growth_risks"`
	Recommendation   Recommendation `json:"investment_recommendation"`
	DataGaps         []string       `json:"data_gaps,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// CompanyReport joins the valuation and growth reports of one company under
// a single recommendation drawn from both score axes.
type CompanyReport struct {
	Code           CompanyCode      `json:"code"`
	CompanyName    string           `json:"company_name,omitempty"`
	Valuation      *ValuationReport `json:"valuation"`
	Growth         *GrowthReport    `json:"growth"`
	Recommendation Recommendation   `json:"investment_recommendation"`
}
