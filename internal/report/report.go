// Package report renders valuation and growth reports for terminal and
// document output: plain text, Markdown or indented JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Format specifies the output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts text, markdown (md) and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, markdown or json)", s)
}

// Disclaimer closes every rendered report.
const Disclaimer = "For research purposes only. Not investment advice."

// Row is one labelled value in a report section.
type Row struct {
	Label string
	Value string
}

// Section is a titled block of rows and free-form lines.
type Section struct {
	Title string
	Rows  []Row
	Lines []string
}

// Document is the format-neutral shape shared by every renderer.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// WriteValuation renders a valuation report.
func WriteValuation(w io.Writer, r *models.ValuationReport, f Format) error {
	if r == nil {
		return fmt.Errorf("report: nil valuation report")
	}
	if f == FormatJSON {
		return writeJSON(w, r)
	}
	return write(w, ValuationDocument(r), f)
}

// WriteGrowth renders a growth report.
func WriteGrowth(w io.Writer, r *models.GrowthReport, f Format) error {
	if r == nil {
		return fmt.Errorf("report: nil growth report")
	}
	if f == FormatJSON {
		return writeJSON(w, r)
	}
	return write(w, GrowthDocument(r), f)
}

// WriteCompany renders the combined recommendation followed by the full
// valuation and growth reports.
func WriteCompany(w io.Writer, r *models.CompanyReport, f Format) error {
	if r == nil {
		return fmt.Errorf("report: nil company report")
	}
	if f == FormatJSON {
		return writeJSON(w, r)
	}
	doc := Document{
		Title:    fmt.Sprintf("Investment recommendation: %s", companyLabel(r.Code, r.CompanyName)),
		Subtitle: "Generated " + ReportTimestamp(),
		Sections: []Section{
			recommendationSection(r.Recommendation),
			riskSection(r.Recommendation.RiskFactors),
		},
	}
	if err := write(w, doc, f); err != nil {
		return err
	}
	if err := WriteValuation(w, r.Valuation, f); err != nil {
		return err
	}
	return WriteGrowth(w, r.Growth, f)
}

// WriteBatch renders a batch summary: one line per company, then each
// report in full.
func WriteBatch(w io.Writer, results []analyzer.BatchResult, f Format) error {
	if f == FormatJSON {
		return writeJSON(w, results)
	}

	summary := Section{Title: "Batch summary"}
	for _, res := range results {
		summary.Rows = append(summary.Rows, Row{Label: res.Code, Value: batchLine(res)})
	}
	doc := Document{
		Title:    fmt.Sprintf("Batch analysis: %d companies", len(results)),
		Subtitle: "Generated " + ReportTimestamp(),
		Sections: []Section{summary},
	}
	if err := write(w, doc, f); err != nil {
		return err
	}

	for _, res := range results {
		if res.Recommendation != nil {
			rec := Document{
				Title:    "Investment recommendation: " + res.Code,
				Sections: []Section{recommendationSection(*res.Recommendation)},
			}
			if err := write(w, rec, f); err != nil {
				return err
			}
		}
		if res.Valuation != nil {
			if err := WriteValuation(w, res.Valuation, f); err != nil {
				return err
			}
		}
		if res.Growth != nil {
			if err := WriteGrowth(w, res.Growth, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func batchLine(res analyzer.BatchResult) string {
	if res.Error != "" {
		return "error: " + res.Error
	}
	var parts []string
	if res.Valuation != nil {
		parts = append(parts, fmt.Sprintf("valuation %.2f (%s)", res.Valuation.Score.Total, res.Valuation.Score.Rating))
	}
	if res.Growth != nil {
		parts = append(parts, fmt.Sprintf("growth %.2f (%s)", res.Growth.Score.Total, res.Growth.Score.Rating))
	}
	if res.Recommendation != nil {
		parts = append(parts, res.Recommendation.Label)
	}
	return strings.Join(parts, ", ")
}

// recommendationSection lays out a two-axis recommendation.
func recommendationSection(r models.Recommendation) Section {
	axis := func(s *models.ScoreResult) string {
		if s == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f / %.0f (%s)", s.Total, s.MaxScore, s.Rating)
	}
	return Section{Title: "Recommendation", Rows: []Row{
		{"Decision", r.Label},
		{"Valuation score", axis(r.Valuation)},
		{"Growth score", axis(r.Growth)},
	}, Lines: []string{r.Summary}}
}

// ValuationDocument lays out a valuation report.
func ValuationDocument(r *models.ValuationReport) Document {
	m := r.Metrics
	price := yen(r.StockPrice)
	if r.PriceDate != "" {
		price += " (" + r.PriceDate + ")"
	}

	doc := Document{
		Title:    fmt.Sprintf("Valuation: %s", companyLabel(r.Code, r.CompanyName)),
		Subtitle: fmt.Sprintf("%s | target %s | analyzed %s", r.PeriodLabel, r.AnalysisTarget, r.AnalysisDate),
	}

	doc.Sections = append(doc.Sections,
		Section{Title: "Recommendation", Rows: []Row{
			{"Decision", r.Recommendation.Label},
			{"Score", fmt.Sprintf("%.2f / %.0f (%s)", r.Score.Total, r.Score.MaxScore, r.Score.Rating)},
			{"Overall valuation", string(r.Assessment.Overall)},
		}, Lines: []string{r.Recommendation.Summary}},
		Section{Title: "Fundamental metrics", Rows: []Row{
			{"Period", r.Period.Start + " - " + r.Period.End},
			{"Stock price", price},
			{"EPS", yen(m.EPS)},
			{"BPS", yen(m.BPS)},
			{"PER", utils.FormatNullRatio(m.PER) + " (" + string(r.Assessment.PER) + ")"},
			{"PBR", utils.FormatNullRatio(m.PBR) + " (" + string(r.Assessment.PBR) + ")"},
			{"ROE", utils.FormatNullPct(m.ROEPct) + " (" + string(r.Assessment.ROE) + ")"},
			{"ROA", utils.FormatNullPct(m.ROAPct)},
			{"Operating margin", utils.FormatNullPct(m.OperatingMarginPct)},
			{"Net margin", utils.FormatNullPct(m.NetMarginPct)},
			{"Equity ratio", utils.FormatNullPct(m.EquityRatioPct)},
			{"Earnings yield", utils.FormatNullPct(m.EarningsYieldPct)},
			{"Graham number", yen(m.GrahamNumber)},
		}},
		scoreSection(r.Score),
		riskSection(r.RiskFactors),
	)
	if len(r.KeyInsights) > 0 {
		doc.Sections = append(doc.Sections, Section{Title: "Key insights", Lines: r.KeyInsights})
	}
	if notes := notesSection(r.DataGaps, r.NextAnnouncement); len(notes.Lines) > 0 {
		doc.Sections = append(doc.Sections, notes)
	}
	return doc
}

// GrowthDocument lays out a growth report.
func GrowthDocument(r *models.GrowthReport) Document {
	g := r.Growth
	doc := Document{
		Title:    fmt.Sprintf("Growth: %s", companyLabel(r.Code, r.CompanyName)),
		Subtitle: r.AnalysisPeriod,
	}

	growthRows := func(mg models.MetricGrowth) Row {
		return Row{
			Label: strings.ReplaceAll(mg.Metric, "_", " "),
			Value: fmt.Sprintf("CAGR %s, latest %s, %s, %s",
				fraction(mg.CAGR), fraction(mg.LatestYoY), mg.Trend, mg.Consistency.Level),
		}
	}

	doc.Sections = append(doc.Sections,
		Section{Title: "Recommendation", Rows: []Row{
			{"Decision", r.Recommendation.Label},
			{"Score", fmt.Sprintf("%.2f / %.0f (%s)", r.Score.Total, r.Score.MaxScore, r.Score.Rating)},
			{"Investment timing", r.InvestmentTiming},
			{"Sustainability", r.Outlook.Sustainability},
			{"Acceleration", r.Outlook.AccelerationPotential},
		}, Lines: []string{r.Recommendation.Summary}},
		Section{Title: "Growth metrics", Rows: []Row{
			growthRows(g.NetSales),
			growthRows(g.OperatingIncome),
			growthRows(g.NetIncome),
			growthRows(g.EPS),
			{"Consistency", fmt.Sprintf("%s (%s)", utils.FormatNullRatio(g.OverallConsistency), g.ConsistencyLevel)},
		}},
		Section{Title: "Growth quality", Rows: []Row{
			{"Profitability", string(g.Profitability)},
			{"Efficiency", string(g.Efficiency)},
			{"ROE", string(g.ROETrend)},
			{"Margin expansion", pp(g.MarginExpansion)},
		}},
		yearlySection(g.YearlyGrowth),
		scoreSection(r.Score),
		riskSection(r.GrowthRisks),
	)
	if len(r.Catalysts) > 0 {
		doc.Sections = append(doc.Sections, Section{Title: "Growth catalysts", Lines: r.Catalysts})
	}
	gaps := append(append([]string(nil), g.Warnings...), r.DataGaps...)
	if notes := notesSection(gaps, ""); len(notes.Lines) > 0 {
		doc.Sections = append(doc.Sections, notes)
	}
	return doc
}

func yearlySection(rates []models.YearlyGrowth) Section {
	s := Section{Title: "Yearly growth"}
	for _, y := range rates {
		s.Rows = append(s.Rows, Row{
			Label: fmt.Sprintf("FY%d vs FY%d", y.Year, y.PreviousYear),
			Value: fmt.Sprintf("sales %s, net income %s, EPS %s, ROE %s",
				fraction(y.NetSales), fraction(y.NetIncome), fraction(y.EPS), pp(y.ROE)),
		})
	}
	return s
}

func scoreSection(s models.ScoreResult) Section {
	sec := Section{Title: "Score details"}
	for _, sub := range s.SubScores {
		v := fmt.Sprintf("%.2f / %.0f", sub.Points, sub.MaxPoints)
		if sub.Note != "" {
			v += " (" + sub.Note + ")"
		}
		sec.Rows = append(sec.Rows, Row{Label: sub.Criterion, Value: v})
	}
	return sec
}

func riskSection(risks []models.RiskFactor) Section {
	sec := Section{Title: "Risk factors"}
	if len(risks) == 0 {
		sec.Lines = []string{"none identified"}
	}
	for _, r := range risks {
		sec.Lines = append(sec.Lines, fmt.Sprintf("[%s] %s", r.Severity, r.Factor))
	}
	return sec
}

func notesSection(gaps []string, next string) Section {
	sec := Section{Title: "Notes"}
	sec.Lines = append(sec.Lines, gaps...)
	if next != "" {
		sec.Lines = append(sec.Lines, "next earnings announcement: "+next)
	}
	return sec
}

func companyLabel(code models.CompanyCode, name string) string {
	if name == "" {
		return string(code)
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// yen formats a per-share amount in full.
func yen(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return utils.FormatJPY(v.Float64)
}

// fraction formats a growth fraction as a percentage.
func fraction(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return utils.FormatNullPct(null.FloatFrom(v.Float64 * 100))
}

// pp formats a percentage-point change with an explicit sign.
func pp(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%+.2fpp", v.Float64)
}

func write(w io.Writer, d Document, f Format) error {
	var out string
	switch f {
	case FormatMarkdown:
		out = renderMarkdown(d)
	case FormatText, "":
		out = renderText(d)
	default:
		return fmt.Errorf("report: unsupported format %q", f)
	}
	_, err := io.WriteString(w, out)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderText(d Document) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	if d.Subtitle != "" {
		sb.WriteString(fmt.Sprintf("  %s\n", d.Subtitle))
	}
	sb.WriteString(line + "\n")

	for _, s := range d.Sections {
		sb.WriteString(fmt.Sprintf("\n  ■ %s\n", strings.ToUpper(s.Title)))
		for _, r := range s.Rows {
			sb.WriteString(fmt.Sprintf("    %-20s %s\n", r.Label, r.Value))
		}
		for _, l := range s.Lines {
			sb.WriteString(fmt.Sprintf("    %s\n", l))
		}
		sb.WriteString(thinLine + "\n")
	}

	sb.WriteString("\n  " + Disclaimer + "\n")
	sb.WriteString(line + "\n")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Markdown renderer
// ════════════════════════════════════════════════════════════════════

func renderMarkdown(d Document) string {
	var sb strings.Builder
	sb.WriteString("# " + d.Title + "\n\n")
	if d.Subtitle != "" {
		sb.WriteString("_" + d.Subtitle + "_\n\n")
	}

	for _, s := range d.Sections {
		sb.WriteString("## " + s.Title + "\n\n")
		if len(s.Rows) > 0 {
			sb.WriteString("| Item | Value |\n|---|---|\n")
			for _, r := range s.Rows {
				sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(r.Label), escapeCell(r.Value)))
			}
			sb.WriteString("\n")
		}
		for _, l := range s.Lines {
			sb.WriteString("- " + l + "\n")
		}
		if len(s.Lines) > 0 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("> " + Disclaimer + "\n")
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ReportTimestamp returns the current Tokyo time formatted for report headers.
func ReportTimestamp() string {
	return utils.NowJST().Format("2006-01-02 15:04 JST")
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
