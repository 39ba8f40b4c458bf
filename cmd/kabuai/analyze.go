package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/internal/report"
)

// --- Valuation Command ---

var valuationCmd = &cobra.Command{
	Use:   "valuation [code]",
	Short: "Valuation analysis of a company",
	Long: `Compute PER, PBR, ROE, ROA, margins, equity ratio and per-share figures
for one fiscal period, score them and derive a recommendation.`,
	Example: "  kabuai valuation 7203\n  kabuai valuation 7203 --quarter 2Q --year 2025 --format markdown",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		var quarter *string
		if q, _ := cmd.Flags().GetString("quarter"); q != "" {
			quarter = &q
		}
		var year *int
		if cmd.Flags().Changed("year") {
			y, _ := cmd.Flags().GetInt("year")
			year = &y
		}

		r, err := newAnalyzer().AnalyzeValuation(cmd.Context(), args[0], quarter, year)
		if err != nil {
			return err
		}
		return report.WriteValuation(os.Stdout, r, format)
	},
}

func init() {
	valuationCmd.Flags().String("quarter", "", "fiscal period: 1Q, 2Q, 3Q, 4Q or Annual (default: latest)")
	valuationCmd.Flags().Int("year", 0, "fiscal year (default: latest)")
	valuationCmd.Flags().String("format", "text", "output format: text, markdown or json")
}

// --- Growth Command ---

var growthCmd = &cobra.Command{
	Use:   "growth [code]",
	Short: "Multi-year growth analysis of a company",
	Long: `Compute CAGR of sales, operating profit, net income and EPS, the growth
trend and consistency, profitability trends and a growth score.`,
	Example: "  kabuai growth 7203\n  kabuai growth 7203 --years 5",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		years, _ := cmd.Flags().GetInt("years")
		var quarter *string
		if q, _ := cmd.Flags().GetString("quarter"); q != "" {
			quarter = &q
		}

		r, err := newAnalyzer().AnalyzeGrowth(cmd.Context(), args[0], years, quarter)
		if err != nil {
			return err
		}
		return report.WriteGrowth(os.Stdout, r, format)
	},
}

func init() {
	growthCmd.Flags().Int("years", 0, "fiscal years to analyze, 2-10 (default: analysis.analysis_years)")
	growthCmd.Flags().String("quarter", "", "statement cadence: Annual (default) or a quarter such as 2Q")
	growthCmd.Flags().String("format", "text", "output format: text, markdown or json")
}

// --- Recommend Command ---

var recommendCmd = &cobra.Command{
	Use:   "recommend [code]",
	Short: "Valuation and growth analysis with one combined recommendation",
	Long: `Run the valuation and growth analyses and synthesize one decision from
both scores: strong recommendation, value-oriented, growth-oriented or pass.`,
	Example: "  kabuai recommend 7203\n  kabuai recommend 7203 --years 5 --format markdown",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		years, _ := cmd.Flags().GetInt("years")
		var quarter *string
		if q, _ := cmd.Flags().GetString("quarter"); q != "" {
			quarter = &q
		}
		var year *int
		if cmd.Flags().Changed("year") {
			y, _ := cmd.Flags().GetInt("year")
			year = &y
		}

		r, err := newAnalyzer().AnalyzeCompany(cmd.Context(), args[0], years, quarter, year)
		if err != nil {
			return err
		}
		return report.WriteCompany(os.Stdout, r, format)
	},
}

func init() {
	recommendCmd.Flags().Int("years", 0, "fiscal years for growth analysis (default: analysis.analysis_years)")
	recommendCmd.Flags().String("quarter", "", "fiscal period or cadence")
	recommendCmd.Flags().Int("year", 0, "fiscal year for valuation (default: latest)")
	recommendCmd.Flags().String("format", "text", "output format: text, markdown or json")
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:     "batch [code...]",
	Short:   "Analyze several companies concurrently",
	Example: "  kabuai batch 7203 6758 9984 --kind valuation",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		kind, _ := cmd.Flags().GetString("kind")
		years, _ := cmd.Flags().GetInt("years")
		req := analyzer.BatchRequest{
			Codes: args,
			Kind:  analyzer.Kind(strings.ToLower(kind)),
			Years: years,
		}
		switch req.Kind {
		case analyzer.KindValuation, analyzer.KindGrowth, analyzer.KindBoth:
		default:
			return fmt.Errorf("unknown kind %q (want valuation, growth or both)", kind)
		}
		if q, _ := cmd.Flags().GetString("quarter"); q != "" {
			req.Quarter = &q
		}
		if cmd.Flags().Changed("year") {
			y, _ := cmd.Flags().GetInt("year")
			req.Year = &y
		}

		results, err := newAnalyzer().AnalyzeBatch(cmd.Context(), req)
		if err != nil {
			return err
		}
		return report.WriteBatch(os.Stdout, results, format)
	},
}

func init() {
	batchCmd.Flags().String("kind", "both", "analyses to run: valuation, growth or both")
	batchCmd.Flags().Int("years", 0, "fiscal years for growth analysis (default: analysis.analysis_years)")
	batchCmd.Flags().String("quarter", "", "fiscal period or cadence")
	batchCmd.Flags().Int("year", 0, "fiscal year for valuation (default: latest)")
	batchCmd.Flags().String("format", "text", "output format: text, markdown or json")
}

func formatFlag(cmd *cobra.Command) (report.Format, error) {
	f, _ := cmd.Flags().GetString("format")
	return report.ParseFormat(f)
}
