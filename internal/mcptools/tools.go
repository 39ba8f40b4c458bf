package mcptools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names are part of the inbound contract consumed by agent frameworks.
const (
	ToolAnalyzeValuation = "analyze_valuation"
	ToolAnalyzeGrowth    = "analyze_growth"
	ToolAnalyzeCompany   = "analyze_company"
)

func analyzeValuationTool() mcp.Tool {
	return mcp.NewTool(ToolAnalyzeValuation,
		mcp.WithDescription("Valuation analysis of a listed Japanese company from J-Quants statements and prices: PER, PBR, ROE, margins, a 0-100 score, risk factors and an investment recommendation"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Company code, e.g. 7203 (7203.T and 72030 are accepted)"),
		),
		mcp.WithString("quarter",
			mcp.Description("Fiscal period: 1Q, 2Q, 3Q, 4Q or Annual (default: latest available)"),
		),
		mcp.WithNumber("year",
			mcp.Description("Fiscal year (default: latest available)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default), markdown or text"),
		),
	)
}

func analyzeGrowthTool() mcp.Tool {
	return mcp.NewTool(ToolAnalyzeGrowth,
		mcp.WithDescription("Multi-year growth analysis: sales, operating profit, net income and EPS CAGR, growth trend, consistency, quality trends and a 0-100 growth score"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Company code, e.g. 7203"),
		),
		mcp.WithNumber("analysis_years",
			mcp.Description("Number of fiscal years to analyze, 2-10 (default: 3)"),
		),
		mcp.WithString("quarter",
			mcp.Description("Statement cadence: Annual (default) or a quarter label such as 2Q"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default), markdown or text"),
		),
	)
}

func analyzeCompanyTool() mcp.Tool {
	return mcp.NewTool(ToolAnalyzeCompany,
		mcp.WithDescription("Valuation and growth analysis together, with one investment recommendation drawn from both scores (strong, value-oriented, growth-oriented or pass)"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Company code, e.g. 7203"),
		),
		mcp.WithNumber("analysis_years",
			mcp.Description("Number of fiscal years for the growth analysis, 2-10 (default: 3)"),
		),
		mcp.WithString("quarter",
			mcp.Description("Fiscal period for valuation and cadence for growth (default: latest / Annual)"),
		),
		mcp.WithNumber("year",
			mcp.Description("Fiscal year for the valuation (default: latest available)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default), markdown or text"),
		),
	)
}
