package mcptools

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/internal/report"
	"github.com/seenimoa/kabuai/pkg/models"
)

// Service is the analysis surface the tools call into.
type Service interface {
	AnalyzeValuation(ctx context.Context, code string, quarter *string, year *int) (*models.ValuationReport, error)
	AnalyzeGrowth(ctx context.Context, code string, years int, quarter *string) (*models.GrowthReport, error)
	AnalyzeCompany(ctx context.Context, code string, years int, quarter *string, year *int) (*models.CompanyReport, error)
}

func handleAnalyzeValuation(svc Service, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return mcp.NewToolResultError("code parameter is required"), nil
		}
		format, err := outputFormat(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var year *int
		if y := request.GetInt("year", 0); y != 0 {
			year = &y
		}

		r, err := svc.AnalyzeValuation(ctx, code, optionalString(request, "quarter"), year)
		if err != nil {
			return toolError(logger, ToolAnalyzeValuation, code, err), nil
		}

		var buf bytes.Buffer
		if err := report.WriteValuation(&buf, r, format); err != nil {
			return nil, fmt.Errorf("render valuation report: %w", err)
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

func handleAnalyzeGrowth(svc Service, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return mcp.NewToolResultError("code parameter is required"), nil
		}
		format, err := outputFormat(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		years := request.GetInt("analysis_years", 0)
		r, err := svc.AnalyzeGrowth(ctx, code, years, optionalString(request, "quarter"))
		if err != nil {
			return toolError(logger, ToolAnalyzeGrowth, code, err), nil
		}

		var buf bytes.Buffer
		if err := report.WriteGrowth(&buf, r, format); err != nil {
			return nil, fmt.Errorf("render growth report: %w", err)
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

func handleAnalyzeCompany(svc Service, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return mcp.NewToolResultError("code parameter is required"), nil
		}
		format, err := outputFormat(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var year *int
		if y := request.GetInt("year", 0); y != 0 {
			year = &y
		}
		years := request.GetInt("analysis_years", 0)

		r, err := svc.AnalyzeCompany(ctx, code, years, optionalString(request, "quarter"), year)
		if err != nil {
			return toolError(logger, ToolAnalyzeCompany, code, err), nil
		}

		var buf bytes.Buffer
		if err := report.WriteCompany(&buf, r, format); err != nil {
			return nil, fmt.Errorf("render company report: %w", err)
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

// toolError reports a failed analysis to the caller as a tool result so the
// model can read the cause and decide whether to retry.
func toolError(logger zerolog.Logger, tool, code string, err error) *mcp.CallToolResult {
	kind := analyzer.Classify(err)
	logger.Error().Err(err).Str("tool", tool).Str("code", code).Str("kind", string(kind)).Msg("Analysis failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
}

func optionalString(request mcp.CallToolRequest, name string) *string {
	if v := request.GetString(name, ""); v != "" {
		return &v
	}
	return nil
}

func outputFormat(request mcp.CallToolRequest) (report.Format, error) {
	f := request.GetString("format", "")
	if f == "" {
		return report.FormatJSON, nil
	}
	return report.ParseFormat(f)
}
