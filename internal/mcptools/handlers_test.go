package mcptools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/pkg/models"
)

type stubService struct {
	valuation *models.ValuationReport
	growth    *models.GrowthReport
	company   *models.CompanyReport
	err       error

	code    string
	quarter *string
	year    *int
	years   int
}

func (s *stubService) AnalyzeValuation(_ context.Context, code string, quarter *string, year *int) (*models.ValuationReport, error) {
	s.code, s.quarter, s.year = code, quarter, year
	return s.valuation, s.err
}

func (s *stubService) AnalyzeGrowth(_ context.Context, code string, years int, quarter *string) (*models.GrowthReport, error) {
	s.code, s.years, s.quarter = code, years, quarter
	return s.growth, s.err
}

func (s *stubService) AnalyzeCompany(_ context.Context, code string, years int, quarter *string, year *int) (*models.CompanyReport, error) {
	s.code, s.years, s.quarter, s.year = code, years, quarter, year
	return s.company, s.err
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestAnalyzeValuationTool(t *testing.T) {
	svc := &stubService{valuation: &models.ValuationReport{
		Code:       "7203",
		StockPrice: null.FloatFrom(2520),
		Metrics:    models.ValuationMetrics{PER: null.FloatFrom(14)},
	}}
	h := handleAnalyzeValuation(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeValuation, map[string]any{
		"code":    "7203",
		"quarter": "2Q",
		"year":    float64(2025),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Equal(t, "7203", svc.code)
	require.NotNil(t, svc.quarter)
	assert.Equal(t, "2Q", *svc.quarter)
	require.NotNil(t, svc.year)
	assert.Equal(t, 2025, *svc.year)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decoded))
	assert.Equal(t, "7203", decoded["code"])
	assert.Equal(t, 2520.0, decoded["stock_price"])
}

func TestAnalyzeValuationToolDefaults(t *testing.T) {
	svc := &stubService{valuation: &models.ValuationReport{Code: "7203"}}
	h := handleAnalyzeValuation(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeValuation, map[string]any{"code": "7203"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Nil(t, svc.quarter)
	assert.Nil(t, svc.year)
}

func TestAnalyzeValuationToolMarkdown(t *testing.T) {
	svc := &stubService{valuation: &models.ValuationReport{Code: "7203", CompanyName: "Toyota Motor"}}
	h := handleAnalyzeValuation(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeValuation, map[string]any{"code": "7203", "format": "markdown"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Toyota Motor")
}

func TestAnalyzeValuationToolMissingCode(t *testing.T) {
	svc := &stubService{}
	h := handleAnalyzeValuation(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeValuation, map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, svc.code)
}

func TestAnalyzeValuationToolBadFormat(t *testing.T) {
	h := handleAnalyzeValuation(&stubService{}, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeValuation, map[string]any{"code": "7203", "format": "pdf"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAnalyzeValuationToolError(t *testing.T) {
	svc := &stubService{err: &jquants.AuthenticationError{Reason: "refresh token rejected"}}
	h := handleAnalyzeValuation(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeValuation, map[string]any{"code": "7203"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "authentication")
	assert.Contains(t, text, "refresh token rejected")
}

func TestAnalyzeGrowthTool(t *testing.T) {
	svc := &stubService{growth: &models.GrowthReport{Code: "7203", AnalysisPeriod: "FY2023-FY2025 (3 years, Annual)"}}
	h := handleAnalyzeGrowth(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeGrowth, map[string]any{
		"code":           "7203",
		"analysis_years": float64(5),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 5, svc.years)
	assert.Nil(t, svc.quarter)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decoded))
	assert.Equal(t, "FY2023-FY2025 (3 years, Annual)", decoded["analysis_period"])
}

func TestAnalyzeGrowthToolDefaultYears(t *testing.T) {
	svc := &stubService{growth: &models.GrowthReport{Code: "7203"}}
	h := handleAnalyzeGrowth(svc, zerolog.Nop())

	_, err := h(context.Background(), call(ToolAnalyzeGrowth, map[string]any{"code": "7203"}))
	require.NoError(t, err)
	assert.Equal(t, 0, svc.years)
}

func TestAnalyzeGrowthToolError(t *testing.T) {
	svc := &stubService{err: &jquants.DataUnavailable{Code: "9999", What: "financial statements"}}
	h := handleAnalyzeGrowth(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeGrowth, map[string]any{"code": "9999"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "data_unavailable")
}

func TestToolDefinitions(t *testing.T) {
	v := analyzeValuationTool()
	assert.Equal(t, "analyze_valuation", v.Name)
	assert.Equal(t, []string{"code"}, v.InputSchema.Required)
	assert.Contains(t, v.InputSchema.Properties, "quarter")
	assert.Contains(t, v.InputSchema.Properties, "year")

	g := analyzeGrowthTool()
	assert.Equal(t, "analyze_growth", g.Name)
	assert.Equal(t, []string{"code"}, g.InputSchema.Required)
	assert.Contains(t, g.InputSchema.Properties, "analysis_years")

	c := analyzeCompanyTool()
	assert.Equal(t, "analyze_company", c.Name)
	assert.Equal(t, []string{"code"}, c.InputSchema.Required)
	assert.Contains(t, c.InputSchema.Properties, "analysis_years")
	assert.Contains(t, c.InputSchema.Properties, "year")

	assert.NotNil(t, NewServer(&stubService{}, "test", zerolog.Nop()))
}

func TestAnalyzeCompanyTool(t *testing.T) {
	vs := models.ScoreResult{Axis: models.AxisValuation, Total: 82, MaxScore: 100}
	gs := models.ScoreResult{Axis: models.AxisGrowth, Total: 75, MaxScore: 100}
	svc := &stubService{company: &models.CompanyReport{
		Code:      "7203",
		Valuation: &models.ValuationReport{Code: "7203", Score: vs},
		Growth:    &models.GrowthReport{Code: "7203", Score: gs},
		Recommendation: models.Recommendation{
			Decision:  models.DecisionStrong,
			Label:     "strong recommendation",
			Valuation: &vs,
			Growth:    &gs,
		},
	}}
	h := handleAnalyzeCompany(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeCompany, map[string]any{
		"code":           "7203",
		"analysis_years": float64(5),
		"year":           float64(2024),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "7203", svc.code)
	assert.Equal(t, 5, svc.years)
	require.NotNil(t, svc.year)
	assert.Equal(t, 2024, *svc.year)
	assert.Nil(t, svc.quarter)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decoded))
	rec := decoded["investment_recommendation"].(map[string]any)
	assert.Equal(t, "strong_recommendation", rec["decision"])
}

func TestAnalyzeCompanyToolError(t *testing.T) {
	svc := &stubService{err: &jquants.AuthenticationError{Reason: "refresh token rejected"}}
	h := handleAnalyzeCompany(svc, zerolog.Nop())

	res, err := h(context.Background(), call(ToolAnalyzeCompany, map[string]any{"code": "7203"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "authentication")
}
