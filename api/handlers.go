package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/internal/report"
	"github.com/seenimoa/kabuai/internal/watchlist"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

const maxRequestBody = 1 << 20

// AnalysisEvent is broadcast to WebSocket clients when an analysis finishes.
type AnalysisEvent struct {
	Code     string          `json:"code"`
	Analysis string          `json:"analysis"` // valuation, growth or combined
	Score    float64         `json:"score"`
	Rating   string          `json:"rating"`
	Decision models.Decision `json:"decision"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"version":       s.version,
			"market_status": utils.MarketStatus(),
			"time_jst":      utils.FormatDateTimeJST(utils.NowJST()),
			"uptime":        report.FormatDuration(time.Since(s.started)),
			"ws_clients":    s.wsHub.ClientCount(),
		},
	})
}

// handleValuation serves GET /api/v1/valuation/{code}?quarter=&year=&format=
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, ok := s.parseFormat(w, q.Get("format"))
	if !ok {
		return
	}

	year, ok := queryInt(w, q.Get("year"), "year")
	if !ok {
		return
	}

	rep, err := s.analyzer.AnalyzeValuation(r.Context(), chi.URLParam(r, "code"), optional(q.Get("quarter")), year)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	s.publishValuation(rep)
	s.writeReport(w, format, rep, func(out io.Writer) error {
		return report.WriteValuation(out, rep, format)
	})
}

// handleGrowth serves GET /api/v1/growth/{code}?years=&quarter=&format=
func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, ok := s.parseFormat(w, q.Get("format"))
	if !ok {
		return
	}

	years, ok := queryInt(w, q.Get("years"), "years")
	if !ok {
		return
	}

	rep, err := s.analyzer.AnalyzeGrowth(r.Context(), chi.URLParam(r, "code"), deref(years), optional(q.Get("quarter")))
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	s.publishGrowth(rep)
	s.writeReport(w, format, rep, func(out io.Writer) error {
		return report.WriteGrowth(out, rep, format)
	})
}

// handleCompany serves GET /api/v1/analysis/{code}?years=&quarter=&year=&format=
// with one recommendation drawn from both the valuation and growth scores.
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, ok := s.parseFormat(w, q.Get("format"))
	if !ok {
		return
	}
	year, ok := queryInt(w, q.Get("year"), "year")
	if !ok {
		return
	}
	years, ok := queryInt(w, q.Get("years"), "years")
	if !ok {
		return
	}

	rep, err := s.analyzer.AnalyzeCompany(r.Context(), chi.URLParam(r, "code"), deref(years), optional(q.Get("quarter")), year)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	s.publishCombined(rep.Code.String(), rep.Recommendation)
	s.writeReport(w, format, rep, func(out io.Writer) error {
		return report.WriteCompany(out, rep, format)
	})
}

// handleBatch serves POST /api/v1/batch. Per-company failures are reported
// inside the results; the request itself only fails on bad input.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req analyzer.BatchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	results, err := s.analyzer.AnalyzeBatch(r.Context(), req)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	for _, res := range results {
		if res.Error != "" {
			s.wsHub.Publish(watchlist.EventAnalysisFailed, res)
			continue
		}
		if res.Valuation != nil {
			s.publishValuation(res.Valuation)
		}
		if res.Growth != nil {
			s.publishGrowth(res.Growth)
		}
		if res.Recommendation != nil {
			s.publishCombined(res.Code, *res.Recommendation)
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

// handleWatchlist returns the configured codes and the last refresh.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		writeError(w, http.StatusNotFound, "watchlist is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"codes":    s.watch.Codes(),
			"schedule": s.cfg.Watchlist.Schedule,
			"last":     s.watch.Last(),
		},
	})
}

func (s *Server) publishValuation(r *models.ValuationReport) {
	s.wsHub.Publish(watchlist.EventAnalysisCompleted, AnalysisEvent{
		Code:     r.Code.String(),
		Analysis: "valuation",
		Score:    r.Score.Total,
		Rating:   r.Score.Rating,
		Decision: r.Recommendation.Decision,
	})
}

func (s *Server) publishGrowth(r *models.GrowthReport) {
	s.wsHub.Publish(watchlist.EventAnalysisCompleted, AnalysisEvent{
		Code:     r.Code.String(),
		Analysis: "growth",
		Score:    r.Score.Total,
		Rating:   r.Score.Rating,
		Decision: r.Recommendation.Decision,
	})
}

func (s *Server) publishCombined(code string, rec models.Recommendation) {
	ev := AnalysisEvent{Code: code, Analysis: "combined", Decision: rec.Decision}
	if rec.Valuation != nil && rec.Growth != nil {
		ev.Score = utils.Round2((rec.Valuation.Total + rec.Growth.Total) / 2)
	}
	ev.Rating = rec.Label
	s.wsHub.Publish(watchlist.EventAnalysisCompleted, ev)
}

// queryInt parses an optional integer query parameter, writing a 400 when it
// is malformed.
func queryInt(w http.ResponseWriter, v, name string) (*int, bool) {
	if v == "" {
		return nil, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, v))
		return nil, false
	}
	return &n, true
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// parseFormat resolves the format query parameter. An empty value selects
// the JSON envelope.
func (s *Server) parseFormat(w http.ResponseWriter, v string) (report.Format, bool) {
	if v == "" {
		return report.FormatJSON, true
	}
	f, err := report.ParseFormat(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return f, true
}

// writeReport writes data in the JSON envelope, or renders it as plain text
// or markdown.
func (s *Server) writeReport(w http.ResponseWriter, f report.Format, data any, render func(io.Writer) error) {
	if f == report.FormatJSON {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
		return
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ct := "text/plain; charset=utf-8"
	if f == report.FormatMarkdown {
		ct = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
