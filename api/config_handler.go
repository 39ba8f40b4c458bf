package api

import (
	"net/http"

	"github.com/seenimoa/kabuai/internal/config"
)

// SettingsView is the non-secret part of the running configuration.
type SettingsView struct {
	JQuants struct {
		BaseURL            string  `json:"base_url"`
		RateLimitDelay     float64 `json:"rate_limit_delay"`
		MaxAttempts        int     `json:"max_attempts"`
		CallTimeout        int     `json:"call_timeout"`
		InfoCacheTTL       int     `json:"info_cache_ttl"`
		StatementsCacheTTL int     `json:"statements_cache_ttl"`
	} `json:"jquants"`
	Analysis struct {
		AnalysisYears int `json:"analysis_years"`
		Concurrency   int `json:"concurrency"`
		Timeout       int `json:"timeout"`
	} `json:"analysis"`
	Watchlist struct {
		Enabled  bool     `json:"enabled"`
		Schedule string   `json:"schedule"`
		Codes    []string `json:"codes"`
	} `json:"watchlist"`
	ConfigFile string `json:"config_file,omitempty"`
}

// handleGetConfig returns the running configuration without credentials.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var v SettingsView
	v.JQuants.BaseURL = s.cfg.JQuants.BaseURL
	v.JQuants.RateLimitDelay = s.cfg.JQuants.RateLimitDelay
	v.JQuants.MaxAttempts = s.cfg.JQuants.MaxAttempts
	v.JQuants.CallTimeout = s.cfg.JQuants.CallTimeout
	v.JQuants.InfoCacheTTL = s.cfg.JQuants.InfoCacheTTL
	v.JQuants.StatementsCacheTTL = s.cfg.JQuants.StatementsCacheTTL
	v.Analysis.AnalysisYears = s.cfg.Analysis.AnalysisYears
	v.Analysis.Concurrency = s.cfg.Analysis.Concurrency
	v.Analysis.Timeout = s.cfg.Analysis.Timeout
	v.Watchlist.Enabled = s.cfg.Watchlist.Enabled
	v.Watchlist.Schedule = s.cfg.Watchlist.Schedule
	v.Watchlist.Codes = s.cfg.Watchlist.Codes
	v.ConfigFile = s.cfg.File

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: v})
}

// handleGetConfigKeys returns the status of the provider credentials.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
