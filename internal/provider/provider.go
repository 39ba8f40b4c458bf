// Package provider defines the market-data abstraction consumed by the
// analysis pipeline. Concrete clients (J-Quants) implement MarketData; the
// analyzer depends only on this interface so tests can substitute fakes.
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/kabuai/pkg/models"
)

// Credential describes a required credential for a provider.
type Credential struct {
	Name        string `json:"name"`        // e.g., "refresh_token"
	Description string `json:"description"` // e.g., "J-Quants refresh token"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "JQUANTS_REFRESH_TOKEN"
}

// Info holds metadata about a provider.
type Info struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Website     string       `json:"website"`
	Credentials []Credential `json:"credentials"`
	Endpoints   []string     `json:"endpoints"`
}

// MarketData is the interface the analysis pipeline reads through.
type MarketData interface {
	// Info returns metadata about this provider.
	Info() Info

	// GetCompanyInfo returns the listing information for a company.
	GetCompanyInfo(ctx context.Context, code models.CompanyCode) (*models.CompanyInfo, error)

	// GetFinancialStatements returns the disclosed statements for a company,
	// optionally filtered by fiscal year and period type.
	GetFinancialStatements(ctx context.Context, code models.CompanyCode, year *int, period *models.PeriodType) ([]models.StatementRecord, error)

	// GetPriceSeries returns daily quotes in [from, to], ordered by date.
	GetPriceSeries(ctx context.Context, code models.CompanyCode, from, to time.Time) ([]models.PriceQuote, error)

	// GetAnnouncements returns the scheduled earnings disclosures.
	GetAnnouncements(ctx context.Context) ([]models.Announcement, error)

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
}

// QueryParams is the generic query parameter map passed to endpoints.
type QueryParams map[string]string

// Query parameter keys understood by the provider.
const (
	ParamCode         = "code"
	ParamFrom         = "from"
	ParamTo           = "to"
	ParamDate         = "date"
	ParamRefreshToken = "refreshtoken"
)

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Endpoint string
	Param    string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("%s: missing required parameter %q", e.Endpoint, e.Param)
}

// ValidateParams checks that all required parameters are present in params.
func ValidateParams(endpoint string, params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Endpoint: endpoint, Param: key}
		}
	}
	return nil
}

// CacheKey builds a deterministic cache key from an endpoint and its parameters.
// Credentials are never part of the key.
func CacheKey(endpoint string, params QueryParams) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamRefreshToken {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteString(":")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}
