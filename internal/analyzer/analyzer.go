// Package analyzer runs the full pipeline for one company: fetch statements
// and prices, normalize, compute metrics or growth, score, and synthesize a
// recommendation. Reports are recomputed on every call.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/kabuai/internal/analysis/fundamental"
	"github.com/seenimoa/kabuai/internal/analysis/scoring"
	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/internal/infra"
	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/internal/provider"
	"github.com/seenimoa/kabuai/pkg/models"
)

// ErrNoStatements means no statement matched the request, so no report can
// be produced. The provider's DataUnavailable is wrapped alongside it.
var ErrNoStatements = errors.New("no financial statements")

// InvalidArgumentError reports a malformed request parameter.
type InvalidArgumentError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Analyzer orchestrates the analysis pipeline over a MarketData source.
type Analyzer struct {
	data        provider.MarketData
	engine      *scoring.Engine
	logger      zerolog.Logger
	years       int
	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.logger = infra.Component(l, "analyzer") }
}

// WithClock sets the time source for analysis dates and price fallbacks.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer reading through data and scoring with cfg.
func New(data provider.MarketData, cfg *config.Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		data:        data,
		engine:      scoring.NewEngine(cfg.Scoring),
		logger:      zerolog.Nop(),
		years:       cfg.Analysis.AnalysisYears,
		concurrency: cfg.Analysis.Concurrency,
		timeout:     time.Duration(cfg.Analysis.Timeout) * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.years < 2 {
		a.years = 3
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	return a
}

// Engine returns the scoring engine.
func (a *Analyzer) Engine() *scoring.Engine { return a.engine }

func (a *Analyzer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// parsePeriod normalizes an optional period label.
func parsePeriod(label *string) (*models.PeriodType, error) {
	if label == nil || *label == "" {
		return nil, nil
	}
	p, ok := fundamental.NormalizePeriodLabel(*label)
	if !ok {
		return nil, &InvalidArgumentError{Field: "quarter", Value: *label, Reason: "expected 1Q, 2Q, 3Q, 4Q, FY or Annual"}
	}
	return &p, nil
}

// statements fetches statements and maps an empty result to ErrNoStatements.
func (a *Analyzer) statements(ctx context.Context, code models.CompanyCode, year *int, period *models.PeriodType) ([]models.StatementRecord, error) {
	recs, err := a.data.GetFinancialStatements(ctx, code, year, period)
	if err != nil {
		var du *jquants.DataUnavailable
		if errors.As(err, &du) {
			return nil, fmt.Errorf("%s: %w: %w", code, ErrNoStatements, err)
		}
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: %w", code, ErrNoStatements)
	}
	return recs, nil
}

// companyName looks up the listed name. Failures other than cancellation
// are logged and ignored.
func (a *Analyzer) companyName(ctx context.Context, code models.CompanyCode) string {
	info, err := a.data.GetCompanyInfo(ctx, code)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Debug().Err(err).Str("code", string(code)).Msg("company info unavailable")
		}
		return ""
	}
	if info.NameEnglish != "" && info.Name == "" {
		return info.NameEnglish
	}
	return info.Name
}

// nextAnnouncement returns the scheduled disclosure date for code, if any.
func (a *Analyzer) nextAnnouncement(ctx context.Context, code models.CompanyCode) string {
	anns, err := a.data.GetAnnouncements(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Debug().Err(err).Msg("announcement schedule unavailable")
		}
		return ""
	}
	for _, ann := range anns {
		if ann.Code == code {
			return ann.Date
		}
	}
	return ""
}
