package analyzer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/kabuai/pkg/models"
)

// Kind selects which analyses a batch runs.
type Kind string

const (
	KindValuation Kind = "valuation"
	KindGrowth    Kind = "growth"
	KindBoth      Kind = "both"
)

// BatchRequest analyzes several companies with the same parameters.
type BatchRequest struct {
	Codes   []string `json:"codes"   validate:"required,min=1,max=50,dive,required"`
	Kind    Kind     `json:"kind"    validate:"omitempty,oneof=valuation growth both"`
	Years   int      `json:"years"   validate:"omitempty,gte=2,lte=10"`
	Quarter *string  `json:"quarter" validate:"omitempty"`
	Year    *int     `json:"year"    validate:"omitempty,gte=2000,lte=2100"`
}

// BatchResult is the outcome for one company. A failed company carries
// Error instead of reports; it does not fail the batch.
type BatchResult struct {
	Code      string                  `json:"code"`
	Valuation *models.ValuationReport `json:"valuation,omitempty"`
	Growth    *models.GrowthReport    `json:"growth,omitempty"`
	// Recommendation draws on both axes; set only for KindBoth.
	Recommendation *models.Recommendation `json:"investment_recommendation,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Err            error                  `json:"-"`
}

// AnalyzeBatch runs the requested analyses for each code concurrently, up to
// the configured concurrency. Provider calls still serialize on the client's
// pacer. Results keep the request order. Only cancellation of ctx aborts the
// batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, req BatchRequest) ([]BatchResult, error) {
	kind := req.Kind
	if kind == "" {
		kind = KindBoth
	}

	results := make([]BatchResult, len(req.Codes))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, code := range req.Codes {
		g.Go(func() error {
			res := BatchResult{Code: code}
			switch kind {
			case KindValuation:
				res.Valuation, res.Err = a.AnalyzeValuation(gctx, code, req.Quarter, req.Year)
			case KindGrowth:
				res.Growth, res.Err = a.AnalyzeGrowth(gctx, code, req.Years, req.Quarter)
			default:
				var rep *models.CompanyReport
				if rep, res.Err = a.AnalyzeCompany(gctx, code, req.Years, req.Quarter, req.Year); res.Err == nil {
					res.Valuation, res.Growth = rep.Valuation, rep.Growth
					res.Recommendation = &rep.Recommendation
				}
			}
			if res.Err != nil {
				if err := gctx.Err(); err != nil {
					return err
				}
				res.Error = res.Err.Error()
				a.logger.Warn().Err(res.Err).Str("code", code).Msg("batch item failed")
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info().Int("codes", len(req.Codes)).Dur("elapsed", time.Since(start)).Msg("batch analysis complete")
	return results, nil
}
