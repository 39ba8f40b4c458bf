package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/internal/infra"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Event types published by RefreshJob.
const (
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
	EventRefreshed         = "watchlist.refreshed"
)

// BatchRunner runs a batch of analyses.
type BatchRunner interface {
	AnalyzeBatch(ctx context.Context, req analyzer.BatchRequest) ([]analyzer.BatchResult, error)
}

// Publisher receives refresh results, typically a websocket hub.
type Publisher interface {
	Publish(eventType string, data any)
}

// Snapshot is the outcome of the most recent refresh.
type Snapshot struct {
	RefreshedAt time.Time              `json:"refreshed_at"`
	Results     []analyzer.BatchResult `json:"results"`
}

// Summary is the payload of a watchlist.refreshed event.
type Summary struct {
	Codes     int    `json:"codes"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Elapsed   string `json:"elapsed"`
}

// RefreshJob re-analyzes the watchlist codes. Runs falling on a weekend or
// exchange holiday are skipped since no new prices exist.
type RefreshJob struct {
	runner    BatchRunner
	publisher Publisher
	codes     []string
	kind      analyzer.Kind
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

// RefreshOption configures a RefreshJob.
type RefreshOption func(*RefreshJob)

// WithKind selects which analyses run. Defaults to both.
func WithKind(k analyzer.Kind) RefreshOption {
	return func(j *RefreshJob) { j.kind = k }
}

// WithTimeout bounds one refresh run.
func WithTimeout(d time.Duration) RefreshOption {
	return func(j *RefreshJob) { j.timeout = d }
}

// WithClock overrides the clock used for the trading-day check.
func WithClock(now func() time.Time) RefreshOption {
	return func(j *RefreshJob) { j.now = now }
}

// NewRefreshJob creates a job for codes. publisher may be nil.
func NewRefreshJob(runner BatchRunner, codes []string, publisher Publisher, log zerolog.Logger, opts ...RefreshOption) *RefreshJob {
	j := &RefreshJob{
		runner:    runner,
		publisher: publisher,
		codes:     append([]string(nil), codes...),
		kind:      analyzer.KindBoth,
		timeout:   10 * time.Minute,
		now:       utils.NowJST,
		log:       infra.Component(log, "watchlist"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "watchlist_refresh" }

// Run implements Job.
func (j *RefreshJob) Run() error {
	if !utils.IsTradingDay(j.now()) {
		j.log.Info().Msg("Not a trading day, skipping refresh")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.Refresh(ctx)
}

// Refresh analyzes every code now, regardless of the calendar.
func (j *RefreshJob) Refresh(ctx context.Context) error {
	if len(j.codes) == 0 {
		return errors.New("watchlist is empty")
	}

	start := time.Now()
	results, err := j.runner.AnalyzeBatch(ctx, analyzer.BatchRequest{Codes: j.codes, Kind: j.kind})
	if err != nil {
		return fmt.Errorf("watchlist refresh: %w", err)
	}

	sum := Summary{Codes: len(results), Elapsed: time.Since(start).Round(time.Millisecond).String()}
	for _, res := range results {
		if res.Error != "" {
			sum.Failed++
			j.publish(EventAnalysisFailed, res)
			continue
		}
		sum.Succeeded++
		j.publish(EventAnalysisCompleted, res)
	}
	j.publish(EventRefreshed, sum)

	j.mu.Lock()
	j.last = &Snapshot{RefreshedAt: j.now(), Results: results}
	j.mu.Unlock()

	j.log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Str("elapsed", sum.Elapsed).
		Msg("Watchlist refreshed")
	return nil
}

// Last returns the most recent snapshot, or nil before the first refresh.
func (j *RefreshJob) Last() *Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}

// Codes returns the watched codes.
func (j *RefreshJob) Codes() []string {
	return append([]string(nil), j.codes...)
}

func (j *RefreshJob) publish(eventType string, data any) {
	if j.publisher != nil {
		j.publisher.Publish(eventType, data)
	}
}
