package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/correlation"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var ErrNoTexts = errors.New("no texts to score")

type RefresherConfig struct {
	Interval         time.Duration
	TextCount        int
	WindowDays       int
	ScoreConcurrency int
}

func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval:         2 * time.Hour,
		TextCount:        10,
		WindowDays:       7,
		ScoreConcurrency: 4,
	}
}

// Refresher recomputes the signal as the mean score of recent posts. A failed
// cycle leaves the previous reading in place.
type Refresher struct {
	source  domain.TextSource
	scorer  domain.TextScorer
	signal  *Signal
	cfg     RefresherConfig
	clock   clockwork.Clock
	metrics *metrics.SentimentMetrics
}

func NewRefresher(source domain.TextSource, scorer domain.TextScorer, signal *Signal, cfg RefresherConfig, clock clockwork.Clock, m *metrics.SentimentMetrics) *Refresher {
	if cfg.ScoreConcurrency < 1 {
		cfg.ScoreConcurrency = 1
	}
	return &Refresher{source: source, scorer: scorer, signal: signal, cfg: cfg, clock: clock, metrics: m}
}

// Run refreshes once immediately and then on every interval tick. It blocks
// until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Sentiment refresher started", "interval", r.cfg.Interval)

	r.cycle(ctx)

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sentiment refresher stopped")
			return
		case <-ticker.Chan():
			r.cycle(ctx)
		}
	}
}

func (r *Refresher) cycle(ctx context.Context) {
	cycleCtx := correlation.WithID(ctx, correlation.NewID())
	start := r.clock.Now()

	err := r.RefreshOnce(cycleCtx)

	result := "ok"
	switch {
	case errors.Is(err, ErrNoTexts):
		result = "empty"
		slog.WarnContext(cycleCtx, "No posts fetched, keeping previous sentiment", "score", r.signal.Value())
	case err != nil:
		result = "error"
		slog.ErrorContext(cycleCtx, "Sentiment refresh failed, keeping previous sentiment", "score", r.signal.Value(), "error", err)
	}

	if r.metrics != nil {
		r.metrics.Refreshes.WithLabelValues(result).Inc()
		r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	}
}

// RefreshOnce fetches recent posts, scores all of them and publishes the
// mean. Any fetch or scoring error aborts the cycle before publishing.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	texts, err := r.source.FetchRecentTexts(ctx, r.cfg.TextCount, r.cfg.WindowDays)
	if err != nil {
		return fmt.Errorf("failed to fetch posts: %w", err)
	}
	if len(texts) == 0 {
		return ErrNoTexts
	}

	scores := make([]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.ScoreConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			score, err := r.scorer.ScoreText(gctx, text)
			if err != nil {
				return fmt.Errorf("failed to score post %d: %w", i, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}

	reading, err := r.signal.Publish(sum/float64(len(scores)), r.clock.Now())
	if err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.Score.Set(reading.Value)
	}

	slog.InfoContext(ctx, "Sentiment refreshed", "score", reading.Value, "posts", len(scores))
	return nil
}
