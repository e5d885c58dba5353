package domain

import "context"

type TextSource interface {
	FetchRecentTexts(ctx context.Context, count, windowDays int) ([]string, error)
}

// TextScorer returns a score in [-100, 100].
type TextScorer interface {
	ScoreText(ctx context.Context, text string) (float64, error)
}
