// Package datura fetches recent posts from the Datura Twitter search API.
package datura

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

const (
	searchPath = "/twitter"
	dateLayout = "2006-01-02"
)

// SearchParams are the fixed filters applied to every search.
type SearchParams struct {
	Query        string
	User         string
	Sort         string
	Lang         string
	Verified     bool
	BlueVerified bool
	IsQuote      bool
	IsVideo      bool
	IsImage      bool
	MinRetweets  int
	MinReplies   int
	MinLikes     int
}

func DefaultSearchParams() SearchParams {
	return SearchParams{
		Query:        "Whats going on with Bittensor",
		User:         "elonmusk",
		Sort:         "Top",
		Lang:         "en",
		Verified:     true,
		BlueVerified: true,
		IsQuote:      true,
		IsVideo:      true,
		IsImage:      true,
		MinRetweets:  1,
		MinReplies:   1,
		MinLikes:     1,
	}
}

type Client struct {
	baseURL    string
	apiKey     string
	params     SearchParams
	httpClient *http.Client
	clock      clockwork.Clock
	policy     retry.Policy
}

var _ domain.TextSource = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration, clock clockwork.Clock) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		params:     DefaultSearchParams(),
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		policy:     retry.DefaultHTTPPolicy,
	}
}

type searchRequest struct {
	Query        string `json:"query"`
	Sort         string `json:"sort"`
	User         string `json:"user"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Lang         string `json:"lang"`
	Verified     bool   `json:"verified"`
	BlueVerified bool   `json:"blue_verified"`
	IsQuote      bool   `json:"is_quote"`
	IsVideo      bool   `json:"is_video"`
	IsImage      bool   `json:"is_image"`
	MinRetweets  int    `json:"min_retweets"`
	MinReplies   int    `json:"min_replies"`
	MinLikes     int    `json:"min_likes"`
	Count        int    `json:"count"`
}

type tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// FetchRecentTexts returns up to count post texts from the last windowDays days.
func (c *Client) FetchRecentTexts(ctx context.Context, count, windowDays int) ([]string, error) {
	if count <= 0 || windowDays <= 0 {
		return nil, fmt.Errorf("count and windowDays must be positive, got %d and %d", count, windowDays)
	}

	now := c.clock.Now().UTC()
	body, err := json.Marshal(searchRequest{
		Query:        c.params.Query,
		Sort:         c.params.Sort,
		User:         c.params.User,
		StartDate:    now.AddDate(0, 0, -windowDays).Format(dateLayout),
		EndDate:      now.Format(dateLayout),
		Lang:         c.params.Lang,
		Verified:     c.params.Verified,
		BlueVerified: c.params.BlueVerified,
		IsQuote:      c.params.IsQuote,
		IsVideo:      c.params.IsVideo,
		IsImage:      c.params.IsImage,
		MinRetweets:  c.params.MinRetweets,
		MinReplies:   c.params.MinReplies,
		MinLikes:     c.params.MinLikes,
		Count:        count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Datura search failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	tweets, err := retry.Do(ctx, policy, retry.ClassifyHTTP, func() ([]tweet, error) {
		return c.search(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("datura search: %w", err)
	}

	texts := make([]string, 0, len(tweets))
	for _, t := range tweets {
		if strings.TrimSpace(t.Text) != "" {
			texts = append(texts, t.Text)
		}
	}
	if len(texts) > count {
		texts = texts[:count]
	}

	slog.InfoContext(ctx, "Fetched posts", "count", len(texts), "window_days", windowDays)
	return texts, nil
}

func (c *Client) search(ctx context.Context, body []byte) ([]tweet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	var tweets []tweet
	if err := json.NewDecoder(resp.Body).Decode(&tweets); err != nil {
		return nil, &retry.PermanentError{Err: fmt.Errorf("failed to decode search response: %w", err)}
	}
	return tweets, nil
}
