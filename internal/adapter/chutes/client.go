// Package chutes scores text sentiment through the Chutes chat-completions API.
package chutes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/retry"
)

const (
	completionsPath = "/v1/chat/completions"
	promptTemplate  = "Evaluate positive or negative score within a range of -100 to 100 for Bittensor trading from following text: %s"

	maxTokens   = 1024
	temperature = 0.7

	minScore = -100
	maxScore = 100
)

var numberPattern = regexp.MustCompile(`-?\b\d+(\.\d+)?\b`)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	policy     retry.Policy
}

var _ domain.TextScorer = (*Client)(nil)

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		policy:     retry.DefaultHTTPPolicy,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// ScoreText asks the model for a score and extracts the first number in
// [-100, 100] from its reply. A reply with no usable number scores 0.
func (c *Client) ScoreText(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: fmt.Sprintf(promptTemplate, text)}},
		Stream:      false,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode completion request: %w", err)
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Chutes completion failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	content, err := retry.Do(ctx, policy, retry.ClassifyHTTP, func() (string, error) {
		return c.complete(ctx, body)
	})
	if err != nil {
		return 0, fmt.Errorf("chutes completion: %w", err)
	}

	if strings.TrimSpace(content) == "" {
		slog.WarnContext(ctx, "Chutes returned no content, scoring as neutral")
		return 0, nil
	}

	score, ok := extractScore(content)
	if !ok {
		slog.WarnContext(ctx, "No score in Chutes reply, scoring as neutral", "reply", content)
		return 0, nil
	}
	return score, nil
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retry.StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &retry.PermanentError{Err: fmt.Errorf("failed to decode completion response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func extractScore(reply string) (float64, bool) {
	for _, match := range numberPattern.FindAllString(reply, -1) {
		v, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		if v >= minScore && v <= maxScore {
			return v, true
		}
	}
	return 0, false
}
