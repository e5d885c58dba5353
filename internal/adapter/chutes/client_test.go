package chutes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "secret", "test-model", 5*time.Second)
	c.policy = retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, RateLimitBackoff: time.Millisecond}
	return c
}

func reply(w http.ResponseWriter, content string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func TestScoreText_SendsPrompt(t *testing.T) {
	var got completionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, "Score: 42")
	})

	score, err := c.ScoreText(context.Background(), "TAO is pumping")
	require.NoError(t, err)
	assert.Equal(t, 42.0, score)

	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "range of -100 to 100")
	assert.Contains(t, got.Messages[0].Content, "TAO is pumping")
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
		found bool
	}{
		{"plain", "75", 75, true},
		{"negative", "I'd say -35.5 overall", -35.5, true},
		{"skips out of range", "Out of 1000 posts, sentiment is 60", 60, true},
		{"first in range wins", "scores: 10, 20", 10, true},
		{"bounds inclusive", "-100", -100, true},
		{"no number", "very bullish", 0, false},
		{"only out of range", "2024 was a year", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := extractScore(tt.reply)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreText_NoNumberIsNeutral(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, "Hard to tell, honestly.")
	})

	score, err := c.ScoreText(context.Background(), "hmm")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestScoreText_EmptyChoicesIsNeutral(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	score, err := c.ScoreText(context.Background(), "hmm")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestScoreText_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		reply(w, "-15")
	})

	score, err := c.ScoreText(context.Background(), "meh")
	require.NoError(t, err)
	assert.Equal(t, -15.0, score)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScoreText_ErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ScoreText(context.Background(), "meh")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScoreText_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.ScoreText(context.Background(), "meh")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
