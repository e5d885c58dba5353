package datura

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/platform/retry"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "test-key", 5*time.Second, clockwork.NewFakeClockAt(testNow))
	c.policy = retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, RateLimitBackoff: time.Millisecond}
	return c
}

func TestFetchRecentTexts_SendsSearchFilters(t *testing.T) {
	var got searchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/twitter", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode([]tweet{{ID: "1", Text: "TAO to the moon"}, {ID: "2", Text: "  "}, {ID: "3", Text: "bearish"}})
	})

	texts, err := c.FetchRecentTexts(context.Background(), 10, 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"TAO to the moon", "bearish"}, texts)
	assert.Equal(t, "Whats going on with Bittensor", got.Query)
	assert.Equal(t, "elonmusk", got.User)
	assert.Equal(t, "Top", got.Sort)
	assert.Equal(t, "2025-03-03", got.StartDate)
	assert.Equal(t, "2025-03-10", got.EndDate)
	assert.Equal(t, 10, got.Count)
	assert.True(t, got.Verified)
	assert.Equal(t, 1, got.MinLikes)
}

func TestFetchRecentTexts_TruncatesToCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]tweet{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	})

	texts, err := c.FetchRecentTexts(context.Background(), 2, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, texts)
}

func TestFetchRecentTexts_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	texts, err := c.FetchRecentTexts(context.Background(), 10, 7)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestFetchRecentTexts_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]tweet{{Text: "ok"}})
	})

	texts, err := c.FetchRecentTexts(context.Background(), 10, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, texts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRecentTexts_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	})

	_, err := c.FetchRecentTexts(context.Background(), 10, 7)
	require.Error(t, err)

	var statusErr *retry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRecentTexts_MalformedBody(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})

	_, err := c.FetchRecentTexts(context.Background(), 10, 7)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRecentTexts_InvalidArguments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.FetchRecentTexts(context.Background(), 0, 7)
	assert.Error(t, err)
	_, err = c.FetchRecentTexts(context.Background(), 10, 0)
	assert.Error(t, err)
}
