package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetcherFetchReturnsParsedPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1 class="headline">hello</h1></body></html>`))
	}))
	defer srv.Close()

	f, err := New(Config{UserAgent: "test-agent", Timeout: 5 * time.Second, IgnoreRobots: true})
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.False(t, page.Rendered)
	require.Equal(t, "hello", page.Doc.Find("h1.headline").Text())
}

func TestFetcherFetchRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 5 * time.Second, IgnoreRobots: true, MaxRetries: 2})
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetcherFetchCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte("slow"))
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 10 * time.Second, IgnoreRobots: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL)
	require.Error(t, err)
}

func TestFetcherRejectsBadProxyURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Proxies: []string{"://not-a-url"}})
	require.Error(t, err)
}

func TestRetryPolicyDecisions(t *testing.T) {
	t.Parallel()

	p := newRetryPolicy(2)
	require.False(t, p.shouldRetry(nil, 0))
	require.True(t, p.shouldRetry(errors.New("boom"), 0))
	require.False(t, p.shouldRetry(errors.New("boom"), 2))
	require.False(t, p.shouldRetry(context.Canceled, 0))
	require.False(t, p.shouldRetry(context.DeadlineExceeded, 0))
}

func TestRetryPolicyBackoffBounded(t *testing.T) {
	t.Parallel()

	p := newRetryPolicy(5)
	for attempt := 0; attempt < 10; attempt++ {
		d := p.backoff(attempt)
		require.Positive(t, d)
		require.LessOrEqual(t, d, p.maxDelay)
	}
}
