package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/panicbutton/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html><body>OK</body></html>", result.Body)
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>OK</html>", result.Body)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, "unexpected status: 404 404 Not Found", err.Error())
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{Code: 503}, true},
		{"500", &StatusError{Code: 500}, true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"transport", &transportError{err: errors.New("connection refused")}, true},
		{"canceled", &transportError{err: context.Canceled}, false},
		{"robots", fmt.Errorf("%w: x", ErrDisallowedByRobots), false},
		{"read body", errors.New("read body: unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableFetchError(tt.err))
		})
	}
}

func TestFetchDocument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/syllabus.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body><p>Assignment 1 due 2026-02-07</p><script>x=1</script></body></html>")
	})
	mux.HandleFunc("/syllabus.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "Quiz due 03/04/2026\r\n")
	})
	mux.HandleFunc("/syllabus.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = fmt.Fprint(w, "%PDF-1.4")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(testHTTPConfig())

	doc, err := f.FetchDocument(context.Background(), server.URL+"/syllabus.html")
	require.NoError(t, err)
	assert.Equal(t, "Assignment 1 due 2026-02-07", doc.Text)
	assert.Equal(t, server.URL+"/syllabus.html", doc.Source)

	doc, err = f.FetchDocument(context.Background(), server.URL+"/syllabus.txt")
	require.NoError(t, err)
	assert.Equal(t, "Quiz due 03/04/2026\n", doc.Text)

	_, err = f.FetchDocument(context.Background(), server.URL+"/syllabus.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFetch_RobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	f := NewFetcher(cfg)

	_, err := f.Fetch(context.Background(), server.URL+"/private/syllabus.html")
	assert.ErrorIs(t, err, ErrDisallowedByRobots)

	result, err := f.Fetch(context.Background(), server.URL+"/public/syllabus.html")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Body)
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "campus.edu, .internal")

	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	u, err := proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "secure-proxy:8443", u.Host)

	req = httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy:8080", u.Host)

	req = httptest.NewRequest(http.MethodGet, "https://www.campus.edu/", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}
