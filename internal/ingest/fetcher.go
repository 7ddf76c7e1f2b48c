package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/panicbutton/internal/model"
)

const (
	maxFetchAttempts = 3
	baseFetchBackoff = 1 * time.Second
)

// fetchSleepFunc waits between attempts; tests replace it
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Retryable reports whether the server may answer differently on a later attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// transportError wraps failures below HTTP (dial, reset, timeout)
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "fetch: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Fetcher downloads syllabus pages
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
}

// NewFetcher creates a fetcher from HTTP settings. When RespectRobots is set,
// every URL is checked against its host's robots.txt first.
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// FetchResult is one downloaded page
type FetchResult struct {
	Body        string
	ContentType string
	FinalURL    string
}

// Fetch retrieves the URL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, _, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures (5xx, 429, transport errors)
// with exponential backoff, up to three attempts
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(baseFetchBackoff << (attempt - 1))
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// FetchDocument downloads a URL and converts it to extractor input
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (Document, error) {
	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return Document{}, err
	}

	mediaType, _, _ := mime.ParseMediaType(result.ContentType)
	switch {
	case mediaType == "application/pdf":
		return Document{}, fmt.Errorf("%w: %s serves a PDF", ErrUnsupportedFormat, rawURL)
	case mediaType == "text/plain":
		return NewTextDocument(result.Body, result.FinalURL), nil
	case mediaType == "" && !strings.Contains(strings.ToLower(result.Body), "<html"):
		return NewTextDocument(result.Body, result.FinalURL), nil
	}

	text, err := HTMLText(result.Body)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return NewTextDocument(text, result.FinalURL), nil
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var tErr *transportError
	return errors.As(err, &tErr) && !errors.Is(err, context.Canceled)
}
