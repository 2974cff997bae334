package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/model"
)

const maxResponseBytes = 1 << 20

// newBackOff builds the retry schedule; tests swap it for a zero backoff
var newBackOff = func() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	return bo
}

// YouTube is a minimal YouTube Data API v3 client
type YouTube struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries uint64
	logger     zerolog.Logger
}

// NewYouTube creates a client from config
func NewYouTube(cfg model.YouTubeConfig, logger zerolog.Logger) *YouTube {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client, err := newHTTPClient(cfg.Proxy)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring proxy setting")
		client, _ = newHTTPClient("")
	}
	client.Timeout = timeout
	return &YouTube{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

type videosResponse struct {
	Items []YouTubeItem `json:"items"`
}

// statusError carries a non-2xx API response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.status)
}

// retryable reports whether a status code is worth another attempt
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// FetchYouTube looks up one video with snippet and contentDetails parts.
// Transient failures (429, 5xx, transport) are retried with exponential backoff.
func (y *YouTube) FetchYouTube(ctx context.Context, id string) (*YouTubeItem, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("part", "snippet,contentDetails")
	params.Set("key", y.apiKey)
	endpoint := y.baseURL + "/videos?" + params.Encode()

	var resp videosResponse
	operation := func() error {
		var err error
		resp, err = y.get(ctx, endpoint)
		if err == nil {
			return nil
		}
		if se, ok := err.(*statusError); ok && !retryable(se.code) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), y.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		y.logger.Debug().Err(err).Str("id", id).Dur("wait", wait).Msg("retrying youtube lookup")
	}
	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, fmt.Errorf("youtube videos.list %s: %w", id, err)
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}
	item := resp.Items[0]
	return &item, nil
}

func (y *YouTube) get(ctx context.Context, endpoint string) (videosResponse, error) {
	var out videosResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}
