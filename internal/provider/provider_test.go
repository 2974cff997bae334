package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ponyvote/ballotcheck/internal/model"
)

const videoJSON = `{
  "items": [{
    "id": "dQw4w9WgXcQ",
    "snippet": {
      "title": "Pony Music Video",
      "channelTitle": "Some Animator",
      "channelId": "UC123",
      "publishedAt": "2024-02-14T18:30:00Z",
      "thumbnails": {"medium": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg", "width": 320, "height": 180}}
    },
    "contentDetails": {"duration": "PT3M33S"}
  }]
}`

func withZeroBackOff(t *testing.T) {
	t.Helper()
	orig := newBackOff
	newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(func() { newBackOff = orig })
}

func newTestYouTube(url string) *YouTube {
	return NewYouTube(model.YouTubeConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	}, zerolog.Nop())
}

func TestFetchYouTube_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("id") != "dQw4w9WgXcQ" || q.Get("key") != "test-key" || q.Get("part") != "snippet,contentDetails" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, videoJSON)
	}))
	defer server.Close()

	item, err := newTestYouTube(server.URL).FetchYouTube(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if item == nil {
		t.Fatal("Expected item")
	}
	if item.Snippet.Title != "Pony Music Video" || item.Snippet.ChannelTitle != "Some Animator" {
		t.Errorf("Unexpected snippet: %+v", item.Snippet)
	}
	if item.ContentDetails.Duration != "PT3M33S" {
		t.Errorf("Unexpected duration %q", item.ContentDetails.Duration)
	}
	if item.Snippet.ThumbnailURL() != "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg" {
		t.Errorf("Unexpected thumbnail %q", item.Snippet.ThumbnailURL())
	}
	if !item.Snippet.PublishedAt.Equal(time.Date(2024, 2, 14, 18, 30, 0, 0, time.UTC)) {
		t.Errorf("Unexpected publish time %s", item.Snippet.PublishedAt)
	}
}

func TestFetchYouTube_EmptyItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"items": []}`)
	}))
	defer server.Close()

	item, err := newTestYouTube(server.URL).FetchYouTube(context.Background(), "xxxxxxxxxxx")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if item != nil {
		t.Errorf("Expected nil item, got %+v", item)
	}
}

func TestFetchYouTube_TransientThenSuccess(t *testing.T) {
	withZeroBackOff(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, videoJSON)
	}))
	defer server.Close()

	item, err := newTestYouTube(server.URL).FetchYouTube(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if item == nil {
		t.Fatal("Expected item")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchYouTube_PermanentFailure(t *testing.T) {
	withZeroBackOff(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestYouTube(server.URL).FetchYouTube(context.Background(), "dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("Expected error for 403, got nil")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("Unexpected error: %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("403 is not retryable, expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetchYouTube_RetriesExhausted(t *testing.T) {
	withZeroBackOff(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestYouTube(server.URL).FetchYouTube(context.Background(), "dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("Expected error")
	}
	// First attempt plus three retries
	if attempts.Load() != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts.Load())
	}
}

func testExtractorConfig() model.ExtractorConfig {
	return model.ExtractorConfig{
		Binary:        "yt-dlp",
		CookiesFile:   "cookies.txt",
		Extractors:    []string{"BiliBili", "Bluesky", "generic"},
		SleepInterval: 2,
		MaxFailures:   2,
		OpenTimeout:   time.Minute,
	}
}

func TestYTDLP_Args(t *testing.T) {
	y := NewYTDLP(testExtractorConfig(), nil, zerolog.Nop())
	got := strings.Join(y.Args("https://vimeo.com/1"), " ")
	want := "-q --no-download --dump-json --no-warnings --sleep-interval 2 --use-extractors BiliBili,Bluesky,generic --cookies cookies.txt https://vimeo.com/1"
	if got != want {
		t.Errorf("Args =\n%s\nwant\n%s", got, want)
	}
}

func TestYTDLP_FetchGeneric(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantTitle string
		wantErr   error
	}{
		{
			name:      "single video",
			output:    `{"id":"1","title":"Clip","uploader":"Someone","upload_date":"20240214","duration":61.5}`,
			wantTitle: "Clip",
		},
		{
			name:      "playlist uses first entry",
			output:    `{"entries":[{"title":"First"},{"title":"Second"}]}`,
			wantTitle: "First",
		},
		{
			name:    "empty playlist",
			output:  `{"entries":[]}`,
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
				if name != "yt-dlp" {
					t.Errorf("unexpected binary %s", name)
				}
				return []byte(tt.output + "\n"), nil
			}
			y := NewYTDLP(testExtractorConfig(), run, zerolog.Nop())

			item, err := y.FetchGeneric(context.Background(), "https://vimeo.com/1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", item.Title, tt.wantTitle)
			}
		})
	}
}

func TestYTDLP_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("yt-dlp: ERROR: unable to download")
	}
	y := NewYTDLP(testExtractorConfig(), run, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := y.FetchGeneric(context.Background(), "https://vimeo.com/1"); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := y.FetchGeneric(context.Background(), "https://vimeo.com/1")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open breaker, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("open breaker should not run yt-dlp, got %d calls", calls.Load())
	}
}

func TestYTDLP_UnavailableDoesNotTrip(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"entries":[]}`), nil
	}
	y := NewYTDLP(testExtractorConfig(), run, zerolog.Nop())

	for i := 0; i < 5; i++ {
		_, err := y.FetchGeneric(context.Background(), "https://vimeo.com/1")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d: expected ErrUnavailable, got %v", i, err)
		}
	}
}

func TestProxyFunc(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://www.googleapis.com/youtube/v3/videos", nil)

	pf, err := proxyFunc("http://proxy.internal:3128")
	if err != nil {
		t.Fatal(err)
	}
	u, err := pf(req)
	if err != nil || u == nil || u.Host != "proxy.internal:3128" {
		t.Errorf("proxy = %v, %v", u, err)
	}

	if _, err := proxyFunc("not a proxy"); err == nil {
		t.Error("expected error for invalid proxy url")
	}

	cfg := testExtractorConfig()
	cfg.Proxy = "socks5://127.0.0.1:1080"
	args := NewYTDLP(cfg, nil, zerolog.Nop()).Args("https://vimeo.com/1")
	if !strings.Contains(strings.Join(args, " "), "--proxy socks5://127.0.0.1:1080 https://vimeo.com/1") {
		t.Errorf("proxy not passed to yt-dlp: %v", args)
	}
}
