package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// Runner executes a command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec. Anything written to stderr is a failure,
// since yt-dlp is invoked with -q and --no-warnings.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return nil, fmt.Errorf("%s: %s", name, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// YTDLP resolves links with the yt-dlp command line tool
type YTDLP struct {
	cfg     model.ExtractorConfig
	run     Runner
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewYTDLP creates a runner. A nil run uses ExecRunner.
func NewYTDLP(cfg model.ExtractorConfig, run Runner, logger zerolog.Logger) *YTDLP {
	if run == nil {
		run = ExecRunner
	}
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "yt-dlp",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Missing videos are answers, not outages
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}

	return &YTDLP{
		cfg:     cfg,
		run:     run,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Args builds the yt-dlp argument list for a link
func (y *YTDLP) Args(url string) []string {
	args := []string{"-q", "--no-download", "--dump-json", "--no-warnings"}
	if y.cfg.SleepInterval > 0 {
		args = append(args, "--sleep-interval", strconv.Itoa(y.cfg.SleepInterval))
	}
	if len(y.cfg.Extractors) > 0 {
		args = append(args, "--use-extractors", strings.Join(y.cfg.Extractors, ","))
	}
	if y.cfg.CookiesFile != "" {
		args = append(args, "--cookies", y.cfg.CookiesFile)
	}
	if y.cfg.Proxy != "" {
		args = append(args, "--proxy", y.cfg.Proxy)
	}
	return append(args, url)
}

// FetchGeneric runs yt-dlp and returns the video record. Playlist-shaped
// output resolves to its first entry; an empty playlist is ErrUnavailable.
// While the breaker is open calls fail fast with gobreaker.ErrOpenState.
func (y *YTDLP) FetchGeneric(ctx context.Context, url string) (*GenericItem, error) {
	if y.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := y.breaker.Execute(func() (interface{}, error) {
		raw, err := y.run(ctx, y.cfg.Binary, y.Args(url)...)
		if err != nil {
			return nil, err
		}
		return decodeGeneric(raw)
	})
	if err != nil {
		y.logger.Debug().Err(err).Str("url", url).Dur("duration", time.Since(start)).Msg("yt-dlp lookup failed")
		return nil, err
	}
	return out.(*GenericItem), nil
}

func decodeGeneric(raw []byte) (*GenericItem, error) {
	var item GenericItem
	if err := json.Unmarshal(bytes.TrimSpace(raw), &item); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}

	if item.Entries != nil {
		if len(item.Entries) == 0 {
			return nil, ErrUnavailable
		}
		first := item.Entries[0]
		return &first, nil
	}
	return &item, nil
}
