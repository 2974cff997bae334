// Package checker is the caller-facing surface: it resolves links, applies the
// rules with the current label catalog, aggregates ballots and manages the
// operator annotations behind them.
package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ponyvote/ballotcheck/internal/ballot"
	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/link"
	"github.com/ponyvote/ballotcheck/internal/metrics"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/period"
	"github.com/ponyvote/ballotcheck/internal/resolve"
	"github.com/ponyvote/ballotcheck/internal/rules"
	"github.com/ponyvote/ballotcheck/internal/store"
)

var (
	// ErrInvalidIndex is returned for ballot positions outside 0..BallotSize-1
	ErrInvalidIndex = errors.New("invalid ballot index")
	// ErrUnknownVideo is returned when an annotation names a video that cannot be resolved
	ErrUnknownVideo = errors.New("unknown video")
	// ErrInvalidStatus is returned for annotation statuses other than the four known ones
	ErrInvalidStatus = errors.New("invalid annotation status")
)

// defaultEntryFetches bounds concurrent lookups within one ballot
const defaultEntryFetches = 4

// Options carries the checker's collaborators. Resolver and Labels are required.
type Options struct {
	Resolver     *resolve.Resolver
	Engine       *rules.Engine
	Labels       *labels.Source
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
	Now          func() time.Time
	EntryFetches int
}

// Checker wires the resolver, rule engine, ballot aggregation and store together
type Checker struct {
	store        store.Store
	resolver     *resolve.Resolver
	engine       *rules.Engine
	labels       *labels.Source
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	now          func() time.Time
	entryFetches int
}

// New creates a checker. A nil store limits it to stateless checks.
func New(st store.Store, opts Options) *Checker {
	if opts.Engine == nil {
		opts.Engine = rules.NewEngine(model.RulesConfig{})
	}
	if opts.Labels == nil {
		opts.Labels = labels.NewSource(nil, opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EntryFetches <= 0 {
		opts.EntryFetches = defaultEntryFetches
	}
	return &Checker{
		store:        st,
		resolver:     opts.Resolver,
		engine:       opts.Engine,
		labels:       opts.Labels,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
		entryFetches: opts.EntryFetches,
	}
}

// Evaluation is the outcome of checking one link. Metadata is nil when the
// link was rejected or no video could be found; Flags then holds that reason.
type Evaluation struct {
	Input    string               `json:"input"`
	Ref      model.VideoRef       `json:"ref"`
	Metadata *model.VideoMetadata `json:"metadata,omitempty"`
	Manual   *model.ManualLabel   `json:"manual,omitempty"`
	Flags    []model.Flag         `json:"flags"`
}

// Eligible reports whether the evaluation carries no ineligible flag
func (e Evaluation) Eligible() bool {
	return !model.HasIneligible(e.Flags)
}

// Entry converts the evaluation into a ballot slot
func (e Evaluation) Entry() model.BallotEntry {
	return model.BallotEntry{
		Input: e.Input,
		Video: model.VideoOf(e.Metadata),
		Flags: e.Flags,
	}
}

// Catalog returns the label snapshot currently in effect
func (c *Checker) Catalog() *labels.Catalog {
	return c.labels.Current()
}

// CurrentEligibleRange returns the eligible upload dates for the checker's clock
func (c *Checker) CurrentEligibleRange() period.Range {
	return period.EligibleRange(c.now())
}

// ResolveAndEvaluate checks a single link. Rejections and lookup failures come
// back as flags; the call itself never fails.
func (c *Checker) ResolveAndEvaluate(ctx context.Context, raw string, includeAll bool) Evaluation {
	raw = strings.TrimSpace(raw)
	catalog := c.Catalog()
	return c.evaluate(raw, c.resolver.Resolve(ctx, raw, true, catalog), includeAll, catalog)
}

func (c *Checker) evaluateRef(ctx context.Context, ref model.VideoRef, includeAll bool, catalog *labels.Catalog) Evaluation {
	return c.evaluate(link.URL(ref), c.resolver.ResolveRef(ctx, ref, true, catalog), includeAll, catalog)
}

func (c *Checker) evaluate(input string, res resolve.Resolution, includeAll bool, catalog *labels.Catalog) Evaluation {
	ev := Evaluation{
		Input:    input,
		Ref:      res.Ref,
		Metadata: res.Metadata,
		Manual:   res.Manual,
	}
	if res.Flag != nil {
		ev.Flags = []model.Flag{*res.Flag}
	} else {
		ev.Flags = c.engine.Evaluate(*res.Metadata, res.Manual, includeAll, catalog, c.CurrentEligibleRange())
	}
	c.metrics.CountFlags(ev.Flags)
	return ev
}

// EvaluateBallot checks every input concurrently and aggregates the result.
// Blank inputs stay as empty slots. One entry failing never affects its siblings.
func (c *Checker) EvaluateBallot(ctx context.Context, inputs []string) (ballot.Result, error) {
	if len(inputs) > model.BallotSize {
		return ballot.Result{}, fmt.Errorf("%w: %d > %d", ballot.ErrTooManyEntries, len(inputs), model.BallotSize)
	}

	catalog := c.Catalog()
	entries := make([]model.BallotEntry, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.entryFetches)
	for i, raw := range inputs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			entries[i] = model.BallotEntry{Video: model.NoVideo()}
			continue
		}
		g.Go(func() error {
			res := c.resolver.Resolve(gctx, raw, true, catalog)
			entries[i] = c.evaluate(raw, res, false, catalog).Entry()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ballot.Result{}, err
	}

	return ballot.Aggregate(entries, catalog)
}

// ValidateEntry checks raw for position index of a voter's ballot. A link that
// resolves to a video is saved in that position; anything else clears it.
func (c *Checker) ValidateEntry(ctx context.Context, userID string, index int, raw string) (Evaluation, error) {
	if err := checkIndex(index); err != nil {
		return Evaluation{}, err
	}

	ev := c.ResolveAndEvaluate(ctx, raw, false)
	if c.store == nil {
		return ev, nil
	}

	if ev.Metadata == nil {
		if err := c.store.DeleteBallotItem(ctx, userID, index); err != nil {
			return ev, fmt.Errorf("clear ballot item: %w", err)
		}
		return ev, nil
	}

	item := model.BallotItem{
		UserID:    userID,
		Index:     index,
		Ref:       ev.Ref,
		CreatedAt: c.now(),
	}
	if err := c.store.PutBallotItem(ctx, item); err != nil {
		return ev, fmt.Errorf("save ballot item: %w", err)
	}
	return ev, nil
}

// RemoveEntry clears one position of a voter's ballot
func (c *Checker) RemoveEntry(ctx context.Context, userID string, index int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if c.store == nil {
		return nil
	}
	return c.store.DeleteBallotItem(ctx, userID, index)
}

// SavedBallot is a voter's stored ballot for the current period
type SavedBallot struct {
	UserID string             `json:"user_id"`
	Items  []model.BallotItem `json:"items"`
	Result ballot.Result      `json:"result"`
}

// LoadBallot reads the voter's items saved since the start of the eligible
// range and evaluates them in their positions
func (c *Checker) LoadBallot(ctx context.Context, userID string) (SavedBallot, error) {
	if c.store == nil {
		return SavedBallot{}, fmt.Errorf("load ballot: no store configured")
	}

	items, err := c.store.GetBallotItems(ctx, userID, c.CurrentEligibleRange().Earliest)
	if err != nil {
		return SavedBallot{}, fmt.Errorf("load ballot: %w", err)
	}

	catalog := c.Catalog()
	entries := make([]model.BallotEntry, model.BallotSize)
	for i := range entries {
		entries[i] = model.BallotEntry{Video: model.NoVideo()}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.entryFetches)
	for _, item := range items {
		if item.Index < 0 || item.Index >= model.BallotSize {
			c.logger.Warn().Str("user", userID).Int("index", item.Index).Msg("skipping ballot item out of range")
			continue
		}
		g.Go(func() error {
			entries[item.Index] = c.evaluateRef(gctx, item.Ref, false, catalog).Entry()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SavedBallot{}, err
	}

	res, err := ballot.Aggregate(entries, catalog)
	if err != nil {
		return SavedBallot{}, err
	}
	return SavedBallot{UserID: userID, Items: items, Result: res}, nil
}

func checkIndex(index int) error {
	if index < 0 || index >= model.BallotSize {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return nil
}
