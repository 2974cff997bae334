package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/link"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/store"
)

// Status is the annotation an operator puts on a video
type Status string

const (
	StatusDefault    Status = "default" // Remove any manual label
	StatusEligible   Status = "eligible"
	StatusIneligible Status = "ineligible"
	StatusReupload   Status = "reupload" // Note holds the replacement link
)

// ParseStatus validates a status name
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDefault, StatusEligible, StatusIneligible, StatusReupload:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Annotate records an operator decision for the video behind raw. The video is
// resolved first so that a never-seen link gets stored before it is labeled.
// The whitelist flag is always written; the cached record is dropped so the
// next lookup sees the change.
func (c *Checker) Annotate(ctx context.Context, raw string, status Status, note string, whitelisted bool) (model.VideoRef, error) {
	if c.store == nil {
		return model.VideoRef{}, fmt.Errorf("annotate: no store configured")
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return model.VideoRef{}, err
	}

	ref, err := link.Resolve(raw)
	if err != nil {
		return ref, fmt.Errorf("annotate: %w", err)
	}
	if res := c.resolver.Resolve(ctx, raw, false, c.Catalog()); res.Metadata == nil {
		return ref, fmt.Errorf("annotate %s: %w", ref, ErrUnknownVideo)
	}

	switch status {
	case StatusDefault:
		err = c.store.DeleteManualLabel(ctx, ref)
	case StatusReupload:
		if _, lerr := link.Resolve(note); lerr != nil {
			return ref, fmt.Errorf("annotate %s: reupload source: %w", ref, lerr)
		}
		err = c.store.SetSource(ctx, ref, note)
	default:
		err = c.store.PutManualLabel(ctx, ref, model.ManualLabel{Kind: model.LabelKind(status), Content: note})
	}
	if err != nil {
		return ref, fmt.Errorf("annotate %s: %w", ref, err)
	}

	if err := c.store.SetWhitelisted(ctx, ref, whitelisted); err != nil {
		return ref, fmt.Errorf("whitelist %s: %w", ref, err)
	}

	if err := c.resolver.InvalidateCache(ctx, ref); err != nil {
		c.logger.Warn().Err(err).Str("ref", ref.String()).Msg("failed to invalidate cached metadata")
	}
	c.logger.Info().
		Str("ref", ref.String()).
		Str("status", string(status)).
		Bool("whitelisted", whitelisted).
		Msg("video annotated")
	return ref, nil
}

// UpdateLabels persists catalog overrides and swaps in the reloaded snapshot
func (c *Checker) UpdateLabels(ctx context.Context, rows []model.Flag) (*labels.Catalog, error) {
	catalog, err := c.labels.Update(ctx, rows)
	if err != nil {
		return catalog, err
	}
	c.metrics.CatalogReloaded()
	return catalog, nil
}

// ReloadLabels re-reads persisted overrides
func (c *Checker) ReloadLabels(ctx context.Context) (*labels.Catalog, error) {
	catalog, err := c.labels.Reload(ctx)
	if err != nil {
		return catalog, err
	}
	c.metrics.CatalogReloaded()
	return catalog, nil
}

// PoolVideo is one row of the vote pool
type PoolVideo struct {
	Video  model.ClientVideo  `json:"video"`
	Votes  int                `json:"votes"`
	Manual *model.ManualLabel `json:"manual,omitempty"`
	Flags  []model.Flag       `json:"flags"` // Automatic flags followed by the manual one
}

// Pool lists the most voted stored videos with their full flag set
func (c *Checker) Pool(ctx context.Context, limit int) ([]PoolVideo, error) {
	if c.store == nil {
		return nil, fmt.Errorf("pool: no store configured")
	}
	if limit <= 0 {
		limit = store.DefaultPoolSize
	}

	rows, err := c.store.TopVideos(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}

	catalog := c.Catalog()
	rng := c.CurrentEligibleRange()
	out := make([]PoolVideo, 0, len(rows))
	for _, row := range rows {
		out = append(out, PoolVideo{
			Video:  link.ToClient(row.Metadata),
			Votes:  row.Votes,
			Manual: row.Manual,
			Flags:  c.engine.Evaluate(row.Metadata, row.Manual, true, catalog, rng),
		})
	}
	return out, nil
}

// searchLimit caps title search results
const searchLimit = 20

// ErrEmptyQuery is returned by Search for blank queries
var ErrEmptyQuery = errors.New("empty search query")

// Search finds whitelisted videos of the current period by title
func (c *Checker) Search(ctx context.Context, query string) ([]model.ClientVideo, error) {
	if c.store == nil {
		return nil, fmt.Errorf("search: no store configured")
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}

	found, err := c.store.SearchTitles(ctx, query, c.CurrentEligibleRange().Earliest, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]model.ClientVideo, 0, len(found))
	for _, meta := range found {
		out = append(out, link.ToClient(meta))
	}
	return out, nil
}
