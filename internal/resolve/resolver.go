// Package resolve turns links into normalized video metadata, consulting the
// cache, then the store, then the platform's metadata provider.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/cache"
	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/link"
	"github.com/ponyvote/ballotcheck/internal/metrics"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/period"
	"github.com/ponyvote/ballotcheck/internal/provider"
	"github.com/ponyvote/ballotcheck/internal/store"
)

// MetadataStore is the part of the record store the resolver needs
type MetadataStore interface {
	GetMetadata(ctx context.Context, ref model.VideoRef) (*model.VideoMetadata, error)
	PutMetadata(ctx context.Context, meta model.VideoMetadata) error
	DeleteMetadata(ctx context.Context, ref model.VideoRef) error
	GetManualLabel(ctx context.Context, ref model.VideoRef) (*model.ManualLabel, error)
}

// Throttle paces provider calls per key
type Throttle interface {
	Wait(ctx context.Context, key string) error
}

// Resolution is the outcome of resolving one link. Exactly one of Metadata
// and Flag is set; Ref is zero when the link could not be parsed.
type Resolution struct {
	Ref      model.VideoRef
	Metadata *model.VideoMetadata
	Manual   *model.ManualLabel
	Flag     *model.Flag
}

// Options carries the resolver's optional collaborators
type Options struct {
	Cache    *cache.MetadataCache
	Primary  provider.Primary
	Generic  provider.Generic
	Quirks   *Quirks
	Throttle Throttle
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Resolver implements link -> metadata resolution
type Resolver struct {
	store    MetadataStore
	cache    *cache.MetadataCache
	primary  provider.Primary
	generic  provider.Generic
	quirks   *Quirks
	throttle Throttle
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a resolver. A nil store disables persistence.
func New(st MetadataStore, opts Options) *Resolver {
	if opts.Quirks == nil {
		opts.Quirks = NewQuirks()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		store:    st,
		cache:    opts.Cache,
		primary:  opts.Primary,
		generic:  opts.Generic,
		quirks:   opts.Quirks,
		throttle: opts.Throttle,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Resolve parses raw and resolves it. Link rejections and provider failures come
// back as catalog flags, never as errors. withManual joins the video's manual label.
func (r *Resolver) Resolve(ctx context.Context, raw string, withManual bool, catalog *labels.Catalog) Resolution {
	ref, err := link.Resolve(raw)
	if err != nil {
		res := Resolution{Ref: ref}
		switch {
		case errors.Is(err, link.ErrUnsupportedPlatform):
			res.Flag = flagOf(catalog, labels.UnsupportedSite)
		case errors.Is(err, link.ErrMissingID):
			res.Flag = flagOf(catalog, labels.MissingID)
		default:
			res.Flag = flagOf(catalog, labels.InvalidLink)
		}
		r.metrics.ObserveResolve(ref.Platform, metrics.OutcomeFlagged)
		return res
	}
	return r.resolve(ctx, ref, link.Normalize(raw), withManual, catalog)
}

// ResolveRef resolves an already canonical ref. Providers are given the link
// rebuilt from the ref, so prefer Resolve when the submitted link is known.
func (r *Resolver) ResolveRef(ctx context.Context, ref model.VideoRef, withManual bool, catalog *labels.Catalog) Resolution {
	return r.resolve(ctx, ref, link.URL(ref), withManual, catalog)
}

// resolve looks ref up; source is the link handed to the generic extractor on a miss
func (r *Resolver) resolve(ctx context.Context, ref model.VideoRef, source string, withManual bool, catalog *labels.Catalog) Resolution {
	res := Resolution{Ref: ref}

	meta, outcome := r.lookup(ctx, ref, source)
	if meta == nil {
		res.Flag = flagOf(catalog, labels.Unavailable)
		r.metrics.ObserveResolve(ref.Platform, metrics.OutcomeFlagged)
		return res
	}
	res.Metadata = meta
	r.metrics.ObserveResolve(ref.Platform, outcome)

	if withManual && r.store != nil {
		label, err := r.store.GetManualLabel(ctx, ref)
		if err != nil {
			r.logger.Warn().Err(err).Str("ref", ref.String()).Msg("manual label lookup failed")
		}
		res.Manual = label
	}
	return res
}

func (r *Resolver) lookup(ctx context.Context, ref model.VideoRef, source string) (*model.VideoMetadata, string) {
	if meta, ok := r.cache.Get(ctx, ref); ok {
		return meta, metrics.OutcomeCacheHit
	}

	if r.store != nil {
		meta, err := r.store.GetMetadata(ctx, ref)
		switch {
		case err == nil:
			r.writeCache(ctx, *meta)
			return meta, metrics.OutcomeStoreHit
		case !errors.Is(err, store.ErrNotFound):
			r.logger.Warn().Err(err).Str("ref", ref.String()).Msg("store lookup failed, fetching from provider")
		}
	}

	meta, err := r.fetch(ctx, ref, source)
	if err != nil {
		r.logger.Warn().Err(err).Str("platform", string(ref.Platform)).Str("id", ref.ID).Msg("metadata fetch failed")
		return nil, ""
	}

	meta.Recent = period.EligibleRange(r.now()).Contains(meta.UploadDate)
	r.save(ctx, *meta)
	return meta, metrics.OutcomeFetched
}

// save persists a fresh record. Failures are logged; the caller keeps the in-memory copy.
func (r *Resolver) save(ctx context.Context, meta model.VideoMetadata) {
	if r.store != nil {
		if err := r.store.PutMetadata(ctx, meta); err != nil {
			r.logger.Warn().Err(err).Str("ref", meta.Ref.String()).Msg("failed to save metadata")
		}
	}
	r.writeCache(ctx, meta)
}

func (r *Resolver) writeCache(ctx context.Context, meta model.VideoMetadata) {
	if err := r.cache.Put(ctx, meta); err != nil {
		r.logger.Debug().Err(err).Str("ref", meta.Ref.String()).Msg("cache write failed")
	}
}

func (r *Resolver) fetch(ctx context.Context, ref model.VideoRef, source string) (*model.VideoMetadata, error) {
	if ref.Platform == model.PlatformYouTube {
		return r.fetchYouTube(ctx, ref)
	}
	return r.fetchGeneric(ctx, ref, source)
}

func (r *Resolver) fetchYouTube(ctx context.Context, ref model.VideoRef) (*model.VideoMetadata, error) {
	if r.primary == nil {
		return nil, fmt.Errorf("no youtube provider configured")
	}

	start := time.Now()
	item, err := r.primary.FetchYouTube(ctx, ref.ID)
	r.metrics.ObserveProvider("youtube", time.Since(start))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, provider.ErrUnavailable
	}

	return &model.VideoMetadata{
		Ref:        ref,
		Title:      item.Snippet.Title,
		Uploader:   item.Snippet.ChannelTitle,
		UploaderID: item.Snippet.ChannelID,
		Thumbnail:  item.Snippet.ThumbnailURL(),
		UploadDate: item.Snippet.PublishedAt,
		Duration:   model.Seconds(ParseISO8601Duration(item.ContentDetails.Duration)),
	}, nil
}

func (r *Resolver) fetchGeneric(ctx context.Context, ref model.VideoRef, url string) (*model.VideoMetadata, error) {
	if r.generic == nil {
		return nil, fmt.Errorf("no generic provider configured")
	}
	if r.throttle != nil {
		if err := r.throttle.Wait(ctx, string(ref.Platform)); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if url == "" {
		url = link.URL(ref)
	}
	start := time.Now()
	item, err := r.generic.FetchGeneric(ctx, url)
	r.metrics.ObserveProvider("yt-dlp", time.Since(start))
	if err != nil {
		return nil, err
	}

	fixed := r.quirks.Apply(ref.Platform, *item, url)

	uploaded, err := time.Parse("20060102", fixed.UploadDate)
	if err != nil {
		return nil, fmt.Errorf("parse upload_date %q: %w", fixed.UploadDate, err)
	}

	meta := &model.VideoMetadata{
		Ref:        ref,
		Title:      fixed.Title,
		Uploader:   fixed.Uploader,
		UploaderID: fixed.UploaderID,
		Thumbnail:  fixed.Thumbnail,
		UploadDate: uploaded,
	}
	if fixed.Duration > 0 {
		meta.Duration = model.Seconds(int(math.Round(fixed.Duration)))
	}
	return meta, nil
}

// Invalidate drops a ref from the cache and the store so the next lookup refetches
func (r *Resolver) Invalidate(ctx context.Context, ref model.VideoRef) error {
	var errs []error
	if err := r.cache.Invalidate(ctx, ref); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if r.store != nil {
		if err := r.store.DeleteMetadata(ctx, ref); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// InvalidateCache drops a ref from the cache only, keeping the stored record
func (r *Resolver) InvalidateCache(ctx context.Context, ref model.VideoRef) error {
	return r.cache.Invalidate(ctx, ref)
}

func flagOf(catalog *labels.Catalog, key labels.Key) *model.Flag {
	if catalog == nil {
		catalog = labels.Defaults()
	}
	f := catalog.Get(key)
	return &f
}
