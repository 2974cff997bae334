package labels

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// ConfigStore persists label overrides
type ConfigStore interface {
	GetLabelConfig(ctx context.Context) ([]model.Flag, error)
	PutLabelConfig(ctx context.Context, rows []model.Flag) error
}

// Source serves the current catalog snapshot and swaps it on reload.
// Readers never block; between an edit and the next reload they see the old snapshot.
type Source struct {
	store   ConfigStore
	current atomic.Pointer[Catalog]
	logger  zerolog.Logger

	// OnReload, when set, is called after every successful swap
	OnReload func(*Catalog)
}

// NewSource creates a source seeded with the compiled-in defaults
func NewSource(store ConfigStore, logger zerolog.Logger) *Source {
	s := &Source{store: store, logger: logger}
	s.current.Store(Defaults())
	return s
}

// Current returns the active snapshot
func (s *Source) Current() *Catalog {
	return s.current.Load()
}

// Reload builds a fresh snapshot from the defaults plus persisted overrides
func (s *Source) Reload(ctx context.Context) (*Catalog, error) {
	if s.store == nil {
		return s.Current(), nil
	}

	rows, err := s.store.GetLabelConfig(ctx)
	if err != nil {
		return s.Current(), fmt.Errorf("load label config: %w", err)
	}

	next, skipped := Defaults().Override(rows)
	for _, row := range skipped {
		s.logger.Warn().Str("trigger", row.Trigger).Str("type", string(row.Type)).Msg("ignoring label override")
	}

	s.current.Store(next)
	s.logger.Info().Int("overrides", len(rows)-len(skipped)).Msg("label catalog reloaded")
	if s.OnReload != nil {
		s.OnReload(next)
	}
	return next, nil
}

// Update persists new override rows and reloads
func (s *Source) Update(ctx context.Context, rows []model.Flag) (*Catalog, error) {
	if s.store == nil {
		return s.Current(), fmt.Errorf("update labels: no config store")
	}
	for _, row := range rows {
		if row.Trigger == model.TriggerManual {
			return s.Current(), fmt.Errorf("update labels: trigger %q is reserved", model.TriggerManual)
		}
	}
	if err := s.store.PutLabelConfig(ctx, rows); err != nil {
		return s.Current(), fmt.Errorf("save label config: %w", err)
	}
	return s.Reload(ctx)
}
