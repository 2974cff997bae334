// Package store persists video metadata, manual labels, label overrides and ballots.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// DefaultPoolSize is how many videos the pool listing returns when no limit is given
const DefaultPoolSize = 45

// VideoCount pairs stored metadata with the number of ballots naming it
type VideoCount struct {
	Metadata model.VideoMetadata
	Manual   *model.ManualLabel
	Votes    int
}

// Store is the record store behind the checker
type Store interface {
	// GetMetadata returns ErrNotFound when the ref was never saved
	GetMetadata(ctx context.Context, ref model.VideoRef) (*model.VideoMetadata, error)
	// PutMetadata saves a record once; a second write for the same ref is a no-op
	PutMetadata(ctx context.Context, meta model.VideoMetadata) error
	DeleteMetadata(ctx context.Context, ref model.VideoRef) error
	SetSource(ctx context.Context, ref model.VideoRef, source string) error
	SetWhitelisted(ctx context.Context, ref model.VideoRef, whitelisted bool) error

	// GetManualLabel returns nil without error when the video has no label
	GetManualLabel(ctx context.Context, ref model.VideoRef) (*model.ManualLabel, error)
	PutManualLabel(ctx context.Context, ref model.VideoRef, label model.ManualLabel) error
	DeleteManualLabel(ctx context.Context, ref model.VideoRef) error

	// GetLabelConfig returns persisted catalog overrides
	GetLabelConfig(ctx context.Context) ([]model.Flag, error)
	// PutLabelConfig upserts rows by trigger
	PutLabelConfig(ctx context.Context, rows []model.Flag) error

	// GetBallotItems returns a voter's items created at or after since, ordered by index
	GetBallotItems(ctx context.Context, userID string, since time.Time) ([]model.BallotItem, error)
	// PutBallotItem replaces whatever occupies (user, index)
	PutBallotItem(ctx context.Context, item model.BallotItem) error
	DeleteBallotItem(ctx context.Context, userID string, index int) error

	// TopVideos lists stored videos by ballot count, most voted first
	TopVideos(ctx context.Context, limit int) ([]VideoCount, error)
	// SearchTitles finds whitelisted videos uploaded at or after since whose
	// title contains query, case-insensitively
	SearchTitles(ctx context.Context, query string, since time.Time, limit int) ([]model.VideoMetadata, error)

	Close() error
}
