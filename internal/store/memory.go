package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ponyvote/ballotcheck/internal/model"
)

type ballotKey struct {
	userID string
	index  int
}

var _ Store = (*Memory)(nil)

// Memory is an in-process Store for the CLI and tests
type Memory struct {
	mu      sync.RWMutex
	videos  map[model.VideoRef]model.VideoMetadata
	manual  map[model.VideoRef]model.ManualLabel
	labels  map[string]model.Flag
	ballots map[ballotKey]model.BallotItem
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		videos:  make(map[model.VideoRef]model.VideoMetadata),
		manual:  make(map[model.VideoRef]model.ManualLabel),
		labels:  make(map[string]model.Flag),
		ballots: make(map[ballotKey]model.BallotItem),
	}
}

func (m *Memory) GetMetadata(ctx context.Context, ref model.VideoRef) (*model.VideoMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, ok := m.videos[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return &meta, nil
}

func (m *Memory) PutMetadata(ctx context.Context, meta model.VideoMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.videos[meta.Ref]; !exists {
		m.videos[meta.Ref] = meta
	}
	return nil
}

func (m *Memory) DeleteMetadata(ctx context.Context, ref model.VideoRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.videos, ref)
	return nil
}

func (m *Memory) SetSource(ctx context.Context, ref model.VideoRef, source string) error {
	return m.update(ref, func(v *model.VideoMetadata) { v.Source = source })
}

func (m *Memory) SetWhitelisted(ctx context.Context, ref model.VideoRef, whitelisted bool) error {
	return m.update(ref, func(v *model.VideoMetadata) { v.Whitelisted = whitelisted })
}

func (m *Memory) update(ref model.VideoRef, fn func(*model.VideoMetadata)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.videos[ref]
	if !ok {
		return fmt.Errorf("video %s: %w", ref, ErrNotFound)
	}
	fn(&meta)
	m.videos[ref] = meta
	return nil
}

func (m *Memory) GetManualLabel(ctx context.Context, ref model.VideoRef) (*model.ManualLabel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	label, ok := m.manual[ref]
	if !ok {
		return nil, nil
	}
	return &label, nil
}

func (m *Memory) PutManualLabel(ctx context.Context, ref model.VideoRef, label model.ManualLabel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.manual[ref] = label
	return nil
}

func (m *Memory) DeleteManualLabel(ctx context.Context, ref model.VideoRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.manual, ref)
	return nil
}

func (m *Memory) GetLabelConfig(ctx context.Context) ([]model.Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]model.Flag, 0, len(m.labels))
	for _, f := range m.labels {
		rows = append(rows, f)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Trigger < rows[j].Trigger })
	return rows, nil
}

func (m *Memory) PutLabelConfig(ctx context.Context, rows []model.Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range rows {
		m.labels[row.Trigger] = row
	}
	return nil
}

func (m *Memory) GetBallotItems(ctx context.Context, userID string, since time.Time) ([]model.BallotItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []model.BallotItem
	for k, item := range m.ballots {
		if k.userID == userID && !item.CreatedAt.Before(since) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	return items, nil
}

func (m *Memory) PutBallotItem(ctx context.Context, item model.BallotItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ballots[ballotKey{item.UserID, item.Index}] = item
	return nil
}

func (m *Memory) DeleteBallotItem(ctx context.Context, userID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.ballots, ballotKey{userID, index})
	return nil
}

func (m *Memory) TopVideos(ctx context.Context, limit int) ([]VideoCount, error) {
	if limit <= 0 {
		limit = DefaultPoolSize
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	votes := make(map[model.VideoRef]int)
	for _, item := range m.ballots {
		votes[item.Ref]++
	}

	out := make([]VideoCount, 0, len(m.videos))
	for ref, meta := range m.videos {
		vc := VideoCount{Metadata: meta, Votes: votes[ref]}
		if label, ok := m.manual[ref]; ok {
			vc.Manual = &label
		}
		out = append(out, vc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].Metadata.Ref.Key() < out[j].Metadata.Ref.Key()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SearchTitles(ctx context.Context, query string, since time.Time, limit int) ([]model.VideoMetadata, error) {
	q := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.VideoMetadata
	for _, meta := range m.videos {
		if !meta.Whitelisted || meta.UploadDate.Before(since) {
			continue
		}
		if strings.Contains(strings.ToLower(meta.Title), q) {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].UploadDate.After(out[j].UploadDate)
		}
		return out[i].Ref.Key() < out[j].Ref.Key()
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
