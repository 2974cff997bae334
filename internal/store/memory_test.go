package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ponyvote/ballotcheck/internal/model"
)

func video(id, title string, uploaded time.Time) model.VideoMetadata {
	return model.VideoMetadata{
		Ref:        model.VideoRef{Platform: model.PlatformYouTube, ID: id},
		Title:      title,
		Uploader:   "Creator " + id,
		UploadDate: uploaded,
		Duration:   model.Seconds(120),
	}
}

func TestMemory_MetadataWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	ref := model.VideoRef{Platform: model.PlatformYouTube, ID: "aaaaaaaaaaa"}

	if _, err := s.GetMetadata(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := video("aaaaaaaaaaa", "First", time.Now())
	second := video("aaaaaaaaaaa", "Second", time.Now())
	if err := s.PutMetadata(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.PutMetadata(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMetadata(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "First" {
		t.Errorf("second write should be ignored, got title %q", got.Title)
	}

	if err := s.DeleteMetadata(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMetadata(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemory_UpdatesRequireVideo(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	ref := model.VideoRef{Platform: model.PlatformVimeo, ID: "1"}

	if err := s.SetSource(ctx, ref, "https://vimeo.com/2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	meta := video("1", "t", time.Now())
	meta.Ref = ref
	_ = s.PutMetadata(ctx, meta)

	if err := s.SetSource(ctx, ref, "https://vimeo.com/2"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetWhitelisted(ctx, ref, true); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetMetadata(ctx, ref)
	if got.Source != "https://vimeo.com/2" || !got.Whitelisted {
		t.Errorf("updates not applied: %+v", got)
	}
}

func TestMemory_ManualLabels(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	ref := model.VideoRef{Platform: model.PlatformYouTube, ID: "aaaaaaaaaaa"}

	label, err := s.GetManualLabel(ctx, ref)
	if err != nil || label != nil {
		t.Fatalf("expected no label, got %+v, %v", label, err)
	}

	_ = s.PutManualLabel(ctx, ref, model.ManualLabel{Kind: model.LabelIneligible, Content: "Reupload of older video"})
	_ = s.PutManualLabel(ctx, ref, model.ManualLabel{Kind: model.LabelEligible, Content: "Checked"})

	label, _ = s.GetManualLabel(ctx, ref)
	if label == nil || label.Kind != model.LabelEligible {
		t.Errorf("expected upserted label, got %+v", label)
	}

	_ = s.DeleteManualLabel(ctx, ref)
	if label, _ = s.GetManualLabel(ctx, ref); label != nil {
		t.Errorf("expected label removed, got %+v", label)
	}
}

func TestMemory_LabelConfigMergesByTrigger(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_ = s.PutLabelConfig(ctx, []model.Flag{
		{Name: "4a", Type: model.FlagIneligible, Trigger: "<30 second video"},
		{Name: "5d", Type: model.FlagIneligible, Trigger: "Littleshy video"},
	})
	_ = s.PutLabelConfig(ctx, []model.Flag{
		{Name: "4a", Type: model.FlagDisabled, Trigger: "<30 second video"},
	})

	rows, _ := s.GetLabelConfig(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Trigger == "<30 second video" && r.Type != model.FlagDisabled {
			t.Errorf("expected merged row, got %+v", r)
		}
	}
}

func TestMemory_BallotItems(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	cutoff := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	refA := model.VideoRef{Platform: model.PlatformYouTube, ID: "aaaaaaaaaaa"}
	refB := model.VideoRef{Platform: model.PlatformYouTube, ID: "bbbbbbbbbbb"}

	_ = s.PutBallotItem(ctx, model.BallotItem{UserID: "u1", Index: 3, Ref: refA, CreatedAt: cutoff.Add(time.Hour)})
	_ = s.PutBallotItem(ctx, model.BallotItem{UserID: "u1", Index: 0, Ref: refA, CreatedAt: cutoff})
	_ = s.PutBallotItem(ctx, model.BallotItem{UserID: "u1", Index: 1, Ref: refB, CreatedAt: cutoff.Add(-time.Hour)})
	_ = s.PutBallotItem(ctx, model.BallotItem{UserID: "u2", Index: 0, Ref: refB, CreatedAt: cutoff})

	items, _ := s.GetBallotItems(ctx, "u1", cutoff)
	if len(items) != 2 || items[0].Index != 0 || items[1].Index != 3 {
		t.Fatalf("unexpected items %+v", items)
	}

	// Same slot replaces
	_ = s.PutBallotItem(ctx, model.BallotItem{UserID: "u1", Index: 0, Ref: refB, CreatedAt: cutoff})
	items, _ = s.GetBallotItems(ctx, "u1", cutoff)
	if items[0].Ref != refB {
		t.Errorf("expected slot 0 replaced, got %+v", items[0])
	}

	_ = s.DeleteBallotItem(ctx, "u1", 3)
	items, _ = s.GetBallotItems(ctx, "u1", cutoff)
	if len(items) != 1 {
		t.Errorf("expected 1 item after delete, got %d", len(items))
	}
}

func TestMemory_TopVideos(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	now := time.Now()

	a := video("aaaaaaaaaaa", "A", now)
	b := video("bbbbbbbbbbb", "B", now)
	c := video("ccccccccccc", "C", now)
	for _, v := range []model.VideoMetadata{a, b, c} {
		_ = s.PutMetadata(ctx, v)
	}
	_ = s.PutManualLabel(ctx, b.Ref, model.ManualLabel{Kind: model.LabelIneligible, Content: "no"})

	for i, user := range []string{"u1", "u2", "u3"} {
		_ = s.PutBallotItem(ctx, model.BallotItem{UserID: user, Index: 0, Ref: b.Ref, CreatedAt: now})
		if i < 2 {
			_ = s.PutBallotItem(ctx, model.BallotItem{UserID: user, Index: 1, Ref: a.Ref, CreatedAt: now})
		}
	}

	top, _ := s.TopVideos(ctx, 2)
	if len(top) != 2 {
		t.Fatalf("expected limit 2, got %d", len(top))
	}
	if top[0].Metadata.Ref != b.Ref || top[0].Votes != 3 {
		t.Errorf("expected B first with 3 votes, got %+v", top[0])
	}
	if top[0].Manual == nil || top[0].Manual.Kind != model.LabelIneligible {
		t.Errorf("expected manual label joined, got %+v", top[0].Manual)
	}
	if top[1].Metadata.Ref != a.Ref || top[1].Votes != 2 {
		t.Errorf("expected A second with 2 votes, got %+v", top[1])
	}
}

func TestMemory_SearchTitles(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	since := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	listed := video("aaaaaaaaaaa", "Pony Music Video", since.AddDate(0, 0, 5))
	listed.Whitelisted = true
	hidden := video("bbbbbbbbbbb", "Another pony video", since.AddDate(0, 0, 5))
	old := video("ccccccccccc", "Old pony video", since.AddDate(0, 0, -5))
	old.Whitelisted = true
	for _, v := range []model.VideoMetadata{listed, hidden, old} {
		_ = s.PutMetadata(ctx, v)
	}

	got, _ := s.SearchTitles(ctx, "PONY", since, 0)
	if len(got) != 1 || got[0].Ref != listed.Ref {
		t.Errorf("expected only the whitelisted recent video, got %+v", got)
	}
}

// checkSearchIsLiteral asserts that % and _ in a query match only themselves.
// prefix keeps titles unique when the store is shared between runs.
func checkSearchIsLiteral(t *testing.T, s Store, prefix string) {
	t.Helper()
	ctx := context.Background()
	since := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	videos := []model.VideoMetadata{
		video(prefix+"pct", prefix+" 100% Pony", since.AddDate(0, 0, 1)),
		video(prefix+"num", prefix+" 1000 Pony", since.AddDate(0, 0, 2)),
		video(prefix+"und", prefix+" my_pony", since.AddDate(0, 0, 3)),
		video(prefix+"spc", prefix+" my pony", since.AddDate(0, 0, 4)),
	}
	for _, v := range videos {
		v.Whitelisted = true
		if err := s.PutMetadata(ctx, v); err != nil {
			t.Fatalf("PutMetadata: %v", err)
		}
		ref := v.Ref
		t.Cleanup(func() { _ = s.DeleteMetadata(context.Background(), ref) })
	}

	tests := []struct {
		query string
		want  []string
	}{
		{prefix + " 100%", []string{prefix + "pct"}},
		{prefix + " my_", []string{prefix + "und"}},
		{prefix + " MY", []string{prefix + "spc", prefix + "und"}},
		{prefix + " %", nil},
	}
	for _, tt := range tests {
		got, err := s.SearchTitles(ctx, tt.query, since, 0)
		if err != nil {
			t.Fatalf("SearchTitles(%q): %v", tt.query, err)
		}
		var ids []string
		for _, v := range got {
			ids = append(ids, v.Ref.ID)
		}
		if len(ids) != len(tt.want) {
			t.Errorf("SearchTitles(%q) = %v, want %v", tt.query, ids, tt.want)
			continue
		}
		for i := range ids {
			if ids[i] != tt.want[i] {
				t.Errorf("SearchTitles(%q) = %v, want %v", tt.query, ids, tt.want)
				break
			}
		}
	}
}

func TestMemory_SearchTitlesIsLiteral(t *testing.T) {
	checkSearchIsLiteral(t, NewMemory(), "t")
}
