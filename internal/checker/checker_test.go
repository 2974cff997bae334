package checker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/provider"
	"github.com/ponyvote/ballotcheck/internal/resolve"
	"github.com/ponyvote/ballotcheck/internal/store"
)

var now = time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC)

type video struct {
	channel   string
	published time.Time
	duration  string
}

// fakeYouTube serves a fixed catalog of videos; unknown ids are unavailable
type fakeYouTube map[string]video

func (f fakeYouTube) FetchYouTube(ctx context.Context, id string) (*provider.YouTubeItem, error) {
	v, ok := f[id]
	if !ok {
		return nil, nil
	}
	return &provider.YouTubeItem{
		ID: id,
		Snippet: provider.Snippet{
			Title:        "Video " + id,
			ChannelTitle: v.channel,
			ChannelID:    "UC" + v.channel,
			PublishedAt:  v.published,
		},
		ContentDetails: provider.ContentDetails{Duration: v.duration},
	}, nil
}

func ytid(n int) string {
	return fmt.Sprintf("vid%08d", n)
}

func ytlink(n int) string {
	return "https://youtu.be/" + ytid(n)
}

func feb(day int) time.Time {
	return time.Date(2024, time.February, day, 18, 0, 0, 0, time.UTC)
}

func newTestChecker(t *testing.T, videos fakeYouTube) (*Checker, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	r := resolve.New(st, resolve.Options{
		Primary: videos,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return now },
	})
	c := New(st, Options{
		Resolver: r,
		Labels:   labels.NewSource(st, zerolog.Nop()),
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return now },
	})
	return c, st
}

func TestResolveAndEvaluate(t *testing.T) {
	c, _ := newTestChecker(t, fakeYouTube{
		ytid(1): {channel: "A", published: feb(14), duration: "PT3M33S"},
		ytid(2): {channel: "B", published: feb(14), duration: "PT20S"},
	})
	ctx := context.Background()
	d := labels.Defaults()

	tests := []struct {
		name     string
		input    string
		metadata bool
		flags    []string
	}{
		{"clean", ytlink(1), true, nil},
		{"too short", ytlink(2), true, []string{d.Get(labels.TooShort).Trigger}},
		{"unavailable", ytlink(3), false, []string{d.Get(labels.Unavailable).Trigger}},
		{"not a link", "my favourite video", false, []string{d.Get(labels.InvalidLink).Trigger}},
		{"unsupported", "https://example.com/watch/1", false, []string{d.Get(labels.UnsupportedSite).Trigger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := c.ResolveAndEvaluate(ctx, tt.input, false)
			if (ev.Metadata != nil) != tt.metadata {
				t.Errorf("metadata present = %v, expected %v", ev.Metadata != nil, tt.metadata)
			}
			if len(ev.Flags) != len(tt.flags) {
				t.Fatalf("flags = %+v, expected %v", ev.Flags, tt.flags)
			}
			for i, f := range ev.Flags {
				if f.Trigger != tt.flags[i] {
					t.Errorf("flag %d = %q, expected %q", i, f.Trigger, tt.flags[i])
				}
			}
		})
	}
}

func TestEvaluateBallot(t *testing.T) {
	videos := fakeYouTube{}
	for i := 0; i < 6; i++ {
		videos[ytid(i)] = video{channel: fmt.Sprintf("creator%d", i), published: feb(10 + i), duration: "PT2M"}
	}
	c, _ := newTestChecker(t, videos)

	inputs := []string{ytlink(0), ytlink(1), "", ytlink(2), ytlink(3), ytlink(4), ytlink(0), "  "}
	res, err := c.EvaluateBallot(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Entries) != len(inputs) {
		t.Fatalf("entries = %d, expected %d", len(res.Entries), len(inputs))
	}
	if res.UniqueCreators != 5 || len(res.Eligible) != 5 {
		t.Errorf("creators = %d, eligible = %d", res.UniqueCreators, len(res.Eligible))
	}
	dup := labels.Defaults().Get(labels.DuplicateVotes)
	if last := res.Entries[6].Flags; len(last) != 1 || last[0].Trigger != dup.Trigger {
		t.Errorf("repeated link should carry duplicate_votes, got %+v", last)
	}
	if res.Entries[2].Video.State() != model.VideoAbsent {
		t.Error("blank input should be an empty slot")
	}
	if !res.Valid() {
		t.Errorf("ballot should be valid, got %+v", res.Flags)
	}

	if _, err := c.EvaluateBallot(context.Background(), make([]string, model.BallotSize+1)); err == nil {
		t.Error("expected error for oversized ballot")
	}
}

func TestValidateEntryAndLoadBallot(t *testing.T) {
	c, st := newTestChecker(t, fakeYouTube{
		ytid(1): {channel: "A", published: feb(14), duration: "PT2M"},
		ytid(2): {channel: "B", published: feb(15), duration: "PT2M"},
	})
	ctx := context.Background()

	if _, err := c.ValidateEntry(ctx, "voter", model.BallotSize, ytlink(1)); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}

	if _, err := c.ValidateEntry(ctx, "voter", 0, ytlink(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ValidateEntry(ctx, "voter", 4, ytlink(2)); err != nil {
		t.Fatal(err)
	}
	ev, err := c.ValidateEntry(ctx, "voter", 5, "nonsense")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Metadata != nil || ev.Eligible() {
		t.Errorf("nonsense input should be flagged, got %+v", ev)
	}

	items, _ := st.GetBallotItems(ctx, "voter", time.Time{})
	if len(items) != 2 {
		t.Fatalf("expected 2 saved items, got %+v", items)
	}

	saved, err := c.LoadBallot(ctx, "voter")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Result.Entries) != model.BallotSize {
		t.Fatalf("expected a full ballot, got %d slots", len(saved.Result.Entries))
	}
	if _, ok := saved.Result.Entries[4].Video.Metadata(); !ok {
		t.Error("slot 4 should hold the saved video")
	}
	if len(saved.Result.Eligible) != 2 || saved.Result.Valid() {
		t.Errorf("two votes should be too few, got %+v", saved.Result.Flags)
	}

	// Replacing a slot with something invalid clears it
	if _, err := c.ValidateEntry(ctx, "voter", 4, "https://youtu.be/"); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveEntry(ctx, "voter", 0); err != nil {
		t.Fatal(err)
	}
	items, _ = st.GetBallotItems(ctx, "voter", time.Time{})
	if len(items) != 0 {
		t.Errorf("expected empty ballot, got %+v", items)
	}
}

func TestLoadBallot_IgnoresPreviousPeriod(t *testing.T) {
	c, st := newTestChecker(t, fakeYouTube{ytid(1): {channel: "A", published: feb(14), duration: "PT2M"}})
	ctx := context.Background()

	ref := model.VideoRef{Platform: model.PlatformYouTube, ID: ytid(1)}
	_ = st.PutBallotItem(ctx, model.BallotItem{UserID: "voter", Index: 0, Ref: ref, CreatedAt: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)})

	saved, err := c.LoadBallot(ctx, "voter")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Items) != 0 {
		t.Errorf("january ballot must not load in march, got %+v", saved.Items)
	}
}

func TestAnnotate(t *testing.T) {
	c, st := newTestChecker(t, fakeYouTube{ytid(1): {channel: "A", published: feb(14), duration: "PT20S"}})
	ctx := context.Background()
	manual := model.TriggerManual

	ref, err := c.Annotate(ctx, ytlink(1), StatusEligible, "Credits excluded, checked", true)
	if err != nil {
		t.Fatal(err)
	}

	ev := c.ResolveAndEvaluate(ctx, ytlink(1), false)
	if len(ev.Flags) != 1 || ev.Flags[0].Trigger != manual || !ev.Eligible() {
		t.Errorf("manual label should replace automatic flags, got %+v", ev.Flags)
	}
	ev = c.ResolveAndEvaluate(ctx, ytlink(1), true)
	if len(ev.Flags) != 2 || ev.Flags[1].Trigger != manual {
		t.Errorf("include-all should append the manual flag, got %+v", ev.Flags)
	}
	meta, _ := st.GetMetadata(ctx, ref)
	if !meta.Whitelisted {
		t.Error("whitelist flag not written")
	}

	if _, err := c.Annotate(ctx, ytlink(1), StatusReupload, "https://vimeo.com/42", false); err != nil {
		t.Fatal(err)
	}
	ev = c.ResolveAndEvaluate(ctx, ytlink(1), false)
	if ev.Metadata.Source != "https://vimeo.com/42" || ev.Metadata.Whitelisted {
		t.Errorf("annotation not visible after cache invalidation: %+v", ev.Metadata)
	}

	if _, err := c.Annotate(ctx, ytlink(1), StatusDefault, "", false); err != nil {
		t.Fatal(err)
	}
	if label, _ := st.GetManualLabel(ctx, ref); label != nil {
		t.Errorf("default status should remove the label, got %+v", label)
	}

	if _, err := c.Annotate(ctx, ytlink(9), StatusEligible, "", false); !errors.Is(err, ErrUnknownVideo) {
		t.Errorf("expected ErrUnknownVideo, got %v", err)
	}
	if _, err := c.Annotate(ctx, ytlink(1), Status("approved"), "", false); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateLabels(t *testing.T) {
	c, _ := newTestChecker(t, fakeYouTube{ytid(1): {channel: "A", published: feb(14), duration: "PT20S"}})
	ctx := context.Background()

	_, err := c.UpdateLabels(ctx, []model.Flag{
		{Name: "4a", Type: model.FlagMaybeIneligible, Trigger: "<30 second video", Details: "Check the credits"},
	})
	if err != nil {
		t.Fatal(err)
	}

	ev := c.ResolveAndEvaluate(ctx, ytlink(1), false)
	if len(ev.Flags) != 1 || ev.Flags[0].Type != model.FlagMaybeIneligible || ev.Flags[0].Details != "Check the credits" {
		t.Errorf("override not applied: %+v", ev.Flags)
	}

	if _, err := c.UpdateLabels(ctx, []model.Flag{{Trigger: model.TriggerManual, Type: model.FlagDisabled}}); err == nil {
		t.Error("the manual trigger must be rejected")
	}
}

func TestPoolAndSearch(t *testing.T) {
	c, _ := newTestChecker(t, fakeYouTube{
		ytid(1): {channel: "A", published: feb(14), duration: "PT2M"},
		ytid(2): {channel: "B", published: feb(15), duration: "PT2M"},
	})
	ctx := context.Background()

	for _, voter := range []string{"u1", "u2"} {
		if _, err := c.ValidateEntry(ctx, voter, 0, ytlink(2)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.ValidateEntry(ctx, "u3", 0, ytlink(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Annotate(ctx, ytlink(1), StatusIneligible, "Reupload of a 2019 video", true); err != nil {
		t.Fatal(err)
	}

	pool, err := c.Pool(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 2 || pool[0].Video.ID != ytid(2) || pool[0].Votes != 2 {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if pool[0].Video.Link == "" {
		t.Errorf("pool entry missing link: %+v", pool[0].Video)
	}
	last := pool[1].Flags
	if len(last) != 1 || last[0].Trigger != model.TriggerManual {
		t.Errorf("pool flags should include the manual label, got %+v", last)
	}

	found, err := c.Search(ctx, "video "+ytid(1)[:5])
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != ytid(1) {
		t.Errorf("only the whitelisted video should match, got %+v", found)
	}
	if _, err := c.Search(ctx, ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestCurrentEligibleRange(t *testing.T) {
	c, _ := newTestChecker(t, nil)
	rng := c.CurrentEligibleRange()
	if !rng.Earliest.Equal(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)) ||
		!rng.Latest.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected range %+v", rng)
	}
}
