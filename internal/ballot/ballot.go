// Package ballot aggregates the per-entry flags of one voter's ballot and adds
// the ballot-level rules: duplicate votes, creator diversity, minimum votes.
package ballot

import (
	"errors"
	"fmt"

	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/model"
)

// MinVotes is both the minimum number of eligible entries and of distinct creators
const MinVotes = 5

// maxPerCreator is how many counted entries one creator may have before every
// further one is flagged regardless of diversity
const maxPerCreator = 2

// ErrTooManyEntries is returned for ballots longer than model.BallotSize
var ErrTooManyEntries = errors.New("too many ballot entries")

// Result is the aggregation of one ballot. Entries are copies; the caller's
// slice is never touched.
type Result struct {
	UniqueCreators int                 `json:"unique_creators"`
	Eligible       []model.BallotEntry `json:"eligible"`
	Entries        []model.BallotEntry `json:"entries"`
	Flags          []model.Flag        `json:"flags"`              // Ballot-level flags
	Headline       *model.Flag         `json:"headline,omitempty"` // nil when the ballot is fine
}

// Valid reports whether the ballot as a whole is acceptable
func (r Result) Valid() bool {
	return !model.HasIneligible(r.Flags)
}

// Aggregate runs the two ballot passes over copies of entries. Entries whose
// lookup is still pending or found nothing keep their flags and skip the
// duplicate and diversity checks.
func Aggregate(entries []model.BallotEntry, catalog *labels.Catalog) (Result, error) {
	if len(entries) > model.BallotSize {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrTooManyEntries, len(entries), model.BallotSize)
	}
	if catalog == nil {
		catalog = labels.Defaults()
	}
	cl := catalog.Client()

	copies := make([]model.BallotEntry, len(entries))
	for i, e := range entries {
		copies[i] = e.Clone()
	}

	// Pass 1: duplicates and the creator tally of counted entries
	seen := make(map[string]struct{}, len(copies))
	tally := make(map[string]int, len(copies))
	occurrence := make([]int, len(copies))
	for i := range copies {
		meta, ok := copies[i].Video.Metadata()
		if !ok {
			continue
		}

		key := meta.Ref.Key()
		if _, dup := seen[key]; dup {
			copies[i].Flags = append(copies[i].Flags, cl.DuplicateVotes)
		} else {
			seen[key] = struct{}{}
		}

		// An ineligible vote cannot satisfy diversity, so its creator is not counted
		if model.HasIneligible(copies[i].Flags) {
			continue
		}
		creator := meta.CreatorKey()
		tally[creator]++
		occurrence[i] = tally[creator]
	}

	// Pass 2: no simping, against the final distinct-creator count
	for i := range copies {
		k := occurrence[i]
		if k > maxPerCreator || (k == maxPerCreator && len(tally) < MinVotes) {
			copies[i].Flags = append(copies[i].Flags, cl.NoSimping)
		}
	}

	res := Result{
		UniqueCreators: len(tally),
		Entries:        copies,
	}
	for _, e := range copies {
		if e.Input != "" && !model.HasIneligible(e.Flags) {
			res.Eligible = append(res.Eligible, e)
		}
	}

	if len(res.Eligible) < MinVotes {
		res.Flags = append(res.Flags, cl.TooFewVotes)
	}
	if res.UniqueCreators < MinVotes {
		res.Flags = append(res.Flags, cl.DiversityRule)
	}
	res.Headline = headline(res.Flags)

	return res, nil
}

// headline picks the most severe ballot flag; the first one wins ties, which
// puts the minimum-vote flag ahead of the diversity flag
func headline(flags []model.Flag) *model.Flag {
	var best *model.Flag
	for i := range flags {
		if flags[i].Type.Severity() == 0 {
			continue
		}
		if best == nil || flags[i].Type.Severity() > best.Type.Severity() {
			f := flags[i]
			best = &f
		}
	}
	return best
}

// Counts summarizes a result the way the submission page reports it
type Counts struct {
	Total      int `json:"total"` // Non-empty inputs
	Eligible   int `json:"eligible"`
	Creators   int `json:"creators"`
	Ineligible int `json:"ineligible"`
	Maybe      int `json:"maybe"` // Entries whose worst flag is maybe-ineligible
}

// Summarize counts entries by their worst flag
func Summarize(r Result) Counts {
	c := Counts{Eligible: len(r.Eligible), Creators: r.UniqueCreators}
	for _, e := range r.Entries {
		if e.Input == "" {
			continue
		}
		c.Total++
		if h, ok := model.Headline(e.Flags); ok {
			switch h.Type {
			case model.FlagIneligible:
				c.Ineligible++
			case model.FlagMaybeIneligible:
				c.Maybe++
			}
		}
	}
	return c
}
