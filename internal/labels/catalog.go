package labels

import (
	"sort"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// Key names one of the fixed eligibility labels
type Key string

const (
	InvalidLink     Key = "invalid_link"
	DuplicateVotes  Key = "duplicate_votes"
	MissingID       Key = "missing_id"
	Unavailable     Key = "unavailable"
	TooFewVotes     Key = "too_few_votes"
	WrongPeriod     Key = "wrong_period"
	EdgeDate        Key = "edge_date"
	TooShort        Key = "too_short"
	MaybeTooShort   Key = "maybe_too_short"
	DiversityRule   Key = "diversity_rule"
	NoSimping       Key = "no_simping"
	UnsupportedSite Key = "unsupported_site"
	LittleshyVid    Key = "littleshy_vid"
)

// Keys lists every label key in catalog order
var Keys = []Key{
	InvalidLink, DuplicateVotes, MissingID, Unavailable, TooFewVotes, WrongPeriod, EdgeDate,
	TooShort, MaybeTooShort, DiversityRule, NoSimping, UnsupportedSite, LittleshyVid,
}

var defaults = map[Key]model.Flag{
	InvalidLink:     {Name: "Invalid link", Type: model.FlagIneligible, Trigger: "Non url entry", Details: "Not a valid link"},
	DuplicateVotes:  {Name: "Duplicate vote", Type: model.FlagIneligible, Trigger: "Duplicate links in ballot", Details: "Duplicate votes are not eligible"},
	MissingID:       {Name: "Missing id", Type: model.FlagIneligible, Trigger: "No video id in link", Details: "No video id present"},
	Unavailable:     {Name: "Unavailable video", Type: model.FlagIneligible, Trigger: "Empty metadata response", Details: "Video is not public or is unavailable"},
	TooFewVotes:     {Name: "1a", Type: model.FlagIneligible, Trigger: "<5 eligible videos", Details: "Vote for a minimum of 5 eligible videos and maximum of 10"},
	WrongPeriod:     {Name: "2a", Type: model.FlagIneligible, Trigger: "Video too old or new", Details: "Vote for last month's videos based on your own time zone"},
	EdgeDate:        {Name: "2a", Type: model.FlagMaybeIneligible, Trigger: "Video may be too old or new", Details: "Vote for last month's videos based on your own time zone"},
	TooShort:        {Name: "4a", Type: model.FlagIneligible, Trigger: "<30 second video", Details: "Short length: Videos must be 30 seconds or longer not including intros/outros/credits/etc"},
	MaybeTooShort:   {Name: "4a", Type: model.FlagMaybeIneligible, Trigger: "<=45 second video", Details: "Short length: Videos must be 30 seconds or longer not including intros/outros/credits/etc"},
	DiversityRule:   {Name: "5a", Type: model.FlagIneligible, Trigger: "<5 creators from eligible", Details: "You must have at least five eligible votes from five different creators"},
	NoSimping:       {Name: "5b", Type: model.FlagMaybeIneligible, Trigger: ">2/creator or 2 & <5 unique", Details: "You can include up to two videos from a creator if the videos are unique and you're including votes for at least five creators total. Don't vote for multiple parts in a series or very similar videos from the same creator"},
	UnsupportedSite: {Name: "1c", Type: model.FlagIneligible, Trigger: "Unsupported platform link", Details: "Currently allowed platforms: Bilibili, Bluesky, Dailymotion, Instagram, Newgrounds, Odysee, Pony.Tube, ThisHorsie.Rocks, Tiktok, Twitter/X, Vimeo, and YouTube. This list is likely to change over time"},
	LittleshyVid:    {Name: "5d", Type: model.FlagIneligible, Trigger: "Littleshy video", Details: "Don't vote for videos from the current host's channel, LittleshyFiM"},
}

// Catalog is an immutable snapshot of the label table
type Catalog struct {
	flags map[Key]model.Flag
}

// Defaults returns the compiled-in catalog
func Defaults() *Catalog {
	flags := make(map[Key]model.Flag, len(defaults))
	for k, f := range defaults {
		flags[k] = f
	}
	return &Catalog{flags: flags}
}

// Get returns the flag for a key. Unknown keys yield a zero Flag.
func (c *Catalog) Get(key Key) model.Flag {
	return c.flags[key]
}

// KeyForTrigger finds the key whose default trigger matches
func KeyForTrigger(trigger string) (Key, bool) {
	for k, f := range defaults {
		if f.Trigger == trigger {
			return k, true
		}
	}
	return "", false
}

// Override returns a new catalog with rows applied by trigger. Rows whose
// trigger is unknown, reserved for manual labels, or whose type is invalid
// are skipped and reported back.
func (c *Catalog) Override(rows []model.Flag) (*Catalog, []model.Flag) {
	next := make(map[Key]model.Flag, len(c.flags))
	for k, f := range c.flags {
		next[k] = f
	}

	var skipped []model.Flag
	for _, row := range rows {
		key, ok := KeyForTrigger(row.Trigger)
		if !ok || row.Trigger == model.TriggerManual || !row.Type.Valid() {
			skipped = append(skipped, row)
			continue
		}
		next[key] = model.Flag{
			Name:    row.Name,
			Type:    row.Type,
			Details: row.Details,
			Trigger: defaults[key].Trigger,
		}
	}

	return &Catalog{flags: next}, skipped
}

// Entries returns the catalog as rows in catalog order, suitable for persisting
func (c *Catalog) Entries() []model.Flag {
	rows := make([]model.Flag, 0, len(Keys))
	for _, k := range Keys {
		rows = append(rows, c.flags[k])
	}
	return rows
}

// Map returns a copy of the catalog keyed by label key
func (c *Catalog) Map() map[Key]model.Flag {
	out := make(map[Key]model.Flag, len(c.flags))
	for k, f := range c.flags {
		out[k] = f
	}
	return out
}

// Client is the subset of labels the ballot aggregation needs
type Client struct {
	InvalidLink     model.Flag `json:"invalid_link"`
	DuplicateVotes  model.Flag `json:"duplicate_votes"`
	NoSimping       model.Flag `json:"no_simping"`
	UnsupportedSite model.Flag `json:"unsupported_site"`
	DiversityRule   model.Flag `json:"diversity_rule"`
	TooFewVotes     model.Flag `json:"too_few_votes"`
}

// Client extracts the ballot-side subset
func (c *Catalog) Client() Client {
	return Client{
		InvalidLink:     c.flags[InvalidLink],
		DuplicateVotes:  c.flags[DuplicateVotes],
		NoSimping:       c.flags[NoSimping],
		UnsupportedSite: c.flags[UnsupportedSite],
		DiversityRule:   c.flags[DiversityRule],
		TooFewVotes:     c.flags[TooFewVotes],
	}
}

// Triggers returns the sorted list of known triggers
func Triggers() []string {
	out := make([]string, 0, len(defaults))
	for _, f := range defaults {
		out = append(out, f.Trigger)
	}
	sort.Strings(out)
	return out
}
