package resolve

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/provider"
)

// Quirk corrects a yt-dlp record for one platform before it is mapped.
// Quirks are pure: they receive a copy and return the corrected copy.
type Quirk func(item provider.GenericItem, link string) provider.GenericItem

// Quirks is the per-platform correction table; platforms without an entry pass through
type Quirks struct {
	byPlatform map[model.Platform]Quirk
}

// NewQuirks creates a table with the built-in corrections registered
func NewQuirks() *Quirks {
	q := &Quirks{byPlatform: make(map[model.Platform]Quirk)}

	q.Register(model.PlatformTwitter, twitterQuirk)
	q.Register(model.PlatformOdysee, odyseeQuirk)
	q.Register(model.PlatformTiktok, tiktokQuirk)
	q.Register(model.PlatformNewgrounds, newgroundsQuirk)

	return q
}

// Register sets or replaces the quirk for a platform
func (q *Quirks) Register(p model.Platform, fn Quirk) {
	q.byPlatform[p] = fn
}

// Apply runs the platform's quirk, if any
func (q *Quirks) Apply(p model.Platform, item provider.GenericItem, link string) provider.GenericItem {
	if fn, ok := q.byPlatform[p]; ok {
		return fn(item, link)
	}
	return item
}

var multiVideoRe = regexp.MustCompile(`/video/(\d+)/?$`)

// twitterQuirk: titles arrive as "<uploader> - <text>". In posts with several
// videos yt-dlp only reports a correct duration for the first one.
func twitterQuirk(item provider.GenericItem, link string) provider.GenericItem {
	title := strings.TrimPrefix(item.Title, item.Uploader+" - ")
	item.Title = `"` + title + `"`

	path := link
	if u, err := url.Parse(link); err == nil {
		path = u.Path
	}
	if m := multiVideoRe.FindStringSubmatch(path); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n != 1 {
			item.Duration = 0
		}
	}
	return item
}

func odyseeQuirk(item provider.GenericItem, link string) provider.GenericItem {
	item.Uploader = item.Channel
	return item
}

func tiktokQuirk(item provider.GenericItem, link string) provider.GenericItem {
	item.Uploader = item.Channel
	item.UploaderID = "@" + item.Channel
	return item
}

func newgroundsQuirk(item provider.GenericItem, link string) provider.GenericItem {
	item.UploaderID = item.Uploader
	return item
}
