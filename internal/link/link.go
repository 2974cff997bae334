// Package link turns loosely formatted video links into canonical refs and back.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"

	"github.com/ponyvote/ballotcheck/internal/model"
)

var (
	// ErrNotALink means the input does not resemble a URL at all
	ErrNotALink = errors.New("not a link")
	// ErrUnsupportedPlatform means the input is a link to a host outside the allow-list
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrMissingID means the host is supported but no video id could be extracted
	ErrMissingID = errors.New("missing video id")
)

const youtubeIDLength = 11

var (
	schemeRe    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	youtubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// genericDomains are the registrable domains handled by the generic extractor.
// Display names derive from the first label.
var genericDomains = []string{
	"bilibili.com",
	"bsky.app",
	"dailymotion.com",
	"dai.ly",
	"instagram.com",
	"newgrounds.com",
	"odysee.com",
	"pony.tube",
	"thishorsie.rocks",
	"tiktok.com",
	"twitter.com",
	"vimeo.com",
	"x.com",
}

var renames = map[string]model.Platform{
	"X":          model.PlatformTwitter,
	"Bsky":       model.PlatformBluesky,
	"Pony":       model.PlatformPonyTube,
	"Thishorsie": model.PlatformThisHorsieRocks,
	"Dai":        model.PlatformDailymotion,
}

var domainMap = buildDomainMap()

func buildDomainMap() map[string]model.Platform {
	m := map[string]model.Platform{
		"youtube.com": model.PlatformYouTube,
		"youtu.be":    model.PlatformYouTube,
	}
	for _, d := range genericDomains {
		m[d] = platformName(d)
	}
	return m
}

// platformName derives the display name from the first domain label
func platformName(domain string) model.Platform {
	label, _, _ := strings.Cut(domain, ".")
	name := strings.ToUpper(label[:1]) + label[1:]
	if renamed, ok := renames[name]; ok {
		return renamed
	}
	return model.Platform(name)
}

// PlatformForHost returns the platform serving a hostname, if any
func PlatformForHost(host string) (model.Platform, bool) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	p, ok := domainMap[domain]
	return p, ok
}

// Resolve parses raw into a canonical ref. On ErrMissingID the returned ref
// carries the platform but no id.
func Resolve(raw string) (model.VideoRef, error) {
	s := Normalize(raw)
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return model.VideoRef{}, ErrNotALink
	}

	u, err := url.Parse(s)
	if err != nil {
		return model.VideoRef{}, fmt.Errorf("%w: %v", ErrNotALink, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if !looksLikeHost(host) {
		return model.VideoRef{}, ErrNotALink
	}

	platform, ok := PlatformForHost(host)
	if !ok {
		return model.VideoRef{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
	}

	var id string
	if platform == model.PlatformYouTube {
		id = youtubeID(u)
		if !youtubeIDRe.MatchString(id) {
			return model.VideoRef{Platform: platform}, ErrMissingID
		}
	} else {
		id = strings.Trim(u.Path, "/")
		if id == "" {
			return model.VideoRef{Platform: platform}, ErrMissingID
		}
	}

	return model.VideoRef{Platform: platform, ID: id}, nil
}

// Normalize trims raw and prepends https:// when it carries no scheme.
// Blank input stays blank.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || schemeRe.MatchString(s) {
		return s
	}
	return "https://" + s
}

// looksLikeHost requires at least two non-empty dot-separated labels
func looksLikeHost(host string) bool {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}

func youtubeID(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch segments[0] {
	case "watch":
		id = u.Query().Get("v")
	case "shorts", "live", "embed":
		if len(segments) > 1 {
			id = segments[1]
		}
	default:
		// youtu.be/<id>
		id = segments[0]
	}

	if len(id) > youtubeIDLength {
		id = id[:youtubeIDLength]
	}
	return id
}
