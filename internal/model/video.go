package model

import "time"

// Platform identifies one of the supported video hosts
type Platform string

const (
	PlatformYouTube         Platform = "YouTube"
	PlatformBilibili        Platform = "Bilibili"
	PlatformBluesky         Platform = "Bluesky"
	PlatformDailymotion     Platform = "Dailymotion"
	PlatformInstagram       Platform = "Instagram"
	PlatformNewgrounds      Platform = "Newgrounds"
	PlatformOdysee          Platform = "Odysee"
	PlatformPonyTube        Platform = "PonyTube"
	PlatformThisHorsieRocks Platform = "ThisHorsieRocks"
	PlatformTiktok          Platform = "Tiktok"
	PlatformTwitter         Platform = "Twitter"
	PlatformVimeo           Platform = "Vimeo"
)

// Platforms lists every supported platform in display order
var Platforms = []Platform{
	PlatformYouTube,
	PlatformBilibili,
	PlatformBluesky,
	PlatformDailymotion,
	PlatformInstagram,
	PlatformNewgrounds,
	PlatformOdysee,
	PlatformPonyTube,
	PlatformThisHorsieRocks,
	PlatformTiktok,
	PlatformTwitter,
	PlatformVimeo,
}

// Valid reports whether p is a supported platform
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// VideoRef is the canonical identity of a video. Two refs name the same video
// iff both fields are equal; the id comparison is case-sensitive.
type VideoRef struct {
	Platform Platform `json:"platform"`
	ID       string   `json:"id"`
}

// Key returns the ballot-level video key ("id-platform")
func (r VideoRef) Key() string {
	return r.ID + "-" + string(r.Platform)
}

func (r VideoRef) String() string {
	return string(r.Platform) + ":" + r.ID
}

// VideoMetadata is the normalized description of a video, immutable once stored
type VideoMetadata struct {
	Ref         VideoRef  `json:"ref"`
	Title       string    `json:"title"`
	Uploader    string    `json:"uploader"`
	UploaderID  string    `json:"uploader_id"`
	Thumbnail   string    `json:"thumbnail"`
	UploadDate  time.Time `json:"upload_date"`
	Duration    *int      `json:"duration"`         // Seconds; nil when the provider could not tell
	Source      string    `json:"source,omitempty"` // Replacement link set by a reupload annotation
	Recent      bool      `json:"recent"`           // Upload fell in the eligible range when first saved
	Whitelisted bool      `json:"whitelisted"`      // Visible in title search
}

// CreatorKey returns the ballot-level creator key ("uploader-platform")
func (m VideoMetadata) CreatorKey() string {
	return m.Uploader + "-" + string(m.Ref.Platform)
}

// Seconds is a helper for building metadata literals with a known duration
func Seconds(n int) *int {
	return &n
}

// LabelKind is the kind of operator override attached to a video
type LabelKind string

const (
	LabelEligible   LabelKind = "eligible"
	LabelIneligible LabelKind = "ineligible"
	LabelReupload   LabelKind = "reupload"
)

// ManualLabel is an operator override for one video
type ManualLabel struct {
	Kind    LabelKind `json:"kind"`
	Content string    `json:"content"` // Reason text, or the replacement link for reuploads
}

// ClientVideo is the subset of metadata shown to voters, with a ready-made link
type ClientVideo struct {
	Platform   Platform `json:"platform"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Uploader   string   `json:"uploader"`
	UploaderID string   `json:"uploader_id"`
	Thumbnail  string   `json:"thumbnail"`
	Source     string   `json:"source,omitempty"`
	Recent     bool     `json:"recent"`
	Link       string   `json:"link"`
}
