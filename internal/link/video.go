package link

import (
	"strings"

	"github.com/ponyvote/ballotcheck/internal/model"
)

var linkBases = map[model.Platform]string{
	model.PlatformYouTube:         "https://www.youtube.com/watch?v=",
	model.PlatformBilibili:        "https://www.bilibili.com/",
	model.PlatformBluesky:         "https://bsky.app/",
	model.PlatformDailymotion:     "https://www.dailymotion.com/",
	model.PlatformInstagram:       "https://www.instagram.com/",
	model.PlatformNewgrounds:      "https://www.newgrounds.com/",
	model.PlatformOdysee:          "https://odysee.com/",
	model.PlatformPonyTube:        "https://pony.tube/",
	model.PlatformThisHorsieRocks: "https://pt.thishorsie.rocks/",
	model.PlatformTiktok:          "https://www.tiktok.com/",
	model.PlatformTwitter:         "https://x.com/",
	model.PlatformVimeo:           "https://vimeo.com/",
}

// URL rebuilds a canonical link for a ref. Unknown platforms yield "".
// It is used only when the submitted link is not at hand.
func URL(ref model.VideoRef) string {
	base, ok := linkBases[ref.Platform]
	if !ok {
		return ""
	}
	if ref.Platform == model.PlatformDailymotion && !strings.HasPrefix(ref.ID, "video/") {
		// dai.ly short ids live under /video/ on the main site
		return base + "video/" + ref.ID
	}
	return base + ref.ID
}

// VideoLink returns the link voters should follow: the reupload source when
// one is set, else the canonical link
func VideoLink(meta model.VideoMetadata) string {
	if meta.Source != "" {
		return meta.Source
	}
	return URL(meta.Ref)
}

// ToClient converts stored metadata into its voter-facing form
func ToClient(meta model.VideoMetadata) model.ClientVideo {
	return model.ClientVideo{
		Platform:   meta.Ref.Platform,
		ID:         meta.Ref.ID,
		Title:      meta.Title,
		Uploader:   meta.Uploader,
		UploaderID: meta.UploaderID,
		Thumbnail:  meta.Thumbnail,
		Source:     meta.Source,
		Recent:     meta.Recent,
		Link:       VideoLink(meta),
	}
}
