// Package provider talks to the external metadata sources: the YouTube Data API
// for YouTube links and yt-dlp for every other supported platform.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable means the source answered but has no public video for the request
var ErrUnavailable = errors.New("video unavailable")

// Primary fetches YouTube videos by id. A nil item with a nil error means the
// video does not exist or is private.
type Primary interface {
	FetchYouTube(ctx context.Context, id string) (*YouTubeItem, error)
}

// Generic fetches any other supported platform by link
type Generic interface {
	FetchGeneric(ctx context.Context, url string) (*GenericItem, error)
}

// YouTubeItem is the part of a videos.list item that gets mapped to metadata
type YouTubeItem struct {
	ID             string         `json:"id"`
	Snippet        Snippet        `json:"snippet"`
	ContentDetails ContentDetails `json:"contentDetails"`
}

// Snippet holds the descriptive fields of a YouTube video
type Snippet struct {
	Title        string               `json:"title"`
	ChannelTitle string               `json:"channelTitle"`
	ChannelID    string               `json:"channelId"`
	PublishedAt  time.Time            `json:"publishedAt"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"`
}

// Thumbnail is one rendition of a video thumbnail
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ContentDetails holds the ISO-8601 duration
type ContentDetails struct {
	Duration string `json:"duration"`
}

// ThumbnailURL returns the medium thumbnail, falling back to the default one
func (s Snippet) ThumbnailURL() string {
	for _, size := range []string{"medium", "default", "high"} {
		if t, ok := s.Thumbnails[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// GenericItem is the subset of a yt-dlp --dump-json record that gets mapped to metadata
type GenericItem struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	UploaderID string        `json:"uploader_id"`
	Channel    string        `json:"channel"`
	Thumbnail  string        `json:"thumbnail"`
	UploadDate string        `json:"upload_date"` // YYYYMMDD
	Duration   float64       `json:"duration"`
	Entries    []GenericItem `json:"entries,omitempty"`
}
