// Package youtube fetches video metadata, captions, audio streams and
// viewer comments from YouTube.
package youtube

import (
	"context"
	"net/http"
	"time"

	ytdl "github.com/kkdai/youtube/v2"
)

// DefaultCaptionLanguage is tried first when picking a caption track.
const DefaultCaptionLanguage = "en"

// Client wraps the kkdai/youtube client.
type Client struct {
	client     ytdl.Client
	httpClient *http.Client
}

// NewClient creates a YouTube client.
func NewClient() *Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &Client{
		client:     ytdl.Client{HTTPClient: httpClient},
		httpClient: httpClient,
	}
}

// VideoInfo is the metadata of one video.
type VideoInfo struct {
	ID          string
	Title       string
	Author      string
	Duration    time.Duration
	Description string
	Captions    []CaptionTrack
}

// CaptionTrack describes one caption track.
type CaptionTrack struct {
	LanguageCode string
	Name         string
	BaseURL      string
}

// GetVideo fetches video metadata. url may be a full URL or a bare video ID.
func (c *Client) GetVideo(ctx context.Context, url string) (*VideoInfo, error) {
	video, err := c.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, err
	}

	captions := make([]CaptionTrack, len(video.CaptionTracks))
	for i, track := range video.CaptionTracks {
		captions[i] = CaptionTrack{
			LanguageCode: track.LanguageCode,
			Name:         track.Name.SimpleText,
			BaseURL:      track.BaseURL,
		}
	}

	return &VideoInfo{
		ID:          video.ID,
		Title:       video.Title,
		Author:      video.Author,
		Duration:    video.Duration,
		Description: video.Description,
		Captions:    captions,
	}, nil
}

// FindCaption returns the track for lang. Regional variants such as en-GB
// match a plain "en" request. Without a match the first track is returned.
func (v *VideoInfo) FindCaption(lang string) *CaptionTrack {
	if len(v.Captions) == 0 {
		return nil
	}

	for i := range v.Captions {
		if v.Captions[i].LanguageCode == lang {
			return &v.Captions[i]
		}
	}
	for i := range v.Captions {
		if len(v.Captions[i].LanguageCode) > len(lang) && v.Captions[i].LanguageCode[:len(lang)+1] == lang+"-" {
			return &v.Captions[i]
		}
	}

	return &v.Captions[0]
}

// HasCaptions reports whether any caption track exists.
func (v *VideoInfo) HasCaptions() bool {
	return len(v.Captions) > 0
}
