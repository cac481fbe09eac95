package transcribe

import (
	"context"
	"fmt"

	"patwa/internal/youtube"
)

type captionSource interface {
	GetVideo(ctx context.Context, url string) (*youtube.VideoInfo, error)
	FetchCaption(ctx context.Context, video *youtube.VideoInfo, lang string) (*youtube.CaptionResult, error)
}

// Captions reads the caption track of a YouTube video instead of
// processing audio.
type Captions struct {
	client captionSource
	lang   string
}

// NewCaptions creates a caption transcriber preferring lang.
func NewCaptions(client *youtube.Client, lang string) *Captions {
	if lang == "" {
		lang = youtube.DefaultCaptionLanguage
	}
	return &Captions{client: client, lang: lang}
}

// Name implements Transcriber.
func (c *Captions) Name() string {
	return "youtube-captions"
}

// Transcribe implements Transcriber. videoURL is a YouTube URL or video ID.
func (c *Captions) Transcribe(ctx context.Context, videoURL string) (*Transcript, error) {
	video, err := c.client.GetVideo(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	if !video.HasCaptions() {
		return nil, fmt.Errorf("video %s has no captions", video.ID)
	}

	result, err := c.client.FetchCaption(ctx, video, c.lang)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}

	segments := make([]Segment, 0, len(result.Entries))
	for _, e := range result.Entries {
		segments = append(segments, Segment{
			Start: e.StartTime.Seconds(),
			End:   e.EndTime().Seconds(),
			Text:  e.Text,
		})
	}

	text := result.Transcript()
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	return &Transcript{
		Text:     text,
		Segments: segments,
		Language: result.LanguageCode,
		Provider: c.Name(),
	}, nil
}
