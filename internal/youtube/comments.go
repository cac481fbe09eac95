package youtube

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultChannels are the Caribbean channels whose comment sections seed
// the translation dataset.
var DefaultChannels = []string{"WhatYuhKnow", "MachelMontano", "BujuBanton", "Aytian"}

// ErrChannelNotFound is returned when a channel search has no results.
var ErrChannelNotFound = errors.New("channel not found")

// CommentHarvester collects top-level comments through the YouTube Data API.
type CommentHarvester struct {
	svc       *ytapi.Service
	log       zerolog.Logger
	maxVideos int64
}

// NewCommentHarvester creates a harvester authenticated with an API key.
// Extra options are appended, e.g. option.WithEndpoint in tests.
func NewCommentHarvester(ctx context.Context, apiKey string, log zerolog.Logger, opts ...option.ClientOption) (*CommentHarvester, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY is not set")
	}
	svc, err := ytapi.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &CommentHarvester{
		svc:       svc,
		log:       log,
		maxVideos: 50,
	}, nil
}

// ChannelID resolves a channel name with a channel search.
func (h *CommentHarvester) ChannelID(ctx context.Context, name string) (string, error) {
	resp, err := h.svc.Search.List([]string{"snippet"}).
		Type("channel").
		Q(name).
		MaxResults(1).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search channel %q: %w", name, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.ChannelId == "" {
		return "", fmt.Errorf("%w: %s", ErrChannelNotFound, name)
	}
	return resp.Items[0].Id.ChannelId, nil
}

// LatestVideos returns the IDs of the newest videos of a channel.
func (h *CommentHarvester) LatestVideos(ctx context.Context, channelID string) ([]string, error) {
	resp, err := h.svc.Search.List([]string{"id"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		MaxResults(h.maxVideos).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list videos of %s: %w", channelID, err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	return ids, nil
}

// VideoComments returns the original text of the top-level comments on the
// first page of a video's comment threads.
func (h *CommentHarvester) VideoComments(ctx context.Context, videoID string) ([]string, error) {
	resp, err := h.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		TextFormat("plainText").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of %s: %w", videoID, err)
	}

	var comments []string
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		if text := item.Snippet.TopLevelComment.Snippet.TextOriginal; text != "" {
			comments = append(comments, text)
		}
	}
	return comments, nil
}

// Harvest walks every channel and its latest videos. Failing channels and
// videos (disabled comments are common) are skipped and reported together
// in the returned error alongside whatever was collected.
func (h *CommentHarvester) Harvest(ctx context.Context, channels []string) ([]string, error) {
	var all []string
	var result *multierror.Error

	for _, name := range channels {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		h.log.Info().Str("channel", name).Msg("Fetching comments")

		channelID, err := h.ChannelID(ctx, name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		videos, err := h.LatestVideos(ctx, channelID)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for _, videoID := range videos {
			comments, err := h.VideoComments(ctx, videoID)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			all = append(all, comments...)
		}
	}

	h.log.Info().Int("comments", len(all)).Msg("Harvest finished")
	return all, result.ErrorOrNil()
}

// WriteCSV writes comments as a one-column CSV with a Comment header.
func WriteCSV(w io.Writer, comments []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Comment"}); err != nil {
		return err
	}
	for _, c := range comments {
		if err := cw.Write([]string{c}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
