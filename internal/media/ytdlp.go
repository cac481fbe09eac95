package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ChannelListTimeout bounds a channel listing.
const ChannelListTimeout = 60 * time.Second

func channelArgs(channelURL string, limit int) []string {
	args := []string{"--flat-playlist", "--get-url"}
	if limit > 0 {
		args = append(args, "--playlist-items", fmt.Sprintf("1-%d", limit))
	}
	return append(args, channelURL)
}

// filterWatchURLs keeps regular video URLs and drops Shorts.
func filterWatchURLs(output string) []string {
	var urls []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "watch?v=") {
			urls = append(urls, line)
		}
	}
	return urls
}

// ChannelVideos lists up to limit video URLs of a YouTube channel with
// yt-dlp. limit <= 0 lists everything.
func ChannelVideos(ctx context.Context, channelURL string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ChannelListTimeout)
	defer cancel()

	out, err := run(ctx, "yt-dlp", channelArgs(channelURL, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel videos: %w", err)
	}
	return filterWatchURLs(string(out)), nil
}

// DownloadVideo downloads url to out with yt-dlp.
func DownloadVideo(ctx context.Context, url, out string) error {
	if err := ensureDir(out); err != nil {
		return err
	}
	if _, err := run(ctx, "yt-dlp", "-f", "mp4/best", "-o", out, url); err != nil {
		return fmt.Errorf("failed to download video: %w", err)
	}
	return nil
}
