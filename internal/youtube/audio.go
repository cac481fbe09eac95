package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// ErrNoAudio is returned when a video has no audio stream matching the
// request.
var ErrNoAudio = errors.New("no matching audio stream")

// AudioFormat describes one audio-only stream.
type AudioFormat struct {
	Itag          int
	MimeType      string
	Bitrate       int
	ContentLength int64
	TrackID       string // e.g. "en.4" on videos with dubbed tracks
	TrackName     string
	DefaultTrack  bool

	format *ytdl.Format
}

// Extension maps the container to a file extension.
func (f AudioFormat) Extension() string {
	switch {
	case strings.HasPrefix(f.MimeType, "audio/mp4"):
		return ".m4a"
	case strings.HasPrefix(f.MimeType, "audio/webm"):
		return ".webm"
	default:
		return ".audio"
	}
}

// AudioRequest chooses and stores an audio stream.
type AudioRequest struct {
	// Container is "mp4" or "webm"; empty accepts either.
	Container string
	// Language prefers tracks whose ID or name matches. Without it the
	// video's default track wins.
	Language string
	// Output is the destination path. The stream's extension is appended
	// when the path has none.
	Output   string
	Progress func(written, total int64)
}

func listAudio(video *ytdl.Video) []AudioFormat {
	var formats []AudioFormat
	for i := range video.Formats {
		f := &video.Formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		af := AudioFormat{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			Bitrate:       f.Bitrate,
			ContentLength: f.ContentLength,
			format:        f,
		}
		if f.AudioTrack != nil {
			af.TrackID = f.AudioTrack.ID
			af.TrackName = f.AudioTrack.DisplayName
			af.DefaultTrack = f.AudioTrack.AudioIsDefault
		}
		formats = append(formats, af)
	}
	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].Bitrate > formats[j].Bitrate
	})
	return formats
}

// pickAudio returns the highest-bitrate stream of the requested container,
// restricted to the preferred language or default track when any stream
// carries one.
func pickAudio(formats []AudioFormat, container, language string) (AudioFormat, error) {
	var candidates []AudioFormat
	for _, f := range formats {
		if container == "" || strings.HasPrefix(f.MimeType, "audio/"+container) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return AudioFormat{}, fmt.Errorf("%w: container %q", ErrNoAudio, container)
	}

	match := func(f AudioFormat) bool { return f.DefaultTrack }
	if language != "" {
		lang := strings.ToLower(language)
		match = func(f AudioFormat) bool {
			return strings.HasPrefix(strings.ToLower(f.TrackID), lang) ||
				strings.Contains(strings.ToLower(f.TrackName), lang)
		}
	}
	for _, f := range candidates {
		if match(f) {
			return f, nil
		}
	}
	return candidates[0], nil
}

// AudioFormats lists the audio-only streams of a video, best first.
func (c *Client) AudioFormats(ctx context.Context, videoURL string) ([]AudioFormat, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return listAudio(video), nil
}

// DownloadAudio saves one audio-only stream of videoURL and returns the
// written path. The file appears only once the download is complete.
func (c *Client) DownloadAudio(ctx context.Context, videoURL string, req AudioRequest) (string, error) {
	if req.Output == "" {
		return "", fmt.Errorf("audio output path is required")
	}

	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("failed to get video: %w", err)
	}
	chosen, err := pickAudio(listAudio(video), req.Container, req.Language)
	if err != nil {
		return "", err
	}

	stream, size, err := c.client.GetStreamContext(ctx, video, chosen.format)
	if err != nil {
		return "", fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	out := req.Output
	if filepath.Ext(out) == "" {
		out += chosen.Extension()
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeStream(out, stream, size, req.Progress); err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	return out, nil
}

func writeStream(path string, r io.Reader, size int64, progress func(written, total int64)) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var w io.Writer = f
	if progress != nil {
		w = &progressWriter{w: f, total: size, report: progress}
	}
	_, err = io.Copy(w, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	report  func(written, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.report(p.written, p.total)
	return n, err
}
