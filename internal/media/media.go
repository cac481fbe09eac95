// Package media wraps the external ffmpeg, ffprobe and yt-dlp binaries.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// AudioFormats lists audio file extensions accepted for ingestion
var AudioFormats = []string{".mp3", ".m4a", ".aac", ".ogg", ".flac", ".wav", ".opus"}

// VideoFormats lists video file extensions accepted for ingestion. Browser
// recordings arrive as .webm.
var VideoFormats = []string{".mp4", ".mov", ".mkv", ".webm", ".avi"}

func hasExt(filename string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsAudio reports whether filename has an audio extension.
func IsAudio(filename string) bool {
	return hasExt(filename, AudioFormats)
}

// IsVideo reports whether filename has a video extension.
func IsVideo(filename string) bool {
	return hasExt(filename, VideoFormats)
}

// IsSupported reports whether filename can be ingested.
func IsSupported(filename string) bool {
	return IsAudio(filename) || IsVideo(filename)
}

// CommandError carries the combined output of a failed external command.
type CommandError struct {
	Name   string
	Err    error
	Output string
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if len(out) > 2000 {
		out = out[len(out)-2000:]
	}
	return fmt.Sprintf("%s failed: %v\nOutput: %s", e.Name, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// requireBinary checks that name is on PATH.
func requireBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found: please install %s", name, name)
	}
	return nil
}

func requireFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", path)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// run executes name with args and returns stdout. Failures include the
// combined output.
func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := requireBinary(name); err != nil {
		return nil, err
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return nil, &CommandError{Name: name, Err: err, Output: stderr.String() + stdout.String()}
	}
	return stdout.Bytes(), nil
}

// audioToVideoArgs renders an audio track over a black 1280x720 frame.
func audioToVideoArgs(in, out string) []string {
	return []string{
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:r=30",
		"-i", in,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		"-y",
		out,
	}
}

// AudioToVideo converts an audio file into a video with a black screen, for
// services that only accept video uploads.
func AudioToVideo(ctx context.Context, in, out string) error {
	if err := requireFile(in); err != nil {
		return err
	}
	if err := ensureDir(out); err != nil {
		return err
	}
	_, err := run(ctx, "ffmpeg", audioToVideoArgs(in, out)...)
	return err
}

// extractAudioArgs produces 16 kHz mono PCM, the format speech-to-text
// services expect.
func extractAudioArgs(in, out string) []string {
	return []string{
		"-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		out,
	}
}

// ExtractAudio writes the audio track of in as a WAV file.
func ExtractAudio(ctx context.Context, in, out string) error {
	if err := requireFile(in); err != nil {
		return err
	}
	if err := ensureDir(out); err != nil {
		return err
	}
	_, err := run(ctx, "ffmpeg", extractAudioArgs(in, out)...)
	return err
}

// Duration returns the duration of a media file in seconds.
func Duration(ctx context.Context, path string) (float64, error) {
	out, err := run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get duration: %w", err)
	}
	return parseDuration(out)
}

func parseDuration(out []byte) (float64, error) {
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}
