package media

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormats(t *testing.T) {
	tests := []struct {
		name      string
		audio     bool
		video     bool
		supported bool
	}{
		{"clip.MP3", true, false, true},
		{"song.m4a", true, false, true},
		{"recording.webm", false, true, true},
		{"video.mp4", false, true, true},
		{"notes.txt", false, false, false},
		{"noext", false, false, false},
	}
	for _, tt := range tests {
		if got := IsAudio(tt.name); got != tt.audio {
			t.Errorf("IsAudio(%q) = %v, want %v", tt.name, got, tt.audio)
		}
		if got := IsVideo(tt.name); got != tt.video {
			t.Errorf("IsVideo(%q) = %v, want %v", tt.name, got, tt.video)
		}
		if got := IsSupported(tt.name); got != tt.supported {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.name, got, tt.supported)
		}
	}
}

func TestAudioToVideoArgs(t *testing.T) {
	args := audioToVideoArgs("in.mp3", "out.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-f lavfi", "color=c=black:s=1280x720:r=30", "-i in.mp3", "-shortest", "-y out.mp4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}
}

func TestExtractAudioArgs(t *testing.T) {
	joined := strings.Join(extractAudioArgs("v.mp4", "a.wav"), " ")
	for _, want := range []string{"-vn", "-acodec pcm_s16le", "-ar 16000", "-ac 1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestRecordArgs(t *testing.T) {
	opts := DefaultRecordOptions("out/rec.mp4")

	args, err := recordArgs(opts, "linux")
	if err != nil {
		t.Fatalf("recordArgs(linux) error = %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-f v4l2", "-framerate 20", "-i /dev/video0", "-f alsa", "-i default", "-t 10", "out/rec.mp4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("linux args %q missing %q", joined, want)
		}
	}

	args, err = recordArgs(opts, "darwin")
	if err != nil {
		t.Fatalf("recordArgs(darwin) error = %v", err)
	}
	if !strings.Contains(strings.Join(args, " "), "-f avfoundation -framerate 20 -i 0:0") {
		t.Errorf("darwin args = %v", args)
	}

	if _, err := recordArgs(opts, "windows"); err == nil {
		t.Error("windows without device names should fail")
	}
	opts.VideoDevice, opts.AudioDevice = "Webcam", "Mic"
	args, err = recordArgs(opts, "windows")
	if err != nil {
		t.Fatalf("recordArgs(windows) error = %v", err)
	}
	if !strings.Contains(strings.Join(args, " "), "video=Webcam:audio=Mic") {
		t.Errorf("windows args = %v", args)
	}

	if _, err := recordArgs(RecordOptions{Output: "x.mp4"}, "linux"); err == nil {
		t.Error("zero duration should fail")
	}
	if _, err := recordArgs(RecordOptions{Duration: time.Second}, "linux"); err == nil {
		t.Error("missing output should fail")
	}
	if _, err := recordArgs(opts, "plan9"); err == nil {
		t.Error("unsupported OS should fail")
	}
}

func TestChannelArgs(t *testing.T) {
	got := channelArgs("https://www.youtube.com/c/WhatYuhKnow", 10)
	want := []string{"--flat-playlist", "--get-url", "--playlist-items", "1-10", "https://www.youtube.com/c/WhatYuhKnow"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("channelArgs() = %v, want %v", got, want)
	}
	if got := channelArgs("u", 0); len(got) != 3 {
		t.Errorf("channelArgs without limit = %v", got)
	}
}

func TestFilterWatchURLs(t *testing.T) {
	out := `https://www.youtube.com/watch?v=abc123
https://www.youtube.com/shorts/xyz

  https://www.youtube.com/watch?v=def456
`
	got := filterWatchURLs(out)
	want := []string{"https://www.youtube.com/watch?v=abc123", "https://www.youtube.com/watch?v=def456"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterWatchURLs() = %v, want %v", got, want)
	}
}

func TestCommandError(t *testing.T) {
	base := errors.New("exit status 1")
	err := &CommandError{Name: "ffmpeg", Err: base, Output: "Invalid data found"}
	if !errors.Is(err, base) {
		t.Error("CommandError should unwrap to the exec error")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		out     string
		want    float64
		wantErr bool
	}{
		{"12.480000\n", 12.48, false},
		{"  3\n", 3, false},
		{"N/A\n", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration([]byte(tt.out))
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDuration(%q) error = %v, wantErr %v", tt.out, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func TestAudioToVideoMissingInput(t *testing.T) {
	err := AudioToVideo(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("AudioToVideo() error = %v, want not found", err)
	}
}

func TestAudioToVideoWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	audio := filepath.Join(dir, "tone.wav")
	if _, err := run(context.Background(), "ffmpeg", "-f", "lavfi", "-i", "sine=frequency=440:duration=1", "-y", audio); err != nil {
		t.Fatalf("failed to generate tone: %v", err)
	}

	video := filepath.Join(dir, "out", "tone.mp4")
	if err := AudioToVideo(context.Background(), audio, video); err != nil {
		t.Fatalf("AudioToVideo() error = %v", err)
	}

	if _, err := exec.LookPath("ffprobe"); err != nil {
		return
	}
	d, err := Duration(context.Background(), video)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if d < 0.5 || d > 2 {
		t.Errorf("Duration() = %v, want about 1s", d)
	}
}
