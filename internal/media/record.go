package media

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// RecordOptions configures a webcam and microphone capture.
type RecordOptions struct {
	Output      string
	Duration    time.Duration
	VideoDevice string // platform default when empty
	AudioDevice string // platform default when empty
	FrameRate   int
}

// DefaultRecordOptions records ten seconds at 20 fps.
func DefaultRecordOptions(output string) RecordOptions {
	return RecordOptions{
		Output:    output,
		Duration:  10 * time.Second,
		FrameRate: 20,
	}
}

// recordArgs builds the ffmpeg arguments for goos. Audio and video come
// from one process, so the tracks share a clock.
func recordArgs(opts RecordOptions, goos string) ([]string, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("duration must be > 0")
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 20
	}
	fps := strconv.Itoa(opts.FrameRate)

	var input []string
	switch goos {
	case "linux":
		video, audio := opts.VideoDevice, opts.AudioDevice
		if video == "" {
			video = "/dev/video0"
		}
		if audio == "" {
			audio = "default"
		}
		input = []string{
			"-f", "v4l2", "-framerate", fps, "-i", video,
			"-f", "alsa", "-i", audio,
		}
	case "darwin":
		video, audio := opts.VideoDevice, opts.AudioDevice
		if video == "" {
			video = "0"
		}
		if audio == "" {
			audio = "0"
		}
		input = []string{"-f", "avfoundation", "-framerate", fps, "-i", video + ":" + audio}
	case "windows":
		if opts.VideoDevice == "" || opts.AudioDevice == "" {
			return nil, fmt.Errorf("video and audio device names are required on windows")
		}
		input = []string{"-f", "dshow", "-framerate", fps, "-i", "video=" + opts.VideoDevice + ":audio=" + opts.AudioDevice}
	default:
		return nil, fmt.Errorf("recording is not supported on %s", goos)
	}

	args := append(input,
		"-t", strconv.FormatFloat(opts.Duration.Seconds(), 'f', -1, 64),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-y",
		opts.Output,
	)
	return args, nil
}

// Record captures webcam video and microphone audio into an MP4 file.
// Cancelling ctx stops the capture early.
func Record(ctx context.Context, opts RecordOptions) error {
	args, err := recordArgs(opts, runtime.GOOS)
	if err != nil {
		return err
	}
	if err := ensureDir(opts.Output); err != nil {
		return err
	}
	_, err = run(ctx, "ffmpeg", args...)
	return err
}
