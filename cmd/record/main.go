package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"patwa/internal/config"
	"patwa/internal/logging"
	"patwa/internal/media"
	"patwa/internal/transcribe"
	"patwa/internal/translate"
)

func main() {
	_ = godotenv.Load()

	defaults := media.DefaultRecordOptions("recording.mp4")
	var (
		output      = flag.String("o", defaults.Output, "Output video file")
		duration    = flag.Duration("d", defaults.Duration, "Recording length")
		videoDevice = flag.String("video-device", "", "Camera device (platform default when empty)")
		audioDevice = flag.String("audio-device", "", "Microphone device (platform default when empty)")
		frameRate   = flag.Int("fps", defaults.FrameRate, "Frame rate")
		doTranslate = flag.Bool("translate", false, "Transcribe and translate the recording")
		configPath  = flag.String("config", "", "YAML config file")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Records the webcam and microphone with ffmpeg.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -d 10s -o clip.mp4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -translate\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -video-device \"Integrated Camera\" -audio-device \"Microphone Array\"\n", os.Args[0])
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := media.RecordOptions{
		Output:      *output,
		Duration:    *duration,
		VideoDevice: *videoDevice,
		AudioDevice: *audioDevice,
		FrameRate:   *frameRate,
	}
	if err := run(ctx, opts, *doTranslate, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts media.RecordOptions, doTranslate bool, configPath string) error {
	fmt.Fprintf(os.Stderr, "Recording %s to %s...\n", opts.Duration, opts.Output)
	start := time.Now()
	if err := media.Record(ctx, opts); err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}
	// ffprobe reports what was actually captured; an interrupted recording
	// is shorter than requested.
	length, err := media.Duration(ctx, opts.Output)
	if err != nil {
		length = time.Since(start).Seconds()
	}
	fmt.Fprintf(os.Stderr, "Saved %s (%.1fs)\n", opts.Output, length)

	if !doTranslate {
		return nil
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	log := logging.New("warn", nil)

	t, err := transcribe.New(cfg.Transcription, cfg.Translation.OpenAIAPIKey, cfg.Translation.OpenAIBaseURL, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Transcribing with %s...\n", t.Name())
	transcript, err := t.Transcribe(ctx, opts.Output)
	if err != nil {
		return fmt.Errorf("failed to transcribe: %w", err)
	}

	translator, closer, err := translate.New(ctx, cfg.Translation, log)
	if err != nil {
		return err
	}
	defer closer.Close()
	translated, err := translator.Translate(ctx, transcript.Text)
	if err != nil {
		return fmt.Errorf("failed to translate: %w", err)
	}

	fmt.Printf("Transcript:  %s\n", transcript.Text)
	fmt.Printf("Translation: %s\n", translated)
	return nil
}
