package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"patwa/internal/config"
	"patwa/internal/logging"
	"patwa/internal/translate"
	"patwa/internal/youtube"
)

var formats = []string{"text", "json", "srt", "vtt", "transcript"}

type options struct {
	url        string
	lang       string
	format     string
	output     string
	list       bool
	translate  bool
	configPath string
	verbose    bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.url, "url", "", "YouTube video URL or ID")
	flag.StringVar(&opts.lang, "lang", youtube.DefaultCaptionLanguage, "Caption language code")
	flag.StringVar(&opts.format, "format", "text", "Output format: "+strings.Join(formats, ", "))
	flag.StringVar(&opts.output, "o", "", "Output file (default: stdout)")
	flag.BoolVar(&opts.list, "list", false, "Show the video with its caption tracks and audio streams, then exit")
	flag.BoolVar(&opts.translate, "translate", false, "Translate the dialect transcript to standard English")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (with -translate)")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -url <video> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Dumps YouTube captions, optionally translated from Caribbean dialect.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -url https://www.youtube.com/watch?v=xxx -format srt -o captions.srt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -url xxx -format transcript -translate\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -url xxx -list\n", os.Args[0])
	}
	flag.Parse()

	if opts.url == "" {
		fmt.Fprintf(os.Stderr, "Error: YouTube URL is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if !validFormat(opts.format) {
		return fmt.Errorf("invalid format %q, must be one of %s", opts.format, strings.Join(formats, ", "))
	}

	client := youtube.NewClient()
	video, err := client.GetVideo(ctx, opts.url)
	if err != nil {
		return fmt.Errorf("failed to get video: %w", err)
	}

	if opts.list {
		audio, err := client.AudioFormats(ctx, opts.url)
		if err != nil {
			return fmt.Errorf("failed to list audio: %w", err)
		}
		return describe(os.Stdout, video, audio)
	}
	if !video.HasCaptions() {
		return fmt.Errorf("no captions available for %s", video.ID)
	}

	if opts.verbose {
		fmt.Fprintf(os.Stderr, "Fetching %s captions for %q\n", opts.lang, video.Title)
	}
	result, err := client.FetchCaption(ctx, video, opts.lang)
	if err != nil {
		return fmt.Errorf("failed to fetch captions: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "Fetched %d entries (%s)\n", len(result.Entries), result.LanguageCode)
	}

	out, err := render(result, opts.format)
	if err != nil {
		return err
	}

	if opts.translate {
		english, err := translateTranscript(ctx, opts, result.Transcript())
		if err != nil {
			return err
		}
		out = strings.TrimRight(out, "\n") + "\n\nStandard English:\n" + english
	}

	if opts.output == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(opts.output, []byte(out+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", opts.output)
	}
	return nil
}

func validFormat(format string) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

func render(result *youtube.CaptionResult, format string) (string, error) {
	switch format {
	case "json":
		return result.FormatAsJSON()
	case "srt":
		return result.FormatAsSRT(), nil
	case "vtt":
		return result.FormatAsVTT(), nil
	case "transcript":
		return result.Transcript(), nil
	default:
		return result.FormatAsText(), nil
	}
}

func translateTranscript(ctx context.Context, opts options, transcript string) (string, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return "", err
	}
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	translator, closer, err := translate.New(ctx, cfg.Translation, logging.New(level, nil))
	if err != nil {
		return "", err
	}
	defer closer.Close()

	english, err := translator.Translate(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("failed to translate captions: %w", err)
	}
	return english, nil
}

func describe(w io.Writer, video *youtube.VideoInfo, audio []youtube.AudioFormat) error {
	fmt.Fprintf(w, "%s\n", video.Title)
	fmt.Fprintf(w, "  id:       %s\n", video.ID)
	fmt.Fprintf(w, "  author:   %s\n", video.Author)
	fmt.Fprintf(w, "  duration: %s\n", video.Duration)
	if len(video.Captions) == 0 {
		fmt.Fprintln(w, "  no captions")
	} else {
		fmt.Fprintln(w, "  captions:")
		for _, c := range video.Captions {
			fmt.Fprintf(w, "    %-8s %s\n", c.LanguageCode, c.Name)
		}
	}
	if len(audio) == 0 {
		_, err := fmt.Fprintln(w, "  no audio streams")
		return err
	}
	fmt.Fprintln(w, "  audio:")
	for _, a := range audio {
		track := a.TrackName
		if a.DefaultTrack {
			track += " (default)"
		}
		fmt.Fprintf(w, "    itag %-4d %-6s %7d bps  %s\n", a.Itag, a.Extension(), a.Bitrate, track)
	}
	return nil
}
