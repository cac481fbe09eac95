package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"patwa/internal/config"
	"patwa/internal/logging"
	"patwa/internal/transcribe"
	"patwa/internal/translate"
	"patwa/internal/youtube"
)

func main() {
	_ = godotenv.Load()

	var (
		input       = flag.String("i", "", "Input media file, or a YouTube URL with -provider captions")
		outputFile  = flag.String("o", "", "Output file (default: stdout)")
		format      = flag.String("format", "text", "Output format: text, json")
		provider    = flag.String("provider", "", "Provider: twelvelabs, whisper, captions (default from config)")
		configPath  = flag.String("config", "", "YAML config file")
		doTranslate = flag.Bool("translate", false, "Also translate the transcript to standard English")
		verbose     = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i clip.mp4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i voice.m4a -provider whisper -format json -o transcript.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i https://www.youtube.com/watch?v=xxx -provider captions -translate\n", os.Args[0])
	}
	flag.Parse()

	if *input == "" {
		fmt.Fprintf(os.Stderr, "Error: Input is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: text or json\n", *format)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logging.New(level, nil)
	ctx := context.Background()

	var t transcribe.Transcriber
	if *provider == "captions" {
		t = transcribe.NewCaptions(youtube.NewClient(), cfg.YouTube.CaptionLang)
	} else {
		if *provider != "" {
			cfg.Transcription.Provider = *provider
		}
		if _, err := os.Stat(*input); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", *input)
			os.Exit(1)
		}
		t, err = transcribe.New(cfg.Transcription, cfg.Translation.OpenAIAPIKey, cfg.Translation.OpenAIBaseURL, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Transcribing %s with %s...\n", *input, t.Name())
	}
	transcript, err := t.Transcribe(ctx, *input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to transcribe: %v\n", err)
		os.Exit(1)
	}

	var translated string
	if *doTranslate {
		translated, err = translateText(ctx, cfg.Translation, log, transcript.Text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	var output string
	switch *format {
	case "json":
		data, err := json.MarshalIndent(struct {
			*transcribe.Transcript
			Translated string `json:"translated,omitempty"`
		}{transcript, translated}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to format JSON: %v\n", err)
			os.Exit(1)
		}
		output = string(data)
	default:
		var sb strings.Builder
		sb.WriteString(transcript.Text)
		if translated != "" {
			sb.WriteString("\n\nStandard English: ")
			sb.WriteString(translated)
		}
		output = sb.String()
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output+"\n"), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", *outputFile)
		}
		return
	}
	fmt.Println(output)
}

func translateText(ctx context.Context, cfg config.TranslationConfig, log zerolog.Logger, text string) (string, error) {
	translator, closer, err := translate.New(ctx, cfg, log)
	if err != nil {
		return "", err
	}
	defer closer.Close()
	translated, err := translator.Translate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to translate: %w", err)
	}
	return translated, nil
}
