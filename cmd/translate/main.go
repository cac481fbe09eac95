package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"patwa/internal/config"
	"patwa/internal/logging"
	"patwa/internal/speech"
	"patwa/internal/translate"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "YAML config file")
		provider   = flag.String("provider", "", "Translation provider: gemini, openai, local (default from config)")
		review     = flag.Bool("review", false, "Run the correction and comparison review passes")
		speak      = flag.Bool("speak", false, "Synthesize the translation to an MP3 file")
		outDir     = flag.String("out", "output_audio", "Directory for synthesized audio")
		asJSON     = flag.Bool("json", false, "Print the result as JSON")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <dialect phrase>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s \"Mi soon come\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -review -speak \"De ting sell off.\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  echo \"Wagwan?\" | %s -provider local\n", os.Args[0])
	}
	flag.Parse()

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintf(os.Stderr, "Error: a dialect phrase is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	opts := options{
		configPath: *configPath,
		provider:   *provider,
		review:     *review,
		speak:      *speak,
		outDir:     *outDir,
		asJSON:     *asJSON,
		verbose:    *verbose,
	}
	if err := run(context.Background(), os.Stdout, text, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	provider   string
	review     bool
	speak      bool
	outDir     string
	asJSON     bool
	verbose    bool
}

type result struct {
	Dialect    string                  `json:"dialect"`
	Translated string                  `json:"translated"`
	Review     *translate.ReviewResult `json:"review,omitempty"`
	Audio      string                  `json:"audio,omitempty"`
}

func run(ctx context.Context, w io.Writer, text string, opts options) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.Translation.Provider = opts.provider
	}
	cfg.Translation.Review = cfg.Translation.Review || opts.review

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logging.New(level, nil)

	translator, closer, err := translate.New(ctx, cfg.Translation, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	res := result{Dialect: strings.TrimSpace(text)}
	if r, ok := translator.(*translate.Review); ok {
		reviewed, err := r.Run(ctx, text)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		res.Translated = reviewed.Final
		res.Review = reviewed
	} else {
		res.Translated, err = translator.Translate(ctx, text)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
	}

	if opts.speak {
		path, err := synthesize(ctx, cfg, res.Dialect, res.Translated, opts.outDir)
		if err != nil {
			return err
		}
		res.Audio = path
	}

	return printResult(w, res, opts.asJSON)
}

func printResult(w io.Writer, res result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dialect:     %s\n", res.Dialect)
	fmt.Fprintf(&b, "Translation: %s\n", res.Translated)
	if res.Review != nil {
		fmt.Fprintf(&b, "Initial:     %s\n", res.Review.Initial)
		if res.Review.Analysis != "" {
			fmt.Fprintf(&b, "Analysis:    %s\n", res.Review.Analysis)
		}
	}
	if res.Audio != "" {
		fmt.Fprintf(&b, "Audio:       %s\n", res.Audio)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func synthesize(ctx context.Context, cfg *config.Config, dialect, translated, outDir string) (string, error) {
	if cfg.Speech.Provider == "none" || cfg.Speech.Provider == "" {
		cfg.Speech.Provider = "elevenlabs"
	}
	synth, err := speech.New(cfg.Speech, cfg.Translation.OpenAIAPIKey)
	if err != nil {
		return "", err
	}
	audio, err := synth.Synthesize(ctx, translated)
	if err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	defer audio.Close()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outDir, speech.OutputName(dialect))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := io.Copy(f, audio); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return path, f.Close()
}
