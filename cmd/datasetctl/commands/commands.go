// Package commands implements datasetctl, the toolbox that builds the
// dialect fine-tuning dataset.
package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"patwa/internal/config"
	"patwa/internal/dataset"
	"patwa/internal/logging"
	"patwa/internal/media"
	"patwa/internal/translate"
	"patwa/internal/youtube"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use:           "datasetctl",
		Short:         "Build and evaluate the dialect translation dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			cfg = c
			log = logging.Component(logging.New(logLevel, cmd.ErrOrStderr()), "datasetctl")
			return nil
		},
	}

	ChannelVideos = &cobra.Command{
		Use:   "channel-videos <channel-url>",
		Short: "List the latest video URLs of a channel",
		Args:  cobra.ExactArgs(1),
		RunE:  channelVideos,
	}

	Comments = &cobra.Command{
		Use:   "comments",
		Short: "Harvest top-level comments from Caribbean channels",
		Args:  cobra.ArbitraryArgs,
		RunE:  comments,
	}

	Draft = &cobra.Command{
		Use:   "draft <comments.csv> <drafts.csv>",
		Short: "Machine-translate harvested comments for review",
		Args:  cobra.ExactArgs(2),
		RunE:  draft,
	}

	Merge = &cobra.Command{
		Use:   "merge <original.csv> <drafts.csv> <merged.csv>",
		Short: "Merge reviewed drafts into the pair dataset",
		Args:  cobra.ExactArgs(3),
		RunE:  merge,
	}

	Prepare = &cobra.Command{
		Use:   "prepare <pairs.csv> <dataset.jsonl>",
		Short: "Convert prompt/response pairs to tuning records",
		Args:  cobra.ExactArgs(2),
		RunE:  prepare,
	}

	Split = &cobra.Command{
		Use:   "split <dataset.jsonl> <train.jsonl> <validation.jsonl>",
		Short: "Shuffle and split tuning records",
		Args:  cobra.ExactArgs(3),
		RunE:  split,
	}

	Evaluate = &cobra.Command{
		Use:   "evaluate <validation.jsonl>",
		Short: "Score the configured translator against a validation set",
		Args:  cobra.ExactArgs(1),
		RunE:  evaluate,
	}

	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
)

func init() {
	Root.AddCommand(ChannelVideos)
	Root.AddCommand(Comments)
	Root.AddCommand(Draft)
	Root.AddCommand(Merge)
	Root.AddCommand(Prepare)
	Root.AddCommand(Split)
	Root.AddCommand(Evaluate)

	Root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	Root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	ChannelVideos.Flags().Int("limit", 10, "number of videos")
	ChannelVideos.Flags().StringP("output", "o", "", "write URLs to this file instead of stdout")

	Comments.Flags().StringP("output", "o", "comments.csv", "output CSV file")

	Split.Flags().Float64("test-fraction", dataset.DefaultTestFraction, "share of records held out for validation")
	Split.Flags().Int64("seed", dataset.DefaultSeed, "shuffle seed")

	Evaluate.Flags().String("provider", "", "translation provider (defaults to the configured one)")
	Evaluate.Flags().Bool("samples", false, "print every scored sample")
}

func channelVideos(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	urls, err := media.ChannelVideos(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	for _, u := range urls {
		fmt.Fprintln(w, u)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Info().Int("videos", len(urls)).Msg("Listed channel videos")
	return nil
}

func comments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	channels := youtube.DefaultChannels
	if len(args) > 0 {
		channels = args
	}

	harvester, err := youtube.NewCommentHarvester(ctx, cfg.YouTube.APIKey, log)
	if err != nil {
		return err
	}
	// Harvest keeps what it collected even when some channels fail.
	collected, harvestErr := harvester.Harvest(ctx, channels)

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()
	if err := youtube.WriteCSV(f, collected); err != nil {
		return err
	}

	if harvestErr != nil {
		log.Warn().Err(harvestErr).Msg("Some channels or videos were skipped")
	}
	log.Info().Int("comments", len(collected)).Str("output", output).Msg("Saved comments")
	return nil
}

func newTranslator(cmd *cobra.Command, provider string) (translate.Translator, func(), error) {
	tcfg := cfg.Translation
	if provider != "" {
		tcfg.Provider = provider
	}
	t, closer, err := translate.New(cmd.Context(), tcfg, logging.Component(log, "translate"))
	if err != nil {
		return nil, nil, err
	}
	return t, func() { closer.Close() }, nil
}

func draft(cmd *cobra.Command, args []string) error {
	t, done, err := newTranslator(cmd, "")
	if err != nil {
		return err
	}
	defer done()

	n, err := dataset.DraftFile(cmd.Context(), t, args[0], args[1], log)
	log.Info().Int("pairs", n).Str("output", args[1]).Msg("Drafted translations")
	return err
}

func merge(cmd *cobra.Command, args []string) error {
	stats, err := dataset.MergeFiles(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Original rows: %d\nNew rows: %d\nMerged rows: %d\n",
		stats.Original, stats.New, stats.Merged)
	return nil
}

func prepare(cmd *cobra.Command, args []string) error {
	n, err := dataset.PrepareFile(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", n, args[1])
	return nil
}

func split(cmd *cobra.Command, args []string) error {
	fraction, err := cmd.Flags().GetFloat64("test-fraction")
	if err != nil {
		return err
	}
	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}

	train, validation, err := dataset.SplitFile(args[0], args[1], args[2], fraction, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Training records: %d\nValidation records: %d\n", train, validation)
	return nil
}

func evaluate(cmd *cobra.Command, args []string) error {
	provider, err := cmd.Flags().GetString("provider")
	if err != nil {
		return err
	}
	showSamples, err := cmd.Flags().GetBool("samples")
	if err != nil {
		return err
	}

	validation, err := dataset.ReadJSONLFile(args[0])
	if err != nil {
		return err
	}
	t, done, err := newTranslator(cmd, provider)
	if err != nil {
		return err
	}
	defer done()

	eval, evalErr := dataset.Evaluate(cmd.Context(), t, validation, log)
	if eval == nil {
		return evalErr
	}

	out := cmd.OutOrStdout()
	if showSamples {
		for _, s := range eval.Samples {
			fmt.Fprintf(out, "%.3f\t%s\t%s\n", s.BLEU, oneLine(s.Dialect), oneLine(s.Candidate))
		}
	}
	fmt.Fprintf(out, "Average BLEU score (%s): %.4f\n", t.Name(), eval.AverageBLEU)
	if evalErr != nil {
		log.Warn().Err(evalErr).Msg("Some samples failed")
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
