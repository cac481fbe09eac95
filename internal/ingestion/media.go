// Package ingestion accepts uploaded, recorded and YouTube media, queues it
// and runs the transcribe, translate and speak steps for each source.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"patwa/internal/blob"
	"patwa/internal/media"
	"patwa/internal/models"
	"patwa/internal/pipeline"
	"patwa/internal/storage"
	"patwa/internal/transcribe"
	"patwa/internal/youtube"
)

// ErrUnsupportedFormat is returned for files that are neither audio nor video.
var ErrUnsupportedFormat = errors.New("unsupported media format")

// Translator is the part of the pipeline the ingester drives.
type Translator interface {
	Translate(ctx context.Context, sourceID, text string) (*pipeline.Result, *models.Translation, error)
	Voice(ctx context.Context, row *models.Translation) (string, error)
	Forget(ctx context.Context, sourceID string) error
	SpeechEnabled() bool
}

var _ Translator = (*pipeline.Service)(nil)

// MediaIngester saves incoming media and processes translate_media jobs.
type MediaIngester struct {
	sourceRepo   *storage.SourceRepository
	artifactRepo *storage.ArtifactRepository
	jobRepo      *storage.JobRepository
	transcriber  transcribe.Transcriber
	captions     transcribe.Transcriber
	translator   Translator
	store        blob.Store
	dataDir      string
	log          zerolog.Logger

	downloadVideo func(ctx context.Context, url, out string) error
	downloadAudio func(ctx context.Context, url, out string, progress func(written, total int64)) (string, error)
	channelVideos func(ctx context.Context, channelURL string, limit int) ([]string, error)
}

// Deps groups what a MediaIngester needs. Captions may be nil, in which
// case YouTube sources are always downloaded and transcribed. YouTube, when
// set, fetches audio-only streams for transcribers that do not need the
// picture.
type Deps struct {
	Sources     *storage.SourceRepository
	Artifacts   *storage.ArtifactRepository
	Jobs        *storage.JobRepository
	Transcriber transcribe.Transcriber
	Captions    transcribe.Transcriber
	Translator  Translator
	Store       blob.Store
	YouTube     *youtube.Client
	DataDir     string
	Log         zerolog.Logger
}

// NewMediaIngester creates a MediaIngester.
func NewMediaIngester(d Deps) *MediaIngester {
	i := &MediaIngester{
		sourceRepo:    d.Sources,
		artifactRepo:  d.Artifacts,
		jobRepo:       d.Jobs,
		transcriber:   d.Transcriber,
		captions:      d.Captions,
		translator:    d.Translator,
		store:         d.Store,
		dataDir:       d.DataDir,
		log:           d.Log,
		downloadVideo: media.DownloadVideo,
		channelVideos: media.ChannelVideos,
	}
	if d.YouTube != nil {
		i.downloadAudio = func(ctx context.Context, url, out string, progress func(written, total int64)) (string, error) {
			return d.YouTube.DownloadAudio(ctx, url, youtube.AudioRequest{Output: out, Progress: progress})
		}
	}
	return i
}

// MediaFile is an uploaded or recorded file.
type MediaFile struct {
	Filename string
	Reader   io.Reader
	Size     int64
}

// IngestOptions describes one upload.
type IngestOptions struct {
	Title    string
	File     MediaFile
	Type     string // models.SourceTypeUpload or models.SourceTypeRecording
	Priority int
}

// IngestResult identifies the created source and its job.
type IngestResult struct {
	SourceID string `json:"source_id"`
	JobID    string `json:"job_id"`
}

// ProgressCallback is called to report progress during processing.
type ProgressCallback func(progress int, step string)

// Ingest saves the file under <data dir>/sources/media/<id>, archives it in
// the blob store and queues a job.
func (i *MediaIngester) Ingest(ctx context.Context, opts IngestOptions) (*IngestResult, error) {
	name := filepath.Base(strings.ReplaceAll(opts.File.Filename, `\`, "/"))
	if opts.File.Reader == nil || name == "." || name == "/" {
		return nil, fmt.Errorf("no media file provided")
	}
	if !media.IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if opts.Type == "" {
		opts.Type = models.SourceTypeUpload
	}

	sourceID := uuid.New().String()
	sourceDir := filepath.Join(i.dataDir, "sources", "media", sourceID)
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create source directory: %w", err)
	}

	destPath := filepath.Join(sourceDir, name)
	if err := saveFile(destPath, opts.File.Reader); err != nil {
		return nil, err
	}

	metadata := map[string]any{"filename": name}
	if key, err := i.archive(ctx, sourceID, destPath); err != nil {
		i.log.Warn().Err(err).Str("source_id", sourceID).Msg("failed to archive media")
	} else {
		metadata["blob_key"] = key
	}

	source := &models.Source{
		ID:       sourceID,
		Type:     opts.Type,
		Title:    opts.Title,
		FilePath: destPath,
	}
	if err := source.SetMetadata(metadata); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := i.sourceRepo.Create(ctx, source); err != nil {
		return nil, err
	}

	return i.queue(ctx, sourceID, opts.Priority)
}

// IngestURL registers a YouTube video and queues a job for it.
func (i *MediaIngester) IngestURL(ctx context.Context, videoURL string, priority int) (*IngestResult, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return nil, fmt.Errorf("no video URL provided")
	}
	source := &models.Source{Type: models.SourceTypeYouTube, OriginalURL: videoURL}
	if err := i.sourceRepo.Create(ctx, source); err != nil {
		return nil, err
	}
	return i.queue(ctx, source.ID, priority)
}

// IngestChannel lists the newest videos of a channel and queues each at
// batch priority. Videos that fail to queue are reported together while the
// rest go ahead.
func (i *MediaIngester) IngestChannel(ctx context.Context, channelURL string, limit int) ([]IngestResult, error) {
	urls, err := i.channelVideos(ctx, channelURL, limit)
	if err != nil {
		return nil, err
	}

	var results []IngestResult
	var errs *multierror.Error
	for _, u := range urls {
		res, err := i.IngestURL(ctx, u, models.JobPriorityBatch)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		results = append(results, *res)
	}
	i.log.Info().Str("channel", channelURL).Int("queued", len(results)).Int("found", len(urls)).Msg("channel ingested")
	return results, errs.ErrorOrNil()
}

func (i *MediaIngester) queue(ctx context.Context, sourceID string, priority int) (*IngestResult, error) {
	job := &models.ProcessingJob{
		SourceID: sourceID,
		Type:     models.JobTypeTranslateMedia,
		Priority: priority,
	}
	if err := i.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}
	i.log.Info().Str("source_id", sourceID).Str("job_id", job.ID).Int("priority", priority).Msg("job queued")
	return &IngestResult{SourceID: sourceID, JobID: job.ID}, nil
}

func (i *MediaIngester) archive(ctx context.Context, sourceID, path string) (string, error) {
	if i.store == nil {
		return "", fmt.Errorf("no blob store")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	key := "sources/" + sourceID + "/" + filepath.Base(path)
	return i.store.Put(ctx, key, f, st.Size(), contentType(path))
}

func saveFile(path string, r io.Reader) error {
	dest, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	_, err = io.Copy(dest, r)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

// Process runs a translate_media job: obtain a transcript, translate it,
// voice the translation and record every step as an artifact.
func (i *MediaIngester) Process(ctx context.Context, job *models.ProcessingJob, onProgress ProgressCallback) (err error) {
	if job.SourceID == "" {
		return fmt.Errorf("job has no source ID")
	}
	report := func(progress int, step string) {
		if onProgress != nil {
			onProgress(progress, step)
		}
	}

	report(5, "preparing")
	source, err := i.sourceRepo.GetByID(ctx, job.SourceID)
	if err != nil {
		return fmt.Errorf("failed to get source %s: %w", job.SourceID, err)
	}
	if err := i.sourceRepo.UpdateStatus(ctx, source.ID, models.SourceStatusProcessing); err != nil {
		return err
	}
	// The worker may retry; MarkFailed settles the source once it gives up.
	defer func() {
		if err != nil {
			if uerr := i.sourceRepo.UpdateStatus(context.WithoutCancel(ctx), source.ID, models.SourceStatusPending); uerr != nil {
				i.log.Error().Err(uerr).Str("source_id", source.ID).Msg("failed to reset source status")
			}
		}
	}()

	// A retried job starts from scratch.
	if err := i.artifactRepo.DeleteBySourceID(ctx, source.ID); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	if err := i.translator.Forget(ctx, source.ID); err != nil {
		return fmt.Errorf("failed to clear translations: %w", err)
	}

	transcript, err := i.transcribe(ctx, source, report)
	if err != nil {
		return err
	}
	if err := i.saveArtifact(ctx, source.ID, models.ArtifactTypeTranscription, transcript, transcript.Provider); err != nil {
		return err
	}

	report(60, "translating")
	res, row, err := i.translator.Translate(ctx, source.ID, transcript.Text)
	if err != nil {
		return fmt.Errorf("failed to translate: %w", err)
	}
	if err := i.saveArtifact(ctx, source.ID, models.ArtifactTypeTranslation, res, row.Provider); err != nil {
		return err
	}

	if i.translator.SpeechEnabled() {
		report(80, "synthesizing")
		key, err := i.translator.Voice(ctx, row)
		if err != nil {
			return err
		}
		audio := &models.ProcessingArtifact{
			SourceID: source.ID,
			Type:     models.ArtifactTypeAudio,
			FilePath: key,
			Format:   "mp3",
		}
		if err := i.artifactRepo.Create(ctx, audio); err != nil {
			return fmt.Errorf("failed to save artifact: %w", err)
		}
	}

	report(95, "saving")
	if err := i.sourceRepo.UpdateStatus(ctx, source.ID, models.SourceStatusCompleted); err != nil {
		return err
	}
	report(100, "")
	return nil
}

// MarkFailed marks the source of a job that will not be retried again.
func (i *MediaIngester) MarkFailed(ctx context.Context, job *models.ProcessingJob, jobErr error) {
	log := i.log.With().Str("source_id", job.SourceID).Str("job_id", job.ID).Logger()
	if err := i.sourceRepo.UpdateStatus(ctx, job.SourceID, models.SourceStatusFailed); err != nil {
		log.Error().Err(err).Msg("failed to mark source failed")
		return
	}
	log.Warn().Err(jobErr).Msg("source failed")
}

func (i *MediaIngester) saveArtifact(ctx context.Context, sourceID, artifactType string, v any, provider string) error {
	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", artifactType, err)
	}
	meta, _ := json.Marshal(map[string]string{"provider": provider})
	artifact := &models.ProcessingArtifact{
		SourceID: sourceID,
		Type:     artifactType,
		Content:  string(content),
		Format:   "json",
		Metadata: string(meta),
	}
	if err := i.artifactRepo.Create(ctx, artifact); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (i *MediaIngester) transcribe(ctx context.Context, source *models.Source, report ProgressCallback) (*transcribe.Transcript, error) {
	path := source.FilePath

	if source.Type == models.SourceTypeYouTube {
		if i.captions != nil {
			report(15, "fetching captions")
			t, err := i.captions.Transcribe(ctx, source.OriginalURL)
			if err == nil {
				return t, nil
			}
			i.log.Info().Err(err).Str("source_id", source.ID).Msg("no usable captions, transcribing video")
		}

		if path == "" || !fileExists(path) {
			report(20, "downloading")
			downloaded, err := i.download(ctx, source, report)
			if err != nil {
				return nil, err
			}
			path = downloaded
			if err := i.sourceRepo.UpdateFilePath(ctx, source.ID, path); err != nil {
				return nil, err
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("source %s has no media file", source.ID)
	}
	report(30, "transcribing")
	t, err := i.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe: %w", err)
	}
	return t, nil
}

// download fetches a YouTube source into the data dir. Transcribers that
// only listen get the audio stream; the full video is the fallback.
func (i *MediaIngester) download(ctx context.Context, source *models.Source, report ProgressCallback) (string, error) {
	base := filepath.Join(i.dataDir, "sources", "youtube", source.ID)

	if _, ok := i.transcriber.(transcribe.AudioOnly); ok && i.downloadAudio != nil {
		last := -1
		progress := func(written, total int64) {
			if total <= 0 {
				return
			}
			if p := 20 + int(9*written/total); p != last {
				last = p
				report(p, "downloading")
			}
		}
		path, err := i.downloadAudio(ctx, source.OriginalURL, base, progress)
		if err == nil {
			return path, nil
		}
		i.log.Info().Err(err).Str("source_id", source.ID).Msg("audio-only download failed, downloading video")
	}

	path := base + ".mp4"
	if err := i.downloadVideo(ctx, source.OriginalURL, path); err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
