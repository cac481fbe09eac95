package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patwa/internal/ingestion"
	"patwa/internal/models"
	"patwa/internal/pipeline"
	"patwa/internal/storage"
	"patwa/internal/transcribe"
)

// DefaultChannelLimit is how many channel videos are queued when the
// request does not say.
const DefaultChannelLimit = 10

// IngestHandler accepts media for background translation.
type IngestHandler struct {
	ingester     *ingestion.MediaIngester
	sources      *storage.SourceRepository
	artifacts    *storage.ArtifactRepository
	translations *storage.TranslationRepository
	svc          *pipeline.Service
	log          zerolog.Logger
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(
	ingester *ingestion.MediaIngester,
	sources *storage.SourceRepository,
	artifacts *storage.ArtifactRepository,
	translations *storage.TranslationRepository,
	svc *pipeline.Service,
	log zerolog.Logger,
) *IngestHandler {
	return &IngestHandler{
		ingester:     ingester,
		sources:      sources,
		artifacts:    artifacts,
		translations: translations,
		svc:          svc,
		log:          log,
	}
}

// Media handles an uploaded audio or video file.
// POST /api/ingest/media
func (h *IngestHandler) Media(c echo.Context) error {
	return h.upload(c, "file", models.SourceTypeUpload)
}

// Record handles a clip recorded in the browser.
// POST /api/record
func (h *IngestHandler) Record(c echo.Context) error {
	return h.upload(c, "video", models.SourceTypeRecording)
}

func (h *IngestHandler) upload(c echo.Context, field, sourceType string) error {
	fh, err := c.FormFile(field)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no " + field + " uploaded"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open file"})
	}
	defer f.Close()

	result, err := h.ingester.Ingest(c.Request().Context(), ingestion.IngestOptions{
		Title:    c.FormValue("title"),
		File:     ingestion.MediaFile{Filename: fh.Filename, Reader: f, Size: fh.Size},
		Type:     sourceType,
		Priority: models.JobPriorityNormal,
	})
	if errors.Is(err, ingestion.ErrUnsupportedFormat) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		h.log.Error().Err(err).Msg("ingest failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, result)
}

type urlRequest struct {
	URL   string `json:"url" form:"url"`
	Limit int    `json:"limit" form:"limit"`
}

// YouTube queues a YouTube video.
// POST /api/ingest/youtube
func (h *IngestHandler) YouTube(c echo.Context) error {
	var req urlRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}
	result, err := h.ingester.IngestURL(c.Request().Context(), req.URL, models.JobPriorityNormal)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, result)
}

// Channel queues the newest videos of a channel.
// POST /api/ingest/channel
func (h *IngestHandler) Channel(c echo.Context) error {
	var req urlRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}
	if req.Limit <= 0 {
		req.Limit = DefaultChannelLimit
	}

	results, err := h.ingester.IngestChannel(c.Request().Context(), req.URL, req.Limit)
	if err != nil && len(results) == 0 {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	resp := map[string]any{"jobs": results}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			msgs = append(msgs, e.Error())
		}
		resp["errors"] = msgs
	}
	return c.JSON(http.StatusAccepted, resp)
}

type sourceResult struct {
	SourceID         string               `json:"source_id"`
	Status           string               `json:"status"`
	Transcript       string               `json:"transcript,omitempty"`
	Segments         []transcribe.Segment `json:"segments,omitempty"`
	TranscriptSource string               `json:"transcript_provider,omitempty"`
	Translated       string               `json:"translated,omitempty"`
	Translation      *models.Translation  `json:"translation,omitempty"`
	AudioURL         string               `json:"audioUrl,omitempty"`
}

// Result returns what a source produced so far.
// GET /api/sources/:id/result
func (h *IngestHandler) Result(c echo.Context) error {
	ctx := c.Request().Context()
	source, err := h.sources.GetByID(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "source not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	res := sourceResult{SourceID: source.ID, Status: source.Status}

	artifact, err := h.artifacts.Latest(ctx, source.ID, models.ArtifactTypeTranscription)
	switch {
	case err == nil:
		var t transcribe.Transcript
		if err := json.Unmarshal([]byte(artifact.Content), &t); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to parse transcript"})
		}
		res.Transcript = t.Text
		res.Segments = t.Segments
		res.TranscriptSource = t.Provider
	case !errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	translation, err := h.translations.GetBySourceID(ctx, source.ID)
	switch {
	case err == nil:
		res.Translated = translation.Translated
		res.Translation = translation
		res.AudioURL, err = h.svc.AudioURL(ctx, translation.AudioKey)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	case !errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, res)
}
