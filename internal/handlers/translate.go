package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patwa/internal/models"
	"patwa/internal/pipeline"
	"patwa/internal/speech"
	"patwa/internal/storage"
	"patwa/internal/translate"
)

// TranslateHandler serves the text translation API.
type TranslateHandler struct {
	svc  *pipeline.Service
	repo *storage.TranslationRepository
	log  zerolog.Logger
}

// NewTranslateHandler creates a TranslateHandler.
func NewTranslateHandler(svc *pipeline.Service, repo *storage.TranslationRepository, log zerolog.Logger) *TranslateHandler {
	return &TranslateHandler{svc: svc, repo: repo, log: log}
}

type translateRequest struct {
	Text string `json:"text" form:"text"`
}

// Translate translates a phrase and voices it unless ?audio=0.
// POST /api/translate
func (h *TranslateHandler) Translate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No text provided"})
	}

	withAudio := true
	if v := c.QueryParam("audio"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			withAudio = b
		}
	}

	res, err := h.svc.TranslateText(c.Request().Context(), req.Text, withAudio)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, translate.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No text provided"})
	case errors.Is(err, pipeline.ErrSynthesis):
		h.log.Error().Err(err).Msg("speech synthesis failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate audio"})
	default:
		h.log.Error().Err(err).Msg("translation failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

type translationResponse struct {
	models.Translation
	AudioURL string `json:"audioUrl,omitempty"`
}

func (h *TranslateHandler) withURL(c echo.Context, t models.Translation) translationResponse {
	u, err := h.svc.AudioURL(c.Request().Context(), t.AudioKey)
	if err != nil {
		h.log.Warn().Err(err).Str("id", t.ID).Msg("failed to resolve audio URL")
	}
	return translationResponse{Translation: t, AudioURL: u}
}

// List returns recent translations.
// GET /api/translations?limit=20&offset=0
func (h *TranslateHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	list, err := h.repo.ListRecent(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	out := make([]translationResponse, 0, len(list))
	for _, t := range list {
		out = append(out, h.withURL(c, t))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one translation.
// GET /api/translations/:id
func (h *TranslateHandler) Get(c echo.Context) error {
	t, err := h.repo.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "translation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, h.withURL(c, *t))
}

// Audio streams the synthesized speech of a translation from the blob store.
// GET /api/translations/:id/audio
func (h *TranslateHandler) Audio(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := h.repo.GetByID(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "translation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if t.AudioKey == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "translation has no audio"})
	}

	audio, err := h.svc.OpenAudio(ctx, t.AudioKey)
	if errors.Is(err, fs.ErrNotExist) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "audio not found"})
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", t.ID).Msg("failed to open audio")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open audio"})
	}
	defer audio.Close()
	return c.Stream(http.StatusOK, speech.ContentType, audio)
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
