package handlers

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patwa/internal/storage"
	"patwa/internal/web"
)

// HomeHandler serves the translator page.
type HomeHandler struct {
	translations  *storage.TranslationRepository
	speechEnabled bool
	log           zerolog.Logger
}

// NewHomeHandler creates a HomeHandler.
func NewHomeHandler(translations *storage.TranslationRepository, speechEnabled bool, log zerolog.Logger) *HomeHandler {
	return &HomeHandler{translations: translations, speechEnabled: speechEnabled, log: log}
}

// Home renders the page with the latest translations.
func (h *HomeHandler) Home(c echo.Context) error {
	recent, err := h.translations.ListRecent(c.Request().Context(), 10, 0)
	if err != nil {
		// the form still works without the history
		h.log.Error().Err(err).Msg("failed to list recent translations")
	}
	return render(c, http.StatusOK, web.Home(web.HomeData{Recent: recent, SpeechEnabled: h.speechEnabled}))
}

func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response())
}
