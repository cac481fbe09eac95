package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"patwa/internal/version"
	"patwa/internal/web"
)

// Server bundles the handlers mounted by NewServer.
type Server struct {
	Home      *HomeHandler
	Translate *TranslateHandler
	Ingest    *IngestHandler
	Jobs      *JobHandler
	// MediaDir is served at /media/ when blobs live on local disk.
	MediaDir  string
	BodyLimit string
	Log       zerolog.Logger
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(s Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if s.BodyLimit == "" {
		s.BodyLimit = "200M"
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.Log.Info()
			if v.Error != nil {
				ev = s.Log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(s.BodyLimit))

	e.GET("/", s.Home.Home)
	e.GET("/jobs", s.Jobs.ListPage)
	e.StaticFS("/static", echo.MustSubFS(web.Static, "static"))
	if s.MediaDir != "" {
		e.Static("/media", s.MediaDir)
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	api := e.Group("/api")
	api.POST("/translate", s.Translate.Translate)
	api.GET("/translations", s.Translate.List)
	api.GET("/translations/:id", s.Translate.Get)
	api.GET("/translations/:id/audio", s.Translate.Audio)

	api.POST("/ingest/media", s.Ingest.Media)
	api.POST("/ingest/youtube", s.Ingest.YouTube)
	api.POST("/ingest/channel", s.Ingest.Channel)
	api.POST("/record", s.Ingest.Record)
	api.GET("/sources/:id/result", s.Ingest.Result)

	api.GET("/jobs", s.Jobs.List)
	api.GET("/jobs/stats", s.Jobs.Stats)
	api.GET("/jobs/:id", s.Jobs.Get)
	api.DELETE("/jobs/:id", s.Jobs.Delete)
	api.GET("/jobs/:id/ws", s.Jobs.Watch)

	return e
}
