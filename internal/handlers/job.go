package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patwa/internal/models"
	"patwa/internal/storage"
	"patwa/internal/web"
)

// WatchInterval is how often a watched job is re-read.
var WatchInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// JobHandler serves the job API.
type JobHandler struct {
	repo *storage.JobRepository
	log  zerolog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(repo *storage.JobRepository, log zerolog.Logger) *JobHandler {
	return &JobHandler{repo: repo, log: log}
}

// List returns jobs, optionally filtered by status.
// GET /api/jobs?status=failed&limit=50
func (h *JobHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	status := c.QueryParam("status")
	limit := queryInt(c, "limit", 50)

	var jobs []models.ProcessingJob
	var err error
	if status != "" {
		jobs, err = h.repo.ListByStatus(ctx, status, limit)
	} else {
		jobs, err = h.repo.ListRecent(ctx, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if jobs == nil {
		jobs = []models.ProcessingJob{}
	}
	return c.JSON(http.StatusOK, jobs)
}

// Get returns a job.
// GET /api/jobs/:id
func (h *JobHandler) Get(c echo.Context) error {
	job, err := h.repo.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, job)
}

// Stats returns job counts per status.
// GET /api/jobs/stats
func (h *JobHandler) Stats(c echo.Context) error {
	counts, err := h.repo.CountByStatus(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, counts)
}

// Delete removes a job.
// DELETE /api/jobs/:id
func (h *JobHandler) Delete(c echo.Context) error {
	err := h.repo.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// Watch streams a job over a websocket whenever it changes, and closes the
// connection once the job completes or fails.
// GET /api/jobs/:id/ws
func (h *JobHandler) Watch(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	job, err := h.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already answered the client.
		h.log.Warn().Err(err).Str("job_id", id).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	// Reading is required to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(WatchInterval)
	defer ticker.Stop()

	var last *models.ProcessingJob
	for {
		if last == nil || changed(last, job) {
			if err := conn.WriteJSON(job); err != nil {
				return nil
			}
			last = job
		}
		if job.IsTerminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, job.Status)
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return nil
		}

		select {
		case <-gone:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		job, err = h.repo.GetByID(ctx, id)
		if err != nil {
			// deleted while watched
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "job not found")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return nil
		}
	}
}

func changed(a, b *models.ProcessingJob) bool {
	return a.Status != b.Status ||
		a.Progress != b.Progress ||
		a.CurrentStep != b.CurrentStep ||
		a.RetryCount != b.RetryCount
}

// ListPage renders the job list page.
// GET /jobs
func (h *JobHandler) ListPage(c echo.Context) error {
	jobs, err := h.repo.ListRecent(c.Request().Context(), 50)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return render(c, http.StatusOK, web.JobList(jobs))
}
