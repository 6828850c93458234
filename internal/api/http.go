package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apresai/fieldlog/internal/store"
)

// Handler holds the dependencies every route needs.
type Handler struct {
	control *Control
	store   *store.Store
}

func NewHandler(control *Control, s *store.Store) *Handler {
	return &Handler{control: control, store: s}
}

// NewRouter builds the Gin engine with every route spec.md §6 lists,
// plus health/readiness checks for the process itself.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", h.Health)
	r.GET("/readyz", h.Ready)

	jobs := r.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("/:id", h.GetJob)
		jobs.POST("/:id/pause", h.PauseJob)
		jobs.POST("/:id/resume", h.ResumeJob)
		jobs.POST("/:id/cancel", h.CancelJob)

		maintenance := jobs.Group("/maintenance")
		{
			maintenance.POST("/recover-stalled", h.RecoverStalled)
			maintenance.POST("/pause-all", h.PauseAll)
			maintenance.POST("/cancel-all", h.CancelAll)
		}
	}

	r.GET("/summaries/:id", h.GetSummary)
	r.GET("/audio-logs/:id", h.GetAudioLog)

	prompts := r.Group("/prompts")
	{
		prompts.GET("/:type", h.GetPrompt)
		prompts.PUT("/:type", h.UpsertPrompt)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, ok(gin.H{"status": "ok"}))
}

func (h *Handler) Ready(c *gin.Context) {
	if err := h.store.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, fail("store unavailable: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"status": "ready"}))
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid request body: "+err.Error()))
		return
	}

	job, err := h.control.CreateJob(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	c.JSON(http.StatusOK, ok(jobIDResponse{ID: job.ID}))
}

func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.control.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(job))
}

func (h *Handler) PauseJob(c *gin.Context) {
	if err := h.control.PauseJob(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(nil))
}

func (h *Handler) ResumeJob(c *gin.Context) {
	if err := h.control.ResumeJob(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(nil))
}

func (h *Handler) CancelJob(c *gin.Context) {
	if err := h.control.CancelJob(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(nil))
}

func (h *Handler) RecoverStalled(c *gin.Context) {
	var req recoverStalledRequest
	_ = c.ShouldBindJSON(&req) // body is optional; defaults apply on bind failure too

	n, err := h.control.RecoverStalled(c.Request.Context(), req.StalledThresholdMs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, ok(recoveredCountResponse{RecoveredCount: n}))
}

func (h *Handler) PauseAll(c *gin.Context) {
	n, err := h.control.PauseAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, ok(pausedCountResponse{PausedCount: n}))
}

func (h *Handler) CancelAll(c *gin.Context) {
	n, err := h.control.CancelAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, ok(canceledCountResponse{CanceledCount: n}))
}

func (h *Handler) GetSummary(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("id must be numeric"))
		return
	}
	s, err := h.control.GetSummary(c.Request.Context(), id)
	if err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(s))
}

func (h *Handler) GetAudioLog(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("id must be numeric"))
		return
	}
	a, err := h.control.GetAudioLog(c.Request.Context(), id)
	if err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(a))
}

func (h *Handler) GetPrompt(c *gin.Context) {
	t := store.PromptType(c.Param("type"))
	p, err := h.control.GetPrompt(c.Request.Context(), t)
	if err != nil {
		writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(p))
}

func (h *Handler) UpsertPrompt(c *gin.Context) {
	t := store.PromptType(c.Param("type"))
	var req upsertPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid request body: "+err.Error()))
		return
	}
	if err := h.control.UpsertPrompt(c.Request.Context(), t, req.Content); err != nil {
		c.JSON(http.StatusInternalServerError, fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, ok(nil))
}

func writeStoreErr(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, fail("not found"))
		return
	}
	if errors.Is(err, store.ErrIllegalTransition) {
		c.JSON(http.StatusConflict, fail(err.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, fail(err.Error()))
}
