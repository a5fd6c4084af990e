package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/storage"
	"github.com/jonesrussell/rankrecon/internal/window"
)

// RunReader reads stored runs.
type RunReader interface {
	ListRuns(ctx context.Context, limit, offset int) ([]storage.Run, error)
	LatestRun(ctx context.Context) (*storage.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, error)
	ListRows(ctx context.Context, runID uuid.UUID, limit, offset int) ([]domain.ReportRow, error)
}

// Handler serves the /api/v1 endpoints.
type Handler struct {
	runs RunReader
	now  func() time.Time
}

// NewHandler builds a Handler. runs may be nil when no database is
// configured; run endpoints then answer 503.
func NewHandler(runs RunReader) *Handler {
	return &Handler{runs: runs, now: time.Now}
}

// Register mounts the routes on group.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/windows", h.Windows)
	group.GET("/runs", h.ListRuns)
	group.GET("/runs/latest", h.LatestRun)
	group.GET("/runs/:id", h.GetRun)
	group.GET("/runs/:id/rows", h.ListRows)
}

type windowResponse struct {
	Column string `json:"column"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Label  string `json:"label"`
}

// Windows lists the date range buckets for ?anchor=YYYY-MM-DD, or today.
func (h *Handler) Windows(c *gin.Context) {
	anchor := h.now().UTC()
	if raw := c.Query("anchor"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "anchor must be YYYY-MM-DD"})
			return
		}
		anchor = t
	}

	ws := window.Windows(anchor)
	out := make([]windowResponse, 0, len(ws))
	for i, w := range ws {
		out = append(out, windowResponse{
			Column: window.RankColumn(i),
			Start:  w.Start.Format(time.DateOnly),
			End:    w.End.Format(time.DateOnly),
			Label:  w.Label(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"anchor": window.Day(anchor).Format(time.DateOnly), "windows": out})
}

// ListRuns returns stored runs, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs), "limit": limit, "offset": offset})
}

// LatestRun returns the newest completed run.
func (h *Handler) LatestRun(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	run, err := h.runs.LatestRun(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRun returns one run.
func (h *Handler) GetRun(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, ok := runID(c)
	if !ok {
		return
	}
	run, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListRows returns a page of a run's report rows.
func (h *Handler) ListRows(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, ok := runID(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	if _, err := h.runs.GetRun(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.runs.ListRows(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "rows": rows, "count": len(rows), "limit": limit, "offset": offset})
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report store not configured"})
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func runID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return 0, 0, false
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return 0, 0, false
		}
	}
	if limit == 0 {
		limit = storage.DefaultListLimit
	}
	return min(limit, storage.MaxListLimit), offset, true
}
