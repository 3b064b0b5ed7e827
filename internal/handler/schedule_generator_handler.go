package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
	"github.com/noah-isme/sma-adp-api/internal/service"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/response"
)

// ScheduleGeneratorHandler exposes the timetable optimization job
// lifecycle: enqueue, status, streaming progress, cancellation, and
// retrieval of the committed grid.
type ScheduleGeneratorHandler struct {
	scheduler *service.ScheduleGeneratorService
	export    *service.ExportService
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(scheduler *service.ScheduleGeneratorService, export *service.ExportService) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{scheduler: scheduler, export: export}
}

// Generate godoc
// @Summary Enqueue a timetable optimization job
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param body body dto.GenerateJobRequest true "Target batches and optimizer options"
// @Success 202 {object} response.Envelope
// @Router /scheduler/jobs [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.scheduler.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// Status godoc
// @Summary Job status
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/jobs/{id} [get]
func (h *ScheduleGeneratorHandler) Status(c *gin.Context) {
	status, err := h.scheduler.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Cancel godoc
// @Summary Cancel a running job
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 202 {object} response.Envelope
// @Router /scheduler/jobs/{id}/cancel [post]
func (h *ScheduleGeneratorHandler) Cancel(c *gin.Context) {
	if err := h.scheduler.Cancel(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job_id": c.Param("id"), "status": "canceling"}, nil)
}

// Stream godoc
// @Summary Stream job progress
// @Tags Scheduler
// @Produce plain
// @Param id path string true "Job ID"
// @Success 200 {string} string "line-oriented progress stream"
// @Router /scheduler/jobs/{id}/stream [get]
func (h *ScheduleGeneratorHandler) Stream(c *gin.Context) {
	jobID := c.Param("id")
	events, unsubscribe := h.scheduler.Subscribe(jobID)
	defer unsubscribe()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			line := service.FormatLine(e)
			if line != "" {
				if _, err := io.WriteString(w, line+"\n"); err != nil {
					return false
				}
			}
			return e.Kind != scheduler.EventDone
		}
	})
}

// Versions godoc
// @Summary List committed timetable versions for a batch
// @Tags Scheduler
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/batches/{batchId}/timetables [get]
func (h *ScheduleGeneratorHandler) Versions(c *gin.Context) {
	versions, err := h.scheduler.Versions(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// PublishedGrid godoc
// @Summary Return the currently published timetable grid for a batch
// @Tags Scheduler
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/batches/{batchId}/timetable [get]
func (h *ScheduleGeneratorHandler) PublishedGrid(c *gin.Context) {
	grid, err := h.scheduler.PublishedGrid(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Grid godoc
// @Summary Return one timetable version's grid
// @Tags Scheduler
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/timetables/{id} [get]
func (h *ScheduleGeneratorHandler) Grid(c *gin.Context) {
	grid, err := h.scheduler.Grid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// DeleteTimetable godoc
// @Summary Delete a timetable version
// @Tags Scheduler
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /scheduler/timetables/{id} [delete]
func (h *ScheduleGeneratorHandler) DeleteTimetable(c *gin.Context) {
	if err := h.scheduler.DeleteTimetable(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportTimetable godoc
// @Summary Export a timetable version to CSV or PDF
// @Tags Scheduler
// @Produce json
// @Param id path string true "Timetable ID"
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /scheduler/timetables/{id}/export [get]
func (h *ScheduleGeneratorHandler) ExportTimetable(c *gin.Context) {
	timetable, err := h.scheduler.Timetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	format := models.ExportFormat(c.DefaultQuery("format", string(models.ExportFormatCSV)))
	result, err := h.export.Generate(timetable, format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate export"))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
