package controllers

import (
	"net/http"

	"github.com/WenFra005/pipeline-API/scheduler"
	"github.com/gin-gonic/gin"
)

// PipelineController exposes scheduler state and manual pipeline control
type PipelineController struct {
	scheduler *scheduler.Scheduler
}

// NewPipelineController creates a new pipeline controller
func NewPipelineController(sched *scheduler.Scheduler) *PipelineController {
	return &PipelineController{scheduler: sched}
}

// GetStatus returns the scheduler state and last-run metadata
// GET /api/v1/pipeline/status
func (pc *PipelineController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": pc.scheduler.Status()})
}

// TriggerRun executes one pipeline run immediately. The run is
// serialized with the scheduler loop, so it never overlaps a
// scheduled run.
// POST /api/v1/pipeline/run
func (pc *PipelineController) TriggerRun(c *gin.Context) {
	outcome, err := pc.scheduler.TriggerRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "scheduler_stopped",
			"message": "Scheduler is stopped, no further runs are allowed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"outcome": outcome.String(),
		},
	})
}
