package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stresstest-api/pkg/models"
	"stresstest-api/pkg/services"
)

// StressTestHandler exposes the asynchronous stress-test API: submit a
// business model, poll job status, fetch the finished report.
type StressTestHandler struct {
	tracker *services.JobTracker
	reports *services.ReportStore
}

// NewStressTestHandler creates a stress test handler.
func NewStressTestHandler(tracker *services.JobTracker, reports *services.ReportStore) *StressTestHandler {
	return &StressTestHandler{
		tracker: tracker,
		reports: reports,
	}
}

// AnalyzeBusinessModel handles POST /analyze. It validates the submitted
// business model, registers a job, and returns its id immediately; the
// pipeline runs in the background.
func (h *StressTestHandler) AnalyzeBusinessModel(c *gin.Context) {
	var model models.BusinessModel
	if err := c.ShouldBindJSON(&model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business model: " + err.Error()})
		return
	}

	jobID := h.tracker.Submit(&model)

	c.JSON(http.StatusOK, models.StressTestResponse{
		JobID:  jobID,
		Status: string(models.JobStatusPending),
	})
}

// GetJobStatus handles GET /status/:job_id.
func (h *StressTestHandler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.tracker.GetStatus(jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.StressTestResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		ReportURL: job.ReportURL,
	})
}

// GetReport handles GET /reports/:filename and returns the markdown content
// of a persisted report.
func (h *StressTestHandler) GetReport(c *gin.Context) {
	filename := c.Param("filename")

	content, err := h.reports.ReadReport(filename)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}

// GetRiskRegister handles GET /reports/:filename/xlsx and streams the
// report's vulnerability analysis as an Excel risk register.
func (h *StressTestHandler) GetRiskRegister(c *gin.Context) {
	filename := c.Param("filename")

	analysis, ok := h.tracker.GetAnalysis(filename)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	workbook, err := services.BuildRiskRegister(analysis)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build risk register: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := workbook.Write(c.Writer); err != nil {
		// Headers are already sent, so the error can only be logged
		_ = c.Error(err)
	}
}

// HealthCheck responds to external health checkers.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Business Model Stress Tester API",
	})
}
