package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stresstest-api/pkg/services"
)

// MonitoringHandler serves the aggregated request-log dashboard.
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler creates a monitoring handler.
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

// GetLogs returns aggregated request-log data for the dashboard.
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	periodStr := c.DefaultQuery("period", "24h")
	var hours int

	switch periodStr {
	case "1h":
		hours = 1
	case "24h":
		hours = 24
	case "7d":
		hours = 24 * 7
	default:
		hours = 24
	}

	data := h.Service.GetDashboardData(hours)
	c.JSON(http.StatusOK, data)
}
