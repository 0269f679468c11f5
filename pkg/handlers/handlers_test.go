package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stresstest-api/pkg/models"
	"stresstest-api/pkg/services"
)

type stubRunner struct {
	result *services.StressTestResult
	err    error
}

func (s *stubRunner) Run(_ context.Context, _ *models.BusinessModel) (*services.StressTestResult, error) {
	return s.result, s.err
}

func successResult() *services.StressTestResult {
	analysis := models.NewVulnerabilityAnalysis()
	analysis.Scenarios["market"] = map[string]models.ScenarioAnalysis{
		"Demand drops by 40%": {
			Vulnerabilities:  []string{"single revenue stream"},
			Impact:           "high",
			Likelihood:       "medium",
			RiskScore:        7,
			ContingencyPlans: []string{"diversify offerings"},
		},
	}
	return &services.StressTestResult{
		Report:    "# Stress Test Report\n\nAcme holds up poorly under pressure.",
		Scenarios: models.NewScenarioSet(),
		Analysis:  analysis,
	}
}

func newTestRouter(t *testing.T, runner services.StressTestRunner, apiKey string) (*gin.Engine, *services.JobTracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reportStore, err := services.NewReportStore(t.TempDir())
	require.NoError(t, err)

	tracker := services.NewJobTracker(runner, reportStore)
	handler := NewStressTestHandler(tracker, reportStore)

	authMiddleware := func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid API key"})
			return
		}
		c.Next()
	}

	r := gin.New()
	r.GET("/health", HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		v1.POST("/analyze", handler.AnalyzeBusinessModel)
		v1.GET("/status/:job_id", handler.GetJobStatus)
		v1.GET("/reports/:filename", handler.GetReport)
		v1.GET("/reports/:filename/xlsx", handler.GetRiskRegister)
	}

	return r, tracker
}

func waitForCompletion(t *testing.T, tracker *services.JobTracker, jobID string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := tracker.GetStatus(jobID)
		require.NoError(t, err)
		if job.Status != models.JobStatusPending {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal status in time")
	return nil
}

const validModelJSON = `{
	"name": "Acme",
	"industry": "Retail",
	"target_market": "Urban professionals",
	"value_proposition": "Same-day delivery",
	"revenue_streams": ["Subscriptions"],
	"cost_structure": ["Warehousing", "Couriers"],
	"key_resources": ["Fulfillment network"],
	"key_partners": ["Local suppliers"],
	"competitors": ["BigBox Inc"],
	"current_challenges": "Rising delivery costs"
}`

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "Business Model Stress Tester API")
}

func TestAuthMiddlewareRejectsWrongKey(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(validModelJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "wrong")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestAuthMiddlewareAcceptsCorrectKey(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(validModelJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeReturnsPendingJob(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(validModelJSON))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.StressTestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, string(models.JobStatusPending), resp.Status)
}

func TestAnalyzeRejectsIncompleteModel(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(`{"name": "Acme"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid business model")
}

func TestStatusAndReportLifecycle(t *testing.T) {
	r, tracker := newTestRouter(t, &stubRunner{result: successResult()}, "")

	submit := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(validModelJSON))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(submit, req)
	require.Equal(t, http.StatusOK, submit.Code)

	var submitted models.StressTestResponse
	require.NoError(t, json.Unmarshal(submit.Body.Bytes(), &submitted))

	job := waitForCompletion(t, tracker, submitted.JobID)
	require.Equal(t, models.JobStatusCompleted, job.Status)

	status := httptest.NewRecorder()
	r.ServeHTTP(status, httptest.NewRequest("GET", "/api/v1/status/"+submitted.JobID, nil))
	require.Equal(t, http.StatusOK, status.Code)

	var statusResp models.StressTestResponse
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &statusResp))
	assert.Equal(t, string(models.JobStatusCompleted), statusResp.Status)
	require.True(t, strings.HasPrefix(statusResp.ReportURL, "/api/v1/reports/"))

	report := httptest.NewRecorder()
	r.ServeHTTP(report, httptest.NewRequest("GET", statusResp.ReportURL, nil))
	require.Equal(t, http.StatusOK, report.Code)

	var reportResp map[string]string
	require.NoError(t, json.Unmarshal(report.Body.Bytes(), &reportResp))
	assert.Contains(t, reportResp["content"], "Stress Test Report")
}

func TestRiskRegisterDownload(t *testing.T) {
	r, tracker := newTestRouter(t, &stubRunner{result: successResult()}, "")

	submit := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(validModelJSON))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(submit, req)

	var submitted models.StressTestResponse
	require.NoError(t, json.Unmarshal(submit.Body.Bytes(), &submitted))

	job := waitForCompletion(t, tracker, submitted.JobID)
	require.Equal(t, models.JobStatusCompleted, job.Status)

	filename := strings.TrimPrefix(job.ReportURL, "/api/v1/reports/")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/reports/"+filename+"/xlsx", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), filename+".xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestStatusUnknownJob(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/status/no-such-job", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Job not found")
}

func TestReportNotFound(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/reports/missing_20250101_000000.md", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Report not found")
}

func TestRiskRegisterNotFound(t *testing.T) {
	r, _ := newTestRouter(t, &stubRunner{result: successResult()}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/reports/missing_20250101_000000.md/xlsx", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFailedJobReportsError(t *testing.T) {
	r, tracker := newTestRouter(t, &stubRunner{err: assert.AnError}, "")

	submit := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(validModelJSON))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(submit, req)

	var submitted models.StressTestResponse
	require.NoError(t, json.Unmarshal(submit.Body.Bytes(), &submitted))

	job := waitForCompletion(t, tracker, submitted.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestMonitoringLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	monitoring := services.NewMonitoringService()
	handler := NewMonitoringHandler(monitoring)

	r := gin.New()
	r.Use(monitoring.LoggingMiddleware())
	r.GET("/health", HealthCheck)
	r.GET("/api/v1/monitoring/logs", handler.GetLogs)

	// Generate some traffic for the dashboard to aggregate
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/monitoring/logs?period=1h", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var data services.DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, 3, data.Endpoints["/health"])
	assert.Len(t, data.RequestsOverTime, 1)
}
