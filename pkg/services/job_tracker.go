package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"stresstest-api/pkg/models"
)

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// StressTestRunner is the pipeline capability the tracker schedules.
type StressTestRunner interface {
	Run(ctx context.Context, model *models.BusinessModel) (*StressTestResult, error)
}

// JobTracker owns the in-memory job store and runs one background pipeline
// execution per submission. Job records live for the process lifetime; each
// record is written by its own background goroutine until the terminal
// transition, after which it is read-only.
type JobTracker struct {
	runner  StressTestRunner
	reports *ReportStore

	mu       sync.RWMutex
	jobs     map[string]*models.Job
	analyses map[string]*models.VulnerabilityAnalysis
}

// NewJobTracker creates a job tracker.
func NewJobTracker(runner StressTestRunner, reports *ReportStore) *JobTracker {
	return &JobTracker{
		runner:   runner,
		reports:  reports,
		jobs:     make(map[string]*models.Job),
		analyses: make(map[string]*models.VulnerabilityAnalysis),
	}
}

// Submit registers a new pending job and schedules the pipeline in the
// background. It returns the job id immediately without waiting on the
// pipeline.
func (jt *JobTracker) Submit(model *models.BusinessModel) string {
	jobID := uuid.New().String()
	job := &models.Job{
		ID:        jobID,
		Status:    models.JobStatusPending,
		StartedAt: time.Now(),
	}

	jt.mu.Lock()
	jt.jobs[jobID] = job
	jt.mu.Unlock()

	go jt.runAnalysis(jobID, model)
	return jobID
}

// runAnalysis executes the pipeline for one job and applies its single
// terminal transition. Background execution never escapes unhandled: any
// failure, including a panic, lands in the job record as a failure reason.
func (jt *JobTracker) runAnalysis(jobID string, model *models.BusinessModel) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Job %s panicked: %v", jobID, r)
			jt.fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	result, err := jt.runner.Run(context.Background(), model)
	if err != nil {
		jt.fail(jobID, err.Error())
		return
	}

	filename, err := jt.reports.SaveReport(result.Report, model.Name, time.Now())
	if err != nil {
		jt.fail(jobID, err.Error())
		return
	}

	now := time.Now()
	jt.mu.Lock()
	if job, ok := jt.jobs[jobID]; ok {
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &now
		job.ReportURL = "/api/v1/reports/" + filename
		job.ReportFile = filename
	}
	jt.analyses[filename] = result.Analysis
	jt.mu.Unlock()

	log.Printf("Job %s completed, report saved as %s", jobID, filename)
}

func (jt *JobTracker) fail(jobID, reason string) {
	now := time.Now()
	jt.mu.Lock()
	defer jt.mu.Unlock()
	if job, ok := jt.jobs[jobID]; ok && job.Status == models.JobStatusPending {
		job.Status = models.JobStatusFailed
		job.FailedAt = &now
		job.Error = reason
	}
}

// GetStatus returns a snapshot of a job record.
func (jt *JobTracker) GetStatus(jobID string) (*models.Job, error) {
	jt.mu.RLock()
	defer jt.mu.RUnlock()

	job, ok := jt.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// GetAnalysis returns the combined analysis behind a completed job's report
// filename, for the risk-register export.
func (jt *JobTracker) GetAnalysis(filename string) (*models.VulnerabilityAnalysis, bool) {
	jt.mu.RLock()
	defer jt.mu.RUnlock()

	analysis, ok := jt.analyses[filename]
	return analysis, ok
}
