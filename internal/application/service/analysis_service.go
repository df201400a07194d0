package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/export"
	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/application/pipeline"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/logging"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// JobStatus represents the current state of an analysis job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Progress phases
const (
	PhasePending      = "pending"
	PhaseInitializing = "initializing"
	PhaseFetching     = "fetching"
	PhaseWriting      = "writing"
	PhaseCompleted    = "completed"
	PhaseFailed       = "failed"
	PhaseCancelled    = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress updates
	// before being considered stale. At the default offers rate one ASIN takes
	// a few seconds, so a silent job is hung.
	DefaultJobStaleThreshold = 15 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = 6 * time.Hour

	// DefaultJobRetention is how long finished jobs stay queryable in memory
	DefaultJobRetention = 24 * time.Hour
)

// ErrJobNotFound is returned for unknown job IDs
var ErrJobNotFound = errors.New("job not found")

// ErrAnalysisRunning is returned when an analysis is already in progress
var ErrAnalysisRunning = errors.New("an analysis is already running")

// ErrOutputPathOutsideDir is returned for output paths that resolve outside
// the configured output directory
var ErrOutputPathOutsideDir = errors.New("output path must be inside the output directory")

// configurable is implemented by fetchers that can report missing credentials
type configurable interface {
	Configured() bool
}

// AnalysisRequest holds parameters for starting an analysis.
type AnalysisRequest struct {
	Identifiers []string
	OutputPath  string // Relative to the output dir; defaults to a timestamped file there
	Verbose     bool
}

// AnalysisProgress holds real-time progress information.
type AnalysisProgress struct {
	CurrentPhase string
	Total        int
	Processed    int
	CurrentASIN  string
	Message      string
	LastUpdate   time.Time
}

// AnalysisJob represents a running or finished analysis. Its ID is also the
// run ID recorded in storage.
type AnalysisJob struct {
	ID          string
	Status      JobStatus
	Request     AnalysisRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    AnalysisProgress
	Summary     *pipeline.Summary
	Error       error
	cancelFunc  context.CancelFunc
}

// AnalysisService runs analyses in the background, one at a time.
type AnalysisService struct {
	cfg     *config.Config
	fetcher pipeline.Fetcher
	sink    pipeline.Sink
	storage storage.Repository
	logger  *slog.Logger

	// Job management
	jobs      map[string]*AnalysisJob
	jobsMutex sync.RWMutex

	// ID of the job holding the run slot, empty when idle
	running    string
	runningMux sync.Mutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewAnalysisService creates a new analysis service. cfg and store may be nil.
func NewAnalysisService(
	cfg *config.Config,
	fetcher pipeline.Fetcher,
	sink pipeline.Sink,
	store storage.Repository,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		cfg:     cfg,
		fetcher: fetcher,
		sink:    sink,
		storage: store,
		logger:  logger,
		jobs:    make(map[string]*AnalysisJob),
	}
}

// StartAnalysis starts a new analysis job asynchronously.
// The passed context is NOT used as the parent for the background job; use
// CancelAnalysis to stop it.
//
// It fails with spapi.ErrCredentialsNotConfigured when the fetcher has no
// credentials, and with ErrOutputPathOutsideDir when OutputPath escapes the
// output directory.
func (s *AnalysisService) StartAnalysis(_ context.Context, req AnalysisRequest) (string, error) {
	if len(req.Identifiers) == 0 {
		return "", pipeline.ErrNoIdentifiers
	}
	if c, ok := s.fetcher.(configurable); ok && !c.Configured() {
		return "", spapi.ErrCredentialsNotConfigured
	}

	if req.OutputPath == "" {
		req.OutputPath = export.DefaultOutputPath(s.outputDir(), time.Now())
	} else {
		resolved, err := ResolveOutputPath(s.outputDir(), req.OutputPath)
		if err != nil {
			return "", err
		}
		req.OutputPath = resolved
	}

	jobID := uuid.NewString()
	if !s.tryAcquire(jobID) {
		return "", ErrAnalysisRunning
	}

	jobCtx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	job := &AnalysisJob{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  now,
		cancelFunc: cancel,
		Progress: AnalysisProgress{
			CurrentPhase: PhasePending,
			Total:        len(req.Identifiers),
			LastUpdate:   now,
		},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job)

	s.logger.Info("analysis job started",
		"job_id", jobID,
		"identifiers", len(req.Identifiers),
		"output_path", req.OutputPath,
	)

	return jobID, nil
}

// GetJob returns a snapshot of a job.
func (s *AnalysisService) GetJob(jobID string) (*AnalysisJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	snapshot := *job
	return &snapshot, nil
}

// ListActiveJobs returns all running or pending jobs.
func (s *AnalysisService) ListActiveJobs() []*AnalysisJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*AnalysisJob
	for _, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			snapshot := *job
			active = append(active, &snapshot)
		}
	}
	return active
}

// ListAllJobs returns every job still held in memory.
func (s *AnalysisService) ListAllJobs() []*AnalysisJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*AnalysisJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

// CancelAnalysis cancels a running job. The pipeline still writes the
// partial results.
func (s *AnalysisService) CancelAnalysis(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = PhaseCancelled
	job.Progress.LastUpdate = now

	s.logger.Info("analysis job cancelled", "job_id", jobID)
	return nil
}

// runJob executes the analysis in a background goroutine.
func (s *AnalysisService) runJob(ctx context.Context, job *AnalysisJob) {
	defer s.release(job.ID)

	s.updateJob(job.ID, func(j *AnalysisJob) {
		if j.Status == StatusPending {
			j.Status = StatusRunning
			j.Progress.CurrentPhase = PhaseInitializing
		}
	})

	p := pipeline.New(s.fetcher, s.sink,
		pipeline.WithLogger(s.jobLogger(job.Request.Verbose)),
		pipeline.WithRepository(s.storage),
		pipeline.WithRunID(job.ID),
		pipeline.WithSource("api"),
	)

	summary, err := p.Run(ctx, pipeline.RunOptions{
		Identifiers: job.Request.Identifiers,
		OutputPath:  job.Request.OutputPath,
		Progress: func(update pipeline.ProgressUpdate) {
			s.updateJobProgress(job.ID, update)
		},
	})

	if err != nil {
		if ctx.Err() != nil {
			// Status was already set by CancelAnalysis or stale handling
			s.updateJob(job.ID, func(j *AnalysisJob) { j.Summary = summary })
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, summary)
}

func (s *AnalysisService) jobLogger(verbose bool) *slog.Logger {
	if s.cfg == nil {
		return s.logger
	}
	loggingCfg := s.cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	return logging.NewLoggerWithSystem(loggingCfg, "analysis")
}

func (s *AnalysisService) outputDir() string {
	if s.cfg != nil && s.cfg.Output.Dir != "" {
		return s.cfg.Output.Dir
	}
	return config.DefaultOutputDir
}

// ResolveOutputPath places requested inside dir. Relative paths are joined
// to dir; absolute paths are accepted only when they already lie inside it.
func ResolveOutputPath(dir, requested string) (string, error) {
	candidate := requested
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(dir, candidate)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	absPath, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutputPathOutsideDir, requested)
	}
	return filepath.Clean(candidate), nil
}

// updateJob applies fn to a job under the jobs lock
func (s *AnalysisService) updateJob(jobID string, fn func(*AnalysisJob)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		fn(job)
		job.Progress.LastUpdate = time.Now()
	}
}

// updateJobProgress updates job progress from the pipeline callback.
func (s *AnalysisService) updateJobProgress(jobID string, update pipeline.ProgressUpdate) {
	s.updateJob(jobID, func(job *AnalysisJob) {
		if job.Status != StatusRunning {
			return
		}
		job.Progress.CurrentPhase = PhaseFetching
		if update.Current == update.Total {
			job.Progress.CurrentPhase = PhaseWriting
		}
		job.Progress.Total = update.Total
		job.Progress.Processed = update.Current
		job.Progress.CurrentASIN = update.ASIN
		job.Progress.Message = update.Message
	})
}

// completeJob marks a job as completed with its summary.
func (s *AnalysisService) completeJob(jobID string, summary *pipeline.Summary) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		if job.Status != StatusRunning {
			return
		}
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Summary = summary
		job.Progress.CurrentPhase = PhaseCompleted
		job.Progress.Processed = summary.TotalCount
		job.Progress.LastUpdate = now
		s.logger.Info("analysis job completed",
			"job_id", jobID,
			"total", summary.TotalCount,
			"success", summary.SuccessCount,
			"errors", summary.ErrorCount,
			"output_path", summary.OutputPath,
		)
	}
}

// failJob marks a job as failed with an error.
func (s *AnalysisService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		job.Progress.CurrentPhase = PhaseFailed
		job.Progress.LastUpdate = now
		s.logger.Error("analysis job failed", "job_id", jobID, "error", err)
	}
}

// tryAcquire claims the single run slot for jobID.
func (s *AnalysisService) tryAcquire(jobID string) bool {
	s.runningMux.Lock()
	defer s.runningMux.Unlock()

	if s.running != "" {
		return false
	}
	s.running = jobID
	return true
}

// release frees the run slot if jobID still holds it.
func (s *AnalysisService) release(jobID string) {
	s.runningMux.Lock()
	defer s.runningMux.Unlock()

	if s.running == jobID {
		s.running = ""
	}
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *AnalysisService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old analysis jobs", "removed", removed)
	}

	return removed
}

// MarkStaleJobsAsFailed finds jobs that appear to be stuck and marks them as failed.
// A job is stale if it has run longer than maxDuration or its progress has
// not changed for staleThreshold. Its context is cancelled; the run slot is
// released by the job's goroutine once it has finished writing partial results.
func (s *AnalysisService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}

		reason := ""
		if now.Sub(job.StartedAt) > maxDuration {
			reason = fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, now.Sub(job.StartedAt).Round(time.Second))
		} else if now.Sub(job.Progress.LastUpdate) > staleThreshold {
			reason = fmt.Sprintf("no progress update for %v (threshold: %v)", now.Sub(job.Progress.LastUpdate).Round(time.Second), staleThreshold)
		}
		if reason == "" {
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}

		lastUpdate := job.Progress.LastUpdate
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		job.Progress.CurrentPhase = PhaseFailed
		job.Progress.LastUpdate = now

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"reason", reason,
			"started_at", job.StartedAt,
			"last_update", lastUpdate,
		)
		marked++
	}

	return marked
}

// IsJobStale checks if a specific job is considered stale.
func (s *AnalysisService) IsJobStale(jobID string, staleThreshold, maxDuration time.Duration) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return false
	}

	if job.Status != StatusRunning && job.Status != StatusPending {
		return false
	}

	now := time.Now()
	return now.Sub(job.StartedAt) > maxDuration || now.Sub(job.Progress.LastUpdate) > staleThreshold
}

// StartBackgroundCleanup periodically fails stale jobs and drops old finished
// ones. Call StopBackgroundCleanup to stop it.
func (s *AnalysisService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", DefaultJobStaleThreshold,
			"max_duration", DefaultJobMaxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				if marked := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); marked > 0 {
					s.logger.Info("marked stale jobs as failed", "count", marked)
				}
				s.CleanupOldJobs(DefaultJobRetention)
			}
		}
	}()
}

// StopBackgroundCleanup stops the cleanup goroutine and waits for it to exit.
func (s *AnalysisService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}

	close(s.cleanupStop)
	<-s.cleanupDone
}
