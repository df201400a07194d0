package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/api/dto"
	"github.com/eshaffer321/buybox-analyzer/internal/application/service"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
)

// maxIdentifiersPerRequest bounds one API-started analysis
const maxIdentifiersPerRequest = 500

// AnalysisHandler handles analysis job HTTP requests.
type AnalysisHandler struct {
	*Base
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		Base:            &Base{},
		analysisService: analysisService,
	}
}

// Start handles POST /api/analyses - starts a new analysis job.
func (h *AnalysisHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	raw := append(req.ASINs, buybox.SplitIdentifiers(req.ASINText)...)
	asins, invalid, err := buybox.ParseIdentifiers(raw)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("at least one valid ASIN is required", invalid...))
		return
	}
	if len(asins) > maxIdentifiersPerRequest {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("too many ASINs in one request"))
		return
	}

	jobID, err := h.analysisService.StartAnalysis(r.Context(), service.AnalysisRequest{
		Identifiers: asins,
		OutputPath:  req.OutputPath,
		Verbose:     req.Verbose,
	})
	if err != nil {
		if errors.Is(err, service.ErrAnalysisRunning) {
			h.WriteError(w, http.StatusConflict, dto.NewAPIError(dto.ErrCodeConflict, err.Error()))
			return
		}
		if errors.Is(err, service.ErrOutputPathOutsideDir) {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error(), req.OutputPath))
			return
		}
		if errors.Is(err, spapi.ErrCredentialsNotConfigured) {
			h.WriteError(w, http.StatusServiceUnavailable, dto.NewAPIError(dto.ErrCodeNotConfigured, err.Error()))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.StartAnalysisResponse{
		JobID:       jobID,
		Status:      string(service.StatusPending),
		Identifiers: asins,
		Ignored:     invalid,
	}
	if job, err := h.analysisService.GetJob(jobID); err == nil {
		response.OutputPath = job.Request.OutputPath
	}

	h.WriteJSON(w, http.StatusAccepted, response)
}

// Get handles GET /api/analyses/{jobId} - gets analysis job status.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.analysisService.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("analysis job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toAnalysisJobResponse(job))
}

// ListActive handles GET /api/analyses/active - lists running jobs.
func (h *AnalysisHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, toJobList(h.analysisService.ListActiveJobs()))
}

// ListAll handles GET /api/analyses - lists all jobs held in memory.
func (h *AnalysisHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, toJobList(h.analysisService.ListAllJobs()))
}

// Cancel handles DELETE /api/analyses/{jobId} - cancels an analysis job.
func (h *AnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.analysisService.CancelAnalysis(jobID); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("analysis job"))
			return
		}
		h.WriteError(w, http.StatusConflict, dto.NewAPIError(dto.ErrCodeCancelFailed, err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Analysis job cancelled; partial results will still be written",
	})
}

func toJobList(jobs []*service.AnalysisJob) dto.AnalysisJobListResponse {
	response := dto.AnalysisJobListResponse{
		Jobs:  make([]dto.AnalysisJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toAnalysisJobResponse(job))
	}
	return response
}

// toAnalysisJobResponse converts a service model to an API response.
func toAnalysisJobResponse(job *service.AnalysisJob) dto.AnalysisJobResponse {
	response := dto.AnalysisJobResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		Identifiers: len(job.Request.Identifiers),
		OutputPath:  job.Request.OutputPath,
		StartedAt:   formatTime(job.StartedAt),
		CompletedAt: formatTimePtr(job.CompletedAt),
		Progress: dto.AnalysisProgressResponse{
			CurrentPhase: job.Progress.CurrentPhase,
			Total:        job.Progress.Total,
			Processed:    job.Progress.Processed,
			CurrentASIN:  job.Progress.CurrentASIN,
			Message:      job.Progress.Message,
			LastUpdate:   formatTime(job.Progress.LastUpdate),
		},
	}

	if s := job.Summary; s != nil {
		response.Summary = &dto.AnalysisSummaryResponse{
			Status:       s.Status,
			OutputPath:   s.OutputPath,
			TotalCount:   s.TotalCount,
			SuccessCount: s.SuccessCount,
			ErrorCount:   s.ErrorCount,
			DurationMs:   s.Duration.Milliseconds(),
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
