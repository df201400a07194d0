package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/buybox-analyzer/internal/api/dto"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// RunsHandler serves the recorded run history.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20, 500)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, toRunResponse(*run))
}

// Items handles GET /api/runs/{id}/items - per-ASIN outcomes of a run.
func (h *RunsHandler) Items(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	items, err := h.repo.ListRunItems(run.ID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunItemListResponse{
		RunID: run.ID,
		Items: make([]dto.RunItemResponse, 0, len(items)),
		Count: len(items),
	}
	for _, item := range items {
		response.Items = append(response.Items, dto.RunItemResponse{
			Position:     item.Position,
			ASIN:         item.ASIN,
			Status:       item.Status,
			OfferCount:   item.OfferCount,
			HasWinner:    item.HasWinner,
			ErrorMessage: item.ErrorMessage,
			ProcessedAt:  formatTime(item.ProcessedAt),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Calls handles GET /api/runs/{id}/calls - upstream attempts made by a run.
func (h *RunsHandler) Calls(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	calls, err := h.repo.GetAPICallsByRunID(run.ID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.APICallListResponse{
		RunID: run.ID,
		Calls: make([]dto.APICallResponse, 0, len(calls)),
		Count: len(calls),
	}
	for _, call := range calls {
		response.Calls = append(response.Calls, dto.APICallResponse{
			ID:         call.ID,
			ASIN:       call.ASIN,
			Operation:  call.Operation,
			Attempt:    call.Attempt,
			StatusCode: call.StatusCode,
			DurationMs: call.DurationMs,
			Error:      call.Error,
			CalledAt:   formatTime(call.CalledAt),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// lookupRun resolves {id}, writing the error response when it fails
func (h *RunsHandler) lookupRun(w http.ResponseWriter, r *http.Request) (*storage.Run, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return nil, false
	}

	run, err := h.repo.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return nil, false
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return nil, false
	}
	return run, true
}

// toRunResponse converts a storage Run to an API response.
func toRunResponse(run storage.Run) dto.RunResponse {
	response := dto.RunResponse{
		ID:              run.ID,
		Source:          run.Source,
		MarketplaceID:   run.MarketplaceID,
		IdentifierCount: run.IdentifierCount,
		Status:          run.Status,
		OutputPath:      run.OutputPath,
		TotalCount:      run.TotalCount,
		SuccessCount:    run.SuccessCount,
		ErrorCount:      run.ErrorCount,
		ErrorMessage:    run.ErrorMessage,
		StartedAt:       formatTime(run.StartedAt),
	}
	if run.CompletedAt != nil {
		response.CompletedAt = formatTime(*run.CompletedAt)
	}
	return response
}
