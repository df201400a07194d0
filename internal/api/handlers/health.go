package handlers

import (
	"net/http"

	"github.com/eshaffer321/buybox-analyzer/internal/api/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
	configured func() bool
}

// NewHealthHandler creates a new health handler. configured reports whether
// SP-API credentials are set; nil means unknown and is reported as false.
func NewHealthHandler(configured func() bool) *HealthHandler {
	return &HealthHandler{Base: &Base{}, configured: configured}
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ok := h.configured != nil && h.configured()
	h.WriteJSON(w, http.StatusOK, dto.NewHealthResponse(ok))
}
