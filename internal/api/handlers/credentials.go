package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/api/dto"
)

// connectionTestTimeout bounds one credential check, including retries
const connectionTestTimeout = 30 * time.Second

// ConnectionTester verifies SP-API credentials with a live request
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
	MarketplaceID() string
}

// CredentialsHandler handles credential checks.
type CredentialsHandler struct {
	*Base
	tester ConnectionTester
}

// NewCredentialsHandler creates a new credentials handler.
func NewCredentialsHandler(tester ConnectionTester) *CredentialsHandler {
	return &CredentialsHandler{Base: &Base{}, tester: tester}
}

// Test handles POST /api/credentials/test.
func (h *CredentialsHandler) Test(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), connectionTestTimeout)
	defer cancel()

	err := h.tester.TestConnection(ctx)
	switch {
	case err == nil:
		h.WriteJSON(w, http.StatusOK, dto.ConnectionTestResponse{
			OK:            true,
			MarketplaceID: h.tester.MarketplaceID(),
			Message:       "Connection successful",
		})
	case errors.Is(err, spapi.ErrCredentialsNotConfigured):
		h.WriteError(w, http.StatusBadRequest, dto.NewAPIError(dto.ErrCodeNotConfigured, err.Error()))
	default:
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError(dto.ErrCodeConnectionFailed, err.Error()))
	}
}
