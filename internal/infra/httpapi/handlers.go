package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"payment_batch_service/internal/app"
	"payment_batch_service/internal/domain/payment"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxBatchBodyBytes = 10 << 20

// Ingestor persists a payment batch for an authenticated organization.
type Ingestor interface {
	Ingest(ctx context.Context, orgID uuid.UUID, raw payment.RawBatch) (*app.IngestResult, error)
}

type Handler struct {
	ingestor Ingestor
	logger   *logrus.Entry
}

type createPaymentsResponse struct {
	Message string  `json:"message"`
	Count   int     `json:"count"`
	IDs     []int64 `json:"ids"`
}

// CreatePayments handles POST /payments.
func (h *Handler) CreatePayments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	log := h.logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"org_id":     orgID,
	})

	var raw payment.RawBatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBodyBytes)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON payment batch")
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), orgID, raw)
	if err != nil {
		var verrs *payment.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verrs})
		case errors.Is(err, app.ErrOwnershipMismatch):
			writeError(w, http.StatusForbidden, "payload ownerID does not match authenticated organization")
		default:
			log.WithError(err).Error("Failed to create payments")
			writeError(w, http.StatusInternalServerError, "an unexpected error occurred, please try again later")
		}
		return
	}

	writeJSON(w, http.StatusCreated, createPaymentsResponse{
		Message: "Payments created successfully.",
		Count:   result.Count,
		IDs:     result.IDs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
