package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts service errors to HTTP status codes
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *service.ValidationError
		mutationErr   *service.RemoteMutationError
		submissionErr *service.OrderSubmissionError
		fetchErr      *service.RemoteFetchError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid or missing fields",
			Code:    "validation_failed",
			Details: strings.Join(validationErr.Fields, ","),
		})
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, store.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, service.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, "submission_in_progress", err.Error())
	case errors.As(err, &submissionErr):
		msg := submissionErr.Message
		if msg == "" {
			msg = submissionErr.Error()
		}
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   msg,
			Code:    "order_rejected",
			Details: submissionErr.Details(),
		})
	case errors.As(err, &mutationErr):
		respondError(w, http.StatusBadGateway, "remote_rejected", mutationErr.Error())
	case errors.As(err, &fetchErr):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", fetchErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeJSON reads a JSON body, answering 400 itself on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
