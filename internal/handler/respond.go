package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/backend"
	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/repository"
	"github.com/Dan9191/field-ledger/internal/service"
	"github.com/Dan9191/field-ledger/internal/session"
	"github.com/Dan9191/field-ledger/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// errorResponse maps an error to a status and a message fit for the driver
func errorResponse(err error) (int, errorBody) {
	var verr *validation.ValidationError
	var stockErr *ledger.StockLimitError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Error: verr.Message, Field: verr.Field}
	case errors.As(err, &stockErr):
		return http.StatusUnprocessableEntity, errorBody{
			Error: fmt.Sprintf("Cannot add %s KG. Only %s KG available.",
				ledger.FormatAmount(stockErr.Increment), ledger.FormatAmount(stockErr.Available)),
			Field: "Weight",
		}
	case errors.Is(err, service.ErrDraftNotFound):
		return http.StatusNotFound, errorBody{Error: "Sale not found."}
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "Customer not found"}
	case errors.Is(err, service.ErrSubmissionInFlight), errors.Is(err, repository.ErrDuplicateSubmission):
		return http.StatusConflict, errorBody{Error: "This entry has already been submitted."}
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrNoToken), errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusUnauthorized, errorBody{Error: "Please log in."}
	case errors.Is(err, service.ErrSlipUpload):
		return http.StatusBadGateway, errorBody{Error: "Image upload failed. Please try again."}
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Message != "":
		return http.StatusBadRequest, errorBody{Error: apiErr.Message}
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, errorBody{Error: "Failed to save entry."}
	}
	return http.StatusInternalServerError, errorBody{Error: "Something went wrong."}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	entry := h.log.WithFields(logrus.Fields{"path": r.URL.Path, "status": status})
	if status >= 500 {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Debugf("Request rejected: %v", err)
	}
	writeJSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body."})
		return false
	}
	return true
}

// idempotencyKey reads the Idempotency-Key header, or makes a fresh key
func idempotencyKey(r *http.Request) string {
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		return k
	}
	return service.NewIdempotencyKey()
}
