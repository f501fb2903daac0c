package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/boddenberg/household-hub-bfa/internal/domain"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody reads an optional JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var unknownSection *domain.ErrUnknownSection
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var confirm *domain.ErrConfirmationRequired
	var application *domain.ErrApplication
	var external *domain.ErrExternalService
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &unknownSection):
		logger.Debug("unknown section", zap.String("section", unknownSection.Section))
		writeError(w, http.StatusNotFound, unknownSection.Error())
	case errors.As(err, &confirm):
		writeError(w, http.StatusPreconditionRequired, confirm.Error())
	case errors.As(err, &application):
		logger.Warn("backend rejected request", zap.Int("status", application.Status), zap.String("message", application.Message))
		writeError(w, http.StatusUnprocessableEntity, application.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, circuitOpen.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, timeout.Error())
	case errors.As(err, &external):
		logger.Error("backend unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to reach the household backend")
	default:
		logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
