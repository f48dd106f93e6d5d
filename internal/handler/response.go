package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"squadhub/internal/domain"
	"squadhub/internal/middleware"
	apperrors "squadhub/pkg/errors"
	"squadhub/pkg/logger"
)

// maxBodyBytes caps request bodies; chat text is the largest payload
const maxBodyBytes = 64 << 10

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes err as an ErrorResponse. Server-side failures are
// logged with their cause; client errors only at debug.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := apperrors.As(err)
	reqLog := logger.FromContext(r.Context(), log).WithFields(map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": appErr.StatusCode,
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		reqLog.WithError(appErr).Error("Request failed")
	} else {
		reqLog.WithField("error_type", appErr.Type).Debug("Request refused")
	}

	response := &apperrors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = middleware.RequestIDFrom(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	respondJSON(w, appErr.StatusCode, response)
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("Invalid request body", map[string]interface{}{"body": err.Error()})
	}
	return nil
}

// identity returns the caller resolved by middleware.Identity
func identity(r *http.Request) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return domain.Identity{}, apperrors.NewAuthenticationError("Caller identity is required")
	}
	return id, nil
}

// intQuery parses an optional non-negative integer query parameter
func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(key+" must be a non-negative integer", nil)
	}
	return n, nil
}
