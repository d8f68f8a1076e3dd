package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"campus-mobility/internal/apperr"
	"campus-mobility/pkg/logger"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as {"error": ..., "code": ...}. Internal causes are
// logged and replaced with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	status := apperr.Status(e)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", e.Code),
			zap.Error(err),
		)
	}
	JSON(w, status, map[string]string{"error": e.Message, "code": e.Code})
}

// Decode reads a JSON body into dst, answering 400 on failure.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Error(w, r, apperr.Validation("invalid body"))
		return false
	}
	return true
}
