package handlers

import (
	"errors"
	"net/http"

	"familytasks/internal/apperrors"

	"go.uber.org/zap"
)

type errorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

// respondWithError maps err to a status and error body. Anything that is not
// an apperrors.Error becomes a 500 with a generic message.
func respondWithError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		log.Error("unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    apperrors.KindUnknown.Code(),
			Message: "Internal server error",
		})
		return
	}

	status := appErr.Kind.Status()
	if status >= http.StatusInternalServerError {
		log.Error(appErr.Message,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(appErr.Err),
		)
	}

	writeJSON(w, status, errorResponse{
		Code:    appErr.Kind.Code(),
		Message: appErr.Message,
		Errors:  appErr.Fields,
	})
}
