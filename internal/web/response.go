// Package web holds the HTTP boundary shared by every service: JSON responses,
// the error envelope and panic recovery.
package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/zakup/internal/apperr"
)

const internalErrorMessage = "Erreur interne du serveur"

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError converts err into the error envelope. Errors that are not
// *apperr.Error are logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		logger.Error("unhandled error", "error", err)
		appErr = &apperr.Error{Status: http.StatusInternalServerError, Message: internalErrorMessage}
	}
	WriteJSON(w, logger, appErr.Status, ErrorResponse{
		Success:    false,
		Message:    appErr.Message,
		StatusCode: appErr.Status,
	})
}

// DecodeJSON decodes the request body into dst, reporting malformed bodies as
// a 400.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("Corps de requête invalide")
	}
	return nil
}

// Recover turns a panic in next into a 500 envelope.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				WriteError(w, logger, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
