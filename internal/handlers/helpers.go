package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"healthchat-relay/internal/middleware"
	"healthchat-relay/internal/models"
	"healthchat-relay/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeText answers with a bare text body, the shape browser clients of the
// chat endpoint expect for input problems.
func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

func errorResp(message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     message,
		RequestID: middleware.GetRequestID(r.Context()),
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	var upstreamErr *services.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		writeText(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &upstreamErr):
		slog.Error("upstream model failure",
			"provider", upstreamErr.Provider,
			"request_id", middleware.GetRequestID(r.Context()),
			"err", upstreamErr.Err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResp(upstreamErr.Error(), r))
	default:
		slog.Error("request failed", "request_id", middleware.GetRequestID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp(err.Error(), r))
	}
}
