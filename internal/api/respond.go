package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// statusFor maps service errors to HTTP status codes. Timeouts inside a classified scrape
// failure keep the scrape status; 504 is reserved for the request's own deadline and for
// unclassified deadline errors.
func statusFor(ctx context.Context, err error) int {
	var se *scraper.Error
	switch {
	case errors.Is(err, storage.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &se):
		return scraper.StatusOf(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return scraper.StatusOf(err)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(r.Context(), err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", requestID(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request rejected", fields...)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Status: status})
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
}
