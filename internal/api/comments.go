package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/JakeFAU/social-comment-harvester/internal/service"
)

type analyzeRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Limit    int    `json:"limit"`
}

type analyzeResponse struct {
	Success  bool                      `json:"success"`
	RunID    string                    `json:"run_id"`
	Count    int                       `json:"count"`
	Comments []service.AnalyzedComment `json:"comments"`
}

type listResponse struct {
	Success        bool                      `json:"success"`
	RequestedLimit int                       `json:"requested_limit"`
	Count          int                       `json:"count"`
	Comments       []service.AnalyzedComment `json:"comments"`
}

func (s *Server) analyzeComments(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be >= 0")
		return
	}

	analysis, err := s.comments.Analyze(r.Context(), strings.TrimSpace(req.URL), req.Platform, req.Limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Success:  true,
		RunID:    analysis.RunID,
		Count:    len(analysis.Comments),
		Comments: nonNil(analysis.Comments),
	})
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	platform := strings.ToLower(strings.TrimSpace(q.Get("platform")))
	if url == "" || platform == "" {
		writeError(w, http.StatusBadRequest, "url and platform are required")
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	limit = service.ClampLimit(limit)

	comments, err := s.comments.List(r.Context(), url, platform, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Success:        true,
		RequestedLimit: limit,
		Count:          len(comments),
		Comments:       nonNil(comments),
	})
}

func nonNil(c []service.AnalyzedComment) []service.AnalyzedComment {
	if c == nil {
		return []service.AnalyzedComment{}
	}
	return c
}
