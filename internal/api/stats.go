package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var errBadDate = errors.New("invalid date")

type statsQuery struct {
	url      string
	platform string
	from     *time.Time
	to       *time.Time
}

// parseStatsQuery reads url, platform, start_date and end_date. end_date is inclusive, so
// the window's upper bound is the start of the following day.
func parseStatsQuery(q url.Values) (statsQuery, error) {
	out := statsQuery{
		url:      strings.TrimSpace(q.Get("url")),
		platform: strings.ToLower(strings.TrimSpace(q.Get("platform"))),
	}
	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return statsQuery{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", errBadDate)
		}
		out.from = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return statsQuery{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", errBadDate)
		}
		t = t.Add(24 * time.Hour)
		out.to = &t
	}
	return out, nil
}

func (s *Server) statsSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.stats.Summary(r.Context(), q.url, q.platform, q.from, q.to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": summary})
}

func (s *Server) statsTimeSeries(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.stats.TimeSeries(r.Context(), q.url, q.platform, q.from, q.to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "timeseries": points})
}

func (s *Server) platformOverview(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.stats.PlatformOverview(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "platforms": platforms})
}
