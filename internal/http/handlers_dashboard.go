package http

import (
	"encoding/json"
	"net/http"

	"somiti/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Summary())
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	points := s.ledger.CategoryChart(s.language(r))
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (s *Server) handleWeeklyChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	points := s.ledger.WeeklyChart(s.language(r))
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// handleAdvice always answers 200: the adviser substitutes a localized
// fallback line for every failure mode.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Language string `json:"language"`
	}
	// An empty or malformed body just means "use the stored language".
	_ = json.NewDecoder(r.Body).Decode(&req)

	lang := s.language(r)
	if req.Language != "" {
		lang = core.Language(req.Language).Normalize()
	}

	advice := s.adviser.Tips(r.Context(), s.ledger.Transactions(), lang)
	writeJSON(w, http.StatusOK, map[string]string{"advice": advice})
}
