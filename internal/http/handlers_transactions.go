package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"somiti/internal/core"
	"somiti/internal/ledger"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.addTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = core.MonthAll
	}

	txs := s.ledger.Filter(query, month)
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (s *Server) addTransaction(w http.ResponseWriter, r *http.Request) {
	var req ledger.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}

	tx, err := s.ledger.Add(r.Context(), req)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_transaction", err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to save transaction", "error", err)
		writeError(w, http.StatusBadGateway, "save_failed", saveFailedMessage(s.language(r)))
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown transaction")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := s.ledger.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found", "unknown transaction")
			return
		}
		writeJSON(w, http.StatusOK, tx)
	case http.MethodDelete:
		if err := s.ledger.Delete(r.Context(), id); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "unknown transaction")
				return
			}
			slog.ErrorContext(r.Context(), "Failed to delete transaction", "id", id, "error", err)
			writeError(w, http.StatusBadGateway, "delete_failed", deleteFailedMessage(s.language(r)))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, DELETE")
	}
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/receipts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown receipt")
		return
	}

	tx, err := s.ledger.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown receipt")
		return
	}

	receipt := core.BuildReceipt(tx, s.societyName, s.language(r))
	writeJSON(w, http.StatusOK, receipt)
}

// isValidationError distinguishes bad input from a storage problem so the
// client gets a 422 instead of a misleading gateway error.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyTitle, core.ErrInvalidQuantity, core.ErrInvalidAmount,
		core.ErrNoItems, core.ErrInvalidDate, core.ErrUnknownCategory,
		core.ErrUnknownType, core.ErrUnknownPayment,
		core.ErrItemTotalDrift, core.ErrGrandTotalDrift,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
