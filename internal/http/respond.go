package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"somiti/internal/core"
)

// errorBody is the JSON error envelope every failing endpoint returns.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// User-facing failure messages mirror the alerts the society app shows. The
// underlying error goes to the log, never to the client.
func saveFailedMessage(lang core.Language) string {
	if lang.Normalize() == core.LangBengali {
		return "তথ্য সেভ করতে সমস্যা হয়েছে।"
	}
	return "Error saving to cloud."
}

func deleteFailedMessage(lang core.Language) string {
	if lang.Normalize() == core.LangBengali {
		return "মুছে ফেলতে সমস্যা হয়েছে।"
	}
	return "Error deleting from cloud."
}
