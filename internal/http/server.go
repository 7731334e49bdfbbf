// Package http is the JSON API of the society ledger. Handlers stay thin:
// they parse, call the ledger or a gateway, and encode the result.
package http

import (
	"context"
	"net/http"

	"somiti/internal/auth"
	"somiti/internal/core"
	"somiti/internal/ledger"
	"somiti/internal/middleware/trace"
)

// Ledger is the slice of the ledger service the handlers call.
type Ledger interface {
	Add(ctx context.Context, req ledger.AddRequest) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
	Get(id string) (core.Transaction, error)
	Transactions() []core.Transaction
	Summary() core.FinancialSummary
	CategoryChart(lang core.Language) []core.ChartPoint
	WeeklyChart(lang core.Language) []core.ChartPoint
	Filter(query, month string) []core.Transaction
}

// Adviser produces financial tips; it degrades internally and never errors.
type Adviser interface {
	Tips(ctx context.Context, txs []core.Transaction, lang core.Language) string
}

// PreferenceStore persists the language and theme choices.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key, fallback string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

type Server struct {
	http.Server
	ledger      Ledger
	adviser     Adviser
	authn       *auth.Authenticator
	sessions    *auth.Sessions
	prefs       PreferenceStore
	societyName string
	defaultLang core.Language
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, lg Ledger, adv Adviser, authn *auth.Authenticator, sessions *auth.Sessions, prefs PreferenceStore, societyName string, defaultLang core.Language) *Server {
	mux := http.NewServeMux()

	s := &Server{
		ledger:      lg,
		adviser:     adv,
		authn:       authn,
		sessions:    sessions,
		prefs:       prefs,
		societyName: societyName,
		defaultLang: defaultLang.Normalize(),
	}

	tracer := trace.NewMiddleware(clientIP)
	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(mux),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/charts/categories", s.handleCategoryChart)
	mux.HandleFunc("/api/charts/weekly", s.handleWeeklyChart)
	mux.HandleFunc("/api/receipts/", s.handleReceipt)
	mux.HandleFunc("/api/advice", s.handleAdvice)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/reset", s.handleReset)
	mux.HandleFunc("/api/auth/logout", s.handleLogout)
	mux.HandleFunc("/api/auth/session", s.handleSession)
	mux.HandleFunc("/api/preferences", s.handlePreferences)

	return s
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// language picks the response language: explicit query parameter first, then
// the stored preference, then the configured default.
func (s *Server) language(r *http.Request) core.Language {
	if v := r.URL.Query().Get("lang"); v != "" {
		return core.Language(v).Normalize()
	}
	if s.prefs != nil {
		if v, err := s.prefs.GetPreference(r.Context(), prefLanguage, string(s.defaultLang)); err == nil {
			return core.Language(v).Normalize()
		}
	}
	return s.defaultLang
}
