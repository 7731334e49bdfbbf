package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"somiti/internal/auth"
	"somiti/internal/core"
	"somiti/internal/ledger"
	"somiti/internal/storage"
)

type memStore struct {
	txs       []core.Transaction
	insertErr error
	deleteErr error
}

func (m *memStore) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return m.txs, nil
}

func (m *memStore) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.txs = append(m.txs, t)
	return nil
}

func (m *memStore) DeleteTransaction(ctx context.Context, id string) error {
	return m.deleteErr
}

type memCreds struct {
	cred *storage.Credential
}

func (m *memCreds) GetCredential(ctx context.Context) (storage.Credential, error) {
	if m.cred == nil {
		return storage.Credential{}, storage.ErrNotFound
	}
	return *m.cred, nil
}

func (m *memCreds) SaveCredential(ctx context.Context, c storage.Credential) error {
	m.cred = &c
	return nil
}

func (m *memCreds) UpdatePassword(ctx context.Context, password string) error {
	if m.cred == nil {
		return storage.ErrNotFound
	}
	m.cred.Password = password
	return nil
}

type memPrefs struct {
	values map[string]string
}

func (m *memPrefs) GetPreference(ctx context.Context, key, fallback string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func (m *memPrefs) SetPreference(ctx context.Context, key, value string) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

type cannedAdviser struct{ text string }

func (c cannedAdviser) Tips(ctx context.Context, txs []core.Transaction, lang core.Language) string {
	return c.text
}

type testEnv struct {
	srv   *Server
	store *memStore
	creds *memCreds
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &memStore{}
	svc := ledger.NewService(store, nil)
	svc.Load(context.Background())
	creds := &memCreds{}
	env := &testEnv{
		srv: NewServer("127.0.0.1:0", svc, cannedAdviser{text: "Save more."},
			auth.NewAuthenticator(creds), auth.NewSessions(), &memPrefs{},
			"Unity Savings Society", core.LangEnglish),
		store: store,
		creds: creds,
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func savingsBody() ledger.AddRequest {
	return ledger.AddRequest{
		Type:          core.TypeIncome,
		PaymentMethod: core.PaymentCash,
		ReceivedFrom:  "Rahim Uddin",
		Items: []ledger.ItemInput{
			{Title: "January savings", Category: core.CategorySavings, Quantity: 1, PricePerUnit: 2000},
		},
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[core.Transaction](t, rec)
	if !strings.HasPrefix(created.ID, "USS-") || created.TotalAmount != 2000 {
		t.Fatalf("created = %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list := decode[struct {
		Transactions []core.Transaction `json:"transactions"`
		Count        int                `json:"count"`
	}](t, rec)
	if list.Count != 1 || list.Transactions[0].ID != created.ID {
		t.Fatalf("list = %+v", list)
	}

	// Filter by member name and by a month that cannot match.
	rec = env.do(t, http.MethodGet, "/api/transactions?q=rahim", nil, nil)
	if got := decode[struct{ Count int }](t, rec); got.Count != 1 {
		t.Fatalf("query filter count = %d", got.Count)
	}
	rec = env.do(t, http.MethodGet, "/api/transactions?month=1999-01", nil, nil)
	if got := decode[struct{ Count int }](t, rec); got.Count != 0 {
		t.Fatalf("month filter count = %d", got.Count)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t)

	body := savingsBody()
	body.Items[0].Quantity = 0
	rec := env.do(t, http.MethodPost, "/api/transactions", body, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid quantity: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{broken"))
	recorder := httptest.NewRecorder()
	env.srv.Server.Handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("broken json: %d", recorder.Code)
	}
}

func TestCreateTransactionStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.insertErr = errors.New("disk full")

	rec := env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Message != "Error saving to cloud." {
		t.Fatalf("message = %q", body.Error.Message)
	}

	// The rolled-back transaction must not appear in the list.
	rec = env.do(t, http.MethodGet, "/api/transactions", nil, nil)
	if got := decode[struct{ Count int }](t, rec); got.Count != 0 {
		t.Fatalf("count after failed create = %d", got.Count)
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)
	created := decode[core.Transaction](t, rec)

	rec = env.do(t, http.MethodDelete, "/api/transactions/"+created.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/transactions/USS-1999-001", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete unknown: %d", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)

	rec := env.do(t, http.MethodGet, "/api/summary", nil, nil)
	sum := decode[core.FinancialSummary](t, rec)
	if sum.TotalIncome != 2000 || sum.CurrentBalance != 2000 || sum.TotalItemsSold != 1 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestChartEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)

	rec := env.do(t, http.MethodGet, "/api/charts/categories", nil, nil)
	cat := decode[struct {
		Points []core.ChartPoint `json:"points"`
	}](t, rec)
	if len(cat.Points) != 1 || cat.Points[0].Label != "Savings" {
		t.Fatalf("categories = %+v", cat.Points)
	}

	rec = env.do(t, http.MethodGet, "/api/charts/categories?lang=bn", nil, nil)
	cat = decode[struct {
		Points []core.ChartPoint `json:"points"`
	}](t, rec)
	if len(cat.Points) != 1 || cat.Points[0].Label != "সঞ্চয়" {
		t.Fatalf("bn categories = %+v", cat.Points)
	}

	rec = env.do(t, http.MethodGet, "/api/charts/weekly", nil, nil)
	weekly := decode[struct {
		Points []core.ChartPoint `json:"points"`
	}](t, rec)
	if len(weekly.Points) != 1 || weekly.Points[0].Value != 2000 {
		t.Fatalf("weekly = %+v", weekly.Points)
	}
}

func TestReceiptEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)
	created := decode[core.Transaction](t, rec)

	rec = env.do(t, http.MethodGet, "/api/receipts/"+created.ID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: %d", rec.Code)
	}
	receipt := decode[core.Receipt](t, rec)
	if receipt.Number != created.ID || receipt.Title != "Money Receipt" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if receipt.SocietyName != "Unity Savings Society" {
		t.Fatalf("society = %q", receipt.SocietyName)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/receipts/%s?lang=bn", created.ID), nil, nil)
	receipt = decode[core.Receipt](t, rec)
	if receipt.Title != "মানি রিসিট" {
		t.Fatalf("bn title = %q", receipt.Title)
	}

	rec = env.do(t, http.MethodGet, "/api/receipts/USS-1999-001", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown receipt: %d", rec.Code)
	}
}

func TestAdviceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/advice", map[string]string{"language": "en"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("advice: %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["advice"] != "Save more." {
		t.Fatalf("advice = %q", body["advice"])
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	// First run: nothing registered yet.
	rec := env.do(t, http.MethodGet, "/api/auth/session", nil, nil)
	session := decode[struct {
		Registered    bool `json:"registered"`
		Authenticated bool `json:"authenticated"`
	}](t, rec)
	if session.Registered || session.Authenticated {
		t.Fatalf("fresh session = %+v", session)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/register", credentialsRequest{
		Username: "Mamun", Email: "mamun@example.com", Password: "123456",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	reg := decode[map[string]string](t, rec)
	if reg["token"] == "" {
		t.Fatal("register should issue a session token")
	}

	rec = env.do(t, http.MethodGet, "/api/auth/session", nil, map[string]string{sessionHeader: reg["token"]})
	session = decode[struct {
		Registered    bool `json:"registered"`
		Authenticated bool `json:"authenticated"`
	}](t, rec)
	if !session.Registered || !session.Authenticated {
		t.Fatalf("session after register = %+v", session)
	}

	// Wrong pin, then a case-insensitive successful login.
	rec = env.do(t, http.MethodPost, "/api/auth/login", credentialsRequest{Username: "mamun", Password: "wrong"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/auth/login", credentialsRequest{Username: "MAMUN", Password: "123456"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	login := decode[map[string]string](t, rec)
	if login["username"] != "Mamun" {
		t.Fatalf("login username = %q", login["username"])
	}

	rec = env.do(t, http.MethodPost, "/api/auth/logout", nil, map[string]string{sessionHeader: login["token"]})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/auth/session", nil, map[string]string{sessionHeader: login["token"]})
	session = decode[struct {
		Registered    bool `json:"registered"`
		Authenticated bool `json:"authenticated"`
	}](t, rec)
	if session.Authenticated {
		t.Fatal("session should be gone after logout")
	}
}

func TestResetEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/register", credentialsRequest{
		Username: "Mamun", Email: "mamun@example.com", Password: "123456",
	}, nil)

	rec := env.do(t, http.MethodPost, "/api/auth/reset", credentialsRequest{
		Username: "mamun", Password: "999999", ConfirmPassword: "111111",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatch: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/reset", credentialsRequest{
		Username: "Karim", Password: "999999", ConfirmPassword: "999999",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/reset", credentialsRequest{
		Username: "mamun", Password: "999999", ConfirmPassword: "999999",
	}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset: %d %s", rec.Code, rec.Body.String())
	}
	if env.creds.cred.Password != "999999" {
		t.Fatalf("password = %q", env.creds.cred.Password)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", credentialsRequest{Username: "Mamun", Password: "999999"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login after reset: %d", rec.Code)
	}
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/preferences", nil, nil)
	prefs := decode[map[string]string](t, rec)
	if prefs["language"] != "en" || prefs["theme"] != "light" {
		t.Fatalf("defaults = %+v", prefs)
	}

	rec = env.do(t, http.MethodPut, "/api/preferences", map[string]string{"language": "bn", "theme": "dark"}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put: %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/preferences", nil, nil)
	prefs = decode[map[string]string](t, rec)
	if prefs["language"] != "bn" || prefs["theme"] != "dark" {
		t.Fatalf("after put = %+v", prefs)
	}

	// The stored language now drives chart labels when no query override.
	env.do(t, http.MethodPost, "/api/transactions", savingsBody(), nil)
	rec = env.do(t, http.MethodGet, "/api/charts/categories", nil, nil)
	cat := decode[struct {
		Points []core.ChartPoint `json:"points"`
	}](t, rec)
	if cat.Points[0].Label != "সঞ্চয়" {
		t.Fatalf("label with bn preference = %q", cat.Points[0].Label)
	}
}

func TestMethodChecks(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		method, path string
	}{
		{http.MethodDelete, "/api/summary"},
		{http.MethodPut, "/api/transactions"},
		{http.MethodGet, "/api/advice"},
		{http.MethodPost, "/api/auth/session"},
	}
	for _, tc := range cases {
		rec := env.do(t, tc.method, tc.path, nil, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: %d", tc.method, tc.path, rec.Code)
		}
	}
}
