// Package auth guards the single-credential login of the society ledger.
// There is exactly one credential record; register replaces it, reset changes
// only its password. Passwords are compared as-is, matching the short numeric
// pins the society actually uses.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"somiti/internal/storage"
)

var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrInvalidCredentials = errors.New("invalid name or pin")
	ErrUserNotFound       = errors.New("user not found")
	ErrPinMismatch        = errors.New("pins do not match")
)

// CredentialStore is the slice of the repository auth needs.
type CredentialStore interface {
	GetCredential(ctx context.Context) (storage.Credential, error)
	SaveCredential(ctx context.Context, c storage.Credential) error
	UpdatePassword(ctx context.Context, password string) error
}

// Authenticator checks and maintains the credential record.
type Authenticator struct {
	store CredentialStore
}

func NewAuthenticator(store CredentialStore) *Authenticator {
	return &Authenticator{store: store}
}

// Registered reports whether a credential record exists yet. The UI uses this
// to decide between the login and the first-run setup screen.
func (a *Authenticator) Registered(ctx context.Context) (bool, error) {
	_, err := a.store.GetCredential(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Login matches the username ignoring case and the password exactly. It
// returns the stored username so the caller greets the user with the spelling
// they registered, not the one they typed.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMissingFields
	}
	cred, err := a.store.GetCredential(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	if !strings.EqualFold(cred.Username, username) || cred.Password != password {
		return "", ErrInvalidCredentials
	}
	return cred.Username, nil
}

// Register replaces the credential record outright. Transactions are not
// touched; a new owner keeps the old books.
func (a *Authenticator) Register(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return ErrMissingFields
	}
	cred := storage.Credential{Username: username, Email: email, Password: password}
	if err := a.store.SaveCredential(ctx, cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Reset overwrites the password after confirming the username matches the
// stored record, ignoring case. Username and email stay as they were.
func (a *Authenticator) Reset(ctx context.Context, username, password, confirm string) error {
	if username == "" || password == "" || confirm == "" {
		return ErrMissingFields
	}
	if password != confirm {
		return ErrPinMismatch
	}
	cred, err := a.store.GetCredential(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if !strings.EqualFold(cred.Username, username) {
		return ErrUserNotFound
	}
	if err := a.store.UpdatePassword(ctx, password); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Sessions is the in-process session marker store. Tokens die with the
// process; restarting the server logs everyone out.
type Sessions struct {
	mu     sync.Mutex
	tokens map[string]string // token -> username
}

func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]string)}
}

// Create issues a fresh token bound to the username.
func (s *Sessions) Create(username string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = username
	s.mu.Unlock()
	return token
}

// Resolve returns the username behind a token, if the token is live.
func (s *Sessions) Resolve(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	return username, ok
}

// Destroy invalidates a token. Unknown tokens are a no-op.
func (s *Sessions) Destroy(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
