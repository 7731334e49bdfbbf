package auth

import (
	"context"
	"errors"
	"testing"

	"somiti/internal/storage"
)

type fakeCredStore struct {
	cred    *storage.Credential
	saveErr error
}

func (f *fakeCredStore) GetCredential(ctx context.Context) (storage.Credential, error) {
	if f.cred == nil {
		return storage.Credential{}, storage.ErrNotFound
	}
	return *f.cred, nil
}

func (f *fakeCredStore) SaveCredential(ctx context.Context, c storage.Credential) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.cred = &c
	return nil
}

func (f *fakeCredStore) UpdatePassword(ctx context.Context, password string) error {
	if f.cred == nil {
		return storage.ErrNotFound
	}
	f.cred.Password = password
	return nil
}

func registered() *fakeCredStore {
	return &fakeCredStore{cred: &storage.Credential{
		Username: "Mamun",
		Email:    "mamun@example.com",
		Password: "123456",
	}}
}

func TestLogin(t *testing.T) {
	a := NewAuthenticator(registered())
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantUser string
		wantErr  error
	}{
		{"exact match", "Mamun", "123456", "Mamun", nil},
		{"case-insensitive username", "mamun", "123456", "Mamun", nil},
		{"uppercase username", "MAMUN", "123456", "Mamun", nil},
		{"wrong pin", "Mamun", "000000", "", ErrInvalidCredentials},
		{"pin case matters", "Mamun", "123456 ", "", ErrInvalidCredentials},
		{"unknown user", "Karim", "123456", "", ErrInvalidCredentials},
		{"empty fields", "", "", "", ErrMissingFields},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Login(ctx, tc.username, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.wantUser {
				t.Fatalf("user = %q, want %q", got, tc.wantUser)
			}
		})
	}
}

func TestLoginWithoutRecord(t *testing.T) {
	a := NewAuthenticator(&fakeCredStore{})

	if _, err := a.Login(context.Background(), "Mamun", "123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterReplacesRecord(t *testing.T) {
	store := registered()
	a := NewAuthenticator(store)
	ctx := context.Background()

	if err := a.Register(ctx, "Karim", "karim@example.com", "654321"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if store.cred.Username != "Karim" || store.cred.Password != "654321" {
		t.Fatalf("credential = %+v", store.cred)
	}
	if _, err := a.Login(ctx, "Mamun", "123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old credential should stop working after register")
	}
}

func TestRegisterRequiresAllFields(t *testing.T) {
	a := NewAuthenticator(&fakeCredStore{})

	if err := a.Register(context.Background(), "Karim", "", "654321"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("err = %v, want ErrMissingFields", err)
	}
}

func TestReset(t *testing.T) {
	store := registered()
	a := NewAuthenticator(store)
	ctx := context.Background()

	if err := a.Reset(ctx, "mamun", "999999", "999999"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if store.cred.Password != "999999" {
		t.Fatalf("password = %q", store.cred.Password)
	}
	// Username and email survive the reset.
	if store.cred.Username != "Mamun" || store.cred.Email != "mamun@example.com" {
		t.Fatalf("credential = %+v", store.cred)
	}
}

func TestResetRejections(t *testing.T) {
	a := NewAuthenticator(registered())
	ctx := context.Background()

	if err := a.Reset(ctx, "Karim", "999999", "999999"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: err = %v, want ErrUserNotFound", err)
	}
	if err := a.Reset(ctx, "Mamun", "999999", "111111"); !errors.Is(err, ErrPinMismatch) {
		t.Fatalf("mismatch: err = %v, want ErrPinMismatch", err)
	}
	if err := a.Reset(ctx, "Mamun", "", ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("empty: err = %v, want ErrMissingFields", err)
	}
}

func TestRegistered(t *testing.T) {
	a := NewAuthenticator(&fakeCredStore{})
	ok, err := a.Registered(context.Background())
	if err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	a = NewAuthenticator(registered())
	ok, err = a.Registered(context.Background())
	if err != nil || !ok {
		t.Fatalf("registered store: ok=%v err=%v", ok, err)
	}
}

func TestSessions(t *testing.T) {
	s := NewSessions()

	token := s.Create("Mamun")
	if token == "" {
		t.Fatal("empty token")
	}
	if user, ok := s.Resolve(token); !ok || user != "Mamun" {
		t.Fatalf("resolve = %q, %v", user, ok)
	}

	other := s.Create("Mamun")
	if other == token {
		t.Fatal("tokens must be unique per login")
	}

	s.Destroy(token)
	if _, ok := s.Resolve(token); ok {
		t.Fatal("destroyed token should not resolve")
	}
	if _, ok := s.Resolve(other); !ok {
		t.Fatal("other session should survive")
	}

	s.Destroy("never-issued")
}
