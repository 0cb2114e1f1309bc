package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "tripnest/internal/domain/auth"
	"tripnest/internal/domain/identity"
	domainuser "tripnest/internal/domain/user"
	"tripnest/internal/infra/security"
	"tripnest/internal/infra/storage/memory"
)

func newService(ttl time.Duration) (*Service, *memory.SessionStore) {
	sessions := memory.NewSessionStore()
	return &Service{
		Users:      memory.NewUserRepository(),
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: ttl,
	}, sessions
}

func TestRegisterLoginResolveRoundTrip(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterParams{
		Email:    "Ana@Example.COM",
		Name:     "Ana",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.User.Email != "ana@example.com" {
		t.Errorf("email not normalized: %q", registered.User.Email)
	}
	if !registered.User.HasRole(domainuser.RoleTraveler) {
		t.Errorf("default role missing: %v", registered.User.Roles)
	}
	if registered.User.Actor().Can(identity.ManageBookings) {
		t.Error("traveler should not manage bookings")
	}

	logged, err := svc.Login(ctx, LoginParams{Email: "ana@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	resolved, err := svc.ResolveToken(ctx, logged.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if resolved.User.ID != registered.User.ID {
		t.Errorf("resolved wrong user: %v", resolved.User.ID)
	}
}

func TestRegisterRejections(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.co", Name: "A", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.co", Name: "A", Password: "long-enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.co", Name: "B", Password: "long-enough"}); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Errorf("duplicate email: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.co", Name: "A", Password: "long-enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "a@b.co", Password: "wrong-guess"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "nobody@b.co", Password: "whatever-123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}
}

func TestExpiredSessionIsRejectedAndSwept(t *testing.T) {
	svc, sessions := newService(time.Millisecond)
	ctx := context.Background()
	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.co", Name: "A", Password: "long-enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := svc.ResolveToken(ctx, result.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Errorf("expired token: %v", err)
	}
	if _, err := sessions.Get(ctx, domainauth.Token(result.Token)); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Errorf("expired session not swept: %v", err)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()
	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.co", Name: "A", Password: "long-enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, result.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Errorf("token survived logout: %v", err)
	}
}
