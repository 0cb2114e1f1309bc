package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"tripnest/internal/domain/identity"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleTraveler Role = "traveler"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// CapabilitiesFor maps stored roles onto boundary capabilities. This is the
// only place role names appear in authorization decisions.
func CapabilitiesFor(roles []Role) []identity.Capability {
	var caps []identity.Capability
	seen := make(map[identity.Capability]struct{})
	add := func(c identity.Capability) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		caps = append(caps, c)
	}
	for _, r := range roles {
		switch r {
		case RoleOperator:
			add(identity.ManageBookings)
		case RoleAdmin:
			add(identity.ManageBookings)
			add(identity.ManageListings)
		}
	}
	return caps
}

type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Actor() identity.Actor {
	return identity.Actor{ID: string(u.ID), Capabilities: CapabilitiesFor(u.Roles)}
}

func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

func New(params CreateParams) (*User, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	if params.PasswordHash == "" {
		return nil, ErrPasswordHashMissing
	}
	roles := params.Roles
	if len(roles) == 0 {
		roles = []Role{RoleTraveler}
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		ID:           params.ID,
		Email:        email,
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: params.PasswordHash,
		Roles:        append([]Role(nil), roles...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, u *User) error
}
