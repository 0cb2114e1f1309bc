package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"tripnest/internal/domain/shared/money"
)

var (
	ErrTitleRequired   = errors.New("listing: title is required")
	ErrInvalidKind     = errors.New("listing: unknown kind")
	ErrCapacityLimit   = errors.New("listing: capacity must be at least 1")
	ErrInvalidUnits    = errors.New("listing: units must be at least 1")
	ErrNegativePrice   = errors.New("listing: price must be non-negative")
	ErrInvalidCurrency = errors.New("listing: currency must be a 3-letter code")
)

type ID string

// Kind discriminates the two bookable entity types the marketplace sells.
type Kind string

const (
	KindAccommodation Kind = "accommodation"
	KindExperience    Kind = "experience"
)

func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindAccommodation:
		return KindAccommodation, nil
	case KindExperience:
		return KindExperience, nil
	default:
		return "", ErrInvalidKind
	}
}

// PriceBasis states what the listed price covers: one night of a stay, or the
// whole experience per participant.
type PriceBasis string

const (
	PerNight PriceBasis = "per_night"
	Flat     PriceBasis = "flat"
)

// Listing is a bookable catalog entity. The booking core treats it as
// read-only: ownership and catalog mutations live in the back office.
type Listing struct {
	ID          ID
	Kind        Kind
	Title       string
	Description string
	City        string
	Country     string
	// MaxGuests bounds guests per booking; for experiences it is the total
	// participant capacity per date.
	MaxGuests int
	// Units is how many concurrent stays an accommodation admits for the same
	// dates. The marketplace sells single-unit properties, so this defaults
	// to 1, but the capacity is per-listing policy rather than a constant.
	Units      int
	PriceCents int64
	Currency   string
	Basis      PriceBasis
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Price returns the listed price as a money value.
func (l *Listing) Price() money.Money {
	return money.Money{Amount: l.PriceCents, Currency: l.Currency}
}

type CreateParams struct {
	ID          ID
	Kind        Kind
	Title       string
	Description string
	City        string
	Country     string
	MaxGuests   int
	Units       int
	PriceCents  int64
	Currency    string
	Basis       PriceBasis
	Now         time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listing: id is required")
	}
	if params.Kind != KindAccommodation && params.Kind != KindExperience {
		return nil, ErrInvalidKind
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrCapacityLimit
	}
	if params.PriceCents < 0 {
		return nil, ErrNegativePrice
	}
	if len(params.Currency) != 3 {
		return nil, ErrInvalidCurrency
	}
	units := params.Units
	if units == 0 {
		units = 1
	}
	if units < 1 {
		return nil, ErrInvalidUnits
	}
	basis := params.Basis
	if basis == "" {
		if params.Kind == KindAccommodation {
			basis = PerNight
		} else {
			basis = Flat
		}
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Listing{
		ID:          params.ID,
		Kind:        params.Kind,
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
		City:        strings.TrimSpace(params.City),
		Country:     strings.TrimSpace(params.Country),
		MaxGuests:   params.MaxGuests,
		Units:       units,
		PriceCents:  params.PriceCents,
		Currency:    strings.ToUpper(params.Currency),
		Basis:       basis,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Filter narrows catalog reads. No ranking or relevance is applied.
type Filter struct {
	Kind    Kind
	City    string
	Country string
	Limit   int
	Offset  int
}

type Repository interface {
	ByID(ctx context.Context, kind Kind, id ID) (*Listing, error)
	List(ctx context.Context, filter Filter) ([]*Listing, error)
	Save(ctx context.Context, l *Listing) error
}
