package dto

import (
	domainlisting "tripnest/internal/domain/listing"
)

type ListingView struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	MaxGuests   int       `json:"max_guests"`
	Price       MoneyView `json:"price"`
	PriceBasis  string    `json:"price_basis"`
}

type ListingCollection struct {
	Items []ListingView `json:"items"`
	Total int           `json:"total"`
}

func MapListing(l *domainlisting.Listing) ListingView {
	return ListingView{
		ID:          string(l.ID),
		Kind:        string(l.Kind),
		Title:       l.Title,
		Description: l.Description,
		City:        l.City,
		Country:     l.Country,
		MaxGuests:   l.MaxGuests,
		Price:       MoneyView{Amount: l.PriceCents, Currency: l.Currency},
		PriceBasis:  string(l.Basis),
	}
}

func MapListings(items []*domainlisting.Listing) ListingCollection {
	views := make([]ListingView, 0, len(items))
	for _, l := range items {
		views = append(views, MapListing(l))
	}
	return ListingCollection{Items: views, Total: len(views)}
}
