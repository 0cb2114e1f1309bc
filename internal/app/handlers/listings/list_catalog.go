package listings

import (
	"context"

	"tripnest/internal/app/dto"
	handlersupport "tripnest/internal/app/handlers/support"
	"tripnest/internal/app/queries"
	"tripnest/internal/app/uow"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
)

const listCatalogKey = "listings.catalog"

type ListCatalogQuery struct {
	Kind    string
	City    string
	Country string
	Limit   int
	Offset  int
}

func (q ListCatalogQuery) Key() string { return listCatalogKey }

type ListCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns a plain filtered slice of the catalog. No relevance or
// ranking is applied.
func (h *ListCatalogHandler) Handle(ctx context.Context, q ListCatalogQuery) (dto.ListingCollection, error) {
	filter := domainlisting.Filter{
		City:    q.City,
		Country: q.Country,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if q.Kind != "" {
		kind, err := domainlisting.ParseKind(q.Kind)
		if err != nil {
			return dto.ListingCollection{}, fault.Newf(fault.Validation, "unknown listing kind %q", q.Kind)
		}
		filter.Kind = kind
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Listings().List(execCtx, filter)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	return dto.MapListings(items), nil
}

var _ queries.Handler[ListCatalogQuery, dto.ListingCollection] = (*ListCatalogHandler)(nil)
