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

const getListingKey = "listings.get"

type GetListingQuery struct {
	Kind string
	ID   string
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingView, error) {
	kind, err := domainlisting.ParseKind(q.Kind)
	if err != nil {
		return dto.ListingView{}, fault.Newf(fault.Validation, "unknown listing kind %q", q.Kind)
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	item, err := unit.Listings().ByID(execCtx, kind, domainlisting.ID(q.ID))
	if err != nil {
		return dto.ListingView{}, err
	}
	return dto.MapListing(item), nil
}

var _ queries.Handler[GetListingQuery, dto.ListingView] = (*GetListingHandler)(nil)
