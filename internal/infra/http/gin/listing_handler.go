package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"tripnest/internal/app/dto"
	listingapp "tripnest/internal/app/handlers/listings"
	"tripnest/internal/app/queries"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
)

type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ListingHandler) Catalog(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := listingapp.ListCatalogQuery{
		Kind:    c.Query("kind"),
		City:    c.Query("city"),
		Country: c.Query("country"),
		Limit:   intQuery(c, "limit"),
		Offset:  intQuery(c, "offset"),
	}
	result, err := queries.Ask[listingapp.ListCatalogQuery, dto.ListingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get resolves a listing by id. The kind query narrows the lookup; without it
// both kinds are tried since ids are unique across the catalog.
func (h ListingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	id := c.Param("id")
	kinds := []string{c.Query("kind")}
	if kinds[0] == "" {
		kinds = []string{string(domainlisting.KindAccommodation), string(domainlisting.KindExperience)}
	}
	var lastErr error
	for _, kind := range kinds {
		result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingView](c.Request.Context(), h.Queries, listingapp.GetListingQuery{Kind: kind, ID: id})
		if err == nil {
			c.JSON(http.StatusOK, result)
			return
		}
		lastErr = err
		if !fault.IsKind(err, fault.NotFound) {
			break
		}
	}
	respondError(c, h.Logger, lastErr)
}

func intQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

var _ ListingHTTP = ListingHandler{}
