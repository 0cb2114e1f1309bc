package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripnest/internal/app/commands"
	"tripnest/internal/app/dto"
	bookingapp "tripnest/internal/app/handlers/booking"
	"tripnest/internal/app/queries"
	"tripnest/internal/domain/identity"
	"tripnest/internal/domain/shared/daterange"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type bookingDatesRequest struct {
	TargetKind  string `json:"target_kind"`
	TargetID    string `json:"target_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
	Guests      int    `json:"guests"`
}

type createBookingRequest struct {
	bookingDatesRequest
	SpecialRequests string `json:"special_requests"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// parsedDates carries request dates already shaped into time values; zero
// values mean the field was absent and the app layer decides whether that is
// allowed for the target kind.
type parsedDates struct {
	checkIn     time.Time
	checkOut    time.Time
	bookingDate time.Time
}

func parseRequestDates(req bookingDatesRequest) (parsedDates, error) {
	var out parsedDates
	var err error
	if req.CheckIn != "" {
		if out.checkIn, err = daterange.ParseDay(req.CheckIn); err != nil {
			return parsedDates{}, err
		}
	}
	if req.CheckOut != "" {
		if out.checkOut, err = daterange.ParseDay(req.CheckOut); err != nil {
			return parsedDates{}, err
		}
	}
	if req.BookingDate != "" {
		if out.bookingDate, err = daterange.ParseDay(req.BookingDate); err != nil {
			return parsedDates{}, err
		}
	}
	return out, nil
}

func (h BookingHandler) CheckAvailability(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	var req bookingDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dates, err := parseRequestDates(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := bookingapp.CheckAvailabilityQuery{
		TargetKind:  req.TargetKind,
		TargetID:    req.TargetID,
		CheckIn:     dates.checkIn,
		CheckOut:    dates.checkOut,
		BookingDate: dates.bookingDate,
		BookingTime: req.BookingTime,
		Guests:      req.Guests,
	}
	result, err := queries.Ask[bookingapp.CheckAvailabilityQuery, bookingapp.CheckAvailabilityResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dates, err := parseRequestDates(req.bookingDatesRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		CommandID:       generateCommandID(),
		GuestID:         user.ID,
		TargetKind:      req.TargetKind,
		TargetID:        req.TargetID,
		CheckIn:         dates.checkIn,
		CheckOut:        dates.checkOut,
		BookingDate:     dates.bookingDate,
		BookingTime:     req.BookingTime,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID: c.Param("id"),
		Actor:     user.Actor(),
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) UpdateStatus(c *gin.Context) {
	user, ok := requireCapability(c, identity.ManageBookings)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := bookingapp.UpdateStatusCommand{
		BookingID: c.Param("id"),
		Status:    req.Status,
		Actor:     user.Actor(),
	}
	result, err := commands.Dispatch[bookingapp.UpdateStatusCommand, *bookingapp.UpdateStatusResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := bookingapp.ListBookingsQuery{
		Actor:    user.Actor(),
		Statuses: splitStatuses(c.Query("status")),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListAll(c *gin.Context) {
	user, ok := requireCapability(c, identity.ManageBookings)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := bookingapp.ListBookingsQuery{
		Actor:      user.Actor(),
		All:        true,
		Statuses:   splitStatuses(c.Query("status")),
		TargetKind: c.Query("target_kind"),
		TargetID:   c.Query("target_id"),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func splitStatuses(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
