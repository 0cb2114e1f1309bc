package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/daterange"
	"tripnest/internal/domain/shared/fault"
	"tripnest/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("bookings")
	idx := mongo.IndexModel{Keys: bson.D{
		{Key: "target_kind", Value: 1},
		{Key: "target_id", Value: 1},
		{Key: "status", Value: 1},
	}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.Newf(fault.NotFound, "booking %s not found", id)
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fault.Newf(fault.Conflict, "booking %s already exists", b.ID)
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

// Save guards lost updates with per-document versions: the replace matches
// the version the caller loaded and bumps it, so a concurrent writer loses
// with a conflict instead of silently overwriting.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	opts := options.Replace().SetUpsert(true)
	res, err := r.col.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fault.Newf(fault.Conflict, "booking %s was updated concurrently", b.ID)
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return fault.Newf(fault.Conflict, "booking %s was updated concurrently", b.ID)
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	query := bson.M{}
	if filter.GuestID != "" {
		query["guest_id"] = filter.GuestID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": statusStrings(filter.Statuses)}
	}
	if filter.Target != nil {
		query["target_kind"] = string(filter.Target.Kind)
		query["target_id"] = string(filter.Target.ID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeBookings(ctx, cur)
}

func (r *BookingRepository) ActiveForTarget(ctx context.Context, target domainbooking.Target, dates domainbooking.DateSpec) ([]*domainbooking.Booking, error) {
	query := bson.M{
		"target_kind": string(target.Kind),
		"target_id":   string(target.ID),
		"status":      bson.M{"$in": statusStrings(domainbooking.ActiveStatuses())},
	}
	if dates.IsStay() {
		// Half-open overlap: existing.check_in < req.check_out AND
		// existing.check_out > req.check_in.
		query["check_in"] = bson.M{"$lt": dates.Stay.CheckOut.UnixMilli()}
		query["check_out"] = bson.M{"$gt": dates.Stay.CheckIn.UnixMilli()}
	} else {
		query["event_date"] = dates.EventDate.UnixMilli()
	}
	cur, err := r.col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	items, err := decodeBookings(ctx, cur)
	if err != nil {
		return nil, err
	}
	// Slot times are compared in the domain: two events intersect only when
	// neither or both declare a slot and the slots match.
	matches := items[:0]
	for _, b := range items {
		if b.Dates.Intersects(dates) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}

func decodeBookings(ctx context.Context, cur *mongo.Cursor) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type bookingDocument struct {
	ID              string `bson:"_id"`
	GuestID         string `bson:"guest_id"`
	TargetKind      string `bson:"target_kind"`
	TargetID        string `bson:"target_id"`
	CheckIn         int64  `bson:"check_in,omitempty"`
	CheckOut        int64  `bson:"check_out,omitempty"`
	EventDate       int64  `bson:"event_date,omitempty"`
	EventTime       string `bson:"event_time,omitempty"`
	Guests          int    `bson:"guests"`
	TotalAmount     int64  `bson:"total_amount"`
	TotalCurrency   string `bson:"total_currency"`
	Status          string `bson:"status"`
	SpecialRequests string `bson:"special_requests,omitempty"`
	CreatedAt       int64  `bson:"created_at"`
	UpdatedAt       int64  `bson:"updated_at"`
	Version         int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:              string(b.ID),
		GuestID:         b.GuestID,
		TargetKind:      string(b.Target.Kind),
		TargetID:        string(b.Target.ID),
		Guests:          b.Guests,
		TotalAmount:     b.Total.Amount,
		TotalCurrency:   b.Total.Currency,
		Status:          string(b.Status),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt.UnixMilli(),
		UpdatedAt:       b.UpdatedAt.UnixMilli(),
		Version:         b.Version,
	}
	if b.Dates.IsStay() {
		doc.CheckIn = b.Dates.Stay.CheckIn.UnixMilli()
		doc.CheckOut = b.Dates.Stay.CheckOut.UnixMilli()
	} else {
		doc.EventDate = b.Dates.EventDate.UnixMilli()
		doc.EventTime = b.Dates.EventTime
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	var dates domainbooking.DateSpec
	if d.CheckIn != 0 || d.CheckOut != 0 {
		dates = domainbooking.StayOver(daterange.DateRange{
			CheckIn:  timestampToTime(d.CheckIn),
			CheckOut: timestampToTime(d.CheckOut),
		})
	} else {
		dates = domainbooking.EventOn(timestampToTime(d.EventDate), d.EventTime)
	}
	return &domainbooking.Booking{
		ID:              domainbooking.BookingID(d.ID),
		GuestID:         d.GuestID,
		Target:          domainbooking.Target{Kind: domainlisting.Kind(d.TargetKind), ID: domainlisting.ID(d.TargetID)},
		Dates:           dates,
		Guests:          d.Guests,
		Total:           money.Money{Amount: d.TotalAmount, Currency: d.TotalCurrency},
		Status:          domainbooking.Status(d.Status),
		SpecialRequests: d.SpecialRequests,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
