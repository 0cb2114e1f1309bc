package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	col := db.Collection("listings")
	idx := mongo.IndexModel{Keys: bson.D{
		{Key: "kind", Value: 1},
		{Key: "city", Value: 1},
		{Key: "country", Value: 1},
	}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ListingRepository{col: col}
}

func (r *ListingRepository) ByID(ctx context.Context, kind domainlisting.Kind, id domainlisting.ID) (*domainlisting.Listing, error) {
	var doc listingDocument
	filter := bson.M{"_id": string(id), "kind": string(kind)}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.Newf(fault.NotFound, "%s %s not found", kind, id)
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) List(ctx context.Context, filter domainlisting.Filter) ([]*domainlisting.Listing, error) {
	query := bson.M{}
	if filter.Kind != "" {
		query["kind"] = string(filter.Kind)
	}
	if filter.City != "" {
		query["city"] = filter.City
	}
	if filter.Country != "" {
		query["country"] = filter.Country
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainlisting.Listing
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	doc := newListingDocument(l)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type listingDocument struct {
	ID          string `bson:"_id"`
	Kind        string `bson:"kind"`
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
	City        string `bson:"city,omitempty"`
	Country     string `bson:"country,omitempty"`
	MaxGuests   int    `bson:"max_guests"`
	Units       int    `bson:"units"`
	PriceCents  int64  `bson:"price_cents"`
	Currency    string `bson:"currency"`
	Basis       string `bson:"basis"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	return listingDocument{
		ID:          string(l.ID),
		Kind:        string(l.Kind),
		Title:       l.Title,
		Description: l.Description,
		City:        l.City,
		Country:     l.Country,
		MaxGuests:   l.MaxGuests,
		Units:       l.Units,
		PriceCents:  l.PriceCents,
		Currency:    l.Currency,
		Basis:       string(l.Basis),
		CreatedAt:   l.CreatedAt.UnixMilli(),
		UpdatedAt:   l.UpdatedAt.UnixMilli(),
	}
}

func (d listingDocument) toAggregate() *domainlisting.Listing {
	return &domainlisting.Listing{
		ID:          domainlisting.ID(d.ID),
		Kind:        domainlisting.Kind(d.Kind),
		Title:       d.Title,
		Description: d.Description,
		City:        d.City,
		Country:     d.Country,
		MaxGuests:   d.MaxGuests,
		Units:       d.Units,
		PriceCents:  d.PriceCents,
		Currency:    d.Currency,
		Basis:       domainlisting.PriceBasis(d.Basis),
		CreatedAt:   time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMilli(d.UpdatedAt).UTC(),
	}
}
