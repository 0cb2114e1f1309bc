package mongo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "tripnest/internal/domain/booking"
)

const (
	lockTTL           = 30 * time.Second
	lockRetryInterval = 25 * time.Millisecond
)

// AdmissionLocks serializes booking admission across processes with advisory
// lock documents: inserting a document whose _id is the target key either
// succeeds, granting the lock, or hits the unique index and retries. A TTL
// index reclaims locks abandoned by crashed holders.
type AdmissionLocks struct {
	col *mongo.Collection
}

func NewAdmissionLocks(db *mongo.Database) *AdmissionLocks {
	col := db.Collection("admission_locks")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &AdmissionLocks{col: col}
}

func (l *AdmissionLocks) Acquire(ctx context.Context, target domainbooking.Target) (func(), error) {
	key := target.Key()
	for {
		doc := bson.M{
			"_id":        key,
			"expires_at": time.Now().Add(lockTTL),
		}
		_, err := l.col.InsertOne(ctx, doc)
		if err == nil {
			var once sync.Once
			release := func() {
				once.Do(func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_, _ = l.col.DeleteOne(ctx, bson.M{"_id": key})
				})
			}
			return release, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
