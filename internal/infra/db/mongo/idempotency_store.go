package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"deskrent/internal/app/middleware"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

type IdempotencyStore struct {
	col *mongo.Collection
}

// NewIdempotencyStore keeps replayable command results; a TTL index expires them after ttl.
func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	col := db.Collection("app_idempotency")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &IdempotencyStore{col: col}, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": key, "pending": bson.M{"$ne": true}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return doc.toRecord(), true, nil
}

// Reserve claims the key by inserting a pending document; the unique _id decides the winner.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	_, err := s.col.InsertOne(ctx, bson.M{"_id": key, "pending": true, "created_at": time.Now().UTC()})
	if err == nil {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return middleware.IdempotencyRecord{}, false, err
	}
	rec, found, err := s.Get(ctx, key)
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	if !found {
		return middleware.IdempotencyRecord{}, false, middleware.ErrIdempotencyInProgress
	}
	return rec, true, nil
}

// Save completes a reservation; the first result recorded for a key is kept.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	update := bson.M{"$set": bson.M{
		"pending":     false,
		"payload":     rec.Payload,
		"occurred_at": rec.OccurredAt,
		"created_at":  time.Now().UTC(),
	}}
	filter := bson.M{"_id": rec.Key, "pending": bson.M{"$ne": false}}
	_, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": key, "pending": true})
	return err
}

type idempotencyDocument struct {
	Key        string    `bson:"_id"`
	Pending    bool      `bson:"pending"`
	Payload    []byte    `bson:"payload"`
	OccurredAt time.Time `bson:"occurred_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: d.Key, Payload: d.Payload, OccurredAt: d.OccurredAt}
}
