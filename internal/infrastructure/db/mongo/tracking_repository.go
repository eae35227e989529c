package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

const collectionTracking = "trackings"

// TrackingRepository implements ports.TrackingRepository using MongoDB.
type TrackingRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewTrackingRepository(db *mongo.Database) *TrackingRepository {
	return &TrackingRepository{
		col: db.Collection(collectionTracking),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// FindByCode retrieves a record by tracking code.
func (r *TrackingRepository) FindByCode(ctx context.Context, trackingCode string) (*domain.TrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec domain.TrackingRecord
	err := r.col.FindOne(ctx, bson.M{"tracking_code": trackingCode}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, fmt.Errorf("find tracking %s: %w", trackingCode, err)
	}
	return &rec, nil
}

// Upsert creates the record or replaces its events in a single round trip.
// tracking_code, carrier and created_at are only written on insert.
func (r *TrackingRepository) Upsert(ctx context.Context, rec *domain.TrackingRecord) (*domain.TrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved domain.TrackingRecord
	err := r.col.FindOneAndUpdate(ctx, codeFilter(rec.TrackingCode), upsertUpdate(rec, r.now()), opts).Decode(&saved)
	if err != nil {
		return nil, fmt.Errorf("upsert tracking %s: %w", rec.TrackingCode, err)
	}
	return &saved, nil
}

// FindPending returns every record that holds no delivered event.
func (r *TrackingRepository) FindPending(ctx context.Context) ([]*domain.TrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, pendingFilter())
	if err != nil {
		return nil, fmt.Errorf("find pending: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.TrackingRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pending: %w", err)
	}
	return out, nil
}

// EnsureIndexes creates the indexes the repository relies on.
func (r *TrackingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, trackingIndexes())
	return err
}

// Ping checks connectivity of the underlying deployment.
func (r *TrackingRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}

func codeFilter(trackingCode string) bson.M {
	return bson.M{"tracking_code": trackingCode}
}

func pendingFilter() bson.M {
	return bson.M{
		"events": bson.M{
			"$not": bson.M{
				"$elemMatch": bson.M{"status_code": domain.StatusCodeDelivered},
			},
		},
	}
}

func upsertUpdate(rec *domain.TrackingRecord, now time.Time) bson.M {
	events := rec.Events
	if events == nil {
		events = []domain.Event{}
	}
	return bson.M{
		"$setOnInsert": bson.M{
			"tracking_code": rec.TrackingCode,
			"carrier":       rec.Carrier,
			"created_at":    now,
		},
		"$set": bson.M{
			"events":     events,
			"updated_at": now,
		},
	}
}

func trackingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tracking_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "events.status_code", Value: 1}}},
	}
}
