package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/pkg/config"
	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// BookingLockRepository stores advisory slot locks. The _id is the lock key,
// so a second insert for a held key fails with a duplicate key error.
type BookingLockRepository interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) error
	Release(ctx context.Context, key, owner string) error
}

type mongoBookingLockRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		collection: db.Collection(LockCollectionName),
		now:        time.Now,
	}
}

// Acquire inserts the lock document. A lock whose expiry has passed is taken
// over even if the TTL monitor has not removed it yet.
func (r *mongoBookingLockRepository) Acquire(ctx context.Context, key, owner string, ttl time.Duration) error {
	lock := model.NewBookingLock(key, owner, r.now(), ttl)

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": lock.CreatedAt}})
	if err != nil {
		return fmt.Errorf("failed to clear expired slot lock: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrLockHeld
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return nil
}

// Release removes the lock only if owner still holds it.
func (r *mongoBookingLockRepository) Release(ctx context.Context, key, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}
