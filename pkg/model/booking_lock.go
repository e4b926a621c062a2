package model

import "time"

// BookingLock serializes bookings for one staff member and day across
// instances. The _id is the lock key, so at most one document exists per key.
type BookingLock struct {
	Key       string    `bson:"_id" json:"key"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func NewBookingLock(key, owner string, now time.Time, ttl time.Duration) *BookingLock {
	now = now.UTC().Truncate(time.Millisecond)
	return &BookingLock{
		Key:       key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}
