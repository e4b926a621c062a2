package model

import (
	"testing"
	"time"
)

func TestNewBookingLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.FixedZone("IST", 2*60*60))
	lock := NewBookingLock("slot:s1:2026-03-01", "owner-1", now, 30*time.Second)

	if lock.CreatedAt.Location() != time.UTC {
		t.Errorf("expected UTC timestamps, got %s", lock.CreatedAt.Location())
	}
	if lock.CreatedAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("expected millisecond precision, got %d ns", lock.CreatedAt.Nanosecond())
	}
	if got := lock.ExpiresAt.Sub(lock.CreatedAt); got != 30*time.Second {
		t.Errorf("expected 30s lease, got %s", got)
	}
	if lock.Key != "slot:s1:2026-03-01" || lock.Owner != "owner-1" {
		t.Errorf("unexpected lock: %+v", lock)
	}
}
