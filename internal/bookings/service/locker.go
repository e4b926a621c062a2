package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/internal/bookings/repository"
	"bookline/pkg/logger"

	"github.com/google/uuid"
)

// SlotLocker serializes booking attempts that share a key. The returned
// unlock func is safe to call more than once.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SlotKey is the lock key of one staff member's calendar day.
func SlotKey(staffID, date string) string {
	return "slot:" + staffID + ":" + date
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process SlotLocker. Entries are reference counted and
// removed once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.release(key, e)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MongoLocker is a SlotLocker backed by the Booking_locks collection. It
// polls until the lock is free or ctx is done.
type MongoLocker struct {
	repo     repository.BookingLockRepository
	ttl      time.Duration
	interval time.Duration
	log      *logger.Logger
}

func NewMongoLocker(repo repository.BookingLockRepository, ttl time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{
		repo:     repo,
		ttl:      ttl,
		interval: 25 * time.Millisecond,
		log:      log,
	}
}

func (l *MongoLocker) Lock(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()

	for {
		err := l.repo.Acquire(ctx, key, owner, l.ttl)
		if err == nil {
			break
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", key, ctx.Err())
		case <-time.After(l.interval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled here.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.repo.Release(releaseCtx, key, owner); err != nil {
				l.log.Warn("Failed to release slot lock",
					"lock_id", key,
					"error", err,
				)
			}
		})
	}, nil
}
