package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "slot:a:2026-03-02")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max holders = %d, want 1", maxInside)
	}
	if m.Len() != 0 {
		t.Fatalf("entries leaked: %d", m.Len())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	m := NewKeyedMutex()
	unlockA, err := m.Lock(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := m.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("different key blocked: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_ContextCancellation(t *testing.T) {
	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()
	if m.Len() != 0 {
		t.Fatalf("entries leaked after cancellation: %d", m.Len())
	}
}

type mockLockRepository struct {
	mu          sync.Mutex
	held        map[string]string
	acquireFunc func(ctx context.Context, key, owner string, ttl time.Duration) error
	released    []string
}

func (m *mockLockRepository) Acquire(ctx context.Context, key, owner string, ttl time.Duration) error {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, key, owner, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return bookingserrors.ErrLockHeld
	}
	m.held[key] = owner
	return nil
}

func (m *mockLockRepository) Release(ctx context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == owner {
		delete(m.held, key)
	}
	m.released = append(m.released, key)
	return nil
}

func TestMongoLocker_WaitsForRelease(t *testing.T) {
	repo := &mockLockRepository{held: make(map[string]string)}
	l := NewMongoLocker(repo, time.Minute, logger.Nop())

	unlock, err := l.Lock(context.Background(), "slot:s:d")
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(context.Background(), "slot:s:d")
		if err != nil {
			t.Errorf("second lock: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(60 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestMongoLocker_GivesUpOnContext(t *testing.T) {
	repo := &mockLockRepository{
		acquireFunc: func(ctx context.Context, key, owner string, ttl time.Duration) error {
			return bookingserrors.ErrLockHeld
		},
	}
	l := NewMongoLocker(repo, time.Minute, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMongoLocker_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("no primary")
	repo := &mockLockRepository{
		acquireFunc: func(ctx context.Context, key, owner string, ttl time.Duration) error { return boom },
	}
	l := NewMongoLocker(repo, time.Minute, logger.Nop())

	if _, err := l.Lock(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	all := []model.AppointmentStatus{
		model.StatusPending, model.StatusConfirmed, model.StatusCompleted, model.StatusCancelled, model.StatusNoShow,
	}
	allowed := map[[2]model.AppointmentStatus]bool{
		{model.StatusPending, model.StatusConfirmed}:   true,
		{model.StatusPending, model.StatusCancelled}:   true,
		{model.StatusPending, model.StatusNoShow}:      true,
		{model.StatusConfirmed, model.StatusCompleted}: true,
		{model.StatusConfirmed, model.StatusCancelled}: true,
		{model.StatusConfirmed, model.StatusNoShow}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]model.AppointmentStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
		if from.IsTerminal() {
			for _, to := range all {
				if CanTransition(from, to) {
					t.Errorf("terminal %s has outgoing edge to %s", from, to)
				}
			}
		}
	}
}
