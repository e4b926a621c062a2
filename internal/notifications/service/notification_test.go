package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	directoryerrors "bookline/internal/directory/errors"
	notificationserrors "bookline/internal/notifications/errors"
	"bookline/internal/notifications/validator"
	"bookline/internal/realtime/presence"
	"bookline/pkg/auth"
	"bookline/pkg/config"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

const (
	companyA  = "65f1a2b3c4d5e6f7a8b9c001"
	companyB  = "65f1a2b3c4d5e6f7a8b9c002"
	aliceID   = "65f1a2b3c4d5e6f7a8b9d001"
	bobID     = "65f1a2b3c4d5e6f7a8b9d002"
	carolID   = "65f1a2b3c4d5e6f7a8b9d003"
	unknownID = "65f1a2b3c4d5e6f7a8b9dfff"
)

type fakeNotificationRepository struct {
	mu            sync.Mutex
	seq           int
	notifications map[string]*model.Notification
	createErr     error
}

func newFakeRepository() *fakeNotificationRepository {
	return &fakeNotificationRepository{notifications: make(map[string]*model.Notification)}
}

func (r *fakeNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	n.ID = fmt.Sprintf("65f1a2b3c4d5e6f7a8b9e%03d", r.seq)
	n.CreatedAt = time.Now().UTC()
	stored := *n
	r.notifications[n.ID] = &stored
	return nil
}

func (r *fakeNotificationRepository) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, notificationserrors.ErrNotFound
	}
	out := *n
	return &out, nil
}

func (r *fakeNotificationRepository) visible(u *model.User) []*model.Notification {
	var out []*model.Notification
	for _, n := range r.notifications {
		if n.VisibleTo(u) {
			c := *n
			out = append(out, &c)
		}
	}
	return out
}

func (r *fakeNotificationRepository) FindVisible(ctx context.Context, u *model.User, limit int, offset int64) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible(u), nil
}

func (r *fakeNotificationRepository) CountVisible(ctx context.Context, u *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.visible(u))), nil
}

func (r *fakeNotificationRepository) CountUnread(ctx context.Context, u *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.visible(u) {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, notificationserrors.ErrNotFound
	}
	n.IsRead = true
	n.ReadAt = &at
	out := *n
	return &out, nil
}

type mockDirectory struct {
	users       map[string]*model.User
	listErr     error
	listedCalls int
}

func (d *mockDirectory) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, directoryerrors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (d *mockDirectory) ListUserIDsByCompany(ctx context.Context, companyID string) ([]string, error) {
	d.listedCalls++
	if d.listErr != nil {
		return nil, d.listErr
	}
	var ids []string
	for _, u := range d.users {
		if u.CompanyID == companyID {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

type recordingConn struct {
	id      string
	user    string
	sendErr error

	mu     sync.Mutex
	events []string
}

func (c *recordingConn) ID() string     { return c.id }
func (c *recordingConn) UserID() string { return c.user }

func (c *recordingConn) Send(event string, data any) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type testEnv struct {
	svc      NotificationService
	repo     *fakeNotificationRepository
	dir      *mockDirectory
	registry *presence.Registry
}

func newTestEnv() *testEnv {
	log := logger.Nop()
	repo := newFakeRepository()
	dir := &mockDirectory{users: map[string]*model.User{
		aliceID: {ID: aliceID, CompanyID: companyA, Role: model.RoleStaff},
		bobID:   {ID: bobID, CompanyID: companyA, Role: model.RoleAdmin},
		carolID: {ID: carolID, CompanyID: companyB, Role: model.RoleStaff},
	}}
	registry := presence.NewRegistry()
	svc := NewNotificationService(repo, dir, registry, validator.NewNotificationValidator(log), &config.Config{Log: log})
	return &testEnv{svc: svc, repo: repo, dir: dir, registry: registry}
}

func (e *testEnv) connect(userID, connID string) *recordingConn {
	c := &recordingConn{id: connID, user: userID}
	e.registry.Register(userID, c)
	return c
}

func specific(recipient string) *model.DispatchRequest {
	return &model.DispatchRequest{
		Scope:       model.ScopeSpecific,
		RecipientID: recipient,
		Title:       "Hello",
		Message:     "World",
		Category:    model.CategorySystem,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestDispatch_PushesToEveryConnectionOfRecipient(t *testing.T) {
	env := newTestEnv()
	phone := env.connect(aliceID, "c1")
	laptop := env.connect(aliceID, "c2")
	other := env.connect(carolID, "c3")

	n, err := env.svc.Dispatch(context.Background(), specific(aliceID))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if n.ID == "" || n.RecipientID != aliceID {
		t.Fatalf("unexpected notification %+v", n)
	}
	if phone.count() != 1 || laptop.count() != 1 {
		t.Errorf("expected one push per connection, got %d and %d", phone.count(), laptop.count())
	}
	if other.count() != 0 {
		t.Errorf("unrelated user received %d pushes", other.count())
	}
}

func TestDispatch_OfflineRecipientCatchesUpByPull(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.Dispatch(context.Background(), specific(aliceID)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	list, total, err := env.svc.ListForUser(context.Background(), aliceID, 10, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 stored notification, got %d/%d", len(list), total)
	}
}

func TestDispatch_ScopeResolution(t *testing.T) {
	tests := []struct {
		name      string
		req       *model.DispatchRequest
		wantPush  map[string]int
		wantLists bool
	}{
		{
			name:     "specific",
			req:      specific(bobID),
			wantPush: map[string]int{aliceID: 0, bobID: 1, carolID: 0},
		},
		{
			name:      "company",
			req:       &model.DispatchRequest{Scope: model.ScopeCompany, CompanyID: companyA, Title: "t", Message: "m", Category: model.CategoryBroadcast},
			wantPush:  map[string]int{aliceID: 1, bobID: 1, carolID: 0},
			wantLists: true,
		},
		{
			name:     "all",
			req:      &model.DispatchRequest{Scope: model.ScopeAll, Title: "t", Message: "m", Category: model.CategoryBroadcast},
			wantPush: map[string]int{aliceID: 1, bobID: 1, carolID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			conns := map[string]*recordingConn{
				aliceID: env.connect(aliceID, "a"),
				bobID:   env.connect(bobID, "b"),
				carolID: env.connect(carolID, "c"),
			}

			if _, err := env.svc.Dispatch(context.Background(), tt.req); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			for user, want := range tt.wantPush {
				if got := conns[user].count(); got != want {
					t.Errorf("user %s got %d pushes, want %d", user, got, want)
				}
			}
			if tt.wantLists && env.dir.listedCalls != 1 {
				t.Errorf("expected directory lookup at dispatch time")
			}
		})
	}
}

func TestDispatch_ConnectionFailureIsIsolated(t *testing.T) {
	env := newTestEnv()
	broken := &recordingConn{id: "broken", user: aliceID, sendErr: errors.New("buffer full")}
	env.registry.Register(aliceID, broken)
	healthy := env.connect(aliceID, "healthy")

	if _, err := env.svc.Dispatch(context.Background(), specific(aliceID)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if healthy.count() != 1 {
		t.Errorf("healthy connection got %d pushes", healthy.count())
	}
}

func TestDispatch_Failures(t *testing.T) {
	t.Run("persistence failure is returned", func(t *testing.T) {
		env := newTestEnv()
		env.repo.createErr = errors.New("disk full")

		_, err := env.svc.Dispatch(context.Background(), specific(aliceID))
		assertCode(t, err, apperrors.CodeInternal)
	})

	t.Run("resolution failure still returns the notification", func(t *testing.T) {
		env := newTestEnv()
		env.dir.listErr = errors.New("directory down")

		n, err := env.svc.Dispatch(context.Background(), &model.DispatchRequest{
			Scope: model.ScopeCompany, CompanyID: companyA, Title: "t", Message: "m", Category: model.CategoryBroadcast,
		})
		if err != nil || n == nil || n.ID == "" {
			t.Fatalf("expected persisted notification, got %v, %v", n, err)
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Dispatch(context.Background(), &model.DispatchRequest{Scope: model.ScopeSpecific, Title: "t", Message: "m", Category: "x"})
		assertCode(t, err, apperrors.CodeValidation)
	})
}

func TestQueries_UseCurrentCompany(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.svc.Dispatch(ctx, &model.DispatchRequest{
		Scope: model.ScopeCompany, CompanyID: companyA, Title: "t", Message: "m", Category: model.CategoryBroadcast,
	}); err != nil {
		t.Fatal(err)
	}

	count, err := env.svc.UnreadCount(ctx, aliceID)
	if err != nil || count != 1 {
		t.Fatalf("UnreadCount = %d, %v", count, err)
	}

	env.dir.users[aliceID].CompanyID = companyB

	count, err = env.svc.UnreadCount(ctx, aliceID)
	if err != nil || count != 0 {
		t.Fatalf("after moving company UnreadCount = %d, %v", count, err)
	}
}

func TestMarkAsRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	n, err := env.svc.Dispatch(ctx, specific(aliceID))
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.svc.MarkAsRead(ctx, carolID, n.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = env.svc.MarkAsRead(ctx, aliceID, unknownID)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = env.svc.MarkAsRead(ctx, unknownID, n.ID)
	assertCode(t, err, apperrors.CodeNotFound)

	first, err := env.svc.MarkAsRead(ctx, aliceID, n.ID)
	if err != nil || !first.IsRead || first.ReadAt == nil {
		t.Fatalf("MarkAsRead = %+v, %v", first, err)
	}

	second, err := env.svc.MarkAsRead(ctx, aliceID, n.ID)
	if err != nil {
		t.Fatalf("second MarkAsRead: %v", err)
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Errorf("read_at changed on repeated mark: %v vs %v", second.ReadAt, first.ReadAt)
	}

	count, _ := env.svc.UnreadCount(ctx, aliceID)
	if count != 0 {
		t.Errorf("unread = %d after mark", count)
	}
}

func TestBroadcast_Authorization(t *testing.T) {
	superadmin := &auth.Principal{UserID: "root", Role: model.RoleSuperAdmin}
	admin := &auth.Principal{UserID: bobID, Role: model.RoleAdmin, CompanyID: companyA}
	staff := &auth.Principal{UserID: aliceID, Role: model.RoleStaff, CompanyID: companyA}

	tests := []struct {
		name     string
		actor    *auth.Principal
		req      model.BroadcastRequest
		wantCode string
	}{
		{name: "superadmin to all", actor: superadmin, req: model.BroadcastRequest{Scope: model.ScopeAll, Title: "t", Message: "m"}},
		{name: "superadmin to any company", actor: superadmin, req: model.BroadcastRequest{Scope: model.ScopeCompany, CompanyID: companyB, Title: "t", Message: "m"}},
		{name: "superadmin company needs id", actor: superadmin, req: model.BroadcastRequest{Scope: model.ScopeCompany, Title: "t", Message: "m"}, wantCode: apperrors.CodeValidation},
		{name: "admin to own company by default", actor: admin, req: model.BroadcastRequest{Scope: model.ScopeCompany, Title: "t", Message: "m"}},
		{name: "admin to other company", actor: admin, req: model.BroadcastRequest{Scope: model.ScopeCompany, CompanyID: companyB, Title: "t", Message: "m"}, wantCode: apperrors.CodeForbidden},
		{name: "admin to all", actor: admin, req: model.BroadcastRequest{Scope: model.ScopeAll, Title: "t", Message: "m"}, wantCode: apperrors.CodeForbidden},
		{name: "staff", actor: staff, req: model.BroadcastRequest{Scope: model.ScopeCompany, Title: "t", Message: "m"}, wantCode: apperrors.CodeForbidden},
		{name: "anonymous", actor: nil, req: model.BroadcastRequest{Scope: model.ScopeAll, Title: "t", Message: "m"}, wantCode: apperrors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			n, err := env.svc.Broadcast(context.Background(), tt.actor, &tt.req)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("Broadcast: %v", err)
			}
			if n.Category != model.CategoryBroadcast || n.SenderID != tt.actor.UserID {
				t.Errorf("unexpected notification %+v", n)
			}
		})
	}
}
