package service

import (
	"context"
	"fmt"
	"sync"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/internal/bookings/events"
	directoryerrors "bookline/internal/directory/errors"
	"bookline/internal/identity/resolver"
	mongotx "bookline/pkg/db/mongo"
	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// fakeAppointmentRepository keeps appointments in memory. Transactions run
// the callback directly.
type fakeAppointmentRepository struct {
	mu     sync.Mutex
	seq    int
	byID   map[string]*model.Appointment
	linked map[string]string

	updateStatusFunc func(ctx context.Context, id string, from model.AppointmentStatus, change model.StatusChange) (*model.Appointment, error)
}

func newFakeAppointmentRepository() *fakeAppointmentRepository {
	return &fakeAppointmentRepository{
		byID:   make(map[string]*model.Appointment),
		linked: make(map[string]string),
	}
}

func (r *fakeAppointmentRepository) put(a *model.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
}

func (r *fakeAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("%024x", r.seq)
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAppointmentRepository) FindActiveByStaffAndDate(ctx context.Context, staffID, date string) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.byID {
		if a.StaffID == staffID && a.Date == date && a.Status.IsActive() {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepository) Find(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.byID {
		if matches(a, filter) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepository) Count(ctx context.Context, filter model.AppointmentFilter) (int64, error) {
	found, _ := r.Find(ctx, filter, 0, 0)
	return int64(len(found)), nil
}

func matches(a *model.Appointment, f model.AppointmentFilter) bool {
	return (f.CompanyID == "" || a.CompanyID == f.CompanyID) &&
		(f.StaffID == "" || a.StaffID == f.StaffID) &&
		(f.CustomerID == "" || a.CustomerID == f.CustomerID) &&
		(f.Date == "" || a.Date == f.Date) &&
		(f.Status == "" || a.Status == f.Status)
}

func (r *fakeAppointmentRepository) UpdateStatus(ctx context.Context, id string, from model.AppointmentStatus, change model.StatusChange) (*model.Appointment, error) {
	if r.updateStatusFunc != nil {
		return r.updateStatusFunc(ctx, id, from, change)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Status != from {
		return nil, bookingserrors.ErrStatusChanged
	}
	a.Status = change.Status
	a.StatusHistory = append(a.StatusHistory, change)
	cp := *a
	return &cp, nil
}

func (r *fakeAppointmentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeAppointmentRepository) FindUnlinkedGuests(ctx context.Context, phoneDigits, email string, limit int) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.byID {
		if !a.IsGuest || a.CustomerID != "" {
			continue
		}
		if (phoneDigits != "" && resolver.PhonesOverlap(a.PhoneDigits, phoneDigits)) || (email != "" && a.CustomerEmail == email) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepository) LinkCustomer(ctx context.Context, id, customerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.CustomerID != "" {
		return false, nil
	}
	a.CustomerID = customerID
	a.IsGuest = false
	return true, nil
}

func (r *fakeAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockDirectory struct {
	mu       sync.Mutex
	users    map[string]*model.User
	services map[string]*model.Service
	added    map[string][]string
	removed  map[string][]string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:    make(map[string]*model.User),
		services: make(map[string]*model.Service),
		added:    make(map[string][]string),
		removed:  make(map[string][]string),
	}
}

func (d *mockDirectory) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, directoryerrors.ErrUserNotFound
	}
	return u, nil
}

func (d *mockDirectory) FindServiceByID(ctx context.Context, id string) (*model.Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.services[id]
	if !ok {
		return nil, directoryerrors.ErrServiceNotFound
	}
	return s, nil
}

func (d *mockDirectory) ListUserIDsByCompany(ctx context.Context, companyID string) ([]string, error) {
	return nil, nil
}

func (d *mockDirectory) AddAppointment(ctx context.Context, userIDs []string, appointmentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range userIDs {
		if id != "" {
			d.added[id] = append(d.added[id], appointmentID)
		}
	}
	return nil
}

func (d *mockDirectory) RemoveAppointment(ctx context.Context, userIDs []string, appointmentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range userIDs {
		if id != "" {
			d.removed[id] = append(d.removed[id], appointmentID)
		}
	}
	return nil
}

type mockIdentity struct {
	resolveFunc      func(ctx context.Context, contact model.CustomerContact) (*resolver.Resolution, error)
	createWalkInFunc func(ctx context.Context, contact model.CustomerContact, companyID string) (*model.User, error)
}

func (m *mockIdentity) Resolve(ctx context.Context, contact model.CustomerContact) (*resolver.Resolution, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, contact)
	}
	return &resolver.Resolution{MatchedBy: resolver.MatchNone}, nil
}

func (m *mockIdentity) CreateWalkIn(ctx context.Context, contact model.CustomerContact, companyID string) (*model.User, error) {
	if m.createWalkInFunc != nil {
		return m.createWalkInFunc(ctx, contact, companyID)
	}
	return &model.User{ID: walkInID, Role: model.RoleCustomer, CompanyID: companyID}, nil
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []*model.DispatchRequest
	err  error
}

func (m *mockNotifier) Dispatch(ctx context.Context, req *model.DispatchRequest) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
	if m.err != nil {
		return nil, m.err
	}
	return &model.Notification{Title: req.Title, RecipientID: req.RecipientID}, nil
}

func (m *mockNotifier) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.sent {
		out = append(out, r.RecipientID)
	}
	return out
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	publishFunc func(ctx context.Context, e events.Event) error
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }
