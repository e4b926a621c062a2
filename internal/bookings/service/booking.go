package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookline/internal/bookings/conflict"
	bookingserrors "bookline/internal/bookings/errors"
	"bookline/internal/bookings/events"
	"bookline/internal/bookings/repository"
	"bookline/internal/bookings/validator"
	directoryerrors "bookline/internal/directory/errors"
	directory "bookline/internal/directory/repository"
	identityerrors "bookline/internal/identity/errors"
	"bookline/internal/identity/resolver"
	"bookline/pkg/auth"
	"bookline/pkg/config"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/model"
	"bookline/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// claimBatchSize bounds how many guest appointments one claim call inspects.
const claimBatchSize = 200

type BookingService interface {
	CreateBooking(ctx context.Context, req *model.AppointmentRequest, actor *auth.Principal) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate, actor *auth.Principal) (*model.Appointment, error)
	Delete(ctx context.Context, id string, actor *auth.Principal) error
	GetByID(ctx context.Context, id string, actor *auth.Principal) (*model.Appointment, error)
	List(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64, actor *auth.Principal) ([]*model.Appointment, int64, error)
	ClaimGuestBookings(ctx context.Context, customerID string, actor *auth.Principal) ([]string, error)
}

// Notifier delivers in-app notifications to interested parties.
type Notifier interface {
	Dispatch(ctx context.Context, req *model.DispatchRequest) (*model.Notification, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, contact model.CustomerContact) (*resolver.Resolution, error)
	CreateWalkIn(ctx context.Context, contact model.CustomerContact, companyID string) (*model.User, error)
}

type bookingService struct {
	repo      repository.AppointmentRepository
	directory directory.DirectoryRepository
	identity  IdentityResolver
	locker    SlotLocker
	notifier  Notifier
	publisher events.Publisher
	validator *validator.AppointmentValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.AppointmentRepository,
	directory directory.DirectoryRepository,
	identity IdentityResolver,
	locker SlotLocker,
	notifier Notifier,
	publisher events.Publisher,
	validator *validator.AppointmentValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		directory: directory,
		identity:  identity,
		locker:    locker,
		notifier:  notifier,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req *model.AppointmentRequest, actor *auth.Principal) (*model.Appointment, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	contact := req.Customer
	s.sanitize(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	resolution := &resolver.Resolution{MatchedBy: resolver.MatchNone}
	switch {
	case actor.IsCustomer():
		resolution = &resolver.Resolution{CustomerID: actor.UserID}
	case req.Customer.IsEmpty():
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"errors": validator.ValidationErrors{{Field: "Customer", Message: "customer contact details are required"}},
		})
	default:
		var err error
		resolution, err = s.identity.Resolve(ctx, req.Customer)
		if err != nil {
			return nil, apperrors.Internal("Failed to resolve customer identity", err)
		}
	}

	staff, err := s.loadStaff(ctx, req, actor)
	if err != nil {
		return nil, err
	}
	service, err := s.loadService(ctx, req.ServiceID, staff.CompanyID)
	if err != nil {
		return nil, err
	}
	if !staff.OffersService(service.ID) {
		return nil, apperrors.ServiceNotAssigned(staff.ID, service.ID)
	}

	createCustomer := req.CreateCustomer && !actor.IsCustomer()
	if createCustomer && !actor.IsAdminOf(staff.CompanyID) {
		return nil, apperrors.Forbidden("Only administrators can register walk-in customers")
	}

	unlock, err := s.locker.Lock(ctx, SlotKey(staff.ID, req.Date))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperrors.Timeout("Timed out waiting for the staff calendar")
		}
		return nil, apperrors.Internal("Failed to lock staff calendar", err)
	}
	// unlock is idempotent. The deferred call only covers a panic in the
	// transaction; the lock is released as soon as the transaction returns.
	defer unlock()

	candidate, _ := conflict.NewInterval(req.StartTime, req.EndTime)
	appointment := s.newAppointment(req, contact, staff.CompanyID, resolution.CustomerID, actor)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		// The callback may be retried on transient transaction errors.
		appointment.ID = ""
		appointment.CustomerID = resolution.CustomerID
		appointment.IsGuest = resolution.CustomerID == ""

		existing, err := s.repo.FindActiveByStaffAndDate(sessCtx, staff.ID, req.Date)
		if err != nil {
			return apperrors.Internal("Failed to check staff calendar", err)
		}
		if conflict.HasConflict(existing, staff.ID, req.Date, candidate) {
			return apperrors.SlotUnavailable(staff.ID, req.Date, req.StartTime, req.EndTime)
		}

		if appointment.IsGuest && createCustomer && resolution.MatchedBy == resolver.MatchNone {
			customer, err := s.identity.CreateWalkIn(sessCtx, req.Customer, staff.CompanyID)
			if err != nil {
				if errors.Is(err, identityerrors.ErrDuplicateCustomer) {
					return apperrors.Conflict("A customer with this phone or email already exists")
				}
				return apperrors.Internal("Failed to create customer", err)
			}
			appointment.CustomerID = customer.ID
			appointment.IsGuest = false
		}

		if err := s.repo.Create(sessCtx, appointment); err != nil {
			return apperrors.Internal("Failed to create appointment", err)
		}

		if err := s.directory.AddAppointment(sessCtx, []string{staff.ID, appointment.CustomerID}, appointment.ID); err != nil {
			return apperrors.Internal("Failed to record appointment on participants", err)
		}
		return nil
	})
	unlock()
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSlotUnavailable) {
			s.cfg.Log.Info("Booking rejected, slot unavailable",
				"staff_id", staff.ID,
				"date", req.Date,
				"start_time", req.StartTime,
				"end_time", req.EndTime,
			)
		} else {
			s.cfg.Log.Error("Failed to create appointment", "error", err)
		}
		return nil, err
	}

	s.cfg.Log.Info("Appointment created successfully",
		"id", appointment.ID,
		"company_id", appointment.CompanyID,
		"staff_id", appointment.StaffID,
		"customer_id", appointment.CustomerID,
		"is_guest", appointment.IsGuest,
		"matched_by", resolution.MatchedBy,
	)

	s.notifyParticipants(ctx, appointment, actor, model.CategoryBookingCreated,
		"New appointment",
		fmt.Sprintf("%s booked %s on %s at %s-%s", customerLabel(appointment), service.Name, appointment.Date, appointment.StartTime, appointment.EndTime),
	)
	s.publish(ctx, events.TypeCreated, appointment, actor)

	return appointment, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate, actor *auth.Principal) (*model.Appointment, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if err := s.validator.ValidateStatus(update); err != nil {
		return nil, apperrors.Validation("Status validation failed", map[string]any{"errors": err})
	}

	appointment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	manages := actor.IsAdminOf(appointment.CompanyID) || (appointment.StaffID == actor.UserID && actor.Role == model.RoleStaff)
	owns := actor.IsCustomer() && appointment.CustomerID != "" && appointment.CustomerID == actor.UserID
	switch {
	case manages:
	case owns && update.Status == model.StatusCancelled:
	case owns:
		return nil, apperrors.Forbidden("Customers can only cancel their appointments")
	default:
		return nil, apperrors.Forbidden("Not allowed to change this appointment")
	}

	from := appointment.Status
	if !CanTransition(from, update.Status) {
		return nil, apperrors.InvalidTransition(string(from), string(update.Status))
	}

	change := model.StatusChange{
		Status:    update.Status,
		ChangedBy: actor.UserID,
		ChangedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	updated, err := s.repo.UpdateStatus(ctx, id, from, change)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			if current, findErr := s.repo.FindByID(ctx, id); findErr == nil {
				from = current.Status
			}
			return nil, apperrors.InvalidTransition(string(from), string(update.Status))
		}
		return nil, apperrors.Internal("Failed to update appointment status", err)
	}

	s.cfg.Log.Info("Appointment status changed",
		"id", updated.ID,
		"from", appointment.Status,
		"to", updated.Status,
		"changed_by", actor.UserID,
	)

	s.notifyParticipants(ctx, updated, actor, model.CategoryStatusChanged,
		"Appointment "+string(updated.Status),
		fmt.Sprintf("Appointment on %s at %s is now %s", updated.Date, updated.StartTime, updated.Status),
	)
	s.publish(ctx, events.TypeStatusChanged, updated, actor)

	return updated, nil
}

func (s *bookingService) Delete(ctx context.Context, id string, actor *auth.Principal) error {
	if actor == nil {
		return apperrors.Unauthorized("Authentication required")
	}

	appointment, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdminOf(appointment.CompanyID) {
		return apperrors.Forbidden("Only administrators can delete appointments")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Appointment", id)
			}
			return apperrors.Internal("Failed to delete appointment", err)
		}
		if err := s.directory.RemoveAppointment(sessCtx, []string{appointment.StaffID, appointment.CustomerID}, id); err != nil {
			return apperrors.Internal("Failed to remove appointment from participants", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete appointment", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Appointment deleted", "id", id, "deleted_by", actor.UserID)

	s.notifyParticipants(ctx, appointment, actor, model.CategoryAppointmentDeleted,
		"Appointment removed",
		fmt.Sprintf("Appointment on %s at %s was removed", appointment.Date, appointment.StartTime),
	)
	s.publish(ctx, events.TypeDeleted, appointment, actor)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string, actor *auth.Principal) (*model.Appointment, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	appointment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, appointment) {
		return nil, apperrors.NotFoundWithID("Appointment", id)
	}
	return appointment, nil
}

func (s *bookingService) List(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64, actor *auth.Principal) ([]*model.Appointment, int64, error) {
	if actor == nil {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	switch {
	case actor.IsSuperAdmin():
	case actor.IsCustomer():
		filter.CustomerID = actor.UserID
	default:
		filter.CompanyID = actor.CompanyID
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var appointments []*model.Appointment
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		appointments, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count appointments", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to list appointments", errFind)
	}
	return appointments, count, nil
}

// ClaimGuestBookings links guest appointments whose contact details resolve to
// customerID. Appointments already linked to someone are never touched.
func (s *bookingService) ClaimGuestBookings(ctx context.Context, customerID string, actor *auth.Principal) ([]string, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	customer, err := s.directory.FindUserByID(ctx, customerID)
	if err != nil {
		switch {
		case errors.Is(err, directoryerrors.ErrUserNotFound):
			return nil, apperrors.NotFoundWithID("Customer", customerID)
		case errors.Is(err, directoryerrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid customer ID format")
		default:
			return nil, apperrors.Internal("Failed to load customer", err)
		}
	}
	if customer.Role != model.RoleCustomer {
		return nil, apperrors.NotFoundWithID("Customer", customerID)
	}
	if actor.UserID != customer.ID && !actor.IsSuperAdmin() && !(customer.CompanyID != "" && actor.IsAdminOf(customer.CompanyID)) {
		return nil, apperrors.Forbidden("Not allowed to claim bookings for this customer")
	}

	digits := customer.PhoneDigits
	if digits == "" {
		digits = sanitizer.DigitsOnly(customer.Phone)
	}
	candidates, err := s.repo.FindUnlinkedGuests(ctx, digits, sanitizer.NormalizeEmail(customer.Email), claimBatchSize)
	if err != nil {
		return nil, apperrors.Internal("Failed to search guest appointments", err)
	}

	linked := []string{}
	for _, appt := range candidates {
		res, err := s.identity.Resolve(ctx, model.CustomerContact{
			Name:  appt.CustomerName,
			Phone: appt.CustomerPhone,
			Email: appt.CustomerEmail,
		})
		if err != nil {
			return linked, apperrors.Internal("Failed to resolve guest contact", err)
		}
		if res.CustomerID != customer.ID {
			continue
		}

		ok, err := s.repo.LinkCustomer(ctx, appt.ID, customer.ID)
		if err != nil {
			return linked, apperrors.Internal("Failed to link guest appointment", err)
		}
		if !ok {
			continue
		}
		if err := s.directory.AddAppointment(ctx, []string{customer.ID}, appt.ID); err != nil {
			s.cfg.Log.Warn("Failed to record claimed appointment on customer",
				"appointment_id", appt.ID,
				"customer_id", customer.ID,
				"error", err,
			)
		}
		linked = append(linked, appt.ID)
	}

	s.cfg.Log.Info("Guest bookings claimed",
		"customer_id", customer.ID,
		"candidates", len(candidates),
		"linked", len(linked),
	)
	return linked, nil
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid appointment ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve appointment", err)
	}
	return appointment, nil
}

// loadStaff returns the staff member named by req. A staff member outside
// the actor's tenant is reported as not found.
func (s *bookingService) loadStaff(ctx context.Context, req *model.AppointmentRequest, actor *auth.Principal) (*model.User, error) {
	staff, err := s.directory.FindUserByID(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrUserNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
			return nil, apperrors.StaffNotFound(req.StaffID)
		}
		return nil, apperrors.Internal("Failed to load staff member", err)
	}

	if staff.Role != model.RoleStaff || staff.Disabled || staff.CompanyID == "" {
		return nil, apperrors.StaffNotFound(req.StaffID)
	}
	if req.CompanyID != "" && req.CompanyID != staff.CompanyID {
		return nil, apperrors.StaffNotFound(req.StaffID)
	}
	if !actor.IsSuperAdmin() && !actor.IsCustomer() && actor.CompanyID != staff.CompanyID {
		return nil, apperrors.StaffNotFound(req.StaffID)
	}
	return staff, nil
}

func (s *bookingService) loadService(ctx context.Context, serviceID, companyID string) (*model.Service, error) {
	service, err := s.directory.FindServiceByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrServiceNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
			return nil, apperrors.ServiceNotFound(serviceID)
		}
		return nil, apperrors.Internal("Failed to load service", err)
	}
	if service.Disabled || service.CompanyID != companyID {
		return nil, apperrors.ServiceNotFound(serviceID)
	}
	return service, nil
}

// newAppointment stores the guest contact as submitted. Matching uses the
// derived phone digits and email key.
func (s *bookingService) newAppointment(req *model.AppointmentRequest, contact model.CustomerContact, companyID, customerID string, actor *auth.Principal) *model.Appointment {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Appointment{
		CompanyID:     companyID,
		StaffID:       req.StaffID,
		ServiceID:     req.ServiceID,
		CustomerID:    customerID,
		CustomerName:  contact.Name,
		CustomerPhone: contact.Phone,
		CustomerEmail: contact.Email,
		PhoneDigits:   sanitizer.DigitsOnly(contact.Phone),
		EmailKey:      sanitizer.NormalizeEmail(contact.Email),
		IsGuest:       customerID == "",
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        model.StatusPending,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
		StatusHistory: []model.StatusChange{{
			Status:    model.StatusPending,
			ChangedBy: actor.UserID,
			ChangedAt: now,
		}},
	}
}

func (s *bookingService) sanitize(req *model.AppointmentRequest) {
	req.Customer.Name = sanitizer.NormalizeName(req.Customer.Name)
	req.Customer.Email = sanitizer.NormalizeEmail(req.Customer.Email)
	req.Customer.Phone = sanitizer.CollapseSpace(req.Customer.Phone)
	req.Notes = sanitizer.CollapseSpace(req.Notes)
}

func (s *bookingService) validate(req *model.AppointmentRequest) error {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Appointment validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"errors": err})
	}
	return nil
}

// notifyParticipants sends one notification to the staff member and the
// linked customer, skipping the actor. Failures are logged only.
func (s *bookingService) notifyParticipants(ctx context.Context, appt *model.Appointment, actor *auth.Principal, category, title, message string) {
	for _, recipient := range recipients(appt, actor.UserID) {
		_, err := s.notifier.Dispatch(ctx, &model.DispatchRequest{
			Scope:         model.ScopeSpecific,
			RecipientID:   recipient,
			Title:         title,
			Message:       message,
			Category:      category,
			AppointmentID: appt.ID,
			SenderID:      actor.UserID,
		})
		if err != nil {
			s.cfg.Log.Warn("Failed to notify participant",
				"appointment_id", appt.ID,
				"recipient_id", recipient,
				"category", category,
				"error", err,
			)
		}
	}
}

func (s *bookingService) publish(ctx context.Context, eventType string, appt *model.Appointment, actor *auth.Principal) {
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, appt, actor.UserID)); err != nil {
		s.cfg.Log.Warn("Failed to publish appointment event",
			"appointment_id", appt.ID,
			"event_type", eventType,
			"error", err,
		)
	}
}

func recipients(appt *model.Appointment, actorID string) []string {
	var out []string
	for _, id := range []string{appt.StaffID, appt.CustomerID} {
		if id == "" || id == actorID {
			continue
		}
		if len(out) == 1 && out[0] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}

func canView(actor *auth.Principal, appt *model.Appointment) bool {
	switch {
	case actor.IsSuperAdmin():
		return true
	case actor.IsCustomer():
		return appt.CustomerID != "" && appt.CustomerID == actor.UserID
	default:
		return actor.CompanyID != "" && actor.CompanyID == appt.CompanyID
	}
}

func customerLabel(appt *model.Appointment) string {
	if appt.CustomerName != "" {
		return appt.CustomerName
	}
	return "A customer"
}
