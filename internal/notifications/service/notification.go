package service

import (
	"context"
	"errors"
	"sync"
	"time"

	directoryerrors "bookline/internal/directory/errors"
	notificationserrors "bookline/internal/notifications/errors"
	"bookline/internal/notifications/repository"
	"bookline/internal/notifications/validator"
	"bookline/internal/realtime/presence"
	"bookline/pkg/auth"
	"bookline/pkg/config"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/model"
	"bookline/pkg/sanitizer"
)

type NotificationService interface {
	Dispatch(ctx context.Context, req *model.DispatchRequest) (*model.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*model.Notification, error)
	Broadcast(ctx context.Context, actor *auth.Principal, req *model.BroadcastRequest) (*model.Notification, error)
}

// UserDirectory is the part of the directory the dispatcher reads.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	ListUserIDsByCompany(ctx context.Context, companyID string) ([]string, error)
}

// Presence is the live-connection view used for pushing.
type Presence interface {
	ConnectionsFor(userID string) []presence.Connection
	Users() []string
}

type notificationService struct {
	repo      repository.NotificationRepository
	directory UserDirectory
	presence  Presence
	validator *validator.NotificationValidator
	cfg       *config.Config
}

func NewNotificationService(
	repo repository.NotificationRepository,
	directory UserDirectory,
	presence Presence,
	validator *validator.NotificationValidator,
	cfg *config.Config,
) NotificationService {
	return &notificationService{
		repo:      repo,
		directory: directory,
		presence:  presence,
		validator: validator,
		cfg:       cfg,
	}
}

// Dispatch persists the notification and pushes it to every live connection
// of its recipients. Only persistence failures are returned.
func (s *notificationService) Dispatch(ctx context.Context, req *model.DispatchRequest) (*model.Notification, error) {
	req.Title = sanitizer.CollapseSpace(req.Title)
	req.Message = sanitizer.CollapseSpace(req.Message)

	if err := s.validator.ValidateDispatch(req); err != nil {
		s.cfg.Log.Warn("Notification validation failed", "error", err)
		return nil, apperrors.Validation("Notification validation failed", map[string]any{"errors": err})
	}

	notification := &model.Notification{
		Title:         req.Title,
		Message:       req.Message,
		Category:      req.Category,
		Scope:         req.Scope,
		AppointmentID: req.AppointmentID,
		SenderID:      req.SenderID,
	}
	switch req.Scope {
	case model.ScopeSpecific:
		notification.RecipientID = req.RecipientID
	case model.ScopeCompany:
		notification.CompanyID = req.CompanyID
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		s.cfg.Log.Error("Failed to persist notification", "scope", req.Scope, "error", err)
		return nil, apperrors.Internal("Failed to create notification", err)
	}

	recipients, err := s.resolveRecipients(ctx, notification)
	if err != nil {
		s.cfg.Log.Warn("Failed to resolve notification recipients",
			"notification_id", notification.ID,
			"scope", notification.Scope,
			"error", err,
		)
		return notification, nil
	}

	delivered := s.push(notification, recipients)
	s.cfg.Log.Info("Notification dispatched",
		"notification_id", notification.ID,
		"scope", notification.Scope,
		"category", notification.Category,
		"recipients", len(recipients),
		"delivered", delivered,
	)
	return notification, nil
}

func (s *notificationService) resolveRecipients(ctx context.Context, n *model.Notification) ([]string, error) {
	switch n.Scope {
	case model.ScopeSpecific:
		return []string{n.RecipientID}, nil
	case model.ScopeCompany:
		return s.directory.ListUserIDsByCompany(ctx, n.CompanyID)
	case model.ScopeAll:
		return s.presence.Users(), nil
	default:
		return nil, nil
	}
}

// push sends to a snapshot of each recipient's connections. A failing
// connection does not affect the others.
func (s *notificationService) push(n *model.Notification, recipients []string) int {
	delivered := 0
	for _, userID := range recipients {
		for _, conn := range s.presence.ConnectionsFor(userID) {
			if err := conn.Send(presence.EventNewNotification, n); err != nil {
				s.cfg.Log.Warn("Failed to push notification",
					"notification_id", n.ID,
					"user_id", userID,
					"connection_id", conn.ID(),
					"error", err,
				)
				continue
			}
			delivered++
		}
	}
	return delivered
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, int64, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var notifications []*model.Notification
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountVisible(ctx, user)
	}()

	go func() {
		defer wg.Done()
		notifications, errFind = s.repo.FindVisible(ctx, user, limit, offset)
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count notifications", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to list notifications", errFind)
	}
	return notifications, count, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.CountUnread(ctx, user)
	if err != nil {
		return 0, apperrors.Internal("Failed to count unread notifications", err)
	}
	return count, nil
}

// MarkAsRead is idempotent: a notification that is already read is returned as is.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (*model.Notification, error) {
	if notificationID == "" {
		return nil, apperrors.InvalidInput("Notification ID cannot be empty")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	notification, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, s.mapRepoError(err, notificationID)
	}
	if !notification.VisibleTo(user) {
		return nil, apperrors.Forbidden("Not allowed to modify this notification")
	}
	if notification.IsRead {
		return notification, nil
	}

	updated, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return nil, s.mapRepoError(err, notificationID)
	}

	s.cfg.Log.Info("Notification marked as read", "notification_id", notificationID, "user_id", userID)
	return updated, nil
}

// Broadcast lets a superadmin reach everyone or any company, and an admin
// reach their own company.
func (s *notificationService) Broadcast(ctx context.Context, actor *auth.Principal, req *model.BroadcastRequest) (*model.Notification, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if err := s.validator.ValidateBroadcast(req); err != nil {
		return nil, apperrors.Validation("Broadcast validation failed", map[string]any{"errors": err})
	}

	switch {
	case actor.IsSuperAdmin():
		if req.Scope == model.ScopeCompany && req.CompanyID == "" {
			return nil, apperrors.Validation("Broadcast validation failed", map[string]any{
				"errors": validator.ValidationErrors{{Field: "CompanyID", Message: "CompanyID is required"}},
			})
		}
	case actor.Role == model.RoleAdmin:
		if req.Scope == model.ScopeAll {
			return nil, apperrors.Forbidden("Only superadmins can broadcast to everyone")
		}
		if req.CompanyID == "" {
			req.CompanyID = actor.CompanyID
		}
		if !actor.IsAdminOf(req.CompanyID) {
			return nil, apperrors.Forbidden("Admins can only broadcast to their own company")
		}
	default:
		return nil, apperrors.Forbidden("Only administrators can broadcast")
	}

	dispatch := &model.DispatchRequest{
		Scope:    req.Scope,
		Title:    req.Title,
		Message:  req.Message,
		Category: model.CategoryBroadcast,
		SenderID: actor.UserID,
	}
	if req.Scope == model.ScopeCompany {
		dispatch.CompanyID = req.CompanyID
	}
	return s.Dispatch(ctx, dispatch)
}

// loadUser re-reads the user so scope checks use the current company.
func (s *notificationService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	user, err := s.directory.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrUserNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	if user.Disabled {
		return nil, apperrors.Forbidden("User is disabled")
	}
	return user, nil
}

func (s *notificationService) mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, notificationserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Notification", id)
	case errors.Is(err, notificationserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid notification ID format")
	default:
		return apperrors.Internal("Failed to access notification", err)
	}
}
