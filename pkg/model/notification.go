package model

import "time"

type NotificationScope string

const (
	ScopeSpecific NotificationScope = "specific"
	ScopeCompany  NotificationScope = "company"
	ScopeAll      NotificationScope = "all"
)

const (
	CategoryBookingCreated     = "booking_created"
	CategoryStatusChanged      = "status_changed"
	CategoryAppointmentDeleted = "appointment_deleted"
	CategoryBroadcast          = "broadcast"
	CategorySystem             = "system"
)

type Notification struct {
	ID            string            `json:"id,omitempty" bson:"_id,omitempty"`
	Title         string            `json:"title" bson:"title"`
	Message       string            `json:"message" bson:"message"`
	Category      string            `json:"category" bson:"category"`
	Scope         NotificationScope `json:"scope" bson:"scope"`
	RecipientID   string            `json:"recipient_id,omitempty" bson:"recipient_id,omitempty"`
	CompanyID     string            `json:"company_id,omitempty" bson:"company_id,omitempty"`
	AppointmentID string            `json:"appointment_id,omitempty" bson:"appointment_id,omitempty"`
	SenderID      string            `json:"sender_id,omitempty" bson:"sender_id,omitempty"`
	IsRead        bool              `json:"is_read" bson:"is_read"`
	ReadAt        *time.Time        `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}

// VisibleTo evaluates the scope against the user's current record.
func (n *Notification) VisibleTo(u *User) bool {
	switch n.Scope {
	case ScopeSpecific:
		return n.RecipientID == u.ID
	case ScopeCompany:
		return u.CompanyID != "" && n.CompanyID == u.CompanyID
	case ScopeAll:
		return true
	default:
		return false
	}
}

type DispatchRequest struct {
	Scope         NotificationScope `json:"scope" validate:"required,oneof=specific company all"`
	RecipientID   string            `json:"recipient_id,omitempty" validate:"required_if=Scope specific,omitempty,mongodb"`
	CompanyID     string            `json:"company_id,omitempty" validate:"required_if=Scope company,omitempty,mongodb"`
	Title         string            `json:"title" validate:"required,min=1,max=200"`
	Message       string            `json:"message" validate:"required,min=1,max=2000"`
	Category      string            `json:"category" validate:"required,max=50"`
	AppointmentID string            `json:"appointment_id,omitempty" validate:"omitempty,mongodb"`
	SenderID      string            `json:"sender_id,omitempty"`
}

// BroadcastRequest is the REST body of an administrative broadcast.
type BroadcastRequest struct {
	Scope     NotificationScope `json:"scope" validate:"required,oneof=company all"`
	CompanyID string            `json:"company_id,omitempty" validate:"omitempty,mongodb"`
	Title     string            `json:"title" validate:"required,min=1,max=200"`
	Message   string            `json:"message" validate:"required,min=1,max=2000"`
}
