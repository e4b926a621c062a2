package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// DateLayout and ClockLayout are the wire formats of Appointment.Date and Start/EndTime.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// IsActive reports whether the status still occupies the staff member's calendar.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

type Appointment struct {
	ID            string            `json:"id,omitempty" bson:"_id,omitempty"`
	CompanyID     string            `json:"company_id" bson:"company_id"`
	StaffID       string            `json:"staff_id" bson:"staff_id"`
	ServiceID     string            `json:"service_id" bson:"service_id"`
	CustomerID    string            `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	CustomerPhone string            `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty" bson:"customer_email,omitempty"`
	PhoneDigits   string            `json:"-" bson:"customer_phone_digits,omitempty"`
	EmailKey      string            `json:"-" bson:"customer_email_key,omitempty"`
	IsGuest       bool              `json:"is_guest" bson:"is_guest"`
	Date          string            `json:"date" bson:"date"`
	StartTime     string            `json:"start_time" bson:"start_time"`
	EndTime       string            `json:"end_time" bson:"end_time"`
	Status        AppointmentStatus `json:"status" bson:"status"`
	Notes         string            `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy     string            `json:"created_by" bson:"created_by"`
	StatusHistory []StatusChange    `json:"status_history,omitempty" bson:"status_history,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
}

type StatusChange struct {
	Status    AppointmentStatus `json:"status" bson:"status"`
	ChangedBy string            `json:"changed_by" bson:"changed_by"`
	ChangedAt time.Time         `json:"changed_at" bson:"changed_at"`
}

type CustomerContact struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone string `json:"phone,omitempty" validate:"omitempty,contact_phone"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

func (c CustomerContact) IsEmpty() bool {
	return c.Name == "" && c.Phone == "" && c.Email == ""
}

// AppointmentRequest is the input of a booking. CompanyID may be omitted; it then comes from the actor.
type AppointmentRequest struct {
	CompanyID      string          `json:"company_id,omitempty" validate:"omitempty,mongodb"`
	StaffID        string          `json:"staff_id" validate:"required,mongodb"`
	ServiceID      string          `json:"service_id" validate:"required,mongodb"`
	Date           string          `json:"date" validate:"required,booking_date"`
	StartTime      string          `json:"start_time" validate:"required,clock_time"`
	EndTime        string          `json:"end_time" validate:"required,clock_time"`
	Customer       CustomerContact `json:"customer"`
	Notes          string          `json:"notes,omitempty" validate:"max=500"`
	CreateCustomer bool            `json:"create_customer,omitempty"`
}

type StatusUpdate struct {
	Status AppointmentStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled no-show"`
}

type AppointmentFilter struct {
	CompanyID  string
	StaffID    string
	CustomerID string
	Date       string
	Status     AppointmentStatus
}
