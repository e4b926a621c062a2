package model

import "time"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleCustomer   Role = "customer"
)

// User is owned by the user management service. This service reads it and
// maintains only PhoneDigits (for customers it creates) and Appointments.
type User struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty"`
	CompanyID    string    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	PhoneDigits  string    `json:"-" bson:"phone_digits,omitempty"`
	Role         Role      `json:"role" bson:"role"`
	Services     []string  `json:"services,omitempty" bson:"services,omitempty"`
	Appointments []string  `json:"appointments,omitempty" bson:"appointments,omitempty"`
	Disabled     bool      `json:"disabled,omitempty" bson:"disabled,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

func (u *User) OffersService(serviceID string) bool {
	for _, id := range u.Services {
		if id == serviceID {
			return true
		}
	}
	return false
}
