//go:build integration

package testutil

import (
	"testing"
	"time"

	"bookline/internal/realtime/gate"
	"bookline/pkg/auth"
	"bookline/pkg/model"
	"bookline/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tenant is a seeded company with one of each role and a single service.
type Tenant struct {
	CompanyID  string
	ServiceID  string
	Admin      auth.Principal
	Staff      auth.Principal
	Customer   auth.Principal
	SuperAdmin auth.Principal

	CustomerPhone string
	CustomerEmail string
}

type UserBuilder struct {
	doc bson.M
}

func NewUserBuilder(role model.Role) *UserBuilder {
	return &UserBuilder{doc: bson.M{
		"_id":        primitive.NewObjectID(),
		"name":       "Test " + string(role),
		"role":       string(role),
		"created_at": time.Now().UTC(),
	}}
}

func (b *UserBuilder) WithCompany(companyID string) *UserBuilder {
	b.doc["company_id"] = companyID
	return b
}

func (b *UserBuilder) WithPhone(phone string) *UserBuilder {
	b.doc["phone"] = phone
	b.doc["phone_digits"] = sanitizer.DigitsOnly(phone)
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.doc["email"] = sanitizer.NormalizeEmail(email)
	return b
}

func (b *UserBuilder) WithServices(ids ...string) *UserBuilder {
	b.doc["services"] = ids
	return b
}

func (b *UserBuilder) ID() string {
	return b.doc["_id"].(primitive.ObjectID).Hex()
}

func (b *UserBuilder) Build() bson.M {
	return b.doc
}

// SeedTenant writes a company's users and service directly, standing in for
// the user management service that owns them.
func SeedTenant(t *testing.T, m *MongoHelper, phone, email string) *Tenant {
	t.Helper()

	companyID := primitive.NewObjectID().Hex()
	serviceID := primitive.NewObjectID()
	m.Insert(t, ServicesCollection, bson.M{
		"_id":          serviceID,
		"company_id":   companyID,
		"name":         "Haircut",
		"duration_min": 30,
	})

	admin := NewUserBuilder(model.RoleAdmin).WithCompany(companyID)
	staff := NewUserBuilder(model.RoleStaff).WithCompany(companyID).WithServices(serviceID.Hex())
	customer := NewUserBuilder(model.RoleCustomer).WithCompany(companyID).WithPhone(phone).WithEmail(email)
	superAdmin := NewUserBuilder(model.RoleSuperAdmin)
	for _, b := range []*UserBuilder{admin, staff, customer, superAdmin} {
		m.Insert(t, UsersCollection, b.Build())
	}

	return &Tenant{
		CompanyID:     companyID,
		ServiceID:     serviceID.Hex(),
		Admin:         auth.Principal{UserID: admin.ID(), Role: model.RoleAdmin, CompanyID: companyID},
		Staff:         auth.Principal{UserID: staff.ID(), Role: model.RoleStaff, CompanyID: companyID},
		Customer:      auth.Principal{UserID: customer.ID(), Role: model.RoleCustomer, CompanyID: companyID},
		SuperAdmin:    auth.Principal{UserID: superAdmin.ID(), Role: model.RoleSuperAdmin},
		CustomerPhone: phone,
		CustomerEmail: email,
	}
}

func Token(t *testing.T, env *TestEnv, p auth.Principal) string {
	t.Helper()
	token, err := gate.IssueToken(env.JWTSecret, p, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// BookingDate returns a date far enough ahead to always be bookable.
func BookingDate(daysAhead int) string {
	return time.Now().UTC().AddDate(0, 0, daysAhead).Format(model.DateLayout)
}

func AppointmentBody(tenant *Tenant, date, start, end string, customer map[string]string) map[string]any {
	body := map[string]any{
		"staff_id":   tenant.Staff.UserID,
		"service_id": tenant.ServiceID,
		"date":       date,
		"start_time": start,
		"end_time":   end,
	}
	if customer != nil {
		body["customer"] = customer
	}
	return body
}
