package resolver

import (
	"context"
	"fmt"
	"strings"

	"bookline/internal/identity/repository"
	"bookline/pkg/logger"
	"bookline/pkg/model"
	"bookline/pkg/sanitizer"
)

type MatchKind string

const (
	MatchNone          MatchKind = "none"
	MatchPhoneExact    MatchKind = "phone_exact"
	MatchPhoneContains MatchKind = "phone_contains"
	MatchEmail         MatchKind = "email"
	MatchAmbiguous     MatchKind = "ambiguous"
)

// Resolution is the outcome of matching a contact to a registered customer.
// CustomerID is set only for an unambiguous match.
type Resolution struct {
	CustomerID string
	MatchedBy  MatchKind
}

func (r *Resolution) Matched() bool {
	return r.CustomerID != ""
}

// probe is the query limit used to tell a unique match from an ambiguous one.
const probe = 2

type Resolver struct {
	repo repository.CustomerRepository
	log  *logger.Logger
}

func New(repo repository.CustomerRepository, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, log: log}
}

// Resolve matches contact details to at most one customer. Stages run in
// order: exact phone digits, phone containment, email. The first stage that
// yields any candidate decides; more than one candidate means no link.
func (r *Resolver) Resolve(ctx context.Context, contact model.CustomerContact) (*Resolution, error) {
	digits := sanitizer.DigitsOnly(contact.Phone)
	email := sanitizer.NormalizeEmail(contact.Email)

	if digits != "" {
		exact, err := r.repo.FindByPhoneDigits(ctx, digits, probe)
		if err != nil {
			return nil, fmt.Errorf("exact phone lookup: %w", err)
		}
		if res, done := decide(exact, MatchPhoneExact); done {
			return res, nil
		}

		if len(digits) >= sanitizer.MinPhoneDigits {
			candidates, err := r.repo.FindByPhoneContaining(ctx, digits, sanitizer.MinPhoneDigits, probe)
			if err != nil {
				return nil, fmt.Errorf("phone containment lookup: %w", err)
			}
			if res, done := decide(filterContaining(candidates, digits), MatchPhoneContains); done {
				return res, nil
			}
		}
	}

	if email != "" {
		byEmail, err := r.repo.FindByEmail(ctx, email, probe)
		if err != nil {
			return nil, fmt.Errorf("email lookup: %w", err)
		}
		if res, done := decide(byEmail, MatchEmail); done {
			return res, nil
		}
	}

	return &Resolution{MatchedBy: MatchNone}, nil
}

func decide(candidates []*model.User, kind MatchKind) (*Resolution, bool) {
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return &Resolution{CustomerID: candidates[0].ID, MatchedBy: kind}, true
	default:
		return &Resolution{MatchedBy: MatchAmbiguous}, true
	}
}

func filterContaining(candidates []*model.User, digits string) []*model.User {
	var out []*model.User
	for _, c := range candidates {
		if PhonesOverlap(c.PhoneDigits, digits) {
			out = append(out, c)
		}
	}
	return out
}

// PhonesOverlap reports whether one digit string contains the other, with
// both at least MinPhoneDigits long.
func PhonesOverlap(a, b string) bool {
	if len(a) < sanitizer.MinPhoneDigits || len(b) < sanitizer.MinPhoneDigits {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// NewWalkInCustomer builds the customer record created for a walk-in booking.
func NewWalkInCustomer(contact model.CustomerContact, companyID string) *model.User {
	return &model.User{
		CompanyID:   companyID,
		Name:        sanitizer.NormalizeName(contact.Name),
		Email:       sanitizer.NormalizeEmail(contact.Email),
		Phone:       sanitizer.NormalizePhone(contact.Phone),
		PhoneDigits: sanitizer.DigitsOnly(contact.Phone),
		Role:        model.RoleCustomer,
	}
}

// CreateWalkIn creates a customer from contact details.
func (r *Resolver) CreateWalkIn(ctx context.Context, contact model.CustomerContact, companyID string) (*model.User, error) {
	customer := NewWalkInCustomer(contact, companyID)
	if err := r.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	r.log.Info("Walk-in customer created",
		"customer_id", customer.ID,
		"company_id", companyID,
	)
	return customer, nil
}
