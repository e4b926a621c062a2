package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bookline/pkg/model"
)

var ErrAuthentication = errors.New("authentication failed")

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	UserID    string     `json:"user_id"`
	Role      model.Role `json:"role"`
	CompanyID string     `json:"company_id,omitempty"`
}

func (p *Principal) IsSuperAdmin() bool {
	return p.Role == model.RoleSuperAdmin
}

// IsAdminOf reports whether p administers the tenant. Superadmins administer every tenant.
func (p *Principal) IsAdminOf(companyID string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return p.Role == model.RoleAdmin && companyID != "" && p.CompanyID == companyID
}

func (p *Principal) IsCustomer() bool {
	return p.Role == model.RoleCustomer
}

// Authenticator verifies a raw bearer token.
type Authenticator interface {
	Authenticate(rawToken string) (*Principal, error)
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
