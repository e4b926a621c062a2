// Package gate admits callers by verifying HS256 bearer tokens issued by the
// login service. It backs both the REST auth middleware and the WebSocket handshake.
package gate

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookline/pkg/auth"
	"bookline/pkg/logger"
	"bookline/pkg/model"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

const TokenQueryParam = "token"

type Claims struct {
	UserID    string `json:"user_id,omitempty"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

type cachedPrincipal struct {
	principal auth.Principal
	expiresAt time.Time
}

type Gate struct {
	secret []byte
	parser *jwt.Parser
	cache  *lru.Cache[[sha256.Size]byte, cachedPrincipal]
	now    func() time.Time
	log    *logger.Logger
}

func New(secret string, cacheSize int, log *logger.Logger) (*Gate, error) {
	if secret == "" {
		return nil, errors.New("gate: secret cannot be empty")
	}

	cache, err := lru.New[[sha256.Size]byte, cachedPrincipal](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("gate: failed to create token cache: %w", err)
	}

	g := &Gate{
		secret: []byte(secret),
		cache:  cache,
		now:    time.Now,
		log:    log,
	}
	g.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return g.now() }),
	)
	return g, nil
}

var _ auth.Authenticator = (*Gate)(nil)

// Authenticate verifies signature, algorithm and expiry. Verified tokens are
// cached by hash until they expire; expiry is checked again on every hit.
func (g *Gate) Authenticate(rawToken string) (*auth.Principal, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: missing token", auth.ErrAuthentication)
	}

	key := sha256.Sum256([]byte(rawToken))
	if entry, ok := g.cache.Get(key); ok {
		if g.now().Before(entry.expiresAt) {
			p := entry.principal
			return &p, nil
		}
		g.cache.Remove(key)
		return nil, fmt.Errorf("%w: token expired", auth.ErrAuthentication)
	}

	claims := &Claims{}
	token, err := g.parser.ParseWithClaims(rawToken, claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		g.log.Debug("Token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", auth.ErrAuthentication, err)
	}

	principal, err := principalFromClaims(claims)
	if err != nil {
		g.log.Debug("Token rejected", "error", err)
		return nil, err
	}

	g.cache.Add(key, cachedPrincipal{principal: *principal, expiresAt: claims.ExpiresAt.Time})
	return principal, nil
}

func principalFromClaims(claims *Claims) (*auth.Principal, error) {
	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no subject", auth.ErrAuthentication)
	}

	role := model.Role(claims.Role)
	switch role {
	case model.RoleSuperAdmin, model.RoleAdmin, model.RoleStaff, model.RoleCustomer:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", auth.ErrAuthentication, claims.Role)
	}

	return &auth.Principal{
		UserID:    userID,
		Role:      role,
		CompanyID: claims.CompanyID,
	}, nil
}

// TokenFromRequest reads the bearer header, falling back to the token query
// parameter that browsers must use for WebSocket handshakes.
func TokenFromRequest(r *http.Request) string {
	if token := auth.BearerToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// IssueToken signs a token for p. Login is owned elsewhere; this exists for tooling and tests.
func IssueToken(secret string, p auth.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:      string(p.Role),
		CompanyID: p.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
