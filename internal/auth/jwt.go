package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

// Roles carried in tokens. They mirror the user types in lower case.
const (
	RoleMember = "member"
	RoleAgent  = "agent"
)

// Principal represents the authenticated caller from JWT.
type Principal struct {
	AgentID  string
	UserName string
	Role     string // "member" | "agent"
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for p that expires after ttl.
func Issue(secret string, p Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	c := claims{
		Name: p.UserName,
		Role: strings.ToLower(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.AgentID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseFromMD extracts and validates a Bearer JWT from gRPC metadata and returns a Principal.
func ParseFromMD(ctx context.Context, secret string) (*Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.New("missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return nil, errors.New("missing authorization")
	}
	tokenStr, err := bearer(vals[0])
	if err != nil {
		return nil, err
	}
	return parseJWT(tokenStr, secret)
}

// ParseFromRequest validates the session cookie, falling back to an
// Authorization: Bearer header.
func ParseFromRequest(r *http.Request, cookieName, secret string) (*Principal, error) {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return parseJWT(c.Value, secret)
		}
	}
	h := r.Header.Get("Authorization")
	if h == "" {
		return nil, errors.New("missing credentials")
	}
	tokenStr, err := bearer(h)
	if err != nil {
		return nil, err
	}
	return parseJWT(tokenStr, secret)
}

func bearer(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// parseJWT validates and extracts claims from a JWT token.
func parseJWT(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Subject == "" || c.Name == "" || c.Role == "" {
		return nil, errors.New("invalid claims")
	}
	return &Principal{AgentID: c.Subject, UserName: c.Name, Role: strings.ToLower(c.Role)}, nil
}
