package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reeldesk/internal/config"
	"reeldesk/internal/services"
)

// ErrNoToken indicates the request carried no bearer token.
var ErrNoToken = errors.New("no bearer token")

// Claims is the JWT payload understood by the daemon.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier builds a verifier from the auth configuration.
func NewVerifier(cfg config.Auth) *Verifier {
	return &Verifier{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, now: time.Now}
}

// Verify parses token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, services.Wrap(services.ErrUnauthenticated, "auth", "verify", "", ErrNoToken)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, services.Wrap(services.ErrUnauthenticated, "auth", "verify", "invalid token", err)
	}
	if !parsed.Valid {
		return Identity{}, services.Wrap(services.ErrUnauthenticated, "auth", "verify", "invalid token", nil)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Identity{}, services.Wrap(services.ErrUnauthenticated, "auth", "verify", "token has no subject", nil)
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Identity{}, services.Wrap(services.ErrUnauthenticated, "auth", "verify", "", err)
	}
	return Identity{UserID: subject, Role: role, Name: claims.Name}, nil
}

// VerifyRequest authenticates r using the Authorization header, or the
// access_token query parameter for websocket upgrades that cannot set headers.
func (v *Verifier) VerifyRequest(r *http.Request) (Identity, error) {
	return v.Verify(BearerToken(r))
}

// BearerToken extracts the raw token from r, or "" when none is present.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// Issuer mints tokens signed with the configured secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer from the auth configuration.
func NewIssuer(cfg config.Auth) *Issuer {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for id. A non-positive ttl uses the configured default.
func (i *Issuer) Issue(id Identity, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	if _, err := ParseRole(string(id.Role)); err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = i.ttl
	}
	now := i.now()
	expires := now.Add(ttl)
	claims := &Claims{
		Role: string(id.Role),
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}
