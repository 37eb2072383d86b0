package auth

import (
	"context"
	"fmt"
	"strings"
)

// Role separates customers from support staff.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// ParseRole converts a claim or flag value into a Role.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleStaff:
		return RoleStaff, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   Role
	Name   string
}

// IsStaff reports whether the caller belongs to the staff pool.
func (i Identity) IsStaff() bool { return i.Role == RoleStaff }

// DisplayName returns Name, falling back to the user id.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return i.UserID
}

type contextKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller identity when the request was authenticated.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != ""
}
