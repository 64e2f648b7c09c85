package entity

import (
	"context"
	"slices"
)

// Session carries the authenticated actor. It is passed explicitly to the
// components that need it instead of being read from ambient storage.
type Session struct {
	Token      string `json:"-"`
	UserID     string `json:"userId"`
	EmployeeID string `json:"employeeId"`
	Role       string `json:"role"`
}

// IsAuthenticated reports whether the session carries a token and a user
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.UserID != ""
}

// HasRole reports whether the session role is one of roles
func (s Session) HasRole(roles ...string) bool {
	return slices.Contains(roles, s.Role)
}

type sessionKey struct{}

// WithSession stores the session in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
