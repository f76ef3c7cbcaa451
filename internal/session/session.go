// Package session implements the two-step admin session gate: first-factor login, second-factor
// verification, durable persistence of the verified session and the route guard that maps a
// session stage to the screen a visitor may reach.
package session

import "context"

const RoleAdmin = "admin"

// Session is one visitor's authentication progress. The JSON shape is the stored record.
type Session struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Role                string `json:"role"`
	IsAuthenticated     bool   `json:"isAuthenticated"`
	IsTwoFactorVerified bool   `json:"isTwoFactorVerified"`
}

// FullyAuthorized reports whether both factors passed for an admin.
func (s *Session) FullyAuthorized() bool {
	return s != nil && s.IsAuthenticated && s.IsTwoFactorVerified && s.Role == RoleAdmin
}

// consistent holds the invariant IsTwoFactorVerified => IsAuthenticated.
func (s *Session) consistent() bool {
	return !s.IsTwoFactorVerified || s.IsAuthenticated
}

// Verifier checks both factors. A false result with a nil error is a plain mismatch.
type Verifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (bool, error)
	VerifySecondFactor(ctx context.Context, email, code string) (bool, error)
}

// EventProducer receives best-effort audit events.
type EventProducer interface {
	ProduceEvent(ctx context.Context, event string, payload map[string]interface{})
}
