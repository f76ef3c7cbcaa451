package session

const (
	PathLogin     = "/admin/login"
	PathTwoFactor = "/admin/2fa"
	PathHome      = "/"
)

// Outcome of the route guard.
type Outcome string

const (
	OutcomeWait     Outcome = "wait"
	OutcomeRedirect Outcome = "redirect"
	OutcomeAllow    Outcome = "allow"
)

// Decision is what the routing layer should do with a request for protected content.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Target  string  `json:"target,omitempty"`
}

// Decide evaluates, in order: loading, first factor, second factor, admin role.
func Decide(s *Session, loading bool) Decision {
	switch {
	case loading:
		return Decision{Outcome: OutcomeWait}
	case s == nil || !s.IsAuthenticated:
		return Decision{Outcome: OutcomeRedirect, Target: PathLogin}
	case !s.IsTwoFactorVerified:
		return Decision{Outcome: OutcomeRedirect, Target: PathTwoFactor}
	case s.Role != RoleAdmin:
		return Decision{Outcome: OutcomeRedirect, Target: PathHome}
	}
	return Decision{Outcome: OutcomeAllow}
}
