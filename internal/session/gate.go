package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/greecode/admin-portal/internal/errs"
)

const (
	TokenKey = "adminToken"
	UserKey  = "adminUser"
)

// GateConfig wires a gate to its verifier, store and token issuer.
type GateConfig struct {
	ClientID string
	Verifier Verifier
	Store    Store
	Tokens   *TokenIssuer
	// KeyPrefix namespaces the two stored keys; empty means the bare key names.
	KeyPrefix string
	Events    EventProducer
}

// Gate owns one visitor's session. Other components read it through Current and Decision
// and change it only through Login, VerifyTwoFactor and Logout.
type Gate struct {
	cfg      GateConfig
	tokenKey string
	userKey  string

	mu        sync.Mutex
	session   *Session
	token     string
	restoring bool
	checking  bool
	welcome   bool
}

// NewGate returns a gate in the loading state; call Restore once to leave it.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		cfg:       cfg,
		tokenKey:  cfg.KeyPrefix + TokenKey,
		userKey:   cfg.KeyPrefix + UserKey,
		restoring: true,
	}
}

// Current returns a copy of the session, nil when logged out.
func (g *Gate) Current() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// Token is the stored token of a verified session, empty otherwise.
func (g *Gate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Loading is true while the stored session is restored or a credential check runs.
func (g *Gate) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restoring || g.checking
}

// ShowWelcomeGreeting is raised by a successful second factor until dismissed or logout.
func (g *Gate) ShowWelcomeGreeting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.welcome
}

// idle reports a gate with nothing worth keeping: no session and no check or restore running.
func (g *Gate) idle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session == nil && !g.checking && !g.restoring
}

// SetShowWelcomeGreeting is how the console dismisses the greeting.
func (g *Gate) SetShowWelcomeGreeting(show bool) {
	g.mu.Lock()
	g.welcome = show
	g.mu.Unlock()
}

// Decision applies the route guard to the current state.
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Decide(g.session, g.restoring || g.checking)
}

// beginCheck refuses while another check runs or the stored session is still being restored.
func (g *Gate) beginCheck() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.checking || g.restoring {
		return false
	}
	g.checking = true
	return true
}

func (g *Gate) endCheck() {
	g.mu.Lock()
	g.checking = false
	g.mu.Unlock()
}

// Login runs the first factor. Nothing is persisted until the second factor passes.
func (g *Gate) Login(ctx context.Context, email, password string) (bool, error) {
	if !g.beginCheck() {
		return false, errs.ErrCheckInProgress
	}
	defer g.endCheck()

	ok, err := g.cfg.Verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		return false, fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		log.Printf("session: client %s: %v", g.cfg.ClientID, errs.ErrInvalidCredential)
		return false, nil
	}

	s := &Session{
		ID:              uuid.NewString(),
		Email:           email,
		Role:            RoleAdmin,
		IsAuthenticated: true,
	}
	g.mu.Lock()
	g.session = s
	g.mu.Unlock()
	g.emit(ctx, "session.login", s)
	return true, nil
}

// VerifyTwoFactor runs the second factor. On success the verified session and its token are
// written to the store and the welcome greeting is raised.
func (g *Gate) VerifyTwoFactor(ctx context.Context, code string) (bool, error) {
	if !g.beginCheck() {
		return false, errs.ErrCheckInProgress
	}
	defer g.endCheck()

	var email string
	if cur := g.Current(); cur != nil {
		email = cur.Email
	}
	ok, err := g.cfg.Verifier.VerifySecondFactor(ctx, email, code)
	if err != nil {
		return false, fmt.Errorf("verify second factor: %w", err)
	}
	if !ok {
		log.Printf("session: client %s: %v", g.cfg.ClientID, errs.ErrInvalidCode)
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return true, nil
	}
	updated := *g.session
	updated.IsTwoFactorVerified = true
	token, err := g.persist(ctx, updated)
	if err != nil {
		return false, err
	}
	g.session = &updated
	g.token = token
	g.welcome = true
	g.emit(ctx, "session.verified", &updated)
	return true, nil
}

func (g *Gate) persist(ctx context.Context, s Session) (string, error) {
	token, err := g.cfg.Tokens.Issue(s)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := g.cfg.Store.Set(ctx, g.tokenKey, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	if err := g.cfg.Store.Set(ctx, g.userKey, string(data)); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Logout always succeeds; a failed storage delete is only logged.
func (g *Gate) Logout(ctx context.Context) {
	g.mu.Lock()
	prev := g.session
	g.session = nil
	g.token = ""
	g.welcome = false
	g.mu.Unlock()

	if err := g.cfg.Store.Delete(ctx, g.tokenKey, g.userKey); err != nil {
		log.Printf("session: client %s: clear stored session: %v", g.cfg.ClientID, err)
	}
	if prev != nil {
		g.emit(ctx, "session.logout", prev)
	}
}

// Restore adopts a previously stored session. A record that cannot be trusted is removed and
// the gate stays logged out; nothing is returned to the caller.
func (g *Gate) Restore(ctx context.Context) {
	defer func() {
		g.mu.Lock()
		g.restoring = false
		g.mu.Unlock()
	}()

	token, hasToken, err := g.cfg.Store.Get(ctx, g.tokenKey)
	if err != nil {
		log.Printf("session: client %s: read token: %v", g.cfg.ClientID, err)
		return
	}
	raw, hasUser, err := g.cfg.Store.Get(ctx, g.userKey)
	if err != nil {
		log.Printf("session: client %s: read session: %v", g.cfg.ClientID, err)
		return
	}
	if !hasToken || !hasUser {
		return
	}

	s, err := g.decode(token, raw)
	if err != nil {
		log.Printf("session: client %s: %v", g.cfg.ClientID, err)
		if err := g.cfg.Store.Delete(ctx, g.tokenKey, g.userKey); err != nil {
			log.Printf("session: client %s: clear stored session: %v", g.cfg.ClientID, err)
		}
		return
	}
	g.mu.Lock()
	g.session = s
	g.token = token
	g.mu.Unlock()
}

// Revalidate re-checks a verified session against its token and the store. When the token has
// expired or the stored record is gone or replaced, the gate falls back to logged out and false
// is returned. Unverified sessions are never stored and always pass.
func (g *Gate) Revalidate(ctx context.Context) bool {
	g.mu.Lock()
	s, token := g.session, g.token
	g.mu.Unlock()
	if s == nil || !s.IsTwoFactorVerified {
		return true
	}
	err := g.checkStored(ctx, token)
	if err == nil {
		return true
	}
	log.Printf("session: client %s: session revoked: %v", g.cfg.ClientID, err)
	g.mu.Lock()
	if g.token == token {
		g.session = nil
		g.token = ""
		g.welcome = false
	}
	g.mu.Unlock()
	return false
}

func (g *Gate) checkStored(ctx context.Context, token string) error {
	if _, err := g.cfg.Tokens.Parse(token); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	stored, hasToken, err := g.cfg.Store.Get(ctx, g.tokenKey)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if !hasToken || stored != token {
		return errors.New("stored token missing or replaced")
	}
	_, hasUser, err := g.cfg.Store.Get(ctx, g.userKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !hasUser {
		return errors.New("stored session missing")
	}
	return nil
}

func (g *Gate) decode(token, raw string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptSessionRecord, err)
	}
	if !s.consistent() {
		return nil, fmt.Errorf("%w: verified but not authenticated", errs.ErrCorruptSessionRecord)
	}
	claims, err := g.cfg.Tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: token: %v", errs.ErrCorruptSessionRecord, err)
	}
	if claims.Subject != s.ID || claims.Email != s.Email || claims.Role != s.Role {
		return nil, fmt.Errorf("%w: token does not match record", errs.ErrCorruptSessionRecord)
	}
	return &s, nil
}

func (g *Gate) emit(ctx context.Context, event string, s *Session) {
	if g.cfg.Events == nil {
		return
	}
	payload := map[string]interface{}{
		"client_id":  g.cfg.ClientID,
		"session_id": s.ID,
		"email":      s.Email,
		"role":       s.Role,
	}
	eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	go func() {
		defer cancel()
		g.cfg.Events.ProduceEvent(eventCtx, event, payload)
	}()
}
