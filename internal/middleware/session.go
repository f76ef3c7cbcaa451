package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/greecode/admin-portal/internal/session"
)

const (
	// ClientCookie carries the browser's client id.
	ClientCookie = "gc_client"

	ctxClientID = "client_id"
	ctxGate     = "session_gate"

	clientCookieMaxAge = 30 * 24 * 60 * 60
)

// ClientIdentity assigns every browser a stable client id cookie.
func ClientIdentity(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ClientCookie)
		if err != nil || !validClientID(id) {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteStrictMode)
			c.SetCookie(ClientCookie, id, clientCookieMaxAge, "/", "", secure, true)
		}
		c.Set(ctxClientID, id)
		c.Next()
	}
}

func validClientID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// WithGate holds the client's session gate for the rest of the chain. Must run after ClientIdentity.
func WithGate(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		gate, release := sessions.Acquire(c.Request.Context(), ClientID(c))
		defer release()
		c.Set(ctxGate, gate)
		c.Next()
	}
}

// ClientID is the id assigned by ClientIdentity.
func ClientID(c *gin.Context) string {
	return c.GetString(ctxClientID)
}

// GateFrom returns the gate set by WithGate, nil outside it.
func GateFrom(c *gin.Context) *session.Gate {
	g, _ := c.Get(ctxGate)
	gate, _ := g.(*session.Gate)
	return gate
}

// RequireAdmin applies the route guard. A visitor that is not fully authorized gets the
// redirect target instead of the protected content.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		gate := GateFrom(c)
		if gate == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no session", "redirect": session.PathLogin})
			return
		}
		d := gate.Decision()
		switch d.Outcome {
		case session.OutcomeAllow:
			c.Next()
		case session.OutcomeWait:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session is loading", "decision": d})
		default:
			status := http.StatusUnauthorized
			if d.Target == session.PathHome {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "not authorized", "redirect": d.Target, "decision": d})
		}
	}
}
