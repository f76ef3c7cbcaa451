package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/greecode/admin-portal/internal/errs"
	"github.com/greecode/admin-portal/internal/middleware"
	"github.com/greecode/admin-portal/internal/session"
)

// AuthHandler exposes the session gate of the calling client.
type AuthHandler struct {
	sessions *session.Manager
}

// NewAuthHandler needs the registry only to forget a gate on logout.
func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login runs the first factor.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	gate := middleware.GateFrom(c)
	ok, err := gate.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.checkFailed(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errs.ErrInvalidCredential.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"next": session.PathTwoFactor})
}

type twoFactorRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyTwoFactor runs the second factor and returns the stored token on success.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	code := strings.TrimSpace(req.Code)
	if !session.IsSixDigitCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code must be 6 digits"})
		return
	}
	gate := middleware.GateFrom(c)
	ok, err := gate.VerifyTwoFactor(c.Request.Context(), code)
	if err != nil {
		h.checkFailed(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errs.ErrInvalidCode.Error()})
		return
	}
	// A correct code without a first-factor session changes nothing.
	user := gate.Current()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errs.ErrNotAuthenticated.Error(), "redirect": session.PathLogin})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":        gate.Token(),
		"user":         user,
		"show_welcome": gate.ShowWelcomeGreeting(),
	})
}

// Logout always answers 204.
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.GateFrom(c).Logout(c.Request.Context())
	h.sessions.Forget(middleware.ClientID(c))
	c.Status(http.StatusNoContent)
}

// Session reports the session, the welcome flag and what the route guard would do.
func (h *AuthHandler) Session(c *gin.Context) {
	gate := middleware.GateFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         gate.Current(),
		"loading":      gate.Loading(),
		"show_welcome": gate.ShowWelcomeGreeting(),
		"decision":     gate.Decision(),
	})
}

// DismissWelcome clears the welcome greeting.
func (h *AuthHandler) DismissWelcome(c *gin.Context) {
	middleware.GateFrom(c).SetShowWelcomeGreeting(false)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) checkFailed(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrCheckInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	log.Printf("auth: client %s: %v", middleware.ClientID(c), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
}
