package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/greecode/admin-portal/internal/handler"
	"github.com/greecode/admin-portal/internal/middleware"
	"github.com/greecode/admin-portal/internal/repository"
	"github.com/greecode/admin-portal/internal/service"
	"github.com/greecode/admin-portal/internal/session"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pass, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	code, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier, err := session.NewStaticVerifier("admin@greecode.com", string(pass), string(code))
	require.NoError(t, err)
	tokens, err := session.NewTokenIssuer("test-secret-0123456789", "greecode-admin", time.Hour)
	require.NoError(t, err)
	sessions := session.NewManager(session.ManagerConfig{
		Verifier: verifier,
		Store:    session.NewMemoryStore(),
		Tokens:   tokens,
	})
	svc := service.NewConcernService(repository.NewMemoryConcernRepository(), nil, nil)
	return New(Deps{
		Sessions: sessions,
		Auth:     handler.NewAuthHandler(sessions),
		Concerns: handler.NewConcernHandler(svc),
		Ready:    handler.Ready(nil),
	})
}

type browser struct {
	h      http.Handler
	cookie *http.Cookie
}

func (b *browser) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.ClientCookie {
			b.cookie = c
		}
	}
	return w
}

func redirectOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Redirect
}

func TestRouter_PublicRoutes(t *testing.T) {
	b := &browser{h: newTestRouter(t)}

	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/ready", nil).Code)

	w := b.do(t, http.MethodGet, "/swagger/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	assert.Equal(t, http.StatusFound, b.do(t, http.MethodGet, "/swagger", nil).Code)
}

func TestRouter_AdminRequiresBothFactors(t *testing.T) {
	b := &browser{h: newTestRouter(t)}

	w := b.do(t, http.MethodPost, "/api/v1/support/concerns", gin.H{
		"user_id": "u-1", "name": "Alice", "email": "alice@example.com", "subject": "Login", "message": "Cannot log in",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	accept := fmt.Sprintf("/api/v1/admin/concerns/%d/accept", created.ID)

	w = b.do(t, http.MethodGet, "/api/v1/admin/concerns", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, session.PathLogin, redirectOf(t, w))

	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, "/api/v1/auth/login",
		gin.H{"email": "admin@greecode.com", "password": "admin123"}).Code)

	w = b.do(t, http.MethodPost, accept, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, session.PathTwoFactor, redirectOf(t, w))

	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, "/api/v1/auth/2fa", gin.H{"code": "123456"}).Code)

	assert.Equal(t, http.StatusOK, b.do(t, http.MethodPost, accept, nil).Code)
	assert.Equal(t, http.StatusConflict, b.do(t, http.MethodPost, accept, nil).Code)

	reply := fmt.Sprintf("/api/v1/support/concerns/%d/messages", created.ID)
	requester := &browser{h: b.h}
	assert.Equal(t, http.StatusOK, requester.do(t, http.MethodPost, reply, gin.H{"user_id": "u-1", "content": "Thanks"}).Code)

	w = b.do(t, http.MethodGet, "/api/v1/admin/concerns/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending":0,"active":1,"closed":0}`, w.Body.String())

	require.Equal(t, http.StatusNoContent, b.do(t, http.MethodPost, "/api/v1/auth/logout", nil).Code)
	w = b.do(t, http.MethodGet, "/api/v1/admin/concerns", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SessionsAreIsolatedPerClient(t *testing.T) {
	h := newTestRouter(t)
	admin := &browser{h: h}
	other := &browser{h: h}

	admin.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "admin@greecode.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, admin.do(t, http.MethodPost, "/api/v1/auth/2fa", gin.H{"code": "123456"}).Code)

	assert.Equal(t, http.StatusOK, admin.do(t, http.MethodGet, "/api/v1/admin/concerns", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, other.do(t, http.MethodGet, "/api/v1/admin/concerns", nil).Code)
}
