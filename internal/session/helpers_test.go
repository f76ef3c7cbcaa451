package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "admin@greecode.com"
	testPassword = "admin123"
	testCode     = "123456"
	testSecret   = "test-secret-0123456789"
)

func mustHash(t *testing.T, v string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(v), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestVerifier(t *testing.T) *StaticVerifier {
	t.Helper()
	v, err := NewStaticVerifier(testEmail, mustHash(t, testPassword), mustHash(t, testCode))
	require.NoError(t, err)
	return v
}

func newTestTokens(t *testing.T) *TokenIssuer {
	t.Helper()
	tokens, err := NewTokenIssuer(testSecret, "greecode-admin", time.Hour)
	require.NoError(t, err)
	return tokens
}

func newTestGate(t *testing.T, store Store) *Gate {
	t.Helper()
	g := NewGate(GateConfig{
		ClientID: "client-1",
		Verifier: newTestVerifier(t),
		Store:    store,
		Tokens:   newTestTokens(t),
	})
	g.Restore(context.Background())
	return g
}

// blockingVerifier holds every check until release is closed.
type blockingVerifier struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingVerifier() *blockingVerifier {
	return &blockingVerifier{started: make(chan struct{}), release: make(chan struct{})}
}

func (v *blockingVerifier) VerifyCredentials(ctx context.Context, _, _ string) (bool, error) {
	v.once.Do(func() { close(v.started) })
	<-v.release
	return true, nil
}

func (v *blockingVerifier) VerifySecondFactor(ctx context.Context, _, _ string) (bool, error) {
	v.once.Do(func() { close(v.started) })
	<-v.release
	return true, nil
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (string, bool, error) { return "", false, s.err }
func (s failingStore) Set(context.Context, string, string) error        { return s.err }
func (s failingStore) Delete(context.Context, ...string) error          { return s.err }

type recordingEvents struct {
	ch chan string
}

func (r *recordingEvents) ProduceEvent(_ context.Context, event string, _ map[string]interface{}) {
	r.ch <- event
}
