package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/timehacker/api/config"
	"github.com/timehacker/api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentReset struct {
	Email   string
	Token   string
	SiteURL string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentReset
	err  error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, email, rawToken, siteURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReset{Email: email, Token: rawToken, SiteURL: siteURL})
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) sentReset {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "expected a reset notification")
	return n.sent[len(n.sent)-1]
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:           "test-secret-that-is-long-enough-for-hs256",
		SigningAlgorithm: "HS256",
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		ResetTTL:         time.Hour,
	}
}

// countingHasher records how many bcrypt comparisons a call performed.
type countingHasher struct {
	*BcryptHasher
	verifies atomic.Int64
}

func (h *countingHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	h.verifies.Add(1)
	return h.BcryptHasher.Verify(ctx, plaintext, hash)
}

type authFixture struct {
	store    *repository.MemoryStore
	clock    *testClock
	hasher   *countingHasher
	tokens   *JWTService
	notifier *recordingNotifier
	auth     *AuthService
}

func newAuthFixture(t *testing.T, opts AuthOptions) *authFixture {
	t.Helper()

	clock := newTestClock()
	hasher := &countingHasher{BcryptHasher: NewBcryptHasher(bcrypt.MinCost, nil)}
	tokens, err := NewJWTService(testJWTConfig(), hasher, WithClock(clock.Now))
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	notifier := &recordingNotifier{}

	return &authFixture{
		store:    store,
		clock:    clock,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		auth:     NewAuthService(store, hasher, tokens, notifier, opts),
	}
}
