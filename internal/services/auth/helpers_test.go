package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/device"
	"github.com/onegreenvn/green-session-service/internal/services/events"
)

const (
	testJWTSecret = "test-secret-key-that-is-long-enough-123"
	testTTL       = 7 * 24 * time.Hour
	testUA        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var testMeta = models.DeviceMetadata{UserAgent: testUA, IPAddress: "203.0.113.7"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingPublisher) kinds(eventType string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e.Kind)
		}
	}
	return out
}

type testEnv struct {
	store    *repository.MemoryTokenStore
	clock    *fakeClock
	events   *recordingPublisher
	access   *AccessTokenManager
	tokens   *TokenService
	sessions *SessionCatalog
}

func newTestEnv(t *testing.T, maxRotations int) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, repository.NewMemoryTokenStore(), maxRotations)
}

func newTestEnvWithStore(t *testing.T, store repository.TokenStore, maxRotations int) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:  newFakeClock(),
		events: &recordingPublisher{},
	}
	if mem, ok := store.(*repository.MemoryTokenStore); ok {
		env.store = mem
	}
	env.access = NewAccessTokenManager(testJWTSecret, "test-issuer", time.Hour, env.clock.Now)
	env.tokens = NewTokenService(store, env.access, device.NewParser(), env.events, TokenPolicy{
		RefreshTokenTTL:   testTTL,
		RefreshTokenBytes: 32,
		MaxRotations:      maxRotations,
	}, env.clock.Now)
	env.sessions = NewSessionCatalog(store, env.events, 50, env.clock.Now)
	return env
}

func (e *testEnv) issue(t *testing.T, owner string) *models.RefreshToken {
	t.Helper()
	record, err := e.tokens.Issue(context.Background(), owner, testMeta)
	require.NoError(t, err)
	return record
}

func (e *testEnv) ownerRecords(t *testing.T, owner string) []models.RefreshToken {
	t.Helper()
	records, err := e.store.Find(context.Background(), repository.TokenFilter{Owner: owner}, repository.FindOptions{})
	require.NoError(t, err)
	return records
}

func countActive(records []models.RefreshToken) int {
	n := 0
	for _, r := range records {
		if r.IsActive {
			n++
		}
	}
	return n
}
