package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/events"
)

func TestListActiveFiltersAndOrders(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	old := env.issue(t, "user-1")
	env.clock.Advance(time.Hour)
	revoked := env.issue(t, "user-1")
	require.NoError(t, env.tokens.Revoke(ctx, revoked.Secret))
	env.clock.Advance(time.Hour)
	newest := env.issue(t, "user-1")
	env.issue(t, "user-2")

	views, err := env.sessions.ListActive(ctx, "user-1", newest.Secret)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, newest.ID, views[0].ID)
	assert.True(t, views[0].IsCurrent)
	assert.Equal(t, old.ID, views[1].ID)
	assert.False(t, views[1].IsCurrent)

	assert.Equal(t, "203.0.***.***", views[0].IPAddress)
	assert.Equal(t, "Public Network", views[0].Location)
	assert.Equal(t, "Desktop", views[0].Device)
	assert.Contains(t, views[0].Browser, "Chrome")

	// the oldest session lapses first
	env.clock.Advance(testTTL - 2*time.Hour)
	views, err = env.sessions.ListActive(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, newest.ID, views[0].ID)
	assert.False(t, views[0].IsCurrent)

	for _, v := range views {
		assert.True(t, v.ExpiresAt.After(env.clock.Now()))
	}
}

func TestListActiveRespectsLimit(t *testing.T) {
	env := newTestEnv(t, 10)
	env.sessions = NewSessionCatalog(env.store, env.events, 3, env.clock.Now)

	var last *models.RefreshToken
	for i := 0; i < 5; i++ {
		env.clock.Advance(time.Second)
		last = env.issue(t, "user-1")
	}

	views, err := env.sessions.ListActive(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, last.ID, views[0].ID)
}

func TestListActiveUnknownDeviceSentinel(t *testing.T) {
	env := newTestEnv(t, 10)
	_, err := env.tokens.Issue(context.Background(), "user-1", models.DeviceMetadata{IPAddress: "garbage"})
	require.NoError(t, err)

	views, err := env.sessions.ListActive(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.UnknownDevice, views[0].Device)
	assert.Equal(t, models.UnknownDevice, views[0].Browser)
	assert.Equal(t, "garbage", views[0].IPAddress)
	assert.Equal(t, "Unknown", views[0].Location)
}

func TestRevokeOne(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	mine := env.issue(t, "user-1")
	theirs := env.issue(t, "user-2")

	assert.ErrorIs(t, env.sessions.RevokeOne(ctx, "user-1", theirs.ID), ErrSessionNotFound)
	assert.ErrorIs(t, env.sessions.RevokeOne(ctx, "user-1", "no-such-id"), ErrSessionNotFound)

	require.NoError(t, env.sessions.RevokeOne(ctx, "user-1", mine.ID))
	assert.ErrorIs(t, env.sessions.RevokeOne(ctx, "user-1", mine.ID), ErrSessionNotFound)

	records := env.ownerRecords(t, "user-1")
	require.Len(t, records, 1)
	assert.Equal(t, models.RevocationManual, records[0].RevokedReason)
	assert.Equal(t, 1, countActive(env.ownerRecords(t, "user-2")))
	assert.Len(t, env.events.kinds(events.SessionRevoked), 1)
}

func TestListActiveNeverReturnsInactiveOrExpired(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	secrets := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		env.clock.Advance(time.Duration(i) * time.Hour)
		secrets = append(secrets, env.issue(t, "user-1").Secret)
	}
	for i, s := range secrets {
		switch i % 3 {
		case 0:
			require.NoError(t, env.tokens.Revoke(ctx, s))
		case 1:
			_, err := env.tokens.Rotate(ctx, s, testMeta)
			require.NoError(t, err, fmt.Sprintf("rotate %d", i))
		}
	}
	env.clock.Advance(testTTL - 20*time.Hour)

	views, err := env.sessions.ListActive(ctx, "user-1", "")
	require.NoError(t, err)

	byID := make(map[string]models.RefreshToken)
	for _, r := range env.ownerRecords(t, "user-1") {
		byID[r.ID] = r
	}
	for _, v := range views {
		r := byID[v.ID]
		assert.True(t, r.IsActive)
		assert.True(t, r.ExpiresAt.After(env.clock.Now()))
	}
}
