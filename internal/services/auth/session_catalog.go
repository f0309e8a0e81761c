package auth

import (
	"context"
	"time"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/device"
	"github.com/onegreenvn/green-session-service/internal/services/events"
)

// SessionCatalog is the human-facing view over a user's active refresh tokens
type SessionCatalog struct {
	store  repository.TokenStore
	events events.Publisher
	limit  int
	now    func() time.Time
}

func NewSessionCatalog(store repository.TokenStore, publisher events.Publisher, limit int, now func() time.Time) *SessionCatalog {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &SessionCatalog{store: store, events: publisher, limit: limit, now: now}
}

// ListActive returns owner's live sessions, newest first. currentSecret, if
// given, marks the caller's own session.
func (c *SessionCatalog) ListActive(ctx context.Context, owner, currentSecret string) ([]models.SessionView, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	records, err := c.store.Find(ctx,
		repository.TokenFilter{Owner: owner, ActiveOnly: true, LiveAt: c.now()},
		repository.FindOptions{NewestFirst: true, Limit: c.limit},
	)
	if err != nil {
		return nil, storageError("list sessions", err)
	}

	current, _ := normalizeSecret(currentSecret)
	views := make([]models.SessionView, 0, len(records))
	for i := range records {
		views = append(views, toSessionView(&records[i], current))
	}
	return views, nil
}

// RevokeOne ends a single session owned by owner
func (c *SessionCatalog) RevokeOne(ctx context.Context, owner, sessionID string) error {
	if owner == "" || sessionID == "" {
		return ErrSessionNotFound
	}
	changed, err := c.store.Deactivate(ctx,
		repository.TokenFilter{ID: sessionID, Owner: owner},
		repository.Revocation{Reason: models.RevocationManual, At: c.now()},
	)
	if err != nil {
		return storageError("revoke session", err)
	}
	if changed == 0 {
		return ErrSessionNotFound
	}

	c.events.Publish(ctx, events.Event{
		Type:    events.SessionRevoked,
		Outcome: events.OutcomeSuccess,
		UserID:  owner,
		TokenID: sessionID,
		Count:   changed,
		At:      c.now(),
	})
	return nil
}

func toSessionView(t *models.RefreshToken, currentSecret string) models.SessionView {
	return models.SessionView{
		ID:         t.ID,
		Device:     orUnknown(t.DeviceName),
		Browser:    orUnknown(t.Browser),
		OS:         orUnknown(t.OS),
		IsMobile:   t.IsMobile,
		IPAddress:  device.MaskIP(t.IPAddress),
		Location:   device.Location(t.IPAddress),
		CreatedAt:  t.CreatedAt,
		LastUsedAt: t.LastUsedAt,
		ExpiresAt:  t.ExpiresAt,
		IsCurrent:  currentSecret != "" && t.Secret == currentSecret,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return models.UnknownDevice
	}
	return s
}
