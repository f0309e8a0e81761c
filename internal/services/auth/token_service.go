package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/events"
)

// DeviceParser is the device-metadata collaborator
type DeviceParser interface {
	Parse(userAgent string) models.DeviceInfo
}

// TokenPolicy is the refresh-token lifecycle policy
type TokenPolicy struct {
	RefreshTokenTTL   time.Duration
	RefreshTokenBytes int
	// MaxRotations is the highest rotation_count that may still rotate
	MaxRotations int
}

// TokenService issues, rotates and revokes refresh tokens
type TokenService struct {
	store   repository.TokenStore
	access  *AccessTokenManager
	devices DeviceParser
	events  events.Publisher
	policy  TokenPolicy
	now     func() time.Time
}

func NewTokenService(store repository.TokenStore, access *AccessTokenManager, devices DeviceParser, publisher events.Publisher, policy TokenPolicy, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TokenService{
		store:   store,
		access:  access,
		devices: devices,
		events:  publisher,
		policy:  policy,
		now:     now,
	}
}

// Issue creates a new lineage root for owner. The returned record carries the
// secret; it is the only time the caller sees it.
func (s *TokenService) Issue(ctx context.Context, owner string, meta models.DeviceMetadata) (*models.RefreshToken, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	now := s.now()
	record, err := s.newRecord(owner, meta, now)
	if err != nil {
		return nil, err
	}
	record.LineageID = record.JTI

	if err := s.store.Insert(ctx, record); err != nil {
		return nil, storageError("store refresh token", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  owner,
		"token_id": record.ID,
		"token":    models.RedactSecret(record.Secret),
	}).Debug("Refresh token issued")
	s.publish(ctx, events.Event{
		Type:      events.TokenIssued,
		Outcome:   events.OutcomeSuccess,
		UserID:    owner,
		TokenID:   record.ID,
		LineageID: record.LineageID,
		IPAddress: record.IPAddress,
	})
	return record, nil
}

// IssuePair starts a session and mints its first access token
func (s *TokenService) IssuePair(ctx context.Context, owner string, meta models.DeviceMetadata) (*models.TokenPair, error) {
	record, err := s.Issue(ctx, owner, meta)
	if err != nil {
		return nil, err
	}
	return s.pair(record)
}

// Rotate exchanges an active refresh secret for a successor and a fresh
// access token. Exactly one concurrent caller per secret can succeed.
func (s *TokenService) Rotate(ctx context.Context, presented string, meta models.DeviceMetadata) (*models.TokenPair, error) {
	secret, ok := normalizeSecret(presented)
	if !ok {
		s.rotateFailed(ctx, events.KindNotFound, nil, meta)
		return nil, ErrTokenNotFound
	}
	now := s.now()

	current, err := s.store.FindActiveBySecret(ctx, secret)
	if errors.Is(err, repository.ErrNotFound) {
		s.rotateFailed(ctx, events.KindNotFound, nil, meta)
		return nil, ErrTokenNotFound
	}
	if err != nil {
		s.rotateFailed(ctx, events.KindStorageUnavailable, nil, meta)
		return nil, storageError("find refresh token", err)
	}

	if current.IsExpired(now) {
		if _, err := s.store.Deactivate(ctx, repository.TokenFilter{ID: current.ID},
			repository.Revocation{Reason: models.RevocationExpired, At: now}); err != nil {
			logrus.WithError(err).WithField("token_id", current.ID).Warn("Failed to deactivate expired refresh token")
		}
		s.rotateFailed(ctx, events.KindExpired, current, meta)
		return nil, ErrTokenExpired
	}

	if current.RotationCount > s.policy.MaxRotations {
		purged, err := s.store.DeleteMany(ctx, repository.TokenFilter{Owner: current.UserID})
		if err != nil {
			s.rotateFailed(ctx, events.KindStorageUnavailable, current, meta)
			return nil, storageError("purge lineage", err)
		}
		logrus.WithFields(logrus.Fields{
			"user_id":        current.UserID,
			"rotation_count": current.RotationCount,
			"purged":         purged,
		}).Warn("Refresh token rotation limit exceeded, purged all sessions")
		s.publish(ctx, events.Event{
			Type:      events.LineagePurged,
			Outcome:   events.OutcomeSuccess,
			UserID:    current.UserID,
			LineageID: current.LineageID,
			Count:     purged,
		})
		s.rotateFailed(ctx, events.KindRotationLimit, current, meta)
		return nil, ErrRotationLimitExceeded
	}

	successor, err := s.newRecord(current.UserID, meta, now)
	if err != nil {
		return nil, err
	}
	successor.LineageID = current.LineageID
	successor.RotatedFrom = current.JTI
	successor.RotationCount = current.RotationCount + 1

	changed, err := s.store.Deactivate(ctx, repository.TokenFilter{ID: current.ID}, repository.Revocation{
		Reason:    models.RevocationRotated,
		At:        now,
		RotatedTo: successor.JTI,
	})
	if err != nil {
		s.rotateFailed(ctx, events.KindStorageUnavailable, current, meta)
		return nil, storageError("retire refresh token", err)
	}
	if changed == 0 {
		s.revokeForReuse(ctx, current, now)
		s.rotateFailed(ctx, events.KindReuseDetected, current, meta)
		return nil, ErrTokenReuseDetected
	}

	// The predecessor is retired; from here the rotation is committed and
	// must not be abandoned because the caller went away.
	committed := context.WithoutCancel(ctx)
	if err := s.store.Insert(committed, successor); err != nil {
		s.rotateFailed(ctx, events.KindStorageUnavailable, current, meta)
		return nil, storageError("store successor token", err)
	}
	s.closeReuseRace(committed, current, successor, now)

	pair, err := s.pair(successor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:      events.TokenRotated,
		Outcome:   events.OutcomeSuccess,
		UserID:    successor.UserID,
		TokenID:   successor.ID,
		LineageID: successor.LineageID,
		Count:     int64(successor.RotationCount),
		IPAddress: successor.IPAddress,
	})
	return pair, nil
}

// revokeForReuse runs on the losing side of a contested rotation. The flag
// goes on the predecessor first so a winner that has not yet checked it will
// retire its own successor.
func (s *TokenService) revokeForReuse(ctx context.Context, current *models.RefreshToken, now time.Time) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FlagReuse(ctx, current.ID, now); err != nil {
		logrus.WithError(err).WithField("token_id", current.ID).Error("Failed to flag reused refresh token")
	}
	revoked, err := s.store.Deactivate(ctx, repository.TokenFilter{Owner: current.UserID},
		repository.Revocation{Reason: models.RevocationReuseDetected, At: now})
	if err != nil {
		logrus.WithError(err).WithField("user_id", current.UserID).Error("Failed to revoke sessions after token reuse")
		return
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    current.UserID,
		"lineage_id": current.LineageID,
		"revoked":    revoked,
	}).Warn("Refresh token reuse detected, revoked all sessions")
}

// closeReuseRace retires a freshly inserted successor whose predecessor was
// flagged by a concurrent loser. A predecessor that no longer exists may have
// been flagged and then swept, so it counts as contested too.
func (s *TokenService) closeReuseRace(ctx context.Context, current, successor *models.RefreshToken, now time.Time) {
	records, err := s.store.Find(ctx, repository.TokenFilter{ID: current.ID}, repository.FindOptions{Limit: 1})
	if err != nil {
		logrus.WithError(err).WithField("token_id", current.ID).Warn("Failed to check reuse flag")
		return
	}
	if len(records) == 1 && records[0].ReuseDetectedAt == nil {
		return
	}
	if _, err := s.store.Deactivate(ctx, repository.TokenFilter{ID: successor.ID},
		repository.Revocation{Reason: models.RevocationReuseDetected, At: now}); err != nil {
		logrus.WithError(err).WithField("token_id", successor.ID).Error("Failed to retire successor after token reuse")
	}
}

// Revoke deactivates the session holding secret. Unknown secrets are a no-op.
func (s *TokenService) Revoke(ctx context.Context, presented string) error {
	secret, ok := normalizeSecret(presented)
	if !ok {
		return nil
	}
	now := s.now()
	changed, err := s.store.Deactivate(ctx, repository.TokenFilter{Secret: secret},
		repository.Revocation{Reason: models.RevocationLogout, At: now})
	if err != nil {
		return storageError("revoke refresh token", err)
	}
	if changed > 0 {
		s.publish(ctx, events.Event{
			Type:    events.TokenRevoked,
			Outcome: events.OutcomeSuccess,
			Count:   changed,
		})
	}
	return nil
}

// RevokeAllExcept deactivates every active session of owner other than the
// one holding excluded, which may be empty
func (s *TokenService) RevokeAllExcept(ctx context.Context, owner, excluded string) (int64, error) {
	if owner == "" {
		return 0, ErrOwnerRequired
	}
	filter := repository.TokenFilter{Owner: owner}
	if secret, ok := normalizeSecret(excluded); ok {
		filter.ExcludeSecret = secret
	}

	changed, err := s.store.Deactivate(ctx, filter,
		repository.Revocation{Reason: models.RevocationLogoutAll, At: s.now()})
	if err != nil {
		return 0, storageError("revoke sessions", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":          owner,
		"revoked":          changed,
		"excluded_current": filter.ExcludeSecret != "",
	}).Info("Revoked user sessions")
	s.publish(ctx, events.Event{
		Type:    events.TokensRevokedAll,
		Outcome: events.OutcomeSuccess,
		UserID:  owner,
		Count:   changed,
	})
	return changed, nil
}

func (s *TokenService) newRecord(owner string, meta models.DeviceMetadata, now time.Time) (*models.RefreshToken, error) {
	secret, err := generateSecret(s.policy.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}
	userAgent := models.TruncateUserAgent(meta.UserAgent)
	info := s.devices.Parse(userAgent)
	return &models.RefreshToken{
		ID:         ulid.Make().String(),
		JTI:        uuid.NewString(),
		Secret:     secret,
		UserID:     owner,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(s.policy.RefreshTokenTTL),
		IsActive:   true,
		UserAgent:  userAgent,
		DeviceName: models.TruncateText(info.Device, models.MaxDeviceFieldLength),
		Browser:    models.TruncateText(info.Browser, models.MaxDeviceFieldLength),
		OS:         models.TruncateText(info.OS, models.MaxDeviceFieldLength),
		IsMobile:   info.IsMobile,
		IPAddress:  models.TruncateText(meta.IPAddress, models.MaxIPAddressLength),
	}, nil
}

func (s *TokenService) pair(record *models.RefreshToken) (*models.TokenPair, error) {
	accessToken, _, err := s.access.Issue(record.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     record.Secret,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.access.TTL().Seconds()),
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *TokenService) rotateFailed(ctx context.Context, kind string, record *models.RefreshToken, meta models.DeviceMetadata) {
	event := events.Event{
		Type:      events.TokenRotateFailed,
		Outcome:   events.OutcomeFailure,
		Kind:      kind,
		IPAddress: meta.IPAddress,
	}
	if record != nil {
		event.UserID = record.UserID
		event.TokenID = record.ID
		event.LineageID = record.LineageID
	}
	s.publish(ctx, event)
}

func (s *TokenService) publish(ctx context.Context, event events.Event) {
	if event.At.IsZero() {
		event.At = s.now()
	}
	s.events.Publish(ctx, event)
}
