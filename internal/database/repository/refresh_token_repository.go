package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/onegreenvn/green-session-service/internal/models"
)

// RefreshTokenRepository is the postgres-backed TokenStore
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

var _ TokenStore = (*RefreshTokenRepository)(nil)

// FindActiveBySecret retrieves the active refresh token with an exactly matching secret
func (r *RefreshTokenRepository) FindActiveBySecret(ctx context.Context, secret string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", secret, true).
		First(&refreshToken).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &refreshToken, nil
}

// Insert creates a new refresh token
func (r *RefreshTokenRepository) Insert(ctx context.Context, token *models.RefreshToken) error {
	return translateError(r.db.WithContext(ctx).Create(token).Error)
}

// Deactivate clears is_active on every matching row that is still active.
// The is_active guard lives in the same UPDATE so concurrent callers race on
// the row, not on a prior read.
func (r *RefreshTokenRepository) Deactivate(ctx context.Context, filter TokenFilter, rev Revocation) (int64, error) {
	if filter.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	at := rev.At
	updates := map[string]interface{}{
		"is_active":      false,
		"revoked_reason": string(rev.Reason),
		"revoked_at":     at,
		"last_used_at":   at,
	}
	if rev.RotatedTo != "" {
		updates["rotated_to"] = rev.RotatedTo
	}

	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Scopes(filter.scope).
		Where("is_active = ?", true).
		Updates(updates)
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// FlagReuse stamps reuse_detected_at on a record regardless of its state
func (r *RefreshTokenRepository) FlagReuse(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND reuse_detected_at IS NULL", id).
		UpdateColumn("reuse_detected_at", at)
	return translateError(result.Error)
}

// Find lists matching refresh tokens
func (r *RefreshTokenRepository) Find(ctx context.Context, filter TokenFilter, opts FindOptions) ([]models.RefreshToken, error) {
	var refreshTokens []models.RefreshToken
	query := r.db.WithContext(ctx).Scopes(filter.scope)
	if opts.NewestFirst {
		query = query.Order("created_at DESC")
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if err := query.Find(&refreshTokens).Error; err != nil {
		return nil, translateError(err)
	}
	return refreshTokens, nil
}

// DeleteMany hard-deletes matching refresh tokens
func (r *RefreshTokenRepository) DeleteMany(ctx context.Context, filter TokenFilter) (int64, error) {
	if filter.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	result := r.db.WithContext(ctx).Scopes(filter.scope).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// Count counts matching refresh tokens
func (r *RefreshTokenRepository) Count(ctx context.Context, filter TokenFilter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RefreshToken{}).Scopes(filter.scope).Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// translateError maps gorm/driver failures onto the repository sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}
