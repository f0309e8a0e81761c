package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/onegreenvn/green-session-service/internal/models"
)

var (
	// ErrNotFound is returned when no record matches a single-record lookup
	ErrNotFound = errors.New("record not found")
	// ErrStorageUnavailable wraps every backend failure; callers may retry
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDuplicate is returned when an insert collides with an existing id or secret
	ErrDuplicate = errors.New("duplicate record")
	// ErrEmptyFilter guards bulk writes against an unconstrained predicate
	ErrEmptyFilter = errors.New("filter has no predicate")
)

// TokenStore is the durable keyed storage behind the refresh-token lifecycle.
// Deactivate is the compare-and-set primitive: it only touches rows that are
// still active and reports how many it changed.
type TokenStore interface {
	FindActiveBySecret(ctx context.Context, secret string) (*models.RefreshToken, error)
	Insert(ctx context.Context, token *models.RefreshToken) error
	Deactivate(ctx context.Context, filter TokenFilter, rev Revocation) (int64, error)
	FlagReuse(ctx context.Context, id string, at time.Time) error
	Find(ctx context.Context, filter TokenFilter, opts FindOptions) ([]models.RefreshToken, error)
	DeleteMany(ctx context.Context, filter TokenFilter) (int64, error)
	Count(ctx context.Context, filter TokenFilter) (int64, error)
}

// TokenFilter is a conjunction of optional predicates. Zero fields are ignored.
type TokenFilter struct {
	ID            string
	Secret        string
	Owner         string
	LineageID     string
	ExcludeSecret string
	ActiveOnly    bool
	InactiveOnly  bool
	ReuseFlagged  bool
	// ExpiredAt matches expires_at <= t
	ExpiredAt time.Time
	// LiveAt matches expires_at > t
	LiveAt        time.Time
	CreatedBefore time.Time
	// UsedBefore matches last_used_at < t; deactivation stamps last_used_at
	UsedBefore time.Time
}

// IsEmpty reports whether the filter would match every record
func (f TokenFilter) IsEmpty() bool {
	return f.ID == "" && f.Secret == "" && f.Owner == "" && f.LineageID == "" &&
		f.ExcludeSecret == "" && !f.ActiveOnly && !f.InactiveOnly && !f.ReuseFlagged &&
		f.ExpiredAt.IsZero() && f.LiveAt.IsZero() && f.CreatedBefore.IsZero() && f.UsedBefore.IsZero()
}

// Matches evaluates the filter against a single record
func (f TokenFilter) Matches(t *models.RefreshToken) bool {
	switch {
	case f.ID != "" && t.ID != f.ID:
		return false
	case f.Secret != "" && t.Secret != f.Secret:
		return false
	case f.Owner != "" && t.UserID != f.Owner:
		return false
	case f.LineageID != "" && t.LineageID != f.LineageID:
		return false
	case f.ExcludeSecret != "" && t.Secret == f.ExcludeSecret:
		return false
	case f.ActiveOnly && !t.IsActive:
		return false
	case f.InactiveOnly && t.IsActive:
		return false
	case f.ReuseFlagged && t.ReuseDetectedAt == nil:
		return false
	case !f.ExpiredAt.IsZero() && t.ExpiresAt.After(f.ExpiredAt):
		return false
	case !f.LiveAt.IsZero() && !t.ExpiresAt.After(f.LiveAt):
		return false
	case !f.CreatedBefore.IsZero() && !t.CreatedAt.Before(f.CreatedBefore):
		return false
	case !f.UsedBefore.IsZero() && !t.LastUsedAt.Before(f.UsedBefore):
		return false
	}
	return true
}

// scope translates the filter into gorm conditions
func (f TokenFilter) scope(db *gorm.DB) *gorm.DB {
	if f.ID != "" {
		db = db.Where("id = ?", f.ID)
	}
	if f.Secret != "" {
		db = db.Where("token = ?", f.Secret)
	}
	if f.Owner != "" {
		db = db.Where("user_id = ?", f.Owner)
	}
	if f.LineageID != "" {
		db = db.Where("lineage_id = ?", f.LineageID)
	}
	if f.ExcludeSecret != "" {
		db = db.Where("token <> ?", f.ExcludeSecret)
	}
	if f.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if f.InactiveOnly {
		db = db.Where("is_active = ?", false)
	}
	if f.ReuseFlagged {
		db = db.Where("reuse_detected_at IS NOT NULL")
	}
	if !f.ExpiredAt.IsZero() {
		db = db.Where("expires_at <= ?", f.ExpiredAt)
	}
	if !f.LiveAt.IsZero() {
		db = db.Where("expires_at > ?", f.LiveAt)
	}
	if !f.CreatedBefore.IsZero() {
		db = db.Where("created_at < ?", f.CreatedBefore)
	}
	if !f.UsedBefore.IsZero() {
		db = db.Where("last_used_at < ?", f.UsedBefore)
	}
	return db
}

// Revocation describes the deactivation written by Deactivate
type Revocation struct {
	Reason models.RevocationReason
	At     time.Time
	// RotatedTo links the successor jti; empty for plain revocations
	RotatedTo string
}

// FindOptions controls ordering and size of Find results
type FindOptions struct {
	NewestFirst bool
	Limit       int
}
