package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// RevocationReason tags why a refresh token stopped being active
type RevocationReason string

const (
	RevocationRotated       RevocationReason = "rotated"
	RevocationLogout        RevocationReason = "logout"
	RevocationLogoutAll     RevocationReason = "logout_all"
	RevocationExpired       RevocationReason = "expired"
	RevocationReuseDetected RevocationReason = "reuse_detected"
	RevocationManual        RevocationReason = "manual_revoke"
)

// Column widths of the client-supplied metadata on a record
const (
	MaxUserAgentLength   = 200
	MaxDeviceFieldLength = 100
	MaxIPAddressLength   = 45
)

// RefreshToken represents one issuance of a refresh token within a lineage
type RefreshToken struct {
	ID              string           `json:"id" gorm:"primaryKey;type:varchar(26)"`
	JTI             string           `json:"jti" gorm:"type:varchar(36);not null;uniqueIndex"`
	Secret          string           `json:"-" gorm:"column:token;type:varchar(128);not null;uniqueIndex"`
	UserID          string           `json:"user_id" gorm:"type:varchar(64);not null;index"`
	CreatedAt       time.Time        `json:"created_at" gorm:"not null;index"`
	LastUsedAt      time.Time        `json:"last_used_at" gorm:"not null"`
	ExpiresAt       time.Time        `json:"expires_at" gorm:"not null;index"`
	IsActive        bool             `json:"is_active" gorm:"not null;index"`
	RotationCount   int              `json:"rotation_count" gorm:"not null"`
	LineageID       string           `json:"lineage_id" gorm:"type:varchar(36);not null;index"`
	RotatedFrom     string           `json:"rotated_from,omitempty" gorm:"type:varchar(36);index"`
	RotatedTo       string           `json:"rotated_to,omitempty" gorm:"type:varchar(36)"`
	UserAgent       string           `json:"user_agent" gorm:"type:varchar(200)"`
	DeviceName      string           `json:"device_name" gorm:"type:varchar(100)"`
	Browser         string           `json:"browser" gorm:"type:varchar(100)"`
	OS              string           `json:"os" gorm:"column:os;type:varchar(100)"`
	IsMobile        bool             `json:"is_mobile"`
	IPAddress       string           `json:"ip_address" gorm:"type:varchar(45)"`
	RevokedReason   RevocationReason `json:"revoked_reason,omitempty" gorm:"type:varchar(32)"`
	RevokedAt       *time.Time       `json:"revoked_at,omitempty"`
	ReuseDetectedAt *time.Time       `json:"reuse_detected_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for the RefreshToken model
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Lifetime returns the configured validity window the record was minted with
func (t *RefreshToken) Lifetime() time.Duration {
	return t.ExpiresAt.Sub(t.CreatedAt)
}

// IsExpired reports whether the record is past its expiry at now
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// RedactSecret returns a log-safe prefix of a bearer secret
func RedactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "..."
}

// TruncateUserAgent trims a raw user-agent to the stored length
func TruncateUserAgent(ua string) string {
	return TruncateText(ua, MaxUserAgentLength)
}

// TruncateText drops invalid UTF-8 and cuts s to at most n bytes without
// splitting a rune
func TruncateText(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
