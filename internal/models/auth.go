package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents the refresh token request.
// The token may also arrive as "Authorization: Bearer <token>".
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents the logout request
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutAllRequest represents a request to end every session of the caller
type LogoutAllRequest struct {
	RefreshToken   string `json:"refresh_token"`
	ExcludeCurrent *bool  `json:"exclude_current,omitempty"`
}

// LogoutAllResponse reports how many sessions were ended
type LogoutAllResponse struct {
	Success               bool  `json:"success"`
	TokensInvalidated     int64 `json:"tokens_invalidated"`
	CurrentDeviceExcluded bool  `json:"current_device_excluded"`
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// DeviceMetadata is the raw client context captured at issue or rotate time
type DeviceMetadata struct {
	UserAgent string
	IPAddress string
}

// JWTClaims represents the access token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenInfo represents a validated access token
type TokenInfo struct {
	UserID    string    `json:"user_id"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
