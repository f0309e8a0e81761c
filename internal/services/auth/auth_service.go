package auth

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-session-service/internal/models"
)

// AuthService is the operation surface handlers talk to
type AuthService struct {
	identity IdentityVerifier
	tokens   *TokenService
	sessions *SessionCatalog
	access   *AccessTokenManager
}

func NewAuthService(identity IdentityVerifier, tokens *TokenService, sessions *SessionCatalog, access *AccessTokenManager) *AuthService {
	return &AuthService{
		identity: identity,
		tokens:   tokens,
		sessions: sessions,
		access:   access,
	}
}

// Login authenticates a user and starts a new session
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest, meta models.DeviceMetadata) (*models.TokenPair, error) {
	owner, err := s.identity.Verify(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(ctx, owner, meta)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": owner,
		"ip":      meta.IPAddress,
	}).Info("User logged in")
	return pair, nil
}

// Refresh rotates a refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta models.DeviceMetadata) (*models.TokenPair, error) {
	return s.tokens.Rotate(ctx, refreshToken, meta)
}

// Logout ends the session holding refreshToken
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// LogoutAll ends every session of owner, optionally sparing the current one
func (s *AuthService) LogoutAll(ctx context.Context, owner, currentRefreshToken string, excludeCurrent bool) (*models.LogoutAllResponse, error) {
	excluded := ""
	if excludeCurrent {
		excluded = currentRefreshToken
	}
	n, err := s.tokens.RevokeAllExcept(ctx, owner, excluded)
	if err != nil {
		return nil, err
	}
	return &models.LogoutAllResponse{
		Success:               true,
		TokensInvalidated:     n,
		CurrentDeviceExcluded: excluded != "",
	}, nil
}

// ListSessions lists owner's active sessions
func (s *AuthService) ListSessions(ctx context.Context, owner, currentRefreshToken string) ([]models.SessionView, error) {
	return s.sessions.ListActive(ctx, owner, currentRefreshToken)
}

// RevokeSession ends one of owner's sessions by id
func (s *AuthService) RevokeSession(ctx context.Context, owner, sessionID string) error {
	return s.sessions.RevokeOne(ctx, owner, sessionID)
}

// ValidateToken validates and parses a JWT access token
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenInfo, error) {
	return s.access.Validate(tokenString)
}
