package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/models"
)

// IdentityVerifier yields a verified owner identifier for a credential
type IdentityVerifier interface {
	Verify(ctx context.Context, email, password string) (string, error)
}

// PasswordVerifier checks an email/password pair against stored bcrypt hashes
type PasswordVerifier struct {
	users repository.UserFinder
}

func NewPasswordVerifier(users repository.UserFinder) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

// dummyHash keeps the unknown-user path as slow as a real comparison
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("session-service-dummy"), bcrypt.DefaultCost)

func (v *PasswordVerifier) Verify(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := v.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", storageError("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}

// UserStore is the write side needed to seed an account
type UserStore interface {
	repository.UserFinder
	Create(ctx context.Context, user *models.User) error
}

// EnsureUser creates an account for email unless one already exists
func EnsureUser(ctx context.Context, users UserStore, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageError("load user", err)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		IsVerified:   true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, storageError("create user", err)
	}
	logrus.WithField("email", email).Info("Seed user created")
	return user, nil
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
