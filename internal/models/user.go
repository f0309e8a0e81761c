package models

import (
	"time"
)

// User represents an account known to the identity collaborator.
// The session service only reads it.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;unique;index"`
	Name         string    `json:"name" gorm:"type:varchar(255)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"`
	IsVerified   bool      `json:"is_verified" gorm:"index"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
