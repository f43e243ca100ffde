package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func NewRefreshToken(userID uint, ttl time.Duration) (*RefreshToken, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	now := time.Now()
	return &RefreshToken{
		ID:        "rt_" + hex.EncodeToString(b),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// RevokedToken records an access token jti that must no longer be accepted.
// Used when Redis is not configured.
type RevokedToken struct {
	ID        string    `gorm:"primaryKey;size:64"`
	RevokedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
