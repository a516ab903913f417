package models

import "time"

// RefreshToken is a stored, revocable refresh token.
type RefreshToken struct {
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expiry_date"`
	Revoked   bool      `db:"is_revoked"`
	CreatedAt time.Time `db:"created_at"`
}
