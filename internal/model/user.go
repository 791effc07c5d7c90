package model

import (
	"encoding/json"
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Metadata         string     `db:"metadata"` // JSON object, e.g. {"role":"student","full_name":"..."}
	EmailConfirmedAt *time.Time `db:"email_confirmed_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

// Meta decodes the metadata column. Malformed metadata yields an empty map.
func (u *User) Meta() map[string]string {
	meta := make(map[string]string)
	if u.Metadata == "" {
		return meta
	}
	var raw map[string]any
	err := json.Unmarshal([]byte(u.Metadata), &raw)
	if err != nil {
		return meta
	}
	for k, v := range raw {
		s, ok := v.(string)
		if ok {
			meta[k] = s
		}
	}
	return meta
}

func (u *User) IsConfirmed() bool {
	return u.EmailConfirmedAt != nil
}

// Session backs a signed JWT. Revoking it invalidates the token before expiry.
type Session struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

const (
	TokenTypePasswordReset = "password_reset"
	TokenTypeEmailConfirm  = "email_confirm"
)

// Token is a one-time credential delivered by email.
type Token struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Type      string     `db:"type"`
	Token     string     `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}
