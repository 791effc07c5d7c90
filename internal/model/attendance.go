package model

import "time"

// Attendance is one viewer's presence in a live session. LeftAt is nil while
// they are watching.
type Attendance struct {
	SessionID string     `db:"session_id"`
	UserID    string     `db:"user_id"`
	JoinedAt  time.Time  `db:"joined_at"`
	LeftAt    *time.Time `db:"left_at"`
}

type AttendeeView struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}
