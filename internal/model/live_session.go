package model

import "time"

const (
	LiveStatusLive  = "live"
	LiveStatusEnded = "ended"
)

// LiveStatuses are the status values treated as "on air".
var LiveStatuses = []string{"live", "LIVE", "active"}

type LiveSession struct {
	ID        string     `db:"id"`
	HostID    string     `db:"host_id"`
	Title     *string    `db:"title"`
	Viewers   int        `db:"viewers"`
	Status    string     `db:"status"`
	Level     *string    `db:"level"`
	StartedAt *time.Time `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
}

type LiveSessionView struct {
	ID            string     `json:"id"`
	HostID        string     `json:"host_id"`
	HostName      string     `json:"host_name"`
	HostAvatarURL string     `json:"host_avatar_url,omitempty"`
	Title         string     `json:"title"`
	Level         string     `json:"level"`
	Viewers       string     `json:"viewers"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	IsMyStudent   bool       `json:"is_my_student"`
}
