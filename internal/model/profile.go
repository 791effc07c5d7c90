package model

import "time"

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Profile is keyed by the auth identity; there is no separate profile id.
type Profile struct {
	ID                        string    `db:"id" json:"id"`
	Name                      *string   `db:"name" json:"name"`
	AvatarURL                 *string   `db:"avatar_url" json:"avatar_url"` // stored object path or folder, not a signed URL
	Role                      *string   `db:"role" json:"role"`
	Phone                     *string   `db:"phone" json:"phone,omitempty"`
	HasCompletedPreassessment bool      `db:"has_completed_preassessment" json:"has_completed_preassessment"`
	CreatedAt                 time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) DisplayName() string {
	if p == nil || p.Name == nil {
		return ""
	}
	return *p.Name
}

func (p *Profile) StoredAvatar() string {
	if p == nil || p.AvatarURL == nil {
		return ""
	}
	return *p.AvatarURL
}

func (p *Profile) HasRole(role string) bool {
	return p != nil && p.Role != nil && *p.Role == role
}
