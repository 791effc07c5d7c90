package model

import "time"

const (
	JoinStatusPending  = "pending"
	JoinStatusApproved = "approved"
	JoinStatusRejected = "rejected"
)

type JoinRequest struct {
	ID          string    `db:"id"`
	TeacherID   string    `db:"teacher_id"`
	StudentID   string    `db:"student_id"`
	GradeLevel  *string   `db:"grade_level"`
	Strand      *string   `db:"strand"`
	CodeEntered *string   `db:"code_entered"`
	Status      string    `db:"status"`
	RequestedAt time.Time `db:"requested_at"`
}

type JoinRequestView struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	Initials    string    `json:"initials"`
	Color       string    `json:"color"`
	Grade       string    `json:"grade"`
	Strand      string    `json:"strand"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
