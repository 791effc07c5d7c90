package model

import "time"

const (
	StudentStatusActive    = "active"
	StudentStatusInactive  = "inactive"
	StudentStatusGraduated = "graduated"
)

type TeacherStudent struct {
	TeacherID  string    `db:"teacher_id"`
	StudentID  string    `db:"student_id"`
	GradeLevel *string   `db:"grade_level"`
	Strand     *string   `db:"strand"`
	Status     *string   `db:"status"`
	InsertedAt time.Time `db:"inserted_at"`
}

type StudentProgress struct {
	StudentID         string    `db:"student_id" json:"student_id"`
	SpeakingCompleted int       `db:"speaking_completed" json:"speaking_completed"`
	SpeakingTotal     int       `db:"speaking_total" json:"speaking_total"`
	ReadingCompleted  int       `db:"reading_completed" json:"reading_completed"`
	ReadingTotal      int       `db:"reading_total" json:"reading_total"`
	Confidence        *int      `db:"confidence" json:"confidence"`
	Anxiety           *int      `db:"anxiety" json:"anxiety"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// RosterRow is the merged view of one teacher-student link. It is rebuilt on
// every synchronization pass.
type RosterRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Strand       string `json:"strand"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Satisfaction int    `json:"satisfaction"`
	Confidence   int    `json:"confidence"`
	Anxiety      int    `json:"anxiety"`
	Initials     string `json:"initials"`
	Color        string `json:"color"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

type RosterStats struct {
	TotalStudents       int `json:"total_students"`
	ActiveStudents      int `json:"active_students"`
	AverageProgress     int `json:"average_progress"`
	AverageSatisfaction int `json:"average_satisfaction"`
	AverageConfidence   int `json:"average_confidence"`
}
