package model

import "time"

const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventAll    = "*"
)

// ChangeNotification tells subscribers that a row in Table changed. Record
// holds column values for filter matching only; consumers must re-read the
// table rather than trust it.
type ChangeNotification struct {
	Table    string            `json:"table"`
	Event    string            `json:"event"`
	Record   map[string]string `json:"record,omitempty"`
	CommitTS time.Time         `json:"commit_ts"`
}

const (
	TableProfiles          = "profiles"
	TableTeacherStudents   = "teacher_students"
	TableStudentProgress   = "student_progress"
	TableLiveSessions      = "live_sessions"
	TableClassJoinRequests = "class_join_requests"
	TablePosts             = "posts"
	TableLikes             = "likes"
	TableComments          = "comments"
	TableNotifications     = "notifications"
	TableLiveAttendances   = "live_attendances"
)
