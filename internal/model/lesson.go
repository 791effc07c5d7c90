package model

const (
	LessonKindSpeaking = "speaking"
	LessonKindReading  = "reading"
)

type Lesson struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Level       string `json:"level"`
	Kind        string `json:"kind"`
	Order       int    `json:"order"`
	Description string `json:"description,omitempty"`
	HTMLContent string `json:"html,omitempty"`
}
