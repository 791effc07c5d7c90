package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

type LessonHandler struct {
	lessonService *service.LessonService
}

func NewLessonHandler(lessonService *service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// List handles GET /app/lessons?kind=&level=.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lessons := h.lessonService.Lessons(q.Get("kind"), q.Get("level"))
	response.Success(w, http.StatusOK, lessons, ctxkeys.RequestID(r.Context()))
}

// Show handles GET /app/lessons/{slug}.
func (h *LessonHandler) Show(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.lessonService.Lesson(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err, "Failed to load lesson")
		return
	}
	response.Success(w, http.StatusOK, lesson, ctxkeys.RequestID(r.Context()))
}
