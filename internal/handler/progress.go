package handler

import (
	"context"
	"net/http"

	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/feed"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

type ProgressHandler struct {
	progressService *service.ProgressService
	subscriber      realtime.Subscriber
}

func NewProgressHandler(progressService *service.ProgressService, subscriber realtime.Subscriber) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, subscriber: subscriber}
}

func percentStats(rows []model.StudentProgress) any {
	if len(rows) == 0 {
		return nil
	}
	return map[string]int{"percent": service.ProgressPercent(&rows[0])}
}

// Show handles GET /app/progress for the signed-in student.
func (h *ProgressHandler) Show(w http.ResponseWriter, r *http.Request) {
	student := ctxkeys.User(r.Context())

	p, err := h.progressService.Mine(r.Context(), student.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load progress")
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"progress": p,
		"percent":  service.ProgressPercent(p),
	}, ctxkeys.RequestID(r.Context()))
}

// Stream handles GET /app/progress/stream, the student's home view.
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	studentID := ctxkeys.User(r.Context()).ID

	syncer := feed.New("progress:"+studentID,
		func(ctx context.Context) ([]model.StudentProgress, error) {
			p, err := h.progressService.Mine(ctx, studentID)
			if err != nil {
				return nil, err
			}
			return []model.StudentProgress{*p}, nil
		},
		h.subscriber,
		realtime.Channel{Name: "progress:" + studentID, Table: model.TableStudentProgress, Filter: realtime.Eq("student_id", studentID)},
	)

	serveStream(w, r, syncer, percentStats)
}

// Record handles PUT /app/progress for the signed-in student.
func (h *ProgressHandler) Record(w http.ResponseWriter, r *http.Request) {
	student := ctxkeys.User(r.Context())

	var req service.ProgressInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.progressService.Record(r.Context(), student.ID, req)
	if err != nil {
		writeError(w, r, err, "Failed to save progress")
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"progress": p,
		"percent":  service.ProgressPercent(p),
	}, ctxkeys.RequestID(r.Context()))
}
