package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/feed"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

type AttendanceHandler struct {
	attendanceService *service.AttendanceService
	subscriber        realtime.Subscriber
}

func NewAttendanceHandler(attendanceService *service.AttendanceService, subscriber realtime.Subscriber) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		subscriber:        subscriber,
	}
}

// Join handles POST /app/live-sessions/{id}/join.
func (h *AttendanceHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	viewers, err := h.attendanceService.Join(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, r, err, "Failed to join live session")
		return
	}
	response.Success(w, http.StatusOK, map[string]int{"viewers": viewers}, ctxkeys.RequestID(r.Context()))
}

// Leave handles POST /app/live-sessions/{id}/leave.
func (h *AttendanceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	viewers, err := h.attendanceService.Leave(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, r, err, "Failed to leave live session")
		return
	}
	response.Success(w, http.StatusOK, map[string]int{"viewers": viewers}, ctxkeys.RequestID(r.Context()))
}

// Stream handles GET /app/live-sessions/{id}/stream with the present viewers.
func (h *AttendanceHandler) Stream(w http.ResponseWriter, r *http.Request) {
	viewerID := ctxkeys.User(r.Context()).ID
	sessionID := chi.URLParam(r, "id")
	name := "attendance:" + sessionID + ":" + viewerID

	syncer := feed.New(name,
		func(ctx context.Context) ([]model.AttendeeView, error) {
			return h.attendanceService.Attendees(ctx, sessionID)
		},
		h.subscriber,
		realtime.Channel{Name: name, Table: model.TableLiveAttendances, Filter: realtime.Eq("session_id", sessionID)},
		realtime.Channel{Name: name + ":people", Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, func(rows []model.AttendeeView) any {
		return map[string]int{"viewers": len(rows)}
	})
}
