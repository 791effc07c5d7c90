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

type RosterHandler struct {
	rosterService *service.RosterService
	subscriber    realtime.Subscriber
}

func NewRosterHandler(rosterService *service.RosterService, subscriber realtime.Subscriber) *RosterHandler {
	return &RosterHandler{
		rosterService: rosterService,
		subscriber:    subscriber,
	}
}

// Roster handles GET /app/teacher/roster.
func (h *RosterHandler) Roster(w http.ResponseWriter, r *http.Request) {
	teacher := ctxkeys.User(r.Context())

	roster, err := h.rosterService.Roster(r.Context(), teacher.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load students")
		return
	}
	response.Success(w, http.StatusOK, roster, ctxkeys.RequestID(r.Context()))
}

// Stream handles GET /app/teacher/roster/stream. Progress and profile rows
// carry no teacher id, so those tables are watched unfiltered.
func (h *RosterHandler) Stream(w http.ResponseWriter, r *http.Request) {
	teacherID := ctxkeys.User(r.Context()).ID

	syncer := feed.New("roster:"+teacherID,
		func(ctx context.Context) ([]model.RosterRow, error) {
			return h.rosterService.Students(ctx, teacherID)
		},
		h.subscriber,
		realtime.Channel{Name: "roster-links:" + teacherID, Table: model.TableTeacherStudents, Filter: realtime.Eq("teacher_id", teacherID)},
		realtime.Channel{Name: "roster-progress:" + teacherID, Table: model.TableStudentProgress},
		realtime.Channel{Name: "roster-profiles:" + teacherID, Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, func(rows []model.RosterRow) any {
		return service.ComputeStats(rows)
	})
}
