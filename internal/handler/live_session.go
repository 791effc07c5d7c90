package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/feed"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

type LiveSessionHandler struct {
	liveSessionService *service.LiveSessionService
	subscriber         realtime.Subscriber
}

func NewLiveSessionHandler(liveSessionService *service.LiveSessionService, subscriber realtime.Subscriber) *LiveSessionHandler {
	return &LiveSessionHandler{
		liveSessionService: liveSessionService,
		subscriber:         subscriber,
	}
}

// filterFromQuery reads ?mine=true&q=...
func filterFromQuery(r *http.Request) service.LiveSessionFilter {
	mine, _ := strconv.ParseBool(r.URL.Query().Get("mine"))
	return service.LiveSessionFilter{
		MyStudentsOnly: mine,
		Query:          r.URL.Query().Get("q"),
	}
}

// List handles GET /app/live-sessions.
func (h *LiveSessionHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer := ctxkeys.User(r.Context())

	sessions, err := h.liveSessionService.Live(r.Context(), viewer.ID, filterFromQuery(r))
	if err != nil {
		writeError(w, r, err, "Failed to load live sessions")
		return
	}
	response.Success(w, http.StatusOK, sessions, ctxkeys.RequestID(r.Context()))
}

// Stream handles GET /app/live-sessions/stream.
func (h *LiveSessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	viewerID := ctxkeys.User(r.Context()).ID
	filter := filterFromQuery(r)

	syncer := feed.New("live-sessions:"+viewerID,
		func(ctx context.Context) ([]model.LiveSessionView, error) {
			return h.liveSessionService.Live(ctx, viewerID, filter)
		},
		h.subscriber,
		realtime.Channel{Name: "live-sessions:" + viewerID, Table: model.TableLiveSessions},
		realtime.Channel{Name: "live-links:" + viewerID, Table: model.TableTeacherStudents, Filter: realtime.Eq("teacher_id", viewerID)},
		realtime.Channel{Name: "live-hosts:" + viewerID, Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, nil)
}

// Start handles POST /app/live-sessions. The caller is the host.
func (h *LiveSessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	host := ctxkeys.User(r.Context())

	var req service.StartSessionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.liveSessionService.Start(r.Context(), host.ID, req)
	if err != nil {
		writeError(w, r, err, "Failed to start live session")
		return
	}
	response.Success(w, http.StatusCreated, map[string]string{
		"id":     session.ID,
		"status": session.Status,
	}, ctxkeys.RequestID(r.Context()))
}

// End handles POST /app/live-sessions/{id}/end. Only the host may end it.
func (h *LiveSessionHandler) End(w http.ResponseWriter, r *http.Request) {
	host := ctxkeys.User(r.Context())

	if err := h.liveSessionService.End(r.Context(), host.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to end live session")
		return
	}
	response.NoContent(w)
}
