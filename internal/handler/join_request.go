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

type JoinRequestHandler struct {
	enrollmentService *service.EnrollmentService
	subscriber        realtime.Subscriber
}

func NewJoinRequestHandler(enrollmentService *service.EnrollmentService, subscriber realtime.Subscriber) *JoinRequestHandler {
	return &JoinRequestHandler{
		enrollmentService: enrollmentService,
		subscriber:        subscriber,
	}
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// Submit handles POST /app/join-requests from a student.
func (h *JoinRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	student := ctxkeys.User(r.Context())

	var req service.JoinRequestInput
	if !decodeJSON(w, r, &req) {
		return
	}

	jr, err := h.enrollmentService.Submit(r.Context(), student.ID, req)
	if err != nil {
		writeError(w, r, err, "Failed to send join request")
		return
	}
	response.Success(w, http.StatusCreated, map[string]string{
		"id":     jr.ID,
		"status": jr.Status,
	}, ctxkeys.RequestID(r.Context()))
}

// Pending handles GET /app/teacher/join-requests.
func (h *JoinRequestHandler) Pending(w http.ResponseWriter, r *http.Request) {
	teacher := ctxkeys.User(r.Context())

	reqs, err := h.enrollmentService.Pending(r.Context(), teacher.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load join requests")
		return
	}
	response.Success(w, http.StatusOK, reqs, ctxkeys.RequestID(r.Context()))
}

// Stream handles GET /app/teacher/join-requests/stream.
func (h *JoinRequestHandler) Stream(w http.ResponseWriter, r *http.Request) {
	teacherID := ctxkeys.User(r.Context()).ID

	syncer := feed.New("join-requests:"+teacherID,
		func(ctx context.Context) ([]model.JoinRequestView, error) {
			return h.enrollmentService.Pending(ctx, teacherID)
		},
		h.subscriber,
		realtime.Channel{Name: "join-requests:" + teacherID, Table: model.TableClassJoinRequests, Filter: realtime.Eq("teacher_id", teacherID)},
		realtime.Channel{Name: "join-profiles:" + teacherID, Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, nil)
}

// Approve handles POST /app/teacher/join-requests/approve.
func (h *JoinRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.enrollmentService.Approve, "approved", "Failed to approve join requests")
}

// Decline handles POST /app/teacher/join-requests/decline.
func (h *JoinRequestHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.enrollmentService.Decline, "declined", "Failed to decline join requests")
}

func (h *JoinRequestHandler) settle(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, teacherID string, ids []string) (int, error),
	key, fallback string,
) {
	teacher := ctxkeys.User(r.Context())

	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := action(r.Context(), teacher.ID, req.IDs)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	response.Success(w, http.StatusOK, map[string]int{key: n}, ctxkeys.RequestID(r.Context()))
}
