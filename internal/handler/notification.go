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

type NotificationHandler struct {
	notificationService *service.NotificationService
	subscriber          realtime.Subscriber
}

func NewNotificationHandler(notificationService *service.NotificationService, subscriber realtime.Subscriber) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		subscriber:          subscriber,
	}
}

func unreadStats(rows []model.NotificationView) any {
	return map[string]int{"unread": service.UnreadCount(rows)}
}

// List handles GET /app/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	rows, err := h.notificationService.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load notifications")
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"notifications": rows,
		"stats":         unreadStats(rows),
	}, ctxkeys.RequestID(r.Context()))
}

// Stream handles GET /app/notifications/stream.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.User(r.Context()).ID

	syncer := feed.New("notifications:"+userID,
		func(ctx context.Context) ([]model.NotificationView, error) {
			return h.notificationService.List(ctx, userID)
		},
		h.subscriber,
		realtime.Channel{Name: "notifications:" + userID, Table: model.TableNotifications, Filter: realtime.Eq("recipient_id", userID)},
		realtime.Channel{Name: "notification-actors:" + userID, Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, unreadStats)
}

// MarkRead handles POST /app/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	if err := h.notificationService.MarkRead(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to update notification")
		return
	}
	response.NoContent(w)
}

// MarkAllRead handles POST /app/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	n, err := h.notificationService.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "Failed to update notifications")
		return
	}
	response.Success(w, http.StatusOK, map[string]int{"updated": n}, ctxkeys.RequestID(r.Context()))
}
