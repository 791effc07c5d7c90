package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/voclaria/voclaria/internal/app"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/handler"
	"github.com/voclaria/voclaria/internal/middleware"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/response"
)

// Version is reported by /health.
var Version = "dev"

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB, Version)
	auth := handler.NewAuthHandler(app.AuthService, app.ProfileService)
	profile := handler.NewProfileHandler(app.ProfileService, app.AuthService, app.Cfg.AvatarMaxUploadBytes)
	roster := handler.NewRosterHandler(app.RosterService, app.Broker)
	live := handler.NewLiveSessionHandler(app.LiveSessionService, app.Broker)
	joins := handler.NewJoinRequestHandler(app.EnrollmentService, app.Broker)
	progress := handler.NewProgressHandler(app.ProgressService, app.Broker)
	community := handler.NewCommunityHandler(app.CommunityService, app.Broker)
	notifications := handler.NewNotificationHandler(app.NotificationService, app.Broker)
	attendance := handler.NewAttendanceHandler(app.AttendanceService, app.Broker)
	lessons := handler.NewLessonHandler(app.LessonService)

	r := chi.NewRouter()

	// Global middleware - executed in order (top to bottom)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.Recovery)
	r.Use(middleware.Authenticate(app.AuthService))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Route not found", ctxkeys.RequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", ctxkeys.RequestID(r.Context()))
	})

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	r.Method(http.MethodGet, "/health", health)

	r.Route("/auth", func(r chi.Router) {
		// Auth actions (rate limited)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(10, time.Minute))
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/password/forgot", auth.ForgotPassword)
			r.Post("/password/reset", auth.ResetPassword)
			r.Post("/confirm/resend", auth.ResendConfirmation)
		})

		// Token verification
		r.Get("/confirm/{token}", auth.ConfirmEmail)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", auth.Logout)
			r.Get("/me", auth.Me)
		})
	})

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	r.Route("/app", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		// Profile
		r.Patch("/profile/name", profile.UpdateName)
		r.Post("/profile/avatar", profile.UploadAvatar)
		r.Post("/profile/password", profile.ChangePassword)
		r.Post("/profile/preassessment", profile.CompletePreassessment)
		r.Get("/avatars/{userID}", profile.Avatar)

		// Live sessions
		r.Get("/live-sessions", live.List)
		r.Get("/live-sessions/stream", live.Stream)
		r.Post("/live-sessions", live.Start)
		r.Post("/live-sessions/{id}/end", live.End)
		r.Post("/live-sessions/{id}/join", attendance.Join)
		r.Post("/live-sessions/{id}/leave", attendance.Leave)
		r.Get("/live-sessions/{id}/stream", attendance.Stream)

		// Community
		r.Get("/posts", community.Feed)
		r.Get("/posts/stream", community.FeedStream)
		r.Post("/posts", community.Create)
		r.Get("/posts/{id}", community.Thread)
		r.Get("/posts/{id}/stream", community.ThreadStream)
		r.Post("/posts/{id}/like", community.ToggleLike)
		r.Post("/posts/{id}/comments", community.AddComment)

		// Notifications
		r.Get("/notifications", notifications.List)
		r.Get("/notifications/stream", notifications.Stream)
		r.Post("/notifications/read-all", notifications.MarkAllRead)
		r.Post("/notifications/{id}/read", notifications.MarkRead)

		// Lessons
		r.Get("/lessons", lessons.List)
		r.Get("/lessons/{slug}", lessons.Show)

		// Student
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleStudent))
			r.Get("/progress", progress.Show)
			r.Get("/progress/stream", progress.Stream)
			r.Put("/progress", progress.Record)
			r.Post("/join-requests", joins.Submit)
		})

		// Teacher
		r.Route("/teacher", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleTeacher))
			r.Get("/roster", roster.Roster)
			r.Get("/roster/stream", roster.Stream)
			r.Get("/join-requests", joins.Pending)
			r.Get("/join-requests/stream", joins.Stream)
			r.Post("/join-requests/approve", joins.Approve)
			r.Post("/join-requests/decline", joins.Decline)
		})
	})

	return r
}
