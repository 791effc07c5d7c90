package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

// Authenticate resolves a Bearer token to the signed-in user and stores
// user, profile and session id in the context. Requests without a valid
// token continue anonymously; RequireAuth decides whether that is allowed.
func Authenticate(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := authService.CurrentUser(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrUnauthenticated) {
					slog.Error("failed to authenticate request", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), identity.User)
			ctx = ctxkeys.WithProfile(ctx, identity.Profile)
			ctx = ctxkeys.WithSessionID(ctx, identity.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header. EventSource clients cannot set
// headers, so stream endpoints also accept ?access_token=.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if strings.HasSuffix(r.URL.Path, "/stream") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Please sign in", ctxkeys.RequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose profile does not carry role with 403.
// It must run after RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ctxkeys.Profile(r.Context()).HasRole(role) {
				msg := "This page is for teachers only"
				if role == model.RoleStudent {
					msg = "This page is for students only"
				}
				response.Err(w, http.StatusForbidden, "FORBIDDEN", msg, ctxkeys.RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
