package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/voclaria/voclaria/internal/ctxkeys"
)

// quietPaths are polled by load balancers and browsers; logging them is noise.
var quietPaths = map[string]bool{
	"/health":      true,
	"/favicon.ico": true,
}

// RequestLogging emits one record per request once the handler returns. For
// SSE routes that is when the client goes away, so duration is the stream's
// lifetime. 5xx responses are logged at warn.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if quietPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.LogAttrs(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(started)),
			slog.String("request_id", ctxkeys.RequestID(r.Context())),
			slog.String("remote_addr", r.RemoteAddr),
		)
	})
}
