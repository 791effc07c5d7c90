package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/response"
)

// DBPinger is satisfied by *sqlx.DB.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      DBPinger
	version string
}

func NewHealthHandler(db DBPinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

type healthData struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// ServeHTTP handles GET /health. A failed database ping answers 503.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthData{Status: "healthy", Version: h.version, Database: "connected"}
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		data.Status = "degraded"
		data.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	response.Success(w, status, data, ctxkeys.RequestID(r.Context()))
}
