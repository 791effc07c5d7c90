package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/feed"
	"github.com/voclaria/voclaria/internal/response"
)

const heartbeatInterval = 15 * time.Second

// streamEvent is the payload of one "snapshot" SSE event.
type streamEvent[T any] struct {
	feed.Snapshot[T]
	Error string `json:"error,omitempty"`
	Stats any    `json:"stats,omitempty"`
}

// serveStream starts syncer for the lifetime of the request and writes every
// snapshot it publishes as an SSE event. stats, if set, adds a summary of the
// rows to each event.
func serveStream[T any](w http.ResponseWriter, r *http.Request, syncer *feed.Synchronizer[T], stats func([]T) any) {
	requestID := ctxkeys.RequestID(r.Context())
	ctx := r.Context()

	rc := http.NewResponseController(w)
	if err := syncer.Start(ctx); err != nil {
		slog.Error("failed to start stream", "error", err, "request_id", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start stream", requestID)
		return
	}
	defer syncer.Close()

	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Error("streaming not supported", "error", err, "request_id", requestID)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case snap, ok := <-syncer.Updates():
			if !ok {
				return
			}
			if err := writeSnapshot(w, snap, stats); err != nil {
				slog.Debug("stream closed", "error", err, "request_id", requestID)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeSnapshot[T any](w http.ResponseWriter, snap feed.Snapshot[T], stats func([]T) any) error {
	event := streamEvent[T]{Snapshot: snap}
	if snap.Err != nil {
		event.Error = "Could not refresh, showing the last known data"
	}
	if stats != nil {
		event.Stats = stats(snap.Data)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, payload)
	return err
}
