package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/voclaria/voclaria/internal/model"
)

// Notify publishes a change after a successful write. Failures are logged:
// the write already happened and subscribers still converge on their next
// refresh.
func Notify(ctx context.Context, p Publisher, table, event string, record map[string]string) {
	if p == nil {
		return
	}
	n := model.ChangeNotification{
		Table:    table,
		Event:    event,
		Record:   record,
		CommitTS: time.Now().UTC(),
	}
	if err := p.Publish(ctx, n); err != nil {
		slog.Warn("failed to publish change notification", "table", table, "event", event, "error", err)
	}
}
