package observability

import (
	"context"
	"log/slog"
)

// Audit emits a structured audit record for a state-changing operation.
func Audit(ctx context.Context, event string, attrs ...any) {
	base := []any{"event", event}
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}
