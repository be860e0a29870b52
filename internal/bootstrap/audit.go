package bootstrap

import "context"

type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

// AuditLogger records operational events (shutdowns, sweep outcomes)
// separately from debug logging. Implementations must not block.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}
