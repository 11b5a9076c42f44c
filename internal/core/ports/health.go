package ports

import "context"

// HealthChecker probes one remote cache tier. Check returns nil when the tier
// is reachable and usable; a failing tier degrades the service without
// stopping it.
type HealthChecker interface {
	// Name is the dependency label reported by /health.
	Name() string
	Check(ctx context.Context) error
}
