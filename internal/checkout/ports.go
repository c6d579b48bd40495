package checkout

import "context"

// CaptchaVerifier is the anti-automation collaborator. A nil verifier on the
// coordinator disables the check entirely.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) error
}

// Notifier delivers customer emails. Calls are fire-and-forget from the
// caller's perspective: a notification failure never fails the operation
// that triggered it.
type Notifier interface {
	Send(ctx context.Context, to, template string, vars map[string]string) error
}

// CacheInvalidator drops read caches by tag after successful writes. Not
// required for correctness, only read freshness, so failures are logged and
// swallowed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// Cache tags invalidated by the engine.
const (
	TagOrders    = "orders"
	TagDashboard = "dashboard"
	TagProducts  = "products"
)
