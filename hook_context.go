package shutterdeck

import "time"

// HookContext describes the logical request a RequestHook is observing. A
// replay after a session refresh shares the context of the original call.
type HookContext struct {
	Method    string
	Path      string
	RequestID string
	// Exempt reports whether the request is excluded from session recovery.
	Exempt  bool
	Started time.Time
}

// Elapsed is the time since the request entered the Gateway.
func (c *HookContext) Elapsed() time.Duration {
	return time.Since(c.Started)
}
