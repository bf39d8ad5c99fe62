package shutterdeck

// RequestHook observes requests going through the Gateway
type RequestHook struct {
	// Before is called before the request is sent. An error aborts the request.
	Before func(context *HookContext) error
	// After is called once the request succeeded (only if Before didn't error)
	After func(context *HookContext, response *Response) error
	// OnFinally is called after every request regardless of errors. response may be nil.
	OnFinally func(context *HookContext, response *Response) error
	// Error is called when the request, or one of the hooks, failed
	Error func(context *HookContext, requestError error) error
}

// NewRequestHook creates a new RequestHook with the provided functions
func NewRequestHook(
	before func(context *HookContext) error,
	after func(context *HookContext, response *Response) error,
	onFinally func(context *HookContext, response *Response) error,
	onError func(context *HookContext, requestError error) error,
) *RequestHook {
	return &RequestHook{
		Before:    before,
		After:     after,
		OnFinally: onFinally,
		Error:     onError,
	}
}
