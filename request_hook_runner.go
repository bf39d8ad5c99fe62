package shutterdeck

import (
	"fmt"
	"sync"

	"github.com/shutterdeck/go-client-sdk/util"
)

// BeforeHookError represents an error that occurred during a before hook
type BeforeHookError struct {
	HookIndex int
	Err       error
}

func (e *BeforeHookError) Error() string {
	return fmt.Sprintf("before hook %d failed: %v", e.HookIndex, e.Err)
}

func (e *BeforeHookError) Unwrap() error {
	return e.Err
}

// AfterHookError represents an error that occurred during an after hook
type AfterHookError struct {
	HookIndex int
	Err       error
}

func (e *AfterHookError) Error() string {
	return fmt.Sprintf("after hook %d failed: %v", e.HookIndex, e.Err)
}

func (e *AfterHookError) Unwrap() error {
	return e.Err
}

// RequestHookRunner manages and executes request hooks
type RequestHookRunner struct {
	mu    sync.RWMutex
	hooks []*RequestHook
}

func NewRequestHookRunner(hooks []*RequestHook) *RequestHookRunner {
	return &RequestHookRunner{
		hooks: append([]*RequestHook(nil), hooks...),
	}
}

func (r *RequestHookRunner) snapshot() []*RequestHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks
}

func (r *RequestHookRunner) Len() int {
	return len(r.snapshot())
}

// RunBeforeHooks runs all before hooks in order and stops at the first error
func (r *RequestHookRunner) RunBeforeHooks(context *HookContext) error {
	if context == nil {
		return nil
	}
	for i, hook := range r.snapshot() {
		if hook.Before != nil {
			if err := hook.Before(context); err != nil {
				util.Errorf("Before hook %d failed: %v", i, err)
				return &BeforeHookError{HookIndex: i, Err: err}
			}
		}
	}
	return nil
}

// RunAfterHooks runs all after hooks in reverse order
func (r *RequestHookRunner) RunAfterHooks(context *HookContext, response *Response) error {
	if context == nil {
		return nil
	}
	hooks := r.snapshot()
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.After != nil {
			if err := hook.After(context, response); err != nil {
				util.Errorf("After hook %d failed: %v", i, err)
				return &AfterHookError{HookIndex: i, Err: err}
			}
		}
	}
	return nil
}

// RunOnFinallyHooks runs all onFinally hooks in reverse order
func (r *RequestHookRunner) RunOnFinallyHooks(context *HookContext, response *Response) {
	if context == nil {
		return
	}
	hooks := r.snapshot()
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.OnFinally != nil {
			if err := hook.OnFinally(context, response); err != nil {
				util.Errorf("OnFinally hook %d failed: %v", i, err)
			}
		}
	}
}

// RunErrorHooks runs all error hooks in reverse order
func (r *RequestHookRunner) RunErrorHooks(context *HookContext, requestError error) {
	if context == nil {
		return
	}
	hooks := r.snapshot()
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.Error != nil {
			if err := hook.Error(context, requestError); err != nil {
				util.Errorf("Error hook %d failed: %v", i, err)
			}
		}
	}
}

func (r *RequestHookRunner) AddHook(hook *RequestHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Copy on write so a running request keeps the list it started with.
	r.hooks = append(append([]*RequestHook(nil), r.hooks...), hook)
}

func (r *RequestHookRunner) ClearHooks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = nil
}
