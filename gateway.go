package shutterdeck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matryer/try"
	"golang.org/x/sync/singleflight"

	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/session"
	"github.com/shutterdeck/go-client-sdk/util"
)

var (
	ErrRefreshFailed   = errors.New("session refresh failed")
	ErrUnauthenticated = errors.New("not authenticated")
)

// RefreshError is returned to the request that triggered a failed refresh
// and to every request that was waiting on it.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRefreshFailed, e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrRefreshFailed, e.Err}
}

// Gateway issues requests carrying the ambient session cookie and recovers
// from expired credentials with a single shared refresh.
type Gateway struct {
	cfg      *HTTPConfiguration
	options  *Options
	store    session.Store
	clientID string

	// mu guards refreshing and waiters. At most one refresh is in flight;
	// every request that needs recovery meanwhile parks a channel in waiters.
	mu         sync.Mutex
	refreshing bool
	waiters    []chan error

	dedupe singleflight.Group
	hooks  *RequestHookRunner
}

func NewGateway(options *Options, cfg *HTTPConfiguration, store session.Store) (*Gateway, error) {
	if options == nil {
		return nil, fmt.Errorf("Gateway - Options cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("Gateway - HTTPConfiguration cannot be nil")
	}
	if store == nil {
		store = session.NewMemoryStore()
	}
	return &Gateway{
		cfg:      cfg,
		options:  options,
		store:    store,
		clientID: uuid.New().String(),
		hooks:    NewRequestHookRunner(options.RequestHooks),
	}, nil
}

// Hooks exposes the runner so hooks can be added after construction.
func (g *Gateway) Hooks() *RequestHookRunner {
	return g.hooks
}

// Do sends req. A 401 or 403 on a non-exempt request triggers one refresh
// (shared with any concurrent failures) and one replay. Any other failing
// status is returned as a GenericError together with the response.
//
// Request hooks see one logical call: a replay after a refresh does not run
// them again.
func (g *Gateway) Do(ctx context.Context, req *Request) (resp *Response, err error) {
	if req.id == "" {
		req.id = uuid.New().String()
	}
	if g.hooks.Len() == 0 {
		return g.do(ctx, req)
	}

	hookContext := &HookContext{
		Method:    req.Method,
		Path:      req.Path,
		RequestID: req.id,
		Exempt:    g.isExempt(req),
		Started:   time.Now(),
	}
	defer func() {
		g.hooks.RunOnFinallyHooks(hookContext, resp)
	}()

	if err = g.hooks.RunBeforeHooks(hookContext); err != nil {
		g.hooks.RunErrorHooks(hookContext, err)
		return nil, err
	}
	resp, err = g.do(ctx, req)
	if err != nil {
		g.hooks.RunErrorHooks(hookContext, err)
		return resp, err
	}
	// An after hook failure is reported to the error hooks only; the
	// request itself succeeded.
	if afterErr := g.hooks.RunAfterHooks(hookContext, resp); afterErr != nil {
		g.hooks.RunErrorHooks(hookContext, afterErr)
	}
	return resp, nil
}

func (g *Gateway) do(ctx context.Context, req *Request) (*Response, error) {
	if req.id == "" {
		req.id = uuid.New().String()
	}
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	resp, err := g.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}

	if isAuthFailure(resp.StatusCode) && !g.isExempt(req) && !req.retried {
		req.retried = true
		util.Debugf("Gateway - %s %s returned %d, recovering session", req.Method, req.Path, resp.StatusCode)
		return g.recoverSession(ctx, req)
	}

	return resp, handleError(resp)
}

// Get sends a GET. Identical GETs in flight at the same time share one round
// trip; each caller still stops waiting when its own ctx is done.
func (g *Gateway) Get(ctx context.Context, path string) (*Response, error) {
	results := g.dedupe.DoChan(path, func() (interface{}, error) {
		// The shared call must not inherit the cancellation of whichever
		// caller started it. Its budget covers an attempt, a refresh and a replay.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*g.options.RequestTimeout)
		defer cancel()
		return g.Do(shared, NewRequest(http.MethodGet, path, nil))
	})
	select {
	case res := <-results:
		if res.Shared {
			util.Debugf("Gateway - deduplicated GET %s", path)
		}
		resp, _ := res.Val.(*Response)
		return resp, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gateway) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return g.Do(ctx, NewRequest(http.MethodPost, path, body))
}

func (g *Gateway) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return g.Do(ctx, NewRequest(http.MethodPut, path, body))
}

func (g *Gateway) Delete(ctx context.Context, path string) (*Response, error) {
	return g.Do(ctx, NewRequest(http.MethodDelete, path, nil))
}

func (g *Gateway) recoverSession(ctx context.Context, req *Request) (*Response, error) {
	g.mu.Lock()
	if g.refreshing {
		wait := make(chan error, 1)
		g.waiters = append(g.waiters, wait)
		g.mu.Unlock()

		select {
		case err := <-wait:
			if err != nil {
				return nil, err
			}
			return g.do(ctx, req)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	// The refresh is shared, so it must outlive the caller that happened to start it.
	refreshErr := g.refresh(context.WithoutCancel(ctx))

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	for _, wait := range waiters {
		wait <- refreshErr
	}

	if refreshErr != nil {
		g.invalidateSession(ctx, req, refreshErr)
		return nil, refreshErr
	}
	publishClientEvent(g.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_SessionRefreshed,
		Status:    "success",
	})
	return g.do(ctx, req)
}

func (g *Gateway) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.options.RequestTimeout)
	defer cancel()

	req := &Request{
		Method: http.MethodPost,
		Path:   g.options.RefreshPath,
		Exempt: true,
		id:     uuid.New().String(),
	}
	resp, err := g.send(ctx, req)
	if err != nil {
		return &RefreshError{Err: err}
	}
	if resp.StatusCode >= 300 {
		return &RefreshError{Err: handleError(resp)}
	}
	util.Infof("Gateway - session refreshed")
	return nil
}

// invalidateSession clears the cached profile and sends the user back to
// sign in. The startup verification call is the exception: its caller
// decides what an unauthenticated start looks like.
func (g *Gateway) invalidateSession(ctx context.Context, req *Request, cause error) {
	if err := g.store.Clear(context.WithoutCancel(ctx)); err != nil {
		util.Warnf("Gateway - failed to clear session cache: %s", err)
	}
	publishClientEvent(g.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_SessionExpired,
		EventData: req.Path,
		Status:    "failure",
		Error:     cause,
	})

	if g.isVerify(req) {
		util.Debugf("Gateway - refresh failed during session verification, not redirecting")
		return
	}
	util.Warnf("Gateway - session expired: %s", cause)
	publishClientEvent(g.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_Unauthenticated,
		Status:    "failure",
		Error:     cause,
	})
	if g.options.OnUnauthenticated != nil {
		g.options.OnUnauthenticated()
	}
}

// send performs a single round trip. Transport failures on idempotent
// methods are retried when MaxTransportRetries is set; HTTP statuses never are.
func (g *Gateway) send(ctx context.Context, req *Request) (*Response, error) {
	maxRetries := 0
	if isIdempotent(req.Method) {
		maxRetries = g.options.MaxTransportRetries
	}

	var response *Response
	var lastErr error
	// This retrying lib works by retrying as long as the bool is true and err is not nil
	// the attempt param is auto-incremented
	err := try.Do(func(attempt int) (bool, error) {
		httpRequest, err := g.prepareRequest(req)
		// Don't retry if theres an error preparing the request
		if err != nil {
			return false, err
		}
		httpResponse, err := g.cfg.HTTPClient.Do(httpRequest.WithContext(ctx))
		if err == nil {
			response, err = newResponse(httpResponse)
		}
		if err == nil {
			return false, nil
		}

		lastErr = err
		retry := attempt <= maxRetries && ctx.Err() == nil
		if retry {
			util.Debugf("Gateway - %s %s failed (attempt %d): %s", req.Method, req.Path, attempt, err)
			select {
			case <-time.After(transportBackoff(attempt)):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
		return retry, err
	})
	if try.IsMaxRetries(err) {
		err = fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
	}
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (g *Gateway) isExempt(req *Request) bool {
	if req.Exempt {
		return true
	}
	return matchesAnyPath(req.pathOnly(), g.options.ExemptPaths)
}

func (g *Gateway) isVerify(req *Request) bool {
	return matchesAnyPath(req.pathOnly(), []string{g.options.VerifyPath})
}

// pendingWaiters is the number of requests parked on the current refresh.
func (g *Gateway) pendingWaiters() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

func matchesAnyPath(path string, candidates []string) bool {
	for _, candidate := range candidates {
		if path == candidate || strings.HasPrefix(path, strings.TrimSuffix(candidate, "/")+"/") {
			return true
		}
	}
	return false
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
