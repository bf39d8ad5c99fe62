package shutterdeck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/session"
	"github.com/shutterdeck/go-client-sdk/util"
)

// Client
// In most cases there should be only one, shared, Client per signed-in user:
// it owns the only event stream connection for that user.
type Client struct {
	options *Options
	cfg     *HTTPConfiguration
	gateway *Gateway
	stream  *EventStream
	hub     *EventHub
	store   session.Store
	closed  atomic.Bool
}

func NewClient(options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}

	if options.Logger != nil {
		util.SetLogger(options.Logger)
	} else if options.LogLevel != "" {
		util.SetLogger(util.NewDefaultLogger(util.ParseLevel(options.LogLevel)))
	}

	cfg, err := NewConfiguration(options)
	if err != nil {
		return nil, err
	}

	var store session.Store
	if options.SessionStorePath != "" {
		store, err = session.OpenSQLite(context.Background(), options.SessionStorePath)
		if err != nil {
			return nil, err
		}
	} else {
		store = session.NewMemoryStore()
	}

	c := &Client{
		options: options,
		cfg:     cfg,
		store:   store,
		hub:     NewEventHub(),
	}
	c.gateway, err = NewGateway(options, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !options.DisableRealtimeUpdates {
		c.stream, err = NewEventStream(options, cfg, c.hub.Handlers())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) Gateway() *Gateway {
	return c.gateway
}

// Bootstrap re-validates the cached session with the server at startup. On
// an answered failure the cache is cleared and ErrUnauthenticated returned;
// no navigation callback fires for this call.
func (c *Client) Bootstrap(ctx context.Context) (*api.UserProfile, error) {
	resp, err := c.gateway.Do(ctx, NewRequest(http.MethodGet, c.options.VerifyPath, nil))
	if err != nil {
		if StatusCode(err) != 0 || errors.Is(err, ErrRefreshFailed) {
			c.forgetSession(ctx)
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return nil, err
	}

	var auth api.AuthResponse
	if err := resp.Decode(&auth); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if auth.User == nil {
		c.forgetSession(ctx)
		return nil, ErrUnauthenticated
	}
	if err := c.rememberSession(ctx, auth); err != nil {
		return nil, err
	}
	return auth.User, nil
}

func (c *Client) Login(ctx context.Context, credentials api.Credentials) (*api.AuthResponse, error) {
	if err := validate.Struct(credentials); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	resp, err := c.gateway.Do(ctx, NewRequest(http.MethodPost, c.options.LoginPath, &credentials))
	if err != nil {
		return nil, err
	}
	var auth api.AuthResponse
	if err := resp.Decode(&auth); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if auth.User == nil {
		return nil, fmt.Errorf("login response has no user")
	}
	if err := c.rememberSession(ctx, auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Logout ends the server session and always clears the local cache, even
// when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	c.Disconnect()
	_, err := c.gateway.Do(ctx, NewRequest(http.MethodPost, c.options.LogoutPath, nil))
	c.forgetSession(ctx)
	return err
}

func (c *Client) Profile(ctx context.Context) (*api.UserProfile, error) {
	return c.store.Profile(ctx)
}

func (c *Client) MustChangePassword(ctx context.Context) (bool, error) {
	return c.store.MustChangePassword(ctx)
}

// Subscribe adds an independent set of handlers to the shared event stream.
func (c *Client) Subscribe(handlers EventHandlers) (unsubscribe func()) {
	return c.hub.Subscribe(handlers)
}

func (c *Client) Connect() {
	if c.stream == nil || c.closed.Load() {
		return
	}
	c.stream.Connect()
}

func (c *Client) Disconnect() {
	if c.stream == nil {
		return
	}
	c.stream.Disconnect()
}

func (c *Client) IsConnected() bool {
	return c.stream != nil && c.stream.IsConnected()
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.Disconnect()
	return c.store.Close()
}

func (c *Client) rememberSession(ctx context.Context, auth api.AuthResponse) error {
	if err := c.store.SaveProfile(ctx, *auth.User); err != nil {
		return err
	}
	return c.store.SetMustChangePassword(ctx, auth.MustChangePassword)
}

func (c *Client) forgetSession(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		util.Warnf("failed to clear session cache: %s", err)
	}
}
