package shutterdeck

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"

	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/util"
)

const VERSION = "1.4.0"

var validate = validator.New()

// NoStreamRetries disables automatic reconnection when set as
// Options.StreamMaxRetries; a dropped stream stays down until Connect.
const NoStreamRetries = -1

var defaultExemptPaths = []string{
	"/auth/login",
	"/auth/logout",
	"/auth/refresh",
	"/auth/register",
}

type Options struct {
	APIBaseURI  string   `json:"apiBaseUri" yaml:"api_base_uri" validate:"required,url"`
	EventsPath  string   `json:"eventsPath,omitempty" yaml:"events_path" validate:"startswith=/"`
	RefreshPath string   `json:"refreshPath,omitempty" yaml:"refresh_path" validate:"startswith=/"`
	VerifyPath  string   `json:"verifyPath,omitempty" yaml:"verify_path" validate:"startswith=/"`
	LoginPath   string   `json:"loginPath,omitempty" yaml:"login_path" validate:"startswith=/"`
	LogoutPath  string   `json:"logoutPath,omitempty" yaml:"logout_path" validate:"startswith=/"`
	// ExemptPaths never trigger a session refresh. The defaults leave out
	// VerifyPath: a 401 from verify still refreshes, and only the startup
	// verify skips OnUnauthenticated when that refresh fails. Append VerifyPath
	// to make verify fully exempt.
	ExemptPaths []string `json:"exemptPaths,omitempty" yaml:"exempt_paths" validate:"dive,startswith=/"`

	RequestTimeout      time.Duration `json:"requestTimeout,omitempty" yaml:"request_timeout"`
	MaxTransportRetries int           `json:"maxTransportRetries,omitempty" yaml:"max_transport_retries" validate:"gte=0,lte=9"`

	StreamRetryBaseDelay time.Duration `json:"streamRetryBaseDelay,omitempty" yaml:"stream_retry_base_delay"`
	StreamRetryMaxDelay  time.Duration `json:"streamRetryMaxDelay,omitempty" yaml:"stream_retry_max_delay"`
	// StreamMaxRetries of zero means the default of 5. NoStreamRetries turns
	// automatic reconnection off.
	StreamMaxRetries     int           `json:"streamMaxRetries,omitempty" yaml:"stream_max_retries" validate:"gte=-1"`
	StreamReadTimeout    time.Duration `json:"streamReadTimeout,omitempty" yaml:"stream_read_timeout"`
	// ResetRetriesOnConnect controls whether an explicit Connect call zeroes the
	// retry counter. When false only a successful open resets it. Nil means true.
	ResetRetriesOnConnect  *bool `json:"resetRetriesOnConnect,omitempty" yaml:"reset_retries_on_connect"`
	DisableRealtimeUpdates bool  `json:"disableRealtimeUpdates,omitempty" yaml:"disable_realtime_updates"`

	SessionStorePath string `json:"sessionStorePath,omitempty" yaml:"session_store_path"`
	LogLevel         string `json:"logLevel,omitempty" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// OnUnauthenticated is invoked when the session cannot be recovered and the
	// user has to sign in again.
	OnUnauthenticated  func()               `json:"-" yaml:"-" validate:"-"`
	ClientEventHandler chan api.ClientEvent `json:"-" yaml:"-" validate:"-"`
	Logger             util.Logger          `json:"-" yaml:"-" validate:"-"`
	RequestHooks       []*RequestHook       `json:"-" yaml:"-" validate:"-"`
	// HTTPClient overrides the client used for plain requests. Its Jar carries
	// the session cookie; one is created when nil.
	HTTPClient *http.Client `json:"-" yaml:"-" validate:"-"`
}

func (o *Options) CheckDefaults() {
	o.APIBaseURI = strings.TrimSuffix(o.APIBaseURI, "/")
	if o.APIBaseURI == "" {
		o.APIBaseURI = "http://localhost:3001/api"
	}
	if o.EventsPath == "" {
		o.EventsPath = "/events"
	}
	if o.RefreshPath == "" {
		o.RefreshPath = "/auth/refresh"
	}
	if o.VerifyPath == "" {
		o.VerifyPath = "/auth/verify"
	}
	if o.LoginPath == "" {
		o.LoginPath = "/auth/login"
	}
	if o.LogoutPath == "" {
		o.LogoutPath = "/auth/logout"
	}
	if o.ExemptPaths == nil {
		o.ExemptPaths = append([]string(nil), defaultExemptPaths...)
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = time.Second * 30
	} else if o.RequestTimeout < time.Second {
		util.Warnf("RequestTimeout cannot be less than 1 second. Defaulting to 1 second.")
		o.RequestTimeout = time.Second
	}

	if o.StreamRetryBaseDelay <= 0 {
		o.StreamRetryBaseDelay = time.Second
	}
	if o.StreamRetryMaxDelay <= 0 {
		o.StreamRetryMaxDelay = time.Second * 30
	}
	if o.StreamRetryMaxDelay < o.StreamRetryBaseDelay {
		util.Warnf("StreamRetryMaxDelay cannot be less than StreamRetryBaseDelay. Using %s.", o.StreamRetryBaseDelay)
		o.StreamRetryMaxDelay = o.StreamRetryBaseDelay
	}
	if o.StreamMaxRetries == 0 {
		o.StreamMaxRetries = 5
	} else if o.StreamMaxRetries < 0 {
		o.StreamMaxRetries = NoStreamRetries
	}
	if o.ResetRetriesOnConnect == nil {
		reset := true
		o.ResetRetriesOnConnect = &reset
	}
}

func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func (o *Options) maxStreamRetries() int {
	if o.StreamMaxRetries < 0 {
		return 0
	}
	return o.StreamMaxRetries
}

func (o *Options) resetRetriesOnConnect() bool {
	return o.ResetRetriesOnConnect == nil || *o.ResetRetriesOnConnect
}

// LoadOptionsFile reads YAML options from path. Callback and channel fields
// can only be set in code.
func LoadOptionsFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	options := &Options{}
	if err := yaml.Unmarshal(data, options); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return options, nil
}

type HTTPConfiguration struct {
	BasePath      string            `json:"basePath,omitempty"`
	DefaultHeader map[string]string `json:"defaultHeader,omitempty"`
	UserAgent     string            `json:"userAgent,omitempty"`
	PlatformData  api.PlatformData  `json:"platformData"`
	HTTPClient    *http.Client
	// StreamClient shares the cookie jar but has no overall timeout, which
	// would otherwise cut long-lived event streams.
	StreamClient *http.Client
}

func NewConfiguration(options *Options) (*HTTPConfiguration, error) {
	httpClient := options.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{
			// Set an explicit timeout so that we don't wait forever on a request
			Timeout: options.RequestTimeout,
			Jar:     jar,
		}
	}
	streamClient := &http.Client{
		Transport: httpClient.Transport,
		Jar:       httpClient.Jar,
	}

	platform := (&api.PlatformData{}).Default(VERSION)
	cfg := &HTTPConfiguration{
		BasePath:      options.APIBaseURI,
		DefaultHeader: make(map[string]string),
		UserAgent:     platform.UserAgent("Shutterdeck-Go-Client"),
		PlatformData:  *platform,
		HTTPClient:    httpClient,
		StreamClient:  streamClient,
	}
	return cfg, nil
}

func (c *HTTPConfiguration) AddDefaultHeader(key string, value string) {
	c.DefaultHeader[key] = value
}

func (c *HTTPConfiguration) url(path string) string {
	return c.BasePath + path
}
