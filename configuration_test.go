package shutterdeck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_CheckDefaults(t *testing.T) {
	options := &Options{}
	options.CheckDefaults()

	require.Equal(t, "http://localhost:3001/api", options.APIBaseURI)
	require.Equal(t, "/events", options.EventsPath)
	require.Equal(t, "/auth/refresh", options.RefreshPath)
	require.Equal(t, "/auth/verify", options.VerifyPath)
	require.Equal(t, []string{"/auth/login", "/auth/logout", "/auth/refresh", "/auth/register"}, options.ExemptPaths)
	require.Equal(t, 30*time.Second, options.RequestTimeout)
	require.Equal(t, time.Second, options.StreamRetryBaseDelay)
	require.Equal(t, 30*time.Second, options.StreamRetryMaxDelay)
	require.Equal(t, 5, options.StreamMaxRetries)
	require.True(t, options.resetRetriesOnConnect())
	require.NoError(t, options.Validate())

	// Defaults must not alias the shared list.
	options.ExemptPaths[0] = "/changed"
	require.Equal(t, "/auth/login", defaultExemptPaths[0])
}

func TestOptions_CheckDefaults_ClampsValues(t *testing.T) {
	keep := false
	options := &Options{
		APIBaseURI:            "https://studio.example.com/api/",
		RequestTimeout:        time.Millisecond,
		StreamRetryBaseDelay:  5 * time.Second,
		StreamRetryMaxDelay:   time.Second,
		ResetRetriesOnConnect: &keep,
		ExemptPaths:           []string{},
	}
	options.CheckDefaults()

	require.Equal(t, "https://studio.example.com/api", options.APIBaseURI)
	require.Equal(t, time.Second, options.RequestTimeout)
	require.Equal(t, 5*time.Second, options.StreamRetryMaxDelay)
	require.False(t, options.resetRetriesOnConnect())
	require.Empty(t, options.ExemptPaths)
}

func TestOptions_CheckDefaults_StreamMaxRetries(t *testing.T) {
	for _, tc := range []struct {
		set, want, effective int
	}{
		{set: 0, want: 5, effective: 5},
		{set: 3, want: 3, effective: 3},
		{set: NoStreamRetries, want: NoStreamRetries, effective: 0},
		{set: -7, want: NoStreamRetries, effective: 0},
	} {
		options := &Options{StreamMaxRetries: tc.set}
		options.CheckDefaults()
		require.Equal(t, tc.want, options.StreamMaxRetries)
		require.Equal(t, tc.effective, options.maxStreamRetries())
		require.NoError(t, options.Validate())
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"relative base uri", func(o *Options) { o.APIBaseURI = "api/v1" }},
		{"path without slash", func(o *Options) { o.RefreshPath = "auth/refresh" }},
		{"exempt path without slash", func(o *Options) { o.ExemptPaths = []string{"auth/login"} }},
		{"too many transport retries", func(o *Options) { o.MaxTransportRetries = 10 }},
		{"negative transport retries", func(o *Options) { o.MaxTransportRetries = -1 }},
		{"unknown log level", func(o *Options) { o.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := newTestOptions()
			tt.modify(options)
			require.Error(t, options.Validate())
		})
	}

	options := newTestOptions()
	options.LogLevel = "warn"
	options.MaxTransportRetries = 9
	options.OnUnauthenticated = func() {}
	require.NoError(t, options.Validate())
}

func TestLoadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shutterdeck.yaml")
	fatalErr(t, os.WriteFile(path, []byte(`
api_base_uri: https://studio.example.com/api
events_path: /realtime
exempt_paths:
  - /auth/login
  - /auth/verify
request_timeout: 10s
max_transport_retries: 2
stream_retry_base_delay: 500ms
stream_retry_max_delay: 1m
stream_max_retries: 8
reset_retries_on_connect: false
log_level: debug
`), 0o600))

	options, err := LoadOptionsFile(path)
	require.NoError(t, err)
	options.CheckDefaults()
	require.NoError(t, options.Validate())

	require.Equal(t, "https://studio.example.com/api", options.APIBaseURI)
	require.Equal(t, "/realtime", options.EventsPath)
	require.Equal(t, "/auth/refresh", options.RefreshPath)
	require.Equal(t, []string{"/auth/login", "/auth/verify"}, options.ExemptPaths)
	require.Equal(t, 10*time.Second, options.RequestTimeout)
	require.Equal(t, 2, options.MaxTransportRetries)
	require.Equal(t, 500*time.Millisecond, options.StreamRetryBaseDelay)
	require.Equal(t, time.Minute, options.StreamRetryMaxDelay)
	require.Equal(t, 8, options.StreamMaxRetries)
	require.False(t, options.resetRetriesOnConnect())
	require.Equal(t, "debug", options.LogLevel)
}

func TestLoadOptionsFile_Errors(t *testing.T) {
	_, err := LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	fatalErr(t, os.WriteFile(path, []byte("request_timeout: [nope"), 0o600))
	_, err = LoadOptionsFile(path)
	require.Error(t, err)
}

func TestNewConfiguration(t *testing.T) {
	options := newTestOptions()
	cfg, err := NewConfiguration(options)
	require.NoError(t, err)

	require.Equal(t, test_baseURI+"/photos", cfg.url("/photos"))
	require.True(t, strings.HasPrefix(cfg.UserAgent, "Shutterdeck-Go-Client/"+VERSION+" (Go go"), cfg.UserAgent)
	require.Equal(t, VERSION, cfg.PlatformData.SdkVersion)
	require.Equal(t, "client", cfg.PlatformData.SdkType)
	require.NotNil(t, cfg.HTTPClient.Jar)
	require.Equal(t, options.RequestTimeout, cfg.HTTPClient.Timeout)
	require.Same(t, cfg.HTTPClient.Jar, cfg.StreamClient.Jar)
	require.Zero(t, cfg.StreamClient.Timeout)

	cfg.AddDefaultHeader("X-Studio", "north")
	require.Equal(t, "north", cfg.DefaultHeader["X-Studio"])
}
