package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	shutterdeck "github.com/shutterdeck/go-client-sdk"
	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/util"
)

const test_profile = `{"user":{"id":"u_1","email":"mara@studio.test","name":"Mara","role":"photographer","studioName":"North Light"},"mustChangePassword":false}`

func init() {
	util.SetLogger(util.DiscardLogger{})
}

// lockedBuffer lets the test read output while handler goroutines write it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "sd_session", Value: "ok", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(test_profile))
		})
		r.Get("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("sd_session"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(test_profile))
		})
		r.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		r.Get("/collections", func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("sd_session"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"c1","name":"Wedding"}]`))
		})
		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			for _, data := range []string{
				`{"type":"connected"}`,
				`{"type":"collection.updated","data":{"id":"c1"}}`,
				`{"type":"unknown.thing"}`,
			} {
				_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			}
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, ctx context.Context, out *lockedBuffer, args ...string) error {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func TestRequestCommand(t *testing.T) {
	srv := newBackend(t)
	t.Setenv("SHUTTERDECK_PASSWORD", "hunter22")

	out := &lockedBuffer{}
	err := run(t, context.Background(), out, "request", "GET", "collections", "--api", srv.URL+"/api", "--email", "mara@studio.test")
	require.NoError(t, err)
	require.Contains(t, out.String(), "Mara")
	require.Contains(t, out.String(), `"name":"Wedding"`)
}

func TestRequestCommand_Verbose(t *testing.T) {
	srv := newBackend(t)

	out := &lockedBuffer{}
	err := run(t, context.Background(), out, "request", "GET", "/collections", "-v", "--api", srv.URL+"/api")
	require.Error(t, err)
	require.Contains(t, out.String(), "GET /collections [")
}

func TestRequestCommand_Unauthenticated(t *testing.T) {
	srv := newBackend(t)

	out := &lockedBuffer{}
	err := run(t, context.Background(), out, "request", "GET", "/collections", "--api", srv.URL+"/api")
	require.ErrorIs(t, err, shutterdeck.ErrRefreshFailed)
}

func TestVerifyAndSessionCommands(t *testing.T) {
	srv := newBackend(t)
	t.Setenv("SHUTTERDECK_PASSWORD", "hunter22")
	db := filepath.Join(t.TempDir(), "session.db")

	out := &lockedBuffer{}
	err := run(t, context.Background(), out, "verify", "--api", srv.URL+"/api", "--session-db", db, "--email", "mara@studio.test")
	require.NoError(t, err)
	require.Contains(t, out.String(), "North Light")

	out = &lockedBuffer{}
	require.NoError(t, run(t, context.Background(), out, "session", "--session-db", db))
	require.Contains(t, out.String(), "mara@studio.test")

	// Without a cookie the verify call fails and the cached profile is dropped.
	out = &lockedBuffer{}
	err = run(t, context.Background(), out, "verify", "--api", srv.URL+"/api", "--session-db", db)
	require.ErrorIs(t, err, shutterdeck.ErrUnauthenticated)

	out = &lockedBuffer{}
	require.NoError(t, run(t, context.Background(), out, "session", "--session-db", db))
	require.Contains(t, out.String(), "no cached session")
}

func TestSessionCommand_RequiresStore(t *testing.T) {
	err := run(t, context.Background(), &lockedBuffer{}, "session")
	require.ErrorContains(t, err, "--session-db")
}

func TestEventsCommand(t *testing.T) {
	srv := newBackend(t)
	t.Setenv("SHUTTERDECK_PASSWORD", "hunter22")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(t, ctx, out, "events", "--api", srv.URL+"/api", "--email", "mara@studio.test",
			"--refetch", "/collections", "--debounce", "20ms")
	}()

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "collection.updated") && strings.Contains(s, "refetched /collections: 200")
	}, 5*time.Second, 20*time.Millisecond)
	require.NotContains(t, out.String(), "unknown.thing")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("events command did not stop")
	}
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest("post", "collections", `{"name":"Wedding"}`, []string{"X-Studio: north"})
	require.NoError(t, err)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, "/collections", req.Path)
	require.Equal(t, "north", req.Header.Get("X-Studio"))
	require.Equal(t, "application/json", req.Header.Get("Content-Type"))

	_, err = buildRequest("POST", "/collections", `{"name":`, nil)
	require.Error(t, err)
	_, err = buildRequest("GET", "/collections", "", []string{"no-colon"})
	require.Error(t, err)
}

func TestRenderEnvelope(t *testing.T) {
	line := renderEnvelope(api.Envelope{
		Type:      api.EventType_PhotoUploaded,
		Data:      []byte(`{"id": "p1",   "collectionId": "c1"}`),
		Timestamp: float64(time.Date(2024, 4, 11, 16, 35, 34, 0, time.Local).UnixMilli()),
	})
	require.Contains(t, line, "16:35:34")
	require.Contains(t, line, "photo.uploaded")
	require.Contains(t, line, `{"id": "p1", "collectionId": "c1"}`)

	long := preview(strings.Repeat("x", 200))
	require.Equal(t, maxPayloadPreview-1+len("…"), len(long))
}
