package shutterdeck

import (
	"context"
	"net/http"
	"sync"

	"github.com/launchdarkly/eventsource"

	"github.com/shutterdeck/go-client-sdk/util"
)

// streamListener receives what a single open stream produces. onError is
// called at most once per stream; after it the stream is dead.
type streamListener struct {
	onMessage func(data string)
	onError   func(err error)
}

type streamHandle interface {
	Close()
}

// streamTransport opens one server-push connection. Open returns only once the
// server accepted the stream, which is what counts as a successful open.
// Cancelling ctx abandons the attempt and tears down the stream it opened.
type streamTransport interface {
	Open(ctx context.Context, url string, listener streamListener) (streamHandle, error)
}

type eventsourceTransport struct {
	cfg     *HTTPConfiguration
	options *Options
}

type eventsourceHandle struct {
	stream    *eventsource.Stream
	done      chan struct{}
	closeOnce sync.Once
}

func (h *eventsourceHandle) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		// Close wraps `close` and is safe to call in threads
		h.stream.Close()
	})
}

func (t *eventsourceTransport) Open(ctx context.Context, url string, listener streamListener) (streamHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", t.cfg.UserAgent)
	for header, value := range t.cfg.DefaultHeader {
		req.Header.Add(header, value)
	}

	var reportOnce sync.Once
	report := func(err error) {
		reportOnce.Do(func() {
			// Never call back into the owner from the library's goroutine while
			// it may still be inside Subscribe.
			go listener.onError(err)
		})
	}

	streamOptions := []eventsource.StreamOption{
		eventsource.StreamOptionHTTPClient(t.cfg.StreamClient),
		eventsource.StreamOptionLogger(streamLogger{}),
		eventsource.StreamOptionInitialRetry(t.options.StreamRetryBaseDelay),
		// Reconnection is owned by EventStream; the library must give up on the
		// first error instead of retrying on its own schedule.
		eventsource.StreamOptionErrorHandler(func(err error) eventsource.StreamErrorHandlerResult {
			util.Debugf("SSE - Error: %v", err)
			report(err)
			return eventsource.StreamErrorHandlerResult{CloseNow: true}
		}),
	}
	if t.options.StreamReadTimeout > 0 {
		streamOptions = append(streamOptions, eventsource.StreamOptionReadTimeout(t.options.StreamReadTimeout))
	}

	stream, err := eventsource.SubscribeWithRequestAndOptions(req, streamOptions...)
	if err != nil {
		return nil, err
	}

	handle := &eventsourceHandle{stream: stream, done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-handle.done:
				return
			case event, ok := <-stream.Events:
				if !ok {
					report(errStreamClosed)
					return
				}
				listener.onMessage(event.Data())
			}
		}
	}()
	return handle, nil
}

type streamLogger struct{}

func (streamLogger) Println(v ...interface{}) {
	util.Debugf("SSE - %v", v)
}

func (streamLogger) Printf(format string, v ...interface{}) {
	util.Debugf("SSE - "+format, v...)
}
