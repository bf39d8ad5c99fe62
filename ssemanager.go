package shutterdeck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/util"
)

var (
	ErrStreamRetriesExhausted = errors.New("event stream retries exhausted")
	errStreamClosed           = errors.New("event stream closed by server")
)

type StreamState string

const (
	StreamState_Disconnected   StreamState = "disconnected"
	StreamState_Connecting     StreamState = "connecting"
	StreamState_Connected      StreamState = "connected"
	StreamState_RetryScheduled StreamState = "retryScheduled"
	StreamState_Exhausted      StreamState = "exhausted"
)

type stopper interface {
	Stop() bool
}

// EventStream keeps one server-push connection alive and routes its events
// to the latest registered handlers.
type EventStream struct {
	options   *Options
	url       string
	transport streamTransport
	afterFunc func(d time.Duration, f func()) stopper

	handlers atomic.Pointer[EventHandlers]

	// mu guards everything below. A handle is always closed and cleared before
	// a retry is armed, so two handles never coexist. mu is never held while
	// the transport dials.
	mu         sync.Mutex
	conn       streamHandle
	connecting bool
	cancelOpen context.CancelFunc
	openErr    error
	generation uint64
	retryTimer stopper
	timerSeq   uint64
	retryCount int
	exhausted  bool

	Connected atomic.Bool
}

func NewEventStream(options *Options, cfg *HTTPConfiguration, handlers EventHandlers) (*EventStream, error) {
	if options == nil {
		return nil, fmt.Errorf("SSE - Options cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("SSE - HTTPConfiguration cannot be nil")
	}
	s := &EventStream{
		options:   options,
		url:       cfg.url(options.EventsPath),
		transport: &eventsourceTransport{cfg: cfg, options: options},
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	s.SetHandlers(handlers)
	return s, nil
}

// SetHandlers swaps the callbacks used for every subsequent event. It never
// touches the live connection or its retry state.
func (s *EventStream) SetHandlers(handlers EventHandlers) {
	h := handlers
	s.handlers.Store(&h)
}

// Connect opens the stream unless one is already open or opening. A pending
// retry is cancelled and replaced by an immediate attempt.
func (s *EventStream) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil || s.connecting {
		return
	}
	s.cancelRetryLocked()
	if s.options.resetRetriesOnConnect() {
		s.retryCount = 0
	}
	s.exhausted = false
	s.openLocked()
}

// Disconnect tears the stream down and cancels any pending retry or in-flight
// open. It is safe to call repeatedly and on a stream that never connected.
func (s *EventStream) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelRetryLocked()
	wasOpen := s.closeLocked()
	if wasOpen {
		util.Infof("SSE - disconnected")
		publishClientEvent(s.options.ClientEventHandler, api.ClientEvent{
			EventType: api.ClientEventType_StreamDisconnected,
			EventData: s.url,
			Status:    "info",
		})
	}
}

func (s *EventStream) IsConnected() bool {
	return s.Connected.Load()
}

func (s *EventStream) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

func (s *EventStream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.conn != nil:
		return StreamState_Connected
	case s.connecting:
		return StreamState_Connecting
	case s.retryTimer != nil:
		return StreamState_RetryScheduled
	case s.exhausted:
		return StreamState_Exhausted
	}
	return StreamState_Disconnected
}

// openLocked makes one connection attempt. s.mu is released while the
// transport dials and held again when openLocked returns.
func (s *EventStream) openLocked() {
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.connecting = true
	s.cancelOpen = cancel
	s.openErr = nil
	listener := streamListener{
		onMessage: func(data string) { s.handleMessage(gen, data) },
		onError:   func(err error) { s.handleError(gen, err) },
	}

	s.mu.Unlock()
	conn, err := s.transport.Open(ctx, s.url, listener)
	s.mu.Lock()

	if gen != s.generation {
		// Disconnect ran while dialing.
		cancel()
		if conn != nil {
			conn.Close()
		}
		return
	}
	s.connecting = false
	if err == nil && s.openErr != nil {
		conn.Close()
		err = s.openErr
	}
	s.openErr = nil
	if err != nil {
		cancel()
		s.cancelOpen = nil
		util.Warnf("SSE - Error connecting to %s: %v", s.url, err)
		s.scheduleRetryLocked(err)
		return
	}

	s.conn = conn
	s.retryCount = 0
	s.exhausted = false
	s.Connected.Store(true)
	util.Infof("SSE - connected to %s", s.url)
	publishClientEvent(s.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_StreamConnected,
		EventData: "Connected to SSE stream: " + s.url,
		Status:    "success",
	})
}

// closeLocked drops the current handle and invalidates its callbacks.
func (s *EventStream) closeLocked() bool {
	s.generation++
	s.Connected.Store(false)
	s.connecting = false
	s.openErr = nil
	if s.cancelOpen != nil {
		s.cancelOpen()
		s.cancelOpen = nil
	}
	if s.conn == nil {
		return false
	}
	s.conn.Close()
	s.conn = nil
	return true
}

func (s *EventStream) cancelRetryLocked() {
	s.timerSeq++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

func (s *EventStream) handleError(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.connecting {
		// The stream died before openLocked committed it.
		if s.openErr == nil {
			s.openErr = err
		}
		s.mu.Unlock()
		return
	}
	if s.conn == nil {
		s.mu.Unlock()
		return
	}
	util.Warnf("SSE - stream error: %v", err)
	s.closeLocked()
	s.scheduleRetryLocked(err)
	s.mu.Unlock()
}

// scheduleRetryLocked arms the backoff timer, or gives up once the retry
// budget is spent.
func (s *EventStream) scheduleRetryLocked(cause error) {
	if s.retryCount >= s.options.maxStreamRetries() {
		s.exhausted = true
		util.Warnf("SSE - giving up after %d retries", s.retryCount)
		exhaustedErr := fmt.Errorf("%w: %v", ErrStreamRetriesExhausted, cause)
		publishClientEvent(s.options.ClientEventHandler, api.ClientEvent{
			EventType: api.ClientEventType_StreamExhausted,
			EventData: s.retryCount,
			Status:    "failure",
			Error:     exhaustedErr,
		})
		if handlers := s.handlers.Load(); handlers != nil && handlers.OnError != nil {
			go handlers.OnError(exhaustedErr)
		}
		return
	}

	delay := retryDelay(s.options.StreamRetryBaseDelay, s.options.StreamRetryMaxDelay, s.retryCount)
	s.retryCount++
	s.timerSeq++
	seq := s.timerSeq
	util.Debugf("SSE - retry %d/%d in %s", s.retryCount, s.options.maxStreamRetries(), delay)
	publishClientEvent(s.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_StreamRetryScheduled,
		EventData: delay,
		Status:    "info",
		Error:     cause,
	})
	s.retryTimer = s.afterFunc(delay, func() { s.retryFired(seq) })
}

func (s *EventStream) retryFired(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A timer that lost the race with Disconnect or Connect is stale.
	if seq != s.timerSeq || s.retryTimer == nil {
		return
	}
	s.retryTimer = nil
	if s.conn != nil {
		return
	}
	s.openLocked()
}

func (s *EventStream) handleMessage(gen uint64, data string) {
	s.mu.Lock()
	current := gen == s.generation && (s.conn != nil || s.connecting)
	s.mu.Unlock()
	if !current {
		return
	}
	publishClientEvent(s.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_RealtimeUpdate,
		EventData: data,
		Status:    "info",
	})
	dispatch(s.handlers.Load(), data)
}

// publishClientEvent never blocks; a full or nil channel drops the event.
func publishClientEvent(ch chan api.ClientEvent, event api.ClientEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		util.Debugf("dropping client event %s: handler channel full", event.EventType)
	}
}
