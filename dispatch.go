package shutterdeck

import (
	"strings"

	"github.com/shutterdeck/go-client-sdk/api"
	"github.com/shutterdeck/go-client-sdk/util"
)

// EventHandlers is the set of callbacks a subscriber registers. Nil
// handlers are skipped.
type EventHandlers struct {
	OnPhotoEvent      func(api.Envelope)
	OnCollectionEvent func(api.Envelope)
	OnClientEvent     func(api.Envelope)
	OnGuestEvent      func(api.Envelope)
	OnConnected       func()
	// OnError is called once when reconnection gives up.
	OnError func(error)
}

type route int

const (
	routeNone route = iota
	routeConnected
	routePing
	routePhoto
	routeCollection
	routeClient
	routeGuest
)

// classify applies the routing rules in order; the first match wins.
func classify(eventType string) route {
	switch {
	case eventType == api.EventType_Connected:
		return routeConnected
	case eventType == api.EventType_Ping:
		return routePing
	case strings.HasPrefix(eventType, api.EventCategory_Photo+"."):
		return routePhoto
	case strings.HasPrefix(eventType, api.EventCategory_Collection+"."):
		return routeCollection
	case strings.HasPrefix(eventType, api.EventCategory_Client+"."):
		return routeClient
	case strings.HasPrefix(eventType, api.EventCategory_Guest+"."):
		return routeGuest
	}
	return routeNone
}

// dispatch parses one stream payload and invokes the matching handler.
// It reports whether a handler was invoked. Malformed payloads are dropped.
func dispatch(handlers *EventHandlers, raw string) bool {
	envelope, err := api.ParseEnvelope([]byte(raw))
	if err != nil {
		util.Debugf("SSE - dropping unparseable message: %v", err)
		return false
	}
	if handlers == nil {
		return false
	}

	var target func(api.Envelope)
	switch classify(envelope.Type) {
	case routeConnected:
		if handlers.OnConnected != nil {
			handlers.OnConnected()
			return true
		}
		return false
	case routePing:
		return false
	case routePhoto:
		target = handlers.OnPhotoEvent
	case routeCollection:
		target = handlers.OnCollectionEvent
	case routeClient:
		target = handlers.OnClientEvent
	case routeGuest:
		target = handlers.OnGuestEvent
	default:
		util.Debugf("SSE - ignoring event type %q", envelope.Type)
		return false
	}
	if target == nil {
		return false
	}
	target(envelope)
	return true
}
