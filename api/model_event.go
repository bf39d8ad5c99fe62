package api

import "strings"

// Reserved control types carried on the event stream.
const (
	EventType_Connected = "connected"
	EventType_Ping      = "ping"
)

// Category prefixes. Event types are namespaced as "<category>.<action>".
const (
	EventCategory_Photo      = "photo"
	EventCategory_Collection = "collection"
	EventCategory_Client     = "client"
	EventCategory_Guest      = "guest"
)

// Actions the backend is known to emit. The list is not closed; any
// "<category>.<action>" is routed by its category.
const (
	EventType_PhotoUploaded      = "photo.uploaded"
	EventType_PhotoDeleted       = "photo.deleted"
	EventType_PhotoUpdated       = "photo.updated"
	EventType_CollectionCreated  = "collection.created"
	EventType_CollectionUpdated  = "collection.updated"
	EventType_CollectionDeleted  = "collection.deleted"
	EventType_ClientCreated      = "client.created"
	EventType_ClientUpdated      = "client.updated"
	EventType_ClientDeleted      = "client.deleted"
	EventType_GuestInvited       = "guest.invited"
	EventType_GuestAccessRevoked = "guest.access_revoked"
)

// Category returns the namespace of an event type ("photo" for
// "photo.deleted"), or "" for control types and un-namespaced values.
func Category(eventType string) string {
	category, _, found := strings.Cut(eventType, ".")
	if !found {
		return ""
	}
	return category
}
