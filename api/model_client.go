package api

// ClientEvent is a lifecycle notification published on Options.ClientEventHandler.
type ClientEvent struct {
	EventType ClientEventType `json:"eventType"`
	EventData interface{}     `json:"eventData"`
	Status    string          `json:"status"`
	Error     error           `json:"error"`
}

type ClientEventType string

const (
	ClientEventType_StreamConnected      ClientEventType = "streamConnected"
	ClientEventType_StreamDisconnected   ClientEventType = "streamDisconnected"
	ClientEventType_StreamRetryScheduled ClientEventType = "streamRetryScheduled"
	ClientEventType_StreamExhausted      ClientEventType = "streamExhausted"
	ClientEventType_RealtimeUpdate       ClientEventType = "realtimeUpdate"
	ClientEventType_SessionRefreshed     ClientEventType = "sessionRefreshed"
	ClientEventType_SessionExpired       ClientEventType = "sessionExpired"
	ClientEventType_Unauthenticated      ClientEventType = "unauthenticated"
)
