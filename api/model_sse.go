package api

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var ErrEmptyEventType = errors.New("event envelope has no type")

// Envelope is a single message received on the event stream.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	// Timestamp is in milliseconds since the epoch and may be fractional.
	Timestamp float64         `json:"timestamp,omitempty"`
}

// ParseEnvelope decodes one stream payload.
func ParseEnvelope(raw []byte) (envelope Envelope, err error) {
	err = json.Unmarshal(raw, &envelope)
	if err != nil {
		return
	}
	if envelope.Type == "" {
		err = ErrEmptyEventType
	}
	return
}

func (e Envelope) Category() string {
	return Category(e.Type)
}

// Time converts the millisecond timestamp, returning the zero time when absent.
func (e Envelope) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(math.Round(e.Timestamp * 1000)))
}

// DecodeData unmarshals the payload into v. A missing payload is not an error.
func (e Envelope) DecodeData(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
