package gateway

import "encoding/json"

// Inbound events handled by the gateway itself. Signaling events are handed
// to the relay.
const (
	EventJoin           = "join"
	EventPing           = "ping"
	EventLocationUpdate = "location-update"

	EventPong  = "pong"
	EventError = "error"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Identity string `json:"identity"`
}

type locationPayload struct {
	BookingID string   `json:"bookingId"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

// ErrorFrame is the payload of an error event. Event names the inbound event
// that failed when known.
type ErrorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
	Details any    `json:"details,omitempty"`
}
