package websocket

import "encoding/json"

const (
	ActionRequestState = "request_state"
	ActionResetGame    = "reset_game"
	ActionMakeMove     = "make_move"
)

// Message is an inbound command from a subscriber.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type MovePayload struct {
	Position *int `json:"position"`
}
