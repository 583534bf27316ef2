package entity

const (
	EventGameState   = "game_state"
	EventMoveMade    = "move_made"
	EventInvalidMove = "invalid_move"
	EventGameReset   = "game_reset"
	EventError       = "error"
)

const (
	SourceHardware Source = "hardware"
	SourceNetwork  Source = "network"
)

// Source tells where a move attempt came from.
type Source string

// MoveAttempt is consumed by the coordinator and never stored.
type MoveAttempt struct {
	Position int
	Source   Source
}

// Event is one outbound notice for subscribers.
type Event struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type InvalidMove struct {
	Position int    `json:"position"`
	Error    string `json:"error,omitempty"`
}

type ErrorNotice struct {
	Error string `json:"error"`
}
