package gpio

import (
	"fmt"
	"time"
)

// PressEvent is one accepted physical press.
type PressEvent struct {
	Position int
	At       time.Time
}

// Debouncer turns raw button levels into press events. A press is an
// inactive-to-active transition, accepted only when at least window has passed
// since the previous accepted press at the same position.
type Debouncer struct {
	window       time.Duration
	active       []bool
	lastAccepted []time.Time
}

func NewDebouncer(positions int, window time.Duration) *Debouncer {
	return &Debouncer{
		window:       window,
		active:       make([]bool, positions),
		lastAccepted: make([]time.Time, positions),
	}
}

func (that *Debouncer) Positions() int {
	return len(that.active)
}

// Poll records the level sampled at now and reports an accepted press.
// The position space is fixed at construction; anything outside it panics.
func (that *Debouncer) Poll(position int, active bool, now time.Time) (PressEvent, bool) {
	if position < 0 || position >= len(that.active) {
		panic(fmt.Sprintf("gpio: position %d outside 0..%d", position, len(that.active)-1))
	}

	wasActive := that.active[position]
	that.active[position] = active

	if wasActive || !active {
		return PressEvent{}, false
	}

	last := that.lastAccepted[position]
	if !last.IsZero() && now.Sub(last) < that.window {
		return PressEvent{}, false
	}

	that.lastAccepted[position] = now

	return PressEvent{Position: position, At: now}, true
}
