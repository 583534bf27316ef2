package usecase

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

// delivery is one queued event. A nil subscriber means every subscriber.
type delivery struct {
	event entity.Event
	to    Subscriber
}

// outbox keeps deliveries in the order they were pushed. Pushing never waits on
// subscribers; a single drainer takes them out in batches.
type outbox struct {
	mutex      sync.Mutex
	deliveries []delivery
	ready      chan struct{}
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

func (that *outbox) push(d delivery) {
	that.mutex.Lock()
	that.deliveries = append(that.deliveries, d)
	that.mutex.Unlock()

	select {
	case that.ready <- struct{}{}:
	default:
	}
}

func (that *outbox) take() []delivery {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	deliveries := that.deliveries
	that.deliveries = nil

	return deliveries
}
