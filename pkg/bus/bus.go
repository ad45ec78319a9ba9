// Package bus queues run triggers and fans run events out to subscribers.
package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

type MessageBus struct {
	triggers chan Trigger

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		triggers:         make(chan Trigger, defaultBufferSize),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

// PublishTrigger queues trigger. It blocks while the queue is full and
// reports false once ctx is done or the bus is closed.
func (mb *MessageBus) PublishTrigger(ctx context.Context, trigger Trigger) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	case mb.triggers <- trigger:
		return true
	}
}

// ConsumeTrigger waits for the next queued trigger.
func (mb *MessageBus) ConsumeTrigger(ctx context.Context) (Trigger, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return Trigger{}, false
	case <-mb.done:
		return Trigger{}, false
	case trigger := <-mb.triggers:
		return trigger, true
	}
}

// Pending returns the number of queued triggers.
func (mb *MessageBus) Pending() int {
	return len(mb.triggers)
}

// Done is closed when the bus is closed.
func (mb *MessageBus) Done() <-chan struct{} {
	return mb.done
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}
