package server

import (
	"context"
	"errors"
	"sync"

	"github.com/fenggwsx/dmrelay/internal/protocol"
)

var (
	errOutboxClosed = errors.New("outbox closed")
	errOutboxFull   = errors.New("outbox full")
)

// outbox is the ordered outbound queue of one connection. push never blocks, so the relay can
// deliver while holding its locks; the write loop drains the queue at network speed.
type outbox struct {
	mu     sync.Mutex
	queue  []protocol.Envelope
	closed bool
	limit  int
	notify chan struct{}
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit, notify: make(chan struct{}, 1)}
}

func (o *outbox) push(env protocol.Envelope) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errOutboxClosed
	}
	if o.limit > 0 && len(o.queue) >= o.limit {
		o.mu.Unlock()
		return errOutboxFull
	}
	o.queue = append(o.queue, env)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return nil
}

// pushAll queues envs in order regardless of the limit. The limit still applies to later
// pushes until the backlog drains.
func (o *outbox) pushAll(envs []protocol.Envelope) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errOutboxClosed
	}
	o.queue = append(o.queue, envs...)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return nil
}

// next blocks until envelopes are queued and returns all of them. It reports false once the
// outbox is closed and drained, or ctx is done.
func (o *outbox) next(ctx context.Context) ([]protocol.Envelope, bool) {
	for {
		o.mu.Lock()
		if len(o.queue) > 0 {
			batch := o.queue
			o.queue = nil
			o.mu.Unlock()
			return batch, true
		}
		closed := o.closed
		o.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-o.notify:
		}
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}
