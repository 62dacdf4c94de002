package events

import (
	"context"
	"log"
	"sync"
	"time"
)

const publishTimeout = 5 * time.Second

// Dispatcher decouples mutation commits from event delivery with a
// buffered outbox channel drained by a single goroutine. Enqueue never
// blocks the caller: when the buffer is full the event is dropped with a
// log line, so a slow or dead sink cannot stall or roll back a mutation.
type Dispatcher struct {
	publisher Publisher
	outbox    chan Event

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher starts a dispatcher draining into the given publisher.
func NewDispatcher(publisher Publisher, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	d := &Dispatcher{
		publisher: publisher,
		outbox:    make(chan Event, bufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go d.drain()
	return d
}

// Enqueue hands an event to the outbox. It is called at most once per
// successful mutation, after the write is durably acknowledged.
func (d *Dispatcher) Enqueue(event Event) {
	select {
	case d.outbox <- event:
	default:
		log.Printf("event outbox full, dropping %s for %s", event.Type, event.EntityID)
	}
}

// Close stops the drain goroutine after flushing whatever is already
// buffered. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for {
		select {
		case event := <-d.outbox:
			d.publish(event)
		case <-d.stop:
			for {
				select {
				case event := <-d.outbox:
					d.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) publish(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish %s for %s: %v", event.Type, event.EntityID, err)
	}
}
