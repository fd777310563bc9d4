package audit

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher forwards events to a sink from a single goroutine. Events that
// never reach the sink are counted per event type.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event

	// gate orders Emit against CloseContext: once closed is set under the
	// write lock, no Emit can still be sending into queue.
	gate   sync.RWMutex
	closed bool

	stop   chan struct{} // wakes blocked emitters
	drain  chan struct{} // no more sends; flush what is queued
	abort  chan struct{} // drain deadline passed; discard the rest
	exited chan struct{}

	closeOnce sync.Once
	abortOnce sync.Once

	dropMu      sync.Mutex
	droppedType map[string]uint64
	dropped     atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing is
// disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:         cfg,
		sink:        sink,
		queue:       make(chan Event, cfg.BufferSize),
		stop:        make(chan struct{}),
		drain:       make(chan struct{}),
		abort:       make(chan struct{}),
		exited:      make(chan struct{}),
		droppedType: make(map[string]uint64),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.exited)

	for {
		if d.aborted() {
			d.discard()
			return
		}
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.drain:
			d.flush()
			return
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		if d.aborted() {
			d.discard()
			return
		}
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) discard() {
	for {
		select {
		case event := <-d.queue:
			d.countDrop(event.EventType)
		default:
			return
		}
	}
}

func (d *Dispatcher) aborted() bool {
	select {
	case <-d.abort:
		return true
	default:
		return false
	}
}

// Emit queues event for the sink. It assigns an id when the event has none.
// With DropIfFull a full buffer drops the event; otherwise Emit blocks until
// there is room, ctx ends, or the dispatcher closes. Both give-up paths count
// the event as dropped. Events emitted after close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return
	}
	if event.ID == "" {
		event.ID = NewEventID()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.countDrop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.countDrop(event.EventType)
	case <-d.stop:
		d.countDrop(event.EventType)
	}
}

// CloseContext stops accepting events and delivers the queued ones. If ctx
// ends first the remaining events are counted as dropped and ctx.Err() is
// returned; an event already inside the sink finishes in the background.
func (d *Dispatcher) CloseContext(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		close(d.stop)
		d.gate.Lock()
		d.closed = true
		d.gate.Unlock()
		close(d.drain)
	})

	select {
	case <-d.exited:
		return nil
	case <-ctx.Done():
		d.abortOnce.Do(func() { close(d.abort) })
		return ctx.Err()
	}
}

// Close is CloseContext without a deadline.
func (d *Dispatcher) Close() {
	_ = d.CloseContext(context.Background())
}

func (d *Dispatcher) countDrop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.droppedType[eventType]++
	d.dropMu.Unlock()
}

// Dropped returns the number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	return maps.Clone(d.droppedType)
}
