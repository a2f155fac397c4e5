// Package dispatch provides the single controller thread that all billing
// callbacks and retries run on. Operations never block the caller; retries
// are scheduled back onto the same thread via PostDelayed, never a worker
// pool.
package dispatch

import (
	"sync"
	"time"
)

// Dispatcher posts work onto a serial execution context.
type Dispatcher interface {
	Post(fn func())
	PostDelayed(fn func(), delay time.Duration)
	Close()
}

// Serial runs posted work on one goroutine in FIFO order. Delayed posts
// re-enter the queue when their timer fires, so delayed work is serialized
// with everything else.
type Serial struct {
	mu     sync.Mutex
	queue  chan func()
	closed bool
	wg     sync.WaitGroup
}

func NewSerial() *Serial {
	d := &Serial{
		queue: make(chan func(), 256),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Serial) run() {
	defer d.wg.Done()
	for fn := range d.queue {
		fn()
	}
}

func (d *Serial) Post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.queue <- fn
}

func (d *Serial) PostDelayed(fn func(), delay time.Duration) {
	if delay <= 0 {
		d.Post(fn)
		return
	}
	time.AfterFunc(delay, func() {
		d.Post(fn)
	})
}

// Close stops accepting work and waits for queued work to drain. Timers
// still pending when Close is called are dropped.
func (d *Serial) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// Synchronous executes posted work inline and records the delay of every
// PostDelayed call. It exists for tests that assert on backoff schedules
// without waiting out real timers.
type Synchronous struct {
	mu     sync.Mutex
	delays []time.Duration
}

func NewSynchronous() *Synchronous {
	return &Synchronous{}
}

func (d *Synchronous) Post(fn func()) {
	fn()
}

func (d *Synchronous) PostDelayed(fn func(), delay time.Duration) {
	d.mu.Lock()
	d.delays = append(d.delays, delay)
	d.mu.Unlock()

	fn()
}

func (d *Synchronous) Close() {}

// Delays returns the delays recorded so far, in scheduling order.
func (d *Synchronous) Delays() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]time.Duration(nil), d.delays...)
}
