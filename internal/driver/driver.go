package driver

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Driver runs posted functions and scheduled tasks one at a time. Everything that
// mutates game or connection state goes through a single Driver, so callbacks never
// interleave mid-update and no further locking is needed by the callers.
type Driver struct {
	mu       sync.Mutex
	queue    []func()
	tasks    taskHeap
	seq      uint64
	draining bool
	wake     chan struct{}

	// virtual drivers never run a goroutine; time only moves through Advance.
	virtual bool
	now     time.Time
}

func NewDriver(opts ...DriverOpt) *Driver {
	d := &Driver{
		wake: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Now returns the driver's notion of the current time.
func (d *Driver) Now() time.Time {
	if !d.virtual {
		return time.Now()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// Post queues fn to run on the driver. It never blocks.
func (d *Driver) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	if d.virtual {
		d.drain()
		return
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the driver and waits for it to finish. It must not be called from a
// function that is itself running on the driver.
func (d *Driver) Do(ctx context.Context, fn func()) error {
	if d.virtual {
		d.Post(fn)
		return nil
	}

	done := make(chan struct{})
	d.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// After runs fn once, delay from now.
func (d *Driver) After(delay time.Duration, fn func()) *Task {
	return d.schedule(delay, nil, fn)
}

// Every runs fn every period until the task is stopped. The first run is one period
// from now.
func (d *Driver) Every(period time.Duration, fn func()) *Task {
	return d.schedule(period, func() time.Duration { return period }, fn)
}

// Repeat runs fn until the task is stopped, asking next for the delay before each run.
// next is evaluated after fn returns, so it sees whatever fn changed.
func (d *Driver) Repeat(next func() time.Duration, fn func()) *Task {
	return d.schedule(next(), next, fn)
}

func (d *Driver) schedule(delay time.Duration, next func() time.Duration, fn func()) *Task {
	t := &Task{
		driver: d,
		fn:     fn,
		next:   next,
		index:  -1,
	}

	now := d.Now()
	d.mu.Lock()
	t.deadline = now.Add(delay)
	d.push(t)
	d.mu.Unlock()

	d.signal()
	return t
}

// push must be called with d.mu held.
func (d *Driver) push(t *Task) {
	d.seq++
	t.seq = d.seq
	heap.Push(&d.tasks, t)
}

func (d *Driver) signal() {
	if d.virtual {
		return
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Start runs the driver until ctx is cancelled.
func (d *Driver) Start(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		d.drain()
		for t := d.popDue(time.Now()); t != nil; t = d.popDue(time.Now()) {
			d.fire(t)
			d.drain()
		}

		wait := time.Hour
		if next, ok := d.nextDeadline(); ok {
			wait = max(time.Until(next), 0)
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		case <-timer.C:
		}
	}
}

// Advance moves a virtual driver's clock forward, firing every task that comes due in
// deadline order. Tasks with equal deadlines fire in the order they were scheduled.
func (d *Driver) Advance(dur time.Duration) {
	d.mu.Lock()
	target := d.now.Add(dur)
	d.mu.Unlock()

	for {
		d.mu.Lock()
		if len(d.tasks) == 0 || d.tasks[0].deadline.After(target) {
			d.now = target
			d.mu.Unlock()
			break
		}
		t := heap.Pop(&d.tasks).(*Task)
		d.now = t.deadline
		d.mu.Unlock()

		d.fire(t)
		d.drain()
	}
}

// Pending returns the number of scheduled tasks that have not fired or been stopped.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

func (d *Driver) drain() {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
	}
}

func (d *Driver) popDue(now time.Time) *Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.tasks) == 0 || d.tasks[0].deadline.After(now) {
		return nil
	}
	return heap.Pop(&d.tasks).(*Task)
}

func (d *Driver) nextDeadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.tasks) == 0 {
		return time.Time{}, false
	}
	return d.tasks[0].deadline, true
}

func (d *Driver) fire(t *Task) {
	t.fn()

	if t.next == nil {
		d.mu.Lock()
		t.stopped = true
		d.mu.Unlock()
		return
	}

	// fn may have stopped its own task.
	if t.Stopped() {
		return
	}
	delay := t.next()

	d.mu.Lock()
	defer d.mu.Unlock()
	if t.stopped {
		return
	}
	t.deadline = t.deadline.Add(delay)
	d.push(t)
}
