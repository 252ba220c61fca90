package driver

import (
	"container/heap"
	"time"
)

// Task is a handle to a scheduled function.
type Task struct {
	driver   *Driver
	fn       func()
	next     func() time.Duration
	deadline time.Time
	seq      uint64
	index    int
	stopped  bool
}

// Stop cancels the task. It is safe to call any number of times, from any goroutine,
// including from inside the task's own function.
func (t *Task) Stop() {
	if t == nil {
		return
	}

	d := t.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&d.tasks, t.index)
	}
}

// Stopped reports whether the task has been stopped or, for one-shot tasks, has fired.
func (t *Task) Stopped() bool {
	if t == nil {
		return true
	}
	t.driver.mu.Lock()
	defer t.driver.mu.Unlock()
	return t.stopped
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
