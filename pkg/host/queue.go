package host

import (
	"context"
	"sync"
)

// Queue runs funcs one at a time, in push order, on its own goroutine.
// Backends push browser callbacks through it so that listeners reacting to
// tab events may call back into the browser without deadlocking the
// connection that delivered the event.
type Queue struct {
	ctx context.Context

	mu   sync.Mutex
	fns  []func()
	wake chan struct{}
	done chan struct{}
}

// NewQueue starts a queue that runs until ctx is cancelled. Funcs still
// queued at that point are dropped.
func NewQueue(ctx context.Context) *Queue {
	q := &Queue{
		ctx:  ctx,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Push queues fn. It never blocks.
func (q *Queue) Push(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the queue goroutine has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		for {
			fn, ok := q.pop()
			if !ok {
				break
			}
			if q.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

func (q *Queue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.fns) == 0 {
		return nil, false
	}
	fn := q.fns[0]
	q.fns[0] = nil
	q.fns = q.fns[1:]
	return fn, true
}
