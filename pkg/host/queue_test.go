package host

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueue_RunsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx)

	var mu sync.Mutex
	var got []int
	finished := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		q.Push(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 49 {
				close(finished)
			}
		})
	}

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("queue did not drain")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_PushFromRunningFunc(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx)

	finished := make(chan struct{})
	q.Push(func() {
		q.Push(func() { close(finished) })
	})

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("nested push never ran")
	}
}

func TestQueue_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx)
	cancel()

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("queue did not stop")
	}

	ran := false
	q.Push(func() { ran = true })
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran)
}
