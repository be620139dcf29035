// Package frame is the game thread's work queue. Anything that must run on
// the game thread (session completions, travel results) is posted here from
// whatever goroutine produced it and executed when the host drains the queue
// once per frame.
package frame

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
)

type Queue struct {
	mu    sync.Mutex
	items *queue.Queue
}

func New() *Queue {
	return &Queue{
		items: queue.New(),
	}
}

// Post schedules fn for the next Drain. Safe from any goroutine.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.items.Add(fn)
	q.mu.Unlock()
}

// Drain runs the work that was queued when Drain was called and returns how
// many items ran. Work posted by those items waits for the next frame.
func (q *Queue) Drain() int {
	q.mu.Lock()
	n := q.items.Length()
	batch := make([]func(), 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, q.items.Remove().(func()))
	}
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// DrainAll keeps draining until the queue is empty or maxFrames frames have
// run. It returns the number of frames that did work.
func (q *Queue) DrainAll(maxFrames int) int {
	frames := 0
	for frames < maxFrames && q.Drain() > 0 {
		frames++
	}
	return frames
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Run drains the queue every interval until ctx is done. It is the frame
// loop for hosts without their own.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Drain()
		}
	}
}
