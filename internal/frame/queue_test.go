package frame

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRunsInPostOrder(t *testing.T) {
	q := New()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}

	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 5, q.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, q.Len())
}

func TestWorkPostedDuringDrainWaitsForNextFrame(t *testing.T) {
	q := New()
	var order []string
	q.Post(func() {
		order = append(order, "first")
		q.Post(func() { order = append(order, "second") })
	})

	require.Equal(t, 1, q.Drain())
	assert.Equal(t, []string{"first"}, order)

	require.Equal(t, 1, q.Drain())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDrainAllStopsWhenEmpty(t *testing.T) {
	q := New()
	depth := 0
	var chain func()
	chain = func() {
		depth++
		if depth < 3 {
			q.Post(chain)
		}
	}
	q.Post(chain)

	assert.Equal(t, 3, q.DrainAll(10))
	assert.Equal(t, 3, depth)
	assert.Equal(t, 0, q.DrainAll(10))
}

func TestPostNilIsIgnored(t *testing.T) {
	q := New()
	q.Post(nil)
	assert.Equal(t, 0, q.Len())
}

func TestPostFromManyGoroutines(t *testing.T) {
	q := New()
	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() { ran.Add(1) })
		}()
	}
	wg.Wait()

	q.Drain()
	assert.Equal(t, int32(100), ran.Load())
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx, time.Millisecond)
		close(done)
	}()

	ran := make(chan struct{})
	q.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not drain posted work")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
