package fanout

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}

func TestQueue_GrowsAt70Percent(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 7; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Capacity != 20 {
		t.Errorf("Capacity = %d, want 20", stats.Capacity)
	}
	if stats.Resizes != 1 {
		t.Errorf("Resizes = %d, want 1", stats.Resizes)
	}
}

func TestQueue_GrowPreservesOrderWhenWrapped(t *testing.T) {
	q := NewQueue[int](10)

	// Advance head so the ring wraps before it grows.
	for i := 0; i < 5; i++ {
		q.Push(-1)
	}
	for i := 0; i < 5; i++ {
		q.TryPop()
	}

	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	got := q.PopBatch(0)
	if len(got) != 100 {
		t.Fatalf("PopBatch returned %d items, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d", i, v)
		}
	}
	if q.Stats().Resizes < 3 {
		t.Errorf("Resizes = %d, expected at least 3", q.Stats().Resizes)
	}
}

func TestQueue_PopBatchMax(t *testing.T) {
	q := NewQueue[int](4)
	for i := 0; i < 10; i++ {
		q.Push(i)
	}

	batch := q.PopBatch(3)
	if len(batch) != 3 || batch[0] != 0 || batch[2] != 2 {
		t.Errorf("PopBatch(3) = %v, want [0 1 2]", batch)
	}
	if q.Len() != 7 {
		t.Errorf("Len() = %d, want 7", q.Len())
	}
	if got := NewQueue[int](4).PopBatch(5); got != nil {
		t.Errorf("PopBatch on empty queue = %v, want nil", got)
	}
}

func TestQueue_BlockingPop(t *testing.T) {
	q := NewQueue[int](10)
	popped := make(chan int, 1)

	go func() {
		if val, ok := q.Pop(); ok {
			popped <- val
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case val := <-popped:
		if val != 42 {
			t.Errorf("popped %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked pop")
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := NewQueue[int](10)
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Error("Push should return false after Close")
	}

	for _, want := range []int{1, 2} {
		val, ok := q.Pop()
		if !ok || val != want {
			t.Errorf("Pop() = %d, %v; want %d, true", val, ok, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue should return false")
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := NewQueue[int](10)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked receivers")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int](4)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	stats := q.Stats()
	if stats.Pushed != 1000 || stats.Depth != 1000 {
		t.Errorf("Stats() = %+v, want 1000 pushed and queued", stats)
	}
}
