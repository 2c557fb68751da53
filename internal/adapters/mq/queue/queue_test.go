package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

func record(event string, seq uint64) Event {
	return model.SnapshotRecord{
		Event:    model.EventInfo{ID: event, Name: event},
		Sequence: seq,
		Snapshot: model.Snapshot{Version: model.SnapshotVersion, Sequence: seq},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, record("epee", 3)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Event.ID != "epee" || got.Sequence != 3 {
		t.Errorf("expected epee@3, got %s@%d", got.Event.ID, got.Sequence)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, record("a", 1)) || !q.Enqueue(ctx, record("a", 2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, record("a", 3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, record("a", 1)) {
		t.Error("expected enqueue to fail on a cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for i := range producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range perProducer {
				for !q.Enqueue(ctx, record(fmt.Sprintf("event-%d", id), uint64(j+1))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	var mu sync.Mutex
	consumed := 0
	var cg sync.WaitGroup
	for range 4 {
		cg.Add(1)
		go func() {
			defer cg.Done()
			for range q.Dequeue(ctx) {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	cg.Wait()

	if consumed != producers*perProducer {
		t.Errorf("expected %d records consumed, got %d", producers*perProducer, consumed)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, record("a", 1)) || !q.Enqueue(ctx, record("b", 1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, record("c", 1)) {
		t.Error("expected enqueue to fail after closing")
	}

	// Records queued before Close are still delivered, then the channel closes.
	drained := 0
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if drained != 2 {
					t.Errorf("expected 2 drained records, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to close")
		}
	}
}
