package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/mq/queue"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/mq/worker"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	logging "github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockSaver struct {
	mu     sync.Mutex
	latest map[string]uint64
	writes int
	errs   map[string]error
}

func newMockSaver() *mockSaver {
	return &mockSaver{latest: map[string]uint64{}, errs: map[string]error{}}
}

func (m *mockSaver) SaveIfNewer(_ context.Context, rec worker.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[rec.Event.ID]; ok {
		return false, err
	}
	if cur, ok := m.latest[rec.Event.ID]; ok && cur >= rec.Sequence {
		return false, nil
	}
	m.latest[rec.Event.ID] = rec.Sequence
	m.writes++
	return true, nil
}

func (m *mockSaver) get(id string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, ok := m.latest[id]
	return seq, ok
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func rec(id string, seq uint64) worker.Event {
	return model.SnapshotRecord{Event: model.EventInfo{ID: id}, Sequence: seq}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		saver := newMockSaver()
		w := worker.NewInMemoryWorker(q, saver, worker.WithName("test"), worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When records arrive out of order", func() {
			q.Enqueue(ctx, rec("epee", 2))
			q.Enqueue(ctx, rec("epee", 1))
			q.Enqueue(ctx, rec("foil", 4))
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then the newest snapshot per event is kept", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Fatal("worker did not drain the queue")
				}
				seq, ok := saver.get("epee")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(seq, convey.ShouldEqual, 2)
				seq, _ = saver.get("foil")
				convey.So(seq, convey.ShouldEqual, 4)
				convey.So(saver.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a write fails", func() {
			saver.errs["sabre"] = errors.New("disk full")
			q.Enqueue(ctx, rec("sabre", 1))
			q.Enqueue(ctx, rec("epee", 1))
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then the worker keeps going", func() {
				<-w.Done()
				_, ok := saver.get("sabre")
				convey.So(ok, convey.ShouldBeFalse)
				_, ok = saver.get("epee")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops promptly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockSaver(), worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		cancel()

		convey.Convey("Then it stops", func() {
			select {
			case <-w.Done():
			case <-time.After(time.Second):
				t.Fatal("worker did not stop")
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		saver := newMockSaver()
		p := worker.NewPool(4, q, saver, worker.WithLogger(logging.Nop()))
		convey.So(p.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		p.Start(ctx)

		convey.Convey("When many events are enqueued and the pool shuts down", func() {
			for i := range 50 {
				for seq := uint64(1); seq <= 5; seq++ {
					q.Enqueue(ctx, rec(fmt.Sprintf("event-%d", i), seq))
				}
			}
			convey.So(p.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then every event was persisted", func() {
				for i := range 50 {
					_, ok := saver.get(fmt.Sprintf("event-%d", i))
					convey.So(ok, convey.ShouldBeTrue)
				}
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool that was never started", t, func() {
		q := queue.NewInMemoryQueue()
		p := worker.NewPool(0, q, newMockSaver(), worker.WithLogger(logging.Nop()))

		convey.Convey("Then it has the default size and shuts down at once", func() {
			convey.So(p.Size(), convey.ShouldEqual, 2)
			convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}
