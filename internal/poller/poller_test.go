package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/pkg/logger"
)

type result struct {
	flights []model.Flight
	err     error
}

// fakeSource answers with queued results, then with the fallback
type fakeSource struct {
	mu       sync.Mutex
	queue    []result
	fallback result
	calls    []model.Bounds
	predicts []bool
	fetched  chan struct{}
}

func newFakeSource(fallback result, queue ...result) *fakeSource {
	return &fakeSource{queue: queue, fallback: fallback, fetched: make(chan struct{}, 64)}
}

func (s *fakeSource) Flights(ctx context.Context, bounds model.Bounds, predict bool) ([]model.Flight, error) {
	s.mu.Lock()
	s.calls = append(s.calls, bounds)
	s.predicts = append(s.predicts, predict)
	r := s.fallback
	if len(s.queue) > 0 {
		r = s.queue[0]
		s.queue = s.queue[1:]
	}
	s.mu.Unlock()
	s.fetched <- struct{}{}
	return r.flights, r.err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type chanSink chan []model.Flight

func (c chanSink) Load(flights []model.Flight) { c <- flights }

func flights(ids ...string) []model.Flight {
	out := make([]model.Flight, len(ids))
	for i, id := range ids {
		out[i] = model.Flight{ID: id}
	}
	return out
}

func waitFetch(t *testing.T, s *fakeSource) {
	t.Helper()
	select {
	case <-s.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
	}
}

func waitLoad(t *testing.T, sink chanSink) []model.Flight {
	t.Helper()
	select {
	case f := <-sink:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for load")
		return nil
	}
}

func expectNoLoad(t *testing.T, sink chanSink) {
	t.Helper()
	select {
	case f := <-sink:
		t.Fatalf("unexpected load of %d flights", len(f))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartFetchesImmediatelyThenOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := newFakeSource(result{flights: flights("a")})
	sink := make(chanSink, 16)

	p := New(source, sink, clock, logger.NewNop())
	defer p.Stop()

	bounds := model.Bounds{LatitudeMin: 1, LatitudeMax: 2, LongitudeMin: 3, LongitudeMax: 4}
	p.Start(bounds, 5*time.Second)

	waitLoad(t, sink)

	clock.Advance(5 * time.Second)
	waitLoad(t, sink)
	clock.Advance(5 * time.Second)
	waitLoad(t, sink)

	source.mu.Lock()
	defer source.mu.Unlock()
	for i, b := range source.calls {
		if b != bounds {
			t.Errorf("call %d used bounds %+v", i, b)
		}
		if !source.predicts[i] {
			t.Errorf("call %d did not ask for prediction", i)
		}
	}
}

func TestFailureKeepsTimerRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := newFakeSource(
		result{flights: flights("c")},
		result{flights: flights("a")},
		result{err: errors.New("upstream down")},
		result{flights: nil},
	)
	sink := make(chanSink, 16)

	p := New(source, sink, clock, logger.NewNop())
	defer p.Stop()

	p.Start(model.Bounds{}, time.Second)
	waitFetch(t, source)
	if got := waitLoad(t, sink); got[0].ID != "a" {
		t.Fatalf("first load = %v", got)
	}

	clock.Advance(time.Second)
	waitFetch(t, source)
	expectNoLoad(t, sink)

	clock.Advance(time.Second)
	waitFetch(t, source)
	expectNoLoad(t, sink)

	clock.Advance(time.Second)
	if got := waitLoad(t, sink); got[0].ID != "c" {
		t.Fatalf("recovery load = %v", got)
	}
}

func TestRestartReplacesLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := newFakeSource(result{flights: flights("x")})
	sink := make(chanSink, 16)

	p := New(source, sink, clock, logger.NewNop())
	defer p.Stop()

	p.Start(model.Bounds{LatitudeMin: 1}, time.Second)
	waitLoad(t, sink)
	p.Start(model.Bounds{LatitudeMin: 2}, time.Second)
	waitLoad(t, sink)

	before := source.callCount()
	clock.Advance(time.Second)
	waitLoad(t, sink)
	expectNoLoad(t, sink)

	if got := source.callCount() - before; got != 1 {
		t.Errorf("fetches per interval = %d, want 1", got)
	}

	source.mu.Lock()
	last := source.calls[len(source.calls)-1]
	source.mu.Unlock()
	if last.LatitudeMin != 2 {
		t.Errorf("refresh used stale bounds %+v", last)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := newFakeSource(result{flights: flights("a")})
	sink := make(chanSink, 16)

	p := New(source, sink, clock, logger.NewNop())
	p.Stop()

	p.Start(model.Bounds{}, time.Second)
	waitLoad(t, sink)
	p.Stop()
	p.Stop()

	if p.Running() {
		t.Error("poller still running after Stop")
	}

	clock.Advance(time.Second)
	expectNoLoad(t, sink)
}

// blockingSource holds the fetch until its context is cancelled
type blockingSource struct {
	started chan struct{}
}

func (s *blockingSource) Flights(ctx context.Context, _ model.Bounds, _ bool) ([]model.Flight, error) {
	s.started <- struct{}{}
	<-ctx.Done()
	return flights("stale"), nil
}

func TestSupersededFetchIsDiscarded(t *testing.T) {
	source := &blockingSource{started: make(chan struct{}, 1)}
	sink := make(chanSink, 16)

	p := New(source, sink, clockwork.NewFakeClock(), logger.NewNop())
	p.Start(model.Bounds{}, time.Second)
	<-source.started
	p.Stop()

	expectNoLoad(t, sink)
}
