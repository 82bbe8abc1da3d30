package poller

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/skytrack/internal/metrics"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/pkg/logger"
)

// FlightSource returns normalized flights inside bounds, extrapolated to
// now when predict is set
type FlightSource interface {
	Flights(ctx context.Context, bounds model.Bounds, predict bool) ([]model.Flight, error)
}

// Sink receives every non-empty flight set
type Sink interface {
	Load(flights []model.Flight)
}

// Poller refreshes the flight set of one view on a fixed interval. At most
// one refresh loop runs at a time.
type Poller struct {
	source FlightSource
	sink   Sink
	clock  clockwork.Clock
	logger *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller. A nil clock means the real clock.
func New(source FlightSource, sink Sink, clock clockwork.Clock, loggerObj *logger.Logger) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		source: source,
		sink:   sink,
		clock:  clock,
		logger: loggerObj.Named("poller"),
	}
}

// Start replaces any running loop with one that fetches bounds immediately
// and then every interval
func (p *Poller) Start(bounds model.Bounds, interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := p.clock.NewTicker(interval)

	p.cancel = cancel
	p.done = done

	p.logger.Debug("Starting refresh loop",
		logger.Float64("lat_min", bounds.LatitudeMin),
		logger.Float64("lat_max", bounds.LatitudeMax),
		logger.Float64("lon_min", bounds.LongitudeMin),
		logger.Float64("lon_max", bounds.LongitudeMax),
		logger.Duration("interval", interval),
	)

	go p.loop(ctx, bounds, ticker, done)
}

// Stop ends the running loop and waits for it to exit. Safe to call when
// nothing is running.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether a refresh loop is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Poller) loop(ctx context.Context, bounds model.Bounds, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	p.cycle(ctx, bounds)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.cycle(ctx, bounds)
		}
	}
}

// cycle runs one fetch and feeds the sink. Failures and empty results keep
// the previous display.
func (p *Poller) cycle(ctx context.Context, bounds model.Bounds) {
	flights, err := p.source.Flights(ctx, bounds, true)

	// superseded while fetching
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		metrics.PollCycle(metrics.OutcomeError)
		p.logger.Warn("Flight refresh failed, keeping previous set", logger.Error(err))
		return
	}
	if len(flights) == 0 {
		metrics.PollCycle(metrics.OutcomeEmpty)
		p.logger.Debug("Flight refresh returned no flights, keeping previous set")
		return
	}

	metrics.PollCycle(metrics.OutcomeOK)
	p.sink.Load(flights)
}
