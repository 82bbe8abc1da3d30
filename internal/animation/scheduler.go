// Package animation moves flights along dead-reckoned great-circle paths
// between poll cycles so that map markers glide instead of jumping.
//
// A Scheduler owns at most one session at a time. Loading a new flight set
// cancels the running session before any new state is installed, and every
// frame is handed to the publish callback as a freshly allocated slice.
package animation

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/skytrack/internal/geo"
	"github.com/yegors/skytrack/internal/metrics"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/pkg/logger"
)

// State of the scheduler
type State int

const (
	Idle State = iota
	Building
	Running
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Running:
		return "running"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Config controls session shape
type Config struct {
	Steps     int           // points per predicted path and ticks per session
	Duration  time.Duration // forward time window covered by a session
	Threshold int           // flight count at which animation is bypassed
}

// DefaultConfig returns 50 steps over 10 seconds, bypassed at 1000 flights
func DefaultConfig() Config {
	return Config{
		Steps:     50,
		Duration:  10 * time.Second,
		Threshold: 1000,
	}
}

// Interval is the tick period of a session
func (c Config) Interval() time.Duration {
	return c.Duration / time.Duration(c.Steps)
}

// PublishFunc receives every displayed flight set. It is called with the
// scheduler lock held and must not call back into the Scheduler.
type PublishFunc func(flights []model.Flight)

type session struct {
	paths   map[int][]geo.Point // display index -> predicted path
	counter int
	ticker  clockwork.Ticker
	done    chan struct{}
}

// Scheduler runs animation sessions for one view
type Scheduler struct {
	cfg     Config
	clock   clockwork.Clock
	publish PublishFunc
	logger  *logger.Logger

	mu      sync.Mutex
	state   State
	session *session
	display []model.Flight
	closed  bool
}

// NewScheduler creates a scheduler. A nil clock means the real clock.
func NewScheduler(cfg Config, clock clockwork.Clock, publish PublishFunc, loggerObj *logger.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Steps <= 0 {
		cfg.Steps = def.Steps
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if publish == nil {
		publish = func([]model.Flight) {}
	}

	return &Scheduler{
		cfg:     cfg,
		clock:   clock,
		publish: publish,
		logger:  loggerObj.Named("animation"),
	}
}

// Load replaces the displayed flight set and starts a new session. An empty
// set leaves the current display and session untouched.
func (s *Scheduler) Load(flights []model.Flight) {
	if len(flights) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.cancelLocked()

	display := make([]model.Flight, len(flights))
	copy(display, flights)

	if len(flights) >= s.cfg.Threshold {
		s.display = display
		s.state = Idle
		metrics.AnimationEvent("bypassed")
		s.logger.Debug("Animation bypassed", logger.Int("flights", len(flights)))
		s.publish(display)
		return
	}

	s.state = Building
	paths := make(map[int][]geo.Point)
	for i, f := range display {
		if f.Velocity == nil || f.Direction == nil {
			continue
		}
		origin, ok := geo.PointOf(f.Coordinates)
		if !ok {
			continue
		}
		paths[i] = geo.PredictPath(origin, *f.Velocity, *f.Direction, s.cfg.Duration, s.cfg.Steps)
	}

	s.display = display
	s.publish(display)

	sess := &session{
		paths:  paths,
		ticker: s.clock.NewTicker(s.cfg.Interval()),
		done:   make(chan struct{}),
	}
	s.session = sess
	s.state = Running
	metrics.AnimationEvent("started")

	s.logger.Debug("Animation session started",
		logger.Int("flights", len(display)),
		logger.Int("animated", len(paths)),
		logger.Duration("interval", s.cfg.Interval()),
	)

	go s.run(sess)
}

// Cancel stops the running session, if any. Calling it again is a no-op.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Close cancels the running session and ignores any later Load
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.closed = true
}

// State returns the current scheduler state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Display returns the most recently published flight set
func (s *Scheduler) Display() []model.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// AnimatedCount returns how many flights the running session moves
func (s *Scheduler) AnimatedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0
	}
	return len(s.session.paths)
}

func (s *Scheduler) cancelLocked() {
	if s.session == nil {
		return
	}
	s.session.ticker.Stop()
	close(s.session.done)
	s.session = nil
	s.state = Cancelled
	metrics.AnimationEvent("cancelled")
}

func (s *Scheduler) run(sess *session) {
	for {
		select {
		case <-sess.done:
			return
		case <-sess.ticker.Chan():
			if !s.tick(sess) {
				return
			}
		}
	}
}

// tick advances sess by one step and reports whether it should keep running
func (s *Scheduler) tick(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a tick that raced with Load or Cancel belongs to a dead session
	if s.session != sess {
		return false
	}

	c := sess.counter
	next := make([]model.Flight, len(s.display))
	copy(next, s.display)

	for i, path := range sess.paths {
		if c >= len(path) {
			continue
		}
		next[i].Coordinates = path[c].Coordinates()

		var from, to geo.Point
		switch {
		case c+1 < len(path):
			from, to = path[c], path[c+1]
		case c > 0:
			from, to = path[c-1], path[c]
		default:
			continue
		}
		// a stationary path has no azimuth, keep the reported one
		if from == to {
			continue
		}
		heading := geo.NormalizeHeading(geo.Bearing(from, to))
		next[i].Direction = &heading
	}

	sess.counter++
	s.display = next
	metrics.AnimationTick()
	s.publish(next)

	if sess.counter >= s.cfg.Steps {
		sess.ticker.Stop()
		s.session = nil
		s.state = Idle
		metrics.AnimationEvent("completed")
		return false
	}
	return true
}
