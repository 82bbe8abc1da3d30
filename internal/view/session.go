package view

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/skytrack/internal/animation"
	"github.com/yegors/skytrack/internal/geo"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/internal/poller"
	"github.com/yegors/skytrack/internal/websocket"
	"github.com/yegors/skytrack/pkg/logger"
)

// Tracker is the data source of a view
type Tracker interface {
	poller.FlightSource
	Flight(ctx context.Context, icao24 string, predict bool) *model.Flight
	Airports(ctx context.Context, bounds model.Bounds) []model.AirportSummary
	Airport(ctx context.Context, icao string) *model.Airport
}

// Publisher delivers messages to the browser
type Publisher interface {
	Send(messageType string, data any) bool
}

// Config shapes every session
type Config struct {
	Animation       animation.Config
	RefreshInterval time.Duration
	AirportType     string // only airports of this type are pushed, empty = all
	PathPoints      int    // points on the flight-to-destination great circle
}

// FlightPath is the great circle from a flight to its arrival airport
type FlightPath struct {
	FlightID string   `json:"flightId"`
	Arrival  string   `json:"arrival"`
	Points   []LatLon `json:"points"`
}

// Session is one connected map view. It owns a poller feeding an animation
// scheduler whose frames go straight to the browser.
type Session struct {
	cfg       Config
	tracker   Tracker
	out       Publisher
	scheduler *animation.Scheduler
	poller    *poller.Poller
	logger    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
}

// NewSession wires a scheduler and poller for one view
func NewSession(out Publisher, tracker Tracker, cfg Config, clock clockwork.Clock, loggerObj *logger.Logger) *Session {
	if cfg.PathPoints < 2 {
		cfg.PathPoints = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:     cfg,
		tracker: tracker,
		out:     out,
		logger:  loggerObj.Named("view"),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.scheduler = animation.NewScheduler(cfg.Animation, clock, func(flights []model.Flight) {
		out.Send(websocket.MessageTypeFlights, flights)
	}, loggerObj)
	s.poller = poller.New(tracker, s.scheduler, clock, loggerObj)

	return s
}

// State returns the current view state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdateViewport applies a map move. A bounds change restarts the refresh
// loop for the new area and pushes its airports.
func (s *Session) UpdateViewport(center LatLon, zoom float64, bounds model.Bounds) {
	s.mu.Lock()
	next := s.state.WithViewport(center, zoom, bounds)
	changed := s.state.BoundsChanged(next)
	s.state = next
	s.mu.Unlock()

	if !changed {
		return
	}

	s.poller.Start(bounds, s.cfg.RefreshInterval)
	s.pushAirports(bounds)
}

// OnSelect opens a flight or airport and pushes its detail
func (s *Session) OnSelect(sel Selection) {
	s.mu.Lock()
	switch sel.Kind {
	case KindFlight:
		s.state = s.state.SelectFlight(sel.ID)
	case KindAirport:
		s.state = s.state.SelectAirport(sel.ID)
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if sel.Kind == KindAirport {
		s.out.Send(websocket.MessageTypeAirportDetail, s.tracker.Airport(s.ctx, sel.ID))
		return
	}

	f := s.tracker.Flight(s.ctx, sel.ID, true)
	s.out.Send(websocket.MessageTypeFlightDetail, f)
	if f == nil {
		return
	}

	if path := s.flightPath(*f); path != nil {
		s.out.Send(websocket.MessageTypeFlightPath, path)
	}
}

// ClearSelection closes the side panel
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.ClearSelection()
}

// Close stops the refresh loop before tearing down the animation
func (s *Session) Close() {
	s.cancel()
	s.poller.Stop()
	s.scheduler.Close()
}

func (s *Session) pushAirports(bounds model.Bounds) {
	all := s.tracker.Airports(s.ctx, bounds)
	if s.ctx.Err() != nil {
		return
	}

	airports := make([]model.AirportSummary, 0, len(all))
	for _, a := range all {
		if s.cfg.AirportType != "" && (a.Type == nil || *a.Type != s.cfg.AirportType) {
			continue
		}
		airports = append(airports, a)
	}

	s.logger.Debug("Pushing airports", logger.Int("total", len(all)), logger.Int("sent", len(airports)))
	s.out.Send(websocket.MessageTypeAirports, airports)
}

// flightPath builds the great circle to the arrival airport, nil when the
// route or either position is unknown
func (s *Session) flightPath(f model.Flight) *FlightPath {
	if f.Route == nil {
		return nil
	}
	from, ok := geo.PointOf(f.Coordinates)
	if !ok {
		return nil
	}
	arrival := s.tracker.Airport(s.ctx, f.Route.Arrival)
	if arrival == nil || arrival.Coordinates == nil {
		return nil
	}
	to := geo.Point{Lat: arrival.Coordinates.Latitude, Lon: arrival.Coordinates.Longitude}

	n := s.cfg.PathPoints
	points := make([]LatLon, n)
	for i := range n {
		p := geo.Interpolate(from, to, float64(i)/float64(n-1))
		points[i] = LatLon{Latitude: p.Lat, Longitude: p.Lon}
	}

	return &FlightPath{FlightID: f.ID, Arrival: f.Route.Arrival, Points: points}
}
