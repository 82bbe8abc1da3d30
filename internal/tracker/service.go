package tracker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/skytrack/internal/geo"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/internal/opensky"
	"github.com/yegors/skytrack/internal/physics"
	"github.com/yegors/skytrack/internal/telemetry"
	"github.com/yegors/skytrack/pkg/logger"
)

// Upstream is the subset of the OpenSky client used by the service
type Upstream interface {
	GetFlights(ctx context.Context, bounds model.Bounds) []opensky.StateVector
	GetFlight(ctx context.Context, icao24 string, at int64) opensky.StateVector
	GetAirports(ctx context.Context, bounds model.Bounds) []opensky.Airport
	GetAirport(ctx context.Context, icao string) *opensky.Airport
	GetRoute(ctx context.Context, callsign string) *opensky.Route
	GetTrajectory(ctx context.Context, icao24 string) *opensky.Track
	GetArrivals(ctx context.Context, icao string, begin, end int64) []opensky.PastFlight
	GetDepartures(ctx context.Context, icao string, begin, end int64) []opensky.PastFlight
}

// Options controls enrichment
type Options struct {
	HistoryWindow time.Duration // arrivals/departures window on airport detail, 0 disables it
	MagneticTrack bool          // attach magnetic direction to flight detail
}

// Service turns upstream records into canonical flights and airports
type Service struct {
	upstream Upstream
	opts     Options
	clock    clockwork.Clock
	logger   *logger.Logger
}

// NewService creates a tracker service. A nil clock means the real clock.
func NewService(upstream Upstream, opts Options, clock clockwork.Clock, loggerObj *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		upstream: upstream,
		opts:     opts,
		clock:    clock,
		logger:   loggerObj.Named("tracker"),
	}
}

// Flights returns airborne flights inside bounds, dead-reckoned to now when
// predict is set. The only error is the context's.
func (s *Service) Flights(ctx context.Context, bounds model.Bounds, predict bool) ([]model.Flight, error) {
	states := s.upstream.GetFlights(ctx, bounds)
	now := s.clock.Now().Unix()

	flights := make([]model.Flight, 0, len(states))
	for _, raw := range states {
		f := telemetry.NormalizeFlight(raw)
		if f.Grounded {
			continue
		}
		if predict {
			f = geo.Extrapolate(f, now)
		}
		flights = append(flights, f)
	}

	s.logger.Debug("Flights fetched",
		logger.Int("states", len(states)),
		logger.Int("airborne", len(flights)),
		logger.Bool("predict", predict),
	)

	return flights, ctx.Err()
}

// Flight returns one flight enriched with its trajectory and route, or nil
// when the aircraft is unknown
func (s *Service) Flight(ctx context.Context, icao24 string, predict bool) *model.Flight {
	raw := s.upstream.GetFlight(ctx, icao24, 0)
	if raw == nil {
		return nil
	}
	f := telemetry.NormalizeFlight(raw)

	var (
		track *opensky.Track
		route *opensky.Route
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		track = s.upstream.GetTrajectory(gctx, f.ID)
		return nil
	})
	if f.Callsign != nil {
		callsign := *f.Callsign
		g.Go(func() error {
			route = s.upstream.GetRoute(gctx, callsign)
			return nil
		})
	}
	_ = g.Wait()

	f.Trajectory = telemetry.NormalizeTrajectory(track)
	f.Route = telemetry.NormalizeRoute(route)

	if predict {
		f = geo.Extrapolate(f, s.clock.Now().Unix())
	}
	if s.opts.MagneticTrack {
		f.MagneticDirection = s.magneticDirection(f)
	}

	return &f
}

func (s *Service) magneticDirection(f model.Flight) *float64 {
	if f.Direction == nil {
		return nil
	}
	p, ok := geo.PointOf(f.Coordinates)
	if !ok {
		return nil
	}

	var altFt float64
	if f.Altitude != nil {
		switch {
		case f.Altitude.Geometric != nil:
			altFt = physics.FeetFromMeters(*f.Altitude.Geometric)
		case f.Altitude.Barometric != nil:
			altFt = physics.FeetFromMeters(*f.Altitude.Barometric)
		}
	}

	variation := physics.MagneticVariation(p.Lat, p.Lon, altFt, s.clock.Now())
	track := physics.MagneticTrack(*f.Direction, variation)
	return &track
}

// Airports returns the airports inside bounds
func (s *Service) Airports(ctx context.Context, bounds model.Bounds) []model.AirportSummary {
	raw := s.upstream.GetAirports(ctx, bounds)

	airports := make([]model.AirportSummary, 0, len(raw))
	for _, a := range raw {
		airports = append(airports, telemetry.NormalizeAirportSummary(a))
	}
	return airports
}

// Airport returns the detail of one airport, or nil when it is unknown.
// Recent traffic is attached only when a history window is configured.
func (s *Service) Airport(ctx context.Context, icao string) *model.Airport {
	raw := s.upstream.GetAirport(ctx, icao)
	if raw == nil {
		return nil
	}
	a := telemetry.NormalizeAirport(*raw)

	if s.opts.HistoryWindow > 0 {
		a.RecentArrivals, a.RecentDepartures = s.RecentTraffic(ctx, a.ICAO, s.opts.HistoryWindow)
	}

	return &a
}

// RecentTraffic returns arrivals and departures at an airport over the last
// window
func (s *Service) RecentTraffic(ctx context.Context, icao string, window time.Duration) (arrivals, departures *model.PastFlights) {
	end := s.clock.Now().Unix()
	begin := end - int64(window.Seconds())

	var rawArrivals, rawDepartures []opensky.PastFlight
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rawArrivals = s.upstream.GetArrivals(gctx, icao, begin, end)
		return nil
	})
	g.Go(func() error {
		rawDepartures = s.upstream.GetDepartures(gctx, icao, begin, end)
		return nil
	})
	_ = g.Wait()

	return pastFlights(rawArrivals, begin, end), pastFlights(rawDepartures, begin, end)
}

func pastFlights(raw []opensky.PastFlight, begin, end int64) *model.PastFlights {
	out := &model.PastFlights{Begin: begin, End: end, Flights: make([]model.PastFlight, 0, len(raw))}
	for _, f := range raw {
		out.Flights = append(out.Flights, telemetry.NormalizePastFlight(f))
	}
	return out
}
