package view

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/skytrack/internal/animation"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/internal/websocket"
	"github.com/yegors/skytrack/pkg/logger"
)

type fakeTracker struct {
	mu       sync.Mutex
	flights  []model.Flight
	airports []model.AirportSummary
	details  map[string]*model.Airport
	flight   *model.Flight
	bounds   []model.Bounds
}

func (f *fakeTracker) Flights(_ context.Context, bounds model.Bounds, _ bool) ([]model.Flight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bounds = append(f.bounds, bounds)
	return f.flights, nil
}

func (f *fakeTracker) Flight(_ context.Context, icao24 string, _ bool) *model.Flight {
	if f.flight == nil || f.flight.ID != icao24 {
		return nil
	}
	c := *f.flight
	return &c
}

func (f *fakeTracker) Airports(context.Context, model.Bounds) []model.AirportSummary {
	return f.airports
}

func (f *fakeTracker) Airport(_ context.Context, icao string) *model.Airport {
	return f.details[icao]
}

func (f *fakeTracker) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bounds)
}

type sent struct {
	messageType string
	data        any
}

type chanPublisher chan sent

func (c chanPublisher) Send(messageType string, data any) bool {
	c <- sent{messageType, data}
	return true
}

func (c chanPublisher) next(t *testing.T) sent {
	t.Helper()
	select {
	case m := <-c:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return sent{}
	}
}

// expect reads messages until one of the given type arrives
func (c chanPublisher) expect(t *testing.T, messageType string) sent {
	t.Helper()
	for {
		if m := c.next(t); m.messageType == messageType {
			return m
		}
	}
}

func strPtr(s string) *string { return &s }

func testConfig() Config {
	return Config{
		Animation:       animation.Config{Steps: 5, Duration: 5 * time.Second, Threshold: 100},
		RefreshInterval: 10 * time.Second,
		PathPoints:      11,
	}
}

func newTestSession(t *testing.T, tr *fakeTracker, cfg Config) (*Session, chanPublisher, clockwork.FakeClock) {
	t.Helper()
	out := make(chanPublisher, 64)
	clock := clockwork.NewFakeClock()
	s := NewSession(out, tr, cfg, clock, logger.NewNop())
	t.Cleanup(s.Close)
	return s, out, clock
}

var europe = model.Bounds{LatitudeMin: 40, LatitudeMax: 55, LongitudeMin: -5, LongitudeMax: 15}

func TestUpdateViewportPushesAirportsAndFlights(t *testing.T) {
	tr := &fakeTracker{
		flights: []model.Flight{{ID: "abc123", Coordinates: model.NewCoordinates(48, 2)}},
		airports: []model.AirportSummary{
			{ICAO: "LFPG", Type: strPtr("large_airport")},
			{ICAO: "LFPN", Type: strPtr("small_airport")},
			{ICAO: "XXXX"},
		},
	}
	cfg := testConfig()
	cfg.AirportType = "large_airport"
	s, out, _ := newTestSession(t, tr, cfg)

	s.UpdateViewport(LatLon{Latitude: 48, Longitude: 2}, 6, europe)

	// the first fetch runs concurrently with the airport push
	got := map[string]any{}
	for len(got) < 2 {
		m := out.next(t)
		got[m.messageType] = m.data
	}

	airports := got[websocket.MessageTypeAirports].([]model.AirportSummary)
	if len(airports) != 1 || airports[0].ICAO != "LFPG" {
		t.Errorf("airports = %+v", airports)
	}

	flights := got[websocket.MessageTypeFlights].([]model.Flight)
	if len(flights) != 1 || flights[0].ID != "abc123" {
		t.Errorf("flights = %+v", flights)
	}

	st := s.State()
	if st.Zoom != 6 || st.Bounds == nil || *st.Bounds != europe {
		t.Errorf("state = %+v", st)
	}
}

func TestUpdateViewportSameBoundsKeepsLoop(t *testing.T) {
	tr := &fakeTracker{}
	s, out, _ := newTestSession(t, tr, testConfig())

	s.UpdateViewport(LatLon{}, 5, europe)
	out.expect(t, websocket.MessageTypeAirports)

	deadline := time.Now().Add(2 * time.Second)
	for tr.fetches() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.UpdateViewport(LatLon{Latitude: 1}, 8, europe)

	select {
	case m := <-out:
		t.Errorf("unexpected %s after a zoom-only update", m.messageType)
	case <-time.After(50 * time.Millisecond):
	}
	if n := tr.fetches(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	if s.State().Zoom != 8 {
		t.Error("zoom not applied")
	}
}

func TestRefreshLoopFollowsInterval(t *testing.T) {
	tr := &fakeTracker{flights: []model.Flight{{ID: "abc123"}}}
	s, out, clock := newTestSession(t, tr, testConfig())

	s.UpdateViewport(LatLon{}, 5, europe)
	out.expect(t, websocket.MessageTypeFlights)

	// the poller ticker exists once UpdateViewport returns
	clock.Advance(10 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for tr.fetches() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := tr.fetches(); n < 2 {
		t.Errorf("fetches = %d after one interval", n)
	}
}

func TestSelectFlightSendsDetailAndPath(t *testing.T) {
	tr := &fakeTracker{
		flight: &model.Flight{
			ID:          "abc123",
			Coordinates: model.NewCoordinates(0, 0),
			Route:       &model.Route{Departure: "LFPG", Arrival: "WXYZ"},
		},
		details: map[string]*model.Airport{
			"WXYZ": {ICAO: "WXYZ", Coordinates: &model.AirportCoordinates{Latitude: 0, Longitude: 10}},
		},
	}
	s, out, _ := newTestSession(t, tr, testConfig())

	s.OnSelect(Selection{Kind: KindFlight, ID: "abc123"})

	detail := out.next(t)
	if detail.messageType != websocket.MessageTypeFlightDetail {
		t.Fatalf("first message = %s", detail.messageType)
	}
	if f := detail.data.(*model.Flight); f == nil || f.ID != "abc123" {
		t.Errorf("detail = %+v", detail.data)
	}

	msg := out.next(t)
	if msg.messageType != websocket.MessageTypeFlightPath {
		t.Fatalf("second message = %s", msg.messageType)
	}
	path := msg.data.(*FlightPath)
	if path.Arrival != "WXYZ" || len(path.Points) != 11 {
		t.Fatalf("path = %+v", path)
	}
	first, last := path.Points[0], path.Points[len(path.Points)-1]
	if first.Latitude != 0 || first.Longitude != 0 {
		t.Errorf("path starts at %+v", first)
	}
	if math.Abs(last.Latitude) > 1e-6 || math.Abs(last.Longitude-10) > 1e-6 {
		t.Errorf("path ends at %+v", last)
	}

	sel := s.State().Selected
	if sel == nil || sel.Kind != KindFlight || sel.ID != "abc123" {
		t.Errorf("selection = %+v", sel)
	}
}

func TestSelectFlightWithoutRouteSkipsPath(t *testing.T) {
	tr := &fakeTracker{flight: &model.Flight{ID: "abc123", Coordinates: model.NewCoordinates(1, 1)}}
	s, out, _ := newTestSession(t, tr, testConfig())

	s.OnSelect(Selection{Kind: KindFlight, ID: "abc123"})
	out.expect(t, websocket.MessageTypeFlightDetail)

	select {
	case m := <-out:
		t.Errorf("unexpected %s", m.messageType)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSelectUnknownFlightSendsNull(t *testing.T) {
	s, out, _ := newTestSession(t, &fakeTracker{}, testConfig())

	s.OnSelect(Selection{Kind: KindFlight, ID: "ffffff"})
	msg := out.expect(t, websocket.MessageTypeFlightDetail)
	if f := msg.data.(*model.Flight); f != nil {
		t.Errorf("detail = %+v, want nil", f)
	}
}

func TestSelectAirportAndClear(t *testing.T) {
	tr := &fakeTracker{details: map[string]*model.Airport{"EGLL": {ICAO: "EGLL"}}}
	s, out, _ := newTestSession(t, tr, testConfig())

	s.OnSelect(Selection{Kind: KindAirport, ID: "EGLL"})
	msg := out.expect(t, websocket.MessageTypeAirportDetail)
	if a := msg.data.(*model.Airport); a == nil || a.ICAO != "EGLL" {
		t.Errorf("airport = %+v", msg.data)
	}

	s.ClearSelection()
	if s.State().Selected != nil {
		t.Error("selection survived clear")
	}
}

func TestCloseStopsRefresh(t *testing.T) {
	tr := &fakeTracker{flights: []model.Flight{{ID: "abc123"}}}
	s, out, clock := newTestSession(t, tr, testConfig())

	s.UpdateViewport(LatLon{}, 5, europe)
	out.expect(t, websocket.MessageTypeFlights)

	s.Close()
	before := tr.fetches()
	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	if after := tr.fetches(); after != before {
		t.Errorf("fetches went from %d to %d after Close", before, after)
	}
}
