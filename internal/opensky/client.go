package opensky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/yegors/skytrack/internal/metrics"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/internal/observability"
	"github.com/yegors/skytrack/pkg/logger"
)

// Endpoint names used for logging and metrics
const (
	endpointStates     = "states"
	endpointState      = "state"
	endpointRegion     = "airports_region"
	endpointAirport    = "airport"
	endpointRoute      = "route"
	endpointTrack      = "track"
	endpointArrivals   = "arrivals"
	endpointDepartures = "departures"
)

const bodySnapshotLimit = 512

// Options configures a Client
type Options struct {
	BaseURL string

	// Basic auth, used when no client credentials are set
	Username string
	Password string

	// OAuth2 client credentials
	ClientID     string
	ClientSecret string
	TokenURL     string

	Timeout        time.Duration
	RouteCacheSize int
	RouteCacheTTL  time.Duration
}

// Client talks to the OpenSky Network REST API. Every method degrades to an
// empty result on failure; the cause is logged, never returned.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	username   string
	password   string
	logger     *logger.Logger

	states singleflight.Group
	routes *expirable.LRU[string, *Route]
}

// NewClient creates a new OpenSky client
func NewClient(opts Options, loggerObj *logger.Logger) *Client {
	base := &http.Client{Timeout: opts.Timeout}

	c := &Client{
		httpClient: base,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		logger:     loggerObj.Named("opensky"),
	}

	switch {
	case opts.ClientID != "" && opts.ClientSecret != "":
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		// token refresh happens inside the transport
		c.httpClient = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
		c.httpClient.Timeout = opts.Timeout
		c.logger.Info("Using OpenSky OAuth2 client credentials", logger.String("client_id", opts.ClientID))
	case opts.Username != "" && opts.Password != "":
		c.username = opts.Username
		c.password = opts.Password
		c.logger.Info("Using OpenSky basic auth", logger.String("username", opts.Username))
	default:
		c.logger.Warn("No OpenSky credentials configured - proceeding as anonymous (rate limits may apply)")
	}

	if opts.RouteCacheSize > 0 {
		c.routes = expirable.NewLRU[string, *Route](opts.RouteCacheSize, nil, opts.RouteCacheTTL)
	}

	return c
}

// GetFlights returns the state vectors inside the bounding box. Identical
// concurrent queries share one upstream request, which outlives any single
// caller: a caller that gives up gets an empty result, the others still get
// the answer.
func (c *Client) GetFlights(ctx context.Context, bounds model.Bounds) []StateVector {
	q := url.Values{}
	q.Set("lamin", formatFloat(bounds.LatitudeMin))
	q.Set("lomin", formatFloat(bounds.LongitudeMin))
	q.Set("lamax", formatFloat(bounds.LatitudeMax))
	q.Set("lomax", formatFloat(bounds.LongitudeMax))

	ch := c.states.DoChan(q.Encode(), func() (any, error) {
		fetchCtx, cancel := c.detach(ctx)
		defer cancel()

		var resp statesResponse
		if err := c.getJSON(fetchCtx, endpointStates, "/states/all", q, &resp); err != nil {
			c.logFailure(endpointStates, err)
			return []StateVector{}, nil
		}
		if resp.States == nil {
			return []StateVector{}, nil
		}
		return resp.States, nil
	})

	select {
	case res := <-ch:
		return res.Val.([]StateVector)
	case <-ctx.Done():
		c.logger.Debug("Stopped waiting for OpenSky states",
			logger.String("endpoint", endpointStates),
			logger.Error(ctx.Err()))
		return []StateVector{}
	}
}

// detach returns a context carrying ctx's values but not its cancellation,
// bounded by the client timeout
func (c *Client) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, c.timeout)
}

// GetFlight returns the latest state vector for one aircraft, or nil. A
// non-zero at asks for the state at that epoch second.
func (c *Client) GetFlight(ctx context.Context, icao24 string, at int64) StateVector {
	q := url.Values{}
	q.Set("icao24", strings.ToLower(icao24))
	if at > 0 {
		q.Set("time", strconv.FormatInt(at, 10))
	}

	var resp statesResponse
	if err := c.getJSON(ctx, endpointState, "/states/all", q, &resp); err != nil {
		c.logFailure(endpointState, err)
		return nil
	}
	if len(resp.States) == 0 {
		return nil
	}
	return resp.States[0]
}

// GetAirports returns airports inside the bounding box
func (c *Client) GetAirports(ctx context.Context, bounds model.Bounds) []Airport {
	q := url.Values{}
	q.Set("lamin", formatFloat(bounds.LatitudeMin))
	q.Set("lomin", formatFloat(bounds.LongitudeMin))
	q.Set("lamax", formatFloat(bounds.LatitudeMax))
	q.Set("lomax", formatFloat(bounds.LongitudeMax))

	var airports []Airport
	if err := c.getJSON(ctx, endpointRegion, "/airports/region", q, &airports); err != nil {
		c.logFailure(endpointRegion, err)
		return []Airport{}
	}
	if airports == nil {
		return []Airport{}
	}
	return airports
}

// GetAirport returns one airport by ICAO code, or nil
func (c *Client) GetAirport(ctx context.Context, icao string) *Airport {
	q := url.Values{}
	q.Set("icao", strings.ToUpper(icao))

	var airport Airport
	if err := c.getJSON(ctx, endpointAirport, "/airports", q, &airport); err != nil {
		c.logFailure(endpointAirport, err)
		return nil
	}
	if airport.ICAO == "" {
		return nil
	}
	return &airport
}

// GetRoute returns the route flown under a callsign, or nil
func (c *Client) GetRoute(ctx context.Context, callsign string) *Route {
	callsign = strings.TrimSpace(callsign)
	if callsign == "" {
		return nil
	}

	if c.routes != nil {
		if route, ok := c.routes.Get(callsign); ok {
			return route
		}
	}

	q := url.Values{}
	q.Set("callsign", callsign)

	var route Route
	if err := c.getJSON(ctx, endpointRoute, "/routes", q, &route); err != nil {
		c.logFailure(endpointRoute, err)
		return nil
	}

	if c.routes != nil {
		c.routes.Add(callsign, &route)
	}
	return &route
}

// GetTrajectory returns the live track of an aircraft, or nil
func (c *Client) GetTrajectory(ctx context.Context, icao24 string) *Track {
	q := url.Values{}
	q.Set("icao24", strings.ToLower(icao24))
	q.Set("time", "0")

	var track Track
	if err := c.getJSON(ctx, endpointTrack, "/tracks/all", q, &track); err != nil {
		c.logFailure(endpointTrack, err)
		return nil
	}
	return &track
}

// GetArrivals returns flights that arrived at the airport within [begin, end]
func (c *Client) GetArrivals(ctx context.Context, icao string, begin, end int64) []PastFlight {
	return c.pastFlights(ctx, endpointArrivals, "/flights/arrival", icao, begin, end)
}

// GetDepartures returns flights that departed the airport within [begin, end]
func (c *Client) GetDepartures(ctx context.Context, icao string, begin, end int64) []PastFlight {
	return c.pastFlights(ctx, endpointDepartures, "/flights/departure", icao, begin, end)
}

func (c *Client) pastFlights(ctx context.Context, endpoint, path, icao string, begin, end int64) []PastFlight {
	q := url.Values{}
	q.Set("airport", strings.ToUpper(icao))
	q.Set("begin", strconv.FormatInt(begin, 10))
	q.Set("end", strconv.FormatInt(end, 10))

	var flights []PastFlight
	if err := c.getJSON(ctx, endpoint, path, q, &flights); err != nil {
		c.logFailure(endpoint, err)
		return []PastFlight{}
	}
	if flights == nil {
		return []PastFlight{}
	}
	return flights
}

// FetchError describes a failed upstream call. StatusCode is zero when no
// response was received.
type FetchError struct {
	Endpoint   string
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("opensky %s: unexpected status code %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("opensky %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrNotFound marks a 404 answer, which OpenSky uses for unknown routes,
// tracks and airports
var ErrNotFound = errors.New("not found")

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) (err error) {
	urlStr := c.baseURL + path
	if len(query) > 0 {
		urlStr += "?" + query.Encode()
	}

	ctx, span := observability.StartClientSpan(ctx, "opensky."+endpoint,
		attribute.String("http.request.method", http.MethodGet),
		attribute.String("url.path", path),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() { metrics.ObserveUpstream(endpoint, outcome, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, URL: urlStr, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debug("Fetching OpenSky data", logger.String("endpoint", endpoint), logger.String("url", urlStr))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, URL: urlStr, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnapshotLimit))
		fe := &FetchError{
			Endpoint:   endpoint,
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       string(body),
		}
		if resp.StatusCode == http.StatusNotFound {
			fe.Err = ErrNotFound
		}
		return fe
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Endpoint: endpoint, URL: urlStr, Err: fmt.Errorf("failed to parse JSON: %w", err)}
	}

	outcome = metrics.OutcomeOK
	return nil
}

// logFailure logs what is known about a failed call: the response when one
// arrived, otherwise the request that was attempted.
func (c *Client) logFailure(endpoint string, err error) {
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("OpenSky request cancelled", logger.String("endpoint", endpoint), logger.Error(err))
		return
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		c.logger.Error("OpenSky request failed", logger.String("endpoint", endpoint), logger.Error(err))
		return
	}

	if fe.StatusCode != 0 {
		log := c.logger.Error
		if errors.Is(fe, ErrNotFound) {
			log = c.logger.Debug
		}
		log("OpenSky responded with an error",
			logger.String("endpoint", endpoint),
			logger.Int("status_code", fe.StatusCode),
			logger.String("url", fe.URL),
			logger.Any("headers", fe.Header),
			logger.String("body", fe.Body),
		)
		return
	}

	c.logger.Error("OpenSky request failed without a response",
		logger.String("endpoint", endpoint),
		logger.String("url", fe.URL),
		logger.Error(fe.Err),
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
