// Package model holds the canonical flight and airport entities served by
// the API and animated by view sessions. Optional values are pointers and
// serialize as JSON null.
package model

// Coordinates is a position pair. Either slot may be nil when only one of
// the two values was reported upstream.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Known reports whether both slots are set
func (c *Coordinates) Known() bool {
	return c != nil && c.Latitude != nil && c.Longitude != nil
}

// LatLon returns both values, valid only when Known is true
func (c *Coordinates) LatLon() (lat, lon float64) {
	return *c.Latitude, *c.Longitude
}

// NewCoordinates builds a fully known pair
func NewCoordinates(lat, lon float64) *Coordinates {
	return &Coordinates{Latitude: &lat, Longitude: &lon}
}

// Altitude carries barometric and geometric altitude in meters
type Altitude struct {
	Barometric *float64 `json:"barometric"`
	Geometric  *float64 `json:"geometric"`
}

// TrajectoryPoint is one waypoint of a flight's historical path
type TrajectoryPoint struct {
	Time        int64       `json:"time"`
	Coordinates Coordinates `json:"coordinates"`
	Altitude    *Altitude   `json:"altitude"`
	Direction   *float64    `json:"direction"`
	Grounded    *bool       `json:"grounded"`
}

// Trajectory is the tracked path of a flight
type Trajectory struct {
	StartTime int64             `json:"startTime"`
	EndTime   int64             `json:"endTime"`
	Paths     []TrajectoryPoint `json:"paths"`
}

// Route is the scheduled departure/arrival pair for a callsign
type Route struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
}

// Flight is the canonical state of one aircraft
type Flight struct {
	ID             string       `json:"id"` // icao24
	Callsign       *string      `json:"callsign"`
	OriginCountry  string       `json:"originCountry"`
	TimePosition   *int64       `json:"timePosition"`
	LastContact    int64        `json:"lastContact"`
	Coordinates    *Coordinates `json:"coordinates"`
	Altitude       *Altitude    `json:"altitude"`
	Grounded       bool         `json:"grounded"`
	Velocity       *float64     `json:"velocity"`  // m/s over ground
	Direction      *float64     `json:"direction"` // true track, degrees
	VerticalRate   *float64     `json:"verticalRate"`
	Squawk         *string      `json:"squawk"`
	SPI            bool         `json:"spi"`
	Sensors        []int        `json:"sensors"`
	PositionSource int          `json:"positionSource"`
	Trajectory     *Trajectory  `json:"trajectory"`
	Route          *Route       `json:"route"`

	// only set on the detail endpoint
	MagneticDirection *float64 `json:"magneticDirection,omitempty"`
}

// AirportCoordinates is always fully known for airports
type AirportCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AirportSummary is the list representation of an airport
type AirportSummary struct {
	ICAO        string             `json:"icao"`
	IATA        string             `json:"iata"`
	Name        string             `json:"name"`
	Type        *string            `json:"type"`
	Coordinates AirportCoordinates `json:"coordinates"`
}

// PastFlight is a recent arrival or departure seen at an airport
type PastFlight struct {
	ICAO24              string `json:"icao24"`
	Callsign            string `json:"callsign"`
	EstDepartureAirport string `json:"estDepartureAirport"`
	EstArrivalAirport   string `json:"estArrivalAirport"`
	FirstSeen           int64  `json:"firstSeen"`
	LastSeen            int64  `json:"lastSeen"`
}

// PastFlights groups past flights for a time window
type PastFlights struct {
	Begin   int64        `json:"begin"`
	End     int64        `json:"end"`
	Flights []PastFlight `json:"flights"`
}

// Airport is the detail representation of an airport
type Airport struct {
	ICAO             string              `json:"icao"`
	IATA             string              `json:"iata"`
	Name             string              `json:"name"`
	Type             *string             `json:"type"`
	Coordinates      *AirportCoordinates `json:"coordinates"`
	City             *string             `json:"city"`
	Country          *string             `json:"country"`
	Wikipedia        *string             `json:"wikipedia"`
	RecentDepartures *PastFlights        `json:"recentDepartures"`
	RecentArrivals   *PastFlights        `json:"recentArrivals"`
}

// Bounds is a latitude/longitude bounding box
type Bounds struct {
	LatitudeMin  float64 `json:"latitudeMin"`
	LatitudeMax  float64 `json:"latitudeMax"`
	LongitudeMin float64 `json:"longitudeMin"`
	LongitudeMax float64 `json:"longitudeMax"`
}
