package opensky

// StateVector is one positional record from /states/all. Slots are decoded
// as generic JSON values (string, float64, bool, []any or nil) and only
// interpreted by the telemetry normalizer.
//
//	0 icao24, 1 callsign, 2 origin country, 3 time position, 4 last contact,
//	5 longitude, 6 latitude, 7 baro altitude, 8 on ground, 9 velocity,
//	10 true track, 11 vertical rate, 12 sensors, 13 geo altitude, 14 squawk,
//	15 spi, 16 position source, 17 category
type StateVector []any

// PathPoint is one waypoint from /tracks/all:
//
//	0 time, 1 latitude, 2 longitude, 3 baro altitude, 4 true track, 5 on ground
type PathPoint []any

// statesResponse is the /states/all payload
type statesResponse struct {
	Time   int64         `json:"time"`
	States []StateVector `json:"states"`
}

// Track is the /tracks/all payload
type Track struct {
	ICAO24    string      `json:"icao24"`
	Callsign  string      `json:"callsign"`
	StartTime float64     `json:"startTime"`
	EndTime   float64     `json:"endTime"`
	Path      []PathPoint `json:"path"`
}

// Position is the nested geographic position of an airport
type Position struct {
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Altitude   float64 `json:"altitude"`
	Reasonable bool    `json:"reasonable"`
}

// Airport is returned by /airports and /airports/region. The region
// endpoint leaves the extended fields empty.
type Airport struct {
	ICAO     string   `json:"icao"`
	IATA     string   `json:"iata"`
	Name     string   `json:"name"`
	City     *string  `json:"city"`
	Type     *string  `json:"type"`
	Position Position `json:"position"`

	Continent    *string `json:"continent"`
	Country      *string `json:"country"`
	Region       *string `json:"region"`
	Municipality *string `json:"municipality"`
	GPSCode      *string `json:"gpsCode"`
	Homepage     *string `json:"homepage"`
	Wikipedia    *string `json:"wikipedia"`
}

// Route is the /routes payload
type Route struct {
	Callsign     string   `json:"callsign"`
	Route        []string `json:"route"`
	UpdateTime   int64    `json:"updateTime"`
	OperatorIATA string   `json:"operatorIata"`
	FlightNumber int      `json:"flightNumber"`
}

// PastFlight is one entry from /flights/arrival or /flights/departure
type PastFlight struct {
	ICAO24                           string `json:"icao24"`
	FirstSeen                        int64  `json:"firstSeen"`
	LastSeen                         int64  `json:"lastSeen"`
	EstDepartureAirport              string `json:"estDepartureAirport"`
	EstArrivalAirport                string `json:"estArrivalAirport"`
	Callsign                         string `json:"callsign"`
	EstDepartureAirportHorizDistance int    `json:"estDepartureAirportHorizDistance"`
	EstDepartureAirportVertDistance  int    `json:"estDepartureAirportVertDistance"`
	EstArrivalAirportHorizDistance   int    `json:"estArrivalAirportHorizDistance"`
	EstArrivalAirportVertDistance    int    `json:"estArrivalAirportVertDistance"`
	DepartureAirportCandidatesCount  int    `json:"departureAirportCandidatesCount"`
	ArrivalAirportCandidatesCount    int    `json:"arrivalAirportCandidatesCount"`
}
