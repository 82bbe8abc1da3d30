// Package telemetry converts OpenSky records into the canonical model. None of
// the functions fail: missing, null or mistyped slots become unknown values.
package telemetry

import (
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/internal/opensky"
)

// State vector slot indexes
const (
	stateICAO24 = iota
	stateCallsign
	stateOriginCountry
	stateTimePosition
	stateLastContact
	stateLongitude
	stateLatitude
	stateBaroAltitude
	stateOnGround
	stateVelocity
	stateTrueTrack
	stateVerticalRate
	stateSensors
	stateGeoAltitude
	stateSquawk
	stateSPI
	statePositionSource
)

// Path point slot indexes
const (
	pathTime = iota
	pathLatitude
	pathLongitude
	pathBaroAltitude
	pathTrueTrack
	pathOnGround
)

// NormalizeFlight converts a state vector into a Flight. Coordinates are
// present when either longitude or latitude is known and keep both slots;
// altitude is present when either barometric or geometric altitude is known.
func NormalizeFlight(raw opensky.StateVector) model.Flight {
	lon := floatAt(raw, stateLongitude)
	lat := floatAt(raw, stateLatitude)
	baro := floatAt(raw, stateBaroAltitude)
	geo := floatAt(raw, stateGeoAltitude)

	f := model.Flight{
		ID:             valueOf(stringAt(raw, stateICAO24)),
		Callsign:       stringAt(raw, stateCallsign),
		OriginCountry:  valueOf(stringAt(raw, stateOriginCountry)),
		TimePosition:   intAt(raw, stateTimePosition),
		LastContact:    valueOf(intAt(raw, stateLastContact)),
		Grounded:       valueOf(boolAt(raw, stateOnGround)),
		Velocity:       floatAt(raw, stateVelocity),
		Direction:      floatAt(raw, stateTrueTrack),
		VerticalRate:   floatAt(raw, stateVerticalRate),
		Squawk:         stringAt(raw, stateSquawk),
		SPI:            valueOf(boolAt(raw, stateSPI)),
		Sensors:        intsAt(raw, stateSensors),
		PositionSource: int(valueOf(intAt(raw, statePositionSource))),
	}

	if lon != nil || lat != nil {
		f.Coordinates = &model.Coordinates{Latitude: lat, Longitude: lon}
	}
	if geo != nil || baro != nil {
		f.Altitude = &model.Altitude{Barometric: baro, Geometric: geo}
	}

	return f
}

// NormalizeTrajectoryPoint converts one track waypoint. Waypoints carry only
// barometric altitude.
func NormalizeTrajectoryPoint(raw opensky.PathPoint) model.TrajectoryPoint {
	p := model.TrajectoryPoint{
		Time: valueOf(intAt(raw, pathTime)),
		Coordinates: model.Coordinates{
			Latitude:  floatAt(raw, pathLatitude),
			Longitude: floatAt(raw, pathLongitude),
		},
		Direction: floatAt(raw, pathTrueTrack),
		Grounded:  boolAt(raw, pathOnGround),
	}

	if baro := floatAt(raw, pathBaroAltitude); baro != nil {
		p.Altitude = &model.Altitude{Barometric: baro}
	}

	return p
}

// NormalizeTrajectory converts a track, nil in nil out
func NormalizeTrajectory(raw *opensky.Track) *model.Trajectory {
	if raw == nil {
		return nil
	}

	paths := make([]model.TrajectoryPoint, 0, len(raw.Path))
	for _, p := range raw.Path {
		paths = append(paths, NormalizeTrajectoryPoint(p))
	}

	return &model.Trajectory{
		StartTime: int64(raw.StartTime),
		EndTime:   int64(raw.EndTime),
		Paths:     paths,
	}
}

// NormalizeRoute picks departure and arrival from a route. Routes with fewer
// than two airports are treated as unknown.
func NormalizeRoute(raw *opensky.Route) *model.Route {
	if raw == nil || len(raw.Route) < 2 {
		return nil
	}
	return &model.Route{
		Departure: raw.Route[0],
		Arrival:   raw.Route[1],
	}
}

// NormalizeAirport flattens the nested position of an airport record
func NormalizeAirport(raw opensky.Airport) model.Airport {
	return model.Airport{
		ICAO: raw.ICAO,
		IATA: raw.IATA,
		Name: raw.Name,
		Type: raw.Type,
		Coordinates: &model.AirportCoordinates{
			Latitude:  raw.Position.Latitude,
			Longitude: raw.Position.Longitude,
		},
		City:      raw.City,
		Country:   raw.Country,
		Wikipedia: raw.Wikipedia,
	}
}

// NormalizeAirportSummary is the list form of NormalizeAirport
func NormalizeAirportSummary(raw opensky.Airport) model.AirportSummary {
	return model.AirportSummary{
		ICAO: raw.ICAO,
		IATA: raw.IATA,
		Name: raw.Name,
		Type: raw.Type,
		Coordinates: model.AirportCoordinates{
			Latitude:  raw.Position.Latitude,
			Longitude: raw.Position.Longitude,
		},
	}
}

// NormalizePastFlight keeps the identifying fields of a past flight
func NormalizePastFlight(raw opensky.PastFlight) model.PastFlight {
	return model.PastFlight{
		ICAO24:              raw.ICAO24,
		Callsign:            raw.Callsign,
		EstDepartureAirport: raw.EstDepartureAirport,
		EstArrivalAirport:   raw.EstArrivalAirport,
		FirstSeen:           raw.FirstSeen,
		LastSeen:            raw.LastSeen,
	}
}
