// Package view holds the state of one connected map view and drives its
// refresh loop and animation from client messages.
package view

import "github.com/yegors/skytrack/internal/model"

// Kind of selectable map entity
type Kind string

const (
	KindFlight  Kind = "flight"
	KindAirport Kind = "airport"
)

// Selection is the entity currently opened in the side panel
type Selection struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// LatLon is a plain map position
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// State is the immutable view state. It only changes through the transition
// methods, each returning a new value.
type State struct {
	Center   LatLon        `json:"center"`
	Zoom     float64       `json:"zoom"`
	Bounds   *model.Bounds `json:"bounds"`
	Selected *Selection    `json:"selected"`
}

// WithViewport moves the map
func (s State) WithViewport(center LatLon, zoom float64, bounds model.Bounds) State {
	s.Center = center
	s.Zoom = zoom
	s.Bounds = &bounds
	return s
}

// SelectFlight opens a flight
func (s State) SelectFlight(icao24 string) State {
	s.Selected = &Selection{Kind: KindFlight, ID: icao24}
	return s
}

// SelectAirport opens an airport
func (s State) SelectAirport(icao string) State {
	s.Selected = &Selection{Kind: KindAirport, ID: icao}
	return s
}

// ClearSelection closes the side panel
func (s State) ClearSelection() State {
	s.Selected = nil
	return s
}

// BoundsChanged reports whether next covers a different area than s
func (s State) BoundsChanged(next State) bool {
	switch {
	case s.Bounds == nil && next.Bounds == nil:
		return false
	case s.Bounds == nil || next.Bounds == nil:
		return true
	default:
		return *s.Bounds != *next.Bounds
	}
}

// SelectHandler is implemented by whatever reacts to entity selection
type SelectHandler interface {
	OnSelect(sel Selection)
}
