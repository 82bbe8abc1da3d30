package view

import (
	"testing"

	"github.com/yegors/skytrack/internal/model"
)

func TestStateTransitionsDoNotMutate(t *testing.T) {
	var s State
	b := model.Bounds{LatitudeMin: 40, LatitudeMax: 50, LongitudeMin: 0, LongitudeMax: 10}

	moved := s.WithViewport(LatLon{Latitude: 45, Longitude: 5}, 7, b)
	if s.Bounds != nil {
		t.Fatal("WithViewport mutated the receiver")
	}
	if moved.Zoom != 7 || *moved.Bounds != b {
		t.Errorf("moved = %+v", moved)
	}

	selected := moved.SelectFlight("abc123")
	if moved.Selected != nil {
		t.Fatal("SelectFlight mutated the receiver")
	}
	if selected.Selected == nil || selected.Selected.Kind != KindFlight || selected.Selected.ID != "abc123" {
		t.Errorf("selected = %+v", selected.Selected)
	}

	airport := selected.SelectAirport("EGLL")
	if airport.Selected.Kind != KindAirport || airport.Selected.ID != "EGLL" {
		t.Errorf("airport selection = %+v", airport.Selected)
	}
	if selected.Selected.Kind != KindFlight {
		t.Error("SelectAirport replaced the earlier selection in place")
	}

	if cleared := airport.ClearSelection(); cleared.Selected != nil {
		t.Error("selection survived ClearSelection")
	}
}

func TestBoundsChanged(t *testing.T) {
	a := model.Bounds{LatitudeMin: 1, LatitudeMax: 2, LongitudeMin: 3, LongitudeMax: 4}
	b := a
	b.LongitudeMax = 5

	var empty State
	withA := empty.WithViewport(LatLon{}, 5, a)

	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"both empty", empty, empty, false},
		{"first viewport", empty, withA, true},
		{"same bounds new zoom", withA, withA.WithViewport(LatLon{Latitude: 1}, 9, a), false},
		{"moved", withA, withA.WithViewport(LatLon{}, 5, b), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.BoundsChanged(tt.to); got != tt.want {
				t.Errorf("BoundsChanged = %v, want %v", got, tt.want)
			}
		})
	}
}
