package api

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yegors/skytrack/internal/model"
)

const (
	msgBounds  = "Bounding box coordinates must be defined and of type float!"
	msgICAO24  = "ICAO24 must be an alphanumeric string!"
	msgICAO    = "ICAO must be an alphanumeric string!"
	msgInvalid = "Invalid value"
)

// ValidationError describes one rejected request parameter
type ValidationError struct {
	Value    any    `json:"value,omitempty"`
	Msg      string `json:"msg"`
	Param    string `json:"param"`
	Location string `json:"location"`
}

type boundsRequest struct {
	LatitudeMin  string `query:"latitudeMin" validate:"required,numeric" msg:"bounds"`
	LatitudeMax  string `query:"latitudeMax" validate:"required,numeric" msg:"bounds"`
	LongitudeMin string `query:"longitudeMin" validate:"required,numeric" msg:"bounds"`
	LongitudeMax string `query:"longitudeMax" validate:"required,numeric" msg:"bounds"`
}

type flightsRequest struct {
	boundsRequest
	Predict string `query:"predict" validate:"omitempty,boolean"`
}

type flightRequest struct {
	ICAO24  string `param:"icao24" validate:"required,alphanum" msg:"icao24"`
	Predict string `query:"predict" validate:"omitempty,boolean"`
}

type airportRequest struct {
	ICAO string `param:"icao" validate:"required,alphanum" msg:"icao"`
}

var messages = map[string]string{
	"bounds": msgBounds,
	"icao24": msgICAO24,
	"icao":   msgICAO,
}

// newValidator reports fields by their request parameter name, prefixed
// with the location they are read from
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, loc := range []string{"query", "param"} {
			if name := f.Tag.Get(loc); name != "" {
				return loc + ":" + name + ":" + f.Tag.Get("msg")
			}
		}
		return ""
	})
	return v
}

func boundsFromQuery(q url.Values) boundsRequest {
	return boundsRequest{
		LatitudeMin:  q.Get("latitudeMin"),
		LatitudeMax:  q.Get("latitudeMax"),
		LongitudeMin: q.Get("longitudeMin"),
		LongitudeMax: q.Get("longitudeMax"),
	}
}

// check validates req and converts failures into envelope errors
func (h *Handler) check(req any) []ValidationError {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Msg: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toValidationError(fe))
	}
	return out
}

func toValidationError(fe validator.FieldError) ValidationError {
	loc, name, key := splitField(fe.Field())

	ve := ValidationError{
		Msg:      msgInvalid,
		Param:    name,
		Location: loc,
	}
	if m, ok := messages[key]; ok {
		ve.Msg = m
	}
	if s, ok := fe.Value().(string); ok && s != "" {
		ve.Value = s
	}
	return ve
}

// splitField undoes the tag name built by newValidator
func splitField(field string) (location, name, key string) {
	parts := strings.SplitN(field, ":", 3)
	if len(parts) != 3 {
		return "query", field, ""
	}
	location = parts[0]
	if location == "param" {
		location = "params"
	}
	return location, parts[1], parts[2]
}

// parse converts validated edges. Numerals too large for a float64 are
// rejected like any other malformed edge.
func (b boundsRequest) parse() (model.Bounds, []ValidationError) {
	var bounds model.Bounds
	edges := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"latitudeMin", b.LatitudeMin, &bounds.LatitudeMin},
		{"latitudeMax", b.LatitudeMax, &bounds.LatitudeMax},
		{"longitudeMin", b.LongitudeMin, &bounds.LongitudeMin},
		{"longitudeMax", b.LongitudeMax, &bounds.LongitudeMax},
	}

	var errs []ValidationError
	for _, e := range edges {
		v, err := strconv.ParseFloat(e.raw, 64)
		if err != nil {
			errs = append(errs, ValidationError{Value: e.raw, Msg: msgBounds, Param: e.name, Location: "query"})
			continue
		}
		*e.dst = v
	}
	return bounds, errs
}

// isTrue reads an already validated boolean flag
func isTrue(raw string) bool {
	v, _ := strconv.ParseBool(raw)
	return v
}
