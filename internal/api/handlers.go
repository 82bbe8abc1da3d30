package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/pkg/logger"
)

// Tracker is the data source behind the REST endpoints
type Tracker interface {
	Flights(ctx context.Context, bounds model.Bounds, predict bool) ([]model.Flight, error)
	Flight(ctx context.Context, icao24 string, predict bool) *model.Flight
	Airports(ctx context.Context, bounds model.Bounds) []model.AirportSummary
	Airport(ctx context.Context, icao string) *model.Airport
}

// ViewCounter reports how many map views are connected
type ViewCounter interface {
	ClientCount() int
}

// Response is the envelope of every API answer. Error is null unless the
// request failed validation.
type Response struct {
	Error []ValidationError `json:"error"`
	Data  any               `json:"data"`
}

// NotFoundResponse answers unknown routes
type NotFoundResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Path   string `json:"path"`
}

// Handler contains the API handlers
type Handler struct {
	tracker   Tracker
	views     ViewCounter
	validate  *validator.Validate
	logger    *logger.Logger
	startedAt time.Time
}

// NewHandler creates a new API handler. views may be nil.
func NewHandler(tracker Tracker, views ViewCounter, loggerObj *logger.Logger) *Handler {
	return &Handler{
		tracker:   tracker,
		views:     views,
		validate:  newValidator(),
		logger:    loggerObj.Named("api-handler"),
		startedAt: time.Now(),
	}
}

// GetFlights returns the airborne flights inside the requested bounds.
// predict is a real boolean: predict=false or predict=0 turns extrapolation
// off. Clients that send a bare predict=<anything> expecting it to mean
// "on" get a validation error instead.
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := flightsRequest{
		boundsRequest: boundsFromQuery(q),
		Predict:       q.Get("predict"),
	}

	bounds, errs := h.validateBounds(&req, req.boundsRequest)
	if errs != nil {
		WriteJSON(w, http.StatusOK, Response{Error: errs, Data: []model.Flight{}})
		return
	}

	start := time.Now()
	flights, err := h.tracker.Flights(r.Context(), bounds, isTrue(req.Predict))
	if err != nil {
		h.logger.Warn("Flight lookup aborted", logger.Error(err))
	}
	if flights == nil {
		flights = []model.Flight{}
	}

	h.logger.Debug("GetFlights completed",
		logger.Int("flight_count", len(flights)),
		logger.Duration("duration", time.Since(start)))

	WriteJSON(w, http.StatusOK, Response{Data: flights})
}

// GetFlight returns one flight enriched with its trajectory and route.
// predict follows the same boolean rules as GetFlights.
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	req := flightRequest{
		ICAO24:  chi.URLParam(r, "icao24"),
		Predict: r.URL.Query().Get("predict"),
	}
	if errs := h.check(&req); errs != nil {
		WriteJSON(w, http.StatusOK, Response{Error: errs, Data: nil})
		return
	}

	flight := h.tracker.Flight(r.Context(), req.ICAO24, isTrue(req.Predict))
	if flight == nil {
		h.logger.Debug("Flight not found", logger.String("icao24", req.ICAO24))
	}

	WriteJSON(w, http.StatusOK, Response{Data: flight})
}

// GetAirports returns the airports inside the requested bounds
func (h *Handler) GetAirports(w http.ResponseWriter, r *http.Request) {
	req := boundsFromQuery(r.URL.Query())

	bounds, errs := h.validateBounds(&req, req)
	if errs != nil {
		WriteJSON(w, http.StatusOK, Response{Error: errs, Data: []model.AirportSummary{}})
		return
	}

	airports := h.tracker.Airports(r.Context(), bounds)
	if airports == nil {
		airports = []model.AirportSummary{}
	}

	WriteJSON(w, http.StatusOK, Response{Data: airports})
}

// GetAirport returns one airport's detail
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	req := airportRequest{ICAO: chi.URLParam(r, "icao")}
	if errs := h.check(&req); errs != nil {
		WriteJSON(w, http.StatusOK, Response{Error: errs, Data: nil})
		return
	}

	WriteJSON(w, http.StatusOK, Response{Data: h.tracker.Airport(r.Context(), req.ICAO)})
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.views != nil {
		response["views"] = h.views.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// NotFound answers every unknown route
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NotFoundResponse{
		Code:   http.StatusNotFound,
		Status: "ROUTE_NOT_FOUND",
		Path:   r.URL.RequestURI(),
	})
}

// validateBounds checks req and parses the four bounding box edges
func (h *Handler) validateBounds(req any, b boundsRequest) (model.Bounds, []ValidationError) {
	if errs := h.check(req); errs != nil {
		return model.Bounds{}, errs
	}
	return b.parse()
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
