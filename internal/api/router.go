package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yegors/skytrack/internal/metrics"
	"github.com/yegors/skytrack/internal/observability"
	"github.com/yegors/skytrack/pkg/logger"
)

// RouterConfig controls the HTTP surface
type RouterConfig struct {
	CORSAllowedOrigins []string
	StaticDir          string // empty disables the front-end
}

// Router wires the REST handlers, the view WebSocket and metrics
type Router struct {
	handler   *Handler
	wsHandler http.HandlerFunc
	static    *StaticFileHandler
	cfg       RouterConfig
	logger    *logger.Logger
}

// NewRouter creates the router. wsHandler upgrades /ws connections and may
// be nil.
func NewRouter(tracker Tracker, views ViewCounter, wsHandler http.HandlerFunc, cfg RouterConfig, loggerObj *logger.Logger) *Router {
	h := NewHandler(tracker, views, loggerObj)

	var static *StaticFileHandler
	if cfg.StaticDir != "" {
		static = NewStaticFileHandler(cfg.StaticDir, h.NotFound, loggerObj)
	}

	return &Router{
		handler:   h,
		wsHandler: wsHandler,
		static:    static,
		cfg:       cfg,
		logger:    loggerObj.Named("router"),
	}
}

// Routes builds the handler tree
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(rt.handler.NotFound)
	r.MethodNotAllowed(rt.handler.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/flights", rt.handler.GetFlights)
		r.Get("/flights/{icao24}", rt.handler.GetFlight)
		r.Get("/airports", rt.handler.GetAirports)
		r.Get("/airports/{icao}", rt.handler.GetAirport)
	})

	r.Handle("/metrics", metrics.Handler())

	if rt.wsHandler != nil {
		r.Get("/ws", rt.wsHandler)
	}

	if rt.static != nil {
		r.Handle("/*", rt.static)
		rt.logger.Info("Serving front-end", logger.String("dir", rt.cfg.StaticDir))
	}

	return r
}
