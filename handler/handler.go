// Package handler provides the HTTP surface of the restaurant map server.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/stevemurr/circular-table-server/apperror"
	"github.com/stevemurr/circular-table-server/geocode"
	"github.com/stevemurr/circular-table-server/metrics"
	"github.com/stevemurr/circular-table-server/restaurant"
)

// RestaurantService is the collection behind /api/restaurants.
type RestaurantService interface {
	List(ctx context.Context) ([]restaurant.Restaurant, error)
	Search(ctx context.Context, query string) ([]restaurant.Restaurant, error)
	Create(ctx context.Context, in restaurant.CreateInput) (restaurant.Restaurant, error)
	Update(ctx context.Context, in restaurant.UpdateInput) (restaurant.Restaurant, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	// MapsAPIKey is handed to the browser client by /api/maps-config.
	MapsAPIKey     string
	AllowedOrigins []string
	// StaticDir, when set, is served at / for the browser client.
	StaticDir   string
	MetricsPath string
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	restaurants RestaurantService
	geocoder    geocode.Gateway
	metrics     *metrics.Metrics
	logger      *zap.Logger
	opts        Options
	router      *chi.Mux
}

// New creates a Handler and wires up all routes. metrics may be nil.
func New(svc RestaurantService, geo geocode.Gateway, m *metrics.Metrics, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	h := &Handler{
		restaurants: svc,
		geocoder:    geo,
		metrics:     m,
		logger:      logger,
		opts:        opts,
		router:      chi.NewRouter(),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Router exposes the underlying mux for adapters that need a *chi.Mux.
func (h *Handler) Router() *chi.Mux {
	return h.router
}

func (h *Handler) routes() {
	r := h.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.accessLog)
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     h.opts.AllowedOrigins,
		AllowedMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:     []string{"Content-Type"},
		OptionsPassthrough: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.health)

	r.Get("/api/restaurants", h.listRestaurants)
	r.Post("/api/restaurants", h.createRestaurant)
	r.Put("/api/restaurants", h.updateRestaurant)
	r.Delete("/api/restaurants", h.deleteRestaurant)
	r.Options("/api/restaurants", preflight)

	r.Get("/api/geocode", h.geocode)
	r.Options("/api/geocode", preflight)

	r.Get("/api/maps-config", h.mapsConfig)
	r.Options("/api/maps-config", preflight)

	if h.metrics != nil {
		r.Handle(h.opts.MetricsPath, h.metrics.Handler())
	}

	if h.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(h.opts.StaticDir)))
	}
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const maxBodyBytes = 1 << 20

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeAppError maps an error from the service layer to a response. Causes
// of server-side failures are logged and never sent to the client. Failures
// of upstream dependencies are logged as warnings.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch apperror.TypeOf(err) {
	case apperror.TypeValidation:
		status = http.StatusBadRequest
	case apperror.TypeNotFound:
		status = http.StatusNotFound
	}
	if status >= 500 {
		logf := h.logger.Error
		if apperror.IsUnavailable(err) {
			logf = h.logger.Warn
		}
		logf("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeError(w, status, apperror.MessageOf(err))
}

// bodyError turns a decode failure into a 400, keeping field-level
// validation messages raised while decoding.
func (h *Handler) bodyError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Type == apperror.TypeValidation {
		writeError(w, http.StatusBadRequest, appErr.Message)
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body")
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ---------- status endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) mapsConfig(w http.ResponseWriter, r *http.Request) {
	if h.opts.MapsAPIKey == "" {
		h.writeAppError(w, r, apperror.NewUnavailable("Google Maps API key not configured", geocode.ErrNotConfigured))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"apiKey": h.opts.MapsAPIKey})
}
