package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/catalog"
	"github.com/mpapenbr/laptime-logger/pkg/metrics"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/history"
	"github.com/mpapenbr/laptime-logger/pkg/service/laptime"
	"github.com/mpapenbr/laptime-logger/pkg/service/leaderboard"
	"github.com/mpapenbr/laptime-logger/pkg/service/profile"
	"github.com/mpapenbr/laptime-logger/pkg/service/stats"
	"github.com/mpapenbr/laptime-logger/pkg/service/track"
)

// CatalogProvider looks up makes and models of an external vehicle catalog
type CatalogProvider interface {
	Makes(ctx context.Context) ([]string, error)
	Models(ctx context.Context, carMake string, year int) ([]catalog.Vehicle, error)
}

// Services bundles the operations exposed by the HTTP API
type Services struct {
	Tracks      *track.Service
	Leaderboard *leaderboard.Service
	LapTimes    *laptime.Service
	History     *history.Service
	Profiles    *profile.Service
	Stats       *stats.Service
	CarModels   *carmodel.Service
	Catalog     CatalogProvider
}

type Option func(*Server)

func WithServices(services Services) Option {
	return func(s *Server) {
		s.svc = services
	}
}

func WithAuthProvider(p auth.Provider) Option {
	return func(s *Server) {
		s.auth = p
	}
}

// WithCORSOrigins restricts cross origin requests to the given origins.
// No origins allow any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithHealthCheck registers a check which must pass for /healthz to report ok
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.healthCheck = check
	}
}

// WithLeaderboardTopN sets the entries per layout if the request has no top parameter
func WithLeaderboardTopN(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.topN = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

type Server struct {
	svc         Services
	auth        auth.Provider
	corsOrigins []string
	healthCheck func(ctx context.Context) error
	topN        int
	log         *log.Logger
}

func NewServer(opts ...Option) *Server {
	ret := &Server{
		topN: leaderboard.DefaultTopN,
		log:  log.Default().Named("http"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.auth == nil {
		ret.auth = auth.Chain()
	}
	return ret
}

// Handler returns the router serving the JSON API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestID,
		s.recovery,
		s.logging,
		instrument,
		newCORS(s.corsOrigins).Handler,
		chimid.Compress(5),
	)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth.Middleware(s.auth))

		api.Get("/tracks", s.listTracks)
		api.Get("/tracks/{slug}", s.getTrack)
		api.Get("/tracks/{slug}/leaderboard", s.trackLeaderboard)
		api.Get("/layouts", s.listLayouts)
		api.Get("/users/{id}/stats", s.userStats)
		api.Get("/cars", s.listCars)
		api.Get("/cars/search", s.searchCars)
		api.Get("/catalog/makes", s.catalogMakes)
		api.Get("/catalog/models", s.catalogModels)
		api.Get("/tires", s.listTires)
		api.Get("/conditions/{id}", s.getCondition)

		api.Group(func(protected chi.Router) {
			protected.Use(auth.RequireIdentity)

			protected.Post("/tracks", s.createTrack)
			protected.Post("/tracks/{slug}/layouts", s.createLayout)
			protected.Post("/admin/seed-layouts", s.seedLayouts)

			protected.Post("/laptimes", s.recordLapTime)
			protected.Post("/laptimes/{id}/verify", s.verifyLapTime)
			protected.Post("/laptimes/{id}/reject", s.rejectLapTime)

			protected.Get("/me/history", s.myHistory)
			protected.Get("/me/cars", s.myCars)
			protected.Get("/me/tracks", s.myTracks)
			protected.Put("/me/bio", s.updateBio)

			protected.Post("/cars", s.resolveCar)
			protected.Post("/tires", s.createTire)
			protected.Post("/conditions", s.createCondition)
		})
	})
	return r
}

// HTTPServer wraps the handler so that HTTP/2 clients without TLS are served too
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			s.log.Warn("health check failed", log.ErrorField(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
