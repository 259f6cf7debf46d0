package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"colorizer/internal/http/handlers"
	"colorizer/internal/infra"
	"colorizer/internal/middleware"
)

// Options configures the cross-cutting middleware of the router.
type Options struct {
	Logger        *infra.Logger
	CORSOrigins   []string
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	// RateLimiter guards the /api routes when set.
	RateLimiter  *middleware.RateLimiter
	Metrics      http.Handler
	TopUpEnabled bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(*logger),
	)
	r.NotFound(app.NotFound)
	r.MethodNotAllowed(app.MethodNotAllowed)

	// Health
	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		r.Post("/process-image", app.ProcessImage)
		r.Post("/validate-file", app.ValidateFile)
		r.Get("/credits/{userId}", app.GetCredits)
		if opts.TopUpEnabled {
			r.Post("/credits/{userId}", app.TopUpCredits)
		}
		r.Get("/stats", app.Stats)
	})

	return r
}
