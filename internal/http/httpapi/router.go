package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portraitlab/internal/http/handlers"
	"portraitlab/internal/middleware"
)

// RouterOptions tunes the cross-cutting middleware of the API surface.
type RouterOptions struct {
	AllowedOrigins  []string
	CreateRunLimit  int
	CreateRunWindow time.Duration
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	if opts.CreateRunLimit <= 0 {
		opts.CreateRunLimit = 30
	}
	if opts.CreateRunWindow <= 0 {
		opts.CreateRunWindow = time.Minute
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/runs", func(r chi.Router) {
		r.With(middleware.RateLimit(opts.CreateRunLimit, opts.CreateRunWindow)).Post("/", app.CreateRun)
		r.Get("/", app.ListRuns)
		r.Get("/{run_id}", app.GetRun)
		r.Get("/{run_id}/results", app.RunResults)
		r.Get("/{run_id}/download", app.DownloadRun)
		r.Post("/{run_id}/pause", app.PauseRun)
		r.Post("/{run_id}/resume", app.ResumeRun)
		r.Post("/{run_id}/stop", app.StopRun)
	})

	r.Put("/v1/results/{result_id}/score", app.ScoreResult)
	r.Put("/v1/credentials/{provider}", app.SetCredential)

	return r
}
