package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/observability"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups what the router serves. Nil services disable their routes.
type Deps struct {
	Sections   *service.SectionService
	Onboarding *service.OnboardingService
	Home       *service.HomeService
	Tokens     *service.TokenService

	// Checked by /healthz.
	Backend    Pinger
	StateStore Pinger

	CORSOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Backend, deps.StateStore))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if deps.Tokens == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "authentication not configured")
			}))
			return
		}
		r.Use(JWTAuthMiddleware(deps.Tokens, logger))

		r.Get("/metrics/dashboard", dashboardMetricsHandler(metrics))

		if deps.Sections != nil {
			r.Get("/catalog", listCatalogHandler(deps.Sections))
			r.Get("/catalog/{section}", getCatalogSectionHandler(deps.Sections, logger))

			r.Route("/sections/{section}", func(r chi.Router) {
				r.Get("/board", boardHandler(deps.Sections, logger))
				r.Post("/board/click", clickHandler(deps.Sections, logger))
				r.Post("/editor", editorHandler(deps.Sections, logger))
				r.Post("/records", createRecordHandler(deps.Sections, logger))
				r.Put("/records/{recordId}", updateRecordHandler(deps.Sections, logger))
				r.Delete("/records/{recordId}", deleteRecordHandler(deps.Sections, logger))
			})
		}

		if deps.Home != nil && deps.Sections != nil {
			r.Get("/home", homeHandler(deps.Home, deps.Sections, logger))
		}

		if deps.Onboarding != nil {
			r.Route("/onboarding", func(r chi.Router) {
				r.Get("/", wizardViewHandler(deps.Onboarding, logger))
				r.Delete("/", wizardResetHandler(deps.Onboarding, logger))
				r.Post("/steps/{step}/skip", wizardSkipHandler(deps.Onboarding, logger))
				r.Post("/steps/{step}/primary", wizardPrimaryHandler(deps.Onboarding, logger))
				r.Post("/steps/{step}/back", wizardBackHandler(deps.Onboarding, logger))
				r.Post("/close", wizardCloseHandler(deps.Onboarding, logger))
				r.Post("/notifications/{id}/go", notificationGoHandler(deps.Onboarding, logger))
				r.Delete("/notifications/{id}", notificationDismissHandler(deps.Onboarding, logger))
			})
		}
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(backend, stateStore Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "hub-bfa", Status: "healthy", LastChecked: now},
		}
		check := func(name string, p Pinger, failed string) {
			if p == nil {
				return
			}
			start := time.Now()
			status := "healthy"
			if err := p.Ping(ctx); err != nil {
				status = failed
			}
			services = append(services, domain.ServiceHealth{
				Name: name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}
		check("household-backend", backend, "degraded")
		check("onboarding-store", stateStore, "unhealthy")

		overall := "healthy"
		code := http.StatusOK
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				code = http.StatusServiceUnavailable
				break
			}
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, code, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func dashboardMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
