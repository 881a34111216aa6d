package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tobimartins/servicehub-backend/api/controllers"
	paymentcontrollers "github.com/tobimartins/servicehub-backend/api/controllers/payments"
	webhookcontrollers "github.com/tobimartins/servicehub-backend/api/controllers/webhooks"
	"github.com/tobimartins/servicehub-backend/api/middleware"
	internalwebhooks "github.com/tobimartins/servicehub-backend/internal/webhooks"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
	"github.com/tobimartins/servicehub-backend/pkg/redis"
)

// Pinger reports backend liveness for the readiness probe.
type Pinger = controllers.Pinger

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP Pinger,
	cache Pinger,
	idemStore redis.IdempotencyStore,
	promRegistry *prometheus.Registry,
	paymentsService paymentcontrollers.Service,
	webhookService *internalwebhooks.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Provider callbacks authenticate with payload signatures, not bearer
	// tokens, so they sit outside the auth stack.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/{provider}", webhookcontrollers.Provider(webhookService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/payments", func(r chi.Router) {
			r.Post("/", paymentcontrollers.Create(paymentsService, logg))
			r.Get("/", paymentcontrollers.List(paymentsService, logg))
			r.Get("/verify", paymentcontrollers.Verify(paymentsService, logg))
			r.Get("/{paymentId}", paymentcontrollers.Detail(paymentsService, logg))
			r.Post("/{reference}/cancel", paymentcontrollers.Cancel(paymentsService, logg))
		})

		// Back-office view across all payers; the service lifts payer
		// scoping for admin actors.
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin.String(), logg))
			r.Get("/payments", paymentcontrollers.List(paymentsService, logg))
		})
	})

	return r
}
