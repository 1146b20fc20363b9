package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkhouse/backoffice/api/controllers"
	activitycontrollers "github.com/inkhouse/backoffice/api/controllers/activity"
	balancecontrollers "github.com/inkhouse/backoffice/api/controllers/balances"
	customercontrollers "github.com/inkhouse/backoffice/api/controllers/customers"
	ordercontrollers "github.com/inkhouse/backoffice/api/controllers/orders"
	reportcontrollers "github.com/inkhouse/backoffice/api/controllers/reports"
	"github.com/inkhouse/backoffice/api/middleware"
	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/balances"
	"github.com/inkhouse/backoffice/internal/customers"
	"github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/internal/reports"
	"github.com/inkhouse/backoffice/pkg/config"
	"github.com/inkhouse/backoffice/pkg/logger"
	pkgredis "github.com/inkhouse/backoffice/pkg/redis"
)

// Deps carries everything the router wires into handlers. IdempotencyStore
// may be nil when Redis is not configured.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	Readiness        map[string]controllers.Pinger
	Gatherer         prometheus.Gatherer
	IdempotencyStore pkgredis.IdempotencyStore
	Customers        customers.Service
	Orders           orders.Service
	Balances         balances.Service
	Activity         activity.Service
	Reports          reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	var timeout time.Duration
	var origins []string
	idempotencyRequired := false
	if cfg != nil {
		timeout = cfg.App.RequestTimeout
		origins = cfg.Ledger.CORSAllowedOrigins
		idempotencyRequired = cfg.Ledger.IdempotencyRequired
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(origins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Readiness))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(d.IdempotencyStore, logg, idempotencyRequired))

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", customercontrollers.Create(d.Customers, logg))
			r.Get("/", customercontrollers.List(d.Customers, logg))
			r.Route("/{customerId}", func(r chi.Router) {
				r.Get("/", customercontrollers.Get(d.Customers, logg))
				r.Post("/deactivate", customercontrollers.Deactivate(d.Customers, logg))
				r.Get("/orders", ordercontrollers.ListByCustomer(d.Orders, logg))
				r.Get("/balance", balancecontrollers.Summary(d.Balances, logg))
				r.Post("/previous-balance", balancecontrollers.AddPreviousBalance(d.Balances, logg))
				r.Post("/balance-payments", balancecontrollers.AddBalancePayment(d.Balances, logg))
				r.Post("/settlements", balancecontrollers.Settle(d.Balances, logg))
				r.Get("/statement.xlsx", reportcontrollers.StatementXLSX(d.Reports, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(d.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Summary(d.Orders, logg))
				r.Delete("/", ordercontrollers.Delete(d.Orders, logg))
				r.Post("/payments", ordercontrollers.AddPayment(d.Orders, logg))
				r.Post("/status", ordercontrollers.TransitionStatus(d.Orders, logg))
			})
		})

		r.Get("/activity/{subjectType}/{subjectId}", activitycontrollers.List(d.Activity, logg))
	})

	return r
}
