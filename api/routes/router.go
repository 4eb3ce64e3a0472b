package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost-app/tradepost-backend/api/controllers"
	"github.com/tradepost-app/tradepost-backend/api/middleware"
	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/internal/disputes"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/internal/refunds"
	"github.com/tradepost-app/tradepost-backend/internal/returns"
	"github.com/tradepost-app/tradepost-backend/internal/settlement"
	"github.com/tradepost-app/tradepost-backend/pkg/config"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	"github.com/tradepost-app/tradepost-backend/pkg/logger"
	"github.com/tradepost-app/tradepost-backend/pkg/redis"
)

// Services groups everything the router mounts.
type Services struct {
	Orders     orders.Service
	Refunds    refunds.Service
	Returns    returns.Service
	Disputes   disputes.Service
	Settlement settlement.Service
	Audit      audit.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	writePolicy := middleware.NewRateLimitPolicy(
		"writes",
		cfg.RateLimit.WriteWindow,
		cfg.RateLimit.WriteIPLimit,
		cfg.RateLimit.WriteUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(writePolicy, redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(svcs.Orders, logg))
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
			r.Post("/{orderID}/transition", controllers.TransitionOrder(svcs.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Get("/{orderID}/refunds", controllers.ListOrderRefunds(svcs.Refunds, logg))
			r.Get("/{orderID}/returns", controllers.ListOrderReturns(svcs.Returns, logg))
			r.Get("/{orderID}/disputes", controllers.ListOrderDisputes(svcs.Disputes, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Post("/", controllers.RequestRefund(svcs.Refunds, logg))
			r.Get("/{refundID}", controllers.GetRefund(svcs.Refunds, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleAdmin), logg)).
				Post("/{refundID}/approve", controllers.ApproveRefund(svcs.Refunds, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleAdmin), logg)).
				Post("/{refundID}/reject", controllers.RejectRefund(svcs.Refunds, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", controllers.RequestReturn(svcs.Returns, logg))
			r.Get("/{returnID}", controllers.GetReturn(svcs.Returns, logg))
			r.Post("/{returnID}/transition", controllers.TransitionReturn(svcs.Returns, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", controllers.OpenDispute(svcs.Disputes, logg))
			r.Get("/{disputeID}", controllers.GetDispute(svcs.Disputes, logg))
			r.Post("/{disputeID}/status", controllers.SetDisputeStatus(svcs.Disputes, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleAdmin), logg)).
				Post("/{disputeID}/resolve", controllers.ResolveDispute(svcs.Disputes, logg))
		})

		r.Get("/sellers/me/balance", controllers.SellerBalance(svcs.Settlement, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Post("/", controllers.RequestPayout(svcs.Settlement, logg))
			r.Get("/", controllers.ListPayouts(svcs.Settlement, logg))
			r.Get("/{payoutID}", controllers.GetPayout(svcs.Settlement, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleAdmin), logg)).
				Post("/{payoutID}/process", controllers.ProcessPayout(svcs.Settlement, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Get("/entity/{entityType}/{entityID}", controllers.ListEntityAudit(svcs.Audit, logg))
			r.Get("/actor/{actorID}", controllers.ListActorAudit(svcs.Audit, logg))
		})
	})

	return r
}
