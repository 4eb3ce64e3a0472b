package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradepost-app/tradepost-backend/api/controllers"
	"github.com/tradepost-app/tradepost-backend/api/routes"
	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/internal/disputes"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/internal/refunds"
	"github.com/tradepost-app/tradepost-backend/internal/returns"
	"github.com/tradepost-app/tradepost-backend/internal/settlement"
	"github.com/tradepost-app/tradepost-backend/pkg/config"
	"github.com/tradepost-app/tradepost-backend/pkg/db"
	"github.com/tradepost-app/tradepost-backend/pkg/logger"
	"github.com/tradepost-app/tradepost-backend/pkg/migrate"
	"github.com/tradepost-app/tradepost-backend/pkg/outbox"
	"github.com/tradepost-app/tradepost-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, readiness, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gormDB := dbClient.DB()

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	auditSvc, err := audit.NewService(audit.NewRepository(gormDB), logg)
	if err != nil {
		return routes.Services{}, err
	}

	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	refundsSvc, err := refunds.NewService(refunds.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	returnsSvc, err := returns.NewService(returns.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	disputesSvc, err := disputes.NewService(disputes.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, auditSvc)
	if err != nil {
		return routes.Services{}, err
	}

	disburser, err := settlement.NewLogDisburser(logg)
	if err != nil {
		return routes.Services{}, err
	}
	settlementSvc, err := settlement.NewService(settlement.NewRepository(gormDB), dbClient, outboxSvc, auditSvc, disburser, cfg.Settlement)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Orders:     ordersSvc,
		Refunds:    refundsSvc,
		Returns:    returnsSvc,
		Disputes:   disputesSvc,
		Settlement: settlementSvc,
		Audit:      auditSvc,
	}, nil
}
