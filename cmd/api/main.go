package main

import (
	"context"
	"net/http"
	"os"

	"github.com/amontesdeoca/equiptrack-backend/api/routes"
	"github.com/amontesdeoca/equiptrack-backend/internal/assignments"
	"github.com/amontesdeoca/equiptrack-backend/internal/feedback"
	"github.com/amontesdeoca/equiptrack-backend/internal/inventory"
	"github.com/amontesdeoca/equiptrack-backend/internal/requests"
	"github.com/amontesdeoca/equiptrack-backend/internal/staff"
	"github.com/amontesdeoca/equiptrack-backend/pkg/config"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db"
	"github.com/amontesdeoca/equiptrack-backend/pkg/logger"
	"github.com/amontesdeoca/equiptrack-backend/pkg/metrics"
	"github.com/amontesdeoca/equiptrack-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

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

	conn := dbClient.DB()
	inventoryRepo := inventory.NewRepository(conn)
	assignmentsRepo := assignments.NewRepository(conn)
	requestsRepo := requests.NewRepository(conn)
	staffRepo := staff.NewRepository(conn)
	feedbackRepo := feedback.NewRepository(conn)

	inventoryService, err := inventory.NewService(dbClient, inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	assignmentsService, err := assignments.NewService(dbClient, assignmentsRepo, inventoryRepo, staffRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignments service", err)
		os.Exit(1)
	}
	requestsService, err := requests.NewService(dbClient, requestsRepo, inventoryRepo, assignmentsRepo, staffRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}
	staffService, err := staff.NewService(staffRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create staff service", err)
		os.Exit(1)
	}
	feedbackService, err := feedback.NewService(feedbackRepo, staffRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create feedback service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			inventoryService,
			assignmentsService,
			requestsService,
			staffService,
			feedbackService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
