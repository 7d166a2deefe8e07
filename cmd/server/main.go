// Command server runs the leak-delivery HTTP API: it hands authenticated
// customers batches of salted, breached credentials and records their
// self-reported ingestion tallies.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/arc-self/leakchef-server/internal/authguard"
	"github.com/arc-self/leakchef-server/internal/cursorcache"
	"github.com/arc-self/leakchef-server/internal/delivery"
	"github.com/arc-self/leakchef-server/internal/httpapi"
	"github.com/arc-self/leakchef-server/internal/platform/config"
	"github.com/arc-self/leakchef-server/internal/platform/telemetry"
	"github.com/arc-self/leakchef-server/internal/salt"
	"github.com/arc-self/leakchef-server/internal/store"
	gocoremw "github.com/arc-self/leakchef-server/packages/go-core/middleware"
	gocoretelemetry "github.com/arc-self/leakchef-server/packages/go-core/telemetry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), "leakchef-server", cfg.OTELEndpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
			logger.Info("OTel tracer initialized", zap.String("endpoint", cfg.OTELEndpoint))
		}

		mp, err := gocoretelemetry.InitMeterProvider(context.Background(), "leakchef-server", cfg.OTELEndpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(context.Background())
			logger.Info("OTel meter provider initialized", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	ctx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Connect(ctx, cfg.MongoURL, cfg.DBName, logger)
	cancelConnect()
	if err != nil {
		logger.Fatal("mongo connection failed", zap.Error(err))
	}
	defer db.Close(context.Background())
	logger.Info("connected to mongo", zap.String("db", cfg.DBName))

	cache := cursorcache.NewDefault()
	salter := salt.NewSalter()
	service := delivery.NewService(db, cache, salter, logger)
	guard := authguard.New(db, logger)
	handlers := httpapi.New(service, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("leakchef-server"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("HTTP request",
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(gocoremw.NullToEmptyArray())

	handlers.Register(e, guard)

	addr := cfg.ServerIP + ":" + cfg.ServerPort
	go func() {
		logger.Info("leakchef-server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown error", zap.Error(err))
	}
	logger.Info("leakchef-server shut down cleanly")
}
