package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/DarkIsCool10/UniEventos/config"
	"github.com/DarkIsCool10/UniEventos/internal/clock"
	"github.com/DarkIsCool10/UniEventos/internal/consumer"
	"github.com/DarkIsCool10/UniEventos/internal/handler"
	"github.com/DarkIsCool10/UniEventos/internal/ledger"
	"github.com/DarkIsCool10/UniEventos/internal/middleware"
	"github.com/DarkIsCool10/UniEventos/internal/repository"
	"github.com/DarkIsCool10/UniEventos/internal/service"
	"github.com/DarkIsCool10/UniEventos/pkg/database"
	"github.com/DarkIsCool10/UniEventos/pkg/logger"
	"github.com/DarkIsCool10/UniEventos/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		zl.Fatal("failed to open database", zap.Error(err))
	}

	// Repositories
	localityRepo := repository.NewLocalityRepository(db, zl.Named("localities"))
	eventRepo := repository.NewEventRepository(db, zl.Named("events"))
	couponRepo := repository.NewCouponRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	cartRepo := repository.NewCartRepository()

	// Holds live in memory only: start from committed = sold.
	reset, err := localityRepo.ResetHeld(ctx)
	if err != nil {
		zl.Fatal("failed to reset held capacity", zap.Error(err))
	}
	zl.Info("held capacity reset", zap.Int64("localities", reset))

	// RabbitMQ consumer: sync events and localities from the event service
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, zl.Named("rabbitmq"))
	if err != nil {
		zl.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		zl.Fatal("failed to start consuming", zap.Error(err))
	}
	consumer.NewEventConsumer(eventRepo, zl.Named("event-consumer")).Start(msgs)

	// RabbitMQ publisher: committed orders for the notification service
	var notifier service.Notifier
	if pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, zl.Named("rabbitmq")); err != nil {
		zl.Warn("order notifications disabled", zap.Error(err))
	} else {
		defer pub.Close()
		notifier = pub
	}

	// Ledger and services
	clk := clock.NewSystem()
	holds := ledger.New(localityRepo, cartRepo, clk,
		ledger.WithHoldTTL(cfg.HoldTTL),
		ledger.WithLogger(zl.Named("ledger")),
	)
	cartSvc := service.NewCartService(holds, cartRepo, localityRepo, couponRepo, orderRepo, notifier, clk, zl.Named("cart"))
	catalogSvc := service.NewCatalogService(eventRepo, localityRepo)

	go service.NewSweeper(holds, cfg.SweepInterval, zl.Named("sweeper")).Run(ctx)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(zl)
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(zl.Named("http")))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "reservation-service"})
	})

	handler.NewCartHandler(cartSvc).RegisterRoutes(e)
	handler.NewCatalogHandler(catalogSvc).RegisterRoutes(e)

	go func() {
		zl.Info("reservation service starting", zap.String("port", cfg.ServerPort), zap.Duration("hold_ttl", cfg.HoldTTL))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
