package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/furnihub/marketplace-backend/api/routes"
	"github.com/furnihub/marketplace-backend/internal/cart"
	"github.com/furnihub/marketplace-backend/internal/checkout"
	"github.com/furnihub/marketplace-backend/internal/coupons"
	"github.com/furnihub/marketplace-backend/internal/orders"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/config"
	"github.com/furnihub/marketplace-backend/pkg/db"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/metrics"
	"github.com/furnihub/marketplace-backend/pkg/migrate"
	"github.com/furnihub/marketplace-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pricingMetrics := metrics.NewPricingMetrics(registry)

	services, err := buildServices(cfg, dbClient, pricingMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		_ = multierr.Combine(redisClient.Close(), dbClient.Close())
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	runErr := group.Wait()
	closeErr := multierr.Combine(redisClient.Close(), dbClient.Close())
	if err := multierr.Append(runErr, closeErr); err != nil {
		logg.Error(ctx, "api server stopped with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, dbClient *db.Client, m *metrics.PricingMetrics, logg *logger.Logger) (routes.Services, error) {
	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	productSvc, err := products.NewService(productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cartRepo, couponRepo, productSvc, dbClient, cfg.Pricing, m, logg)
	if err != nil {
		return routes.Services{}, err
	}
	couponSvc, err := coupons.NewService(couponRepo, dbClient, m, logg)
	if err != nil {
		return routes.Services{}, err
	}
	checkoutSvc, err := checkout.NewService(checkout.Deps{
		Tx:       dbClient,
		Carts:    cartRepo,
		Orders:   ordersRepo,
		Coupons:  couponRepo,
		Products: productRepo,
		Pricing:  cfg.Pricing,
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc, err := orders.NewService(ordersRepo, productRepo, dbClient, m, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products: productSvc,
		Cart:     cartSvc,
		Coupons:  couponSvc,
		Checkout: checkoutSvc,
		Orders:   ordersSvc,
	}, nil
}
