package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/kozydot/findr/config"
	"github.com/kozydot/findr/pkg/catalog"
	"github.com/kozydot/findr/pkg/httpclient"
	"github.com/kozydot/findr/pkg/middleware"
	"github.com/kozydot/findr/pkg/push"
	"github.com/kozydot/findr/pkg/reconcile"
	"github.com/kozydot/findr/pkg/routes/health"
	"github.com/kozydot/findr/pkg/routes/product"
	searchroutes "github.com/kozydot/findr/pkg/routes/search"
	"github.com/kozydot/findr/pkg/search"
	"github.com/kozydot/findr/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Missing .env is fine; real deployments set env directly.
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("invalid config: %w", err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(ctx, cfg.AppName, cfg.OTLPEndpoint)
		if err != nil {
			fatal(logger, err, "Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("Trace exporter shutdown failed")
			}
		}()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable at startup; snapshot cache degrades to direct fetches")
	}
	cancel()
	defer rdb.Close()

	httpClient := httpclient.NewClient(httpclient.Config{
		Timeout:         cfg.CatalogTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}, logger)
	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, httpClient, logger)
	snapshotCache := catalog.NewSnapshotCache(rdb, catalogClient, cfg.CatalogSnapshotTTL, logger)

	broker := push.NewBroker(logger)
	engine := reconcile.NewEngine(logger, catalogClient, broker).
		WithPollInterval(time.Duration(cfg.ComparisonPollSeconds) * time.Second)
	searchEngine := search.NewEngine(search.DefaultRuleSet())

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		fatal(logger, err, "Failed to create DI container")
	}
	mustRegister(logger, ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	mustRegister(logger, ectoinject.RegisterInstance[*catalog.Client](container, catalogClient))
	mustRegister(logger, ectoinject.RegisterInstance[*catalog.SnapshotCache](container, snapshotCache))
	mustRegister(logger, ectoinject.RegisterInstance[*reconcile.Engine](container, engine))
	mustRegister(logger, ectoinject.RegisterInstance[*search.Engine](container, searchEngine))

	checker := health.NewChecker(version)
	checker.AddRedis(rdb)
	checker.AddCheck("catalog", catalogClient)

	var consumer *push.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = push.NewConsumer(push.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaUpdatesTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, broker, logger)
		if err := consumer.Start(ctx); err != nil {
			fatal(logger, err, "Failed to start product update consumer")
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("Consumer shutdown failed")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	product.Register(e.Group("/api/v1/products"))
	searchroutes.Register(e.Group("/api/v1/search"))
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.WithFields(map[string]any{"addr": addr}).Infof("Starting %s", cfg.AppName)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			fatal(logger, err, "Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	checker.SetReady(false)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

func newLogger(cfg config.Config) (ectologger.Logger, error) {
	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

func mustRegister(logger ectologger.Logger, err error) {
	if err != nil {
		fatal(logger, err, "Failed to register dependency")
	}
}

func fatal(logger ectologger.Logger, err error, msg string) {
	logger.WithError(err).Error(msg)
	os.Exit(1)
}
