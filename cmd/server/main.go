package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcompanion "github.com/companiondir/backend/internal/application/companion"
	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/cache"
	"github.com/companiondir/backend/internal/infrastructure/catalog"
	"github.com/companiondir/backend/internal/infrastructure/config"
	"github.com/companiondir/backend/internal/infrastructure/logger"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"github.com/companiondir/backend/internal/interfaces/http/handler"
	"github.com/companiondir/backend/internal/interfaces/http/middleware"
	"github.com/companiondir/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}

	// Log export comes first so every later line reaches the collector too
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = logProvider.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting companion directory",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	directoryMetrics, err := telemetry.NewDirectoryMetrics(meterProvider)
	if err != nil {
		log.Fatal("Failed to create directory metrics", zap.Error(err))
	}

	// Catalog backend
	catalogCfg := catalog.NewConfig(cfg.Catalog.ShopDomain, cfg.Catalog.AccessToken)
	catalogCfg.APIVersion = cfg.Catalog.APIVersion
	catalogCfg.BaseURL = cfg.Catalog.BaseURL
	catalogCfg.TimeoutSeconds = int(cfg.Catalog.Timeout / time.Second)
	catalogCfg.AttributeChunkSize = cfg.Catalog.AttributeChunkSize
	catalogAdapter, err := catalog.NewAdapter(catalogCfg,
		catalog.WithLogger(log.Named("catalog")),
		catalog.WithMetrics(directoryMetrics),
	)
	if err != nil {
		log.Fatal("Failed to create catalog adapter", zap.Error(err))
	}
	imageFetcher := catalog.NewImageFetcher(cfg.Catalog.Timeout, cfg.Directory.MaxImageBytes, directoryMetrics)

	// Listing snapshot cache
	var listingCache appcompanion.ListingCache
	if cfg.Cache.TTL > 0 {
		factory := cache.NewListingCacheFactory(cache.RedisConfig{
			Host:     cfg.Cache.RedisHost,
			Port:     cfg.Cache.RedisPort,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		},
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!cfg.Cache.RedisRequired),
		)
		listingCache, err = factory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create listing cache", zap.Error(err))
		}
		if closer, ok := listingCache.(io.Closer); ok {
			defer func() {
				if err := closer.Close(); err != nil {
					log.Error("Error closing listing cache", zap.Error(err))
				}
			}()
		}
	}

	// Application services
	dirCfg := appcompanion.Config{
		CollectionID:       cfg.Directory.CollectionID,
		Vendor:             cfg.Directory.Vendor,
		ProductType:        cfg.Directory.ProductType,
		ListingPageSize:    cfg.Directory.ListingPageSize,
		ScanPageSize:       cfg.Directory.ScanPageSize,
		AttributeBatchSize: cfg.Directory.AttributeBatchSize,
		MinImages:          cfg.Directory.MinImages,
		MaxImages:          cfg.Directory.MaxImages,
		MaxImageBytes:      cfg.Directory.MaxImageBytes,
		ListingCacheTTL:    cfg.Cache.TTL,
		ResubmitOnUpdate:   cfg.Directory.ResubmitOnUpdate,
	}
	codec := companion.NewCodec(cfg.Catalog.Namespace)
	loader := appcompanion.NewCollectionLoader(catalogAdapter, companion.NewMapper(codec), dirCfg, log)
	verifier := appcompanion.NewUniquenessVerifier(loader, log)

	syncService := appcompanion.NewSyncService(catalogAdapter, imageFetcher, verifier, listingCache, codec, dirCfg, log)
	syncService.SetMetrics(directoryMetrics)
	queryService := appcompanion.NewQueryService(loader, listingCache, dirCfg, log)
	queryService.SetMetrics(directoryMetrics)

	companionHandler := handler.NewCompanionHandler(syncService, queryService, verifier)
	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. Recovery - Catch panics
	// 2. RequestID - Generate/propagate request ID
	// 3. Tracing - Start the server span, then tag it with the request ID
	// 4. Logger - Log requests with trace context
	// 5. Metrics - Record HTTP metrics
	// 6. CORS and security headers
	// 7. BodyLimit - Limit request body size
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Logger:        log,
	}))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Create and update are throttled per client; reads are not
	var writeGuards []gin.HandlerFunc
	if cfg.HTTP.WriteRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.WriteRateLimit, cfg.HTTP.WriteRateWindow)
		defer limiter.Stop()
		writeGuards = append(writeGuards, middleware.RateLimit(limiter))
		log.Info("Write rate limiting enabled",
			zap.Int("requests", cfg.HTTP.WriteRateLimit),
			zap.Duration("window", cfg.HTTP.WriteRateWindow),
		)
	}

	engine.GET("/health", healthHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.NewCompanionGroup(router.CompanionRoutes{
		Search:       companionHandler.Search,
		Get:          companionHandler.Get,
		HandleExists: companionHandler.HandleExists,
		Create:       companionHandler.Create,
		Update:       companionHandler.Update,
	}, writeGuards...))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush telemetry after the last request has been served
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
