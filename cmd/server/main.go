package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/newrelic/go-agent/v3/newrelic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"tripmeter/internal/app"
	"tripmeter/internal/config"
	"tripmeter/internal/domain"
	"tripmeter/internal/geolocation"
	"tripmeter/internal/handler"
	"tripmeter/internal/maps"
	"tripmeter/internal/notify"
	"tripmeter/internal/pricing"
	internalRedis "tripmeter/internal/redis"
	"tripmeter/internal/repository/postgres"
	"tripmeter/internal/service"
	"tripmeter/internal/tracker"
)

func main() {
	cfg := config.Load()

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Error("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		fatal(logger, "failed to connect to redis", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var amqpConn *amqp.Connection
	if cfg.RabbitMQ.Enabled {
		amqpConn, err = app.NewRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			fatal(logger, "failed to connect to rabbitmq", err)
		}
		defer amqpConn.Close()
		logger.Info("connected to RabbitMQ")
	}

	var mqttClient mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = app.NewMQTTClient(cfg.MQTT)
		if err != nil {
			fatal(logger, "failed to connect to mqtt", err)
		}
		defer mqttClient.Disconnect(250)
		logger.Info("connected to MQTT", "broker", cfg.MQTT.BrokerURL)
	}

	srv, err := wireServer(ctx, serverDeps{
		db:       db,
		redis:    redisClient,
		amqp:     amqpConn,
		mqtt:     mqttClient,
		newRelic: nrApp,
		cfg:      cfg,
		logger:   logger,
	})
	if err != nil {
		fatal(logger, "failed to wire server", err)
	}
	defer srv.close()

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server error", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// Running trips are finalized so their last fare is persisted.
	srv.tracking.Shutdown(shutdownCtx)

	logger.Info("server exited")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

type serverDeps struct {
	db       *sql.DB
	redis    *redis.Client
	amqp     *amqp.Connection
	mqtt     mqtt.Client
	newRelic *newrelic.Application
	cfg      *config.Config
	logger   *slog.Logger
}

type server struct {
	http     *http.Server
	tracking *service.TrackingService
	closers  []func() error
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(ctx context.Context, deps serverDeps) (*server, error) {
	cfg, logger := deps.cfg, deps.logger
	srv := &server{}

	// Redis stores.
	locationStore := internalRedis.NewLocationStore(deps.redis)
	lockStore := internalRedis.NewLockStore(deps.redis)
	cacheStore := internalRedis.NewCacheStore(deps.redis)
	routeCache := internalRedis.NewRouteCache(deps.redis, cfg.Routing.Debounce)

	// Repositories.
	snapshotRepo := postgres.NewSnapshotRepository(deps.db)
	fareProfileRepo := postgres.NewFareProfileRepository(deps.db)
	receiptRepo := postgres.NewReceiptRepository(deps.db)
	paymentRepo := postgres.NewPaymentRepository(deps.db)

	catalog, err := app.LoadCatalog(ctx, fareProfileRepo, cfg.Pricing.FareProfiles, logger)
	if err != nil {
		return nil, err
	}

	router, err := newRouter(cfg.Routing)
	if err != nil {
		return nil, err
	}

	var places service.PlaceFinder
	if cfg.Routing.GoogleAPIKey != "" {
		placesService, err := maps.NewPlacesService(cfg.Routing.GoogleAPIKey, cfg.Routing.PlaceLanguage)
		if err != nil {
			return nil, err
		}
		places = placesService
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, place search disabled")
	}

	// Event publisher.
	var publisher service.EventPublisher
	if deps.amqp != nil {
		p, err := notify.NewPublisher(deps.amqp)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, p.Close)
		publisher = p
	}

	timeRules := pricing.DefaultTimeRules()
	timeRules.PeakMultiplier = cfg.Pricing.PeakMultiplier
	timeRules.NightMultiplier = cfg.Pricing.NightMultiplier
	if loc, err := time.LoadLocation(cfg.Pricing.TimeZone); err == nil {
		timeRules.Location = loc
	} else {
		logger.Warn("unknown pricing time zone, using UTC", "tz", cfg.Pricing.TimeZone)
	}

	// Services.
	resolver := service.NewRouteResolver(router, routeCache, cfg.Routing.Timeout, logger)
	surgeService := service.NewSurgeService(locationStore, service.DefaultSurgeConfig(), logger)
	fareService := service.NewFareService(
		catalog,
		timeRules,
		pricing.NewVehicleMultipliers(cfg.Pricing.VehicleMultipliers),
		surgeService,
		resolver,
	)
	notificationService := service.NewNotificationService(publisher, logger)
	receiptService, err := service.NewReceiptService(receiptRepo, notificationService, cfg.Pricing.CommissionRate, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("pricing configured",
		"profiles", catalog.Len(),
		"commission_rate", cfg.Pricing.CommissionRate,
		"peak_multiplier", timeRules.PeakMultiplier,
		"night_multiplier", timeRules.NightMultiplier,
	)
	paymentService := service.NewPaymentService(
		paymentRepo,
		service.NewSandboxPSP(domain.Money(cfg.Pricing.PaymentLimit)),
		receiptService,
		notificationService,
		logger,
	)
	driverService := service.NewDriverService(locationStore)
	searchService := service.NewSearchService(places, cfg.Routing.SearchIdleTTL)

	hub := geolocation.NewHub()
	srv.closers = append(srv.closers, hub.StartEviction(min(cfg.Tracking.PositionIdleTTL, time.Minute), cfg.Tracking.PositionIdleTTL))
	if deps.mqtt != nil {
		subscriber := geolocation.NewMQTTSubscriber(deps.mqtt, hub, logger)
		if err := subscriber.Start(); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", geolocation.TopicPattern, err)
		}
		srv.closers = append(srv.closers, subscriber.Stop)
	}

	srv.tracking = service.NewTrackingService(service.TrackingDeps{
		Sources:             hub,
		FareService:         fareService,
		Resolver:            resolver,
		Persister:           service.NewSnapshotPersister(snapshotRepo, cacheStore, locationStore),
		NotificationService: notificationService,
		ReceiptService:      receiptService,
		LockStore:           lockStore,
		NewRelic:            deps.newRelic,
	}, tracker.Config{
		NoiseFloorKm:    cfg.Tracking.NoiseFloorKm,
		MaxSpeedKmh:     cfg.Tracking.MaxSpeedKmh,
		PersistInterval: cfg.Tracking.PersistInterval,
		Watch: tracker.WatchOptions{
			HighAccuracy: cfg.Tracking.HighAccuracy,
			Timeout:      cfg.Tracking.PositionTimeout,
			MaxAge:       cfg.Tracking.PositionMaxAge,
		},
	}, logger)

	engine := app.NewRouter(app.RouterDeps{
		FareHandler:     handler.NewFareHandler(fareService, resolver),
		PlaceHandler:    handler.NewPlaceHandler(searchService),
		TrackingHandler: handler.NewTrackingHandler(srv.tracking, receiptService, hub, logger),
		DriverHandler:   handler.NewDriverHandler(driverService),
		PaymentHandler:  handler.NewPaymentHandler(paymentService),
		RedisClient:     deps.redis,
		NewRelicApp:     deps.newRelic,
		Logger:          logger,
	})

	srv.http = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return srv, nil
}

// newRouter picks the road-routing backend.
func newRouter(cfg config.RoutingConfig) (maps.Router, error) {
	switch cfg.Provider {
	case "google":
		return maps.NewRouteService(cfg.GoogleAPIKey)
	case "osrm", "":
		return maps.NewOSRMClient(cfg.OSRMBaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown ROUTING_PROVIDER %q", cfg.Provider)
	}
}
