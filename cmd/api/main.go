package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"spotbook/internal/api"
	"spotbook/internal/config"
	"spotbook/internal/database"
	"spotbook/internal/domain"
	"spotbook/internal/events"
	"spotbook/internal/export"
	"spotbook/internal/logging"
	"spotbook/internal/metrics"
	"spotbook/internal/models"
	"spotbook/internal/repository"
	"spotbook/internal/service"
	"spotbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, cache := initCache(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	catalog := repository.NewCachedCatalog(db, cache, logger)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(cfg, logger)
	}

	clock := service.SystemClock{}
	authorizer := service.NewAuthorizer(clock, cfg.Booking.MaxAdvanceDays)
	bookingService := service.NewBookingService(db, catalog, authorizer, eventBus, logger)
	exporter := export.NewExporter(bookingService, catalog, clock, cfg.Exports.Path, logger)

	if cfg.Exports.ScheduleEnabled {
		exportWorker := worker.NewExportWorker(exporter, clock,
			time.Duration(cfg.Exports.IntervalHours)*time.Hour, cfg.Exports.HorizonDays, 0, 0, logger)
		go exportWorker.Start(ctx)
	}

	var apiServer *api.HTTPServer
	if cfg.API.Enabled {
		apiServer = api.NewHTTPServer(cfg.API, bookingService, catalog, exporter, cache, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
	} else {
		logger.Warn().Msg("API server disabled by config")
	}

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("API server shutdown error")
		}
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.WithComponent(baseLogger, "api-main")

	if err := loadResources(cfg, &logger); err != nil {
		return nil, nil, closer, err
	}

	return cfg, &logger, closer, nil
}

// loadResources merges the standalone seed file into the config. The file is
// optional when the config itself carries resources.
func loadResources(cfg *config.Config, logger *zerolog.Logger) error {
	resourcesPath := os.Getenv("RESOURCES_PATH")
	if resourcesPath == "" {
		resourcesPath = "configs/resources.yaml"
	}

	data, err := os.ReadFile(resourcesPath)
	if err != nil {
		if os.IsNotExist(err) && len(cfg.Resources) > 0 {
			return nil
		}
		logger.Error().Err(err).Msgf("Error reading %s", resourcesPath)
		return err
	}

	var seed struct {
		Resources []models.Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Msg("Error parsing resources.yaml")
		return err
	}

	cfg.Resources = append(cfg.Resources, seed.Resources...)
	if err := config.ValidateResources(cfg.Resources); err != nil {
		logger.Error().Err(err).Msg("Resources validation failed")
		return err
	}
	return nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Error creating database directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Error creating export directory")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Error initializing database")
		return nil, err
	}

	if err := db.SeedResources(context.Background(), cfg.Resources); err != nil {
		logger.Error().Err(err).Msg("Error seeding resources")
	}
	return db, nil
}

// initCache builds the owner cache: Redis fronted by a failover wrapper when
// configured, a process-local cache otherwise.
func initCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.CacheRepository) {
	ttl := time.Duration(models.DefaultOwnerCacheTTL) * time.Second
	memory := repository.NewMemoryCacheRepository(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	primary := repository.NewRedisCacheRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverCacheRepository(primary, memory, logger)
}

func startMetricsServer(cfg *config.Config, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	go func() {
		logger.Info().Str("addr", addr).Msg("Metrics listening")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		logger.Info().
			Str("event", ev.Type).
			Str("event_id", ev.ID).
			Int64("booking_id", payload.BookingID).
			Int64("resource_id", payload.ResourceID).
			Int64("actor_id", payload.ActorID).
			Msg("booking event")
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, audit)
	bus.Subscribe(events.EventBookingModified, audit)
	bus.Subscribe(events.EventBookingCancelled, audit)
}
