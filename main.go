package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/address-kit/app/config"
	"github.com/address-kit/app/controllers"
	"github.com/address-kit/app/services"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/ingest"
	"github.com/address-kit/internal/resolver"
	"github.com/address-kit/internal/search"
	"github.com/address-kit/internal/storage"
	"github.com/address-kit/routes"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.Env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newGeocodeAdapter(cfg *config.Config) (geocode.Adapter, error) {
	switch cfg.Geocode.Provider {
	case "":
		return nil, nil
	case "google":
		return geocode.NewGoogleAdapter(cfg.Geocode.GoogleAPIKey)
	case "loqate":
		return geocode.NewLoqateAdapter(cfg.Geocode.LoqateAPIKey)
	default:
		return nil, fmt.Errorf("unknown geocode provider %q", cfg.Geocode.Provider)
	}
}

func newCache(cfg *config.Config, logger *zap.Logger) (services.ICacheService, error) {
	lruCache, err := services.NewLRUCacheService(cfg.Cache.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("build LRU cache: %w", err)
	}
	if !cfg.Redis.Enabled {
		return lruCache, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, using in-process cache only", zap.Error(err))
		return lruCache, nil
	}
	redisCache := services.NewRedisCacheService(client, cfg.Cache.KeyPrefix, cfg.Cache.TTL, logger)
	return services.NewHybridCacheService(lruCache, redisCache), nil
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	store := storage.NewMongoStore(client.Database(cfg.Mongo.Database), logger)
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	cache, err := newCache(cfg, logger)
	if err != nil {
		return err
	}

	adapter, err := newGeocodeAdapter(cfg)
	if err != nil {
		return err
	}

	var searcher *search.AddressSearcher
	if cfg.Search.Enabled {
		searcher = search.NewAddressSearcher(cfg.Search.Host, cfg.Search.APIKey, cfg.Search.Index, logger)
		if err := searcher.EnsureIndex(); err != nil {
			logger.Warn("Search index setup failed, continuing without search", zap.Error(err))
			searcher = nil
		}
	}

	res := resolver.New(store, logger)
	rawOpts := resolver.RawOptions{
		Adapter: adapter,
		Retry: geocode.RetryConfig{
			MaxAttempts: cfg.Geocode.MaxAttempts,
			BaseDelay:   cfg.Geocode.BaseDelay,
			MaxDelay:    cfg.Geocode.MaxDelay,
		},
		SurfaceGeocodeErrors: cfg.Geocode.SurfaceErrors,
	}
	ingester := ingest.New(res, adapter, logger)

	addressService := services.NewAddressService(res, store, cache, searcher, ingester, rawOpts, logger)
	adminService := services.NewAdminService(store, res, cache, logger)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.SetupAllRoutes(router,
		controllers.NewAddressController(addressService, logger),
		controllers.NewAdminController(adminService, cfg, logger),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Env),
		zap.String("geocode_provider", cfg.Geocode.Provider))
	return router.Run(addr)
}

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}
