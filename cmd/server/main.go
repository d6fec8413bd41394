package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bloodfinder/m/internal/api"
	"bloodfinder/m/internal/config"
	"bloodfinder/m/internal/database"
	"bloodfinder/m/internal/logging"
	"bloodfinder/m/internal/migrations"
	"bloodfinder/m/internal/notify"
	"bloodfinder/m/internal/repository"
	"bloodfinder/m/internal/repository/mongostore"
	"bloodfinder/m/internal/repository/sqlstore"
	"bloodfinder/m/internal/seed"
	"bloodfinder/m/internal/service"
)

var configFile = flag.String("config", "config.yaml", "Configuration file path")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("unable to open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer store.Close(context.Background())

	if cfg.SeedAccounts != "" {
		if _, err := seed.LoadAccounts(ctx, store, logger, cfg.SeedAccounts); err != nil {
			logger.Warn("unable to seed accounts", zap.String("path", cfg.SeedAccounts), zap.Error(err))
		}
	}

	publisher := openPublisher(ctx, cfg, logger)
	notifier := service.NewNotifier(store, publisher, logger)
	handler := api.New(store, api.Services{
		Ledger:    service.NewLedger(store, notifier, cfg.LowStockThreshold),
		Registry:  service.NewRegistry(store, notifier, cfg.DefaultExpiryHours),
		Fulfiller: service.NewFulfiller(store),
		Notifier:  notifier,
	}, cfg.Secret, splitOrigins(cfg.FrontendURL), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("Blood Finder server starting", zap.String("port", cfg.HTTPPort), zap.String("driver", cfg.DBDriver))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	notifier.Wait()
	if closer, ok := publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("unable to close publisher", zap.Error(err))
		}
	}
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	if cfg.DBDriver == database.DriverMongo {
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(client, cfg.MongoDatabase)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	}

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, err
	}
	return sqlstore.New(db), nil
}

// openPublisher returns a Redis publisher when REDIS_ADDR is set and
// reachable, and a no-op publisher otherwise.
func openPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) notify.Publisher {
	if cfg.RedisAddr == "" {
		return notify.Nop{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, live notifications disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return notify.Nop{}
	}
	return notify.NewRedisPublisher(client)
}

func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
