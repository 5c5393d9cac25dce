package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"thermolog-server/internal/config"
	db "thermolog-server/internal/db"
	"thermolog-server/internal/db/migrate"
	httpapi "thermolog-server/internal/httpapi"
	temperature "thermolog-server/internal/modules/temperature"
	"thermolog-server/internal/modules/temperature/repository"
	"thermolog-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"storeBackend", cfg.StoreBackend,
		"sqlitePath", cfg.SQLitePath,
		"mongoDatabase", cfg.MongoDatabase,
		"mongoCollection", cfg.MongoCollection,
		"dayWindow", cfg.DayWindow,
		"apiKeyConfigured", cfg.APIKey != "",
		"mqttBroker", cfg.MQTTBroker,
		"mqttTopic", cfg.MQTTTopic,
	)

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Set the MQTT handler before Connect: the broker may deliver queued
	// messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	if cfg.MQTTBroker != "" {
		subscriber = mqtt.NewSubscriber(cfg, logger)
	}

	mux := httpapi.NewMux(repo)
	opts := temperature.Options{
		APIKey:    cfg.APIKey,
		DayWindow: cfg.DayWindowLocation(),
		Logger:    logger,
	}
	if subscriber != nil {
		opts.Subscriber = subscriber
	}
	temperature.RegisterFeature(mux, repo, opts)

	if subscriber != nil {
		// Short timeout so a missing broker does not block HTTP startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openStore opens the configured backend and returns its repository together
// with a func that releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.ReadingRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, coll, err := db.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.CloseMongo(closeCtx, client); err != nil {
				logger.Error("mongo close", "error", err)
			}
		}
		indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		if err := repository.EnsureIndexes(indexCtx, coll); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info("mongo connection successful", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		return repository.NewMongoRepository(coll, cfg.MongoTimeout), closeFn, nil

	case config.BackendSQLite, "":
		dbConn, err := db.Open(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(dbConn); err != nil {
				logger.Error("db close", "error", err)
			}
		}
		if err := migrate.Run(ctx, dbConn); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info("database connection successful", "path", cfg.SQLitePath)
		return repository.NewRepository(dbConn), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
