package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/meteorite-playback/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/meteorite-playback/internal/adapter/kafka"
	"github.com/couchcryptid/meteorite-playback/internal/adapter/loader"
	"github.com/couchcryptid/meteorite-playback/internal/adapter/ws"
	"github.com/couchcryptid/meteorite-playback/internal/config"
	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/observability"
	"github.com/couchcryptid/meteorite-playback/internal/pipeline"
	"github.com/couchcryptid/meteorite-playback/internal/playback"
	"github.com/couchcryptid/meteorite-playback/internal/region"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ds, closeDataset, err := prepareDataset(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("dataset preparation failed", "error", err)
		os.Exit(1)
	}
	defer closeDataset()

	hub := ws.NewHub(nil, logger, metrics)
	fanout := playback.NewFanout(logger, metrics)
	fanout.Add("websocket", hub)

	var sink *kafkaadapter.FrameSink
	if cfg.KafkaEnabled {
		streamID := ulid.Make().String()
		sink = kafkaadapter.NewFrameSink(cfg, streamID, logger)
		fanout.Add("kafka", sink)
		logger.Info("kafka frame mirroring enabled", "topic", cfg.KafkaFramesTopic, "stream_id", streamID)
	} else {
		logger.Info("kafka frame mirroring disabled")
	}

	controller, err := playback.New(ds.Records, ds.Span, fanout, logger, metrics,
		playback.WithStepDelay(cfg.PlaybackStepDelay))
	if err != nil {
		logger.Error("failed to create playback controller", "error", err)
		os.Exit(1)
	}
	hub.SetController(controller)

	srv := httpadapter.NewServer(cfg.HTTPAddr, controller, hub, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if cfg.PlaybackAutostart {
		controller.Start(ds.Span.Min)
	} else {
		// Render the first year so late joiners and readiness have a frame.
		controller.Seek(ds.Span.Min)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	controller.Stop()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// prepareDataset wires the loader, class mappings and region locator into the
// preparation pipeline and runs it. The returned func releases the loader and
// any Redis client.
func prepareDataset(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Dataset, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("close error", "error", err)
			}
		}
	}

	l, err := loader.New(ctx, loader.Options{
		Source:    cfg.DatasetSource,
		Path:      cfg.DatasetPath,
		Table:     cfg.DatasetTable,
		BatchSize: cfg.BatchSize,
	}, logger)
	if err != nil {
		return nil, func() {}, err
	}
	if c, ok := l.(io.Closer); ok {
		closers = append(closers, c)
	}

	var mappings domain.ClassMappings
	if cfg.ClassMappingsPath != "" {
		mappings, err = loader.LoadClassMappings(cfg.ClassMappingsPath)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		logger.Info("class mappings loaded", "path", cfg.ClassMappingsPath, "classes", len(mappings))
	}

	var locator region.Locator
	if cfg.RegionsPath != "" {
		states, err := region.LoadStates(cfg.RegionsPath)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		locator = states
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			closers = append(closers, client)
			locator = region.NewRedisCache(locator, client, cfg.RedisTTL, logger)
			logger.Info("redis region cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RedisTTL)
		}
		locator = region.NewCachedLocator(locator, cfg.RegionCacheSize, metrics)
		logger.Info("region tagging enabled", "states", len(states.States()), "cache_size", cfg.RegionCacheSize)
	} else {
		logger.Info("region tagging disabled; using dataset region tags")
	}

	p := pipeline.New(l, pipeline.NewTransformer(mappings, locator, logger),
		domain.Span{Min: cfg.PlaybackMinYear, Max: cfg.PlaybackMaxYear},
		cfg.DatasetLoadRetries, logger, metrics)
	ds, err := p.Run(ctx)
	if err != nil {
		closeAll()
		return nil, func() {}, err
	}
	return ds, closeAll, nil
}
