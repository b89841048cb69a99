package di

import (
	"context"
	"fmt"
	"time"

	"RiskScreen/internal/domain/models"
	"RiskScreen/internal/domain/repository"
	"RiskScreen/internal/handler/api"
	internalrepo "RiskScreen/internal/repository"
	"RiskScreen/internal/service/cache"
	"RiskScreen/internal/service/ratelimit"
	"RiskScreen/internal/usecase"
	pkgch "RiskScreen/pkg/clickhouse"
	"RiskScreen/pkg/config"
	xhttp "RiskScreen/pkg/http"
	pkgkafka "RiskScreen/pkg/kafka"
	applogger "RiskScreen/pkg/logger"
	"RiskScreen/pkg/metrics"
	"RiskScreen/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the panel lives in ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Panel.Source != config.SourceClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.PanelSchema(cfg.ClickHouse.Database, cfg.Panel.Table)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return client, nil
}

// ProvidePanelSource selects the panel source configured by panel.source.
func ProvidePanelSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.PanelSource, error) {
	switch cfg.Panel.Source {
	case config.SourceClickHouse:
		if ch == nil {
			return nil, fmt.Errorf("panel source %s: no clickhouse client", cfg.Panel.Source)
		}
		return internalrepo.NewCHPanelStore(ch, ch.Database(), cfg.Panel.Table, l), nil
	case config.SourceXLSX:
		return internalrepo.NewXLSXPanelSource(cfg.Panel.Path, cfg.Panel.Sheet, cfg.Panel.Headers, l), nil
	default:
		return nil, fmt.Errorf("unknown panel source %q", cfg.Panel.Source)
	}
}

// ProvideCatalogueSource returns nil when no catalogue is configured.
func ProvideCatalogueSource(cfg *config.Config, l *applogger.Logger) repository.CatalogueSource {
	if cfg.Catalogue.Path == "" {
		return nil
	}
	h := cfg.Catalogue.Headers
	return internalrepo.NewXLSXCatalogueSource(cfg.Catalogue.Path, cfg.Catalogue.Sheet, internalrepo.CatalogueHeaders{
		Ticker:    h.Ticker,
		Exchange:  h.Exchange,
		Model:     h.Model,
		Grade:     h.Grade,
		UpdatedAt: h.UpdatedAt,
	}, l)
}

// ProvideVolumeSource returns nil when no volume file is configured.
func ProvideVolumeSource(cfg *config.Config, l *applogger.Logger) repository.VolumeSource {
	if cfg.Volume.Path == "" {
		return nil
	}
	return internalrepo.NewCSVVolumeSource(cfg.Volume.Path, l)
}

// ProvideSnapshotStore creates the snapshot store shared by queries and refreshes.
func ProvideSnapshotStore(
	panels repository.PanelSource,
	catalogue repository.CatalogueSource,
	volume repository.VolumeSource,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SnapshotStore {
	return usecase.NewSnapshotStore(panels, catalogue, volume, m, l)
}

// ProvideRedisCache connects the shared response cache when redis is enabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) *cache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unreachable, using in-process cache until it recovers", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
	}
	return rc
}

// ProvideResponseCache layers redis over an in-process TTL cache.
func ProvideResponseCache(cfg *config.Config, rc *cache.RedisCache, m repository.Metrics, l *applogger.Logger) cache.BytesCache {
	var primary cache.BytesCache
	if rc != nil {
		primary = rc
	}
	return cache.NewFallback(primary, cache.NewTTLCache(cfg.Cache.MaxEntries), func(op string, err error) {
		m.RecordError("cache_" + op)
		l.Warn("response cache error", applogger.String("op", op), applogger.Error(err))
	})
}

// ProvideScreener creates the screening use case.
func ProvideScreener(cfg *config.Config, store *usecase.SnapshotStore, c cache.BytesCache, m repository.Metrics, l *applogger.Logger) *usecase.Screener {
	return usecase.NewScreener(store, c, cfg.Cache.TTL, m, l)
}

// ProvideKafkaProducer creates the alert producer when kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher returns nil when there is no producer.
func ProvideAlertPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

// ProvideRefresher creates the refresh use case.
func ProvideRefresher(cfg *config.Config, store *usecase.SnapshotStore, pub repository.AlertPublisher, m repository.Metrics, l *applogger.Logger) *usecase.Refresher {
	return usecase.NewRefresher(store, pub, m, l, models.Severity(cfg.Alerts.MinStreak))
}

// ProvideKafkaConsumer creates the refresh-trigger consumer when kafka is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRefreshHandler handles panel.updated events.
func ProvideRefreshHandler(cfg *config.Config, refresher *usecase.Refresher, m repository.Metrics, l *applogger.Logger) *usecase.RefreshHandler {
	return usecase.NewRefreshHandler(cfg.Kafka.Consumer.Topic, refresher, m, l)
}

// ProvideScreeningHandler creates the HTTP handler.
func ProvideScreeningHandler(l *applogger.Logger, screener *usecase.Screener, refresher *usecase.Refresher, store *usecase.SnapshotStore) *api.ScreeningHandler {
	return api.NewScreeningHandler(l, screener, refresher, store)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHTTPServer creates the Echo server with the configured middleware.
func ProvideHTTPServer(cfg *config.Config, h *api.ScreeningHandler, limiter *ratelimit.Limiter, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path))
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithRateLimit(limiter))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the application and registers resources to close on shutdown.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store *usecase.SnapshotStore,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	rh *usecase.RefreshHandler,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	pub repository.AlertPublisher,
) *server.App {
	app := server.New(l, server.Options{ShutdownTimeout: cfg.Server.ShutdownTimeout}, store, srv, consumer, rh)
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	if rc != nil {
		app.AddCloser("redis", rc)
	}
	if pub != nil {
		app.AddCloser("kafka_producer", pub)
	}
	return app
}
