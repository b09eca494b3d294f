package di

import (
	"context"
	"fmt"
	"time"

	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/handler/api"
	"MarketAnalyst/internal/handler/ws"
	"MarketAnalyst/internal/middleware"
	internalrepo "MarketAnalyst/internal/repository"
	"MarketAnalyst/internal/service/brapi"
	"MarketAnalyst/internal/service/ratelimit"
	"MarketAnalyst/internal/services/indicators"
	"MarketAnalyst/internal/services/opportunity"
	"MarketAnalyst/internal/usecase"
	"MarketAnalyst/pkg/cache"
	pkgch "MarketAnalyst/pkg/clickhouse"
	"MarketAnalyst/pkg/config"
	xhttp "MarketAnalyst/pkg/http"
	pkgkafka "MarketAnalyst/pkg/kafka"
	"MarketAnalyst/pkg/logger"
	"MarketAnalyst/pkg/metrics"
	"MarketAnalyst/pkg/queue"
	"MarketAnalyst/pkg/server"

	"github.com/redis/go-redis/v9"
)

// CacheLayer is the cache plus, when Redis is enabled, its raw client for
// the job queue.
type CacheLayer struct {
	Service cache.Service
	Redis   *redis.Client
}

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideStore opens the configured store and creates its schema.
func ProvideStore(cfg *config.Config, l *logger.Logger) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var store repository.Store
	switch cfg.Storage.Type {
	case "clickhouse":
		ch := cfg.ClickHouse
		client, err := pkgch.NewClient(ctx,
			pkgch.WithAddr(ch.Host, ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
			pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store = internalrepo.NewCHStore(client, l)
	default:
		s, err := internalrepo.NewSQLiteStore(cfg.SQLite.Path, l)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		store = s
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Storage.Type, err)
	}
	l.Info("store ready", logger.String("type", cfg.Storage.Type))
	return store, nil
}

// ProvideCache returns a Redis-backed layered cache, or a memory cache when
// Redis is disabled.
func ProvideCache(cfg *config.Config, l *logger.Logger) (*CacheLayer, error) {
	if !cfg.Redis.Enabled {
		l.Info("redis disabled, using in-memory cache")
		return &CacheLayer{Service: cache.NewMemoryCache()}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return &CacheLayer{
		Service: cache.NewLayeredCache(rc, cache.WithLayeredMemory(1000, time.Minute)),
		Redis:   rc.Client(),
	}, nil
}

func ProvideCacheService(c *CacheLayer) cache.Service { return c.Service }

func ProvideQuoteSource(cfg *config.Config, l *logger.Logger, c cache.Service) repository.QuoteSource {
	limiter := ratelimit.New(float64(cfg.Brapi.RateLimit.Capacity), cfg.Brapi.RateLimit.RefillPerSec)
	client := brapi.NewClient(cfg.Brapi.BaseURL, cfg.Brapi.Timeout, l,
		brapi.WithToken(cfg.Brapi.Token),
		brapi.WithLimiter(limiter),
	)
	if cfg.Brapi.CacheTTL <= 0 {
		return client
	}
	return brapi.NewCachedSource(client, c, cfg.Brapi.CacheTTL, l)
}

func ProvideEngine() *opportunity.Engine {
	return opportunity.NewEngine(indicators.NewTalibProvider())
}

// ProvideScorePublisher returns nil when kafka is disabled. Scores go through
// a buffering pipeline so a broker outage does not lose them immediately.
func ProvideScorePublisher(cfg *config.Config, m repository.Metrics) (repository.ScorePublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.Linger),
		pkgkafka.WithWriteTimeout(k.Producer.WriteTimeout),
		pkgkafka.WithAsync(k.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	pipe := middleware.NewScorePipeline(internalrepo.NewKafkaScorePublisher(producer, k.ScoresTopic), m,
		middleware.WithBufferSize(k.Producer.BatchSize*10),
	)
	pipe.Start(context.Background())
	return pipe, nil
}

func ProvideHub(l *logger.Logger) *ws.Hub {
	return ws.NewHub(l.With(logger.String("component", "ws")))
}

func ProvideAnalysisUseCase(
	cfg *config.Config,
	source repository.QuoteSource,
	store repository.Store,
	engine *opportunity.Engine,
	l *logger.Logger,
	m repository.Metrics,
	pub repository.ScorePublisher,
	hub *ws.Hub,
	c cache.Service,
) *usecase.AnalysisUseCase {
	a := cfg.Analysis
	opts := []usecase.AnalysisOption{
		usecase.WithMetrics(m),
		usecase.WithBroadcaster(hub),
		usecase.WithLocker(c),
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewAnalysisUseCase(source, store, engine, l.With(logger.String("component", "analysis")), usecase.AnalysisConfig{
		Workers:        a.Workers,
		Timeout:        a.Timeout,
		LockTTL:        a.LockTTL,
		DailyRange:     a.DailyRange,
		DailyInterval:  a.DailyInterval,
		WeeklyRange:    a.WeeklyRange,
		WeeklyInterval: a.WeeklyInterval,
		MonthlyRange:   a.MonthlyRange,
		Universe:       a.Universe,
	}, opts...)
}

func ProvideTickerUseCase(
	cfg *config.Config,
	source repository.QuoteSource,
	store repository.Store,
	engine *opportunity.Engine,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.TickerUseCase {
	return usecase.NewTickerUseCase(source, store, engine, m,
		l.With(logger.String("component", "watchlist")), cfg.Analysis.Workers, cfg.Analysis.WatchlistRange)
}

func ProvideDispatcher(analysis *usecase.AnalysisUseCase, tickers *usecase.TickerUseCase, l *logger.Logger) *usecase.Dispatcher {
	return usecase.NewDispatcher(nil, analysis, tickers, l)
}

// ProvideJobQueue builds the Redis queue when Redis is available, otherwise
// the in-process one, and binds it to the dispatcher.
func ProvideJobQueue(cfg *config.Config, l *logger.Logger, c *CacheLayer, d *usecase.Dispatcher) (server.JobQueue, error) {
	qcfg := &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	ql := l.With(logger.String("component", "queue"))
	if c.Redis != nil {
		q, err := queue.NewRedisQueue(ql, qcfg, c.Redis, cache.Key(cfg.Redis.Prefix, "queue", cfg.Queue.Name), d.Jobs()...)
		if err != nil {
			return nil, fmt.Errorf("redis queue: %w", err)
		}
		d.SetPublisher(q)
		return q, nil
	}
	q, err := queue.NewLocalQueue(ql, qcfg, d.Jobs()...)
	if err != nil {
		return nil, fmt.Errorf("local queue: %w", err)
	}
	d.SetPublisher(q)
	return q, nil
}

// ProvideKafkaConsumer returns nil unless kafka and its consumer are enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, analysis *usecase.AnalysisUseCase) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if !k.Enabled || !k.Consumer.Enabled {
		return nil, nil
	}
	kl := l.With(logger.String("component", "kafka"))
	consumer, err := pkgkafka.NewConsumer(kl,
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers, k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Use(pkgkafka.LoggingHook(kl))
	if err := consumer.Register(usecase.NewAnalysisRequestHandler(k.RequestsTopic, analysis)); err != nil {
		return nil, err
	}
	return consumer, nil
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *logger.Logger,
	store repository.Store,
	analysis *usecase.AnalysisUseCase,
	tickers *usecase.TickerUseCase,
	d *usecase.Dispatcher,
	hub *ws.Hub,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	hl := l.With(logger.String("component", "http"))
	handlers := []xhttp.Handler{
		api.NewHealthHandler(hl, store),
		api.NewTickerHandler(hl, tickers, analysis),
		api.NewOpportunityHandler(hl, analysis, d),
		hub,
	}
	return xhttp.NewServer(hl, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	q server.JobQueue,
	consumer *pkgkafka.Consumer,
	d *usecase.Dispatcher,
	pub repository.ScorePublisher,
	hub *ws.Hub,
	store repository.Store,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, httpServer, q, consumer, d, pub, hub, store, c)
}
