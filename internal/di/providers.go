package di

import (
	"context"
	"fmt"
	"time"

	"github.com/wrenwealth/Archantum/internal/analysis"
	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/dispatch"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/internal/gate"
	"github.com/wrenwealth/Archantum/internal/handler/api"
	"github.com/wrenwealth/Archantum/internal/reconcile"
	internalrepo "github.com/wrenwealth/Archantum/internal/repository"
	"github.com/wrenwealth/Archantum/internal/scheduler"
	"github.com/wrenwealth/Archantum/internal/scoring"
	"github.com/wrenwealth/Archantum/internal/snapcache"
	"github.com/wrenwealth/Archantum/internal/source"
	"github.com/wrenwealth/Archantum/internal/usecase"
	"github.com/wrenwealth/Archantum/pkg/cache"
	pkgch "github.com/wrenwealth/Archantum/pkg/clickhouse"
	"github.com/wrenwealth/Archantum/pkg/config"
	xhttp "github.com/wrenwealth/Archantum/pkg/http"
	pkgkafka "github.com/wrenwealth/Archantum/pkg/kafka"
	applogger "github.com/wrenwealth/Archantum/pkg/logger"
	"github.com/wrenwealth/Archantum/pkg/metrics"
	"github.com/wrenwealth/Archantum/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache service: Redis when enabled, otherwise an
// in-process fallback so the pipeline runs without external state.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideStateStore adapts the cache service into the baseline/gate
// persistence contract. The TTL runs a day past the baseline horizon so
// abandoned keys expire on their own.
func ProvideStateStore(cfg *config.Config, c cache.Service) repository.StateStore {
	return internalrepo.NewCacheStateStore(c, cfg.Baseline.Retention+24*time.Hour)
}

// ProvideClickHouseClient creates the ClickHouse client when archival is
// enabled; a nil client selects the in-memory archive.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive creates the snapshot archive over ClickHouse, or the
// retention-bounded in-memory archive when ClickHouse is disabled.
func ProvideArchive(cfg *config.Config, chClient *pkgch.Client) (repository.SnapshotArchive, error) {
	if chClient == nil {
		return internalrepo.NewMemoryArchive(cfg.Baseline.Retention), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	archive, err := internalrepo.NewClickHouseArchive(ctx, chClient.DB())
	if err != nil {
		return nil, fmt.Errorf("clickhouse archive: %w", err)
	}
	return archive, nil
}

// ProvideNotifier creates the outbound alert boundary: Kafka when enabled,
// otherwise structured-log delivery.
func ProvideNotifier(cfg *config.Config, log *applogger.Logger) (repository.Notifier, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewLogNotifier(log), nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaNotifier(producer, cfg.Kafka.Topic), nil
}

// ProvideStreamSource creates the websocket price feed.
func ProvideStreamSource(cfg *config.Config, log *applogger.Logger) repository.StreamSource {
	return source.NewStreamClient(
		cfg.Sources.Stream.URL,
		cfg.Sources.Stream.ReconnectDelay,
		cfg.Sources.Stream.PingInterval,
		log,
	)
}

// ProvidePullSource creates the batched REST price feed.
func ProvidePullSource(cfg *config.Config, log *applogger.Logger) repository.PullSource {
	return source.NewPullClient(
		cfg.Sources.Pull.BaseURL,
		cfg.Sources.Pull.Timeout,
		cfg.Sources.Pull.BatchSize,
		cfg.Sources.Pull.BatchDelay,
		log,
	)
}

// ProvideCatalog creates the market catalog client.
func ProvideCatalog(cfg *config.Config, log *applogger.Logger) repository.Catalog {
	return source.NewCatalogClient(
		cfg.Catalog.BaseURL,
		cfg.Sources.Pull.Timeout,
		cfg.Catalog.MinVolume24,
		cfg.Catalog.MaxMarkets,
		log,
	)
}

// ProvideHealthTracker creates the per-source failure tracker.
func ProvideHealthTracker(cfg *config.Config) *reconcile.HealthTracker {
	return reconcile.NewHealthTracker(cfg.Sources.MaxFailures, cfg.Sources.FailureCooldown)
}

// ProvideSnapshotCache creates the last-resort snapshot cache.
func ProvideSnapshotCache() *snapcache.Cache {
	return snapcache.New()
}

// ProvideReconciler assembles the source failover and divergence layer.
func ProvideReconciler(
	cfg *config.Config,
	stream repository.StreamSource,
	pull repository.PullSource,
	snapCache *snapcache.Cache,
	health *reconcile.HealthTracker,
	m repository.Metrics,
	log *applogger.Logger,
) *reconcile.Reconciler {
	return reconcile.New(reconcile.Config{
		StreamFreshness:     cfg.Sources.Stream.Freshness,
		PullFreshness:       cfg.Sources.Pull.Freshness,
		CacheMaxAge:         cfg.Sources.CacheMaxAge,
		DivergenceThreshold: cfg.Sources.DivergenceThreshold,
		Workers:             cfg.Scheduler.FetchWorkers,
	}, stream, pull, snapCache, health, m, log)
}

// ProvideTracker creates the rolling baseline tracker.
func ProvideTracker(cfg *config.Config, store repository.StateStore, log *applogger.Logger) *baseline.Tracker {
	return baseline.NewTracker(cfg.Baseline.Retention, cfg.Baseline.MinSamples, store, log)
}

// ProvideRegistry assembles the fixed analyzer set. Tier 1 runs every tick;
// tier 2 only on deep-scan ticks.
func ProvideRegistry(cfg *config.Config, archive repository.SnapshotArchive, log *applogger.Logger) *analysis.Registry {
	a := cfg.Analysis
	return analysis.NewRegistry(
		analysis.Entry{Tier: analysis.Tier1, Analyzer: analysis.NewArbitrage(analysis.ArbitrageConfig{
			Threshold:        a.ArbitrageThreshold,
			FeePerSide:       a.FeePerSide,
			SlippageCents:    a.SlippageCents,
			MinProfitCents:   a.MinProfitCents,
			DivergencePolicy: a.DivergencePolicy,
		})},
		analysis.Entry{Tier: analysis.Tier1, Analyzer: analysis.NewSettlement(analysis.SettlementConfig{
			Extreme:          a.SettlementExtreme,
			MinMovementPct:   a.SettlementMinMovementPct,
			MaxDays:          a.SettlementMaxDays,
			DivergencePolicy: a.DivergencePolicy,
		}, archive, log)},
		analysis.Entry{Tier: analysis.Tier1, Analyzer: analysis.NewMovement(analysis.MovementConfig{
			ThresholdPct:     a.MovementThresholdPct,
			Lookback:         a.MovementLookback,
			DivergencePolicy: a.DivergencePolicy,
		})},
		analysis.Entry{Tier: analysis.Tier1, Analyzer: analysis.NewWhale(analysis.WhaleConfig{
			VolumeMultiplier: a.WhaleVolumeMultiplier,
			MinVolume:        a.WhaleMinVolume,
			DivergencePolicy: a.DivergencePolicy,
		})},
		analysis.Entry{Tier: analysis.Tier1, Analyzer: analysis.NewResolution(analysis.ResolutionConfig{
			Window:           a.ResolutionWindow,
			BandLow:          a.ResolutionBandLow,
			BandHigh:         a.ResolutionBandHigh,
			DivergencePolicy: a.DivergencePolicy,
		})},
		analysis.Entry{Tier: analysis.Tier2, Analyzer: analysis.NewDependency(analysis.DependencyConfig{
			MinViolation:     a.ArbitrageThreshold,
			FeePerSide:       a.FeePerSide,
			SlippageCents:    a.SlippageCents,
			MinProfitCents:   a.MinProfitCents,
			DivergencePolicy: a.DivergencePolicy,
		})},
		analysis.Entry{Tier: analysis.Tier2, Analyzer: analysis.NewMultiOutcome(analysis.MultiOutcomeConfig{
			Threshold:          a.MultiOutcomeThreshold,
			BaselineMultiplier: a.BaselineMultiplier,
			FeePerSide:         a.FeePerSide,
			SlippageCents:      a.SlippageCents,
			MinProfitCents:     a.MinProfitCents,
			DivergencePolicy:   a.DivergencePolicy,
		})},
		analysis.Entry{Tier: analysis.Tier2, Analyzer: analysis.NewCrossPlatform(analysis.CrossPlatformConfig{
			MinSpreadPct:     a.CrossPlatformMinSpread,
			FeePerSide:       a.FeePerSide,
			SlippageCents:    a.SlippageCents,
			MinProfitCents:   a.MinProfitCents,
			DivergencePolicy: a.DivergencePolicy,
		})},
	)
}

// ProvideScorer creates the deterministic composite scorer.
func ProvideScorer(cfg *config.Config) *scoring.Scorer {
	return scoring.New(scoring.Weights{
		Liquidity:  cfg.Scorer.LiquidityWeight,
		Stability:  cfg.Scorer.StabilityWeight,
		Time:       cfg.Scorer.TimeWeight,
		Complexity: cfg.Scorer.ComplexityWeight,
	})
}

// ProvideGate creates the alert dedup gate.
func ProvideGate(cfg *config.Config, store repository.StateStore, log *applogger.Logger) *gate.Gate {
	return gate.New(cfg.Gate.Cooldown, cfg.Gate.MinScore, store, log)
}

// ProvideDispatcher creates the alert dispatcher with redelivery buffering.
func ProvideDispatcher(notifier repository.Notifier, m repository.Metrics, log *applogger.Logger) *dispatch.Dispatcher {
	return dispatch.New(notifier, m, log)
}

// ProvideEngine assembles the per-tick pipeline.
func ProvideEngine(
	catalog repository.Catalog,
	stream repository.StreamSource,
	reconciler *reconcile.Reconciler,
	archive repository.SnapshotArchive,
	registry *analysis.Registry,
	tracker *baseline.Tracker,
	scorer *scoring.Scorer,
	g *gate.Gate,
	dispatcher *dispatch.Dispatcher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(catalog, stream, reconciler, archive, registry, tracker, scorer, g, dispatcher, m, log)
}

// ProvideScheduler drives the engine on the configured cadence.
func ProvideScheduler(cfg *config.Config, engine *usecase.Engine, log *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		Interval:     cfg.Scheduler.PollInterval,
		Tier2Divisor: cfg.Scheduler.Tier2Divisor,
		TierTimeout:  cfg.Scheduler.TierTimeout,
	}, engine, log)
}

// ProvideHTTPServer creates the ops API server with routes registered.
func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, engine *usecase.Engine) *xhttp.Server {
	handler := api.NewStatusEchoHandler(log, engine)
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsLogging(log, 2*time.Second),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	engine *usecase.Engine,
	stream repository.StreamSource,
	dispatcher *dispatch.Dispatcher,
	httpServer *xhttp.Server,
	archive repository.SnapshotArchive,
	notifier repository.Notifier,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, sched, engine, stream, dispatcher, httpServer, archive, notifier, chClient)
}
