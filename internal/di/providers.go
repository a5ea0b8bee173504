package di

import (
	"context"
	"fmt"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/domain/repository"
	"DexPilot/internal/handler/api"
	mid "DexPilot/internal/middleware"
	internalrepo "DexPilot/internal/repository"
	icache "DexPilot/internal/service/cache"
	"DexPilot/internal/service/feed"
	"DexPilot/internal/service/ratelimit"
	"DexPilot/internal/services/analyzers"
	"DexPilot/internal/services/features"
	"DexPilot/internal/usecase"
	pkgcache "DexPilot/pkg/cache"
	pkgch "DexPilot/pkg/clickhouse"
	"DexPilot/pkg/config"
	xhttp "DexPilot/pkg/http"
	pkgkafka "DexPilot/pkg/kafka"
	applogger "DexPilot/pkg/logger"
	"DexPilot/pkg/metrics"
	"DexPilot/pkg/queue"
	"DexPilot/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the fills
// schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.FillsSchema(cfg.ClickHouse.Database, fillsTable(cfg))); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func fillsTable(cfg *config.Config) string {
	table := cfg.ClickHouse.FillsTable
	if table == "" {
		table = "fills"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideFillLedger creates the ClickHouse fill store.
func ProvideFillLedger(chClient *pkgch.Client, cfg *config.Config) repository.FillLedger {
	return internalrepo.NewClickHouseFillLedger(chClient.DB(), fillsTable(cfg))
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideActionPublisher creates the Kafka publisher for approved actions.
func ProvideActionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ActionPublisher {
	return internalrepo.NewKafkaActionPublisher(producer, cfg.Kafka.ActionsTopic)
}

// ProvideAlertSink creates the Kafka alert sink.
func ProvideAlertSink(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertSink {
	return internalrepo.NewKafkaAlertSink(producer, cfg.Kafka.AlertsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, lgr *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(lgr,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedis creates the shared Redis client.
func ProvideRedis(cfg *config.Config) (*pkgcache.RedisCache, error) {
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideQueuePublisher creates the producer side of the reconcile queue and
// attaches error-log aggregation on a separate key prefix so aggregated logs
// never mix with reconcile messages.
func ProvideQueuePublisher(lgr *applogger.Logger, rc *pkgcache.RedisCache) queue.QueueService {
	logs := queue.NewRedisPublisher(lgr, rc.Client(), queue.WithKeyPrefix("dexpilot:logs"))
	lgr.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "log.error",
		Publisher:      logs,
	})
	return queue.NewRedisPublisher(lgr, rc.Client())
}

// ProvideFillsHandler registers the Kafka handler for execution fills.
func ProvideFillsHandler(cfg *config.Config, q queue.QueueService, m repository.Metrics) *usecase.FillsHandler {
	return usecase.NewFillsHandler(cfg.Kafka.FillsTopic, q, m)
}

// ProvideFillReconciler creates the queue job applying fills to the ledger.
func ProvideFillReconciler(
	ledger *usecase.Ledger,
	tracker *usecase.Tracker,
	fills repository.FillLedger,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.FillReconciler {
	return usecase.NewFillReconciler(ledger, tracker, fills, m, lgr)
}

// ProvideQueueConsumer creates the consumer side of the reconcile queue.
func ProvideQueueConsumer(
	lgr *applogger.Logger,
	cfg *config.Config,
	rc *pkgcache.RedisCache,
	reconciler *usecase.FillReconciler,
) *queue.RedisQueue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Redis.Workers,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}
	return queue.NewRedisConsumer(lgr, qc, rc.Client(), []queue.Job{reconciler})
}

// ProvideWindowRegistry creates the per-pair snapshot windows.
func ProvideWindowRegistry() *features.WindowRegistry {
	return features.NewWindowRegistry(512)
}

// ProvideFeedStream creates the aggregator gateway WebSocket stream.
func ProvideFeedStream(cfg *config.Config) repository.SnapshotStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Pairs,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideCollector creates the snapshot collector with its pipeline.
func ProvideCollector(
	stream repository.SnapshotStream,
	windows *features.WindowRegistry,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotCollector {
	pipe := mid.NewSnapshotPipeline(windows, m,
		mid.WithMaxRPS(cfg.Feed.MaxRPS),
		mid.WithBufferSize(cfg.Feed.BufferSize),
	)
	return usecase.NewSnapshotCollector(stream, pipe, m)
}

// ProvideLedger creates the portfolio ledger actor.
func ProvideLedger(cfg *config.Config, lgr *applogger.Logger, m repository.Metrics) *usecase.Ledger {
	return usecase.NewLedger(cfg.Engine.OpeningBalance, lgr, m)
}

// ProvideTracker creates the performance tracker and replays recent fills so a
// restart does not reset every bot's rolling window to empty.
func ProvideTracker(cfg *config.Config, fills repository.FillLedger, lgr *applogger.Logger) *usecase.Tracker {
	tracker := usecase.NewTracker(usecase.TrackerConfig{
		Window:          cfg.Engine.Tracker.Window,
		MinTrades:       cfg.Engine.Tracker.MinTrades,
		RiskFreeRate:    cfg.Engine.Tracker.RiskFreeRate,
		WeightFloor:     cfg.Engine.Tracker.WeightFloor,
		AnalyzerWeights: analyzerWeights(cfg.Engine.Weights.Analyzer),
		StrategyWeights: strategyWeights(cfg.Engine.Weights.Strategy),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	replayed, err := tracker.Warmup(ctx, fills, time.Now().UTC())
	if err != nil {
		lgr.Warn("tracker warm-up failed, starting cold", applogger.Error(err))
	} else if replayed > 0 {
		lgr.Info("tracker warmed up from fill history", applogger.Int("fills", replayed))
	}
	return tracker
}

func analyzerWeights(raw map[string]float64) models.AnalyzerWeights {
	if len(raw) == 0 {
		return nil
	}
	out := make(models.AnalyzerWeights, len(raw))
	for k, v := range raw {
		out[models.AnalyzerKind(k)] = v
	}
	return out
}

func strategyWeights(raw map[string]float64) models.StrategyWeights {
	if len(raw) == 0 {
		return nil
	}
	out := make(models.StrategyWeights, len(raw))
	for k, v := range raw {
		out[models.StrategyKind(k)] = v
	}
	return out
}

// ProvideAnalyzers creates the full analyzer set.
func ProvideAnalyzers() []analyzers.Analyzer {
	return analyzers.DefaultSet(analyzers.DefaultConfig())
}

// ProvideAggregator creates the signal aggregator from configured thresholds.
func ProvideAggregator(cfg *config.Config) *usecase.Aggregator {
	return usecase.NewAggregator(usecase.AggregatorConfig{
		VolatileThreshold:    cfg.Engine.Aggregator.VolatileThreshold,
		PersistenceThreshold: cfg.Engine.Aggregator.PersistenceThreshold,
		SlopeThreshold:       cfg.Engine.Aggregator.SlopeThreshold,
		VolWindow:            cfg.Engine.Aggregator.VolWindow,
	})
}

// ProvideGenerator creates the action generator from configured bounds.
func ProvideGenerator(cfg *config.Config) *usecase.Generator {
	return usecase.NewGenerator(usecase.GeneratorConfig{
		MinSpread:      cfg.Engine.Generator.MinSpread,
		MaxSpread:      cfg.Engine.Generator.MaxSpread,
		RebalanceMM:    cfg.Engine.Generator.RebalanceMM,
		RebalanceLP:    cfg.Engine.Generator.RebalanceLP,
		StopLossBase:   cfg.Engine.Generator.StopLossBase,
		TakeProfitBase: cfg.Engine.Generator.TakeProfitBase,
	})
}

// ProvideEvaluator creates the strategy evaluator from configured thresholds.
func ProvideEvaluator(cfg *config.Config, gen *usecase.Generator) *usecase.Evaluator {
	return usecase.NewEvaluator(usecase.EvaluatorConfig{
		Epsilon:        cfg.Engine.Evaluator.Epsilon,
		MinProfit:      cfg.Engine.Evaluator.MinProfit,
		MaxSlippage:    cfg.Engine.Evaluator.MaxSlippage,
		LiquidityFloor: cfg.Engine.Evaluator.LiquidityFloor,
	}, gen)
}

// ProvideRiskGate creates the risk gate from configured limits.
func ProvideRiskGate(cfg *config.Config) *usecase.RiskGate {
	return usecase.NewRiskGate(usecase.RiskLimits{
		MaxDrawdown:      cfg.Engine.Risk.MaxDrawdown,
		MaxLeverage:      cfg.Engine.Risk.MaxLeverage,
		MinLiquidity:     cfg.Engine.Risk.MinLiquidity,
		BreakerThreshold: cfg.Engine.Risk.BreakerThreshold,
	})
}

// ProvideDispatcher creates the action dispatcher.
func ProvideDispatcher(
	cfg *config.Config,
	pub repository.ActionPublisher,
	alerts repository.AlertSink,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.Dispatcher {
	dcfg := usecase.DispatcherConfig{
		Backend:      cfg.Engine.Dispatcher.Backend,
		ExecutorURL:  cfg.Engine.Dispatcher.ExecutorURL,
		MaxAttempts:  cfg.Engine.Dispatcher.MaxAttempts,
		RetryBackoff: cfg.Engine.Dispatcher.RetryBackoff,
		RateCapacity: cfg.Engine.Dispatcher.RateCapacity,
		RateRefill:   cfg.Engine.Dispatcher.RateRefill,
	}
	return usecase.NewDispatcher(dcfg, pub, xhttp.NewClient(), ratelimit.New(), alerts, m, lgr)
}

// ProvideDecisionCycle creates the per-bot decision pipeline.
func ProvideDecisionCycle(
	set []analyzers.Analyzer,
	agg *usecase.Aggregator,
	eval *usecase.Evaluator,
	gate *usecase.RiskGate,
	ledger *usecase.Ledger,
	tracker *usecase.Tracker,
	dispatcher *usecase.Dispatcher,
	alerts repository.AlertSink,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.DecisionCycle {
	return usecase.NewDecisionCycle(set, agg, eval, gate, ledger, tracker, dispatcher, alerts, m, lgr)
}

// ProvideScheduler creates the per-bot cycle scheduler.
func ProvideScheduler(
	cycle *usecase.DecisionCycle,
	ledger *usecase.Ledger,
	windows *features.WindowRegistry,
	lgr *applogger.Logger,
) *usecase.Scheduler {
	return usecase.NewScheduler(cycle, ledger, windows, lgr)
}

// ProvideRouter creates the HTTP API router.
func ProvideRouter(
	lgr *applogger.Logger,
	ledger *usecase.Ledger,
	scheduler *usecase.Scheduler,
	gate *usecase.RiskGate,
	tracker *usecase.Tracker,
	fills repository.FillLedger,
	rc *pkgcache.RedisCache,
) *api.Router {
	bots := api.NewBotsHandler(lgr, ledger, scheduler, gate)
	portfolio := api.NewPortfolioHandler(lgr, ledger)
	reports := api.NewReportsHandler(lgr, tracker, fills)
	reports.SetCache(icache.NewServiceCache(pkgcache.NewLayeredCache(rc)))
	return api.NewRouter(bots, portfolio, reports)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	fillsHandler *usecase.FillsHandler,
	queueConsumer *queue.RedisQueue,
	scheduler *usecase.Scheduler,
	ledger *usecase.Ledger,
	tracker *usecase.Tracker,
	dispatcher *usecase.Dispatcher,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
	router *api.Router,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, lgr, collector, consumer, fillsHandler, queueConsumer,
		scheduler, ledger, tracker, dispatcher, chClient, rc, router)
}
