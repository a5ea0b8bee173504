package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"DexPilot/pkg/logger"
)

// MessageHandler consumes messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerHook wraps message handling. BeforeHandle may rewrite the context
// and payload; a non-nil error skips the handler and routes the message
// through error processing.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is the default hook.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}
func (NoopHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}
func (NoopHook) OnError(context.Context, string, kafka.Message, []byte, error)    {}

type consumerConfig struct {
	brokers    []string
	groupID    string
	workers    int
	bufferSize int
	retryMax   int
	backoffMin time.Duration
	backoffMax time.Duration
	dlqTopic   string
	minBytes   int
	maxBytes   int
}

// ConsumerOption configures the consumer.
type ConsumerOption func(*consumerConfig)

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *consumerConfig) { c.brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *consumerConfig) {
		if groupID != "" {
			c.groupID = groupID
		}
	}
}

func WithConsumerWorkers(n int) ConsumerOption {
	return func(c *consumerConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *consumerConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		if max > 0 {
			c.retryMax = max
		}
		if backoffMin > 0 {
			c.backoffMin = backoffMin
		}
		if backoffMax > 0 {
			c.backoffMax = backoffMax
		}
	}
}

func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *consumerConfig) { c.dlqTopic = topic }
}

func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *consumerConfig) {
		if minBytes > 0 {
			c.minBytes = minBytes
		}
		if maxBytes > 0 {
			c.maxBytes = maxBytes
		}
	}
}

type partitionKey struct {
	topic     string
	partition int
}

type task struct {
	topic string
	msg   kafka.Message
}

// Consumer feeds registered handlers from their topics through a shared
// worker pool. Messages on the same partition are handled one at a time, so
// fills for one bot apply in the order the executor reported them.
type Consumer struct {
	cfg  consumerConfig
	log  *logger.Logger
	hook ConsumerHook

	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer
	tasks    chan task

	partMu sync.Mutex
	parts  map[partitionKey]*sync.Mutex

	readWg   sync.WaitGroup
	workWg   sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewConsumer creates a consumer. Handlers are registered before Start.
func NewConsumer(log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := consumerConfig{
		groupID:    "dexpilot",
		workers:    1,
		bufferSize: 64,
		retryMax:   3,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
		minBytes:   10e3,
		maxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		log:      log,
		hook:     NoopHook{},
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		tasks:    make(chan task, cfg.bufferSize),
		parts:    make(map[partitionKey]*sync.Mutex),
		quit:     make(chan struct{}),
	}
	if cfg.dlqTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.brokers...), Balancer: &kafka.LeastBytes{}}
	}
	initConsumerMetrics()
	return c, nil
}

// WithConsumerHook installs a lifecycle hook.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler binds a handler to its topic. Last registration wins.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, dup := c.handlers[h.Topic()]; dup {
		c.log.Warn("kafka handler replaced", logger.String("topic", h.Topic()))
	}
	c.handlers[h.Topic()] = h
}

// Start opens one reader per registered topic and launches the worker pool.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("kafka consumer: no handlers registered")
	}

	for i := 0; i < c.cfg.workers; i++ {
		c.workWg.Add(1)
		go c.worker()
	}

	for topic := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.brokers,
			Topic:    topic,
			GroupID:  c.cfg.groupID,
			MinBytes: c.cfg.minBytes,
			MaxBytes: c.cfg.maxBytes,
		})
		c.readers[topic] = reader
		c.readWg.Add(1)
		go c.fetch(topic, reader)
	}

	c.log.Info("kafka consumer started",
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.workers))
	return nil
}

// Stop drains the pipeline: readers first, then workers, then connections.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.quit)

		done := make(chan struct{})
		go func() {
			c.readWg.Wait()
			close(c.tasks)
			c.workWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}

		for topic, reader := range c.readers {
			if cerr := reader.Close(); cerr != nil {
				c.log.Error("kafka reader close failed", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Error("kafka dlq close failed", logger.Error(cerr))
			}
		}
	})
	return err
}

func (c *Consumer) fetch(topic string, reader *kafka.Reader) {
	defer c.readWg.Done()
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.log.Error("kafka read failed", logger.String("topic", topic), logger.Error(err))
			}
			continue
		}

		// A full task queue blocks the reader, which is the backpressure.
		select {
		case c.tasks <- task{topic: topic, msg: msg}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.tasks)))
		case <-c.quit:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWg.Done()
	for t := range c.tasks {
		c.handleTask(t)
	}
}

func (c *Consumer) handleTask(t task) {
	handler, ok := c.handlers[t.topic]
	if !ok {
		return
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("kafka handler panicked",
				logger.String("topic", t.topic),
				logger.Any("panic", r))
		}
	}()

	lock := c.partitionLock(t.topic, t.msg.Partition)
	lock.Lock()
	defer lock.Unlock()

	var err error
	for attempt := 1; ; attempt++ {
		var (
			hctx  context.Context
			hmsg  kafka.Message
			hdata []byte
		)
		hctx, hmsg, hdata, err = c.hook.BeforeHandle(context.Background(), t.topic, t.msg, t.msg.Value)
		if err != nil {
			// A rejecting hook is final; retrying it cannot help.
			break
		}
		err = handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, t.topic, hmsg, hdata, err)
		if err == nil || attempt > c.cfg.retryMax {
			break
		}
		c.hook.OnError(hctx, t.topic, hmsg, hdata, err)
		select {
		case <-time.After(jitterBackoff(c.cfg.backoffMin, c.cfg.backoffMax, attempt)):
		case <-c.quit:
			return
		}
	}

	if err != nil {
		c.hook.OnError(context.Background(), t.topic, t.msg, t.msg.Value, err)
		c.log.Error("kafka message handling exhausted retries",
			logger.String("topic", t.topic),
			logger.Error(err))
		c.routeToDLQ(t)
	}

	// Commit on success, or after the DLQ took the message, so a poison
	// message cannot wedge the partition.
	if err == nil || c.dlq != nil {
		if reader := c.readers[t.topic]; reader != nil {
			c.commit(reader, t.msg)
		}
	}
	consumerHandleLatency.WithLabelValues(t.topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) routeToDLQ(t task) {
	if c.dlq == nil {
		return
	}
	werr := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.dlqTopic,
		Value:   t.msg.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(t.topic)}},
	})
	if werr != nil {
		c.log.Error("kafka dlq write failed", logger.String("topic", c.cfg.dlqTopic), logger.Error(werr))
	}
}

func (c *Consumer) commit(reader *kafka.Reader, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(jitterBackoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka commit failed", logger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := partitionKey{topic: topic, partition: partition}
	c.partMu.Lock()
	defer c.partMu.Unlock()
	lock, ok := c.parts[key]
	if !ok {
		lock = &sync.Mutex{}
		c.parts[key] = lock
	}
	return lock
}

// jitterBackoff is exponential from min with up to 50% jitter, capped at max.
func jitterBackoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min * time.Duration(1<<uint(attempt-1))
	if d > max || d <= 0 {
		d = max
	}
	return d - time.Duration(rand.Int63n(int64(d)/2))
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerMetricsOnce   sync.Once
)

func initConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dexpilot_kafka_consumer_queue_depth", Help: "Messages waiting in the consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "dexpilot_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
