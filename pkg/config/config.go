package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ActionsTopic string   `yaml:"actions_topic"`
		FillsTopic   string   `yaml:"fills_topic"`
		AlertsTopic  string   `yaml:"alerts_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		FillsTable       string        `yaml:"fills_table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Workers  int    `yaml:"workers"`
	} `yaml:"redis"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Pairs          []string      `yaml:"pairs"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"feed"`
	Engine struct {
		OpeningBalance float64       `yaml:"opening_balance"`
		AdaptInterval  time.Duration `yaml:"adapt_interval"`
		Dispatcher     struct {
			Backend      string        `yaml:"backend"`
			ExecutorURL  string        `yaml:"executor_url"`
			MaxAttempts  int           `yaml:"max_attempts"`
			RetryBackoff time.Duration `yaml:"retry_backoff"`
			RateCapacity float64       `yaml:"rate_capacity"`
			RateRefill   float64       `yaml:"rate_refill"`
		} `yaml:"dispatcher"`
		Risk struct {
			MaxDrawdown      float64 `yaml:"max_drawdown"`
			MaxLeverage      float64 `yaml:"max_leverage"`
			MinLiquidity     float64 `yaml:"min_liquidity"`
			BreakerThreshold int     `yaml:"breaker_threshold"`
		} `yaml:"risk"`
		Tracker struct {
			Window       time.Duration `yaml:"window"`
			MinTrades    int           `yaml:"min_trades"`
			RiskFreeRate float64       `yaml:"risk_free_rate"`
			WeightFloor  float64       `yaml:"weight_floor"`
		} `yaml:"tracker"`
		Weights struct {
			Analyzer map[string]float64 `yaml:"analyzer"`
			Strategy map[string]float64 `yaml:"strategy"`
		} `yaml:"weights"`
		Aggregator struct {
			VolatileThreshold    float64 `yaml:"volatile_threshold"`
			PersistenceThreshold float64 `yaml:"persistence_threshold"`
			SlopeThreshold       float64 `yaml:"slope_threshold"`
			VolWindow            int     `yaml:"vol_window"`
		} `yaml:"aggregator"`
		Evaluator struct {
			Epsilon        float64 `yaml:"epsilon"`
			MinProfit      float64 `yaml:"min_profit"`
			MaxSlippage    float64 `yaml:"max_slippage"`
			LiquidityFloor float64 `yaml:"liquidity_floor"`
		} `yaml:"evaluator"`
		Generator struct {
			MinSpread      float64 `yaml:"min_spread"`
			MaxSpread      float64 `yaml:"max_spread"`
			RebalanceMM    float64 `yaml:"rebalance_mm"`
			RebalanceLP    float64 `yaml:"rebalance_lp"`
			StopLossBase   float64 `yaml:"stop_loss"`
			TakeProfitBase float64 `yaml:"take_profit"`
		} `yaml:"generator"`
	} `yaml:"engine"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("PAIRS"); v != "" {
		c.Feed.Pairs = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("DISPATCH_BACKEND"); v != "" {
		c.Engine.Dispatcher.Backend = v
	}
	if v := os.Getenv("EXECUTOR_URL"); v != "" {
		c.Engine.Dispatcher.ExecutorURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Feed.Pairs) == 0 {
		return fmt.Errorf("feed.pairs cannot be empty")
	}
	if c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required")
	}
	if c.Engine.OpeningBalance <= 0 {
		return fmt.Errorf("engine.opening_balance must be positive")
	}
	switch c.Engine.Dispatcher.Backend {
	case "kafka", "http":
	default:
		return fmt.Errorf("engine.dispatcher.backend must be 'kafka' or 'http', got '%s'", c.Engine.Dispatcher.Backend)
	}
	if c.Engine.Dispatcher.Backend == "http" && c.Engine.Dispatcher.ExecutorURL == "" {
		return fmt.Errorf("engine.dispatcher.executor_url is required for http backend")
	}
	if c.Engine.Dispatcher.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty for kafka backend")
	}
	for name, w := range c.Engine.Weights.Analyzer {
		if w < 0 {
			return fmt.Errorf("engine.weights.analyzer.%s must be non-negative, got %f", name, w)
		}
	}
	for name, w := range c.Engine.Weights.Strategy {
		if w < 0 {
			return fmt.Errorf("engine.weights.strategy.%s must be non-negative, got %f", name, w)
		}
	}
	if g := c.Engine.Generator; g.MaxSpread > 0 && g.MinSpread > 0 && g.MaxSpread <= g.MinSpread {
		return fmt.Errorf("engine.generator.max_spread must exceed min_spread")
	}
	return nil
}
