package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. It is constructed once at
// startup, validated, and passed by pointer; nothing mutates it afterwards.
type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Sources struct {
		Stream struct {
			URL             string        `yaml:"url"`
			ReconnectDelay  time.Duration `yaml:"reconnect_delay" default:"5s"`
			PingInterval    time.Duration `yaml:"ping_interval" default:"30s"`
			Freshness       time.Duration `yaml:"freshness" default:"10s"`
		} `yaml:"stream"`
		Pull struct {
			BaseURL    string        `yaml:"base_url"`
			Timeout    time.Duration `yaml:"timeout" default:"10s"`
			Freshness  time.Duration `yaml:"freshness" default:"60s"`
			BatchSize  int           `yaml:"batch_size" default:"50" validate:"gt=0"`
			BatchDelay time.Duration `yaml:"batch_delay" default:"500ms"`
		} `yaml:"pull"`
		CacheMaxAge         time.Duration `yaml:"cache_max_age" default:"60s"`
		DivergenceThreshold float64       `yaml:"divergence_threshold" default:"0.02" validate:"gt=0,lt=1"`
		MaxFailures         int           `yaml:"max_failures" default:"3" validate:"gt=0"`
		FailureCooldown     time.Duration `yaml:"failure_cooldown" default:"2m"`
	} `yaml:"sources"`

	Catalog struct {
		BaseURL     string  `yaml:"base_url"`
		MinVolume24 float64 `yaml:"min_volume_24h" default:"1000"`
		MaxMarkets  int     `yaml:"max_markets" default:"200" validate:"gt=0"`
	} `yaml:"catalog"`

	Scheduler struct {
		PollInterval time.Duration `yaml:"poll_interval" default:"30s" validate:"required"`
		Tier2Divisor int           `yaml:"tier2_divisor" default:"5" validate:"gt=0"`
		TierTimeout  time.Duration `yaml:"tier_timeout" default:"25s"`
		FetchWorkers int           `yaml:"fetch_workers" default:"8" validate:"gt=0"`
	} `yaml:"scheduler"`

	Analysis struct {
		ArbitrageThreshold       float64       `yaml:"arbitrage_threshold" default:"0.01" validate:"gt=0,lt=1"`
		FeePerSide               float64       `yaml:"fee_per_side" default:"0.02" validate:"gte=0,lt=1"`
		SlippageCents            float64       `yaml:"slippage_cents" default:"0.5" validate:"gte=0"`
		MinProfitCents           float64       `yaml:"min_profit_cents" default:"5.0" validate:"gte=0"`
		SettlementExtreme        float64       `yaml:"settlement_extreme" default:"0.95" validate:"gt=0.5,lt=1"`
		SettlementMinMovementPct float64       `yaml:"settlement_min_movement_pct" default:"3.0" validate:"gte=0"`
		SettlementMaxDays        int           `yaml:"settlement_max_days" default:"30" validate:"gt=0"`
		MovementThresholdPct     float64       `yaml:"movement_threshold_pct" default:"5.0" validate:"gt=0"`
		MovementLookback         time.Duration `yaml:"movement_lookback" default:"1h"`
		MultiOutcomeThreshold    float64       `yaml:"multi_outcome_threshold" default:"0.05" validate:"gt=0,lt=1"`
		BaselineMultiplier       float64       `yaml:"baseline_multiplier" default:"1.5" validate:"gte=1"`
		CrossPlatformMinSpread   float64       `yaml:"cross_platform_min_spread_pct" default:"3.0" validate:"gt=0"`
		WhaleVolumeMultiplier    float64       `yaml:"whale_volume_multiplier" default:"3.0" validate:"gt=1"`
		WhaleMinVolume           float64       `yaml:"whale_min_volume" default:"10000" validate:"gte=0"`
		ResolutionWindow         time.Duration `yaml:"resolution_window" default:"24h"`
		ResolutionBandLow        float64       `yaml:"resolution_band_low" default:"0.20" validate:"gte=0,lt=1"`
		ResolutionBandHigh       float64       `yaml:"resolution_band_high" default:"0.80" validate:"gt=0,lte=1"`
		DivergencePolicy         string        `yaml:"divergence_policy" default:"exclude" validate:"oneof=exclude downweight"`
	} `yaml:"analysis"`

	Baseline struct {
		Retention  time.Duration `yaml:"retention" default:"168h"`
		MinSamples int           `yaml:"min_samples" default:"5" validate:"gt=0"`
	} `yaml:"baseline"`

	Gate struct {
		Cooldown time.Duration `yaml:"cooldown" default:"30m"`
		MinScore float64       `yaml:"min_score" default:"0.25" validate:"gte=0,lte=1"`
	} `yaml:"gate"`

	Scorer struct {
		LiquidityWeight  float64 `yaml:"liquidity_weight" default:"0.35" validate:"gte=0,lte=1"`
		StabilityWeight  float64 `yaml:"stability_weight" default:"0.25" validate:"gte=0,lte=1"`
		TimeWeight       float64 `yaml:"time_weight" default:"0.25" validate:"gte=0,lte=1"`
		ComplexityWeight float64 `yaml:"complexity_weight" default:"0.15" validate:"gte=0,lte=1"`
	} `yaml:"scorer"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"archantum"`
	} `yaml:"redis"`

	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"archantum"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		AsyncInsert  bool          `yaml:"async_insert" default:"true"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"archantum.alerts"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"gt=0"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML bytes.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and endpoints
// from environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		c.Sources.Stream.URL = v
	}
	if v := os.Getenv("PULL_BASE_URL"); v != "" {
		c.Sources.Pull.BaseURL = v
	}
	if v := os.Getenv("CATALOG_BASE_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	return c, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	sum := c.Scorer.LiquidityWeight + c.Scorer.StabilityWeight +
		c.Scorer.TimeWeight + c.Scorer.ComplexityWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scorer weights must sum to 1.0, got %.4f", sum)
	}
	if c.Analysis.ResolutionBandLow >= c.Analysis.ResolutionBandHigh {
		return fmt.Errorf("resolution_band_low must be below resolution_band_high")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	return nil
}
