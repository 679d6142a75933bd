package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trend-paper-trader/internal/domain"
)

// Config holds every tunable of the trader. Values resolve in three
// layers: defaults, then the YAML file, then TRADER_* environment
// variables.
type Config struct {
	// Market
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`

	// Strategy
	EMAShortPeriod  int     `yaml:"ema_short_period"`
	EMALongPeriod   int     `yaml:"ema_long_period"`
	ATRPeriod       int     `yaml:"atr_period"`
	SwingLookback   int     `yaml:"swing_lookback"`
	ATRMultiplier   float64 `yaml:"atr_multiplier"`
	RiskRewardRatio float64 `yaml:"risk_reward_ratio"`
	StrategyVersion string  `yaml:"strategy_version"`

	// Risk
	InitialCapital    float64 `yaml:"initial_capital"`
	RiskPerTrade      float64 `yaml:"risk_per_trade"`
	DailyLossLimitPct float64 `yaml:"daily_loss_limit_pct"`

	// Monitoring
	CandleCount    int           `yaml:"candle_count"`
	CandleInterval time.Duration `yaml:"candle_interval"`
	PriceInterval  time.Duration `yaml:"price_interval"`

	// Market data endpoints.
	APIBaseURL string `yaml:"api_base_url"`
	WSEndpoint string `yaml:"ws_endpoint"`
	EnableWS   bool   `yaml:"enable_ws"`

	// Storage. Memory stores are used when a DSN is empty.
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`

	// Observability
	MetricsAddr string `yaml:"metrics_addr"`
	LogFile     string `yaml:"log_file"`
}

// Default returns the configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Symbol:   "BTCUSD",
		Interval: "1h",

		EMAShortPeriod:  9,
		EMALongPeriod:   20,
		ATRPeriod:       14,
		SwingLookback:   10,
		ATRMultiplier:   0.5,
		RiskRewardRatio: 10,
		StrategyVersion: string(domain.StrategyV2),

		InitialCapital:    500,
		RiskPerTrade:      0.02,
		DailyLossLimitPct: 0.10,

		CandleCount:    100,
		CandleInterval: 60 * time.Second,
		PriceInterval:  5 * time.Second,

		APIBaseURL: "https://api.india.delta.exchange",
		WSEndpoint: "wss://socket.india.delta.exchange",
		EnableWS:   false,

		MetricsAddr: ":9100",
	}
}

// Load resolves configuration: .env into the process environment,
// defaults, the YAML file at path (skipped when path is empty), then
// environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	// Missing .env is fine; system environment still applies.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from TRADER_* environment variables.
func (c *Config) applyEnv() error {
	var err error

	setStr("TRADER_SYMBOL", &c.Symbol)
	setStr("TRADER_INTERVAL", &c.Interval)
	setStr("TRADER_STRATEGY_VERSION", &c.StrategyVersion)
	setStr("TRADER_API_BASE_URL", &c.APIBaseURL)
	setStr("TRADER_WS_ENDPOINT", &c.WSEndpoint)
	setStr("TRADER_POSTGRES_DSN", &c.PostgresDSN)
	setStr("TRADER_CLICKHOUSE_DSN", &c.ClickhouseDSN)
	setStr("TRADER_METRICS_ADDR", &c.MetricsAddr)
	setStr("TRADER_LOG_FILE", &c.LogFile)

	if err = setInt("TRADER_EMA_SHORT_PERIOD", &c.EMAShortPeriod); err != nil {
		return err
	}
	if err = setInt("TRADER_EMA_LONG_PERIOD", &c.EMALongPeriod); err != nil {
		return err
	}
	if err = setInt("TRADER_ATR_PERIOD", &c.ATRPeriod); err != nil {
		return err
	}
	if err = setInt("TRADER_SWING_LOOKBACK", &c.SwingLookback); err != nil {
		return err
	}
	if err = setInt("TRADER_CANDLE_COUNT", &c.CandleCount); err != nil {
		return err
	}
	if err = setFloat("TRADER_ATR_MULTIPLIER", &c.ATRMultiplier); err != nil {
		return err
	}
	if err = setFloat("TRADER_RISK_REWARD_RATIO", &c.RiskRewardRatio); err != nil {
		return err
	}
	if err = setFloat("TRADER_INITIAL_CAPITAL", &c.InitialCapital); err != nil {
		return err
	}
	if err = setFloat("TRADER_RISK_PER_TRADE", &c.RiskPerTrade); err != nil {
		return err
	}
	if err = setFloat("TRADER_DAILY_LOSS_LIMIT_PCT", &c.DailyLossLimitPct); err != nil {
		return err
	}
	if err = setDuration("TRADER_CANDLE_INTERVAL", &c.CandleInterval); err != nil {
		return err
	}
	if err = setDuration("TRADER_PRICE_INTERVAL", &c.PriceInterval); err != nil {
		return err
	}
	if err = setBool("TRADER_ENABLE_WS", &c.EnableWS); err != nil {
		return err
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol is required")
	}
	if c.EMAShortPeriod < 1 || c.EMALongPeriod < 1 {
		return fmt.Errorf("config: EMA periods must be positive")
	}
	if c.EMAShortPeriod >= c.EMALongPeriod {
		return fmt.Errorf("config: ema_short_period %d must be less than ema_long_period %d",
			c.EMAShortPeriod, c.EMALongPeriod)
	}
	if c.ATRPeriod < 1 {
		return fmt.Errorf("config: atr_period must be positive")
	}
	if c.SwingLookback < 1 {
		return fmt.Errorf("config: swing_lookback must be positive")
	}
	if c.ATRMultiplier <= 0 {
		return fmt.Errorf("config: atr_multiplier must be positive")
	}
	if c.RiskRewardRatio <= 0 {
		return fmt.Errorf("config: risk_reward_ratio must be positive")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("config: initial_capital must be positive")
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return fmt.Errorf("config: risk_per_trade must be in (0, 1]")
	}
	if c.DailyLossLimitPct <= 0 || c.DailyLossLimitPct > 1 {
		return fmt.Errorf("config: daily_loss_limit_pct must be in (0, 1]")
	}
	if c.CandleCount < c.EMALongPeriod {
		return fmt.Errorf("config: candle_count %d too small for ema_long_period %d",
			c.CandleCount, c.EMALongPeriod)
	}
	if c.CandleInterval <= 0 || c.PriceInterval <= 0 {
		return fmt.Errorf("config: monitor intervals must be positive")
	}
	if _, err := domain.ParseStrategyVersion(c.StrategyVersion); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Version returns the validated strategy version.
func (c *Config) Version() domain.StrategyVersion {
	v, err := domain.ParseStrategyVersion(c.StrategyVersion)
	if err != nil {
		return domain.StrategyV2
	}
	return v
}

func setStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}
