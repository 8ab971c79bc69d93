package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"parity_bot/internal/models"
)

const (
	configFileENV    = "CONFIG_FILE"
	tokenTelegramENV = "TELEGRAM_TOKEN"
)

// StrategyConfig — параметры Pine-движка. Неизменяемы после валидации.
// Дефолты соответствуют боевому пресету индикатора.
type StrategyConfig struct {
	DonchianLength   int     `mapstructure:"donchian_length" yaml:"donchian_length"`
	PivotLength      int     `mapstructure:"pivot_length" yaml:"pivot_length"`
	OscillatorLength int     `mapstructure:"oscillator_length" yaml:"oscillator_length"`
	ExtremeBandPct   float64 `mapstructure:"extreme_band_pct" yaml:"extreme_band_pct"`

	TradeAllDivergences bool `mapstructure:"trade_all_divergences" yaml:"trade_all_divergences"`

	LongOnly              bool    `mapstructure:"long_only" yaml:"long_only"`
	EntryMode             string  `mapstructure:"entry_mode" yaml:"entry_mode"` // raw | confirm
	MinDivergenceStrength float64 `mapstructure:"min_divergence_strength_pct" yaml:"min_divergence_strength_pct"`
	CooldownBars          int     `mapstructure:"cooldown_bars" yaml:"cooldown_bars"`

	UseVolumeDeltaGate   bool `mapstructure:"use_volume_delta_gate" yaml:"use_volume_delta_gate"`
	VolumeDeltaWindowMin int  `mapstructure:"volume_delta_window_minutes" yaml:"volume_delta_window_minutes"`

	UseDynamicPercentile bool    `mapstructure:"use_dynamic_percentile" yaml:"use_dynamic_percentile"`
	PercentileLookback   int     `mapstructure:"percentile_lookback_bars" yaml:"percentile_lookback_bars"`
	PercentileRank       float64 `mapstructure:"percentile_rank" yaml:"percentile_rank"`
	StaticDeltaThreshold float64 `mapstructure:"static_volume_delta_threshold" yaml:"static_volume_delta_threshold"`

	UseBreakoutConfirm   bool    `mapstructure:"use_breakout_confirm" yaml:"use_breakout_confirm"`
	BreakoutAtrBufferMul float64 `mapstructure:"breakout_atr_buffer_mult" yaml:"breakout_atr_buffer_mult"`
	MaxWaitBars          int     `mapstructure:"max_wait_bars" yaml:"max_wait_bars"`
}

// Mode возвращает нормализованный режим входа.
func (s StrategyConfig) Mode() models.EntryMode {
	return models.EntryMode(strings.ToLower(strings.TrimSpace(s.EntryMode)))
}

// Validate — контрадикторный или выходящий за диапазон конфиг должен
// убить процесс на старте, а не на баре.
func (s StrategyConfig) Validate() error {
	if s.DonchianLength <= 0 {
		return errors.Errorf("strategy: donchian_length must be > 0, got %d", s.DonchianLength)
	}
	if s.PivotLength <= 0 {
		return errors.Errorf("strategy: pivot_length must be > 0, got %d", s.PivotLength)
	}
	if s.OscillatorLength <= 0 {
		return errors.Errorf("strategy: oscillator_length must be > 0, got %d", s.OscillatorLength)
	}
	if s.ExtremeBandPct < 0 || s.ExtremeBandPct > 1 {
		return errors.Errorf("strategy: extreme_band_pct must be in [0,1], got %v", s.ExtremeBandPct)
	}
	if !s.LongOnly {
		return errors.New("strategy: long_only=false is not implemented, short side does not exist")
	}
	switch s.Mode() {
	case models.EntryRaw, models.EntryConfirm:
	default:
		return errors.Errorf("strategy: entry_mode must be raw or confirm, got %q", s.EntryMode)
	}
	if s.MinDivergenceStrength < 0 {
		return errors.Errorf("strategy: min_divergence_strength_pct must be >= 0, got %v", s.MinDivergenceStrength)
	}
	if s.CooldownBars < 0 {
		return errors.Errorf("strategy: cooldown_bars must be >= 0, got %d", s.CooldownBars)
	}
	if s.VolumeDeltaWindowMin <= 0 {
		return errors.Errorf("strategy: volume_delta_window_minutes must be > 0, got %d", s.VolumeDeltaWindowMin)
	}
	if s.PercentileLookback <= 0 {
		return errors.Errorf("strategy: percentile_lookback_bars must be > 0, got %d", s.PercentileLookback)
	}
	if s.PercentileRank < 0 || s.PercentileRank > 100 {
		return errors.Errorf("strategy: percentile_rank must be in [0,100], got %v", s.PercentileRank)
	}
	if s.BreakoutAtrBufferMul < 0 {
		return errors.Errorf("strategy: breakout_atr_buffer_mult must be >= 0, got %v", s.BreakoutAtrBufferMul)
	}
	if s.MaxWaitBars <= 0 {
		return errors.Errorf("strategy: max_wait_bars must be > 0, got %d", s.MaxWaitBars)
	}
	return nil
}

type FeedConfig struct {
	Transport   string  `mapstructure:"transport" yaml:"transport"` // poll | ws
	Venue       string  `mapstructure:"venue" yaml:"venue"`         // spot | usdm
	APIBase     string  `mapstructure:"api_base" yaml:"api_base"`
	PollSeconds float64 `mapstructure:"poll_seconds" yaml:"poll_seconds"`
	Limit       int     `mapstructure:"limit" yaml:"limit"`
}

type TelegramConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Token           string `mapstructure:"token" yaml:"token"`
	ChatID          int64  `mapstructure:"chat_id" yaml:"chat_id"`
	ThrottleSeconds int    `mapstructure:"throttle_seconds" yaml:"throttle_seconds"`

	NotifyStartup  bool `mapstructure:"notify_startup" yaml:"notify_startup"`
	NotifyEntry    bool `mapstructure:"notify_entry" yaml:"notify_entry"`
	NotifyFailures bool `mapstructure:"notify_failures" yaml:"notify_failures"`
}

type RiskConfig struct {
	SLAtrMult float64 `mapstructure:"sl_atr_mult" yaml:"sl_atr_mult"`
	TPAtrMult float64 `mapstructure:"tp_atr_mult" yaml:"tp_atr_mult"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

type ServiceConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`
	AdminPort int    `mapstructure:"admin_port" yaml:"admin_port"`
}

// Config ...
type Config struct {
	Debug     bool           `mapstructure:"debug" yaml:"debug"`
	Timeframe string         `mapstructure:"timeframe" yaml:"timeframe"`
	Symbols   []string       `mapstructure:"symbols" yaml:"symbols"`
	Service   ServiceConfig  `mapstructure:"service" yaml:"service"`
	Feed      FeedConfig     `mapstructure:"feed" yaml:"feed"`
	Strategy  StrategyConfig `mapstructure:"strategy" yaml:"strategy"`
	Risk      RiskConfig     `mapstructure:"risk" yaml:"risk"`
	Telegram  TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Tracing   TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// YAML — эффективный конфиг для стартового лога (без секретов).
func (c *Config) YAML() string {
	cp := *c
	cp.Telegram.Token = ""
	bs, err := yaml.Marshal(&cp)
	if err != nil {
		return ""
	}
	return string(bs)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timeframe", "15m")
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.admin_port", 9090)

	v.SetDefault("feed.transport", "poll")
	v.SetDefault("feed.venue", "spot")
	v.SetDefault("feed.poll_seconds", 5.0)
	v.SetDefault("feed.limit", 300)

	v.SetDefault("strategy.donchian_length", 120)
	v.SetDefault("strategy.pivot_length", 5)
	v.SetDefault("strategy.oscillator_length", 14)
	v.SetDefault("strategy.extreme_band_pct", 0.15)
	v.SetDefault("strategy.trade_all_divergences", true)
	v.SetDefault("strategy.long_only", true)
	v.SetDefault("strategy.entry_mode", "confirm")
	v.SetDefault("strategy.min_divergence_strength_pct", 15.0)
	v.SetDefault("strategy.cooldown_bars", 0)
	v.SetDefault("strategy.use_volume_delta_gate", true)
	v.SetDefault("strategy.volume_delta_window_minutes", 60)
	v.SetDefault("strategy.use_dynamic_percentile", true)
	v.SetDefault("strategy.percentile_lookback_bars", 2880)
	v.SetDefault("strategy.percentile_rank", 75.0)
	v.SetDefault("strategy.static_volume_delta_threshold", 244.075)
	v.SetDefault("strategy.use_breakout_confirm", true)
	v.SetDefault("strategy.breakout_atr_buffer_mult", 0.10)
	v.SetDefault("strategy.max_wait_bars", 30)

	v.SetDefault("risk.sl_atr_mult", 1.5)
	v.SetDefault("risk.tp_atr_mult", 3.0)

	v.SetDefault("telegram.throttle_seconds", 20)
	v.SetDefault("telegram.notify_startup", true)
	v.SetDefault("telegram.notify_entry", true)
	v.SetDefault("telegram.notify_failures", true)

	v.SetDefault("tracing.host", "127.0.0.1")
	v.SetDefault("tracing.port", 6831)
}

func NewConfig() (*Config, error) {
	name := os.Getenv(configFileENV)
	if name == "" {
		name = "values_local.yaml"
	}

	v := viper.New()
	v.SetConfigFile("configs/" + name)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}

	if len(cfg.Symbols) == 0 {
		return nil, errors.New("symbols list is empty")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		return nil, errors.New("telegram.token is required when telegram.enabled=true")
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
