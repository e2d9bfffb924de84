package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MarketBreadth/internal/breadth"
	"MarketBreadth/internal/cache"
	"MarketBreadth/internal/calculator"
	"MarketBreadth/internal/collector"
	"MarketBreadth/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo, vstrader or binance
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Universe struct {
		Provider string   `yaml:"provider"` // static or coingecko
		Symbols  []string `yaml:"symbols"`
		TopN     int      `yaml:"top_n"`
		APIKey   string   `yaml:"api_key"`
		Exclude  []string `yaml:"exclude"`
	} `yaml:"universe"`
	Breadth struct {
		MAPeriod     int    `yaml:"ma_period"`
		LookbackDays int    `yaml:"lookback_days"`
		Coverage     string `yaml:"coverage"`   // strict or lenient
		MAWindow     string `yaml:"ma_window"`  // exclude_current or include_current
		Thresholds   string `yaml:"thresholds"` // three_bucket or five_bucket
		Reference    string `yaml:"reference_symbol"`
	} `yaml:"breadth"`
	Output struct {
		Path string `yaml:"path"` // .csv or .json
	} `yaml:"output"`
	Fetch struct {
		Workers           int                   `yaml:"workers"`
		Timeout           time.Duration         `yaml:"timeout"`
		RequestsPerSecond float64               `yaml:"requests_per_second"`
		Retry             collector.RetryPolicy `yaml:"retry"`
	} `yaml:"fetch"`
	Cache struct {
		Backend    string             `yaml:"backend"` // none, memory, sqlite or redis
		TTL        time.Duration      `yaml:"ttl"`
		SQLitePath string             `yaml:"sqlite_path"`
		Redis      cache.RedisOptions `yaml:"redis"`
	} `yaml:"cache"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env and the YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("UNIVERSE_PROVIDER"); v != "" {
		cfg.Universe.Provider = v
	}
	if v := os.Getenv("UNIVERSE_SYMBOLS"); v != "" {
		cfg.Universe.Symbols = splitList(v)
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Universe.APIKey = v
	}
	if v := os.Getenv("UNIVERSE_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Universe.TopN = n
		}
	}
	if v := os.Getenv("MA_PERIOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Breadth.MAPeriod = n
		}
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Breadth.LookbackDays = n
		}
	}
	if v := os.Getenv("REFERENCE_SYMBOL"); v != "" {
		cfg.Breadth.Reference = v
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Provider = "vstrader"
		}
	}
	if cfg.Universe.Provider == "" {
		cfg.Universe.Provider = "static"
	}
	if cfg.Universe.TopN == 0 {
		cfg.Universe.TopN = 50
		if cfg.Universe.Provider == "static" && len(cfg.Universe.Symbols) > 0 {
			cfg.Universe.TopN = len(cfg.Universe.Symbols)
		}
	}
	if cfg.Breadth.MAPeriod == 0 {
		cfg.Breadth.MAPeriod = 200
	}
	if cfg.Breadth.LookbackDays == 0 {
		cfg.Breadth.LookbackDays = 30
	}
	if cfg.Breadth.Coverage == "" {
		cfg.Breadth.Coverage = breadth.StrictCoverage.Name
	}
	if cfg.Breadth.MAWindow == "" {
		cfg.Breadth.MAWindow = calculator.ExcludeCurrent.String()
	}
	if cfg.Breadth.Thresholds == "" {
		cfg.Breadth.Thresholds = strategy.ThreeBucket.Name
	}
	if cfg.Fetch.Workers == 0 {
		cfg.Fetch.Workers = 4
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.Retry.MaxAttempts == 0 {
		cfg.Fetch.Retry = collector.DefaultRetryPolicy()
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 12 * time.Hour
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "data/series_cache.db"
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "breadth"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 22 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/market_breadth.db"
	}
}

// Validate checks that all required fields are set and all names resolve.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.DataSource.Provider {
	case "yahoo", "binance":
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for vstrader")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	switch c.Universe.Provider {
	case "static":
		if len(c.Universe.Symbols) == 0 {
			return fmt.Errorf("universe.symbols is required for the static universe")
		}
	case "coingecko":
	default:
		return fmt.Errorf("unknown universe.provider %q", c.Universe.Provider)
	}
	if c.Universe.TopN <= 0 {
		return fmt.Errorf("universe.top_n must be positive")
	}
	if err := c.Request().Validate(); err != nil {
		return fmt.Errorf("breadth: %w", err)
	}
	if _, err := breadth.ParseCoverage(c.Breadth.Coverage); err != nil {
		return fmt.Errorf("breadth.coverage: %w", err)
	}
	if _, err := calculator.ParseWindow(c.Breadth.MAWindow); err != nil {
		return fmt.Errorf("breadth.ma_window: %w", err)
	}
	if _, err := strategy.Lookup(c.Breadth.Thresholds); err != nil {
		return fmt.Errorf("breadth.thresholds: %w", err)
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be positive")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second must not be negative")
	}
	switch c.Cache.Backend {
	case "none", "memory", "sqlite":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}

// TelegramEnabled reports whether reports go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Request builds the engine request.
func (c *Config) Request() breadth.Request {
	return breadth.Request{
		UniverseSize: c.Universe.TopN,
		MAPeriod:     c.Breadth.MAPeriod,
		LookbackDays: c.Breadth.LookbackDays,
	}
}

// CacheOptions returns the store options, or false when caching is off.
func (c *Config) CacheOptions() (cache.Options, bool) {
	if c.Cache.Backend == "none" {
		return cache.Options{}, false
	}
	return cache.Options{
		Backend:    c.Cache.Backend,
		TTL:        c.Cache.TTL,
		SQLitePath: c.Cache.SQLitePath,
		Redis:      c.Cache.Redis,
	}, true
}

// Coverage, Window and Thresholds resolve names checked by Validate.
func (c *Config) Coverage() breadth.CoveragePolicy {
	p, _ := breadth.ParseCoverage(c.Breadth.Coverage)
	return p
}

func (c *Config) Window() calculator.Window {
	w, _ := calculator.ParseWindow(c.Breadth.MAWindow)
	return w
}

func (c *Config) Thresholds() strategy.ThresholdSet {
	ts, _ := strategy.Lookup(c.Breadth.Thresholds)
	return ts
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
