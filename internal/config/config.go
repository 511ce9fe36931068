// Package config loads pipeline settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Naver        NaverConfig    `yaml:"naver"`
	Dedup        DedupConfig    `yaml:"dedup"`
	Crawl        CrawlConfig    `yaml:"crawl"`
	Analysis     AnalysisConfig `yaml:"analysis"`
	FetchPool    PoolConfig     `yaml:"fetch_pool"`
	AnalysisPool PoolConfig     `yaml:"analysis_pool"`
	LLM          LLMConfig      `yaml:"llm"`
	Topics       TopicsConfig   `yaml:"topics"`
	Storage      StorageConfig  `yaml:"storage"`
	Cache        CacheConfig    `yaml:"cache"`
	LogLevel     string         `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// NaverConfig holds the search API settings.
type NaverConfig struct {
	ClientID      string        `yaml:"client_id" validate:"required"`
	ClientSecret  string        `yaml:"client_secret" validate:"required"`
	BaseURL       string        `yaml:"base_url" validate:"required"`
	Display       int           `yaml:"display" validate:"min=1,max=99"`
	Sort          string        `yaml:"sort" validate:"oneof=sim date"`
	CanonicalHost string        `yaml:"canonical_host" validate:"required"`
	MaxPerKeyword int           `yaml:"max_per_keyword" validate:"min=1"`
	CallSpacing   time.Duration `yaml:"call_spacing" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
}

// DedupConfig holds the two independent similarity thresholds. The description
// pass runs on the survivors of the title pass.
type DedupConfig struct {
	TitleThreshold       float64 `yaml:"title_threshold" validate:"gt=0,lt=1"`
	DescriptionThreshold float64 `yaml:"description_threshold" validate:"gt=0,lt=1"`
}

type CrawlConfig struct {
	Delay     time.Duration `yaml:"delay" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
}

type AnalysisConfig struct {
	BatchSize       int           `yaml:"batch_size" validate:"min=1"`
	PerCategory     int           `yaml:"per_category" validate:"min=1"`
	MaxContentRunes int           `yaml:"max_content_runes" validate:"min=100"`
	RetryAttempts   int           `yaml:"retry_attempts" validate:"min=1"`
	RetryDelay      time.Duration `yaml:"retry_delay" validate:"gte=0"`
	MaxCalls        int           `yaml:"max_calls" validate:"gte=0"`
	// ProviderMaxCalls caps calls per LLM provider; zero or missing means unlimited.
	ProviderMaxCalls map[string]int `yaml:"max_calls_per_provider" validate:"dive,gte=0"`
}

// PoolConfig sizes one worker pool.
type PoolConfig struct {
	Workers   int `yaml:"workers" validate:"min=1"`
	QueueSize int `yaml:"queue_size" validate:"gte=0"`
}

type LLMConfig struct {
	Provider     string  `yaml:"provider" validate:"oneof=gemini openai"`
	Model        string  `yaml:"model"`
	GeminiAPIKey string  `yaml:"gemini_api_key"`
	OpenAIAPIKey string  `yaml:"openai_api_key"`
	Temperature  float32 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// APIKey returns the key for the selected provider.
func (l LLMConfig) APIKey() string {
	if l.Provider == "openai" {
		return l.OpenAIAPIKey
	}
	return l.GeminiAPIKey
}

type TopicsConfig struct {
	Source          string   `yaml:"source" validate:"oneof=llm feeds static"`
	StaticKeywords  []string `yaml:"static_keywords"`
	FeedsConfigPath string   `yaml:"feeds_config_path"`
	FeedKeywords    int      `yaml:"feed_keywords" validate:"min=1"`
	OveruseDays     int      `yaml:"overuse_days" validate:"gte=0"`
	OveruseMinUses  int      `yaml:"overuse_min_uses" validate:"gte=0"`
	RecentDays      int      `yaml:"recent_days" validate:"gte=0"`
}

type StorageConfig struct {
	DatabaseURL   string `yaml:"database_url"`
	FilePath      string `yaml:"file_path"`
	HistoryHours  int    `yaml:"history_hours" validate:"gte=0"`
	MaxConns      int32  `yaml:"max_conns" validate:"gte=0"`
	InitSchema    bool   `yaml:"init_schema"`
	SkipPersisted bool   `yaml:"skip_persisted"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
	Enabled   bool          `yaml:"enabled"`
}

// Default returns the built-in configuration without credentials.
func Default() *Config {
	return &Config{
		Naver: NaverConfig{
			BaseURL:       "https://openapi.naver.com/v1/search/news.json?query=",
			Display:       10,
			Sort:          "sim",
			CanonicalHost: "n.news.naver.com",
			MaxPerKeyword: 12,
			CallSpacing:   100 * time.Millisecond,
			Timeout:       10 * time.Second,
		},
		Dedup: DedupConfig{
			TitleThreshold:       0.5,
			DescriptionThreshold: 0.5,
		},
		Crawl: CrawlConfig{
			Delay:     time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			Timeout:   15 * time.Second,
		},
		Analysis: AnalysisConfig{
			BatchSize:       2,
			PerCategory:     4,
			MaxContentRunes: 3000,
			RetryAttempts:   2,
			RetryDelay:      2 * time.Second,
		},
		FetchPool:    PoolConfig{Workers: 6, QueueSize: 60},
		AnalysisPool: PoolConfig{Workers: 2, QueueSize: 50},
		LLM: LLMConfig{
			Provider:    "gemini",
			Temperature: 0.1,
		},
		Topics: TopicsConfig{
			Source:          "llm",
			StaticKeywords:  []string{"속보", "긴급", "단독"},
			FeedsConfigPath: "configs/feeds.yaml",
			FeedKeywords:    10,
			OveruseDays:     5,
			OveruseMinUses:  3,
			RecentDays:      3,
		},
		Storage: StorageConfig{
			HistoryHours: 48,
			MaxConns:     4,
			InitSchema:   true,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		LogLevel: "info",
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() error {
	c.Naver.ClientID = getEnvOrDefault("NAVER_CLIENT_ID", c.Naver.ClientID)
	c.Naver.ClientSecret = getEnvOrDefault("NAVER_CLIENT_SECRET", c.Naver.ClientSecret)
	c.Naver.BaseURL = getEnvOrDefault("NAVER_BASE_URL", c.Naver.BaseURL)
	c.Naver.Sort = getEnvOrDefault("NAVER_NEWS_SORT", c.Naver.Sort)
	c.LLM.Provider = getEnvOrDefault("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnvOrDefault("LLM_MODEL", c.LLM.Model)
	c.LLM.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.LLM.GeminiAPIKey)
	c.LLM.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.Storage.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.FilePath = getEnvOrDefault("CURATED_FILE_PATH", c.Storage.FilePath)
	c.Cache.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.Cache.RedisAddr)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	if os.Getenv("DEBUG") == "true" {
		c.LogLevel = "debug"
	}

	var errs []error
	var err error
	if c.Naver.Display, err = getEnvIntOrDefault("NAVER_NEWS_DISPLAY", c.Naver.Display); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.BatchSize, err = getEnvIntOrDefault("NEWS_FILTER_BATCH_SIZE", c.Analysis.BatchSize); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.MaxCalls, err = getEnvIntOrDefault("MAX_LLM_REQUESTS", c.Analysis.MaxCalls); err != nil {
		errs = append(errs, err)
	}
	for provider, key := range map[string]string{"gemini": "GEMINI_MAX_CALLS", "openai": "OPENAI_MAX_CALLS"} {
		if os.Getenv(key) == "" {
			continue
		}
		n, err := getEnvIntOrDefault(key, 0)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if c.Analysis.ProviderMaxCalls == nil {
			c.Analysis.ProviderMaxCalls = make(map[string]int)
		}
		c.Analysis.ProviderMaxCalls[provider] = n
	}
	var delayMS int
	if delayMS, err = getEnvIntOrDefault("NAVER_CRAWLING_DELAY_MS", int(c.Crawl.Delay/time.Millisecond)); err != nil {
		errs = append(errs, err)
	} else {
		c.Crawl.Delay = time.Duration(delayMS) * time.Millisecond
	}
	if c.Dedup.TitleThreshold, err = getEnvFloatOrDefault("NEWS_DEDUP_TITLE_THRESHOLD", c.Dedup.TitleThreshold); err != nil {
		errs = append(errs, err)
	}
	if c.Dedup.DescriptionThreshold, err = getEnvFloatOrDefault("NEWS_DEDUP_DESCRIPTION_THRESHOLD", c.Dedup.DescriptionThreshold); err != nil {
		errs = append(errs, err)
	}
	if v := os.Getenv("STATIC_KEYWORDS"); v != "" {
		c.Topics.StaticKeywords = splitList(v)
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
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

var validate = validator.New()

// Validate checks the configuration. Any error is a fatal misconfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireLLM reports a missing API key for the selected LLM provider.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey() == "" {
		return fmt.Errorf("invalid configuration: an API key for LLM provider %q is required", c.LLM.Provider)
	}
	return nil
}
