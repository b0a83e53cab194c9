package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "DEVDOSE_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	githubTokenEnv    = "GITHUB_TOKEN"
	llmProviderEnv    = "LLM_PROVIDER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	llmEndpointEnv    = "LLM_ENDPOINT"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	GitHub        GitHubConfig       `yaml:"github"`
	LLM           LLMConfig          `yaml:"llm"`
	Database      DatabaseConfig     `yaml:"database"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Checkpoints   CheckpointConfig   `yaml:"checkpoints"`
	Discovery     DiscoveryConfig    `yaml:"discovery"`
	Extraction    ExtractionConfig   `yaml:"extraction"`
	Docs          DocsConfig         `yaml:"docs"`
	Processing    ProcessingConfig   `yaml:"processing"`
	Quality       QualityConfig      `yaml:"quality"`
	Publishing    PublishingConfig   `yaml:"publishing"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	API           APIConfig          `yaml:"api"`
	Sources       []domain.Source    `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RetryConfig bounds the backoff applied to one kind of external call.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
}

// GitHubConfig describes the code-host API.
type GitHubConfig struct {
	APIURL  string        `yaml:"apiUrl"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// LLMConfig defines how to contact the completion provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DatabaseConfig describes the published store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DedupConfig selects the seen-set backend.
type DedupConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`
	RedisKey      string `yaml:"redisKey"`
}

// CheckpointConfig locates stage checkpoints.
type CheckpointConfig struct {
	Dir string `yaml:"dir"`
}

// DiscoveryConfig drives topic search.
type DiscoveryConfig struct {
	Topics              []string `yaml:"topics"`
	MinStars            int      `yaml:"minStars"`
	MaxResultsPerTopic  int      `yaml:"maxResultsPerTopic"`
	ActivityMonths      int      `yaml:"activityMonths"`
	IncludeAwesomeLists bool     `yaml:"includeAwesomeLists"`
}

// ExtractionConfig bounds snippet size and host concurrency.
type ExtractionConfig struct {
	MinCodeLines    int      `yaml:"minCodeLines"`
	MaxCodeLines    int      `yaml:"maxCodeLines"`
	Languages       []string `yaml:"languages"`
	Concurrency     int      `yaml:"concurrency"`
	MaxExampleFiles int      `yaml:"maxExampleFiles"`
}

// DocsConfig drives the documentation scraper.
type DocsConfig struct {
	CacheDir string        `yaml:"cacheDir"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
	MinDelay time.Duration `yaml:"minDelay"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

// ProcessingConfig controls completion batching and retries.
type ProcessingConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
	BatchSize  int           `yaml:"batchSize"`
	BatchDelay time.Duration `yaml:"batchDelay"`
}

// QualityConfig holds the approval thresholds.
type QualityConfig struct {
	AutoApproveThreshold  int `yaml:"autoApproveThreshold"`
	ManualReviewThreshold int `yaml:"manualReviewThreshold"`
}

// PublishingConfig bounds store write throughput.
type PublishingConfig struct {
	BatchSize  int           `yaml:"batchSize"`
	BatchDelay time.Duration `yaml:"batchDelay"`
	Retry      RetryConfig   `yaml:"retry"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIURL   string `yaml:"apiUrl"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// APIConfig configures the read-only REST server.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if parsed, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes YAML over the defaults; keys absent from raw keep their default.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("decode yaml: %w", err)
	}
	cfg.bindTimezone()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(githubTokenEnv); v != "" {
		c.GitHub.Token = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Dedup.RedisAddr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// RequireGitHub fails when the code host cannot be called authenticated.
func (c Config) RequireGitHub() error {
	if strings.TrimSpace(c.GitHub.Token) == "" {
		return fmt.Errorf("config: %s is required for discovery and extraction", githubTokenEnv)
	}
	return nil
}

// RequireLLM fails when the selected completion provider lacks credentials.
func (c Config) RequireLLM() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: %s is required for provider openai", llmAPIKeyEnv)
		}
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("config: llm endpoint is required for provider openai")
		}
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: %s is required for provider gemini", llmAPIKeyEnv)
		}
	case "ollama":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: %s is required", llmModelEnv)
	}
	return nil
}

// RequireDatabase fails when the published store is not configured.
func (c Config) RequireDatabase() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: %s is required", databaseDSNEnv)
	}
	return nil
}

// Validate checks the thresholds and bounds that stages depend on.
func (c Config) Validate() error {
	q := c.Quality
	if q.ManualReviewThreshold < 0 || q.AutoApproveThreshold > 100 || q.ManualReviewThreshold > q.AutoApproveThreshold {
		return fmt.Errorf("config: thresholds manual=%d auto=%d are inconsistent", q.ManualReviewThreshold, q.AutoApproveThreshold)
	}
	e := c.Extraction
	if e.MinCodeLines < 1 || e.MaxCodeLines < e.MinCodeLines {
		return fmt.Errorf("config: code line bounds [%d,%d] are invalid", e.MinCodeLines, e.MaxCodeLines)
	}
	if len(e.Languages) == 0 {
		return fmt.Errorf("config: extraction languages are empty")
	}
	if c.Processing.BatchSize < 1 || c.Publishing.BatchSize < 1 {
		return fmt.Errorf("config: batch sizes must be positive")
	}
	for i, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("config: sources[%d]: %w", i, err)
		}
	}
	return nil
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		GitHub: GitHubConfig{
			APIURL:  "https://api.github.com",
			Timeout: 30 * time.Second,
			Retry:   RetryConfig{MaxAttempts: 4, BaseDelay: 2 * time.Second, MaxDelay: time.Minute},
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/devdose.db",
		},
		Dedup: DedupConfig{
			Backend:  "memory",
			RedisKey: "devdose:published",
		},
		Checkpoints: CheckpointConfig{Dir: "data/checkpoints"},
		Discovery: DiscoveryConfig{
			Topics:              []string{"react", "javascript", "typescript", "css", "vuejs"},
			MinStars:            1000,
			MaxResultsPerTopic:  10,
			ActivityMonths:      6,
			IncludeAwesomeLists: false,
		},
		Extraction: ExtractionConfig{
			MinCodeLines:    3,
			MaxCodeLines:    15,
			Languages:       []string{"javascript", "typescript", "jsx", "tsx", "css", "html"},
			Concurrency:     3,
			MaxExampleFiles: 5,
		},
		Docs: DocsConfig{
			CacheDir: "data/cache/docs",
			CacheTTL: 7 * 24 * time.Hour,
			MinDelay: time.Second,
			Timeout:  10 * time.Second,
			Retry:    RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second},
		},
		Processing: ProcessingConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			BatchSize:  5,
			BatchDelay: 2 * time.Second,
		},
		Quality: QualityConfig{
			AutoApproveThreshold:  85,
			ManualReviewThreshold: 70,
		},
		Publishing: PublishingConfig{
			BatchSize:  50,
			BatchDelay: 500 * time.Millisecond,
			Retry:      RetryConfig{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second},
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		API:       APIConfig{Addr: ":8080"},
	}
}
