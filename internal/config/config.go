package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/plancheck/internal/geometry"
	"github.com/cloo-solutions/plancheck/internal/openai"
	"github.com/cloo-solutions/plancheck/internal/repository"
	"github.com/cloo-solutions/plancheck/internal/service"
	"github.com/cloo-solutions/plancheck/internal/storage"
	"github.com/cloo-solutions/plancheck/internal/workflow"
)

const envPrefix = "PLANCHECK"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// DatabaseURL is optional; without it chunks live in memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	RedisAddrs    []string      `envconfig:"REDIS_ADDRS"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	EmbeddingTTL  time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"720h"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	ParentChars  int `envconfig:"PARENT_CHARS" default:"2000"`
	ChildChars   int `envconfig:"CHILD_CHARS" default:"400"`
	ChildOverlap int `envconfig:"CHILD_OVERLAP" default:"100"`
	BreakWindow  int `envconfig:"BREAK_WINDOW" default:"80"`

	RetrievalK        int           `envconfig:"RETRIEVAL_K" default:"5"`
	MaxRevisions      int           `envconfig:"MAX_REVISIONS" default:"2"`
	EmbeddingTimeout  time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"15s"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`
	LLMCritique       bool          `envconfig:"LLM_CRITIQUE" default:"false"`

	BoundaryLayers []string `envconfig:"BOUNDARY_LAYERS" default:"Plot Boundary"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"plancheck-regulations"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// APIKeys are "name:token" entries; empty leaves the API open.
	APIKeys []string `envconfig:"API_KEYS"`

	InboxDir          string        `envconfig:"INBOX_DIR"`
	InboxPollInterval time.Duration `envconfig:"INBOX_POLL_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	if err := c.Chunking().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch {
	case c.RetrievalK <= 0:
		return fmt.Errorf("invalid config: %s_RETRIEVAL_K must be positive", envPrefix)
	case c.MaxRevisions < 0:
		return fmt.Errorf("invalid config: %s_MAX_REVISIONS must not be negative", envPrefix)
	case c.EmbeddingTimeout <= 0 || c.GenerationTimeout <= 0:
		return fmt.Errorf("invalid config: timeouts must be positive")
	case c.InboxDir != "" && c.InboxPollInterval <= 0:
		return fmt.Errorf("invalid config: %s_INBOX_POLL_INTERVAL must be positive", envPrefix)
	}
	return nil
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasRedis() bool {
	return len(c.RedisAddrs) > 0
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasInbox() bool {
	return c.InboxDir != ""
}

func (c *Config) Chunking() service.ChunkConfig {
	return service.ChunkConfig{
		ParentChars:  c.ParentChars,
		ChildChars:   c.ChildChars,
		ChildOverlap: c.ChildOverlap,
		BreakWindow:  c.BreakWindow,
	}
}

func (c *Config) Index() service.IndexConfig {
	return service.IndexConfig{
		Chunking:         c.Chunking(),
		EmbeddingTimeout: c.EmbeddingTimeout,
	}
}

func (c *Config) Workflow() workflow.Config {
	return workflow.Config{
		TopK:              c.RetrievalK,
		MaxRevisions:      c.MaxRevisions,
		GenerationTimeout: c.GenerationTimeout,
		LLMCritique:       c.LLMCritique,
	}
}

func (c *Config) Geometry() geometry.Config {
	layers := make([]string, 0, len(c.BoundaryLayers))
	for _, l := range c.BoundaryLayers {
		if l = strings.TrimSpace(l); l != "" {
			layers = append(layers, l)
		}
	}
	if len(layers) == 0 {
		return geometry.DefaultConfig()
	}
	return geometry.Config{BoundaryLayers: layers}
}

func (c *Config) OpenAI() openai.Config {
	return openai.Config{
		APIKey:              c.OpenAIAPIKey,
		BaseURL:             c.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(c.EmbeddingModel),
		EmbeddingDimensions: c.EmbeddingDimensions,
		ChatModel:           c.ChatModel,
	}
}

func (c *Config) Redis() repository.RedisConfig {
	return repository.RedisConfig{
		Addrs:    c.RedisAddrs,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c *Config) S3() storage.S3ClientConfig {
	return storage.S3ClientConfig{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		AccessKeyID:     c.S3AccessKey,
		SecretAccessKey: c.S3SecretKey,
		Bucket:          c.S3Bucket,
		UsePathStyle:    true,
	}
}
