package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	// EmbeddingDimensions is requested from text-embedding-3 models and must
	// equal the native size of any other model.
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o"`
	EmbedBatchSize      int    `envconfig:"EMBED_BATCH_SIZE" default:"64"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docqa-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Container is the folder inside the bucket that holds the documents.
	Container string `envconfig:"CONTAINER" default:"documents"`

	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	JobPollInterval time.Duration `envconfig:"JOB_POLL_INTERVAL" default:"5s"`
	TempDir         string        `envconfig:"TEMP_DIR"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("failed to process config: EMBEDDING_DIMENSIONS must be positive")
	}
	if cfg.EmbedBatchSize <= 0 {
		return nil, fmt.Errorf("failed to process config: EMBED_BATCH_SIZE must be positive")
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

// HasS3 reports whether documents live in an S3 bucket rather than memory.
func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
