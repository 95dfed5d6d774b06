package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Viewer API
	LensServerAddr    string        `env:"LENS_SERVER_ADDR" envDefault:":8080"`
	AdminServerAddr   string        `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	RedactorURL       string        `env:"REDACTOR_URL" envDefault:"http://localhost:8000/redact-report"`
	RedactionTimeout  time.Duration `env:"REDACTION_TIMEOUT" envDefault:"10s"`
	MaxResponseBytes  int64         `env:"MAX_RESPONSE_BYTES" envDefault:"4194304"` // 4MB
	DefectCatalogPath string        `env:"DEFECT_CATALOG_PATH"`
	PostgresURL       string        `env:"POSTGRES_URL"`

	// Redaction service
	RedactorServerAddr string        `env:"REDACTOR_SERVER_ADDR" envDefault:":8000"`
	MaxRequestBytes    int64         `env:"MAX_REQUEST_BYTES" envDefault:"1048576"` // 1MB
	RedactorBackend    string        `env:"REDACTOR_BACKEND" envDefault:"llm"`
	LLMBaseURL         string        `env:"LLM_BASE_URL" envDefault:"https://integrate.api.nvidia.com/v1"`
	NvidiaAPIKey       string        `env:"NVIDIA_API_KEY"`
	LLMModel           string        `env:"LLM_MODEL" envDefault:"meta/llama-3.1-70b-instruct"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMRateLimit       float64       `env:"LLM_RATE_LIMIT" envDefault:"2"`
	LLMRateBurst       int           `env:"LLM_RATE_BURST" envDefault:"4"`
	RedisURL           string        `env:"REDIS_URL"`
	RedactionCacheTTL  time.Duration `env:"REDACTION_CACHE_TTL" envDefault:"1h"`

	// Safety journal; disabled when JournalDir is empty.
	JournalDir         string `env:"JOURNAL_DIR"`
	JournalSegmentSize int64  `env:"JOURNAL_SEGMENT_SIZE_BYTES" envDefault:"10485760"`   // 10MB
	JournalMaxDiskSize int64  `env:"JOURNAL_MAX_DISK_SIZE_BYTES" envDefault:"104857600"` // 100MB
}

const (
	BackendLLM   = "llm"
	BackendRules = "rules"
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.RedactorBackend != BackendLLM && c.RedactorBackend != BackendRules {
		return fmt.Errorf("invalid REDACTOR_BACKEND %q: must be %q or %q", c.RedactorBackend, BackendLLM, BackendRules)
	}
	if c.RedactionTimeout <= 0 {
		return fmt.Errorf("REDACTION_TIMEOUT must be positive, got %s", c.RedactionTimeout)
	}
	if c.JournalDir != "" && c.JournalSegmentSize > c.JournalMaxDiskSize {
		return fmt.Errorf("JOURNAL_SEGMENT_SIZE_BYTES (%d) exceeds JOURNAL_MAX_DISK_SIZE_BYTES (%d)", c.JournalSegmentSize, c.JournalMaxDiskSize)
	}
	return nil
}
