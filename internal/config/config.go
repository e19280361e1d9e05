package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Search   SearchConfig
	Workflow WorkflowConfig
	Prompt   PromptConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string        `env:"APP_PORT" envDefault:"3000"`
	Environment        string        `env:"GO_ENV" envDefault:"development"`
	LogFilePath        string        `env:"LOG_FILE_PATH" envDefault:"app.log"`
	CorsAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
	NatsURL            string        `env:"NATS_URL"`
	RedisURL           string        `env:"REDIS_URL"`
	SessionBackend     string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

type DatabaseConfig struct {
	Connection string `env:"DB_CONNECTION_STRING"`
}

type AIConfig struct {
	LLMProvider     string        `env:"LLM_PROVIDER" envDefault:"ollama"` // "ollama", or "openai" for any OpenAI-compatible API
	LLMModel        string        `env:"LLM_MODEL" envDefault:"llama3"`
	BaseURL         string        `env:"LLM_BASE_URL"`
	APIKey          string        `env:"LLM_API_KEY"`
	ClassifierModel string        `env:"CLASSIFIER_MODEL"`
	RequestTimeout  time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`
}

type SearchConfig struct {
	SearXNGURL      string        `env:"SEARXNG_URL"`
	MaxResults      int           `env:"SEARCH_MAX_RESULTS" envDefault:"8"`
	ResultsPerQuery int           `env:"SEARCH_RESULTS_PER_QUERY" envDefault:"4"`
	Timeout         time.Duration `env:"SEARCH_TIMEOUT" envDefault:"15s"`
}

type WorkflowConfig struct {
	CrawlEnabled     bool          `env:"CRAWL_ENABLED" envDefault:"true"`
	CrawlCandidates  int           `env:"CRAWL_CANDIDATES" envDefault:"6"`
	MaxCrawlURLs     int           `env:"MAX_CRAWL_URLS" envDefault:"3"`
	CrawlTimeout     time.Duration `env:"CRAWL_TIMEOUT" envDefault:"10s"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" envDefault:"8000"`
	MaxQuestions     int           `env:"MAX_QUESTIONS" envDefault:"5"`
	StepLimit        int           `env:"WORKFLOW_STEP_LIMIT" envDefault:"50"`
}

type TracingConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"gruenerator-backend"`
}

type PromptConfig struct {
	CatalogPath string `env:"PROMPT_CATALOG_PATH"`
}

// Load reads .env (if present) and the process environment. It fails when
// the result does not pass Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Ai.LLMProvider {
	case "ollama":
	case "openai", "mistral", "litellm":
		if c.Ai.APIKey == "" {
			errs = append(errs, fmt.Errorf("LLM_API_KEY is required for the %s provider", c.Ai.LLMProvider))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be ollama, openai, mistral or litellm, got %q", c.Ai.LLMProvider))
	}
	if c.Ai.RequestTimeout <= 0 {
		errs = append(errs, errors.New("LLM_REQUEST_TIMEOUT must be positive"))
	}

	switch c.App.SessionBackend {
	case "memory":
	case "redis":
		if c.App.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when SESSION_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", c.App.SessionBackend))
	}
	if c.App.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	if c.Search.MaxResults <= 0 {
		errs = append(errs, errors.New("SEARCH_MAX_RESULTS must be positive"))
	}
	if c.Search.ResultsPerQuery <= 0 {
		errs = append(errs, errors.New("SEARCH_RESULTS_PER_QUERY must be positive"))
	}

	w := c.Workflow
	if w.CrawlCandidates <= 0 || w.MaxCrawlURLs <= 0 {
		errs = append(errs, errors.New("CRAWL_CANDIDATES and MAX_CRAWL_URLS must be positive"))
	} else if w.MaxCrawlURLs > w.CrawlCandidates {
		errs = append(errs, fmt.Errorf("MAX_CRAWL_URLS (%d) must not exceed CRAWL_CANDIDATES (%d)", w.MaxCrawlURLs, w.CrawlCandidates))
	}
	if w.CrawlTimeout <= 0 {
		errs = append(errs, errors.New("CRAWL_TIMEOUT must be positive"))
	}
	if w.MaxContentLength <= 0 {
		errs = append(errs, errors.New("MAX_CONTENT_LENGTH must be positive"))
	}
	if w.MaxQuestions <= 0 || w.MaxQuestions > 10 {
		errs = append(errs, fmt.Errorf("MAX_QUESTIONS must be between 1 and 10, got %d", w.MaxQuestions))
	}
	if w.StepLimit <= 0 {
		errs = append(errs, errors.New("WORKFLOW_STEP_LIMIT must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
