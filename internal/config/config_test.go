package config

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDefaults(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	require.NoError(t, env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}))
	return cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := parseDefaults(t)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, 3, cfg.Workflow.MaxCrawlURLs)
	assert.Equal(t, 50, cfg.Workflow.StepLimit)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   []string
	}{
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Ai.LLMProvider = "gemini" },
			want:   []string{"LLM_PROVIDER"},
		},
		{
			name:   "openai without key",
			mutate: func(c *Config) { c.Ai.LLMProvider = "openai" },
			want:   []string{"LLM_API_KEY"},
		},
		{
			name:   "redis backend without url",
			mutate: func(c *Config) { c.App.SessionBackend = "redis" },
			want:   []string{"REDIS_URL"},
		},
		{
			name: "crawl urls above candidates and bad question count",
			mutate: func(c *Config) {
				c.Workflow.MaxCrawlURLs = 9
				c.Workflow.MaxQuestions = 0
			},
			want: []string{"MAX_CRAWL_URLS (9)", "MAX_QUESTIONS"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseDefaults(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestParseFromEnvironment(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{
		"SESSION_BACKEND": "redis",
		"REDIS_URL":       "redis://localhost:6379/1",
		"CRAWL_TIMEOUT":   "3s",
		"CRAWL_ENABLED":   "false",
	}})
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "redis", cfg.App.SessionBackend)
	assert.False(t, cfg.Workflow.CrawlEnabled)
	assert.Equal(t, "3s", cfg.Workflow.CrawlTimeout.String())
}
