package config

// Config holds kotoba configuration.
// Stored at: ./config.yaml or ~/.kotoba/config.yaml
type Config struct {
	Analyzer  AnalyzerCfg       `mapstructure:"analyzer" yaml:"analyzer"`
	Integrate IntegrateCfg      `mapstructure:"integrate" yaml:"integrate"`
	Defra     DefraConfig       `mapstructure:"defra" yaml:"defra"`
	APIKeys   map[string]string `mapstructure:"api_keys" yaml:"api_keys"`
}

// AnalyzerCfg configures the LLM text-analysis collaborator.
type AnalyzerCfg struct {
	// Provider selects the API key from api_keys (default: "openai").
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model is the model name sent with each request.
	Model string `mapstructure:"model" yaml:"model"`
	// BaseURL overrides the API endpoint (for OpenAI-compatible gateways).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// RateLimit is requests per minute (default: 60).
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
	// MaxRetries bounds per-request retry attempts.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// IntegrateCfg tunes the integration pipeline.
// The defaults mirror the limits of the managed store: 100-document pages,
// small concurrent write batches with an inter-batch delay, and a 5-example
// cap per aggregate document.
type IntegrateCfg struct {
	PageSize        int `mapstructure:"page_size" yaml:"page_size"`
	WriteBatchSize  int `mapstructure:"write_batch_size" yaml:"write_batch_size"`
	WriteBatchDelay int `mapstructure:"write_batch_delay_ms" yaml:"write_batch_delay_ms"`
	MaxExamples     int `mapstructure:"max_examples" yaml:"max_examples"`
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: kotoba-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analyzer: AnalyzerCfg{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			RateLimit:  60,
			MaxRetries: 2,
		},
		Integrate: IntegrateCfg{
			PageSize:        100,
			WriteBatchSize:  10,
			WriteBatchDelay: 200,
			MaxExamples:     5,
		},
		Defra: DefraConfig{
			ContainerName: "kotoba-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
		APIKeys: map[string]string{
			"openai": "${OPENAI_API_KEY}",
		},
	}
}

// ResolveAPIKey returns the resolved API key for a provider,
// expanding any ${ENV_VAR} reference.
func (c *Config) ResolveAPIKey(provider string) string {
	return ResolveEnvVars(c.APIKeys[provider])
}

// PageSize returns the configured scan page size with fallback.
func (c *IntegrateCfg) Normalized() IntegrateCfg {
	out := *c
	if out.PageSize <= 0 {
		out.PageSize = 100
	}
	if out.WriteBatchSize <= 0 {
		out.WriteBatchSize = 10
	}
	if out.WriteBatchDelay < 0 {
		out.WriteBatchDelay = 0
	}
	if out.MaxExamples <= 0 {
		out.MaxExamples = 5
	}
	return out
}
