package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/metrics"
	"github.com/jackzampolin/stockmeta/internal/providers"
)

// Config holds stockmeta configuration.
// Stored at: ~/.stockmeta/config.yaml or ./config.yaml
type Config struct {
	// Provider is the vision client used by generate and check.
	Provider  string                 `mapstructure:"provider" yaml:"provider"`
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	// APIKey overrides the selected provider's key (supports ${ENV_VAR}).
	APIKey  string     `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Retry   RetryCfg   `mapstructure:"retry" yaml:"retry"`
	Limits  LimitsCfg  `mapstructure:"limits" yaml:"limits"`
	Dedup   DedupCfg   `mapstructure:"dedup" yaml:"dedup"`
	CallLog CallLogCfg `mapstructure:"call_log" yaml:"call_log"`
	Pricing []PriceCfg `mapstructure:"pricing" yaml:"pricing"`

	// TaxonomyFile extends or replaces the built-in synonym groups.
	TaxonomyFile string `mapstructure:"taxonomy_file" yaml:"taxonomy_file"`
	// SkipTagged skips images that already carry an embedded title and keywords.
	SkipTagged bool `mapstructure:"skip_tagged" yaml:"skip_tagged"`
	// Timeout bounds each image, including retries. Empty means no deadline.
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

// ProviderCfg configures a vision client.
type ProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"` // "gemini", "openai", "mock"
	Model     string `mapstructure:"model" yaml:"model"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // supports ${ENV_VAR} syntax
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// RetryCfg sets the backoff schedule for overloaded-model responses.
type RetryCfg struct {
	Delays []string `mapstructure:"delays" yaml:"delays"` // e.g. ["1s", "2s", "4s"]
}

// LimitsCfg caps what a single batch may contain.
type LimitsCfg struct {
	MaxBatchSize int   `mapstructure:"max_batch_size" yaml:"max_batch_size"`
	MaxFileSize  int64 `mapstructure:"max_file_size" yaml:"max_file_size"` // bytes
}

// DedupCfg controls perceptual duplicate skipping.
type DedupCfg struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	Threshold int  `mapstructure:"threshold" yaml:"threshold"`
}

// CallLogCfg controls the JSONL log of inference calls.
type CallLogCfg struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	BatchSize     int    `mapstructure:"batch_size" yaml:"batch_size"`
	FlushInterval string `mapstructure:"flush_interval" yaml:"flush_interval"`
}

// PriceCfg is a model's USD price per million tokens, as decimal strings.
// A list rather than a map because model names contain dots.
type PriceCfg struct {
	Model            string `mapstructure:"model" yaml:"model"`
	InputPerMillion  string `mapstructure:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion string `mapstructure:"output_per_million" yaml:"output_per_million"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: providers.GeminiName,
		Providers: map[string]ProviderCfg{
			providers.GeminiName: {
				Type:      providers.GeminiName,
				Model:     providers.GeminiDefaultModel,
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: providers.DefaultRequestsPerMinute,
				Enabled:   true,
			},
			providers.OpenAIVisionName: {
				Type:      providers.OpenAIVisionName,
				Model:     providers.OpenAIVisionDefaultModel,
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60,
				Enabled:   false,
			},
		},
		Retry: RetryCfg{Delays: []string{"1s", "2s", "4s"}},
		Limits: LimitsCfg{
			MaxBatchSize: images.MaxBatchSize,
			MaxFileSize:  images.MaxFileSize,
		},
		Dedup: DedupCfg{
			Enabled:   false,
			Threshold: images.DefaultDuplicateThreshold,
		},
		CallLog: CallLogCfg{
			Enabled:       true,
			BatchSize:     20,
			FlushInterval: "2s",
		},
		Pricing: []PriceCfg{
			{Model: providers.GeminiDefaultModel, InputPerMillion: "0.075", OutputPerMillion: "0.30"},
			{Model: providers.OpenAIVisionDefaultModel, InputPerMillion: "0.15", OutputPerMillion: "0.60"},
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ResolveAPIKey returns the API key of the named provider with ${ENV_VAR}
// references expanded.
func (c *Config) ResolveAPIKey(name string) string {
	p, ok := c.Providers[name]
	if !ok {
		return ""
	}
	return ResolveEnvVars(p.APIKey)
}

// Credential picks the API key for the selected provider.
func (c *Config) Credential(explicit string) string {
	return c.CredentialFor(c.Provider, explicit)
}

// CredentialFor picks the API key for provider: an explicit value (the
// --api-key flag) wins, then the top-level api_key, then the provider's.
func (c *Config) CredentialFor(provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if key := ResolveEnvVars(c.APIKey); key != "" {
		return key
	}
	return c.ResolveAPIKey(provider)
}

// RetryDelays parses the retry schedule. An empty list yields the default
// 1s/2s/4s schedule.
func (c *Config) RetryDelays() ([]time.Duration, error) {
	if len(c.Retry.Delays) == 0 {
		return nil, nil
	}
	out := make([]time.Duration, 0, len(c.Retry.Delays))
	for _, s := range c.Retry.Delays {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid retry delay %q: %w", s, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid retry delay %q: negative", s)
		}
		out = append(out, d)
	}
	return out, nil
}

// ImageTimeout parses the per-image timeout. Zero means none.
func (c *Config) ImageTimeout() (time.Duration, error) {
	return parseOptionalDuration("timeout", c.Timeout)
}

// CallLogFlushInterval parses call_log.flush_interval.
func (c *Config) CallLogFlushInterval() (time.Duration, error) {
	return parseOptionalDuration("call_log.flush_interval", c.CallLog.FlushInterval)
}

// PricingTable returns prices keyed by model for metrics.ParsePricing.
func (c *Config) PricingTable() map[string][2]string {
	out := make(map[string][2]string, len(c.Pricing))
	for _, p := range c.Pricing {
		out[p.Model] = [2]string{p.InputPerMillion, p.OutputPerMillion}
	}
	return out
}

// ImageLimits returns the loader limits, falling back to the defaults for
// unset fields.
func (c *Config) ImageLimits() images.Limits {
	l := images.DefaultLimits()
	if c.Limits.MaxBatchSize > 0 {
		l.MaxImages = c.Limits.MaxBatchSize
	}
	if c.Limits.MaxFileSize > 0 {
		l.MaxFileSize = c.Limits.MaxFileSize
	}
	return l
}

// Validate checks fields that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Provider != "" {
		p, ok := c.Providers[c.Provider]
		if !ok {
			return fmt.Errorf("provider %q is not configured", c.Provider)
		}
		if !p.Enabled {
			return fmt.Errorf("provider %q is disabled", c.Provider)
		}
	}
	if _, err := c.RetryDelays(); err != nil {
		return err
	}
	if _, err := c.ImageTimeout(); err != nil {
		return err
	}
	if _, err := c.CallLogFlushInterval(); err != nil {
		return err
	}
	if _, err := metrics.ParsePricing(c.PricingTable()); err != nil {
		return err
	}
	if c.Dedup.Threshold < 0 {
		return fmt.Errorf("dedup.threshold must be >= 0")
	}
	return nil
}

func parseOptionalDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}
