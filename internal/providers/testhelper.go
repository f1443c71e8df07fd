package providers

import (
	"os"
)

// TestConfig holds provider credentials loaded from environment variables so
// integration tests can run against live endpoints when keys are present.
type TestConfig struct {
	GeminiAPIKey string
	OpenAIAPIKey string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
	}
}

// HasGemini returns true if a Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasOpenAI returns true if an OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// ToRegistryConfig converts test config to a RegistryConfig holding only the
// providers that have keys.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{Clients: make(map[string]ClientConfig)}
	if c.HasGemini() {
		cfg.Clients[GeminiName] = ClientConfig{Type: GeminiName, RateLimit: DefaultRequestsPerMinute, Enabled: true}
	}
	if c.HasOpenAI() {
		cfg.Clients[OpenAIVisionName] = ClientConfig{Type: OpenAIVisionName, Enabled: true}
	}
	return cfg
}
