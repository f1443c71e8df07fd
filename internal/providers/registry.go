package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ClientConfig describes one vision client to instantiate from config.
type ClientConfig struct {
	Type      string // "gemini", "openai", "mock"
	Model     string
	BaseURL   string
	RateLimit int // requests per minute
	MaxTokens int
	Enabled   bool
}

// RegistryConfig maps client names to their config.
type RegistryConfig struct {
	Clients map[string]ClientConfig
}

type registryEntry struct {
	client VisionClient
	cfg    ClientConfig
}

// Registry holds named vision clients. It supports config-driven
// instantiation and hot reload, and is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]registryEntry
	logger  *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]registryEntry),
		logger:  slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry holding every enabled client in cfg.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	for name, cc := range cfg.Clients {
		if !cc.Enabled {
			continue
		}
		if client := createClient(cc, r.logger); client != nil {
			r.clients[name] = registryEntry{client: client, cfg: cc}
		}
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces a client by name.
func (r *Registry) Register(name string, client VisionClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = registryEntry{client: client}
	if r.logger != nil {
		r.logger.Debug("registered vision client", "name", name)
	}
}

// Unregister removes a client by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, name)
	if r.logger != nil {
		r.logger.Debug("unregistered vision client", "name", name)
	}
}

// Get returns a client by name.
func (r *Registry) Get(name string) (VisionClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("vision client not found: %s", name)
	}
	return e.client, nil
}

// Bound returns a VisionClient that resolves name on every call, so a
// Reload takes effect from the next request on.
func (r *Registry) Bound(name string) VisionClient {
	return &boundClient{registry: r, name: name}
}

type boundClient struct {
	registry *Registry
	name     string
}

func (b *boundClient) Name() string {
	if c, err := b.registry.Get(b.name); err == nil {
		return c.Name()
	}
	return b.name
}

func (b *boundClient) Generate(ctx context.Context, req *VisionRequest) (*VisionResult, error) {
	c, err := b.registry.Get(b.name)
	if err != nil {
		return nil, err
	}
	return c.Generate(ctx, req)
}

func (b *boundClient) HealthCheck(ctx context.Context, apiKey string) error {
	c, err := b.registry.Get(b.name)
	if err != nil {
		return err
	}
	hc, ok := c.(HealthChecker)
	if !ok {
		return fmt.Errorf("%s client does not support credential checks", c.Name())
	}
	return hc.HealthCheck(ctx, apiKey)
}

// Has checks if a client is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// List returns registered client names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload updates the registry from new configuration. Clients no longer
// configured are unregistered; clients with changed settings are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, cc := range cfg.Clients {
		if !cc.Enabled {
			continue
		}
		want[name] = true

		existing, ok := r.clients[name]
		if ok && existing.cfg == cc {
			continue
		}
		client := createClient(cc, r.logger)
		if client == nil {
			if r.logger != nil {
				r.logger.Warn("unknown vision client type", "name", name, "type", cc.Type)
			}
			continue
		}
		r.clients[name] = registryEntry{client: client, cfg: cc}
		if r.logger != nil {
			if ok {
				r.logger.Debug("updated vision client", "name", name, "type", cc.Type)
			} else {
				r.logger.Debug("registered vision client", "name", name, "type", cc.Type)
			}
		}
	}

	for name := range r.clients {
		if !want[name] {
			delete(r.clients, name)
			if r.logger != nil {
				r.logger.Debug("unregistered vision client", "name", name)
			}
		}
	}
}

// createClient creates a vision client based on type.
func createClient(cfg ClientConfig, logger *slog.Logger) VisionClient {
	switch cfg.Type {
	case GeminiName:
		return NewGeminiClient(GeminiConfig{
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			RateLimit: cfg.RateLimit,
			MaxTokens: cfg.MaxTokens,
			Logger:    logger,
		})
	case OpenAIVisionName:
		return NewOpenAIVisionClient(OpenAIVisionConfig{
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			RateLimit: cfg.RateLimit,
			MaxTokens: cfg.MaxTokens,
			Logger:    logger,
		})
	case MockClientName:
		return NewMockClient()
	default:
		return nil
	}
}
