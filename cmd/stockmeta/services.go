package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/stockmeta/internal/config"
	"github.com/jackzampolin/stockmeta/internal/home"
	"github.com/jackzampolin/stockmeta/internal/llmcall"
	"github.com/jackzampolin/stockmeta/internal/providers"
	"github.com/jackzampolin/stockmeta/internal/svcctx"
)

// setupServices loads config, prepares the home directory and starts the
// call log. The returned cleanup flushes the call log.
func setupServices(ctx context.Context) (context.Context, func(), error) {
	logger := slog.Default()

	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, err
	}
	mgr.SetLogger(logger)
	cfg := mgr.Get()
	if f := mgr.File(); f != "" {
		logger.Debug("loaded config", "file", f)
	}

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(cfg.ToRegistryConfig())
	mgr.OnChange(func(c *config.Config) {
		registry.Reload(c.ToRegistryConfig())
		logger.Info("config reloaded", "provider", c.Provider, "clients", registry.List())
	})

	svc := &svcctx.Services{
		Config:    mgr,
		Registry:  registry,
		Logger:    logger,
		Home:      h,
		CallStore: llmcall.NewStore(h.CallLogPath()),
	}

	cleanup := func() {}
	if cfg.CallLog.Enabled {
		interval, err := cfg.CallLogFlushInterval()
		if err != nil {
			return nil, nil, err
		}
		sink := llmcall.NewSink(llmcall.SinkConfig{
			Path:          h.CallLogPath(),
			BatchSize:     cfg.CallLog.BatchSize,
			FlushInterval: interval,
			Logger:        logger,
		})
		// The sink outlives a cancelled command so interrupted batches are still logged.
		sink.Start(context.WithoutCancel(ctx))
		svc.CallSink = sink
		svc.Recorder = llmcall.NewRecorder(sink)
		cleanup = sink.Stop
	}

	return svcctx.WithServices(ctx, svc), cleanup, nil
}

// visionClient returns the selected provider's client, or an error naming
// the configured ones.
func visionClient(ctx context.Context, name string) (providers.VisionClient, error) {
	registry := svcctx.RegistryFrom(ctx)
	if name == "" {
		name = svcctx.ConfigFrom(ctx).Provider
	}
	if !registry.Has(name) {
		return nil, fmt.Errorf("provider %q is not enabled (enabled: %v)", name, registry.List())
	}
	return registry.Bound(name), nil
}
