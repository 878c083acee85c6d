package core

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ParleSec/MirrorBin/internal/lookingglass"
	"github.com/ParleSec/MirrorBin/internal/metrics"
	"github.com/ParleSec/MirrorBin/internal/plugin"
)

// BootstrapOptions controls which shared dependencies are initialized.
type BootstrapOptions struct {
	EnableMetrics bool
	// LogOutput overrides the log destination; nil means stderr
	LogOutput io.Writer
}

// BootstrapResult holds initialized dependencies and plugin config.
type BootstrapResult struct {
	Config       *Config
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	LookingGlass *lookingglass.Engine
	PluginConfig plugin.PluginConfig
}

// Bootstrap loads the configuration and initializes shared dependencies.
func Bootstrap(opts BootstrapOptions) (*BootstrapResult, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return BootstrapWithConfig(cfg, opts), nil
}

// BootstrapWithConfig initializes shared dependencies for an already loaded
// configuration.
func BootstrapWithConfig(cfg *Config, opts BootstrapOptions) *BootstrapResult {
	logger := NewLogger(cfg, opts.LogOutput)

	var m *metrics.Metrics
	if opts.EnableMetrics {
		m = metrics.New()
		logger.Debug("metrics registry initialized")
	}

	var lg *lookingglass.Engine
	if cfg.InspectEnabled {
		lg = lookingglass.NewEngine()
		logger.Debug("looking glass engine initialized")
	}

	return &BootstrapResult{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		LookingGlass: lg,
		PluginConfig: plugin.PluginConfig{
			BaseURL:      cfg.BaseURL,
			Logger:       logger,
			Metrics:      m,
			LookingGlass: lg,
		},
	}
}
