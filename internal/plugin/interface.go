package plugin

import (
	"context"
	"log/slog"

	"github.com/ParleSec/MirrorBin/internal/lookingglass"
	"github.com/ParleSec/MirrorBin/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Plugin defines the interface that all endpoint groups must implement
type Plugin interface {
	// Info returns metadata about the plugin
	Info() PluginInfo

	// Lifecycle management
	Initialize(ctx context.Context, config PluginConfig) error
	Shutdown(ctx context.Context) error

	// HTTP routing - plugin registers its own routes
	RegisterRoutes(router chi.Router)

	// Endpoints describes the routes for the plugin listing
	Endpoints() []Endpoint
}

// PluginInfo contains metadata about a plugin
type PluginInfo struct {
	ID          string   `json:"id"`          // Unique identifier (e.g., "dynamic")
	Name        string   `json:"name"`        // Display name
	Version     string   `json:"version"`     // Plugin version
	Description string   `json:"description"` // Brief description
	Tags        []string `json:"tags"`        // Categorization tags
	MountPath   string   `json:"mount_path"`  // "/" mounts at the root; empty means "/<id>"
}

// PluginConfig provides shared dependencies to plugins during initialization
type PluginConfig struct {
	BaseURL      string
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	LookingGlass *lookingglass.Engine
}

// Endpoint describes one route exposed by a plugin
type Endpoint struct {
	Methods     []string `json:"methods"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Produces    string   `json:"produces,omitempty"`
	Errors      []string `json:"errors,omitempty"` // Error labels the route can return
}

// BasePlugin provides common functionality for plugins
type BasePlugin struct {
	info   PluginInfo
	config PluginConfig
}

// NewBasePlugin creates a new base plugin with the given info
func NewBasePlugin(info PluginInfo) *BasePlugin {
	return &BasePlugin{info: info}
}

// Info returns the plugin information
func (p *BasePlugin) Info() PluginInfo {
	return p.info
}

// SetConfig stores the plugin configuration
func (p *BasePlugin) SetConfig(config PluginConfig) {
	p.config = config
}

// Config returns the plugin configuration
func (p *BasePlugin) Config() PluginConfig {
	return p.config
}

// Logger returns the configured logger, or slog.Default before Initialize
func (p *BasePlugin) Logger() *slog.Logger {
	if p.config.Logger == nil {
		return slog.Default()
	}
	return p.config.Logger.With("plugin", p.info.ID)
}

// MountPoint returns the path the plugin's routes are mounted under
func (info PluginInfo) MountPoint() string {
	if info.MountPath != "" {
		return info.MountPath
	}
	return "/" + info.ID
}
