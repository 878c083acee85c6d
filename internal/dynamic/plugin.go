// Package dynamic implements the request-mirror and bounded-generator
// endpoints: /uuid, /base64, /delay, /bytes and /chars.
package dynamic

import (
	"context"
	"io"
	"net/http"

	"github.com/ParleSec/MirrorBin/internal/metrics"
	"github.com/ParleSec/MirrorBin/internal/plugin"
	"github.com/go-chi/chi/v5"
)

// Limits holds the configured ceilings for the dynamic endpoints
type Limits struct {
	MaxDelaySeconds int
	MaxBytes        int64
	MaxChars        int64
	MaxBodyBytes    int64
}

// Plugin serves the dynamic-data endpoints at the server root
type Plugin struct {
	*plugin.BasePlugin
	limits    Limits
	generator *Generator
	delay     *DelayHandler
	wait      WaitFunc
	metrics   *metrics.Metrics
}

// Option customizes a Plugin
type Option func(*Plugin)

// WithEntropy replaces the entropy source used by the generators
func WithEntropy(source io.Reader) Option {
	return func(p *Plugin) {
		p.generator = NewGenerator(source)
	}
}

// WithWait replaces the function used to suspend /delay requests
func WithWait(wait WaitFunc) Option {
	return func(p *Plugin) {
		p.wait = wait
	}
}

// NewPlugin creates the dynamic-data plugin
func NewPlugin(limits Limits, opts ...Option) *Plugin {
	p := &Plugin{
		BasePlugin: plugin.NewBasePlugin(plugin.PluginInfo{
			ID:          "dynamic",
			Name:        "Dynamic Data",
			Version:     "1.0.0",
			Description: "Request echo with artificial latency and bounded random payloads",
			Tags:        []string{"echo", "delay", "random", "uuid", "base64"},
			MountPath:   "/",
		}),
		limits:    limits,
		generator: NewGenerator(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.delay = NewDelayHandler(limits.MaxDelaySeconds, limits.MaxBodyBytes, p.wait, nil)
	return p
}

// Initialize wires shared dependencies
func (p *Plugin) Initialize(ctx context.Context, config plugin.PluginConfig) error {
	p.SetConfig(config)
	p.metrics = config.Metrics
	p.delay = NewDelayHandler(p.limits.MaxDelaySeconds, p.limits.MaxBodyBytes, p.wait, config.Metrics)

	p.Logger().Info("dynamic plugin initialized",
		"max_delay_seconds", p.limits.MaxDelaySeconds,
		"max_bytes", p.limits.MaxBytes,
		"max_chars", p.limits.MaxChars,
	)
	return nil
}

// Shutdown has nothing to release
func (p *Plugin) Shutdown(ctx context.Context) error {
	return nil
}

// RegisterRoutes registers the dynamic-data endpoints
func (p *Plugin) RegisterRoutes(router chi.Router) {
	router.Get("/uuid", p.handleUUID)
	router.Get("/base64/*", p.handleBase64)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		router.MethodFunc(method, "/delay/{seconds}", p.handleDelay)
	}

	router.Get("/bytes/{n}", p.handleBytes)
	router.Get("/chars/{n}", p.handleChars)
}

// Endpoints describes the dynamic-data routes
func (p *Plugin) Endpoints() []plugin.Endpoint {
	return []plugin.Endpoint{
		{
			Methods:     []string{http.MethodGet},
			Path:        "/uuid",
			Description: "Random version 4 UUID",
			Produces:    "application/json",
		},
		{
			Methods:     []string{http.MethodGet},
			Path:        "/base64/{value}",
			Description: "Decode a standard base64 value",
			Produces:    "application/json",
			Errors:      []string{LabelInvalidBase64},
		},
		{
			Methods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			Path:        "/delay/{seconds}",
			Description: "Echo the request after waiting the given number of seconds",
			Produces:    "application/json",
			Errors:      []string{LabelInvalidDelay, LabelDelayTooLong, LabelBodyTooLarge, LabelInterrupted},
		},
		{
			Methods:     []string{http.MethodGet},
			Path:        "/bytes/{n}",
			Description: "n random bytes",
			Produces:    "application/octet-stream",
			Errors:      []string{LabelInvalidSize, LabelSizeTooLarge},
		},
		{
			Methods:     []string{http.MethodGet},
			Path:        "/chars/{n}",
			Description: "n random characters from [a-zA-Z0-9]",
			Produces:    "text/plain",
			Errors:      []string{LabelInvalidSize, LabelSizeTooLarge},
		},
	}
}
