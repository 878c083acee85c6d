package core

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ParleSec/MirrorBin/internal/lookingglass"
	"github.com/ParleSec/MirrorBin/internal/metrics"
	"github.com/ParleSec/MirrorBin/internal/plugin"
	"github.com/ParleSec/MirrorBin/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Version is reported by /health
const Version = "1.0.0"

// Server is the main HTTP server for the mirror service
type Server struct {
	config       *Config
	registry     *plugin.Registry
	lookingGlass *lookingglass.Engine
	metrics      *metrics.Metrics
	logger       *slog.Logger
	router       chi.Router
}

// NewServer creates a new server instance. lg and m may be nil to disable
// inspection and metrics.
func NewServer(cfg *Config, registry *plugin.Registry, lg *lookingglass.Engine, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:       cfg,
		registry:     registry,
		lookingGlass: lg,
		metrics:      m,
		logger:       logger,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware. RealIP is not installed: the echoed origin must be
	// the immediate peer, not a forwarded-for value.
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger, s.metrics))
	r.Use(Recovery(s.logger))
	r.Use(SecurityHeaders)
	r.Use(middleware.Timeout(s.config.RequestTimeout()))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id", "Content-Length"},
		MaxAge:         300,
	}))

	if s.config.RateLimit.RequestsPerSecond > 0 {
		rateLimiter := NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.metrics)
		r.Use(rateLimiter.Limit)
	}

	if s.lookingGlass != nil {
		r.Use(CaptureMiddleware(s.lookingGlass))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "No route matches "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported on "+r.URL.Path)
	})

	// Health check
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/plugins", s.handleListPlugins)

		if s.lookingGlass != nil {
			r.Route("/inspect/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)
				r.Post("/", s.handleCreateSession)
				r.Get("/{id}", s.handleGetSession)
				r.Delete("/{id}", s.handleDeleteSession)
			})
		}
	})

	// WebSocket routes
	if s.lookingGlass != nil {
		r.Get("/ws/inspect/{session}", s.handleInspectWS)
	}

	// Mount plugin routes
	for _, p := range s.registry.List() {
		mount := p.Info().MountPoint()
		if mount == "/" {
			r.Group(func(r chi.Router) {
				p.RegisterRoutes(r)
			})
			continue
		}
		r.Route(mount, func(r chi.Router) {
			p.RegisterRoutes(r)
		})
	}

	s.router = r
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Plugins []string `json:"plugins"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	plugins := make([]string, 0)
	for _, p := range s.registry.List() {
		plugins = append(plugins, p.Info().ID)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
		Plugins: plugins,
	})
}

// PluginSummary describes a registered plugin and its endpoints
type PluginSummary struct {
	plugin.PluginInfo
	Endpoints []plugin.Endpoint `json:"endpoints"`
}

func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	plugins := make([]PluginSummary, 0)
	for _, p := range s.registry.List() {
		plugins = append(plugins, PluginSummary{
			PluginInfo: p.Info(),
			Endpoints:  p.Endpoints(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"base_url": s.config.BaseURL,
		"plugins":  plugins,
	})
}

// CreateSessionRequest is the optional body of POST /api/inspect/sessions
type CreateSessionRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", "Expected a JSON object with an optional label")
			return
		}
	}

	session := s.lookingGlass.CreateSession(req.Label)
	s.logger.Debug("inspect session created", "session", session.ID)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id":  session.ID,
		"label":       session.Label,
		"header":      captureSessionHeader,
		"ws_endpoint": "/ws/inspect/" + session.ID,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.lookingGlass.ListSessions(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, exists := s.lookingGlass.GetSession(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found", "No inspection session with id "+id)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.lookingGlass.DeleteSession(id) {
		writeError(w, http.StatusNotFound, "Session not found", "No inspection session with id "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInspectWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	session, exists := s.lookingGlass.GetSession(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found", "No inspection session with id "+id)
		return
	}
	s.lookingGlass.HandleWebSocket(w, r, session, s.logger)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, models.ErrorEnvelope{Error: label, Message: message})
}
