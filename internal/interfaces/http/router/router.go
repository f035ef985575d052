// Package router assembles the gin engine and the versioned API routes.
package router

import (
	"net/http"
	"time"

	"github.com/coridor/backend/internal/infrastructure/logger"
	"github.com/coridor/backend/internal/interfaces/http/dto"
	"github.com/coridor/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineConfig selects the middleware of the engine. Meter and Observer
// receive per-request metrics and may both be nil.
type EngineConfig struct {
	ServiceName    string
	Logger         *zap.Logger
	TracingEnabled bool
	Meter          metric.Meter
	Observer       middleware.HTTPObserver
	Profiling      middleware.ProfilingConfig
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// NewEngine builds a gin engine with the standard middleware chain.
// Recovery is outermost.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = middleware.DefaultBodyLimit
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter, cfg.Observer),
		middleware.Profiling(cfg.Profiling),
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.Timeout(cfg.RequestTimeout),
	)
	engine.NoRoute(noRoute)
	return engine
}

func noRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeRouteNotFound,
		"No route for "+c.Request.Method+" "+c.Request.URL.Path,
		middleware.GetRequestID(c),
	))
}
