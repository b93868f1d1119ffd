package main

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"slices"
	"time"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/config"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/database"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/diabetes-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/frontend"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/security"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const predictPath = "/api/v1/predict"

// Deps are the optional collaborators of a Server. Nil fields get
// defaults (in-memory everything, CSV source from config).
type Deps struct {
	Logger      *monitoring.Logger
	Metrics     *monitoring.Metrics
	Source      analysis.RowSource
	Repository  *database.Repository
	RedisClient *ratelimit.RedisClient
}

// Server wires the model pipeline to HTTP
type Server struct {
	cfg      *config.Config
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
	source   analysis.RowSource
	models   *cache.ModelCache
	repo     *database.Repository
	redis    *ratelimit.RedisClient
	limiter  *ratelimit.RateLimiter
	security *security.SecurityMiddleware
}

// NewServer creates a server for cfg
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = monitoring.NewLogger(cfg.Logging.Level)
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}
	if deps.Source == nil {
		deps.Source = dataset.NewCSVSource(cfg.Dataset.Path)
	}

	limiter := ratelimit.NewRateLimiter(deps.RedisClient, ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}, deps.Metrics)

	return &Server{
		cfg:      cfg,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		source:   deps.Source,
		models:   cache.NewModelCache(cfg.Model.CacheTTL, deps.Metrics),
		repo:     deps.Repository,
		redis:    deps.RedisClient,
		limiter:  limiter,
		security: security.NewSecurityMiddleware(security.DefaultSecurityConfig()),
	}
}

// Close releases background resources
func (s *Server) Close() {
	s.limiter.Close()
}

// Model returns the current model, building it on first use
func (s *Server) Model() (analysis.Model, bool, error) {
	return s.models.GetOrBuild(s.cfg.Dataset.Path, s.buildModel)
}

// Rebuild drops every cached model and builds a fresh one
func (s *Server) Rebuild() (analysis.Model, bool, error) {
	s.models.Clear()
	return s.Model()
}

func (s *Server) buildModel() (analysis.Model, bool, error) {
	start := time.Now()
	model, ok, err := analysis.NewAnalyzer(s.source).BuildModel()
	if err != nil {
		return analysis.Model{}, false, err
	}

	s.metrics.RecordModelBuild(ok)
	s.logger.ModelLogger(s.cfg.Dataset.Path, model.Stats.Count, ok, time.Since(start))

	if s.repo == nil {
		return model, ok, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !ok {
		return s.lastSnapshot(ctx)
	}

	if snapshot, err := s.repo.SaveModel(ctx, s.cfg.Dataset.Path, model); err != nil {
		slog.Warn("Failed to record model snapshot", "error", err)
	} else {
		slog.Debug("Model snapshot recorded", "id", snapshot.ID)
	}
	return model, true, nil
}

// lastSnapshot serves the most recent stored model for the dataset when
// the dataset itself yields none.
func (s *Server) lastSnapshot(ctx context.Context) (analysis.Model, bool, error) {
	snapshot, err := s.repo.LatestModel(ctx, s.cfg.Dataset.Path)
	if err != nil {
		if !errors.Is(err, analysis.ErrModelNotFound) {
			slog.Warn("Failed to load model snapshot", "error", err)
		}
		return analysis.Model{}, false, nil
	}

	slog.Warn("Dataset yields no model, serving stored snapshot",
		"dataset", s.cfg.Dataset.Path,
		"snapshot_id", snapshot.ID,
		"created_at", snapshot.CreatedAt,
	)
	return snapshot.Model(), true, nil
}

// redisStatus reports the rate limit backend connection state
func (s *Server) redisStatus(ctx context.Context) string {
	if !s.redis.IsEnabled() {
		return "disabled"
	}
	if err := s.redis.HealthCheck(ctx); err != nil {
		slog.Warn("Redis health check failed", "error", err)
		return "unreachable"
	}
	return "ok"
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(apperrors.RecoveryHandler())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger, predictPath))
	r.Use(apperrors.ErrorHandler())
	r.Use(security.SecurityHeadersMiddleware(s.cfg.Server.EnableHSTS))
	r.Use(s.security.RequestTimeout)

	r.GET("/health", s.handleHealth)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	page := r.Group("/", security.CSPMiddleware())
	if tmpl, err := s.indexTemplate(); err != nil {
		slog.Error("Form page disabled", "error", err)
	} else {
		page.GET("/", frontend.NewIndexHandler(tmpl, predictPath))
	}

	api := r.Group("/api/v1")
	api.Use(cors.New(s.corsConfig()))
	api.Use(s.limiter.IPRateLimitMiddleware())
	api.Use(s.security.LimitBody, s.security.ValidateContentType)
	{
		api.POST("/predict", s.handlePredict)
		api.GET("/model", s.handleModel)
		api.POST("/model/rebuild", s.handleRebuild)
		api.GET("/models", s.handleModels)
		api.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())
	}

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = len(s.cfg.Server.CORSOrigins) == 0 || slices.Contains(s.cfg.Server.CORSOrigins, "*")
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = s.cfg.Server.CORSOrigins
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cfg.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func (s *Server) indexTemplate() (*template.Template, error) {
	templates, err := frontend.GetTemplateFS()
	if err != nil {
		return nil, err
	}
	return frontend.LoadIndexTemplate(templates)
}
