package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"patrolops/api/internal/config"
	"patrolops/api/internal/docstore"
	"patrolops/api/internal/events"
	"patrolops/api/internal/handler"
	"patrolops/api/internal/metrics"
	"patrolops/api/internal/middleware"
	"patrolops/api/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	http      *http.Server
	config    *config.Config
	store     docstore.Store
	nats      *nats.Conn
	natsSub   *nats.Subscription
	publisher *events.NATSPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	users  *service.UserService
	wsHub  *handler.WSHub
	policy *service.VisibilityPolicy
}

// NewServer creates a new server instance. natsConn may be nil, in which case
// events are only delivered inside this process.
func NewServer(cfg *config.Config, store docstore.Store, natsConn *nats.Conn, logger *zap.Logger) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		nats:    natsConn,
		metrics: metrics.New(),
		logger:  logger,
	}
}

// Setup initializes services, seeds the built-in users and registers routes.
func (s *Server) Setup(ctx context.Context) error {
	if err := handler.RegisterValidators(); err != nil {
		return err
	}
	loc := s.config.Location()

	// Event fan-out
	bus := events.NewBus()
	var publisher events.Publisher = bus
	if s.nats != nil {
		s.publisher = events.NewNATSPublisher(s.nats, s.logger)
		publisher = s.publisher
	}

	// Initialize services
	catalogService := service.NewCatalogService(s.store, s.logger)
	s.users = service.NewUserService(s.store, s.logger)
	s.policy = service.NewVisibilityPolicy(loc, s.config.ShiftCutoffHour)
	operativeService := service.NewOperativeService(s.store, catalogService, s.policy, publisher, s.metrics, loc, s.logger)
	reportService := service.NewReportService(operativeService, s.policy, loc, s.config.ExportCutoffHour)
	authService := service.NewAuthService(s.users, s.store, s.config.JWTSecret, s.config.JWTTTL, s.logger)
	importService := service.NewUserImportService(s.users, s.metrics)

	seeded, err := s.users.EnsureSeed(ctx)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if seeded {
		s.logger.Warn("built-in users created with default passwords")
	}

	// WebSocket hub, fed by NATS so every API instance sees every event
	s.wsHub = handler.NewWSHub(s.policy, authService, s.logger)
	if s.nats != nil {
		sub, err := events.SubscribeNATS(s.nats, s.logger, s.wsHub.Handle)
		if err != nil {
			return fmt.Errorf("subscribe operative events: %w", err)
		}
		s.natsSub = sub
	} else {
		bus.Subscribe(s.wsHub.Handle)
	}
	go s.wsHub.Run()
	s.logger.Info("websocket hub started", zap.Bool("nats", s.nats != nil))

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, s.users, s.logger)
	operativeHandler := handler.NewOperativeHandler(operativeService, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, s.logger)
	userHandler := handler.NewUserHandler(s.users, importService, s.logger)
	reportHandler := handler.NewReportHandler(reportService, loc, s.logger)
	wsHandler := handler.NewWSHandler(s.wsHub, s.logger)

	s.router = gin.New()
	s.router.Use(middleware.Recovery(s.logger), middleware.RequestLogger(s.logger), middleware.Metrics(s.metrics))

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	if s.config.RateLimit.Enabled {
		s.router.Use(s.rateLimitGroup().Middleware())
	}

	// Swagger UI
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/health", s.health)

	// Public routes
	public := s.router.Group("/api/v1")
	authHandler.RegisterPublicRoutes(public)

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(middleware.Auth(authService))
	{
		authHandler.RegisterRoutes(api)
		operativeHandler.RegisterRoutes(api)
		catalogHandler.RegisterRoutes(api)
		userHandler.RegisterRoutes(api)
		reportHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	}
	return nil
}

// rateLimitGroup uses the shared redis counters when the store is redis and
// per-process counters otherwise.
func (s *Server) rateLimitGroup() *middleware.RateLimitGroup {
	var limiter middleware.RateLimiter = middleware.NewMemoryRateLimiter()
	if rs, ok := s.store.(*docstore.Redis); ok {
		limiter = middleware.NewRedisRateLimiter(rs.Client())
	}
	return middleware.NewRateLimitGroup(limiter, func(path string) *middleware.RateLimitConfig {
		rule := s.config.GetRateLimitRuleForPath(path)
		return rule.ToMiddlewareConfig()
	}, s.logger)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	health := gin.H{"status": "ok", "store": s.config.StoreBackend}
	if err := s.store.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "degraded"
		health["store_error"] = err.Error()
	}

	switch {
	case s.nats == nil:
		health["nats"] = "disabled"
	case s.nats.IsConnected():
		health["nats"] = "connected"
	default:
		health["nats"] = s.nats.Status().String()
	}

	if s.publisher != nil && s.publisher.JetStreamEnabled() {
		health["jetstream"] = "enabled"
		if info, err := s.publisher.StreamInfo(); err == nil {
			health["jetstream_operatives"] = gin.H{
				"messages": info.State.Msgs,
				"bytes":    info.State.Bytes,
			}
		}
	} else {
		health["jetstream"] = "disabled"
	}

	health["ws_clients"] = s.wsHub.GetClientCount()
	c.JSON(status, health)
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Users exposes the user service to the command line tools.
func (s *Server) Users() *service.UserService {
	return s.users
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.natsSub != nil {
		if uerr := s.natsSub.Unsubscribe(); uerr != nil {
			s.logger.Warn("unsubscribe operative events", zap.Error(uerr))
		}
	}
	if s.wsHub != nil {
		s.wsHub.Stop()
		s.logger.Info("websocket hub stopped")
	}
	return err
}
