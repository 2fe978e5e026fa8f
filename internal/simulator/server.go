package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

const shutdownTimeout = 5 * time.Second

var releaseMode sync.Once

// Server is the simulated backend.
type Server struct {
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
	envVersion supply.EnvVersion
	keys       *keyRegistry
	otps       *otpBook
	quotas     *quotaLedger
	tokens     tokenIssuer
	metrics    *metrics
	router     *gin.Engine
}

// NewServer builds a Server from a validated configuration and seed.
func NewServer(cfg Config, seed Seed, logger *zap.Logger, now func() time.Time) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	envVersion := seed.Env
	if envVersion.Policies == nil {
		envVersion.Policies = []supply.Policy{}
	}
	server := &Server{
		cfg:        cfg,
		logger:     logger,
		now:        now,
		envVersion: envVersion,
		keys:       newKeyRegistry(seed.Keys),
		otps:       newOTPBook(cfg),
		quotas:     newQuotaLedger(seed),
		tokens:     tokenIssuer{key: []byte(cfg.SigningKey), issuer: cfg.Issuer, ttl: cfg.SessionTTL},
		metrics:    newMetrics(),
	}
	server.router = server.setupRouter()
	return server, nil
}

// Handler returns the HTTP handler of the simulator.
func (server *Server) Handler() http.Handler {
	return server.router
}

// CreateKey registers a new login key and returns it.
func (server *Server) CreateKey() string {
	return server.keys.create()
}

// Run serves until ctx is cancelled.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.cfg.ListenAddr,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("simulator listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (server *Server) setupRouter() *gin.Engine {
	releaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: server.cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "Origin", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(server.metrics.handler()))
	router.GET("/version", server.handleVersion)

	authRoutes := router.Group("/auth")
	authRoutes.POST("/otp", server.handleRequestOTP)
	authRoutes.POST("/otp/validate", server.handleValidateOTP)
	authRoutes.POST("/session", server.handleCreateSession)

	secured := router.Group("/")
	secured.Use(server.requireSession)
	secured.GET("/quota/:id", server.handleQuota)
	secured.GET("/quota/:id/summary", server.handleQuotaSummary)
	secured.POST("/transactions/:id", server.handleTransactions)

	admin := router.Group("/admin")
	admin.POST("/keys", server.handleCreateKey)
	admin.GET("/otp", server.handleOutstandingOTP)

	return router
}
