// Package api exposes the exchange over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridexchange/gridex/internal/config"
	"github.com/gridexchange/gridex/internal/ledger"
	"github.com/gridexchange/gridex/x/exchange/keeper"
)

// Server represents the HTTP API server.
type Server struct {
	config config.APIConfig
	keeper *keeper.Keeper
	bank   *ledger.Ledger
	log    log.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new API server around the exchange keeper.
func NewServer(cfg config.APIConfig, metrics config.MetricsConfig, k *keeper.Keeper, bank *ledger.Ledger, logger log.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		keeper: k,
		bank:   bank,
		log:    logger.With("component", "api"),
		router: router,
	}

	s.setupMiddleware()
	s.setupRoutes(metrics)
	return s
}

func (s *Server) setupMiddleware() {
	// Request ID middleware
	s.router.Use(func(c *gin.Context) {
		reqID := c.Request.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
	})

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		allowed := len(s.config.CORSOrigins) == 0
		for _, allowedOrigin := range s.config.CORSOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}
		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Logging middleware
	s.router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.log.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		)
	})

	// Timeout middleware
	if s.config.Timeout > 0 {
		s.router.Use(func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.Timeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func (s *Server) setupRoutes(metrics config.MetricsConfig) {
	s.router.GET("/healthz", s.handleHealth)
	if metrics.Enabled {
		s.router.GET(metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		books := v1.Group("/books")
		{
			books.POST("", s.handleRegisterBook)
			books.GET("/:base/:quote", s.handleGetBook)
			books.GET("/:base/:quote/levels", s.handleGetBookLevels)
		}

		pools := v1.Group("/pools")
		{
			pools.POST("", s.handleCreatePool)
			pools.GET("/:base/:quote", s.handleGetPool)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", s.handlePlaceLimitOrder)
			orders.POST("/market", s.handlePlaceMarketOrder)
			orders.GET("", s.handleGetOrdersByMaker)
			orders.DELETE("/:base/:quote/:id", s.handleCancelOrder)
		}

		v1.GET("/price", s.handleGetMarketPrice)
		v1.POST("/quote", s.handleQuote)
		v1.POST("/swap", s.handleSwap)

		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:address/balances", s.handleGetBalances)
			accounts.POST("/:address/mint", s.handleMint)
		}
	}
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.router,
	}
	s.log.Info("API server starting", "addr", s.config.Addr())
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
