// Package api exposes the dashboard HTTP endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PatelGH0512/stocklabs/internal/commentary"
	"github.com/PatelGH0512/stocklabs/internal/config"
	"github.com/PatelGH0512/stocklabs/internal/events"
	"github.com/PatelGH0512/stocklabs/internal/market"
	"github.com/PatelGH0512/stocklabs/internal/models"
	"github.com/PatelGH0512/stocklabs/internal/store"
)

// MarketData is the server's view of the market data client.
type MarketData interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]float64
	GetQuoteDetails(ctx context.Context, symbols []string) map[string]models.Quote
	GetNews(ctx context.Context, symbols []string) ([]models.NewsArticle, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	GetMarketStatus(ctx context.Context, exchange string) (*market.MarketStatus, error)
	GetPerformance(ctx context.Context, symbols []string, period string) []models.PerformanceItem
}

// Server wires the HTTP endpoints around the store, market client, and bus.
type Server struct {
	Router    *gin.Engine
	store     store.DataStore
	market    MarketData
	bus       *events.Bus
	generator *commentary.Generator
	logger    zerolog.Logger
	http      *http.Server
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg config.ServerConfig, st store.DataStore, md MarketData, bus *events.Bus, gen *commentary.Generator, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	s := &Server{
		Router:    router,
		store:     st,
		market:    md,
		bus:       bus,
		generator: gen,
		logger:    logger,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/healthz", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/quotes", s.getQuotes)
		api.GET("/quotes/details", s.getQuoteDetails)
		api.GET("/news", s.getNews)
		api.GET("/stocks/search", s.searchStocks)
		api.GET("/market-status", s.getMarketStatus)
		api.GET("/performance", s.getPerformance)
		api.POST("/commentary", s.postCommentary)

		authed := api.Group("", userIdentity())
		{
			authed.GET("/alerts", s.listAlerts)
			authed.POST("/alerts", s.createAlert)
			authed.DELETE("/alerts/:id", s.deleteAlert)

			authed.GET("/holdings", s.listHoldings)
			authed.POST("/holdings", s.createHolding)
			authed.PUT("/holdings/:id", s.updateHolding)
			authed.DELETE("/holdings/:id", s.deleteHolding)

			authed.GET("/watchlist", s.getWatchlist)
			authed.POST("/watchlist", s.addWatchlistItem)
			authed.DELETE("/watchlist/:symbol", s.removeWatchlistItem)
		}
	}
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.http.Shutdown(context.Background())
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// userIdentity resolves the caller from the X-User-ID header. Session
// authentication is terminated upstream; an absent header is rejected.
func userIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString("userID")
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
