package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-sync/src/analysis/core"
	"market-sync/src/config"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"

	"github.com/gin-gonic/gin"
)

const navigateTimeout = 2 * time.Second

// -----------------------------------------------------------------------------
// ViewServer
// -----------------------------------------------------------------------------

// ViewServer projects the session's store to browsers: REST for reads and
// view declarations, a WebSocket hub for live updates.
type ViewServer struct {
	Config *config.Config
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	session interfaces.ISyncSession

	// WebSocket clients, owned by the hub loop
	clients    map[*Client]struct{}
	broadcast  chan *models.MViewUpdate
	register   chan *Client
	unregister chan *Client
	reply      chan clientReply
	quit       chan struct{}
	stopOnce   sync.Once

	connections  atomic.Int64
	latestUpdate atomic.Int64
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewViewServer(cfg *config.Config, logger *logger.Logger) *ViewServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &ViewServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Bursts of ticks are absorbed here so the session loop never blocks
		broadcast:  make(chan *models.MViewUpdate, 1024),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		reply:      make(chan clientReply),
		quit:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// CORS for local dashboards
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes()
	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}
	return s
}

// SetSession attaches the session whose state is served.
func (s *ViewServer) SetSession(session interfaces.ISyncSession) {
	s.session = session
}

// Handler exposes the router (tests, embedding).
func (s *ViewServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *ViewServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.GET("/prices", s.getPrices)
	api.GET("/series/:symbol", s.getSeries)
	api.GET("/view", s.getView)
	api.POST("/view", s.postView)
	api.POST("/theme/toggle", s.toggleTheme)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop is called.
func (s *ViewServer) Start() error {
	s.Logger.Info("Starting view server on %s", s.http.Addr)

	go s.handleWebsockets()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *ViewServer) Stop() error {
	s.stopOnce.Do(func() { close(s.quit) })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *ViewServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_update": s.latestUpdate.Load(),
	})
}

// -----------------------------------------------------------------------------

func (s *ViewServer) getMetrics(c *gin.Context) {
	if !s.requireSession(c) {
		return
	}
	c.JSON(http.StatusOK, s.session.Metrics())
}

// -----------------------------------------------------------------------------

func (s *ViewServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"intervals":        s.Config.View.Intervals,
		"default_symbols":  s.Config.View.DefaultSymbols,
		"default_symbol":   s.Config.View.DefaultSymbol,
		"default_interval": s.Config.View.DefaultInterval,
		"series_capacity":  s.Config.Backend.SeriesCapacity,
	})
}

// -----------------------------------------------------------------------------

// getPrices serves the price table: ?search=btc&filter=all|major|usd&sort=symbol|price&order=asc|desc
func (s *ViewServer) getPrices(c *gin.Context) {
	if !s.requireSession(c) {
		return
	}

	filter := c.DefaultQuery("filter", FilterAll)
	if !validFilter(filter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown filter %q", filter)})
		return
	}

	rows := toPriceRows(s.session.Prices())
	rows = filterPrices(rows, c.Query("search"), filter)
	sortPrices(rows, c.DefaultQuery("sort", "symbol"), c.DefaultQuery("order", "asc"))

	c.JSON(http.StatusOK, gin.H{"prices": rows, "count": len(rows)})
}

// -----------------------------------------------------------------------------

func (s *ViewServer) getSeries(c *gin.Context) {
	if !s.requireSession(c) {
		return
	}

	symbol := models.NormalizeSymbol(c.Param("symbol"))
	interval := c.Query("interval")
	if interval == "" {
		interval = s.session.CurrentView().Interval
	}

	points, ok := s.session.Series(symbol, interval)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no active chart for %s/%s", symbol, interval)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"interval": interval,
		"points":   points,
		"summary":  core.ComputeOHLCV(points),
	})
}

// -----------------------------------------------------------------------------

func (s *ViewServer) getView(c *gin.Context) {
	if !s.requireSession(c) {
		return
	}
	c.JSON(http.StatusOK, s.session.CurrentView())
}

// -----------------------------------------------------------------------------

func (s *ViewServer) postView(c *gin.Context) {
	if !s.requireSession(c) {
		return
	}

	var cmd models.MViewCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := s.navigate(c.Request.Context(), cmd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// -----------------------------------------------------------------------------

func (s *ViewServer) toggleTheme(c *gin.Context) {
	if !s.requireSession(c) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), navigateTimeout)
	defer cancel()
	view, err := s.session.Update(ctx, func(view models.MViewState) models.MViewState {
		if view.Theme == "dark" {
			view.Theme = "light"
		} else {
			view.Theme = "dark"
		}
		return view
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": view.Theme})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *ViewServer) requireSession(c *gin.Context) bool {
	if s.session == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session not started"})
		return false
	}
	return true
}

// navigate turns a browser command into a view change. Page and table
// symbols are kept when the command omits them; the chart follows the command
// (no symbol means no chart). The theme is never changed here. The change is
// merged inside the session so commands sent back to back compose.
func (s *ViewServer) navigate(ctx context.Context, cmd models.MViewCommand) (models.MViewState, error) {
	symbol := models.NormalizeSymbol(cmd.Symbol)
	interval := cmd.Interval
	if symbol != "" && interval == "" {
		interval = s.Config.View.DefaultInterval
	}
	if interval != "" && !s.Config.SupportsInterval(interval) {
		return models.MViewState{}, fmt.Errorf("unsupported interval %q", interval)
	}

	var symbols []string
	if cmd.Symbols != nil {
		symbols = normalizeSymbols(cmd.Symbols)
	}

	ctx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()
	return s.session.Update(ctx, func(view models.MViewState) models.MViewState {
		if cmd.Page != "" {
			view.Page = cmd.Page
		}
		if symbols != nil {
			view.Symbols = symbols
		}
		view.Symbol = symbol
		view.Interval = interval
		return view
	})
}

// -----------------------------------------------------------------------------

// snapshotFor builds the updates a freshly connected browser needs to render
// the current view.
func (s *ViewServer) snapshotFor() []*models.MViewUpdate {
	if s.session == nil {
		return nil
	}
	now := time.Now().UnixMilli()

	var out []*models.MViewUpdate
	for _, row := range toPriceRows(s.session.Prices()) {
		price := row.Price
		out = append(out, &models.MViewUpdate{
			Type:      models.UpdateTick,
			Symbol:    row.Symbol,
			Price:     &price,
			Display:   row.Display,
			Direction: "unchanged",
			Timestamp: now,
		})
	}

	view := s.session.CurrentView()
	if points, ok := s.session.Series(view.Symbol, view.Interval); ok {
		out = append(out, &models.MViewUpdate{
			Type:      models.UpdateSnapshot,
			Symbol:    models.NormalizeSymbol(view.Symbol),
			Interval:  view.Interval,
			Points:    points,
			Timestamp: now,
		})
	}
	return out
}
