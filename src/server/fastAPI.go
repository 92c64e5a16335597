package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"p2p-observer/src/filter"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Control interfaces.IDashboardControl
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache. clientCount mirrors len(clients): the clients map
	// belongs to the hub goroutine alone, handlers read the count here.
	latestState *models.MLatestData
	clientCount int
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, logger *logger.Logger) *FastAPIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// AttachControl wires the dashboard in after construction.
func (s *FastAPIServer) AttachControl(control interfaces.IDashboardControl) {
	s.Control = control
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/state", s.getState)
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/history", s.getHistory)
	s.engine.GET("/api/reference/codes", s.getReferenceCodes)
	s.engine.POST("/api/params", s.postParams)
	s.engine.POST("/api/reference/:panel/pair", s.postPair)
	s.engine.POST("/api/reference/:panel/swap", s.postSwap)

	ex := s.engine.Group("/api/:exchange")
	ex.GET("/methods", s.getMethods)
	ex.POST("/filter/open", s.postFilterOpen)
	ex.POST("/filter/toggle", s.postFilterToggle)
	ex.POST("/filter/search", s.postFilterSearch)
	ex.POST("/filter/confirm", s.postFilterConfirm)
	ex.POST("/filter/reset", s.postFilterReset)
	ex.POST("/filter/close", s.postFilterClose)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getState(c *gin.Context) {
	state := s.Control.Snapshot()
	state.Type = "INITIAL"
	c.JSON(200, state)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.clientCount
	var timestamp int64
	if s.latestState != nil {
		timestamp = s.latestState.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	samples, err := s.Control.History(c.Query("panel"), c.Query("exchange"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"samples": samples})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getReferenceCodes(c *gin.Context) {
	codes, err := s.Control.ReferenceCodes(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"codes": codes})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postParams(c *gin.Context) {
	var params models.MQuoteParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := s.Control.SetParams(params); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postPair(c *gin.Context) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := s.Control.ApplyPair(c.Param("panel"), body.From, body.To); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

func (s *FastAPIServer) postSwap(c *gin.Context) {
	if err := s.Control.SwapPair(c.Param("panel")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMethods(c *gin.Context) {
	items, err := s.Control.VisibleMethods(c.Param("exchange"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"methods": items})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postFilterOpen(c *gin.Context) {
	if err := s.Control.OpenFilter(c.Request.Context(), c.Param("exchange")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

func (s *FastAPIServer) postFilterToggle(c *gin.Context) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ID == "" {
		c.JSON(400, gin.H{"error": "payment method id is required"})
		return
	}
	count, err := s.Control.ToggleFilter(c.Param("exchange"), body.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"staged_count": count})
}

func (s *FastAPIServer) postFilterSearch(c *gin.Context) {
	var body struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := s.Control.SearchFilter(c.Param("exchange"), body.Query); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

func (s *FastAPIServer) postFilterConfirm(c *gin.Context) {
	if err := s.Control.ConfirmFilter(c.Param("exchange")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

func (s *FastAPIServer) postFilterReset(c *gin.Context) {
	if err := s.Control.ResetFilter(c.Param("exchange")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

func (s *FastAPIServer) postFilterClose(c *gin.Context) {
	if err := s.Control.CloseFilter(c.Param("exchange")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"ok": true})
}

// -----------------------------------------------------------------------------

// fail maps a control error onto an HTTP status.
func (s *FastAPIServer) fail(c *gin.Context, err error) {
	status := 500
	switch {
	case errors.Is(err, filter.ErrUnknownExchange):
		status = 404
	case errors.Is(err, filter.ErrNotOpen), errors.Is(err, filter.ErrAlreadyOpen):
		status = 409
	case isValidation(err):
		status = 400
	case isUpstream(err):
		status = 502
	}
	if status == 500 {
		s.Logger.Error("Request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
