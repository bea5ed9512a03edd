package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"volume-tracker/src/dataday"
	"volume-tracker/src/export"
	"volume-tracker/src/interfaces"
	"volume-tracker/src/live"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"
	"volume-tracker/src/weights"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Server
//
// The HTTP surface has three parts: the hub (/pub in, /ws out), a read API
// over stored data, and the admin endpoints the operational scripts call.
// -----------------------------------------------------------------------------

type Server struct {
	Config   *models.MConfig
	Store    interfaces.IStore
	Days     *dataday.Manager
	Holidays *market.HolidayChecker
	Logger   *logger.Logger

	engine *gin.Engine
	hub    *Hub
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, store interfaces.IStore, days *dataday.Manager,
	holidays *market.HolidayChecker, log *logger.Logger) *Server {

	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:   cfg,
		Store:    store,
		Days:     days,
		Holidays: holidays,
		Logger:   log.Named("server"),
		engine:   gin.Default(),
		hub:      NewHub(log),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Hub
	s.engine.POST("/pub", s.postPublish)
	s.engine.GET("/ws", s.handleWebSocket)

	// Read API
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/symbols", s.getSymbols)
	s.engine.GET("/api/data/:symbol/:day", s.getDayCSV)
	s.engine.GET("/api/correlations/:day", s.getCorrelations)
	s.engine.GET("/api/slopes/:group/:day", s.getSlopeTable)
	s.engine.GET("/api/holidays", s.getHolidays)

	// Admin
	admin := s.engine.Group("/api/admin")
	admin.POST("/queue", s.postQueue)
	admin.POST("/pause", s.postPause)
	admin.POST("/resume", s.postResume)
	admin.PUT("/weights/:index", s.putWeights)
	admin.DELETE("/incoming", s.deleteIncoming)
	admin.POST("/import", s.postImport)
	admin.POST("/symbols", s.postSymbol)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.hub.Run()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------
// Hub Handlers
// -----------------------------------------------------------------------------

func (s *Server) postPublish(c *gin.Context) {
	channel := c.DefaultQuery("channel", "all")

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.hub.Publish(channel, payload)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	channel := c.DefaultQuery("channel", "all")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:     s.hub,
		conn:    conn,
		channel: channel,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan []byte, 256),
	}

	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Read API Handlers
// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.hub.ClientCount(),
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getSymbols(c *gin.Context) {
	stocks, err := s.Store.ActiveSymbols(models.SymbolTypeStock)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	indices, err := s.Store.ActiveSymbols(models.SymbolTypeIndex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stocks": stocks, "indices": indices})
}

// -----------------------------------------------------------------------------

func parseDayParam(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSuffix(c.Param("day"), ".csv")
	day, err := time.ParseInLocation("2006-01-02", raw, market.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

// -----------------------------------------------------------------------------

func (s *Server) getDayCSV(c *gin.Context) {
	day, ok := parseDayParam(c)
	if !ok {
		return
	}
	symbol := c.Param("symbol")

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.csv"`, symbol, day.Format("2006-01-02")))

	if err := export.WriteDay(c.Writer, s.Store, symbol, day); err != nil {
		s.Logger.Error("exporting %s %s: %v", symbol, day.Format("2006-01-02"), err)
	}
}

// -----------------------------------------------------------------------------

func (s *Server) getCorrelations(c *gin.Context) {
	day, ok := parseDayParam(c)
	if !ok {
		return
	}
	dataType := c.DefaultQuery("data_type", models.DataTypeVolume)

	corrs, err := s.Store.CorrelationsForDay(day, dataType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, corrs)
}

// -----------------------------------------------------------------------------

func (s *Server) getSlopeTable(c *gin.Context) {
	day, ok := parseDayParam(c)
	if !ok {
		return
	}
	slug := c.Param("group")

	groups, err := s.Store.GroupsByType(models.GroupTypeSlopeTable)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var group *models.MGroup
	for i := range groups {
		if groups[i].Slug == slug {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no slope table group %q", slug)})
		return
	}

	// Defaults to the close; ?minute=HH:MM picks an intraday point
	_, minute := market.FirstLastMinute(day)
	if raw := c.Query("minute"); raw != "" {
		parsed, err := time.ParseInLocation("15:04", raw, market.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minute must be HH:MM"})
			return
		}
		minute = time.Date(day.Year(), day.Month(), day.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, market.Location())
	}

	table, err := live.SlopeTable(s.Store, group.Symbols, minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, table)
}

// -----------------------------------------------------------------------------

func (s *Server) getHolidays(c *gin.Context) {
	upcoming := s.Holidays.UpcomingHolidays(time.Now(), 365)
	c.JSON(http.StatusOK, upcoming)
}

// -----------------------------------------------------------------------------
// Admin Handlers
// -----------------------------------------------------------------------------

func (s *Server) postQueue(c *gin.Context) {
	var body struct {
		Days int `json:"days"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	queued, err := s.Days.QueueActiveSymbols(body.Days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queued": queued})
}

// -----------------------------------------------------------------------------

func (s *Server) setPaused(c *gin.Context, paused bool) {
	if err := s.Store.SetSettingBool(live.SettingLivePaused, paused); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": paused})
}

func (s *Server) postPause(c *gin.Context)  { s.setPaused(c, true) }
func (s *Server) postResume(c *gin.Context) { s.setPaused(c, false) }

// -----------------------------------------------------------------------------

func (s *Server) putWeights(c *gin.Context) {
	index := c.Param("index")

	var body map[string]float64
	if err := c.ShouldBindJSON(&body); err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must map symbols to weights"})
		return
	}

	diff, err := weights.Apply(s.Store, s.Logger, index, body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"added":   diff.Added,
		"removed": diff.Removed,
		"changed": diff.Changed,
	})
}

// -----------------------------------------------------------------------------

func (s *Server) deleteIncoming(c *gin.Context) {
	if err := s.Store.ClearIncomingPrices(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

func (s *Server) postImport(c *gin.Context) {
	imported, err := export.ImportDay(c.Request.Body, s.Store)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"minutes": imported})
}

// -----------------------------------------------------------------------------

func (s *Server) postSymbol(c *gin.Context) {
	var symbol models.MSymbol
	if err := c.ShouldBindJSON(&symbol); err != nil || symbol.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if symbol.Type == "" {
		symbol.Type = models.SymbolTypeStock
	}

	if err := s.Store.CreateSymbol(symbol); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, symbol)
}
