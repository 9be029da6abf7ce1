package hub

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/roost-dev/roost/internal/dispatch"
	"github.com/roost-dev/roost/pkg/board"
)

// Server exposes the hub's websocket endpoint plus a read-only HTTP API
// for dashboards and the CLI. All coordination state flows through the
// dispatcher; the API never mutates.
type Server struct {
	hub        *Hub
	dispatcher *dispatch.Dispatcher
	store      *board.Client
	httpServer *http.Server
}

// NewServer builds the HTTP surface on the given listen address.
func NewServer(addr string, h *Hub, dispatcher *dispatch.Dispatcher, store *board.Client, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		hub:        h,
		dispatcher: dispatcher,
		store:      store,
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/ws", func(c *gin.Context) {
		h.HandleWS(c.Writer, c.Request)
	})

	api := engine.Group("/api")
	{
		api.GET("/agents", s.handleAgents)
		api.GET("/agents/:id/tasks", s.handleAgentTasks)
		api.GET("/leaderboard", s.handleLeaderboard)
		api.GET("/tasks", s.handleTasks)
		api.GET("/events", s.handleEvents)
		api.GET("/skills", s.handleSkills)
		api.GET("/skills/:name/providers", s.handleSkillProviders)
		api.GET("/requests", s.handleRequests)
		api.GET("/workspaces/:id/operations", s.handleOperations)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start serves HTTP until Shutdown is called. Blocks.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth reports daemon health. Returns 503 when Redis is not
// reachable, since the coordination core cannot persist without it.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{
		"status":      "healthy",
		"agents":      s.dispatcher.Presence().Count(),
		"connections": s.hub.ConnectionCount(),
	}

	if err := s.store.Ping(ctx); err != nil {
		status["status"] = "unhealthy"
		status["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	c.JSON(http.StatusOK, status)
}

// handleAgents lists connected agents in registration order.
func (s *Server) handleAgents(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Presence().List())
}

// handleLeaderboard returns the contribution leaderboard, truncated to the
// optional limit parameter.
func (s *Server) handleLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, s.dispatcher.Presence().ComputeLeaderboard(limit))
}

// handleTasks lists persisted tasks, optionally filtered to open ones.
func (s *Server) handleTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.Query("open") == "true" {
		open := make([]*board.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == board.TaskStatusOpen {
				open = append(open, t)
			}
		}
		tasks = open
	}

	c.JSON(http.StatusOK, tasks)
}

// handleAgentTasks lists tasks the agent touched as assignee or completer.
func (s *Server) handleAgentTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Delegation().TasksForAgent(c.Param("id")))
}

// handleSkills returns aggregate skill routing counts.
func (s *Server) handleSkills(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Skills().GetStats())
}

// handleSkillProviders lists the agents currently providing a skill.
func (s *Server) handleSkillProviders(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Skills().FindProviders(c.Param("name")))
}

// handleRequests lists pending skill requests, optionally filtered by
// skill name.
func (s *Server) handleRequests(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Skills().PendingRequests(c.Query("skill")))
}

// handleOperations returns a workspace's retained log entries with a
// version strictly greater than the since parameter, for incremental
// catch-up.
func (s *Server) handleOperations(c *gin.Context) {
	var since int64
	if raw := c.Query("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
			return
		}
		since = n
	}
	c.JSON(http.StatusOK, s.dispatcher.Oplog().OperationsSince(c.Param("id"), since))
}

// handleEvents returns the most recent coordination feed entries.
func (s *Server) handleEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.store.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
