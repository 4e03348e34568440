package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/metrics"
)

const headerTraceID = "X-Trace-Id"

// Server wires the Gateway onto gin routes plus the cross-cutting
// concerns from spec §4.2: rate limiting, CORS, CSRF, and the /ws,
// /health, /status surface from spec §6.
type Server struct {
	gw        *Gateway
	auth      *identity.Authenticator
	rdb       *redis.Client
	logger    *zap.Logger
	project   string
	version   string
	startedAt time.Time
	toolNames   func() []string
	dbPing      func(ctx context.Context) error
	broadcaster Broadcaster
}

// NewServer builds a Server. toolNames is called lazily on every
// GET /mcp/tools request so it always reflects the live registry.
func NewServer(gw *Gateway, auth *identity.Authenticator, rdb *redis.Client, logger *zap.Logger, project, version string, toolNames func() []string) *Server {
	return &Server{
		gw:        gw,
		auth:      auth,
		rdb:       rdb,
		logger:    logger,
		project:   project,
		version:   version,
		startedAt: time.Now().UTC(),
		toolNames: toolNames,
	}
}

// SetDBPing configures the store health check used by GET /status.
func (s *Server) SetDBPing(ping func(ctx context.Context) error) {
	s.dbPing = ping
}

// Mount registers every route from spec §6 under /api/v1 onto router
// (plus /metrics outside the group). The group runs CORS, rate limiting,
// the X-Trace-ID response header and metrics in that order; RequireAuth is
// then applied per route, and CSRFProtect only on /mcp/execute.
func (s *Server) Mount(router gin.IRouter, allowedOrigins []string, rateLimitPerMinute int) {
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")

	v1.Use(CORS(allowedOrigins))
	v1.Use(RateLimiter(rateLimitPerMinute))
	v1.Use(traceIDResponseHeader())
	v1.Use(metrics.Middleware())

	v1.GET("/health", s.handleHealth)
	v1.GET("/status", s.handleStatus)

	v1.POST("/mcp/exec", identity.RequireAuth(s.auth), s.handleExec)
	v1.POST("/mcp/execute", identity.RequireAuth(s.auth), CSRFProtect(), s.handleExecute)
	v1.GET("/mcp/tools", identity.RequireAuth(s.auth), s.handleTools)

	v1.GET("/ws", identity.RequireAuth(s.auth), s.handleWebSocket)
}

// traceIDResponseHeader guarantees every response — success or error —
// carries X-Trace-ID, per spec §8's trace-consistency invariant.
func traceIDResponseHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerTraceID)
		if id == "" {
			id = identity.TraceFromGin(c).TraceID
			// RequireAuth reads this request header, so the trace it builds
			// carries the same id as the response header.
			c.Request.Header.Set(headerTraceID, id)
		}
		c.Header(headerTraceID, id)
		c.Next()
	}
}

// handleExec implements POST /mcp/exec: the canonical envelope-shaped
// surface from spec §6.
func (s *Server) handleExec(c *gin.Context) {
	var req MCPRequest
	if err := decodeStrict(c.Request.Body, &req); err != nil {
		s.renderError(c, errorsx.EnvelopeInvalid(err.Error()))
		return
	}
	if req.AgentName == "" || req.Payload.Action == "" {
		s.renderError(c, errorsx.EnvelopeInvalid("agent_name and payload.action are required"))
		return
	}
	s.dispatch(c, req.AgentName, req.Payload.Action, req.Payload.Data, req.Context)
}

// handleExecute implements POST /mcp/execute: the alternate name-based
// envelope {tool_name, parameters}, carried for CSRF-protected browser
// callers (spec §9 Open Question (b)).
func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := decodeStrict(c.Request.Body, &req); err != nil {
		s.renderError(c, errorsx.EnvelopeInvalid(err.Error()))
		return
	}
	if req.ToolName == "" {
		s.renderError(c, errorsx.EnvelopeInvalid("tool_name is required"))
		return
	}
	// tool_name is "<agent>.<action>"; split on the last '.'.
	agentName, action, ok := splitToolName(req.ToolName)
	if !ok {
		s.renderError(c, errorsx.EnvelopeInvalid("tool_name must be of the form \"<agent>.<action>\""))
		return
	}
	s.dispatch(c, agentName, action, req.Parameters, nil)
}

func (s *Server) dispatch(c *gin.Context, agentName, action string, data map[string]any, callerContext map[string]any) {
	principal, err := identity.PrincipalFromGin(c)
	if err != nil {
		s.renderError(c, errorsx.Unauthenticated("no authenticated principal"))
		return
	}
	trace := identity.TraceFromGin(c)

	ctx, cancel := traceDeadlineContext(c.Request.Context(), trace)
	defer cancel()

	resp, status := s.gw.Invoke(ctx, principal, trace, agentName, action, data, callerContext)
	c.JSON(status, resp)
}

func (s *Server) renderError(c *gin.Context, ae *errorsx.AgentError) {
	c.JSON(ae.StatusCode, errorResponse("", "", ae.Message, ae.Details))
}

// handleTools implements GET /mcp/tools.
func (s *Server) handleTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.toolNames()})
}

// handleHealth implements the public GET /health liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStatus implements the public GET /status readiness probe.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"project":                s.project,
		"version":                s.version,
		"db_status":              s.dbStatus(c),
		"redis_status":           s.redisStatus(c),
		"registered_tools_count": len(s.toolNames()),
		"uptime_seconds":         int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) dbStatus(c *gin.Context) string {
	// db connectivity is surfaced by whoever wires Server (cmd/gateway),
	// via a closure set through SetDBPing; default to "unknown" when unset.
	if s.dbPing == nil {
		return "unknown"
	}
	if err := s.dbPing(c.Request.Context()); err != nil {
		return "down"
	}
	return "up"
}

func (s *Server) redisStatus(c *gin.Context) string {
	if s.rdb == nil {
		return "unconfigured"
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return "down"
	}
	return "up"
}

// decodeStrict JSON-decodes body into v, rejecting unknown top-level
// fields per spec §4.2 step 3.
func decodeStrict(body io.Reader, v any) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func splitToolName(toolName string) (agent, action string, ok bool) {
	for i := len(toolName) - 1; i >= 0; i-- {
		if toolName[i] == '.' {
			return toolName[:i], toolName[i+1:], true
		}
	}
	return "", "", false
}
