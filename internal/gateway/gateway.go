package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/metrics"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
)

// Gateway is the MCP Gateway: the fixed six-step pipeline from spec §4.2,
// independent of the HTTP transport that invokes it (routes.go wires it
// to gin; the same Invoke method backs both /mcp/exec and /mcp/execute).
type Gateway struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// New builds a Gateway over an already-populated Registry.
func New(reg *registry.Registry, logger *zap.Logger) *Gateway {
	return &Gateway{registry: reg, logger: logger}
}

// Invoke runs spec §4.2 steps 4–6: build the authoritative RequestContext
// from the caller's Principal/TraceContext — the only field taken from the
// caller-supplied context is session_id; identity, roles and trace always
// come from the authenticated principal and trace arguments — then
// calls the registry and renders either a success or error MCPResponse.
// The returned int is the HTTP status the response should be rendered
// with (200 on success, the AgentError's taxonomy status on failure).
//
// Steps 1–3 (trace minting, authentication, envelope schema validation)
// happen in the HTTP layer (middleware + route handler) before Invoke is
// called, since they are transport-specific.
func (g *Gateway) Invoke(ctx context.Context, principal identity.Principal, trace identity.TraceContext, agentName string, action string, data map[string]any, callerContext map[string]any) (MCPResponse, int) {
	rc := registry.RequestContext{
		Principal: principal,
		Trace:     trace,
	}
	if sid, ok := callerContext["session_id"].(string); ok {
		rc.SessionID = sid
	}

	result, err := g.registry.Execute(ctx, agentName, action, data, rc)
	if err != nil {
		ae := errorsx.AsAgentError(err)
		metrics.RecordAgentExecution(agentName, action, string(ae.Kind))
		return errorResponse(agentName, action, ae.Message, ae.Details), ae.StatusCode
	}
	metrics.RecordAgentExecution(agentName, action, "ok")
	return successResponse(agentName, action, result), 200
}

// traceDeadlineContext binds ctx to trace's optional deadline, honoring
// spec §5's cancellation rule: suspension points must respect it promptly.
func traceDeadlineContext(ctx context.Context, trace identity.TraceContext) (context.Context, context.CancelFunc) {
	return trace.WithDeadline(ctx)
}
