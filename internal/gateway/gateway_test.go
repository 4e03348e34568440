package gateway_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/gateway"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
)

type stubAgent struct {
	name string
	fn   func(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error)
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) Execute(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
	return a.fn(ctx, action, data, rc)
}

func newInvokeTestGateway(t *testing.T, agent *stubAgent) *gateway.Gateway {
	t.Helper()
	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Register(agent))
	return gateway.New(reg, zap.NewNop())
}

func TestInvoke_SuccessRendersAuthoritativeContext(t *testing.T) {
	var capturedRC registry.RequestContext
	agent := &stubAgent{
		name: "agentos_sales",
		fn: func(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
			capturedRC = rc
			return map[string]any{"ok": true}, nil
		},
	}
	gw := newInvokeTestGateway(t, agent)

	principal := identity.NewPrincipal("agent-1", []string{"admin"})
	trace := identity.TraceContext{TraceID: "trace-xyz"}

	// A spoofed "principal" field in the caller context must never reach
	// the agent — the authoritative Principal always comes from identity.
	callerContext := map[string]any{"session_id": "sess-1", "principal": "attacker"}

	resp, status := gw.Invoke(context.Background(), principal, trace, "agentos_sales", "create_sale", nil, callerContext)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "agent-1", capturedRC.Principal.ID)
	assert.Equal(t, "sess-1", capturedRC.SessionID)
	assert.Equal(t, "trace-xyz", capturedRC.Trace.TraceID)
}

func TestInvoke_ErrorRendersTaxonomyStatus(t *testing.T) {
	agent := &stubAgent{
		name: "agentos_sales",
		fn: func(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
			return nil, errorsx.ConflictWithDetails("insufficient stock", map[string]any{"sku": "abc"})
		},
	}
	gw := newInvokeTestGateway(t, agent)

	resp, status := gw.Invoke(context.Background(), identity.Principal{}, identity.TraceContext{}, "agentos_sales", "create_sale", nil, nil)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "insufficient stock", resp.Error)
	assert.NotNil(t, resp.ErrorDetails)
}

func TestInvoke_UnknownAgentIs404(t *testing.T) {
	gw := newInvokeTestGateway(t, &stubAgent{name: "agentos_other", fn: func(context.Context, string, map[string]any, registry.RequestContext) (any, error) {
		return nil, nil
	}})

	_, status := gw.Invoke(context.Background(), identity.Principal{}, identity.TraceContext{}, "agentos_missing", "do", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
