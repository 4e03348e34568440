package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
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

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(zap.NewNop())
}

func TestRegister_RejectsEmptyName(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Register(&stubAgent{name: ""})
	assert.Error(t, err)
}

func TestRegister_RejectsReservedName(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Register(&stubAgent{name: "base"})
	assert.Error(t, err)
}

func TestRegisterAll_PopulatesNames(t *testing.T) {
	r := newTestRegistry(t)
	err := r.RegisterAll(registry.SharedServices{},
		func(registry.SharedServices) registry.Agent { return &stubAgent{name: "agentos_a"} },
		func(registry.SharedServices) registry.Agent { return &stubAgent{name: "agentos_b"} },
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"agentos_a", "agentos_b"}, r.Names())
	assert.Equal(t, 2, r.Count())
}

func TestExecute_UnknownAgent(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Execute(context.Background(), "agentos_missing", "noop", nil, registry.RequestContext{})

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindAgentNotFound, ae.Kind)
}

func TestExecute_PropagatesAgentError(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(&stubAgent{
		name: "agentos_a",
		fn: func(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
			return nil, errorsx.Conflict("already exists")
		},
	}))

	_, err := r.Execute(context.Background(), "agentos_a", "do", nil, registry.RequestContext{})
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindConflict, ae.Kind)
}

func TestExecute_WrapsUnknownErrorAsInternal(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(&stubAgent{
		name: "agentos_a",
		fn: func(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
			return nil, errors.New("unexpected panic-adjacent failure")
		},
	}))

	_, err := r.Execute(context.Background(), "agentos_a", "do", nil, registry.RequestContext{})
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindInternal, ae.Kind)
}

func TestExecute_SuccessReturnsResult(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(&stubAgent{
		name: "agentos_a",
		fn: func(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
			return "ok", nil
		},
	}))

	result, err := r.Execute(context.Background(), "agentos_a", "do", nil, registry.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
