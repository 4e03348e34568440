package agents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/agents"
	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
)

type greetPayload struct {
	Name string `mapstructure:"name" validate:"required"`
}

type greetAdminPayload struct {
	Name string `mapstructure:"name" validate:"required"`
}

func newTestTable() agents.Table {
	return agents.Table{
		AgentName: "agentos_test",
		Actions: map[string]agents.Action{
			"greet": {
				Payload: &greetPayload{},
				Handler: func(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
					p := payload.(*greetPayload)
					return "hello, " + p.Name, nil
				},
			},
			"admin_only": {
				Payload:       nil,
				RequiredRoles: []string{"admin"},
				Handler: func(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
					return "granted", nil
				},
			},
			"greet_admin": {
				Payload:       &greetAdminPayload{},
				RequiredRoles: []string{"admin"},
				Handler: func(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
					p := payload.(*greetAdminPayload)
					return "hello, " + p.Name, nil
				},
			},
		},
	}
}

func rcWithRoles(roles ...string) registry.RequestContext {
	return registry.RequestContext{Principal: identity.NewPrincipal("user-1", roles)}
}

func TestDispatch_UnknownAction(t *testing.T) {
	table := newTestTable()
	_, err := table.Dispatch(context.Background(), "nope", nil, rcWithRoles())

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindUnsupportedAction, ae.Kind)
}

func TestDispatch_ValidPayload(t *testing.T) {
	table := newTestTable()
	result, err := table.Dispatch(context.Background(), "greet", map[string]any{"name": "Ada"}, rcWithRoles())

	require.NoError(t, err)
	assert.Equal(t, "hello, Ada", result)
}

func TestDispatch_MissingRequiredField(t *testing.T) {
	table := newTestTable()
	_, err := table.Dispatch(context.Background(), "greet", map[string]any{}, rcWithRoles())

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestDispatch_ForbidsMissingRole(t *testing.T) {
	table := newTestTable()
	_, err := table.Dispatch(context.Background(), "admin_only", nil, rcWithRoles("viewer"))

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindForbidden, ae.Kind)
}

func TestDispatch_AllowsMatchingRole(t *testing.T) {
	table := newTestTable()
	result, err := table.Dispatch(context.Background(), "admin_only", nil, rcWithRoles("admin"))

	require.NoError(t, err)
	assert.Equal(t, "granted", result)
}

// TestDispatch_ValidatesBeforeAuthorizing pins spec §4.3's fixed order: a
// request with both an invalid payload and a missing role must fail
// validation (400) rather than authorization (403).
func TestDispatch_ValidatesBeforeAuthorizing(t *testing.T) {
	table := newTestTable()
	_, err := table.Dispatch(context.Background(), "greet_admin", map[string]any{}, rcWithRoles("viewer"))

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}
