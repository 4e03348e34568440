package errorsx_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
)

func TestConstructors_StatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  *errorsx.AgentError
		want int
	}{
		{"EnvelopeInvalid", errorsx.EnvelopeInvalid("bad envelope"), http.StatusUnprocessableEntity},
		{"Unauthenticated", errorsx.Unauthenticated("no token"), http.StatusUnauthorized},
		{"Forbidden", errorsx.Forbidden("no role"), http.StatusForbidden},
		{"AgentNotFound", errorsx.AgentNotFound("agentos_x"), http.StatusNotFound},
		{"UnsupportedAction", errorsx.UnsupportedAction("do_thing"), http.StatusBadRequest},
		{"ValidationFailed", errorsx.ValidationFailed(map[string]string{"field": "required"}), http.StatusBadRequest},
		{"EntityNotFound", errorsx.EntityNotFound("product", "sku-1"), http.StatusNotFound},
		{"Conflict", errorsx.Conflict("duplicate"), http.StatusConflict},
		{"UpstreamUnavailable", errorsx.UpstreamUnavailable("oracle down"), http.StatusBadGateway},
		{"DependencyUnavailable", errorsx.DependencyUnavailable("store down"), http.StatusServiceUnavailable},
		{"Internal", errorsx.Internal("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.StatusCode)
		})
	}
}

func TestConflictWithDetails_CarriesDetails(t *testing.T) {
	err := errorsx.ConflictWithDetails("insufficient stock", map[string]any{"sku": "abc"})
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.NotNil(t, err.Details)
	assert.Contains(t, err.Error(), "insufficient stock")
}

func TestAsAgentError_PassesThroughAgentError(t *testing.T) {
	original := errorsx.Conflict("already exists")
	got := errorsx.AsAgentError(original)
	assert.Same(t, original, got)
}

func TestAsAgentError_WrapsUnknownErrorAsInternal(t *testing.T) {
	got := errorsx.AsAgentError(errors.New("some low-level failure"))
	require.NotNil(t, got)
	assert.Equal(t, errorsx.KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}

func TestAsAgentError_NilIsNil(t *testing.T) {
	assert.Nil(t, errorsx.AsAgentError(nil))
}

func TestInternalWrap_Unwraps(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := errorsx.InternalWrap(cause)
	assert.ErrorIs(t, wrapped, cause)
}
