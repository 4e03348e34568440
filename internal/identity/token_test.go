package identity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/identity"
)

func TestAuthenticator_IssueAndVerify(t *testing.T) {
	auth := identity.NewAuthenticator([]byte("test-secret"), "mcp-gateway", time.Hour)

	token, err := auth.Issue("agent-1", []string{"admin", "system"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.Subject)
	assert.ElementsMatch(t, []string{"admin", "system"}, claims.Roles)

	principal := identity.PrincipalFromClaims(claims)
	assert.True(t, principal.HasRole("admin"))
	assert.True(t, principal.HasAnyRole([]string{"viewer", "system"}))
	assert.False(t, principal.HasRole("viewer"))
}

func TestAuthenticator_VerifyRejectsWrongSecret(t *testing.T) {
	issuer := identity.NewAuthenticator([]byte("secret-a"), "mcp-gateway", time.Hour)
	verifier := identity.NewAuthenticator([]byte("secret-b"), "mcp-gateway", time.Hour)

	token, err := issuer.Issue("agent-1", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestAuthenticator_VerifyRejectsExpiredToken(t *testing.T) {
	auth := identity.NewAuthenticator([]byte("test-secret"), "mcp-gateway", time.Nanosecond)

	token, err := auth.Issue("agent-1", nil)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	_, err = auth.Verify(token)
	assert.Error(t, err)
}

func TestPrincipal_HasAnyRole_EmptyMeansNoRequirement(t *testing.T) {
	p := identity.NewPrincipal("agent-1", nil)
	assert.True(t, p.HasAnyRole(nil))
}
