package people

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
)

func TestDeriveFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", deriveFullName("Ada", "Lovelace"))
	assert.Equal(t, "Ada", deriveFullName("Ada", ""))
}

func TestDedupRoles(t *testing.T) {
	out := dedupRoles([]string{"admin", "viewer", "admin"})
	assert.Equal(t, []string{"admin", "viewer"}, out)
}

func TestLookupProfile_RejectsUnknownIdentifierType(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	_, err := svc.LookupProfile(context.Background(), IdentifierType("ssn"), "123-45-6789")

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestRequiresEmailVerification_OnlySelfServiceWithMailerAndEmail(t *testing.T) {
	svc := NewService(nil, zap.NewNop())

	email := "ada@example.com"
	assert.False(t, svc.requiresEmailVerification(CreateProfileInput{SelfService: true, Email: &email}))

	svc.SetMailer(noopMailer{})
	assert.True(t, svc.requiresEmailVerification(CreateProfileInput{SelfService: true, Email: &email}))
	assert.False(t, svc.requiresEmailVerification(CreateProfileInput{SelfService: false, Email: &email}))
	assert.False(t, svc.requiresEmailVerification(CreateProfileInput{SelfService: true}))
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, subject, body string) error { return nil }
