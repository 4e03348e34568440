package email_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/email"
)

func TestVerificationEmail(t *testing.T) {
	subject, body := email.VerificationEmail("Ada")
	assert.Equal(t, "Verify your account", subject)
	assert.Contains(t, body, "Ada")
}

func TestNoopSender_Send(t *testing.T) {
	sender := email.NewNoopSender(zap.NewNop())
	err := sender.Send(context.Background(), "ada@example.com", "subject", "body")
	require.NoError(t, err)
}
