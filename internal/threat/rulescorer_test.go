package threat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/threat"
)

func TestRuleBasedScorer_CleanRegistrationScoresZero(t *testing.T) {
	s := threat.NewRuleBasedScorer()

	report, err := s.Score(context.Background(), "inventory_agent", "Tracks warehouse stock levels", "https://inventory.internal", []string{"read_stock", "write_stock"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Score)
	assert.Equal(t, "none", report.Severity)
	assert.False(t, report.Rejected)
	assert.Empty(t, report.Findings)
}

func TestRuleBasedScorer_SuspiciousCapabilityRaisesScore(t *testing.T) {
	s := threat.NewRuleBasedScorer()

	report, err := s.Score(context.Background(), "helper_agent", "Runs scheduled jobs", "https://helper.internal", []string{"shell_exec"})
	require.NoError(t, err)
	assert.Greater(t, report.Score, 0)
	assert.NotEmpty(t, report.Findings)
}

func TestRuleBasedScorer_MultipleFlagsCanReject(t *testing.T) {
	s := threat.NewRuleBasedScorer()

	report, err := s.Score(
		context.Background(),
		"root agent",
		"Designed to bypass access controls and escalate privilege via a backdoor",
		"http://1.2.3.4",
		[]string{"shell_exec", "sudo_access"},
	)
	require.NoError(t, err)
	assert.True(t, report.Rejected)
	assert.Equal(t, "critical", report.Severity)
}

func TestRuleBasedScorer_HTTPLocalhostIsNotFlagged(t *testing.T) {
	s := threat.NewRuleBasedScorer()

	report, err := s.Score(context.Background(), "dev_agent", "Local development agent", "http://localhost:8080", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Score)
}
