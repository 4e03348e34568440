package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStrict_RejectsUnknownFields(t *testing.T) {
	var req MCPRequest
	err := decodeStrict(strings.NewReader(`{"agent_name":"agentos_sales","payload":{"action":"create_sale"},"unexpected_field":true}`), &req)
	require.Error(t, err)
}

func TestDecodeStrict_AcceptsKnownShape(t *testing.T) {
	var req MCPRequest
	err := decodeStrict(strings.NewReader(`{"agent_name":"agentos_sales","payload":{"action":"create_sale","data":{"sku":"abc"}}}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "agentos_sales", req.AgentName)
	assert.Equal(t, "create_sale", req.Payload.Action)
	assert.Equal(t, "abc", req.Payload.Data["sku"])
}

func TestSplitToolName(t *testing.T) {
	agent, action, ok := splitToolName("agentos_sales.create_sale")
	require.True(t, ok)
	assert.Equal(t, "agentos_sales", agent)
	assert.Equal(t, "create_sale", action)
}

func TestSplitToolName_NestedDots(t *testing.T) {
	// splits on the LAST '.' — action names never contain dots, agent
	// names in principle could.
	agent, action, ok := splitToolName("agentos.sales.create_sale")
	require.True(t, ok)
	assert.Equal(t, "agentos.sales", agent)
	assert.Equal(t, "create_sale", action)
}

func TestSplitToolName_NoDot(t *testing.T) {
	_, _, ok := splitToolName("nodothere")
	assert.False(t, ok)
}
