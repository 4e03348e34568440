package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/llm"
)

type stubOracle struct {
	response string
	err      error
}

func (o stubOracle) Complete(ctx context.Context, prompt string) (string, error) {
	return o.response, o.err
}

func TestInterpret_ParsesFencedJSON(t *testing.T) {
	exec := llm.NewExecutor(stubOracle{response: "```json\n{\"service\":\"cloud\",\"action\":\"launch_instance\",\"params\":{\"region\":\"us-east-1\"}}\n```"})

	interp, err := exec.Interpret(context.Background(), "launch a server", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "cloud", interp.Service)
	assert.Equal(t, "launch_instance", interp.Action)
	assert.Equal(t, "us-east-1", interp.Params["region"])
}

func TestInterpret_MissingKeysIsValidationFailed(t *testing.T) {
	exec := llm.NewExecutor(stubOracle{response: `{"params":{}}`})

	_, err := exec.Interpret(context.Background(), "objective", "", nil)
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestInterpret_OracleFailureIsUpstreamUnavailable(t *testing.T) {
	exec := llm.NewExecutor(stubOracle{err: assertErr{"oracle down"}})

	_, err := exec.Interpret(context.Background(), "objective", "", nil)
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindUpstreamUnavailable, ae.Kind)
}

func TestExecute_UnknownPairIsUnsupportedAction(t *testing.T) {
	exec := llm.NewExecutor(stubOracle{})

	_, err := exec.Execute(context.Background(), &llm.Interpretation{Service: "cloud", Action: "nope"})
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindUnsupportedAction, ae.Kind)
}

func TestExecute_DispatchesRegisteredHandler(t *testing.T) {
	exec := llm.NewExecutor(stubOracle{})
	exec.Register("cloud", "launch_instance", func(ctx context.Context, params map[string]any) (any, error) {
		return params["region"], nil
	})

	result, err := exec.Execute(context.Background(), &llm.Interpretation{
		Service: "cloud", Action: "launch_instance", Params: map[string]any{"region": "eu-west-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", result)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
