package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/llm"
)

type fakeCloudClient struct{}

func (fakeCloudClient) LaunchInstance(ctx context.Context, region, instanceType string) (string, error) {
	return "i-0123", nil
}

func (fakeCloudClient) CreateBucket(ctx context.Context, name, region string) (string, error) {
	return "arn:aws:s3:::" + name, nil
}

func newCloudExecutor() *llm.Executor {
	exec := llm.NewExecutor(stubOracle{})
	llm.RegisterCloudHandlers(exec, fakeCloudClient{})
	return exec
}

func TestCloudHandlers_LaunchInstance_RejectsDisallowedRegion(t *testing.T) {
	exec := newCloudExecutor()

	_, err := exec.Execute(context.Background(), &llm.Interpretation{
		Service: "cloud", Action: "launch_instance",
		Params: map[string]any{"region": "ap-south-1", "instance_type": "t3.micro"},
	})
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestCloudHandlers_LaunchInstance_Allowed(t *testing.T) {
	exec := newCloudExecutor()

	result, err := exec.Execute(context.Background(), &llm.Interpretation{
		Service: "cloud", Action: "launch_instance",
		Params: map[string]any{"region": "us-east-1", "instance_type": "t3.micro"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"instance_id": "i-0123"}, result)
}

func TestCloudHandlers_CreateBucket_RejectsBadName(t *testing.T) {
	exec := newCloudExecutor()

	_, err := exec.Execute(context.Background(), &llm.Interpretation{
		Service: "cloud", Action: "create_bucket",
		Params: map[string]any{"name": "X!", "region": "us-east-1"},
	})
	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestCloudHandlers_CreateBucket_Allowed(t *testing.T) {
	exec := newCloudExecutor()

	result, err := exec.Execute(context.Background(), &llm.Interpretation{
		Service: "cloud", Action: "create_bucket",
		Params: map[string]any{"name": "my-test-bucket", "region": "eu-west-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bucket_arn": "arn:aws:s3:::my-test-bucket"}, result)
}
