package llm

import (
	"context"
	"regexp"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
)

// CloudClient is the opaque cloud-provider SDK — out of scope per spec
// §1; modeled as a narrow interface so handlers can be tested against a
// fake.
type CloudClient interface {
	LaunchInstance(ctx context.Context, region, instanceType string) (string, error)
	CreateBucket(ctx context.Context, name, region string) (string, error)
}

var (
	allowedRegions      = map[string]bool{"us-east-1": true, "us-west-2": true, "eu-west-1": true}
	allowedInstanceTypes = map[string]bool{"t3.micro": true, "t3.small": true, "t3.medium": true}
	bucketNamePattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)
)

// RegisterCloudHandlers wires the "cloud" service's handlers onto e. Each
// handler re-validates its params against a fixed allow-list — the LLM's
// interpretation is never trusted to widen the permitted surface
// (spec §4.7).
func RegisterCloudHandlers(e *Executor, client CloudClient) {
	e.Register("cloud", "launch_instance", func(ctx context.Context, params map[string]any) (any, error) {
		region, _ := params["region"].(string)
		instanceType, _ := params["instance_type"].(string)

		if !allowedRegions[region] {
			return nil, errorsx.ValidationFailed(map[string]string{"region": "not in allow-list"})
		}
		if !allowedInstanceTypes[instanceType] {
			return nil, errorsx.ValidationFailed(map[string]string{"instance_type": "not in allow-list"})
		}

		id, err := client.LaunchInstance(ctx, region, instanceType)
		if err != nil {
			return nil, errorsx.UpstreamUnavailable("cloud provider launch_instance failed")
		}
		return map[string]string{"instance_id": id}, nil
	})

	e.Register("cloud", "create_bucket", func(ctx context.Context, params map[string]any) (any, error) {
		name, _ := params["name"].(string)
		region, _ := params["region"].(string)

		if !bucketNamePattern.MatchString(name) {
			return nil, errorsx.ValidationFailed(map[string]string{"name": "does not match bucket-name shape"})
		}
		if !allowedRegions[region] {
			return nil, errorsx.ValidationFailed(map[string]string{"region": "not in allow-list"})
		}

		arn, err := client.CreateBucket(ctx, name, region)
		if err != nil {
			return nil, errorsx.UpstreamUnavailable("cloud provider create_bucket failed")
		}
		return map[string]string{"bucket_arn": arn}, nil
	})
}
