// Package awsconfig builds aws.Config values for AWS-backed components from
// their resolved component configuration.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Fields are the configuration keys shared by every AWS component.
func Fields() []component.ConfigField {
	return []component.ConfigField{
		{Key: "region", Env: "AWS_REGION", Default: "us-east-1"},
		{Key: "endpoint", Description: "Custom endpoint (LocalStack, MinIO); enables path-style addressing for S3"},
		{Key: "access_key_id", Secret: true, Description: "Static credentials; the default chain is used when empty"},
		{Key: "secret_access_key", Secret: true},
		{Key: "session_token", Secret: true},
		{Key: "role_arn", Description: "Role assumed through STS before calling the service"},
	}
}

// Load resolves region and credentials. Inline keys take priority over the
// default credential chain; role_arn wraps whichever base credentials result.
func Load(ctx context.Context, cfg component.Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region := cfg.String("region"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	accessKey, secretKey := cfg.String("access_key_id"), cfg.String("secret_access_key")
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, cfg.String("session_token")),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	if roleARN := cfg.String("role_arn"); roleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), roleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = "workflow-components"
		})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}
	return awsCfg, nil
}

// Endpoint returns the configured custom endpoint, or nil.
func Endpoint(cfg component.Config) *string {
	if ep := cfg.String("endpoint"); ep != "" {
		return aws.String(ep)
	}
	return nil
}
