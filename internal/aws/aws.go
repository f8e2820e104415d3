// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	acmv2 "github.com/aws/aws-sdk-go-v2/service/acm"
	athenav2 "github.com/aws/aws-sdk-go-v2/service/athena"
	cloudwatchv2 "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	ecsv2 "github.com/aws/aws-sdk-go-v2/service/ecs"
	iamv2 "github.com/aws/aws-sdk-go-v2/service/iam"
	kmsv2 "github.com/aws/aws-sdk-go-v2/service/kms"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	rdsv2 "github.com/aws/aws-sdk-go-v2/service/rds"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	servicequotasv2 "github.com/aws/aws-sdk-go-v2/service/servicequotas"
	sqsv2 "github.com/aws/aws-sdk-go-v2/service/sqs"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/awsadm/awsadm/internal/log"
)

// DefaultRegion is used when neither the flag, env, nor profile chain
// provides one.
const DefaultRegion = "us-east-1"

// options holds optional overrides for AWS config loading.
type options struct {
	profile string
	region  string
	retryer func() awsv2.Retryer
}

// Option customizes how AWS config is loaded.
// Default behavior (no options) inherits the shell environment and shared
// config chain (AWS_PROFILE, ~/.aws/config, ~/.aws/credentials, IMDS, etc.).
type Option func(*options)

// LoadConfig loads AWS SDK v2 config. By default it inherits the shell's
// AWS setup (AWS_PROFILE, shared config, env, IMDS). Options can override
// profile, region, and retryer without changing callers.
func LoadConfig(ctx context.Context, opts ...Option) (awsv2.Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log.Debugf("opts applied: profile=%s, region=%s", o.profile, o.region)

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	if o.retryer != nil {
		loadOpts = append(loadOpts, config.WithRetryer(o.retryer))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.Debugf("config load err: err=%v", err)
		return awsv2.Config{}, err
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	log.Debugf("config loaded: region=%s", cfg.Region)
	return cfg, nil
}

// WithProfile sets the shared config profile. Defaults to AWS_PROFILE/env chain.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// WithRegion sets the region override. Defaults to env/profile/metadata chain.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithRetryer injects a custom retryer; if not set, SDK defaults are used.
func WithRetryer(newRetryer func() awsv2.Retryer) Option {
	return func(o *options) { o.retryer = newRetryer }
}

// NewIAM constructs a v2 IAM client from the provided config.
func NewIAM(cfg awsv2.Config, optFns ...func(*iamv2.Options)) *iamv2.Client {
	return iamv2.NewFromConfig(cfg, optFns...)
}

// NewSTS constructs a v2 STS client from the provided config.
func NewSTS(cfg awsv2.Config, optFns ...func(*stsv2.Options)) *stsv2.Client {
	return stsv2.NewFromConfig(cfg, optFns...)
}

// NewS3 constructs a v2 S3 client from the provided config. Additional service
// options can be supplied via optFns.
func NewS3(cfg awsv2.Config, optFns ...func(*s3v2.Options)) *s3v2.Client {
	return s3v2.NewFromConfig(cfg, optFns...)
}

// NewSQS constructs a v2 SQS client from the provided config.
func NewSQS(cfg awsv2.Config, optFns ...func(*sqsv2.Options)) *sqsv2.Client {
	return sqsv2.NewFromConfig(cfg, optFns...)
}

// NewACM constructs a v2 ACM client from the provided config.
func NewACM(cfg awsv2.Config, optFns ...func(*acmv2.Options)) *acmv2.Client {
	return acmv2.NewFromConfig(cfg, optFns...)
}

// NewECS constructs a v2 ECS client from the provided config.
func NewECS(cfg awsv2.Config, optFns ...func(*ecsv2.Options)) *ecsv2.Client {
	return ecsv2.NewFromConfig(cfg, optFns...)
}

// NewKMS constructs a v2 KMS client from the provided config.
func NewKMS(cfg awsv2.Config, optFns ...func(*kmsv2.Options)) *kmsv2.Client {
	return kmsv2.NewFromConfig(cfg, optFns...)
}

// NewRDS constructs a v2 RDS client from the provided config.
func NewRDS(cfg awsv2.Config, optFns ...func(*rdsv2.Options)) *rdsv2.Client {
	return rdsv2.NewFromConfig(cfg, optFns...)
}

// NewAthena constructs a v2 Athena client from the provided config.
func NewAthena(cfg awsv2.Config, optFns ...func(*athenav2.Options)) *athenav2.Client {
	return athenav2.NewFromConfig(cfg, optFns...)
}

// NewLambda constructs a v2 Lambda client from the provided config.
func NewLambda(cfg awsv2.Config, optFns ...func(*lambdav2.Options)) *lambdav2.Client {
	return lambdav2.NewFromConfig(cfg, optFns...)
}

// NewCloudWatch constructs a v2 CloudWatch client from the provided config.
func NewCloudWatch(cfg awsv2.Config, optFns ...func(*cloudwatchv2.Options)) *cloudwatchv2.Client {
	return cloudwatchv2.NewFromConfig(cfg, optFns...)
}

// NewServiceQuotas constructs a v2 Service Quotas client from the provided
// config.
func NewServiceQuotas(cfg awsv2.Config, optFns ...func(*servicequotasv2.Options)) *servicequotasv2.Client {
	return servicequotasv2.NewFromConfig(cfg, optFns...)
}

// CallerIdentityAPI is the STS surface needed to resolve the caller account.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *stsv2.GetCallerIdentityInput, optFns ...func(*stsv2.Options)) (*stsv2.GetCallerIdentityOutput, error)
}

// AccountID resolves the AWS account ID of the current credentials via STS.
func AccountID(ctx context.Context, client CallerIdentityAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &stsv2.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("caller identity has no account")
	}
	return *out.Account, nil
}
