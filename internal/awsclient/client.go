package awsclient

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/ujanalytics/costctl/internal/errors"
)

// KinesisAPI defines the Kinesis client methods we use.
type KinesisAPI interface {
	DescribeStreamSummary(ctx context.Context, params *kinesis.DescribeStreamSummaryInput, optFns ...func(*kinesis.Options)) (*kinesis.DescribeStreamSummaryOutput, error)
	UpdateShardCount(ctx context.Context, params *kinesis.UpdateShardCountInput, optFns ...func(*kinesis.Options)) (*kinesis.UpdateShardCountOutput, error)
}

// LambdaAPI defines the Lambda client methods we use.
type LambdaAPI interface {
	GetFunctionConcurrency(ctx context.Context, params *lambda.GetFunctionConcurrencyInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConcurrencyOutput, error)
	PutFunctionConcurrency(ctx context.Context, params *lambda.PutFunctionConcurrencyInput, optFns ...func(*lambda.Options)) (*lambda.PutFunctionConcurrencyOutput, error)
	DeleteFunctionConcurrency(ctx context.Context, params *lambda.DeleteFunctionConcurrencyInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionConcurrencyOutput, error)
}

// CloudWatchAPI defines the CloudWatch client methods we use.
type CloudWatchAPI interface {
	DescribeAlarms(ctx context.Context, params *cloudwatch.DescribeAlarmsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
	DisableAlarmActions(ctx context.Context, params *cloudwatch.DisableAlarmActionsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DisableAlarmActionsOutput, error)
	EnableAlarmActions(ctx context.Context, params *cloudwatch.EnableAlarmActionsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.EnableAlarmActionsOutput, error)
}

// STSAPI defines the STS client methods the identity check uses.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// S3API defines the S3 client methods the state backup uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Clients holds the AWS service clients costctl works with.
type Clients struct {
	Kinesis    KinesisAPI
	Lambda     LambdaAPI
	CloudWatch CloudWatchAPI
	S3         S3API
	Pricing    *pricing.Client
	STS        STSAPI
	Config     aws.Config
}

// ClientConfig holds configuration for AWS client creation.
type ClientConfig struct {
	Region     string
	Profile    string
	MaxRetries int
}

// New creates and configures the AWS service clients. The SDK retryer
// is capped low on purpose: the operation-level retry policy lives in
// internal/retry and should not stack on top of SDK retries.
func New(ctx context.Context, clientConfig ClientConfig) (*Clients, error) {
	if clientConfig.MaxRetries == 0 {
		clientConfig.MaxRetries = 2
	}

	var opts []func(*config.LoadOptions) error

	if clientConfig.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(clientConfig.Profile))
	}
	if clientConfig.Region != "" {
		opts = append(opts, config.WithRegion(clientConfig.Region))
	}
	opts = append(opts, config.WithRetryer(func() aws.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), clientConfig.MaxRetries)
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(errors.TypeValidation, "failed to load AWS config").WithCause(err)
	}

	if err := validateCredentials(ctx, cfg); err != nil {
		return nil, err
	}

	return &Clients{
		Kinesis:    kinesis.NewFromConfig(cfg),
		Lambda:     lambda.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
		S3:         s3.NewFromConfig(cfg),
		// The Pricing API is only served from us-east-1 and ap-south-1.
		Pricing: pricing.NewFromConfig(cfg, func(o *pricing.Options) {
			o.Region = "us-east-1"
		}),
		STS:    sts.NewFromConfig(cfg),
		Config: cfg,
	}, nil
}

// Region returns the configured region.
func (c *Clients) Region() string {
	return c.Config.Region
}

// VerifyIdentity tests the credentials with STS GetCallerIdentity and
// returns the caller ARN.
func (c *Clients) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", errors.Classify(err, "sts", "GetCallerIdentity").
			WithSolutions("Run 'aws sts get-caller-identity' to check the active credentials")
	}
	if result.Account == nil || result.Arn == nil {
		return "", errors.New(errors.TypePermission, "received incomplete identity information from AWS")
	}
	return *result.Arn, nil
}

// validateCredentials checks that usable credentials resolve before any
// service call is attempted, with actionable guidance when they don't.
func validateCredentials(ctx context.Context, cfg aws.Config) error {
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		guidance := errors.New(errors.TypePermission, "no AWS credentials found").WithCause(err)
		if os.Getenv("AWS_ACCESS_KEY_ID") == "" && os.Getenv("AWS_PROFILE") == "" {
			return guidance.WithSolutions(
				"Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables",
				"Set AWS_PROFILE or pass --profile",
				"Run 'aws configure' to set up a default profile",
			)
		}
		return guidance.WithSolutions(
			"Check whether the credentials have expired",
			"Re-run 'aws configure' or refresh session tokens",
		)
	}

	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return errors.New(errors.TypePermission, "resolved AWS credentials are incomplete")
	}
	if !creds.Expires.IsZero() && time.Now().After(creds.Expires) {
		return errors.New(errors.TypePermission, "AWS credentials have expired").
			WithSolutions("Refresh the session token or re-assume the role")
	}

	return nil
}
