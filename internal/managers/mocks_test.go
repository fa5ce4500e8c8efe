package managers

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/retry"
)

// logSpy records info-level messages for assertions.
type logSpy struct {
	infos []string
}

func (l *logSpy) Debug(msg string) {}

func (l *logSpy) Info(msg string) {
	l.infos = append(l.infos, msg)
}

func (l *logSpy) Warn(msg string) {}

func (l *logSpy) Error(msg string, err error) {}

func (l *logSpy) WithField(key string, value interface{}) logger.Logger {
	return l
}

func (l *logSpy) WithFields(fields map[string]interface{}) logger.Logger {
	return l
}

// fastRetry keeps backoff waits out of the tests.
func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 4, InitialDelay: time.Millisecond, BackoffFactor: 1.0}
}

func testCalculator() *costs.Calculator {
	return costs.NewCalculator("us-east-1", costs.DefaultPriceTable())
}

type mockKinesis struct {
	describeFn    func(ctx context.Context, params *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error)
	updateFn      func(ctx context.Context, params *kinesis.UpdateShardCountInput) (*kinesis.UpdateShardCountOutput, error)
	describeCalls int
	updateCalls   int
}

func (m *mockKinesis) DescribeStreamSummary(ctx context.Context, params *kinesis.DescribeStreamSummaryInput, _ ...func(*kinesis.Options)) (*kinesis.DescribeStreamSummaryOutput, error) {
	m.describeCalls++
	return m.describeFn(ctx, params)
}

func (m *mockKinesis) UpdateShardCount(ctx context.Context, params *kinesis.UpdateShardCountInput, _ ...func(*kinesis.Options)) (*kinesis.UpdateShardCountOutput, error) {
	m.updateCalls++
	if m.updateFn == nil {
		return &kinesis.UpdateShardCountOutput{}, nil
	}
	return m.updateFn(ctx, params)
}

type mockLambda struct {
	getFn    func(ctx context.Context, params *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error)
	putFn    func(ctx context.Context, params *lambda.PutFunctionConcurrencyInput) (*lambda.PutFunctionConcurrencyOutput, error)
	deleteFn func(ctx context.Context, params *lambda.DeleteFunctionConcurrencyInput) (*lambda.DeleteFunctionConcurrencyOutput, error)

	putCalls    []string
	deleteCalls []string
}

func (m *mockLambda) GetFunctionConcurrency(ctx context.Context, params *lambda.GetFunctionConcurrencyInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionConcurrencyOutput, error) {
	if m.getFn == nil {
		return &lambda.GetFunctionConcurrencyOutput{}, nil
	}
	return m.getFn(ctx, params)
}

func (m *mockLambda) PutFunctionConcurrency(ctx context.Context, params *lambda.PutFunctionConcurrencyInput, _ ...func(*lambda.Options)) (*lambda.PutFunctionConcurrencyOutput, error) {
	m.putCalls = append(m.putCalls, *params.FunctionName)
	if m.putFn == nil {
		return &lambda.PutFunctionConcurrencyOutput{}, nil
	}
	return m.putFn(ctx, params)
}

func (m *mockLambda) DeleteFunctionConcurrency(ctx context.Context, params *lambda.DeleteFunctionConcurrencyInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionConcurrencyOutput, error) {
	m.deleteCalls = append(m.deleteCalls, *params.FunctionName)
	if m.deleteFn == nil {
		return &lambda.DeleteFunctionConcurrencyOutput{}, nil
	}
	return m.deleteFn(ctx, params)
}

type mockCloudWatch struct {
	describeFn func(ctx context.Context, params *cloudwatch.DescribeAlarmsInput) (*cloudwatch.DescribeAlarmsOutput, error)
	enableFn   func(ctx context.Context, params *cloudwatch.EnableAlarmActionsInput) (*cloudwatch.EnableAlarmActionsOutput, error)
	disableFn  func(ctx context.Context, params *cloudwatch.DisableAlarmActionsInput) (*cloudwatch.DisableAlarmActionsOutput, error)

	enabled  [][]string
	disabled [][]string
}

func (m *mockCloudWatch) DescribeAlarms(ctx context.Context, params *cloudwatch.DescribeAlarmsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error) {
	return m.describeFn(ctx, params)
}

func (m *mockCloudWatch) EnableAlarmActions(ctx context.Context, params *cloudwatch.EnableAlarmActionsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.EnableAlarmActionsOutput, error) {
	m.enabled = append(m.enabled, params.AlarmNames)
	if m.enableFn == nil {
		return &cloudwatch.EnableAlarmActionsOutput{}, nil
	}
	return m.enableFn(ctx, params)
}

func (m *mockCloudWatch) DisableAlarmActions(ctx context.Context, params *cloudwatch.DisableAlarmActionsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.DisableAlarmActionsOutput, error) {
	m.disabled = append(m.disabled, params.AlarmNames)
	if m.disableFn == nil {
		return &cloudwatch.DisableAlarmActionsOutput{}, nil
	}
	return m.disableFn(ctx, params)
}
