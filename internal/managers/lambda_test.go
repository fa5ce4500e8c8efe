package managers

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

func newFunctionSetManager(client *mockLambda, names ...string) *FunctionSetManager {
	m := NewFunctionSetManager(client, testCalculator(), logger.Nop(), FunctionSetConfig{
		FunctionNames: names,
	})
	m.retryCfg = fastRetry()
	return m
}

func TestFunctionsStop_SetsZeroConcurrencyOnEach(t *testing.T) {
	client := &mockLambda{
		putFn: func(_ context.Context, params *lambda.PutFunctionConcurrencyInput) (*lambda.PutFunctionConcurrencyOutput, error) {
			assert.Equal(t, int32(0), *params.ReservedConcurrentExecutions)
			return &lambda.PutFunctionConcurrencyOutput{}, nil
		},
	}

	result := newFunctionSetManager(client, "ingest", "transform", "report").Stop(context.Background(), false)

	assert.True(t, result.Success())
	assert.Equal(t, []string{"ingest", "transform", "report"}, result.ResourcesAffected)
	assert.Equal(t, []string{"ingest", "transform", "report"}, client.putCalls)
}

func TestFunctionsStop_PartialFailureContinues(t *testing.T) {
	client := &mockLambda{
		putFn: func(_ context.Context, params *lambda.PutFunctionConcurrencyInput) (*lambda.PutFunctionConcurrencyOutput, error) {
			if *params.FunctionName == "transform" {
				return nil, errors.New(errors.TypePermission, "access denied")
			}
			return &lambda.PutFunctionConcurrencyOutput{}, nil
		},
	}

	result := newFunctionSetManager(client, "ingest", "transform", "report").Stop(context.Background(), false)

	assert.False(t, result.Success())
	assert.Equal(t, []string{"ingest", "report"}, result.ResourcesAffected)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "transform")
}

func TestFunctionsStop_AlreadyDisabledWarnsWithoutCalls(t *testing.T) {
	client := &mockLambda{
		getFn: func(_ context.Context, _ *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
			return &lambda.GetFunctionConcurrencyOutput{ReservedConcurrentExecutions: aws.Int32(0)}, nil
		},
	}

	result := newFunctionSetManager(client, "ingest", "report").Stop(context.Background(), false)

	// A second stop is a clean no-op: success, warnings, no writes.
	assert.True(t, result.Success())
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, []string{"ingest", "report"}, result.ResourcesAffected)
	assert.Empty(t, client.putCalls)
}

func TestFunctionsStop_MissingFunctionIsWarning(t *testing.T) {
	client := &mockLambda{
		getFn: func(_ context.Context, params *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
			if *params.FunctionName == "ghost" {
				return nil, errors.New(errors.TypeNotFound, "function not found")
			}
			return &lambda.GetFunctionConcurrencyOutput{}, nil
		},
	}

	result := newFunctionSetManager(client, "ingest", "ghost").Stop(context.Background(), false)

	assert.True(t, result.Success())
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "ghost")
	assert.Equal(t, []string{"ingest"}, result.ResourcesAffected)
	assert.Equal(t, []string{"ingest"}, client.putCalls)
}

func TestFunctionsStart_MissingReservationIsWarning(t *testing.T) {
	client := &mockLambda{
		deleteFn: func(_ context.Context, params *lambda.DeleteFunctionConcurrencyInput) (*lambda.DeleteFunctionConcurrencyOutput, error) {
			if *params.FunctionName == "report" {
				return nil, errors.New(errors.TypeNotFound, "no concurrency configuration")
			}
			return &lambda.DeleteFunctionConcurrencyOutput{}, nil
		},
	}

	result := newFunctionSetManager(client, "ingest", "report").Start(context.Background(), false)

	assert.True(t, result.Success())
	assert.Equal(t, []string{"ingest", "report"}, result.ResourcesAffected)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "report")
}

func TestFunctionsStop_DryRunMakesNoCalls(t *testing.T) {
	client := &mockLambda{}

	result := newFunctionSetManager(client, "ingest", "report").Stop(context.Background(), true)

	assert.True(t, result.Success())
	assert.Empty(t, client.putCalls)
}

func TestFunctionsStatus_AllZeroConcurrencyIsStopped(t *testing.T) {
	client := &mockLambda{
		getFn: func(_ context.Context, _ *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
			return &lambda.GetFunctionConcurrencyOutput{ReservedConcurrentExecutions: aws.Int32(0)}, nil
		},
	}

	snapshot, err := newFunctionSetManager(client, "ingest", "report").Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateStopped, snapshot.State)
	assert.Equal(t, 2, snapshot.Details["stopped_count"])
}

func TestFunctionsStatus_MixedStateReportsFailed(t *testing.T) {
	client := &mockLambda{
		getFn: func(_ context.Context, params *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
			if *params.FunctionName == "ingest" {
				return &lambda.GetFunctionConcurrencyOutput{ReservedConcurrentExecutions: aws.Int32(0)}, nil
			}
			return &lambda.GetFunctionConcurrencyOutput{}, nil
		},
	}

	snapshot, err := newFunctionSetManager(client, "ingest", "report").Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateFailed, snapshot.State)
}

func TestFunctionsEstimateCost_AlwaysZero(t *testing.T) {
	cost, err := newFunctionSetManager(&mockLambda{}, "ingest", "transform", "report").EstimateCost(context.Background())

	require.NoError(t, err)
	assert.Zero(t, cost.HourlyCost)
	assert.Zero(t, cost.MonthlyCost)
	assert.Equal(t, 3, cost.ResourceCount)
}

func TestFunctionsSaveAndRestore_RoundTrip(t *testing.T) {
	client := &mockLambda{
		getFn: func(_ context.Context, params *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
			if *params.FunctionName == "ingest" {
				return &lambda.GetFunctionConcurrencyOutput{ReservedConcurrentExecutions: aws.Int32(10)}, nil
			}
			return &lambda.GetFunctionConcurrencyOutput{}, nil
		},
	}
	mgr := newFunctionSetManager(client, "ingest", "report")

	saved, err := mgr.SaveConfiguration(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 2)

	// Both functions were stopped after the save.
	client.getFn = func(_ context.Context, _ *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
		return &lambda.GetFunctionConcurrencyOutput{ReservedConcurrentExecutions: aws.Int32(0)}, nil
	}

	result := mgr.RestoreConfiguration(context.Background(), saved, false)

	assert.True(t, result.Success())
	// ingest had a reservation of 10, report had none.
	assert.Equal(t, []string{"ingest"}, client.putCalls)
	assert.Equal(t, []string{"report"}, client.deleteCalls)
}

func TestFunctionsRestore_NoOpWhenStateAlreadyMatches(t *testing.T) {
	client := &mockLambda{
		getFn: func(_ context.Context, params *lambda.GetFunctionConcurrencyInput) (*lambda.GetFunctionConcurrencyOutput, error) {
			if *params.FunctionName == "ingest" {
				return &lambda.GetFunctionConcurrencyOutput{ReservedConcurrentExecutions: aws.Int32(10)}, nil
			}
			return &lambda.GetFunctionConcurrencyOutput{}, nil
		},
	}
	saved := []map[string]interface{}{
		{"function_name": "ingest", "reserved_concurrency": 10},
		{"function_name": "report", "reserved_concurrency": nil},
	}

	result := newFunctionSetManager(client, "ingest", "report").RestoreConfiguration(context.Background(), saved, false)

	assert.True(t, result.Success())
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, []string{"ingest", "report"}, result.ResourcesAffected)
	assert.Empty(t, client.putCalls)
	assert.Empty(t, client.deleteCalls)
}
