package managers

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

func streamSummary(status types.StreamStatus, shards, retention int32) *kinesis.DescribeStreamSummaryOutput {
	return &kinesis.DescribeStreamSummaryOutput{
		StreamDescriptionSummary: &types.StreamDescriptionSummary{
			StreamName:           aws.String("events-stream"),
			StreamStatus:         status,
			OpenShardCount:       aws.Int32(shards),
			RetentionPeriodHours: aws.Int32(retention),
		},
	}
}

func newStreamManager(client *mockKinesis) *StreamManager {
	m := NewStreamManager(client, testCalculator(), logger.Nop(), StreamConfig{
		StreamName:   "events-stream",
		ActiveShards: 2,
	})
	m.retryCfg = fastRetry()
	return m
}

func TestStreamStop_ScalesDownToOneShard(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 2, 24), nil
		},
		updateFn: func(_ context.Context, params *kinesis.UpdateShardCountInput) (*kinesis.UpdateShardCountOutput, error) {
			assert.Equal(t, int32(1), *params.TargetShardCount)
			assert.Equal(t, types.ScalingTypeUniformScaling, params.ScalingType)
			return &kinesis.UpdateShardCountOutput{}, nil
		},
	}

	result := newStreamManager(client).Stop(context.Background(), false)

	assert.True(t, result.Success())
	assert.Equal(t, []string{"events-stream"}, result.ResourcesAffected)
	assert.Equal(t, 1, client.updateCalls)
}

func TestStreamStop_AlreadyMinimalSucceedsWithWarning(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 1, 24), nil
		},
	}

	result := newStreamManager(client).Stop(context.Background(), false)

	// A second stop is a clean no-op: success, a warning, no resize.
	assert.True(t, result.Success())
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, []string{"events-stream"}, result.ResourcesAffected)
	assert.Zero(t, client.updateCalls)
}

func TestStreamStop_DryRunSkipsUpdate(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 2, 24), nil
		},
	}

	result := newStreamManager(client).Stop(context.Background(), true)

	assert.True(t, result.Success())
	assert.True(t, result.DryRun)
	assert.Zero(t, client.updateCalls)
}

func TestStreamStop_DryRunLogsIntentWithoutScaling(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 2, 24), nil
		},
	}
	spy := &logSpy{}
	m := NewStreamManager(client, testCalculator(), spy, StreamConfig{
		StreamName:   "events-stream",
		ActiveShards: 2,
	})
	m.retryCfg = fastRetry()

	result := m.Stop(context.Background(), true)

	assert.True(t, result.Success())
	assert.Zero(t, client.updateCalls)
	require.Len(t, spy.infos, 1)
	assert.Contains(t, spy.infos[0], "dry run")
}

func TestStreamStop_NonActiveStreamFails(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusUpdating, 2, 24), nil
		},
	}

	result := newStreamManager(client).Stop(context.Background(), false)

	assert.False(t, result.Success())
	require.Len(t, result.Errors, 1)
	assert.Zero(t, client.updateCalls)
}

func TestStreamStart_ScalesBackUp(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 1, 24), nil
		},
		updateFn: func(_ context.Context, params *kinesis.UpdateShardCountInput) (*kinesis.UpdateShardCountOutput, error) {
			assert.Equal(t, int32(2), *params.TargetShardCount)
			return &kinesis.UpdateShardCountOutput{}, nil
		},
	}

	result := newStreamManager(client).Start(context.Background(), false)

	assert.True(t, result.Success())
	assert.Equal(t, 1, client.updateCalls)
}

func TestStreamStatus_MinimalShardsReportsStopped(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 1, 24), nil
		},
	}

	snapshot, err := newStreamManager(client).Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateStopped, snapshot.State)
	require.Len(t, snapshot.Resources, 1)
	assert.Equal(t, 1, snapshot.Resources[0].Details["shard_count"])
}

func TestStreamEstimateCost_UsesLiveShardCount(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 2, 24), nil
		},
	}

	cost, err := newStreamManager(client).EstimateCost(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 0.030, cost.HourlyCost, 1e-9)
	assert.InDelta(t, 21.6, cost.MonthlyCost, 1e-9)
}

func TestStreamRestore_UsesSavedShardCount(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return streamSummary(types.StreamStatusActive, 1, 24), nil
		},
		updateFn: func(_ context.Context, params *kinesis.UpdateShardCountInput) (*kinesis.UpdateShardCountOutput, error) {
			assert.Equal(t, int32(4), *params.TargetShardCount)
			return &kinesis.UpdateShardCountOutput{}, nil
		},
	}

	saved := []map[string]interface{}{
		{"stream_name": "events-stream", "shard_count": float64(4)},
	}
	result := newStreamManager(client).RestoreConfiguration(context.Background(), saved, false)

	assert.True(t, result.Success())
	assert.Equal(t, 1, client.updateCalls)
}

func TestStreamStop_DescribeNotFoundRetriedOnce(t *testing.T) {
	client := &mockKinesis{
		describeFn: func(_ context.Context, _ *kinesis.DescribeStreamSummaryInput) (*kinesis.DescribeStreamSummaryOutput, error) {
			return nil, errors.New(errors.TypeNotFound, "stream not found")
		},
	}

	result := newStreamManager(client).Stop(context.Background(), false)

	assert.False(t, result.Success())
	assert.Equal(t, 2, client.describeCalls)
}
