package managers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"

	"github.com/ujanalytics/costctl/internal/awsclient"
	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/retry"
)

const (
	// MinimalShardCount is the floor a stream is scaled down to when
	// stopped. Kinesis streams cannot have zero shards.
	MinimalShardCount = 1
	// DefaultShardCount is the operating shard count restored on start
	// when no saved configuration says otherwise.
	DefaultShardCount = 2
)

// StreamConfig configures the Kinesis stream manager.
type StreamConfig struct {
	StreamName   string
	ActiveShards int
}

// StreamManager scales a Kinesis stream between its operating shard
// count and the one-shard floor. Stopping never deletes the stream, so
// data and consumers survive.
type StreamManager struct {
	client   awsclient.KinesisAPI
	calc     *costs.Calculator
	log      logger.Logger
	retryCfg retry.Config

	streamName   string
	activeShards int
}

// NewStreamManager creates a manager for the given stream.
func NewStreamManager(client awsclient.KinesisAPI, calc *costs.Calculator, log logger.Logger, cfg StreamConfig) *StreamManager {
	active := cfg.ActiveShards
	if active < MinimalShardCount {
		active = DefaultShardCount
	}
	return &StreamManager{
		client:       client,
		calc:         calc,
		log:          log,
		retryCfg:     retry.DefaultConfig(),
		streamName:   cfg.StreamName,
		activeShards: active,
	}
}

func (m *StreamManager) Kind() Kind {
	return KindStream
}

// Stop scales the stream down to the minimal shard count.
func (m *StreamManager) Stop(ctx context.Context, dryRun bool) *OperationResult {
	result := newResult(KindStream, "stop", dryRun)

	summary, err := m.describe(ctx)
	if err != nil {
		result.addError(err)
		return result
	}

	shards := int(aws.ToInt32(summary.OpenShardCount))
	result.Details = map[string]interface{}{"shard_count_before": shards}

	if shards <= MinimalShardCount {
		result.addWarning(fmt.Sprintf("stream %s already at minimal shard count", m.streamName))
		result.addAffected(m.streamName)
		return result
	}
	if summary.StreamStatus != types.StreamStatusActive {
		result.addError(errors.New(errors.TypeState,
			fmt.Sprintf("stream %s is %s, must be ACTIVE to resize", m.streamName, summary.StreamStatus)))
		return result
	}

	fields := map[string]interface{}{
		"stream": m.streamName,
		"from":   shards,
		"to":     MinimalShardCount,
	}
	if dryRun {
		m.log.WithFields(fields).Info("dry run, stream would be scaled down")
	} else {
		if err := m.scaleTo(ctx, MinimalShardCount); err != nil {
			result.addError(err)
			return result
		}
		m.log.WithFields(fields).Info("stream scaled down")
	}
	result.addAffected(m.streamName)
	result.Details["shard_count_after"] = MinimalShardCount
	return result
}

// Start scales the stream back up to its operating shard count.
func (m *StreamManager) Start(ctx context.Context, dryRun bool) *OperationResult {
	result := newResult(KindStream, "start", dryRun)

	summary, err := m.describe(ctx)
	if err != nil {
		result.addError(err)
		return result
	}

	shards := int(aws.ToInt32(summary.OpenShardCount))
	result.Details = map[string]interface{}{"shard_count_before": shards}

	if shards >= m.activeShards {
		result.addWarning(fmt.Sprintf("stream %s already at operating shard count", m.streamName))
		result.addAffected(m.streamName)
		return result
	}
	if summary.StreamStatus != types.StreamStatusActive {
		result.addError(errors.New(errors.TypeState,
			fmt.Sprintf("stream %s is %s, must be ACTIVE to resize", m.streamName, summary.StreamStatus)))
		return result
	}

	fields := map[string]interface{}{
		"stream": m.streamName,
		"from":   shards,
		"to":     m.activeShards,
	}
	if dryRun {
		m.log.WithFields(fields).Info("dry run, stream would be scaled up")
	} else {
		if err := m.scaleTo(ctx, m.activeShards); err != nil {
			result.addError(err)
			return result
		}
		m.log.WithFields(fields).Info("stream scaled up")
	}
	result.addAffected(m.streamName)
	result.Details["shard_count_after"] = m.activeShards
	return result
}

// Status reports the stream state. A stream at the minimal shard count
// counts as stopped even though it keeps serving traffic.
func (m *StreamManager) Status(ctx context.Context) (*StatusSnapshot, error) {
	summary, err := m.describe(ctx)
	if err != nil {
		return nil, err
	}

	shards := int(aws.ToInt32(summary.OpenShardCount))
	retention := int(aws.ToInt32(summary.RetentionPeriodHours))

	state := StateUnknown
	switch summary.StreamStatus {
	case types.StreamStatusActive:
		if shards <= MinimalShardCount {
			state = StateStopped
		} else {
			state = StateRunning
		}
	case types.StreamStatusUpdating, types.StreamStatusCreating:
		state = StateStarting
	case types.StreamStatusDeleting:
		state = StateStopping
	}

	return &StatusSnapshot{
		Kind:  KindStream,
		State: state,
		Resources: []ResourceStatus{{
			Name:  m.streamName,
			State: state,
			Details: map[string]interface{}{
				"shard_count":     shards,
				"stream_status":   string(summary.StreamStatus),
				"retention_hours": retention,
			},
		}},
		Details: map[string]interface{}{
			"shard_count":           shards,
			"operating_shard_count": m.activeShards,
		},
	}, nil
}

// EstimateCost prices the stream at its current shard count.
func (m *StreamManager) EstimateCost(ctx context.Context) (costs.ServiceCost, error) {
	summary, err := m.describe(ctx)
	if err != nil {
		return costs.ServiceCost{}, err
	}

	shards := int(aws.ToInt32(summary.OpenShardCount))
	retention := int(aws.ToInt32(summary.RetentionPeriodHours))
	return m.calc.StreamCost(shards, retention), nil
}

// SaveConfiguration captures the live shard count for later restore.
func (m *StreamManager) SaveConfiguration(ctx context.Context) ([]map[string]interface{}, error) {
	summary, err := m.describe(ctx)
	if err != nil {
		return nil, err
	}

	return []map[string]interface{}{{
		"stream_name":     m.streamName,
		"shard_count":     int(aws.ToInt32(summary.OpenShardCount)),
		"retention_hours": int(aws.ToInt32(summary.RetentionPeriodHours)),
	}}, nil
}

// RestoreConfiguration scales the stream to the saved shard count.
func (m *StreamManager) RestoreConfiguration(ctx context.Context, saved []map[string]interface{}, dryRun bool) *OperationResult {
	result := newResult(KindStream, "restore", dryRun)

	target := m.activeShards
	for _, entry := range saved {
		if name, _ := entry["stream_name"].(string); name != m.streamName {
			continue
		}
		if count, ok := IntField(entry, "shard_count"); ok && count >= MinimalShardCount {
			target = count
		}
	}

	summary, err := m.describe(ctx)
	if err != nil {
		result.addError(err)
		return result
	}

	shards := int(aws.ToInt32(summary.OpenShardCount))
	if shards == target {
		result.addWarning(fmt.Sprintf("stream %s already at saved shard count %d", m.streamName, target))
		result.addAffected(m.streamName)
		return result
	}

	if !dryRun {
		if err := m.scaleTo(ctx, target); err != nil {
			result.addError(err)
			return result
		}
	}

	result.addAffected(m.streamName)
	result.Details = map[string]interface{}{
		"shard_count_before": shards,
		"shard_count_after":  target,
	}
	return result
}

func (m *StreamManager) describe(ctx context.Context) (*types.StreamDescriptionSummary, error) {
	var out *kinesis.DescribeStreamSummaryOutput
	err := retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
		o, err := m.client.DescribeStreamSummary(ctx, &kinesis.DescribeStreamSummaryInput{
			StreamName: aws.String(m.streamName),
		})
		if err != nil {
			return errors.Classify(err, "kinesis", "DescribeStreamSummary")
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.StreamDescriptionSummary, nil
}

func (m *StreamManager) scaleTo(ctx context.Context, target int) error {
	return retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
		_, err := m.client.UpdateShardCount(ctx, &kinesis.UpdateShardCountInput{
			StreamName:       aws.String(m.streamName),
			TargetShardCount: aws.Int32(int32(target)),
			ScalingType:      types.ScalingTypeUniformScaling,
		})
		if err != nil {
			return errors.Classify(err, "kinesis", "UpdateShardCount")
		}
		return nil
	})
}

