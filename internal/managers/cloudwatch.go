package managers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/ujanalytics/costctl/internal/awsclient"
	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/retry"
)

// AlarmSetConfig configures the CloudWatch alarm-set manager.
type AlarmSetConfig struct {
	AlarmNamePrefix string
}

// AlarmSetManager toggles alarm actions on every alarm matching the
// configured name prefix. Alarms keep evaluating while stopped, only
// their actions are suppressed, and AWS bills them either way.
type AlarmSetManager struct {
	client   awsclient.CloudWatchAPI
	calc     *costs.Calculator
	log      logger.Logger
	retryCfg retry.Config

	prefix string
}

// NewAlarmSetManager creates a manager for alarms under the prefix.
func NewAlarmSetManager(client awsclient.CloudWatchAPI, calc *costs.Calculator, log logger.Logger, cfg AlarmSetConfig) *AlarmSetManager {
	return &AlarmSetManager{
		client:   client,
		calc:     calc,
		log:      log,
		retryCfg: retry.DefaultConfig(),
		prefix:   cfg.AlarmNamePrefix,
	}
}

func (m *AlarmSetManager) Kind() Kind {
	return KindAlarms
}

// Stop disables alarm actions on every matching alarm.
func (m *AlarmSetManager) Stop(ctx context.Context, dryRun bool) *OperationResult {
	return m.toggle(ctx, "stop", false, dryRun)
}

// Start re-enables alarm actions on every matching alarm.
func (m *AlarmSetManager) Start(ctx context.Context, dryRun bool) *OperationResult {
	return m.toggle(ctx, "start", true, dryRun)
}

func (m *AlarmSetManager) toggle(ctx context.Context, action string, enable, dryRun bool) *OperationResult {
	result := newResult(KindAlarms, action, dryRun)

	alarms, err := m.listAlarms(ctx)
	if err != nil {
		result.addError(err)
		return result
	}
	if len(alarms) == 0 {
		result.addWarning(fmt.Sprintf("no alarms found with prefix %q", m.prefix))
		return result
	}

	var names []string
	for _, alarm := range alarms {
		name := aws.ToString(alarm.AlarmName)
		if aws.ToBool(alarm.ActionsEnabled) == enable {
			result.addWarning(fmt.Sprintf("alarm %s actions already %s", name, actionState(enable)))
			result.addAffected(name)
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return result
	}

	if !dryRun {
		err = retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
			var apiErr error
			if enable {
				_, apiErr = m.client.EnableAlarmActions(ctx, &cloudwatch.EnableAlarmActionsInput{AlarmNames: names})
				if apiErr != nil {
					return errors.Classify(apiErr, "cloudwatch", "EnableAlarmActions")
				}
			} else {
				_, apiErr = m.client.DisableAlarmActions(ctx, &cloudwatch.DisableAlarmActionsInput{AlarmNames: names})
				if apiErr != nil {
					return errors.Classify(apiErr, "cloudwatch", "DisableAlarmActions")
				}
			}
			return nil
		})
		if err != nil {
			result.addError(err)
			return result
		}
	}

	msg := "alarm actions " + actionState(enable)
	if dryRun {
		msg = "dry run, alarm actions would be " + actionState(enable)
	}
	m.log.WithFields(map[string]interface{}{
		"prefix": m.prefix,
		"count":  len(names),
	}).Info(msg)
	result.ResourcesAffected = append(result.ResourcesAffected, names...)
	return result
}

// Status reports the alarm set state based on how many alarms have
// actions enabled.
func (m *AlarmSetManager) Status(ctx context.Context) (*StatusSnapshot, error) {
	alarms, err := m.listAlarms(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &StatusSnapshot{Kind: KindAlarms}

	enabled := 0
	for _, alarm := range alarms {
		state := StateStopped
		if aws.ToBool(alarm.ActionsEnabled) {
			state = StateRunning
			enabled++
		}
		snapshot.Resources = append(snapshot.Resources, ResourceStatus{
			Name:  aws.ToString(alarm.AlarmName),
			State: state,
			Details: map[string]interface{}{
				"actions_enabled": aws.ToBool(alarm.ActionsEnabled),
				"state_value":     string(alarm.StateValue),
			},
		})
	}

	switch {
	case len(alarms) == 0:
		snapshot.State = StateUnknown
	case enabled == len(alarms):
		snapshot.State = StateRunning
	case enabled == 0:
		snapshot.State = StateStopped
	default:
		snapshot.State = StateFailed
	}
	snapshot.Details = map[string]interface{}{
		"alarm_count":   len(alarms),
		"enabled_count": enabled,
	}

	return snapshot, nil
}

// EstimateCost prices the alarm set. The figure does not depend on
// whether actions are enabled.
func (m *AlarmSetManager) EstimateCost(ctx context.Context) (costs.ServiceCost, error) {
	alarms, err := m.listAlarms(ctx)
	if err != nil {
		return costs.ServiceCost{}, err
	}
	return m.calc.AlarmCost(len(alarms)), nil
}

// SaveConfiguration records each alarm's actions-enabled flag.
func (m *AlarmSetManager) SaveConfiguration(ctx context.Context) ([]map[string]interface{}, error) {
	alarms, err := m.listAlarms(ctx)
	if err != nil {
		return nil, err
	}

	var saved []map[string]interface{}
	for _, alarm := range alarms {
		saved = append(saved, map[string]interface{}{
			"alarm_name":      aws.ToString(alarm.AlarmName),
			"actions_enabled": aws.ToBool(alarm.ActionsEnabled),
		})
	}
	return saved, nil
}

// RestoreConfiguration reapplies saved actions-enabled flags.
func (m *AlarmSetManager) RestoreConfiguration(ctx context.Context, saved []map[string]interface{}, dryRun bool) *OperationResult {
	result := newResult(KindAlarms, "restore", dryRun)

	// Current state decides which saved flags still need applying.
	currentEnabled := map[string]bool{}
	if alarms, err := m.listAlarms(ctx); err == nil {
		for _, alarm := range alarms {
			currentEnabled[aws.ToString(alarm.AlarmName)] = aws.ToBool(alarm.ActionsEnabled)
		}
	}

	var toEnable, toDisable []string
	for _, entry := range saved {
		name, _ := entry["alarm_name"].(string)
		if name == "" {
			result.addWarning("saved alarm entry without a name, skipping")
			continue
		}
		enabled, _ := entry["actions_enabled"].(bool)
		if current, known := currentEnabled[name]; known && current == enabled {
			result.addWarning(fmt.Sprintf("alarm %s actions already %s", name, actionState(enabled)))
			result.addAffected(name)
			continue
		}
		if enabled {
			toEnable = append(toEnable, name)
		} else {
			toDisable = append(toDisable, name)
		}
	}

	if !dryRun {
		if len(toEnable) > 0 {
			err := retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
				_, apiErr := m.client.EnableAlarmActions(ctx, &cloudwatch.EnableAlarmActionsInput{AlarmNames: toEnable})
				if apiErr != nil {
					return errors.Classify(apiErr, "cloudwatch", "EnableAlarmActions")
				}
				return nil
			})
			if err != nil {
				result.addError(err)
				toEnable = nil
			}
		}
		if len(toDisable) > 0 {
			err := retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
				_, apiErr := m.client.DisableAlarmActions(ctx, &cloudwatch.DisableAlarmActionsInput{AlarmNames: toDisable})
				if apiErr != nil {
					return errors.Classify(apiErr, "cloudwatch", "DisableAlarmActions")
				}
				return nil
			})
			if err != nil {
				result.addError(err)
				toDisable = nil
			}
		}
	}

	result.ResourcesAffected = append(result.ResourcesAffected, toEnable...)
	result.ResourcesAffected = append(result.ResourcesAffected, toDisable...)
	return result
}

// listAlarms pages through every metric alarm under the prefix.
func (m *AlarmSetManager) listAlarms(ctx context.Context) ([]types.MetricAlarm, error) {
	var alarms []types.MetricAlarm
	var next *string

	for {
		var out *cloudwatch.DescribeAlarmsOutput
		err := retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
			o, err := m.client.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
				AlarmNamePrefix: aws.String(m.prefix),
				NextToken:       next,
			})
			if err != nil {
				return errors.Classify(err, "cloudwatch", "DescribeAlarms")
			}
			out = o
			return nil
		})
		if err != nil {
			return nil, err
		}

		alarms = append(alarms, out.MetricAlarms...)
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}

	return alarms, nil
}

func actionState(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
