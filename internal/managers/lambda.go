package managers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/ujanalytics/costctl/internal/awsclient"
	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/retry"
)

// FunctionSetConfig configures the Lambda function-set manager.
type FunctionSetConfig struct {
	FunctionNames []string
}

// FunctionSetManager disables a set of Lambda functions by setting
// their reserved concurrency to zero, which rejects all invocations
// without touching code or triggers. Starting removes the reservation.
type FunctionSetManager struct {
	client   awsclient.LambdaAPI
	calc     *costs.Calculator
	log      logger.Logger
	retryCfg retry.Config

	functionNames []string
}

// NewFunctionSetManager creates a manager for the given functions.
func NewFunctionSetManager(client awsclient.LambdaAPI, calc *costs.Calculator, log logger.Logger, cfg FunctionSetConfig) *FunctionSetManager {
	return &FunctionSetManager{
		client:        client,
		calc:          calc,
		log:           log,
		retryCfg:      retry.DefaultConfig(),
		functionNames: cfg.FunctionNames,
	}
}

func (m *FunctionSetManager) Kind() Kind {
	return KindFunctions
}

// Stop sets reserved concurrency to zero on every function. A failure
// on one function does not stop the rest. Functions already at zero
// and functions that no longer exist degrade to warnings.
func (m *FunctionSetManager) Stop(ctx context.Context, dryRun bool) *OperationResult {
	result := newResult(KindFunctions, "stop", dryRun)

	for _, name := range m.functionNames {
		concurrency, err := m.getConcurrency(ctx, name)
		if err != nil {
			if errors.IsNotFound(err) {
				result.addWarning(fmt.Sprintf("function %s not found, skipping", name))
				continue
			}
			result.addError(fmt.Errorf("%s: %w", name, err))
			continue
		}
		if concurrency != nil && *concurrency == 0 {
			result.addWarning(fmt.Sprintf("function %s already disabled", name))
			result.addAffected(name)
			continue
		}

		if dryRun {
			result.addAffected(name)
			continue
		}

		err = retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
			_, err := m.client.PutFunctionConcurrency(ctx, &lambda.PutFunctionConcurrencyInput{
				FunctionName:                 aws.String(name),
				ReservedConcurrentExecutions: aws.Int32(0),
			})
			if err != nil {
				return errors.Classify(err, "lambda", "PutFunctionConcurrency")
			}
			return nil
		})
		if err != nil {
			result.addError(fmt.Errorf("%s: %w", name, err))
			continue
		}

		m.log.WithField("function", name).Info("function disabled")
		result.addAffected(name)
	}

	return result
}

// Start deletes the concurrency reservation on every function. A
// missing reservation means the function was never stopped, which is
// a warning, not a failure.
func (m *FunctionSetManager) Start(ctx context.Context, dryRun bool) *OperationResult {
	result := newResult(KindFunctions, "start", dryRun)

	for _, name := range m.functionNames {
		if dryRun {
			result.addAffected(name)
			continue
		}

		err := retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
			_, err := m.client.DeleteFunctionConcurrency(ctx, &lambda.DeleteFunctionConcurrencyInput{
				FunctionName: aws.String(name),
			})
			if err != nil {
				return errors.Classify(err, "lambda", "DeleteFunctionConcurrency")
			}
			return nil
		})
		if err != nil {
			if errors.IsNotFound(err) {
				result.addWarning(fmt.Sprintf("function %s has no concurrency reservation, already started", name))
				result.addAffected(name)
				continue
			}
			result.addError(fmt.Errorf("%s: %w", name, err))
			continue
		}

		m.log.WithField("function", name).Info("function enabled")
		result.addAffected(name)
	}

	return result
}

// Status inspects the concurrency reservation of every function. Zero
// reserved concurrency means stopped, anything else means running.
func (m *FunctionSetManager) Status(ctx context.Context) (*StatusSnapshot, error) {
	snapshot := &StatusSnapshot{Kind: KindFunctions}

	stopped := 0
	for _, name := range m.functionNames {
		concurrency, err := m.getConcurrency(ctx, name)
		if err != nil {
			if errors.IsNotFound(err) {
				snapshot.Resources = append(snapshot.Resources, ResourceStatus{
					Name:    name,
					State:   StateUnknown,
					Details: map[string]interface{}{"error": "function not found"},
				})
				continue
			}
			return nil, err
		}

		state := StateRunning
		details := map[string]interface{}{}
		if concurrency == nil {
			details["reserved_concurrency"] = nil
		} else {
			details["reserved_concurrency"] = *concurrency
			if *concurrency == 0 {
				state = StateStopped
				stopped++
			}
		}

		snapshot.Resources = append(snapshot.Resources, ResourceStatus{
			Name:    name,
			State:   state,
			Details: details,
		})
	}

	switch {
	case len(m.functionNames) == 0:
		snapshot.State = StateUnknown
	case stopped == len(m.functionNames):
		snapshot.State = StateStopped
	case stopped == 0:
		snapshot.State = StateRunning
	default:
		snapshot.State = StateFailed
	}
	snapshot.Details = map[string]interface{}{
		"function_count": len(m.functionNames),
		"stopped_count":  stopped,
	}

	return snapshot, nil
}

// EstimateCost is exactly zero: Lambda has no idle charge.
func (m *FunctionSetManager) EstimateCost(ctx context.Context) (costs.ServiceCost, error) {
	return m.calc.FunctionIdleCost(len(m.functionNames)), nil
}

// SaveConfiguration records each function's concurrency reservation,
// including its absence, so restore can reproduce it.
func (m *FunctionSetManager) SaveConfiguration(ctx context.Context) ([]map[string]interface{}, error) {
	var saved []map[string]interface{}

	for _, name := range m.functionNames {
		concurrency, err := m.getConcurrency(ctx, name)
		if err != nil {
			if errors.IsNotFound(err) {
				m.log.WithField("function", name).Warn("function not found, skipping in saved configuration")
				continue
			}
			return nil, err
		}

		entry := map[string]interface{}{"function_name": name}
		if concurrency != nil {
			entry["reserved_concurrency"] = int(*concurrency)
		} else {
			entry["reserved_concurrency"] = nil
		}
		saved = append(saved, entry)
	}

	return saved, nil
}

// RestoreConfiguration reapplies saved concurrency reservations. A nil
// saved value means the function had no reservation, so any present
// reservation is deleted.
func (m *FunctionSetManager) RestoreConfiguration(ctx context.Context, saved []map[string]interface{}, dryRun bool) *OperationResult {
	result := newResult(KindFunctions, "restore", dryRun)

	for _, entry := range saved {
		name, _ := entry["function_name"].(string)
		if name == "" {
			result.addWarning("saved function entry without a name, skipping")
			continue
		}

		if dryRun {
			result.addAffected(name)
			continue
		}

		target, hasTarget := IntField(entry, "reserved_concurrency")
		if current, err := m.getConcurrency(ctx, name); err == nil {
			if hasTarget && current != nil && int(*current) == target {
				result.addWarning(fmt.Sprintf("function %s already at saved concurrency %d", name, target))
				result.addAffected(name)
				continue
			}
			if !hasTarget && current == nil {
				result.addWarning(fmt.Sprintf("function %s already has no concurrency reservation", name))
				result.addAffected(name)
				continue
			}
		}

		var err error
		if concurrency, ok := IntField(entry, "reserved_concurrency"); ok {
			err = retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
				_, apiErr := m.client.PutFunctionConcurrency(ctx, &lambda.PutFunctionConcurrencyInput{
					FunctionName:                 aws.String(name),
					ReservedConcurrentExecutions: aws.Int32(int32(concurrency)),
				})
				if apiErr != nil {
					return errors.Classify(apiErr, "lambda", "PutFunctionConcurrency")
				}
				return nil
			})
		} else {
			err = retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
				_, apiErr := m.client.DeleteFunctionConcurrency(ctx, &lambda.DeleteFunctionConcurrencyInput{
					FunctionName: aws.String(name),
				})
				if apiErr != nil {
					return errors.Classify(apiErr, "lambda", "DeleteFunctionConcurrency")
				}
				return nil
			})
			if err != nil && errors.IsNotFound(err) {
				err = nil
			}
		}

		if err != nil {
			result.addError(fmt.Errorf("%s: %w", name, err))
			continue
		}
		result.addAffected(name)
	}

	return result
}

// getConcurrency returns the reserved concurrency of a function, nil
// when no reservation exists.
func (m *FunctionSetManager) getConcurrency(ctx context.Context, name string) (*int32, error) {
	var out *lambda.GetFunctionConcurrencyOutput
	err := retry.Do(ctx, m.log, m.retryCfg, retry.DefaultClassifier, func(ctx context.Context) error {
		o, err := m.client.GetFunctionConcurrency(ctx, &lambda.GetFunctionConcurrencyInput{
			FunctionName: aws.String(name),
		})
		if err != nil {
			return errors.Classify(err, "lambda", "GetFunctionConcurrency")
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.ReservedConcurrentExecutions, nil
}
