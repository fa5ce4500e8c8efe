package managers

import (
	"context"
	"time"

	"github.com/ujanalytics/costctl/internal/costs"
)

// Kind identifies a managed resource group.
type Kind string

const (
	KindStream    Kind = "stream"
	KindFunctions Kind = "functions"
	KindAlarms    Kind = "alarms"
)

// State is the lifecycle state of a resource group.
type State string

const (
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
	StateUnknown  State = "unknown"
)

// OperationResult reports what a stop/start/restore call did. Per-resource
// failures accumulate in Errors instead of aborting the operation.
type OperationResult struct {
	Kind              Kind                   `json:"kind"`
	Action            string                 `json:"action"`
	DryRun            bool                   `json:"dry_run"`
	Timestamp         time.Time              `json:"timestamp"`
	ResourcesAffected []string               `json:"resources_affected"`
	Errors            []string               `json:"errors,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
	Details           map[string]interface{} `json:"details,omitempty"`
}

func newResult(kind Kind, action string, dryRun bool) *OperationResult {
	return &OperationResult{
		Kind:      kind,
		Action:    action,
		DryRun:    dryRun,
		Timestamp: time.Now().UTC(),
	}
}

// Success reports whether the operation achieved anything: no errors
// and at least one resource affected.
func (r *OperationResult) Success() bool {
	return len(r.Errors) == 0 && len(r.ResourcesAffected) > 0
}

func (r *OperationResult) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

func (r *OperationResult) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *OperationResult) addAffected(name string) {
	r.ResourcesAffected = append(r.ResourcesAffected, name)
}

// IntField reads an int out of a decoded JSON map, tolerating the
// float64 that JSON decoding produces.
func IntField(m map[string]interface{}, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// ResourceStatus is the observed state of one resource.
type ResourceStatus struct {
	Name    string                 `json:"name"`
	State   State                  `json:"state"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusSnapshot is the observed state of a whole resource group.
type StatusSnapshot struct {
	Kind      Kind                   `json:"kind"`
	State     State                  `json:"state"`
	Resources []ResourceStatus       `json:"resources"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Manager is the uniform lifecycle contract every resource group
// implements. Stop and Start are idempotent: calling them on a group
// already in the target state succeeds with a warning.
type Manager interface {
	Kind() Kind
	Stop(ctx context.Context, dryRun bool) *OperationResult
	Start(ctx context.Context, dryRun bool) *OperationResult
	Status(ctx context.Context) (*StatusSnapshot, error)
	EstimateCost(ctx context.Context) (costs.ServiceCost, error)

	// SaveConfiguration captures the settings Start needs to restore the
	// group exactly; RestoreConfiguration applies a previously saved set.
	SaveConfiguration(ctx context.Context) ([]map[string]interface{}, error)
	RestoreConfiguration(ctx context.Context, saved []map[string]interface{}, dryRun bool) *OperationResult
}
