package controller

import (
	"time"

	"github.com/google/uuid"

	"github.com/ujanalytics/costctl/internal/logger"
)

// AuditEntry tags one controller operation with a unique id so every
// log line and result it produces can be correlated afterwards.
type AuditEntry struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Project     string    `json:"project"`
	Environment string    `json:"environment"`
	DryRun      bool      `json:"dry_run"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Success     bool      `json:"success"`

	log logger.Logger
}

// beginAudit opens an audit entry and returns it together with a
// logger that stamps the operation id on every line.
func beginAudit(log logger.Logger, operation, project, environment string, dryRun bool) (*AuditEntry, logger.Logger) {
	entry := &AuditEntry{
		ID:          uuid.NewString(),
		Operation:   operation,
		Project:     project,
		Environment: environment,
		DryRun:      dryRun,
		StartedAt:   time.Now().UTC(),
		log:         log,
	}

	scoped := log.WithFields(map[string]interface{}{
		"operation_id": entry.ID,
		"operation":    operation,
		"dry_run":      dryRun,
	})
	scoped.Info("operation started")

	return entry, scoped
}

// Finish closes the entry and logs the outcome.
func (e *AuditEntry) Finish(success bool) {
	e.FinishedAt = time.Now().UTC()
	e.Success = success

	e.log.WithFields(map[string]interface{}{
		"operation_id": e.ID,
		"operation":    e.Operation,
		"success":      success,
		"duration":     e.FinishedAt.Sub(e.StartedAt).String(),
	}).Info("operation finished")
}

// Duration returns how long the operation ran, zero while still open.
func (e *AuditEntry) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
