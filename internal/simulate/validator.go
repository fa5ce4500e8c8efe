package simulate

import (
	"fmt"

	"github.com/ujanalytics/costctl/internal/managers"
	"github.com/ujanalytics/costctl/internal/state"
)

// Snapshot bundles the observed state of every managed resource group,
// captured once so validation and simulation work from the same view.
type Snapshot struct {
	Stream    *managers.StatusSnapshot
	Functions *managers.StatusSnapshot
	Alarms    *managers.StatusSnapshot
}

// validateStop records findings that would make a stop pointless or
// unsafe. None of them block: a stop of an already-stopped environment
// is a no-op, not a failure.
func validateStop(result *Result, snap Snapshot) {
	if snap.Stream == nil && snap.Functions == nil && snap.Alarms == nil {
		result.addError("no resource state available, cannot simulate stop")
		return
	}

	if snap.Stream != nil && snap.Stream.State == managers.StateStopped {
		result.addWarning("stream already at minimal capacity")
	}
	if snap.Functions != nil && snap.Functions.State == managers.StateStopped {
		result.addWarning("all functions already disabled")
	}
	if snap.Alarms != nil && snap.Alarms.State == managers.StateStopped {
		result.addWarning("all alarm actions already disabled")
	}
}

// validateStart checks that a start has something to start from. A
// missing or empty state document is an error: starting without saved
// configuration would guess at shard counts and concurrency limits.
func validateStart(result *Result, snap Snapshot, doc *state.Document) {
	if doc == nil || len(doc.Resources) == 0 {
		result.addError("no saved state to restore from, run stop first or restore a snapshot")
		return
	}

	for _, kind := range []managers.Kind{managers.KindStream, managers.KindFunctions, managers.KindAlarms} {
		if len(doc.Resources[string(kind)]) == 0 {
			result.addWarning(fmt.Sprintf("saved state has no %s entries", kind))
		}
	}

	checkSavedExist(result, doc, managers.KindStream, "stream_name", snap.Stream)
	checkSavedExist(result, doc, managers.KindFunctions, "function_name", snap.Functions)
	checkSavedExist(result, doc, managers.KindAlarms, "alarm_name", snap.Alarms)

	if snap.Stream != nil && snap.Stream.State == managers.StateRunning {
		result.addWarning("stream already at operating capacity")
	}
	if snap.Functions != nil && snap.Functions.State == managers.StateRunning {
		result.addWarning("all functions already enabled")
	}
	if snap.Alarms != nil && snap.Alarms.State == managers.StateRunning {
		result.addWarning("all alarm actions already enabled")
	}
}

// checkSavedExist flags saved resources that no longer exist. Restoring
// a deleted resource cannot succeed, so these are errors.
func checkSavedExist(result *Result, doc *state.Document, kind managers.Kind, nameKey string, snapshot *managers.StatusSnapshot) {
	if snapshot == nil {
		return
	}

	existing := map[string]bool{}
	for _, res := range snapshot.Resources {
		existing[res.Name] = true
	}

	for _, entry := range doc.Resources[string(kind)] {
		name, _ := entry[nameKey].(string)
		if name == "" {
			continue
		}
		if !existing[name] {
			result.addError(fmt.Sprintf("saved %s %q no longer exists", kind, name))
		}
	}
}
