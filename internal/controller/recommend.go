package controller

import (
	"fmt"

	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/managers"
)

// recommend derives actionable suggestions from a status report. The
// rules are deliberately few: they fire only on states a human would
// want to act on.
func recommend(report *StatusReport, calc *costs.Calculator) []string {
	var recs []string

	stream := report.Snapshots[managers.KindStream]
	functions := report.Snapshots[managers.KindFunctions]
	alarms := report.Snapshots[managers.KindAlarms]

	if stream != nil && stream.State == managers.StateRunning {
		if shards, ok := streamShardCount(stream); ok && shards > managers.MinimalShardCount {
			savings := calc.StreamCost(shards, 24).MonthlyCost -
				calc.StreamCost(managers.MinimalShardCount, 24).MonthlyCost
			recs = append(recs, fmt.Sprintf(
				"environment is running, stopping it would save about $%.2f/month", savings))
		}
	}

	if stream != nil && stream.State == managers.StateStopped {
		recs = append(recs,
			"stream is at minimal capacity, run 'costctl start' before sending production traffic")
	}

	if stream != nil && stream.State == managers.StateStopped &&
		functions != nil && functions.State == managers.StateRunning {
		recs = append(recs,
			"functions are still enabled while the stream is stopped, run 'costctl stop' to disable them")
	}

	if stream != nil && stream.State == managers.StateRunning &&
		alarms != nil && alarms.State == managers.StateStopped {
		recs = append(recs,
			"alarm actions are disabled while the environment is running, run 'costctl start' to restore monitoring")
	}

	if functions != nil && functions.State == managers.StateFailed {
		recs = append(recs,
			"functions are in a mixed state, run 'costctl stop' or 'costctl start' to converge them")
	}

	return recs
}

func streamShardCount(snapshot *managers.StatusSnapshot) (int, bool) {
	if len(snapshot.Resources) == 0 {
		return 0, false
	}
	return managers.IntField(snapshot.Resources[0].Details, "shard_count")
}
