package simulate

import (
	"fmt"

	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/managers"
	"github.com/ujanalytics/costctl/internal/state"
)

// Simulator derives the change set a stop or start would apply without
// touching AWS. Cost figures come from the same calculator the live
// path uses, so dry-run and live estimates always agree.
type Simulator struct {
	calc *costs.Calculator
	log  logger.Logger
}

// NewSimulator creates a simulator on the given cost calculator.
func NewSimulator(calc *costs.Calculator, log logger.Logger) *Simulator {
	return &Simulator{calc: calc, log: log}
}

// SimulateStop derives the changes a stop would make.
func (s *Simulator) SimulateStop(snap Snapshot) *Result {
	result := &Result{Operation: "stop"}

	validateStop(result, snap)
	if result.HasErrors() {
		return result
	}

	s.streamScaleDown(result, snap.Stream)
	s.functionChanges(result, snap.Functions, false, nil)
	s.alarmChanges(result, snap.Alarms, false, nil)

	s.priceResult(result, snap)
	return result
}

// SimulateStart derives the changes a start would make, working from
// the saved state document the way the live restore path does.
func (s *Simulator) SimulateStart(snap Snapshot, doc *state.Document) *Result {
	result := &Result{Operation: "start"}

	validateStart(result, snap, doc)
	if result.HasErrors() {
		return result
	}

	s.streamScaleUp(result, snap.Stream, doc.Resources[string(managers.KindStream)])
	s.functionChanges(result, snap.Functions, true, doc.Resources[string(managers.KindFunctions)])
	s.alarmChanges(result, snap.Alarms, true, doc.Resources[string(managers.KindAlarms)])

	s.priceResult(result, snap)
	return result
}

// priceResult brackets the change set with monthly cost estimates.
// Functions carry no idle charge, so the current figure is the stream
// plus the alarm set.
func (s *Simulator) priceResult(result *Result, snap Snapshot) {
	if shards, retention, _, ok := streamDetails(snap.Stream); ok {
		result.CurrentMonthlyCost += s.calc.StreamCost(shards, retention).MonthlyCost
	}
	if snap.Alarms != nil {
		result.CurrentMonthlyCost += s.calc.AlarmCost(len(snap.Alarms.Resources)).MonthlyCost
	}
	result.ProjectedMonthlyCost = result.CurrentMonthlyCost - result.TotalCostImpact
}

// streamScaleDown proposes reducing the stream to the one-shard floor.
// Freeing more than one shard at once grades medium: resharding from a
// wide stream redistributes partition keys across far fewer shards.
func (s *Simulator) streamScaleDown(result *Result, snapshot *managers.StatusSnapshot) {
	shards, retention, name, ok := streamDetails(snapshot)
	if !ok || shards <= managers.MinimalShardCount {
		return
	}

	risk := RiskLow
	if shards > managers.DefaultShardCount {
		risk = RiskMedium
	}

	current := s.calc.StreamCost(shards, retention).MonthlyCost
	proposed := s.calc.StreamCost(managers.MinimalShardCount, retention).MonthlyCost

	result.addChange(ResourceChange{
		ResourceType:      string(managers.KindStream),
		ResourceName:      name,
		Action:            ActionScaleDown,
		CurrentValue:      shards,
		ProposedValue:     managers.MinimalShardCount,
		CostImpactMonthly: current - proposed,
		Risk:              risk,
		Description:       fmt.Sprintf("scale stream from %d to %d shards", shards, managers.MinimalShardCount),
	})
}

func (s *Simulator) streamScaleUp(result *Result, snapshot *managers.StatusSnapshot, saved []map[string]interface{}) {
	shards, retention, name, ok := streamDetails(snapshot)
	if !ok {
		return
	}

	target := managers.DefaultShardCount
	for _, entry := range saved {
		if v, ok := managers.IntField(entry, "shard_count"); ok && v >= managers.MinimalShardCount {
			target = v
		}
	}
	if shards >= target {
		return
	}

	current := s.calc.StreamCost(shards, retention).MonthlyCost
	proposed := s.calc.StreamCost(target, retention).MonthlyCost

	result.addChange(ResourceChange{
		ResourceType:      string(managers.KindStream),
		ResourceName:      name,
		Action:            ActionScaleUp,
		CurrentValue:      shards,
		ProposedValue:     target,
		CostImpactMonthly: current - proposed,
		Risk:              RiskLow,
		Description:       fmt.Sprintf("scale stream from %d to %d shards", shards, target),
	})
}

// functionChanges proposes toggling each function. Disabling grades
// high: a function with zero reserved concurrency rejects every
// invocation, including ones from live traffic nobody remembered.
func (s *Simulator) functionChanges(result *Result, snapshot *managers.StatusSnapshot, enable bool, saved []map[string]interface{}) {
	if snapshot == nil {
		return
	}

	savedConcurrency := map[string]interface{}{}
	for _, entry := range saved {
		if name, _ := entry["function_name"].(string); name != "" {
			savedConcurrency[name] = entry["reserved_concurrency"]
		}
	}

	for _, res := range snapshot.Resources {
		if enable {
			if res.State != managers.StateStopped {
				continue
			}
			result.addChange(ResourceChange{
				ResourceType:  string(managers.KindFunctions),
				ResourceName:  res.Name,
				Action:        ActionEnable,
				CurrentValue:  0,
				ProposedValue: savedConcurrency[res.Name],
				Risk:          RiskLow,
				Description:   fmt.Sprintf("restore concurrency for function %s", res.Name),
			})
			continue
		}

		if res.State != managers.StateRunning {
			continue
		}
		result.addChange(ResourceChange{
			ResourceType:  string(managers.KindFunctions),
			ResourceName:  res.Name,
			Action:        ActionDisable,
			CurrentValue:  res.Details["reserved_concurrency"],
			ProposedValue: 0,
			Risk:          RiskHigh,
			Description:   fmt.Sprintf("set reserved concurrency to 0 for function %s", res.Name),
		})
	}
}

// alarmChanges proposes toggling alarm actions. Alarms bill whether or
// not actions fire, so the cost impact is always zero.
func (s *Simulator) alarmChanges(result *Result, snapshot *managers.StatusSnapshot, enable bool, saved []map[string]interface{}) {
	if snapshot == nil {
		return
	}

	savedEnabled := map[string]bool{}
	for _, entry := range saved {
		if name, _ := entry["alarm_name"].(string); name != "" {
			savedEnabled[name], _ = entry["actions_enabled"].(bool)
		}
	}

	for _, res := range snapshot.Resources {
		enabled, _ := res.Details["actions_enabled"].(bool)

		if enable {
			if enabled {
				continue
			}
			if saved != nil && !savedEnabled[res.Name] {
				continue
			}
			result.addChange(ResourceChange{
				ResourceType:  string(managers.KindAlarms),
				ResourceName:  res.Name,
				Action:        ActionEnableActions,
				CurrentValue:  false,
				ProposedValue: true,
				Risk:          RiskLow,
				Description:   fmt.Sprintf("enable actions on alarm %s", res.Name),
			})
			continue
		}

		if !enabled {
			continue
		}
		result.addChange(ResourceChange{
			ResourceType:  string(managers.KindAlarms),
			ResourceName:  res.Name,
			Action:        ActionDisableActions,
			CurrentValue:  true,
			ProposedValue: false,
			Risk:          RiskLow,
			Description:   fmt.Sprintf("disable actions on alarm %s", res.Name),
		})
	}
}

func streamDetails(snapshot *managers.StatusSnapshot) (shards, retention int, name string, ok bool) {
	if snapshot == nil || len(snapshot.Resources) == 0 {
		return 0, 0, "", false
	}

	res := snapshot.Resources[0]
	shards, sok := managers.IntField(res.Details, "shard_count")
	retention, rok := managers.IntField(res.Details, "retention_hours")
	if !rok {
		retention = 24
	}
	return shards, retention, res.Name, sok
}
