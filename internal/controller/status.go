package controller

import (
	"context"

	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/managers"
	"github.com/ujanalytics/costctl/internal/state"
)

// StatusReport is the full picture the status command renders: per-group
// state, the current cost estimate, and what to do about it.
type StatusReport struct {
	Project         string                                     `json:"project"`
	Environment     string                                     `json:"environment"`
	Snapshots       map[managers.Kind]*managers.StatusSnapshot `json:"snapshots"`
	Costs           costs.Estimate                             `json:"costs"`
	Recommendations []string                                   `json:"recommendations,omitempty"`
	Backups         []state.BackupInfo                         `json:"backups,omitempty"`
	Errors          []string                                   `json:"errors,omitempty"`
}

// Status inspects every resource group and prices the environment.
// Groups that cannot be reached degrade to an error entry instead of
// failing the whole report.
func (c *Controller) Status(ctx context.Context) *StatusReport {
	report := &StatusReport{
		Project:     c.project,
		Environment: c.environment,
		Snapshots:   map[managers.Kind]*managers.StatusSnapshot{},
	}

	var serviceCosts []costs.ServiceCost
	for _, m := range []managers.Manager{c.stream, c.functions, c.alarms} {
		snapshot, err := m.Status(ctx)
		if err != nil {
			report.Errors = append(report.Errors, string(m.Kind())+": "+err.Error())
			continue
		}
		report.Snapshots[m.Kind()] = snapshot

		cost, err := m.EstimateCost(ctx)
		if err != nil {
			report.Errors = append(report.Errors, string(m.Kind())+" cost: "+err.Error())
			continue
		}
		serviceCosts = append(serviceCosts, cost)
	}

	report.Costs = c.calc.Total(serviceCosts)
	report.Recommendations = recommend(report, c.calc)

	if c.backup != nil {
		report.Backups = c.backup.List(ctx, c.project, c.environment)
	}

	return report
}
