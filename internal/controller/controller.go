package controller

import (
	"context"
	"fmt"

	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/managers"
	"github.com/ujanalytics/costctl/internal/simulate"
	"github.com/ujanalytics/costctl/internal/state"
)

// Config identifies the environment the controller operates on.
type Config struct {
	Project     string
	Environment string
}

// Controller orchestrates the resource managers: it owns operation
// ordering, state snapshots around stops, and aggregate reporting.
type Controller struct {
	stream    managers.Manager
	functions managers.Manager
	alarms    managers.Manager

	store  *state.Store
	backup *state.S3Backup
	calc   *costs.Calculator
	log    logger.Logger

	project     string
	environment string
}

// New wires a controller. backup may be nil when no S3 bucket is
// configured; the S3 mirror is skipped in that case.
func New(stream, functions, alarms managers.Manager, store *state.Store, backup *state.S3Backup, calc *costs.Calculator, log logger.Logger, cfg Config) *Controller {
	return &Controller{
		stream:      stream,
		functions:   functions,
		alarms:      alarms,
		store:       store,
		backup:      backup,
		calc:        calc,
		log:         log,
		project:     cfg.Project,
		environment: cfg.Environment,
	}
}

// Result aggregates the outcome of a stop or start across all
// resource groups.
type Result struct {
	Operation string                      `json:"operation"`
	DryRun    bool                        `json:"dry_run"`
	Audit     *AuditEntry                 `json:"audit"`
	Results   []*managers.OperationResult `json:"results"`
	Errors    []string                    `json:"errors,omitempty"`
	Warnings  []string                    `json:"warnings,omitempty"`
	Savings   *costs.Comparison           `json:"savings,omitempty"`
	StateFile string                      `json:"state_file,omitempty"`
	BackupKey string                      `json:"backup_key,omitempty"`
}

// Success reports whether the operation achieved anything: no errors
// anywhere and at least one resource affected overall.
func (r *Result) Success() bool {
	if len(r.Errors) > 0 {
		return false
	}

	affected := 0
	for _, res := range r.Results {
		if len(res.Errors) > 0 {
			return false
		}
		affected += len(res.ResourcesAffected)
	}
	return affected > 0
}

// AllErrors flattens controller-level and per-group errors.
func (r *Result) AllErrors() []string {
	out := append([]string{}, r.Errors...)
	for _, res := range r.Results {
		out = append(out, res.Errors...)
	}
	return out
}

// AllWarnings flattens controller-level and per-group warnings.
func (r *Result) AllWarnings() []string {
	out := append([]string{}, r.Warnings...)
	for _, res := range r.Results {
		out = append(out, res.Warnings...)
	}
	return out
}

// StopAll saves the running configuration and stops every group in
// dependency order: functions first so nothing writes to the stream
// while it shrinks, then the stream, then alarm actions.
func (c *Controller) StopAll(ctx context.Context, dryRun bool) *Result {
	audit, log := beginAudit(c.log, "stop", c.project, c.environment, dryRun)
	result := &Result{Operation: "stop", DryRun: dryRun, Audit: audit}

	doc := c.captureConfiguration(ctx, result)
	if !dryRun && doc != nil {
		// A failed snapshot write degrades the stop, it does not
		// abort it: the resources still cost money every hour.
		if err := c.store.Save(doc); err != nil {
			result.Warnings = append(result.Warnings, "failed to save state file: "+err.Error())
		} else {
			result.StateFile = c.store.Path()
		}

		if c.backup != nil {
			key, err := c.backup.Upload(ctx, doc)
			if err != nil {
				result.Warnings = append(result.Warnings, "failed to mirror state to S3: "+err.Error())
			} else {
				result.BackupKey = key
			}
		}
	}

	for _, m := range []managers.Manager{c.functions, c.stream, c.alarms} {
		r := m.Stop(ctx, dryRun)
		result.Results = append(result.Results, r)
		log.WithFields(map[string]interface{}{
			"kind":     string(m.Kind()),
			"affected": len(r.ResourcesAffected),
			"errors":   len(r.Errors),
		}).Debug("group stopped")
	}

	result.Savings = c.estimateSavings(ctx, doc)

	audit.Finish(result.Success())
	return result
}

// StartAll restores the saved configuration in reverse order: alarm
// actions first so monitoring is live before traffic, then the stream,
// then functions. A verification pass confirms the groups came back.
func (c *Controller) StartAll(ctx context.Context, dryRun bool) *Result {
	audit, log := beginAudit(c.log, "start", c.project, c.environment, dryRun)
	result := &Result{Operation: "start", DryRun: dryRun, Audit: audit}

	// A missing snapshot is not fatal: fall back to each group's
	// default start behavior and say so. A snapshot that exists but
	// cannot be read is a different matter; silently defaulting over
	// a corrupt state file would discard the saved configuration.
	doc, err := c.store.Load()
	if err != nil {
		if !errors.IsNotFound(err) {
			result.Errors = append(result.Errors, err.Error())
			audit.Finish(false)
			return result
		}
		result.Warnings = append(result.Warnings,
			"no saved state found, starting with defaults: "+err.Error())
	}

	for _, m := range []managers.Manager{c.alarms, c.stream, c.functions} {
		var r *managers.OperationResult
		if doc != nil {
			r = m.RestoreConfiguration(ctx, doc.Resources[string(m.Kind())], dryRun)
		} else {
			r = m.Start(ctx, dryRun)
		}
		result.Results = append(result.Results, r)
		log.WithFields(map[string]interface{}{
			"kind":     string(m.Kind()),
			"affected": len(r.ResourcesAffected),
			"errors":   len(r.Errors),
		}).Debug("group restored")
	}

	if !dryRun {
		c.verifyStarted(ctx, result)
	}

	audit.Finish(result.Success())
	return result
}

// StartFromDocument restores a specific snapshot, used when recovering
// from an S3 backup instead of the local state file.
func (c *Controller) StartFromDocument(ctx context.Context, doc *state.Document, dryRun bool) *Result {
	audit, _ := beginAudit(c.log, "start", c.project, c.environment, dryRun)
	result := &Result{Operation: "start", DryRun: dryRun, Audit: audit}

	if err := doc.Validate(); err != nil {
		result.Errors = append(result.Errors, err.Error())
		audit.Finish(false)
		return result
	}

	for _, m := range []managers.Manager{c.alarms, c.stream, c.functions} {
		r := m.RestoreConfiguration(ctx, doc.Resources[string(m.Kind())], dryRun)
		result.Results = append(result.Results, r)
	}

	if !dryRun {
		c.verifyStarted(ctx, result)
	}

	audit.Finish(result.Success())
	return result
}

// captureConfiguration asks every manager for its restore settings.
// Groups that cannot be captured degrade to warnings so the rest of
// the snapshot still gets written.
func (c *Controller) captureConfiguration(ctx context.Context, result *Result) *state.Document {
	doc := state.NewDocument(c.project, c.environment)

	for _, m := range []managers.Manager{c.stream, c.functions, c.alarms} {
		saved, err := m.SaveConfiguration(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("failed to capture %s configuration: %v", m.Kind(), err))
			continue
		}
		doc.Resources[string(m.Kind())] = saved
	}

	return doc
}

// estimateSavings prices the environment before and after the stop.
// The stream is the only group whose idle cost changes: functions have
// no idle charge and alarms bill regardless of their actions.
func (c *Controller) estimateSavings(ctx context.Context, doc *state.Document) *costs.Comparison {
	if doc == nil {
		return nil
	}

	shards, retention, ok := savedStreamShape(doc)
	if !ok {
		return nil
	}

	alarmCost, err := c.alarms.EstimateCost(ctx)
	if err != nil {
		alarmCost = costs.ServiceCost{ServiceName: "CloudWatch"}
	}
	functionCost, err := c.functions.EstimateCost(ctx)
	if err != nil {
		functionCost = costs.ServiceCost{ServiceName: "Lambda"}
	}

	current := []costs.ServiceCost{
		c.calc.StreamCost(shards, retention),
		functionCost,
		alarmCost,
	}
	optimized := []costs.ServiceCost{
		c.calc.StreamCost(managers.MinimalShardCount, retention),
		functionCost,
		alarmCost,
	}

	cmp := c.calc.Compare(current, optimized)
	return &cmp
}

func (c *Controller) verifyStarted(ctx context.Context, result *Result) {
	for _, m := range []managers.Manager{c.stream, c.functions, c.alarms} {
		snapshot, err := m.Status(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("could not verify %s after start: %v", m.Kind(), err))
			continue
		}
		switch snapshot.State {
		case managers.StateRunning:
		case managers.StateStarting:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s still updating after start", m.Kind()))
		default:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s reports %s after start", m.Kind(), snapshot.State))
		}
	}
}

func savedStreamShape(doc *state.Document) (shards, retention int, ok bool) {
	entries := doc.Resources[string(managers.KindStream)]
	if len(entries) == 0 {
		return 0, 0, false
	}

	entry := entries[0]
	shards, sok := managers.IntField(entry, "shard_count")
	retention, rok := managers.IntField(entry, "retention_hours")
	if !rok {
		retention = 24
	}
	return shards, retention, sok
}

// Simulate runs the dry-run validator and simulator against the live
// status snapshots.
func (c *Controller) Simulate(ctx context.Context, operation string) (*simulate.Result, error) {
	snap, errs := c.snapshots(ctx)
	sim := simulate.NewSimulator(c.calc, c.log)

	var result *simulate.Result
	switch operation {
	case "stop":
		result = sim.SimulateStop(snap)
	case "start":
		doc, err := c.store.Load()
		if err != nil {
			doc = nil
		}
		result = sim.SimulateStart(snap, doc)
	default:
		return nil, fmt.Errorf("unknown operation %q", operation)
	}

	result.Warnings = append(result.Warnings, errs...)
	return result, nil
}

func (c *Controller) snapshots(ctx context.Context) (simulate.Snapshot, []string) {
	var snap simulate.Snapshot
	var errs []string

	if s, err := c.stream.Status(ctx); err != nil {
		errs = append(errs, "stream status unavailable: "+err.Error())
	} else {
		snap.Stream = s
	}
	if s, err := c.functions.Status(ctx); err != nil {
		errs = append(errs, "function status unavailable: "+err.Error())
	} else {
		snap.Functions = s
	}
	if s, err := c.alarms.Status(ctx); err != nil {
		errs = append(errs, "alarm status unavailable: "+err.Error())
	} else {
		snap.Alarms = s
	}

	return snap, errs
}
