package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ujanalytics/costctl/internal/controller"
	"github.com/ujanalytics/costctl/internal/managers"
	"github.com/ujanalytics/costctl/internal/simulate"
	"github.com/ujanalytics/costctl/internal/state"
)

// Format names an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Renderer formats controller results for the terminal.
type Renderer struct {
	format Format

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	bold   *color.Color
}

// NewRenderer creates a renderer. noColor disables ANSI colors, which
// also happens automatically when stdout is not a terminal.
func NewRenderer(format Format, noColor bool) *Renderer {
	if noColor {
		color.NoColor = true
	}
	return &Renderer{
		format: format,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		bold:   color.New(color.Bold),
	}
}

// FormatOperation renders a stop/start result.
func (r *Renderer) FormatOperation(result *controller.Result) ([]byte, error) {
	if r.format == FormatJSON {
		return marshalJSON(result)
	}

	var buf bytes.Buffer

	header := strings.ToUpper(result.Operation)
	if result.DryRun {
		header += " (dry run)"
	}
	r.bold.Fprintln(&buf, header)

	for _, group := range result.Results {
		status := r.green.Sprint("ok")
		if len(group.Errors) > 0 {
			status = r.red.Sprint("failed")
		} else if len(group.ResourcesAffected) == 0 {
			status = r.yellow.Sprint("no change")
		}
		fmt.Fprintf(&buf, "  %-10s %s", group.Kind, status)
		if len(group.ResourcesAffected) > 0 {
			fmt.Fprintf(&buf, "  %s", strings.Join(group.ResourcesAffected, ", "))
		}
		fmt.Fprintln(&buf)
	}

	for _, w := range result.AllWarnings() {
		r.yellow.Fprintf(&buf, "  warning: %s\n", w)
	}
	for _, e := range result.AllErrors() {
		r.red.Fprintf(&buf, "  error: %s\n", e)
	}

	if result.Savings != nil && result.Operation == "stop" {
		fmt.Fprintf(&buf, "\nEstimated savings: $%.2f/day, $%.2f/month (%.1f%%)\n",
			result.Savings.SavingsDaily, result.Savings.SavingsMonthly, result.Savings.SavingsPercentage)
	}
	if result.StateFile != "" {
		fmt.Fprintf(&buf, "State saved to %s\n", result.StateFile)
	}
	if result.BackupKey != "" {
		fmt.Fprintf(&buf, "State mirrored to s3://%s\n", result.BackupKey)
	}

	if result.Success() {
		r.green.Fprintln(&buf, "\nOperation completed")
	} else {
		r.red.Fprintln(&buf, "\nOperation failed")
	}

	return buf.Bytes(), nil
}

// FormatStatus renders a status report.
func (r *Renderer) FormatStatus(report *controller.StatusReport) ([]byte, error) {
	if r.format == FormatJSON {
		return marshalJSON(report)
	}

	var buf bytes.Buffer
	r.bold.Fprintf(&buf, "%s/%s\n", report.Project, report.Environment)

	kinds := make([]string, 0, len(report.Snapshots))
	for kind := range report.Snapshots {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		snapshot := report.Snapshots[managers.Kind(kind)]
		fmt.Fprintf(&buf, "  %-10s %s  (%d resources)\n",
			kind, r.colorState(snapshot.State), len(snapshot.Resources))
	}

	for _, e := range report.Errors {
		r.red.Fprintf(&buf, "  error: %s\n", e)
	}

	fmt.Fprintf(&buf, "\nCurrent cost: $%.4f/hour, $%.2f/day, $%.2f/month\n",
		report.Costs.HourlyCost, report.Costs.DailyCost, report.Costs.MonthlyCost)

	if len(report.Recommendations) > 0 {
		r.bold.Fprintln(&buf, "\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&buf, "  - %s\n", rec)
		}
	}

	if len(report.Backups) > 0 {
		fmt.Fprintf(&buf, "\n%d snapshot(s) in S3, newest: %s\n",
			len(report.Backups), report.Backups[0].Key)
	}

	return buf.Bytes(), nil
}

// FormatSimulation renders a dry-run change set.
func (r *Renderer) FormatSimulation(result *simulate.Result) ([]byte, error) {
	if r.format == FormatJSON {
		return marshalJSON(result)
	}

	var buf bytes.Buffer
	r.bold.Fprintf(&buf, "Simulated %s\n", result.Operation)

	if len(result.Changes) == 0 {
		fmt.Fprintln(&buf, "  no changes")
	}
	for _, c := range result.Changes {
		fmt.Fprintf(&buf, "  [%s] %-10s %s: %v -> %v",
			r.colorRisk(c.Risk), c.ResourceType, c.ResourceName, c.CurrentValue, c.ProposedValue)
		if c.CostImpactMonthly != 0 {
			fmt.Fprintf(&buf, "  ($%.2f/month)", c.CostImpactMonthly)
		}
		fmt.Fprintln(&buf)
	}

	for _, w := range result.Warnings {
		r.yellow.Fprintf(&buf, "  warning: %s\n", w)
	}
	for _, e := range result.Errors {
		r.red.Fprintf(&buf, "  error: %s\n", e)
	}

	fmt.Fprintf(&buf, "\nCurrent cost: $%.2f/month, after changes: $%.2f/month\n",
		result.CurrentMonthlyCost, result.ProjectedMonthlyCost)
	fmt.Fprintf(&buf, "Total cost impact: $%.2f/month\n", result.TotalCostImpact)
	if high := result.HighRiskChanges(); len(high) > 0 {
		r.yellow.Fprintf(&buf, "%d high-risk change(s), review before applying\n", len(high))
	}

	return buf.Bytes(), nil
}

// FormatBackups renders an S3 snapshot listing, newest first.
func (r *Renderer) FormatBackups(backups []state.BackupInfo) ([]byte, error) {
	if r.format == FormatJSON {
		return marshalJSON(backups)
	}

	var buf bytes.Buffer
	if len(backups) == 0 {
		fmt.Fprintln(&buf, "No snapshots found")
		return buf.Bytes(), nil
	}

	for _, b := range backups {
		fmt.Fprintf(&buf, "%s  %8d bytes  %s\n",
			b.LastModified.Format("2006-01-02 15:04:05"), b.Size, b.Key)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) colorState(s managers.State) string {
	switch s {
	case managers.StateRunning:
		return r.green.Sprint(string(s))
	case managers.StateStopped:
		return r.yellow.Sprint(string(s))
	case managers.StateFailed:
		return r.red.Sprint(string(s))
	default:
		return string(s)
	}
}

func (r *Renderer) colorRisk(risk simulate.RiskLevel) string {
	switch {
	case risk.Rank() >= simulate.RiskHigh.Rank():
		return r.red.Sprint(string(risk))
	case risk == simulate.RiskMedium:
		return r.yellow.Sprint(string(risk))
	default:
		return string(risk)
	}
}

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	return append(data, '\n'), nil
}
