package simulate

// RiskLevel grades how disruptive a proposed change is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels so reports can sort worst-first.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// ChangeAction names what would be done to a resource.
type ChangeAction string

const (
	ActionScaleDown      ChangeAction = "scale_down"
	ActionScaleUp        ChangeAction = "scale_up"
	ActionDisable        ChangeAction = "disable"
	ActionEnable         ChangeAction = "enable"
	ActionDisableActions ChangeAction = "disable_actions"
	ActionEnableActions  ChangeAction = "enable_actions"
)

// ResourceChange is one proposed modification with its monthly cost
// delta. CostImpactMonthly is current minus proposed: positive means
// the change saves money.
type ResourceChange struct {
	ResourceType      string       `json:"resource_type"`
	ResourceName      string       `json:"resource_name"`
	Action            ChangeAction `json:"action"`
	CurrentValue      interface{}  `json:"current_value"`
	ProposedValue     interface{}  `json:"proposed_value"`
	CostImpactMonthly float64      `json:"cost_impact_monthly"`
	Risk              RiskLevel    `json:"risk"`
	Description       string       `json:"description"`
}

// Result is a full dry-run outcome: the change set plus validation
// findings. CurrentMonthlyCost and ProjectedMonthlyCost bracket the
// change set: projected is always current minus TotalCostImpact.
type Result struct {
	Operation            string           `json:"operation"`
	Changes              []ResourceChange `json:"changes"`
	Errors               []string         `json:"errors,omitempty"`
	Warnings             []string         `json:"warnings,omitempty"`
	TotalCostImpact      float64          `json:"total_cost_impact_monthly"`
	CurrentMonthlyCost   float64          `json:"current_monthly_cost"`
	ProjectedMonthlyCost float64          `json:"projected_monthly_cost"`
}

// HasErrors reports whether validation blocked the operation.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// HighRiskChanges returns the changes graded high or critical.
func (r *Result) HighRiskChanges() []ResourceChange {
	var out []ResourceChange
	for _, c := range r.Changes {
		if c.Risk.Rank() >= RiskHigh.Rank() {
			out = append(out, c)
		}
	}
	return out
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) addChange(c ResourceChange) {
	r.Changes = append(r.Changes, c)
	r.TotalCostImpact += c.CostImpactMonthly
}
