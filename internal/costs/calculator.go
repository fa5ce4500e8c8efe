package costs

import (
	"time"
)

// ServiceCost is the cost breakdown for one resource kind.
type ServiceCost struct {
	ServiceName   string                 `json:"service_name"`
	ResourceCount int                    `json:"resource_count"`
	HourlyCost    float64                `json:"hourly_cost"`
	DailyCost     float64                `json:"daily_cost"`
	MonthlyCost   float64                `json:"monthly_cost"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Estimate is the total cost across all resource kinds.
type Estimate struct {
	Timestamp      time.Time     `json:"timestamp"`
	Region         string        `json:"region"`
	TotalResources int           `json:"total_resources"`
	HourlyCost     float64       `json:"hourly_cost"`
	DailyCost      float64       `json:"daily_cost"`
	MonthlyCost    float64       `json:"monthly_cost"`
	Breakdown      []ServiceCost `json:"service_breakdown"`
}

// Comparison is the delta between a current and an optimized estimate.
type Comparison struct {
	Current           Estimate `json:"current"`
	Optimized         Estimate `json:"optimized"`
	SavingsHourly     float64  `json:"savings_hourly"`
	SavingsDaily      float64  `json:"savings_daily"`
	SavingsMonthly    float64  `json:"savings_monthly"`
	SavingsPercentage float64  `json:"savings_percentage"`
}

// Calculator derives cost estimates from resource quantities. It holds
// no state beyond the price table and performs no I/O.
type Calculator struct {
	prices PriceTable
	region string
}

// NewCalculator creates a calculator for the given region's prices.
func NewCalculator(region string, prices PriceTable) *Calculator {
	return &Calculator{prices: prices, region: region}
}

// Prices returns the active price table.
func (c *Calculator) Prices() PriceTable {
	return c.prices
}

// StreamCost estimates the fixed shard-hour cost of a Kinesis stream.
// PUT payload charges are usage-billed and excluded from idle cost.
func (c *Calculator) StreamCost(shardCount, retentionHours int) ServiceCost {
	hourly := float64(shardCount) * c.prices.ShardHour

	var extended float64
	if retentionHours > 24 {
		extraDays := float64(retentionHours-24) / 24
		extended = float64(shardCount) * extraDays * c.prices.ExtendedRetentionShardHour
		hourly += extended
	}

	return ServiceCost{
		ServiceName:   "Kinesis Data Streams",
		ResourceCount: shardCount,
		HourlyCost:    hourly,
		DailyCost:     hourly * HoursPerDay,
		MonthlyCost:   hourly * HoursPerDay * DaysPerMonth,
		Details: map[string]interface{}{
			"shard_count":                   shardCount,
			"retention_hours":               retentionHours,
			"extended_retention_cost_hourly": extended,
		},
	}
}

// FunctionIdleCost estimates the idle cost of a Lambda function set,
// which is exactly zero: Lambda bills per invocation only.
func (c *Calculator) FunctionIdleCost(functionCount int) ServiceCost {
	return ServiceCost{
		ServiceName:   "Lambda",
		ResourceCount: functionCount,
		HourlyCost:    0,
		DailyCost:     0,
		MonthlyCost:   0,
		Details: map[string]interface{}{
			"function_count": functionCount,
			"note":           "no idle charge, billed per invocation",
		},
	}
}

// AlarmCost estimates the cost of CloudWatch metric alarms. Alarms
// bill whether or not their actions are enabled, so the enabled state
// does not change the figure.
func (c *Calculator) AlarmCost(alarmCount int) ServiceCost {
	monthly := float64(alarmCount) * c.prices.AlarmMonthly
	daily := monthly / DaysPerMonth
	hourly := daily / HoursPerDay

	return ServiceCost{
		ServiceName:   "CloudWatch",
		ResourceCount: alarmCount,
		HourlyCost:    hourly,
		DailyCost:     daily,
		MonthlyCost:   monthly,
		Details: map[string]interface{}{
			"alarm_count": alarmCount,
			"note":        "alarms bill even with actions disabled",
		},
	}
}

// Total sums per-kind costs into a single estimate.
func (c *Calculator) Total(serviceCosts []ServiceCost) Estimate {
	est := Estimate{
		Timestamp: time.Now().UTC(),
		Region:    c.region,
		Breakdown: serviceCosts,
	}

	for _, sc := range serviceCosts {
		est.TotalResources += sc.ResourceCount
		est.HourlyCost += sc.HourlyCost
		est.DailyCost += sc.DailyCost
		est.MonthlyCost += sc.MonthlyCost
	}

	return est
}

// Compare computes savings between current and optimized cost sets.
func (c *Calculator) Compare(current, optimized []ServiceCost) Comparison {
	cur := c.Total(current)
	opt := c.Total(optimized)

	cmp := Comparison{
		Current:        cur,
		Optimized:      opt,
		SavingsHourly:  cur.HourlyCost - opt.HourlyCost,
		SavingsDaily:   cur.DailyCost - opt.DailyCost,
		SavingsMonthly: cur.MonthlyCost - opt.MonthlyCost,
	}
	if cur.MonthlyCost > 0 {
		cmp.SavingsPercentage = cmp.SavingsMonthly / cur.MonthlyCost * 100
	}

	return cmp
}
