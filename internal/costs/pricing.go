package costs

// PriceTable holds the unit prices the calculator works from. Values
// default to us-east-1 list prices and can be refreshed from the AWS
// Pricing API (see refresh.go).
type PriceTable struct {
	// Kinesis Data Streams.
	ShardHour                  float64 `json:"shard_hour"`
	ExtendedRetentionShardHour float64 `json:"extended_retention_shard_hour"`
	PutPayloadUnitPerMillion   float64 `json:"put_payload_unit_per_million"`

	// Lambda. Retained for reporting only: idle cost is zero by
	// definition, invocation costs are usage-billed.
	RequestPerMillion float64 `json:"request_per_million"`
	GBSecond          float64 `json:"gb_second"`

	// CloudWatch.
	AlarmMonthly        float64 `json:"alarm_monthly"`
	HighResAlarmMonthly float64 `json:"high_res_alarm_monthly"`
}

// DefaultPriceTable returns us-east-1 list prices.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		ShardHour:                  0.015,
		ExtendedRetentionShardHour: 0.020,
		PutPayloadUnitPerMillion:   0.014,
		RequestPerMillion:          0.20,
		GBSecond:                   0.0000166667,
		AlarmMonthly:               0.10,
		HighResAlarmMonthly:        0.30,
	}
}

const (
	// HoursPerDay and DaysPerMonth are the fixed projection multipliers
	// used throughout: daily = hourly x 24, monthly = daily x 30. Not
	// calendar-aware.
	HoursPerDay  = 24
	DaysPerMonth = 30
)
