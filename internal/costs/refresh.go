package costs

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/ujanalytics/costctl/internal/logger"
)

// PricingClient is the slice of the AWS Pricing API the refresher needs.
type PricingClient interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// Refresher updates a price table from the AWS Pricing API. Lookups are
// best-effort: any field that cannot be resolved keeps its current value,
// so the calculator always has a usable table.
type Refresher struct {
	client PricingClient
	log    logger.Logger
}

// NewRefresher creates a Refresher backed by the given pricing client.
func NewRefresher(client PricingClient, log logger.Logger) *Refresher {
	return &Refresher{client: client, log: log}
}

// locationNames maps region codes to the location names the Pricing API
// filters on. Regions outside the map fall back to list prices.
var locationNames = map[string]string{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"eu-west-1":      "EU (Ireland)",
	"eu-central-1":   "EU (Frankfurt)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
}

// Refresh returns a copy of base with region prices applied where the
// Pricing API answered.
func (r *Refresher) Refresh(ctx context.Context, region string, base PriceTable) PriceTable {
	location, ok := locationNames[region]
	if !ok {
		r.log.WithField("region", region).Debug("no pricing location mapping, keeping list prices")
		return base
	}

	table := base

	if price, err := r.lookup(ctx, "AmazonKinesis", location, "Provisioned shard hour"); err != nil {
		r.log.WithField("region", region).Warn("shard-hour price lookup failed, keeping list price: " + err.Error())
	} else if price > 0 {
		table.ShardHour = price
	}

	if price, err := r.lookup(ctx, "AmazonCloudWatch", location, "Alarm Monitoring Usage"); err != nil {
		r.log.WithField("region", region).Warn("alarm price lookup failed, keeping list price: " + err.Error())
	} else if price > 0 {
		table.AlarmMonthly = price
	}

	return table
}

func (r *Refresher) lookup(ctx context.Context, serviceCode, location, group string) (float64, error) {
	out, err := r.client.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		MaxResults:  aws.Int32(1),
		Filters: []pricingtypes.Filter{
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("location"), Value: aws.String(location)},
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("group"), Value: aws.String(group)},
		},
	})
	if err != nil {
		return 0, err
	}
	if len(out.PriceList) == 0 {
		return 0, nil
	}

	return extractOnDemandUSD([]byte(out.PriceList[0]))
}

// extractOnDemandUSD digs the first on-demand USD price per unit out of
// a Pricing API product document.
func extractOnDemandUSD(doc []byte) (float64, error) {
	var product struct {
		Terms struct {
			OnDemand map[string]struct {
				PriceDimensions map[string]struct {
					PricePerUnit map[string]string `json:"pricePerUnit"`
				} `json:"priceDimensions"`
			} `json:"OnDemand"`
		} `json:"terms"`
	}
	if err := json.Unmarshal(doc, &product); err != nil {
		return 0, err
	}

	for _, term := range product.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			if usd, ok := dim.PricePerUnit["USD"]; ok {
				return strconv.ParseFloat(usd, 64)
			}
		}
	}

	return 0, nil
}
