package analytics

// Cost model defaults, based on public AWS API Gateway pricing.
const (
	// DefaultCostPerMillionRequests is the request charge in USD.
	DefaultCostPerMillionRequests = 3.50
	// DefaultMonthlyCostPerEndpoint is the rough monthly infrastructure
	// overhead of keeping one endpoint deployed, in USD.
	DefaultMonthlyCostPerEndpoint = 0.10
)

// CostEstimate is the projected spend attributable to unused endpoints.
type CostEstimate struct {
	UnusedEndpoints   int     `json:"unused_endpoints"`
	MonthlySavings    float64 `json:"monthly_savings_usd"`
	AnnualSavings     float64 `json:"annual_savings_usd"`
	RequestCostSaved  float64 `json:"request_cost_saved_usd"`
	MonthlyPerEnd     float64 `json:"monthly_cost_per_endpoint_usd"`
	PerMillionRequest float64 `json:"cost_per_million_requests_usd"`
}

// CostCalculator prices the carrying cost of unused endpoints.
type CostCalculator struct {
	perMillionRequests float64
	monthlyPerEndpoint float64
}

// NewCostCalculator returns a calculator with the default pricing. Zero or
// negative overrides fall back to the defaults.
func NewCostCalculator(perMillionRequests, monthlyPerEndpoint float64) *CostCalculator {
	if perMillionRequests <= 0 {
		perMillionRequests = DefaultCostPerMillionRequests
	}
	if monthlyPerEndpoint <= 0 {
		monthlyPerEndpoint = DefaultMonthlyCostPerEndpoint
	}
	return &CostCalculator{
		perMillionRequests: perMillionRequests,
		monthlyPerEndpoint: monthlyPerEndpoint,
	}
}

// Estimate prices removing the given number of unused endpoints, counting
// totalRequests as the monthly request volume those endpoints still absorb
// in gateway charges (health checks, retries, scanners).
func (c *CostCalculator) Estimate(unusedEndpoints int, totalRequests int64) CostEstimate {
	if unusedEndpoints < 0 {
		unusedEndpoints = 0
	}
	if totalRequests < 0 {
		totalRequests = 0
	}
	requestCost := float64(totalRequests) / 1_000_000 * c.perMillionRequests
	monthly := float64(unusedEndpoints)*c.monthlyPerEndpoint + requestCost
	return CostEstimate{
		UnusedEndpoints:   unusedEndpoints,
		MonthlySavings:    round2(monthly),
		AnnualSavings:     round2(monthly * 12),
		RequestCostSaved:  round2(requestCost),
		MonthlyPerEnd:     c.monthlyPerEndpoint,
		PerMillionRequest: c.perMillionRequests,
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
