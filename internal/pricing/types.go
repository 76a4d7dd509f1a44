package pricing

import "strings"

// QuantityType is the unit a duration or usage amount is expressed in
// before a rate is applied.
type QuantityType string

// Quantity types known to the billing backend.
const (
	QuantitySecond     QuantityType = "SECOND"
	QuantityMinute     QuantityType = "MINUTE"
	QuantityHour       QuantityType = "HOUR"
	QuantityKilowattHr QuantityType = "KILOWATT_HOUR"
	QuantityUnit       QuantityType = "UNIT"
)

// PricingRule is a time-of-day band with a price per unit. Bands may wrap
// past midnight (start > end). Within one plan the bands are assumed
// non-overlapping; the first matching band wins.
type PricingRule struct {
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Tier is a quantity bracket with its own unit price. The last tier in a
// list is open-ended: usage beyond the sum of all tier quantities is billed
// at the last tier's rate.
type Tier struct {
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

// PlanKind distinguishes the two plan option shapes.
type PlanKind int

const (
	KindTimeBanded PlanKind = iota + 1
	KindTiered
)

// PlanRole classifies what a plan option bills for.
type PlanRole int

const (
	RoleUnknown PlanRole = iota
	RoleBlocking
	RoleCharging
)

// PlanOption is the parsed form of one billing plan option. The shape is
// decided once at parse time; consumers never sniff field presence again.
type PlanOption struct {
	Ident        string
	Name         string
	Kind         PlanKind
	Role         PlanRole
	QuantityType QuantityType
	Rules        []PricingRule // KindTimeBanded
	Tiers        []Tier        // KindTiered
}

// classifyRole derives the plan role from the free-text option name. The
// backend schema carries no explicit role field, so substring matching on
// the name is the only signal available; see DESIGN.md.
func classifyRole(names ...string) PlanRole {
	for _, n := range names {
		n = strings.ToLower(n)
		if strings.Contains(n, "block") {
			return RoleBlocking
		}
		if strings.Contains(n, "charging") {
			return RoleCharging
		}
	}
	return RoleUnknown
}
