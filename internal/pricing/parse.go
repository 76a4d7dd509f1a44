package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPlan indicates a plan option document with neither a
// recognizable time-banded nor tiered shape.
var ErrMalformedPlan = errors.New("pricing: malformed plan option")

// Wire types for the billing backend plan option schema.
type planOptionDoc struct {
	OptionName    string            `json:"optionName"`
	Name          string            `json:"name"`
	QuantityType  string            `json:"quantityType"`
	PricingGroups []pricingGroupDoc `json:"pricingGroups"`
	PriceTiers    []priceTierDoc    `json:"priceTiers"`
}

type pricingGroupDoc struct {
	PricingRules []pricingRuleDoc `json:"pricingRules"`
}

type pricingRuleDoc struct {
	Criteria struct {
		TimePeriod struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"timePeriod"`
	} `json:"criteria"`
	Price struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"price"`
}

type priceTierDoc struct {
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// ParsePlanOption decodes one plan option document into the tagged PlanOption
// form. The shape (time-banded vs tiered) and the blocking/charging role are
// decided here, once, from the upstream JSON.
func ParsePlanOption(ident string, data []byte) (*PlanOption, error) {
	var doc planOptionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pricing: decode plan option %s: %w", ident, err)
	}
	return planOptionFromDoc(ident, doc)
}

func planOptionFromDoc(ident string, doc planOptionDoc) (*PlanOption, error) {
	name := doc.OptionName
	if name == "" {
		name = doc.Name
	}

	opt := &PlanOption{
		Ident:        ident,
		Name:         name,
		Role:         classifyRole(doc.OptionName, doc.Name),
		QuantityType: QuantityType(doc.QuantityType),
	}

	switch {
	case len(doc.PricingGroups) > 0 && len(doc.PricingGroups[0].PricingRules) > 0:
		opt.Kind = KindTimeBanded
		if opt.QuantityType == "" {
			opt.QuantityType = QuantityMinute
		}
		for _, rule := range doc.PricingGroups[0].PricingRules {
			opt.Rules = append(opt.Rules, PricingRule{
				Start:    rule.Criteria.TimePeriod.Start,
				End:      rule.Criteria.TimePeriod.End,
				Amount:   rule.Price.Amount,
				Currency: rule.Price.Currency,
			})
		}
	case len(doc.PriceTiers) > 0:
		opt.Kind = KindTiered
		if opt.QuantityType == "" {
			opt.QuantityType = QuantitySecond
		}
		for _, tier := range doc.PriceTiers {
			opt.Tiers = append(opt.Tiers, Tier{
				Quantity:  tier.Quantity,
				UnitPrice: tier.Price,
			})
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrMalformedPlan, ident)
	}

	return opt, nil
}
