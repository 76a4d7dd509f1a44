package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
)

// BillingClient talks to the billing backend: contract details, plan
// options, usage creation and billing runs.
type BillingClient struct {
	base       *BaseClient
	logger     *zap.Logger
	product    string
	taxCountry string
}

// NewBillingClient returns client instance.
func NewBillingClient(baseURL string, tokens *TokenSource, httpClient HTTPDoer, productIdent, taxCountry string, logger *zap.Logger) *BillingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingClient{
		base:       NewBearerClient(baseURL, httpClient, tokens),
		logger:     logger,
		product:    productIdent,
		taxCountry: taxCountry,
	}
}

// contractDetailsDoc is the subset of the contract details response we
// read option identifiers from.
type contractDetailsDoc struct {
	OptionQuantities []struct {
		OptionQuantity []struct {
			OptionIdent string `json:"optionIdent"`
		} `json:"optionQuantity"`
	} `json:"optionQuantities"`
}

// OptionIdents fetches the contract details and extracts the plan option
// identifiers booked on the contract.
func (c *BillingClient) OptionIdents(ctx context.Context, contractIdent string) ([]string, error) {
	if contractIdent == "" {
		return nil, fmt.Errorf("clients: contract ident required")
	}

	path := fmt.Sprintf("/v2/contracts/%s/details", contractIdent)
	status, body, err := c.base.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("clients: fetch contract details: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("clients: fetch contract details: status %d", status)
	}

	var doc contractDetailsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("clients: decode contract details: %w", err)
	}

	var idents []string
	for _, phase := range doc.OptionQuantities {
		for _, item := range phase.OptionQuantity {
			if item.OptionIdent != "" {
				idents = append(idents, item.OptionIdent)
			}
		}
	}

	c.logger.Debug("option idents resolved",
		zap.String("contract", contractIdent),
		zap.Int("count", len(idents)),
	)
	return idents, nil
}

// PlanOption fetches and parses one plan option definition.
func (c *BillingClient) PlanOption(ctx context.Context, optionIdent string) (*pricing.PlanOption, error) {
	if optionIdent == "" {
		return nil, fmt.Errorf("clients: option ident required")
	}

	path := fmt.Sprintf("/v2/billing/plan-options/%s", optionIdent)
	status, body, err := c.base.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("clients: fetch plan option %s: %w", optionIdent, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("clients: fetch plan option %s: status %d", optionIdent, status)
	}

	opt, err := pricing.ParsePlanOption(optionIdent, body)
	if err != nil {
		return nil, err
	}
	for _, rule := range opt.Rules {
		if err := rule.Validate(); err != nil {
			c.logger.Warn("plan option has an unparsable time band, it will never match",
				zap.String("option", optionIdent),
				zap.Error(err),
			)
		}
	}
	return opt, nil
}
