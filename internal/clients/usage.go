package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/models"
)

type unitQuantityDoc struct {
	UnitQuantity     float64 `json:"unitQuantity"`
	UnitQuantityType string  `json:"unitQuantityType"`
}

type usageDoc struct {
	ProductIdent   string            `json:"productIdent"`
	ContractID     int64             `json:"contractId"`
	UsageIdent     string            `json:"usageIdent"`
	UnitQuantities []unitQuantityDoc `json:"unitQuantities"`
	StartDate      string            `json:"startDate"`
	EndDate        string            `json:"endDate"`
	TaxLocation    struct {
		Country string `json:"country"`
	} `json:"taxLocation"`
}

// CreateUsage reports one usage record (a finished charging session or a
// side purchase) to the billing backend.
func (c *BillingClient) CreateUsage(ctx context.Context, rec models.UsageRecord) error {
	if rec.Customer.ContractID == 0 {
		return fmt.Errorf("clients: usage record has no contract id")
	}

	product := rec.ProductIdent
	if product == "" {
		product = c.product
	}

	quantity := rec.Quantity
	quantityType := rec.QuantityType
	if quantityType == "" {
		quantityType = "SECOND"
	}
	if quantity == 0 && quantityType == "SECOND" {
		quantity = float64(int64(rec.End.Sub(rec.Start).Seconds()))
	}

	doc := usageDoc{
		ProductIdent: product,
		ContractID:   rec.Customer.ContractID,
		UsageIdent:   usageIdent(rec),
		UnitQuantities: []unitQuantityDoc{
			{UnitQuantity: quantity, UnitQuantityType: quantityType},
		},
		StartDate: rec.Start.UTC().Format(time.RFC3339),
		EndDate:   rec.End.UTC().Format(time.RFC3339),
	}
	doc.TaxLocation.Country = c.taxCountry

	status, respBody, err := c.base.postJSON(ctx, "/v2/usages", doc)
	if err != nil {
		return fmt.Errorf("clients: create usage: %w", err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("clients: create usage: status %d: %s", status, respBody)
	}

	c.logger.Info("usage record created",
		zap.String("usage_ident", doc.UsageIdent),
		zap.Float64("quantity", quantity),
		zap.String("quantity_type", quantityType),
	)
	return nil
}

// TriggerBillingRun asks the backend to invoice the debtor, dated next day.
func (c *BillingClient) TriggerBillingRun(ctx context.Context, debtorIdent string) error {
	if debtorIdent == "" {
		return fmt.Errorf("clients: debtor ident required")
	}

	status, respBody, err := c.base.postJSON(ctx, "/v2/billingrun", map[string]string{
		"debtorIdent":    debtorIdent,
		"processingDate": time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("clients: trigger billing run: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("clients: trigger billing run: status %d: %s", status, respBody)
	}

	c.logger.Info("billing run triggered", zap.String("debtor", debtorIdent))
	return nil
}

// usageIdent builds the deterministic usage identifier so a re-submitted
// session maps to the same record upstream.
func usageIdent(rec models.UsageRecord) string {
	prefix := "rfid-session"
	if rec.QuantityType == "PIECE" {
		prefix = "purchase"
	}
	return fmt.Sprintf("%s-%s-%d", prefix, rec.TagID, rec.Start.Unix())
}
