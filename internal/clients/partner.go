package clients

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/events"
)

// PartnerClient posts session lifecycle notifications to a partner
// endpoint. Delivery is best effort; failures are logged and swallowed so
// the session transition never blocks on the partner.
type PartnerClient struct {
	base      *BaseClient
	logger    *zap.Logger
	partnerID string
	article   string
}

// NewPartnerClient returns client instance.
func NewPartnerClient(baseURL, partnerID, article string, httpClient HTTPDoer, logger *zap.Logger) *PartnerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if article == "" {
		article = "charging"
	}
	return &PartnerClient{
		base:      NewBaseClient(baseURL, httpClient),
		logger:    logger,
		partnerID: partnerID,
		article:   article,
	}
}

// Notify posts one article event to the partner.
func (c *PartnerClient) Notify(ctx context.Context, amount, currency, typ string) error {
	path := fmt.Sprintf("/partner/%s/article/%s/amount/%s/currency/%s/type/%s",
		c.partnerID, c.article, amount, currency, typ)

	status, _, err := c.base.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return fmt.Errorf("clients: notify partner: %w", err)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("clients: notify partner: status %d", status)
	}
	return nil
}

// Register subscribes the partner notifications to session lifecycle
// events on the emitter.
func (c *PartnerClient) Register(em *events.Emitter) {
	em.On(events.ChargingStarted, func(ctx context.Context, ev events.SessionEvent) {
		if err := c.Notify(ctx, "100", "EUR", "charging"); err != nil {
			c.logger.Warn("partner not informed of session start", zap.Error(err))
		}
	})
	em.On(events.ChargingFinished, func(ctx context.Context, ev events.SessionEvent) {
		currency := ev.Currency
		if currency == "" {
			currency = "EUR"
		}
		amount := fmt.Sprintf("%.2f", ev.TotalCost)
		if err := c.Notify(ctx, amount, currency, "charging_finished"); err != nil {
			c.logger.Warn("partner not informed of session end", zap.Error(err))
		}
	})
}
