package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/display"
	"github.com/tobjohnbx/demo-mobile-charging/internal/events"
	"github.com/tobjohnbx/demo-mobile-charging/internal/hardware"
	"github.com/tobjohnbx/demo-mobile-charging/internal/metrics"
	"github.com/tobjohnbx/demo-mobile-charging/internal/models"
	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
	"github.com/tobjohnbx/demo-mobile-charging/internal/redisstore"
	"github.com/tobjohnbx/demo-mobile-charging/internal/repository"
)

// ErrUnknownTag indicates a scanned credential with no customer mapping.
var ErrUnknownTag = errors.New("service: unknown rfid tag")

// PlanSource fetches plan option definitions from the billing backend.
type PlanSource interface {
	OptionIdents(ctx context.Context, contractIdent string) ([]string, error)
	PlanOption(ctx context.Context, optionIdent string) (*pricing.PlanOption, error)
}

// UsageReporter reports finished sessions and purchases for invoicing.
type UsageReporter interface {
	CreateUsage(ctx context.Context, rec models.UsageRecord) error
	TriggerBillingRun(ctx context.Context, debtorIdent string) error
}

// Journal persists completed sessions locally.
type Journal interface {
	Insert(ctx context.Context, rec *repository.SessionRecord) error
}

// ActiveStore keeps the in-flight session for crash recovery.
type ActiveStore interface {
	Save(ctx context.Context, session redisstore.ActiveSession) error
	Clear(ctx context.Context) error
}

// CoffeeProduct is the flat-priced side purchase sold at the kiosk.
type CoffeeProduct struct {
	ProductIdent string
	Price        float64
	Currency     string
}

// Deps collects the controller's collaborators. Journal, Active, Metrics
// and Emitter may be nil.
type Deps struct {
	Logger    *zap.Logger
	Relay     hardware.Relay
	Display   display.Display
	Plans     PlanSource
	Reporter  UsageReporter
	Emitter   *events.Emitter
	Journal   Journal
	Active    ActiveStore
	Metrics   *metrics.Metrics
	Customers map[string]models.CustomerInfo
	StationID string
	Currency  string
	Coffee    CoffeeProduct
	Clock     func() time.Time
}

// SessionController owns the single charging session of the kiosk and the
// relay permitting power flow. A scanned credential while idle opens a
// session; any accepted credential while active closes it. The controller
// is not reentrant: transitions are serialized and nested sessions cannot
// exist.
type SessionController struct {
	logger    *zap.Logger
	calc      *pricing.Calculator
	relay     hardware.Relay
	display   display.Display
	plans     PlanSource
	reporter  UsageReporter
	emitter   *events.Emitter
	journal   Journal
	active    ActiveStore
	metrics   *metrics.Metrics
	customers map[string]models.CustomerInfo
	stationID string
	currency  string
	coffee    CoffeeProduct
	clock     func() time.Time

	mu      sync.Mutex
	session *models.ChargingSession
}

// NewSessionController builds the controller.
func NewSessionController(deps Deps) *SessionController {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = events.NewEmitter(logger)
	}
	currency := deps.Currency
	if currency == "" {
		currency = "EUR"
	}
	return &SessionController{
		logger:    logger,
		calc:      pricing.NewCalculator(logger),
		relay:     deps.Relay,
		display:   deps.Display,
		plans:     deps.Plans,
		reporter:  deps.Reporter,
		emitter:   emitter,
		journal:   deps.Journal,
		active:    deps.Active,
		metrics:   deps.Metrics,
		customers: deps.Customers,
		stationID: deps.StationID,
		currency:  currency,
		coffee:    deps.Coffee,
		clock:     clock,
	}
}

// Active reports whether a session is in flight.
func (c *SessionController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// CurrentSession returns a copy of the in-flight session, or nil.
func (c *SessionController) CurrentSession() *models.ChargingSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// HandleTag processes one accepted credential scan: it opens a session
// when the station is idle and closes the running one otherwise.
func (c *SessionController) HandleTag(ctx context.Context, tagID string) error {
	customer, ok := c.customers[tagID]
	if !ok {
		c.logger.Warn("no customer mapping for tag", zap.String("tag", tagID))
		c.display.ShowError("Unknown card")
		return fmt.Errorf("%w: %s", ErrUnknownTag, tagID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		c.startSession(ctx, tagID, customer)
	} else {
		c.stopSession(ctx)
	}
	return nil
}

// startSession performs the IDLE -> ACTIVE transition. Plan fetch failures
// degrade the session to unknown pricing but never abort the transition.
func (c *SessionController) startSession(ctx context.Context, tagID string, customer models.CustomerInfo) {
	start := c.clock()
	c.session = &models.ChargingSession{
		TagID:     tagID,
		Customer:  customer,
		StartTime: start,
	}

	if err := c.relay.Set(true); err != nil {
		c.logger.Error("failed to switch relay on", zap.Error(err))
	}

	c.logger.Info("charging started",
		zap.String("tag", tagID),
		zap.Time("start", start),
	)
	if c.metrics != nil {
		c.metrics.SessionsStarted.Inc()
	}

	if c.active != nil {
		err := c.active.Save(ctx, redisstore.ActiveSession{
			TagID:         tagID,
			ContractIdent: customer.ContractIdent,
			DebtorIdent:   customer.DebtorIdent,
			StartTime:     start,
		})
		if err != nil {
			c.logger.Warn("failed to store active session", zap.Error(err))
		}
	}

	c.emitter.Emit(ctx, events.SessionEvent{
		Name:          events.ChargingStarted,
		TagID:         tagID,
		ContractIdent: customer.ContractIdent,
		DebtorIdent:   customer.DebtorIdent,
	})

	c.session.PlanOptions = c.loadPlanOptions(ctx, customer)
	c.showPricing(start)
}

// loadPlanOptions resolves the contract's option idents and fetches each
// plan option. Partial failures are tolerated; only successfully fetched
// plans take part in the cost computation at close.
func (c *SessionController) loadPlanOptions(ctx context.Context, customer models.CustomerInfo) []pricing.PlanOption {
	idents, err := c.plans.OptionIdents(ctx, customer.ContractIdent)
	if err != nil {
		c.logger.Warn("plan options unavailable, session continues unpriced", zap.Error(err))
		c.countUpstreamError("contract_details")
		return nil
	}
	opts := c.fetchPlanOptions(ctx, idents)
	c.logger.Info("plan options attached", zap.Int("count", len(opts)))
	return opts
}

// stopSession performs the ACTIVE -> IDLE transition. Reporting failures
// are logged; the session state is cleared and the relay switched off no
// matter what.
func (c *SessionController) stopSession(ctx context.Context) {
	s := c.session
	s.EndTime = c.clock()

	if err := c.relay.Set(false); err != nil {
		c.logger.Error("failed to switch relay off", zap.Error(err))
	}

	duration := s.EndTime.Sub(s.StartTime)
	c.logger.Info("charging stopped",
		zap.String("tag", s.TagID),
		zap.Duration("duration", duration),
	)

	var breakdown pricing.Breakdown
	if len(s.PlanOptions) > 0 {
		breakdown = c.calc.TotalCost(s.StartTime, s.EndTime, s.PlanOptions)
	} else {
		c.logger.Warn("no plan options attached, session cost unknown")
	}
	currency := breakdown.Currency
	if currency == "" {
		currency = c.currency
	}

	c.emitter.Emit(ctx, events.SessionEvent{
		Name:            events.ChargingFinished,
		TagID:           s.TagID,
		ContractIdent:   s.Customer.ContractIdent,
		DebtorIdent:     s.Customer.DebtorIdent,
		DurationMinutes: duration.Minutes(),
		TotalCost:       breakdown.Total(),
		Currency:        currency,
	})

	c.display.ShowCost(duration.Minutes(), breakdown.Total(), currency)

	reported := c.reportSession(ctx, s)
	c.journalSession(ctx, s, breakdown, currency, reported)

	if c.metrics != nil {
		c.metrics.SessionsStopped.Inc()
		c.metrics.SessionSeconds.Observe(duration.Seconds())
		c.metrics.SessionCost.Add(breakdown.Total())
	}

	if c.active != nil {
		if err := c.active.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear active session store", zap.Error(err))
		}
	}

	// At-most-once local accounting: state is cleared even when reporting
	// failed; the gap is accepted.
	c.session = nil
}

func (c *SessionController) reportSession(ctx context.Context, s *models.ChargingSession) bool {
	err := c.reporter.CreateUsage(ctx, models.UsageRecord{
		TagID:    s.TagID,
		Customer: s.Customer,
		Start:    s.StartTime,
		End:      s.EndTime,
	})
	if err != nil {
		c.logger.Error("usage reporting failed, session not invoiced", zap.Error(err))
		c.countUpstreamError("create_usage")
		c.display.ShowError("Billing failed")
		return false
	}

	c.display.ShowStatus("Billing processed")
	if err := c.reporter.TriggerBillingRun(ctx, s.Customer.DebtorIdent); err != nil {
		c.logger.Warn("usage recorded but billing run failed", zap.Error(err))
		c.countUpstreamError("billing_run")
	}
	return true
}

func (c *SessionController) journalSession(ctx context.Context, s *models.ChargingSession, breakdown pricing.Breakdown, currency string, reported bool) {
	if c.journal == nil {
		return
	}
	err := c.journal.Insert(ctx, &repository.SessionRecord{
		StationID:   c.stationID,
		TagID:       s.TagID,
		ContractID:  s.Customer.ContractID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		BlockingFee: breakdown.BlockingFee,
		ChargingFee: breakdown.ChargingFee,
		TotalCost:   breakdown.Total(),
		Currency:    currency,
		Reported:    reported,
	})
	if err != nil {
		c.logger.Warn("failed to journal session", zap.Error(err))
	}
}

// showPricing pushes the fetched fee rates to the display: the blocking
// rate in effect now and the charging rate of the open-ended tier.
func (c *SessionController) showPricing(now time.Time) {
	for _, opt := range c.session.PlanOptions {
		switch {
		case opt.Role == pricing.RoleBlocking && opt.Kind == pricing.KindTimeBanded:
			rule, ok := pricing.ActiveRule(opt.Rules, now)
			if !ok {
				c.logger.Warn("current time matches no pricing band", zap.String("option", opt.Name))
				continue
			}
			c.display.ShowPricing("Blocking Fee", rule.Amount, rule.Currency, string(opt.QuantityType))
		case opt.Role == pricing.RoleCharging && opt.Kind == pricing.KindTiered:
			if len(opt.Tiers) == 0 {
				continue
			}
			last := opt.Tiers[len(opt.Tiers)-1]
			c.display.ShowPricing("Charging Fee", last.UnitPrice, c.currency, string(opt.QuantityType))
		}
	}
}

// PurchaseProduct books the kiosk's side product (coffee) on the
// customer's contract. Independent of the charging session.
func (c *SessionController) PurchaseProduct(ctx context.Context, tagID string) error {
	customer, ok := c.customers[tagID]
	if !ok {
		c.display.ShowError("Unknown card")
		return fmt.Errorf("%w: %s", ErrUnknownTag, tagID)
	}
	if c.coffee.ProductIdent == "" {
		return errors.New("service: no purchase product configured")
	}

	now := c.clock()
	c.display.ShowStatus("Coffee Purchase", fmt.Sprintf("Price: %.2f %s", c.coffee.Price, c.coffee.Currency), "Processing...")

	err := c.reporter.CreateUsage(ctx, models.UsageRecord{
		TagID:        tagID,
		Customer:     customer,
		Start:        now,
		End:          now,
		ProductIdent: c.coffee.ProductIdent,
		Quantity:     1,
		QuantityType: "PIECE",
	})
	if err != nil {
		c.countUpstreamError("create_usage")
		c.display.ShowError("Purchase failed")
		return fmt.Errorf("service: coffee purchase: %w", err)
	}

	c.display.ShowStatus("Coffee purchased")
	if err := c.reporter.TriggerBillingRun(ctx, customer.DebtorIdent); err != nil {
		c.logger.Warn("purchase recorded but billing run failed", zap.Error(err))
		c.countUpstreamError("billing_run")
	}
	return nil
}

func (c *SessionController) countUpstreamError(operation string) {
	if c.metrics != nil {
		c.metrics.UpstreamErrors.WithLabelValues(operation).Inc()
	}
}

// Close forces the relay off. Called on shutdown so the kiosk never leaves
// power flowing unattended.
func (c *SessionController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relay.Set(false)
}
