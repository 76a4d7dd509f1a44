package pricing

import (
	"time"

	"go.uber.org/zap"
)

// Breakdown is the per-role cost of a finished session.
type Breakdown struct {
	BlockingFee float64 `json:"blockingFee"`
	ChargingFee float64 `json:"chargingFee"`
	Currency    string  `json:"currency"`
}

// Total returns the full session cost. The additive blocking-plus-charging
// model is the entire cost model.
func (b Breakdown) Total() float64 {
	return b.BlockingFee + b.ChargingFee
}

// Calculator turns session timestamps and plan options into money. All
// methods are pure over their inputs apart from logging.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator builds a calculator.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger}
}

// unitsFor converts a duration into the plan's quantity unit. Unrecognized
// quantity types fall back to seconds.
func (c *Calculator) unitsFor(d time.Duration, qt QuantityType) float64 {
	seconds := d.Seconds()
	switch qt {
	case QuantitySecond:
		return seconds
	case QuantityMinute:
		return seconds / 60
	case QuantityHour:
		return seconds / 3600
	default:
		c.logger.Warn("unknown quantity type, using seconds", zap.String("quantity_type", string(qt)))
		return seconds
	}
}

// PlanCost computes the cost of one plan option over [start, end]. For
// time-banded plans the rate in effect at the session start governs the
// whole session; sessions are not re-priced when they cross a band boundary.
// A session start outside every band costs nothing and is logged as a
// condition, not an error.
func (c *Calculator) PlanCost(start, end time.Time, opt PlanOption) float64 {
	if opt.Kind != KindTimeBanded && opt.Kind != KindTiered {
		c.logger.Warn("unknown plan option shape", zap.String("option", opt.Name))
		return 0
	}

	units := c.unitsFor(end.Sub(start), opt.QuantityType)

	if opt.Kind == KindTiered {
		cost := TieredCost(units, opt.Tiers)
		c.logger.Debug("tiered plan cost",
			zap.String("option", opt.Name),
			zap.Float64("units", units),
			zap.Float64("cost", cost),
		)
		return cost
	}

	rate, ok := RateAt(opt.Rules, start)
	if !ok {
		c.logger.Warn("no pricing rule matches session start",
			zap.String("option", opt.Name),
			zap.Time("start", start),
		)
		return 0
	}

	cost := units * rate
	c.logger.Debug("time-banded plan cost",
		zap.String("option", opt.Name),
		zap.Float64("units", units),
		zap.Float64("rate", rate),
		zap.Float64("cost", cost),
	)
	return cost
}

// TotalCost combines the blocking fee and the charging fee of a session.
// Plans with any other role are ignored; at most one plan of each role is
// expected.
func (c *Calculator) TotalCost(start, end time.Time, opts []PlanOption) Breakdown {
	var out Breakdown

	for _, opt := range opts {
		switch opt.Role {
		case RoleBlocking:
			out.BlockingFee = c.PlanCost(start, end, opt)
		case RoleCharging:
			out.ChargingFee = c.PlanCost(start, end, opt)
		default:
			c.logger.Debug("plan option matches no fee role, skipping", zap.String("option", opt.Name))
		}
		if out.Currency == "" {
			out.Currency = optionCurrency(opt)
		}
	}

	c.logger.Info("session cost computed",
		zap.Float64("blocking_fee", out.BlockingFee),
		zap.Float64("charging_fee", out.ChargingFee),
		zap.Float64("total", out.Total()),
	)
	return out
}

func optionCurrency(opt PlanOption) string {
	for _, rule := range opt.Rules {
		if rule.Currency != "" {
			return rule.Currency
		}
	}
	return ""
}
