package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func blockingPlan() PlanOption {
	return PlanOption{
		Ident:        "opt-blocking",
		Name:         "Blocking Fee",
		Kind:         KindTimeBanded,
		Role:         RoleBlocking,
		QuantityType: QuantityMinute,
		Rules: []PricingRule{
			{Start: "08:00", End: "22:00", Amount: 0.10, Currency: "EUR"},
			{Start: "22:00", End: "08:00", Amount: 0.0, Currency: "EUR"},
		},
	}
}

func chargingPlan() PlanOption {
	return PlanOption{
		Ident:        "opt-charging",
		Name:         "Charging Fee",
		Kind:         KindTiered,
		Role:         RoleCharging,
		QuantityType: QuantitySecond,
		Tiers: []Tier{
			{Quantity: 5, UnitPrice: 0.0},
			{Quantity: 1, UnitPrice: 0.01},
		},
	}
}

func TestPlanCostTimeBandedMinutes(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)

	// 10 minutes at 0.10/minute.
	assert.InDelta(t, 1.00, calc.PlanCost(start, end, blockingPlan()), 1e-9)
}

func TestPlanCostRateFixedAtSessionStart(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	// Starts in the free night band, ends well inside the paid day band;
	// the start rate governs the whole session.
	start := time.Date(2025, time.March, 12, 7, 50, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	assert.Zero(t, calc.PlanCost(start, end, blockingPlan()))
}

func TestPlanCostNoMatchingRuleIsZero(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	opt := blockingPlan()
	opt.Rules = []PricingRule{{Start: "10:00", End: "12:00", Amount: 0.10}}

	start := time.Date(2025, time.March, 12, 14, 0, 0, 0, time.UTC)
	assert.Zero(t, calc.PlanCost(start, start.Add(time.Hour), opt))
}

func TestPlanCostTieredSeconds(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Second)

	// 5 free seconds, 10 at 0.01.
	assert.InDelta(t, 0.10, calc.PlanCost(start, end, chargingPlan()), 1e-9)
}

func TestPlanCostUnknownQuantityTypeFallsBackToSeconds(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	opt := chargingPlan()
	opt.QuantityType = "FORTNIGHT"

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)

	assert.InDelta(t, 0.05, calc.PlanCost(start, end, opt), 1e-9)
}

func TestPlanCostUnknownShapeIsZero(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	assert.Zero(t, calc.PlanCost(start, start.Add(time.Hour), PlanOption{Name: "weird"}))
}

func TestTotalCostCombinesBlockingAndCharging(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)

	// Blocking: 10 min x 0.10 = 1.00. Charging: 600s -> 5 free + 595 x 0.01 = 5.95.
	out := calc.TotalCost(start, end, []PlanOption{blockingPlan(), chargingPlan()})
	assert.InDelta(t, 1.00, out.BlockingFee, 1e-9)
	assert.InDelta(t, 5.95, out.ChargingFee, 1e-9)
	assert.InDelta(t, 6.95, out.Total(), 1e-9)
	assert.Equal(t, "EUR", out.Currency)
}

func TestTotalCostIgnoresUnclassifiedPlans(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	parking := chargingPlan()
	parking.Name = "Parking Surcharge"
	parking.Role = RoleUnknown

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	out := calc.TotalCost(start, start.Add(time.Hour), []PlanOption{parking})
	assert.Zero(t, out.Total())
}

func TestTotalCostNoPlansIsZero(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	assert.Zero(t, calc.TotalCost(start, start.Add(time.Hour), nil).Total())
}

func TestTotalCostIdempotent(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	start := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Minute)
	plans := []PlanOption{blockingPlan(), chargingPlan()}

	first := calc.TotalCost(start, end, plans)
	second := calc.TotalCost(start, end, plans)
	assert.Equal(t, first, second)
}
