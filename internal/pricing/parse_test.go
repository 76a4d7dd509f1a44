package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timeBandedJSON = `{
	"optionName": "blocking-time",
	"quantityType": "MINUTE",
	"pricingGroups": [
		{
			"pricingRules": [
				{
					"criteria": {"timePeriod": {"start": "08:00:00", "end": "22:00:00"}},
					"price": {"amount": 0.10, "currency": "EUR"}
				},
				{
					"criteria": {"timePeriod": {"start": "22:00:00", "end": "08:00:00"}},
					"price": {"amount": 0.0, "currency": "EUR"}
				}
			]
		}
	]
}`

const tieredJSON = `{
	"name": "charging-time",
	"quantityType": "SECOND",
	"priceTiers": [
		{"quantity": 5.0, "price": 0.0, "type": "FLAT"},
		{"quantity": 1.0, "price": 0.01, "type": "FLAT"}
	]
}`

func TestParsePlanOptionTimeBanded(t *testing.T) {
	opt, err := ParsePlanOption("opt-1", []byte(timeBandedJSON))
	require.NoError(t, err)

	assert.Equal(t, KindTimeBanded, opt.Kind)
	assert.Equal(t, RoleBlocking, opt.Role)
	assert.Equal(t, QuantityMinute, opt.QuantityType)
	require.Len(t, opt.Rules, 2)
	assert.Equal(t, "08:00:00", opt.Rules[0].Start)
	assert.InDelta(t, 0.10, opt.Rules[0].Amount, 1e-9)
	assert.Equal(t, "EUR", opt.Rules[0].Currency)
}

func TestParsePlanOptionTiered(t *testing.T) {
	opt, err := ParsePlanOption("opt-2", []byte(tieredJSON))
	require.NoError(t, err)

	assert.Equal(t, KindTiered, opt.Kind)
	assert.Equal(t, RoleCharging, opt.Role)
	assert.Equal(t, QuantitySecond, opt.QuantityType)
	require.Len(t, opt.Tiers, 2)
	assert.Equal(t, 5.0, opt.Tiers[0].Quantity)
	assert.InDelta(t, 0.01, opt.Tiers[1].UnitPrice, 1e-9)
}

func TestParsePlanOptionMissingQuantityTypeUsesShapeDefault(t *testing.T) {
	opt, err := ParsePlanOption("opt-3", []byte(`{"optionName":"charging","priceTiers":[{"quantity":1,"price":0.02}]}`))
	require.NoError(t, err)
	assert.Equal(t, QuantitySecond, opt.QuantityType)

	opt, err = ParsePlanOption("opt-4", []byte(`{
		"optionName": "blocking",
		"pricingGroups": [{"pricingRules": [{"criteria":{"timePeriod":{"start":"00:00","end":"24:00"}},"price":{"amount":0.1,"currency":"EUR"}}]}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, QuantityMinute, opt.QuantityType)
}

func TestParsePlanOptionMalformedShape(t *testing.T) {
	_, err := ParsePlanOption("opt-5", []byte(`{"optionName": "mystery", "quantityType": "SECOND"}`))
	assert.ErrorIs(t, err, ErrMalformedPlan)
}

func TestParsePlanOptionInvalidJSON(t *testing.T) {
	_, err := ParsePlanOption("opt-6", []byte(`{not json`))
	assert.Error(t, err)
}

func TestClassifyRole(t *testing.T) {
	assert.Equal(t, RoleBlocking, classifyRole("Blocking-Time Fee"))
	assert.Equal(t, RoleBlocking, classifyRole("", "EV Block Tariff"))
	assert.Equal(t, RoleCharging, classifyRole("charging-time"))
	assert.Equal(t, RoleCharging, classifyRole("Fast Charging"))
	assert.Equal(t, RoleUnknown, classifyRole("parking"))
}
