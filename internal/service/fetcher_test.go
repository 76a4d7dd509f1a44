package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
)

func TestFetchPlanOptionsToleratesPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.plans.optionErrs = map[string]error{"opt-charging": errors.New("boom")}

	opts := f.controller.fetchPlanOptions(context.Background(), []string{"opt-blocking", "opt-charging"})

	require.Len(t, opts, 1)
	assert.Equal(t, "opt-blocking", opts[0].Ident)
}

func TestFetchPlanOptionsAllFail(t *testing.T) {
	f := newFixture(t)
	f.plans.optionErrs = map[string]error{
		"opt-blocking": errors.New("boom"),
		"opt-charging": errors.New("boom"),
	}

	opts := f.controller.fetchPlanOptions(context.Background(), []string{"opt-blocking", "opt-charging"})
	assert.Empty(t, opts)
}

func TestFetchPlanOptionsBoundsConcurrency(t *testing.T) {
	f := newFixture(t)

	idents := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		ident := fmt.Sprintf("opt-%d", i)
		idents = append(idents, ident)
		f.plans.options[ident] = &pricing.PlanOption{Ident: ident, Kind: pricing.KindTiered}
	}

	opts := f.controller.fetchPlanOptions(context.Background(), idents)

	assert.Len(t, opts, 20)
	assert.LessOrEqual(t, f.plans.maxSeen, maxPlanFetchWorkers)
	assert.Greater(t, f.plans.maxSeen, 1, "fetches should overlap")
}

func TestFetchPlanOptionsEmptyIdents(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.controller.fetchPlanOptions(context.Background(), nil))
}
