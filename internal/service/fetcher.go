package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
)

// Plan option fetches run in parallel, capped so a contract with many
// options cannot flood the backend.
const maxPlanFetchWorkers = 5

// fetchPlanOptions retrieves every plan option concurrently and returns
// the ones that could be fetched and parsed. Individual failures are
// logged and skipped.
func (c *SessionController) fetchPlanOptions(ctx context.Context, idents []string) []pricing.PlanOption {
	if len(idents) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		opts []pricing.PlanOption
	)
	sem := make(chan struct{}, maxPlanFetchWorkers)

	for _, ident := range idents {
		wg.Add(1)
		go func(ident string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			opt, err := c.plans.PlanOption(ctx, ident)
			if err != nil {
				c.logger.Warn("failed to fetch plan option, skipping",
					zap.String("option", ident),
					zap.Error(err),
				)
				c.countUpstreamError("plan_option")
				return
			}

			mu.Lock()
			opts = append(opts, *opt)
			mu.Unlock()
		}(ident)
	}

	wg.Wait()
	return opts
}
