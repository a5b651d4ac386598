package capture

import (
	"context"
	"encoding/json"
	"time"
)

const hostReadyPollInterval = 500 * time.Millisecond

// waitHostReady runs the host-aware readiness probe until it reports true
// or the budget expires. Strict profiles only; never fatal — it purely
// improves snapshot timing.
func (s *sampler) waitHostReady(ctx context.Context, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for {
		raw, err := s.eng.Evaluate(ctx, hostReadyScript, evalBudget)
		if err == nil {
			var ready bool
			if json.Unmarshal(raw, &ready) == nil && ready {
				return true
			}
		} else {
			s.log.Debug("readiness: host probe failed", "error", err)
		}
		if time.Now().After(deadline) {
			return false
		}
		if !sleepCtx(ctx, hostReadyPollInterval) {
			return false
		}
	}
}
