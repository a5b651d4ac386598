package capture

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hazyhaar/snapdeck/engine"
)

// cleanupBreakerLimit aborts the remaining iterations of a cleanup stage
// after this many consecutive evaluation failures.
const cleanupBreakerLimit = 2

// CleanupOutcome counts what one pass touched. Diagnostic only — never a
// correctness signal.
type CleanupOutcome struct {
	Stage   string `json:"stage"`
	Pass    int    `json:"pass"`
	Clicked int    `json:"clicked"`
	Hidden  int    `json:"hidden"`
}

type cleanupCounts struct {
	Clicked int `json:"clicked"`
	Hidden  int `json:"hidden"`
}

// cleaner runs bounded consent/ad suppression passes. No failure here is
// fatal to the capture.
type cleaner struct {
	eng engine.Engine
	log *slog.Logger
}

// runStage executes `passes` cleanup passes with the given pacing. Each
// pass is the generic consent sweep plus the profile's domain-specific
// script.
func (c *cleaner) runStage(ctx context.Context, p Profile, stage string, passes int, pacing time.Duration) []CleanupOutcome {
	var out []CleanupOutcome
	consecutive := 0

	for i := 0; i < passes; i++ {
		outcome, tripped := c.pass(ctx, p, stage, i, &consecutive)
		out = append(out, outcome)

		if tripped {
			c.log.Warn("cleanup: breaker tripped, aborting stage",
				"stage", stage, "pass", i)
			break
		}
		if i < passes-1 && !sleepCtx(ctx, pacing) {
			break
		}
	}
	return out
}

// pass runs one iteration. The consecutive-failure counter is kept at the
// evaluation level and spans pass boundaries: any successful evaluation
// resets it, and the breaker trips as soon as it reaches the limit, even
// mid-pass.
func (c *cleaner) pass(ctx context.Context, p Profile, stage string, idx int, consecutive *int) (CleanupOutcome, bool) {
	outcome := CleanupOutcome{Stage: stage, Pass: idx}

	run := func(script string) bool {
		if counts, ok := c.eval(ctx, script); ok {
			outcome.Clicked += counts.Clicked
			outcome.Hidden += counts.Hidden
			*consecutive = 0
			return true
		}
		*consecutive++
		return *consecutive < cleanupBreakerLimit
	}

	if !run(consentScript) {
		return outcome, true
	}
	if script := domainScript(p.Cleanup); script != "" {
		if !run(script) {
			return outcome, true
		}
	}

	c.log.Debug("cleanup: pass done",
		"stage", stage, "pass", idx,
		"clicked", outcome.Clicked, "hidden", outcome.Hidden)
	return outcome, false
}

func (c *cleaner) eval(ctx context.Context, script string) (cleanupCounts, bool) {
	raw, err := c.eng.Evaluate(ctx, script, evalBudget)
	if err != nil {
		c.log.Debug("cleanup: eval failed", "error", err)
		return cleanupCounts{}, false
	}
	var counts cleanupCounts
	if err := json.Unmarshal(raw, &counts); err != nil {
		c.log.Debug("cleanup: decode failed", "error", err)
		return cleanupCounts{}, false
	}
	return counts, true
}

func domainScript(mode CleanupMode) string {
	switch mode {
	case CleanupConsentGateway:
		return consentGatewayScript
	case CleanupCookieNotice:
		return cookieNoticeScript
	case CleanupAdSlots:
		return adSlotsScript
	default:
		return ""
	}
}
