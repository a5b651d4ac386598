package capture

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
)

func TestCleanup_RunsConfiguredPasses(t *testing.T) {
	fe := &fakeEngine{}
	c := &cleaner{eng: fe, log: discardLogger()}

	p := defaultProfile
	p.Cleanup = CleanupCookieNotice

	out := c.runStage(context.Background(), p, "pre", 3, 0)
	if len(out) != 3 {
		t.Fatalf("passes: got %d, want 3", len(out))
	}
	for i, o := range out {
		if o.Pass != i || o.Stage != "pre" {
			t.Errorf("pass %d: got %+v", i, o)
		}
		// Generic + domain script each report 1 clicked, 2 hidden.
		if o.Clicked != 2 || o.Hidden != 4 {
			t.Errorf("pass %d counts: clicked=%d hidden=%d, want 2/4", i, o.Clicked, o.Hidden)
		}
	}
}

func TestCleanup_BreakerAbortsStage(t *testing.T) {
	var evals atomic.Int32
	fe := &fakeEngine{}
	fe.evalFn = func(string) (json.RawMessage, error) {
		evals.Add(1)
		return nil, errors.New("execution context destroyed")
	}
	c := &cleaner{eng: fe, log: discardLogger()}

	out := c.runStage(context.Background(), defaultProfile, "pre", 5, 0)
	// Generic profile runs one eval per pass; two consecutive failures
	// trip the breaker after the second pass.
	if len(out) != 2 {
		t.Fatalf("passes before breaker: got %d, want 2", len(out))
	}
	if evals.Load() != 2 {
		t.Errorf("evals: got %d, want 2", evals.Load())
	}
}

func TestCleanup_BreakerResetsOnSuccess(t *testing.T) {
	var n atomic.Int32
	fe := &fakeEngine{}
	fe.evalFn = func(string) (json.RawMessage, error) {
		// Alternate failure and success: the breaker never sees two
		// consecutive failures.
		if n.Add(1)%2 == 1 {
			return nil, errors.New("transient")
		}
		return json.Marshal(cleanupCounts{Clicked: 1})
	}
	c := &cleaner{eng: fe, log: discardLogger()}

	p := defaultProfile
	p.Cleanup = CleanupAdSlots // two evals per pass: fail+ok each pass

	out := c.runStage(context.Background(), p, "post", 4, 0)
	if len(out) != 4 {
		t.Fatalf("passes: got %d, want 4 (breaker must reset on success)", len(out))
	}
}

func TestCleanup_BreakerSpansPassBoundary(t *testing.T) {
	var n atomic.Int32
	fe := &fakeEngine{}
	fe.evalFn = func(string) (json.RawMessage, error) {
		// Pass 1: consent ok, domain fails. Pass 2: consent fails —
		// second consecutive evaluation failure, breaker trips mid-pass.
		if n.Add(1) == 1 {
			return json.Marshal(cleanupCounts{Clicked: 1})
		}
		return nil, errors.New("execution context destroyed")
	}
	c := &cleaner{eng: fe, log: discardLogger()}

	p := defaultProfile
	p.Cleanup = CleanupAdSlots

	out := c.runStage(context.Background(), p, "post", 4, 0)
	if len(out) != 2 {
		t.Fatalf("passes before breaker: got %d, want 2", len(out))
	}
	if n.Load() != 3 {
		t.Errorf("evals: got %d, want 3", n.Load())
	}
}

func TestCleanup_FailuresNeverFatal(t *testing.T) {
	fe := &fakeEngine{}
	fe.evalFn = func(script string) (json.RawMessage, error) {
		switch script {
		case censusScript:
			return json.Marshal(Census{Nodes: 500, TextLen: 4000})
		case settleSampleScript:
			return json.Marshal(SettleSample{Ready: true, MutationIdleMs: 1500})
		}
		return nil, errors.New("cleanup scripts all broken")
	}

	res, err := testCapturer(fe).Capture(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Capture: %v (cleanup failure must not propagate)", err)
	}
	if res.Image == nil {
		t.Fatal("nil image")
	}
}
