package capture

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/snapdeck/engine"
)

func testCoordinator(fe *fakeEngine, p Profile) *coordinator {
	log := discardLogger()
	return newCoordinator(fe, p, &sampler{eng: fe, log: log}, log)
}

func emptyCensusEval(script string) (json.RawMessage, error) {
	if script == censusScript {
		return json.Marshal(Census{})
	}
	return json.Marshal(true)
}

func TestNav_EngineFinishWins(t *testing.T) {
	fe := &fakeEngine{}
	fe.evalFn = emptyCensusEval

	state, err := testCoordinator(fe, defaultProfile).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavFinished {
		t.Errorf("state: got %q, want %q", state, NavFinished)
	}
}

func TestNav_PollerResolvesOnMeaningfulContent(t *testing.T) {
	// No finish event ever fires; the DOM poller sees meaningful content
	// and resolves success.
	fe := &fakeEngine{}
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 2)
		ch <- engine.NavEvent{Kind: engine.EventStarted}
		ch <- engine.NavEvent{Kind: engine.EventCommitted}
		return ch, nil // never closed, never finishes
	}

	p := defaultProfile
	p.NavTimeout = 10 * time.Second

	start := time.Now()
	state, err := testCoordinator(fe, p).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavFinished {
		t.Errorf("state: got %q, want %q", state, NavFinished)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("poller did not resolve early")
	}
}

func TestNav_ProgressNearCompleteResolvesSuccess(t *testing.T) {
	// Finish never fires, census stays empty, but engine progress
	// reaches 0.92 before the timeout: success, not failure.
	fe := &fakeEngine{progress: 0.95}
	fe.evalFn = emptyCensusEval
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 1)
		ch <- engine.NavEvent{Kind: engine.EventStarted}
		return ch, nil
	}

	p := defaultProfile
	p.NavTimeout = 10 * time.Second

	state, err := testCoordinator(fe, p).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavFinished {
		t.Errorf("state: got %q, want %q", state, NavFinished)
	}
}

func TestNav_LooseBarContentResolvesAtLowProgress(t *testing.T) {
	// Finish never fires and engine progress stays low, but a trickle of
	// DOM content crosses the loose exit bar. The bar is a plain
	// disjunction: any of its signals alone resolves the wait.
	fe := &fakeEngine{progress: 0.2}
	fe.evalFn = func(script string) (json.RawMessage, error) {
		if script == censusScript {
			return json.Marshal(Census{Nodes: 10, TextLen: 25})
		}
		return json.Marshal(true)
	}
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 1)
		ch <- engine.NavEvent{Kind: engine.EventStarted}
		return ch, nil
	}

	p := defaultProfile
	p.NavTimeout = 10 * time.Second

	start := time.Now()
	state, err := testCoordinator(fe, p).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavFinished {
		t.Errorf("state: got %q, want %q", state, NavFinished)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("loose bar did not resolve early")
	}
}

func TestNav_WatchdogTimeoutWithProgress(t *testing.T) {
	// Load committed but nothing else ever happens and the DOM stays
	// unreadable: the watchdog fires and tolerates it.
	fe := &fakeEngine{}
	fe.evalFn = func(string) (json.RawMessage, error) {
		return nil, errors.New("context destroyed")
	}
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 2)
		ch <- engine.NavEvent{Kind: engine.EventStarted}
		ch <- engine.NavEvent{Kind: engine.EventCommitted}
		return ch, nil
	}

	p := defaultProfile
	p.NavTimeout = 150 * time.Millisecond

	state, err := testCoordinator(fe, p).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavTimedOutButProgressed {
		t.Errorf("state: got %q, want %q", state, NavTimedOutButProgressed)
	}
}

func TestNav_WatchdogTimeoutNoProgress(t *testing.T) {
	fe := &fakeEngine{}
	fe.evalFn = func(string) (json.RawMessage, error) {
		return nil, errors.New("context destroyed")
	}
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		return make(chan engine.NavEvent), nil // nothing ever happens
	}

	p := defaultProfile
	p.NavTimeout = 150 * time.Millisecond

	_, err := testCoordinator(fe, p).run(context.Background(), "https://x.test/")
	if KindOf(err) != FailNavigationTimeout {
		t.Errorf("kind: got %q, want %q", KindOf(err), FailNavigationTimeout)
	}
}

func TestNav_FatalEngineError(t *testing.T) {
	fe := &fakeEngine{}
	fe.evalFn = emptyCensusEval
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 1)
		ch <- engine.NavEvent{Kind: engine.EventFailed, Err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
		close(ch)
		return ch, nil
	}

	_, err := testCoordinator(fe, defaultProfile).run(context.Background(), "https://x.test/")
	if KindOf(err) != FailNavigationFailed {
		t.Errorf("kind: got %q, want %q", KindOf(err), FailNavigationFailed)
	}
}

func TestNav_RendererTerminated(t *testing.T) {
	fe := &fakeEngine{}
	fe.evalFn = emptyCensusEval
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 1)
		ch <- engine.NavEvent{Kind: engine.EventFailed, Err: engine.ErrRendererTerminated}
		close(ch)
		return ch, nil
	}

	_, err := testCoordinator(fe, defaultProfile).run(context.Background(), "https://x.test/")
	if KindOf(err) != FailRendererTerminated {
		t.Errorf("kind: got %q, want %q", KindOf(err), FailRendererTerminated)
	}
}

func TestNav_SupersededLoadIgnored(t *testing.T) {
	fe := &fakeEngine{}
	fe.evalFn = emptyCensusEval
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 3)
		ch <- engine.NavEvent{Kind: engine.EventStarted}
		ch <- engine.NavEvent{Kind: engine.EventFailed, Err: engine.ErrLoadSuperseded}
		ch <- engine.NavEvent{Kind: engine.EventFinished}
		close(ch)
		return ch, nil
	}

	state, err := testCoordinator(fe, defaultProfile).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavFinished {
		t.Errorf("state: got %q, want %q", state, NavFinished)
	}
}

func TestNav_CommitFallback(t *testing.T) {
	// Page commits but never finishes and never shows meaningful
	// content; a profile allowing the commit fallback still resolves.
	fe := &fakeEngine{}
	fe.evalFn = emptyCensusEval
	fe.loadFn = func(string) (<-chan engine.NavEvent, error) {
		ch := make(chan engine.NavEvent, 2)
		ch <- engine.NavEvent{Kind: engine.EventStarted}
		ch <- engine.NavEvent{Kind: engine.EventCommitted}
		return ch, nil
	}

	p := defaultProfile
	p.NavTimeout = 10 * time.Second
	p.AllowCommitFallback = true
	p.CommitFallbackDelay = 300 * time.Millisecond

	start := time.Now()
	state, err := testCoordinator(fe, p).run(context.Background(), "https://x.test/")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != NavFinished {
		t.Errorf("state: got %q, want %q", state, NavFinished)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond || elapsed > 5*time.Second {
		t.Errorf("commit fallback timing off: %v", elapsed)
	}
}
