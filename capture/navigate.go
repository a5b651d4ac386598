package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/snapdeck/capture/internal/race"
	"github.com/hazyhaar/snapdeck/engine"
)

// NavState is the navigation state machine position. TimedOutButProgressed
// is terminal and treated as Finished by the session.
type NavState string

const (
	NavIdle                  NavState = "idle"
	NavRequested             NavState = "requested"
	NavStartedProvisional    NavState = "started_provisional"
	NavCommitted             NavState = "committed"
	NavFinished              NavState = "finished"
	NavFailed                NavState = "failed"
	NavTimedOutButProgressed NavState = "timed_out_but_progressed"
)

const (
	// domPollInterval paces the DOM-ready poller and the readiness loops.
	domPollInterval = 450 * time.Millisecond
	// domPollGrace delays the first DOM poll after the load request.
	domPollGrace = 600 * time.Millisecond
	// watchdogMinProgress: at timeout, this much engine-reported progress
	// still counts as "slow but alive".
	watchdogMinProgress = 0.55
)

// coordinator races three independent waiters to a single "page ready to
// proceed" continuation: the engine finish signal, a timeout watchdog, and
// a DOM-ready poller. First to complete wins; the rest are cancelled.
type coordinator struct {
	eng engine.Engine
	p   Profile
	smp *sampler
	log *slog.Logger

	mu          sync.Mutex
	state       NavState
	committedAt time.Time
}

func newCoordinator(eng engine.Engine, p Profile, smp *sampler, log *slog.Logger) *coordinator {
	return &coordinator{eng: eng, p: p, smp: smp, log: log, state: NavIdle}
}

func (n *coordinator) setState(s NavState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
	if s == NavCommitted {
		n.committedAt = time.Now()
	}
}

func (n *coordinator) snapshot() (NavState, time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state, n.committedAt
}

// run drives navigation for url and blocks until one waiter resolves.
func (n *coordinator) run(ctx context.Context, url string) (NavState, error) {
	events, err := n.eng.Load(ctx, url, n.p.NavTimeout)
	if err != nil {
		return NavFailed, failure(FailNavigationFailed, url, err)
	}
	n.setState(NavRequested)

	finished := make(chan struct{})
	fatal := make(chan error, 1)

	go n.pump(events, finished, fatal)

	state, err := race.First(ctx,
		func(ctx context.Context) (NavState, error) {
			return n.waitEngineSignal(ctx, url, finished, fatal)
		},
		func(ctx context.Context) (NavState, error) {
			return n.watchdog(ctx, url)
		},
		func(ctx context.Context) (NavState, error) {
			return n.pollDOM(ctx)
		},
	)
	if err != nil {
		n.setState(NavFailed)
		return NavFailed, err
	}
	n.setState(state)
	return state, nil
}

// pump consumes the engine event stream, tracks state, and forwards the
// terminal signals. Superseded-load errors are benign and ignored; all
// other navigation errors and renderer termination are fatal.
func (n *coordinator) pump(events <-chan engine.NavEvent, finished chan<- struct{}, fatal chan<- error) {
	done := false
	for ev := range events {
		switch ev.Kind {
		case engine.EventStarted:
			n.setState(NavStartedProvisional)
		case engine.EventCommitted:
			n.setState(NavCommitted)
		case engine.EventFinished:
			if !done {
				done = true
				close(finished)
			}
		case engine.EventFailed:
			if errors.Is(ev.Err, engine.ErrLoadSuperseded) {
				n.log.Debug("nav: superseded load ignored", "error", ev.Err)
				continue
			}
			if !done {
				done = true
				select {
				case fatal <- ev.Err:
				default:
				}
			}
		}
	}
}

func (n *coordinator) waitEngineSignal(ctx context.Context, url string, finished <-chan struct{}, fatal <-chan error) (NavState, error) {
	select {
	case <-finished:
		return NavFinished, nil
	case err := <-fatal:
		kind := FailNavigationFailed
		if errors.Is(err, engine.ErrRendererTerminated) {
			kind = FailRendererTerminated
		}
		return NavFailed, failure(kind, url, err)
	case <-ctx.Done():
		return NavFailed, ctx.Err()
	}
}

// watchdog fires at the navigation timeout and inspects accumulated
// progress: a started or committed load, any DOM content, or enough
// engine-reported progress resolves success rather than misclassifying a
// slow-but-alive page as a hard failure.
func (n *coordinator) watchdog(ctx context.Context, url string) (NavState, error) {
	if !sleepCtx(ctx, n.p.NavTimeout) {
		return NavFailed, ctx.Err()
	}

	state, _ := n.snapshot()
	if state == NavStartedProvisional || state == NavCommitted {
		n.log.Warn("nav: timeout with progress, proceeding", "url", url, "state", state)
		return NavTimedOutButProgressed, nil
	}
	if c, ok := n.smp.census(ctx); ok && c.Nodes > 0 {
		n.log.Warn("nav: timeout but DOM has content, proceeding", "url", url, "nodes", c.Nodes)
		return NavTimedOutButProgressed, nil
	}
	if p := n.eng.Progress(ctx); p >= watchdogMinProgress {
		n.log.Warn("nav: timeout with load progress, proceeding", "url", url, "progress", p)
		return NavTimedOutButProgressed, nil
	}
	return NavFailed, failure(FailNavigationTimeout, url, nil)
}

// pollDOM resolves early once content is meaningful, once the loose exit
// bar passes, or — only when the profile allows it — after the commit
// fallback delay.
func (n *coordinator) pollDOM(ctx context.Context) (NavState, error) {
	if !sleepCtx(ctx, domPollGrace) {
		return NavFailed, ctx.Err()
	}
	for {
		if c, ok := n.smp.census(ctx); ok {
			if c.Meaningful() {
				return NavFinished, nil
			}
			if c.SafeToExitNav(n.eng.Progress(ctx)) {
				return NavFinished, nil
			}
		}

		if n.p.AllowCommitFallback {
			if state, at := n.snapshot(); state == NavCommitted && !at.IsZero() &&
				time.Since(at) >= n.p.CommitFallbackDelay {
				n.log.Debug("nav: commit fallback resolved")
				return NavFinished, nil
			}
		}

		if !sleepCtx(ctx, domPollInterval) {
			return NavFailed, ctx.Err()
		}
	}
}
