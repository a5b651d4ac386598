package capture

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hazyhaar/snapdeck/engine"
)

// Meaningfulness thresholds. Disjunctive on purpose: the loop stops waiting
// as soon as one strong signal appears instead of requiring all of them.
const (
	meaningfulNodes       = 60
	meaningfulText        = 180
	meaningfulInteractive = 10
	meaningfulMedia       = 6
	meaningfulHeadingText = 40
)

// Looser bar used purely to decide "safe to exit the navigation wait".
const (
	looseExitNodes    = 8
	looseExitText     = 20
	looseExitProgress = 0.92
)

// Stability bounds between two consecutive settle samples.
const (
	stableNodeDelta         = 24
	stableTextDelta         = 90
	stableMediaDelta        = 2
	stableImagesLoadedDelta = 1

	// ImageLoadTolerance: image loading counts as done at this loaded
	// ratio. Heuristic — tolerates perpetually-failing assets instead of
	// waiting for 100%.
	ImageLoadTolerance = 0.92
)

// Census is a point-in-time DOM census used for meaningfulness decisions.
type Census struct {
	Nodes       int `json:"nodes"`
	TextLen     int `json:"textLen"`
	Interactive int `json:"interactive"`
	Media       int `json:"media"`
	Headings    int `json:"headings"`
}

// Meaningful reports whether any single census signal crosses its
// threshold.
func (c Census) Meaningful() bool {
	switch {
	case c.Nodes >= meaningfulNodes:
		return true
	case c.TextLen >= meaningfulText:
		return true
	case c.Interactive >= meaningfulInteractive:
		return true
	case c.Media >= meaningfulMedia:
		return true
	case c.Headings >= 1 && c.TextLen >= meaningfulHeadingText:
		return true
	}
	return false
}

// SafeToExitNav applies the looser bar: minimal content of any kind, or the
// engine itself reporting a nearly complete load.
func (c Census) SafeToExitNav(progress float64) bool {
	switch {
	case c.Nodes >= looseExitNodes:
		return true
	case c.TextLen >= looseExitText:
		return true
	case c.Media >= 1:
		return true
	case c.Headings >= 1:
		return true
	case progress >= looseExitProgress:
		return true
	}
	return false
}

// SettleSample is a readiness sample for the stability check.
type SettleSample struct {
	Ready          bool `json:"ready"`
	Nodes          int  `json:"nodes"`
	TextLen        int  `json:"textLen"`
	Media          int  `json:"media"`
	ImagesTotal    int  `json:"imagesTotal"`
	ImagesLoaded   int  `json:"imagesLoaded"`
	MutationIdleMs int  `json:"mutationIdleMs"`
}

// Settled reports whether the sample itself looks done: the page flagged
// ready, mutations idle past the threshold, and images mostly loaded.
func (s SettleSample) Settled(idleThreshold time.Duration) bool {
	if !s.Ready {
		return false
	}
	if time.Duration(s.MutationIdleMs)*time.Millisecond < idleThreshold {
		return false
	}
	return s.imagesMostlyLoaded()
}

func (s SettleSample) imagesMostlyLoaded() bool {
	if s.ImagesTotal == 0 {
		return true
	}
	return float64(s.ImagesLoaded)/float64(s.ImagesTotal) >= ImageLoadTolerance
}

// stableWith compares two consecutive samples: stable when every absolute
// delta stays within bounds.
func (s SettleSample) stableWith(prev SettleSample) bool {
	if absDelta(s.Nodes, prev.Nodes) > stableNodeDelta {
		return false
	}
	if absDelta(s.TextLen, prev.TextLen) > stableTextDelta {
		return false
	}
	if absDelta(s.Media, prev.Media) > stableMediaDelta {
		return false
	}
	if absDelta(s.ImagesLoaded, prev.ImagesLoaded) > stableImagesLoadedDelta {
		return false
	}
	return true
}

func absDelta(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// sampler queries DOM censuses through the engine's script sandbox. Every
// evaluation failure degrades to "not ready" — never an error.
type sampler struct {
	eng engine.Engine
	log *slog.Logger
}

const evalBudget = 3 * time.Second

// census runs the meaningfulness census. ok=false means the read failed and
// the caller should treat the page as not ready.
func (s *sampler) census(ctx context.Context) (Census, bool) {
	raw, err := s.eng.Evaluate(ctx, censusScript, evalBudget)
	if err != nil {
		s.log.Debug("readiness: census eval failed", "error", err)
		return Census{}, false
	}
	var c Census
	if err := json.Unmarshal(raw, &c); err != nil {
		s.log.Debug("readiness: census decode failed", "error", err)
		return Census{}, false
	}
	return c, true
}

// settle runs the stability sample. The mutation-idle probe is installed on
// first use and is idempotent page-side.
func (s *sampler) settle(ctx context.Context) (SettleSample, bool) {
	raw, err := s.eng.Evaluate(ctx, settleSampleScript, evalBudget)
	if err != nil {
		s.log.Debug("readiness: settle eval failed", "error", err)
		return SettleSample{}, false
	}
	var smp SettleSample
	if err := json.Unmarshal(raw, &smp); err != nil {
		s.log.Debug("readiness: settle decode failed", "error", err)
		return SettleSample{}, false
	}
	return smp, true
}

// waitMeaningful polls the census until it turns meaningful or the budget
// expires. Timeout is tolerated: the capture proceeds either way.
func (s *sampler) waitMeaningful(ctx context.Context, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for {
		if c, ok := s.census(ctx); ok && c.Meaningful() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if !sleepCtx(ctx, domPollInterval) {
			return false
		}
	}
}

// waitStable polls settle samples until `samples` consecutive pairs are
// stable and the latest sample is itself settled, or the budget expires.
// The session keeps only a bounded window of recent samples.
func (s *sampler) waitStable(ctx context.Context, p Profile, window *sampleWindow) bool {
	deadline := time.Now().Add(p.StabilityTimeout)
	stableRuns := 0
	for {
		smp, ok := s.settle(ctx)
		if ok {
			if prev, has := window.last(); has && smp.stableWith(prev) {
				stableRuns++
			} else {
				stableRuns = 0
			}
			window.push(smp)

			if stableRuns >= p.StabilitySamples-1 && smp.Settled(p.StabilityIdleThreshold) {
				return true
			}
		} else {
			stableRuns = 0
		}

		if time.Now().After(deadline) {
			return false
		}
		if !sleepCtx(ctx, domPollInterval) {
			return false
		}
	}
}

// sampleWindow keeps the most recent settle samples, bounded.
type sampleWindow struct {
	buf []SettleSample
	max int
}

func newSampleWindow(max int) *sampleWindow {
	if max <= 0 {
		max = 8
	}
	return &sampleWindow{max: max}
}

func (w *sampleWindow) push(s SettleSample) {
	w.buf = append(w.buf, s)
	if len(w.buf) > w.max {
		w.buf = w.buf[len(w.buf)-w.max:]
	}
}

func (w *sampleWindow) last() (SettleSample, bool) {
	if len(w.buf) == 0 {
		return SettleSample{}, false
	}
	return w.buf[len(w.buf)-1], true
}

// sleepCtx sleeps d unless ctx ends first. Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
