// Package capture turns a URL into a fixed-resolution raster of the
// rendered page, despite consent overlays, ad injection, lazy hydration,
// and unreliable load signals. It orchestrates per-domain profiles, a
// navigation state machine, cleanup passes, DOM readiness heuristics, and
// a multi-tier snapshot escalation chain over an opaque rendering engine.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/hazyhaar/snapdeck/engine"
)

// Viewport is the fixed capture resolution.
var Viewport = engine.Rect{Width: 1920, Height: 1080}

// Config configures a Capturer.
type Config struct {
	// RuleSetID and RuleText override the built-in content rule list.
	RuleSetID string
	RuleText  string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RuleSetID == "" {
		c.RuleSetID = DefaultRuleSetID
		c.RuleText = defaultRuleText
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Capturer owns one render surface and runs one capture session at a time
// on it. Batches are processed strictly sequentially.
type Capturer struct {
	cfg Config
	eng engine.Engine
	mu  sync.Mutex // one active session per render surface
}

// New creates a Capturer on the given engine.
func New(eng engine.Engine, cfg Config) *Capturer {
	cfg.defaults()
	return &Capturer{cfg: cfg, eng: eng}
}

// Result is one successful capture.
type Result struct {
	URL      string
	Profile  string
	Image    image.Image
	Tier     string
	NavState NavState
	Cleanup  []CleanupOutcome
	Duration time.Duration

	// HTML is the page's serialized DOM at snapshot time, when it could be
	// read. Downstream note drafting uses it; captures never fail over it.
	HTML string
}

// session is the per-capture state: one per request, discarded at the end,
// never shared across concurrent captures.
type session struct {
	url       string
	profile   Profile
	eng       engine.Engine
	log       *slog.Logger
	ruleSetID string
	ruleText  string

	smp     *sampler
	clean   *cleaner
	esc     *escalator
	samples *sampleWindow
	outcome []CleanupOutcome
}

// Capture runs a full capture session for rawURL.
func (c *Capturer) Capture(ctx context.Context, rawURL string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	if err := validateURL(rawURL); err != nil {
		return nil, failure(FailInvalidInput, rawURL, err)
	}

	profile := ResolveProfile(rawURL)
	log := c.cfg.Logger.With("url", rawURL, "profile", profile.ID)
	log.Info("capture: starting")

	smp := &sampler{eng: c.eng, log: log}
	s := &session{
		url:       rawURL,
		profile:   profile,
		eng:       c.eng,
		log:       log,
		ruleSetID: c.cfg.RuleSetID,
		ruleText:  c.cfg.RuleText,
		smp:       smp,
		clean:     &cleaner{eng: c.eng, log: log},
		esc:       &escalator{eng: c.eng, viewport: Viewport, log: log},
		samples:   newSampleWindow(8),
	}

	res, err := s.run(ctx)
	if err != nil {
		log.Warn("capture: failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	res.Duration = time.Since(start)
	log.Info("capture: done", "tier", res.Tier, "nav_state", res.NavState, "duration", res.Duration)
	return res, nil
}

func (s *session) run(ctx context.Context) (*Result, error) {
	// Content rules: parsed once per process, compiled once per rule-set
	// identifier engine-side. Rule failures only lose suppression, never
	// the capture.
	s.applyRules(ctx)

	// Navigation: three waiters race to one continuation.
	coord := newCoordinator(s.eng, s.profile, s.smp, s.log)
	navState, err := coord.run(ctx, s.url)
	if err != nil {
		return nil, err
	}

	if s.profile.SettleDelay > 0 {
		sleepCtx(ctx, s.profile.SettleDelay)
	}

	// Pre-settle cleanup.
	s.outcome = append(s.outcome, s.clean.runStage(ctx, s.profile, "pre",
		s.profile.PreCleanupPasses, s.profile.PreCleanupPacing)...)

	if s.profile.AggressiveHydration {
		if _, err := s.eng.Evaluate(ctx, hydrationScript, 10*time.Second); err != nil {
			s.log.Debug("capture: hydration scroll failed", "error", err)
		}
	}

	// Readiness: meaningfulness first, then the profile's settle check.
	if !s.smp.waitMeaningful(ctx, s.profile.MeaningfulTimeout) {
		s.log.Warn("capture: proceeding without meaningful content")
	}
	if s.profile.StabilitySamples > 0 {
		if !s.smp.waitStable(ctx, s.profile, s.samples) {
			s.log.Debug("capture: stability wait timed out")
		}
	}

	// Post-settle cleanup.
	s.outcome = append(s.outcome, s.clean.runStage(ctx, s.profile, "post",
		s.profile.PostCleanupPasses, s.profile.PostCleanupPacing)...)

	// Host-specific readiness, strict profiles only.
	if s.profile.StrictSnapshot && s.profile.HostReadyTimeout > 0 {
		if !s.smp.waitHostReady(ctx, s.profile.HostReadyTimeout) {
			s.log.Debug("capture: host readiness timed out")
		}
	}

	cand, err := s.esc.run(ctx, s.url, s.profile.StrictSnapshot)
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:      s.url,
		Profile:  s.profile.ID,
		Image:    cand.Image,
		Tier:     cand.Tier,
		NavState: navState,
		Cleanup:  s.outcome,
		HTML:     s.pageHTML(ctx),
	}, nil
}

func (s *session) pageHTML(ctx context.Context) string {
	raw, err := s.eng.Evaluate(ctx, outerHTMLScript, evalBudget)
	if err != nil {
		s.log.Debug("capture: reading page html failed", "error", err)
		return ""
	}
	var html string
	if err := json.Unmarshal(raw, &html); err != nil {
		return ""
	}
	return html
}

func (s *session) applyRules(ctx context.Context) {
	src := sharedRuleSource(s.ruleSetID, s.ruleText)
	h, err := s.eng.CompileRules(ctx, s.ruleSetID, src)
	if err != nil {
		s.log.Warn("capture: rule compile failed", "error", err)
		return
	}
	if err := s.eng.ApplyRules(ctx, h); err != nil {
		s.log.Warn("capture: rule apply failed", "error", err)
	}
}

// BatchItem records one URL's outcome in a sequential batch.
type BatchItem struct {
	URL    string
	Result *Result
	Err    error
}

// CaptureAll processes URLs strictly sequentially: one session fully
// completes before the next starts, and a per-URL failure is recorded
// rather than aborting the run.
func (c *Capturer) CaptureAll(ctx context.Context, urls []string) []BatchItem {
	items := make([]BatchItem, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			items = append(items, BatchItem{URL: u, Err: ctx.Err()})
			continue
		}
		res, err := c.Capture(ctx, u)
		items = append(items, BatchItem{URL: u, Result: res, Err: err})
	}
	return items
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
