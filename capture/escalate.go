package capture

import (
	"context"
	"image"
	"log/slog"

	"github.com/hazyhaar/snapdeck/capture/internal/imaging"
	"github.com/hazyhaar/snapdeck/engine"
)

// SnapshotCandidate is one escalation tier's output with its quality stats.
type SnapshotCandidate struct {
	Tier  string
	Image image.Image
	Stats imaging.Stats
}

// Passes reports whether the candidate clears the blank/low-detail filter.
func (c SnapshotCandidate) Passes() bool {
	return !c.Stats.Blank() && !c.Stats.LowDetail()
}

// escalator walks the ordered snapshot fallback chain. Tier order:
// composited raster, fast raster, forced-visible bitmap, document-page
// fallback.
type escalator struct {
	eng      engine.Engine
	viewport engine.Rect
	log      *slog.Logger
}

type snapshotTier struct {
	name string
	fn   func(ctx context.Context) (image.Image, error)
}

func (e *escalator) tiers() []snapshotTier {
	return []snapshotTier{
		{"composited", func(ctx context.Context) (image.Image, error) {
			return e.eng.Snapshot(ctx, e.viewport, true)
		}},
		{"fast", func(ctx context.Context) (image.Image, error) {
			return e.eng.Snapshot(ctx, e.viewport, false)
		}},
		{"forced-visible", e.forcedVisible},
		{"document-page", e.documentPage},
	}
}

// forcedVisible temporarily makes the render surface paint, captures a
// bitmap without waiting for compositing, then restores invisibility.
func (e *escalator) forcedVisible(ctx context.Context) (image.Image, error) {
	if _, err := e.eng.Evaluate(ctx, forceVisibleScript, evalBudget); err != nil {
		return nil, err
	}
	img, err := e.eng.Snapshot(ctx, e.viewport, false)
	if _, rerr := e.eng.Evaluate(ctx, restoreVisibilityScript, evalBudget); rerr != nil {
		e.log.Debug("snapshot: restore visibility failed", "error", rerr)
	}
	return img, err
}

// documentPage renders the page into a single print-pipeline page,
// rasterizes it, and scales the result into the target viewport.
func (e *escalator) documentPage(ctx context.Context) (image.Image, error) {
	doc, err := e.eng.RenderDocumentPage(ctx, e.viewport)
	if err != nil {
		return nil, err
	}
	img, err := e.eng.RasterizeDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	return imaging.FitInto(img, e.viewport.Width, e.viewport.Height), nil
}

func (e *escalator) attempt(ctx context.Context, t snapshotTier) (SnapshotCandidate, bool) {
	img, err := t.fn(ctx)
	if err != nil {
		e.log.Warn("snapshot: tier errored", "tier", t.name, "error", err)
		return SnapshotCandidate{}, false
	}
	c := SnapshotCandidate{Tier: t.name, Image: img, Stats: imaging.Analyze(img)}
	e.log.Debug("snapshot: tier produced candidate",
		"tier", t.name,
		"blank", c.Stats.Blank(), "low_detail", c.Stats.LowDetail(),
		"score", c.Stats.DetailScore())
	return c, true
}

// run produces the final image. Strict mode attempts every tier up front
// and falls back to the best detail score: an imperfect image beats no
// image. Non-strict short-circuits on the first passing tier, with one
// extra forced-visible retry when everything came back blank.
func (e *escalator) run(ctx context.Context, url string, strict bool) (SnapshotCandidate, error) {
	if strict {
		return e.runStrict(ctx, url)
	}
	return e.runChain(ctx, url)
}

func (e *escalator) runChain(ctx context.Context, url string) (SnapshotCandidate, error) {
	for _, t := range e.tiers() {
		c, ok := e.attempt(ctx, t)
		if ok && c.Passes() {
			return c, nil
		}
	}

	// Last resort: one forced-visible retry; a non-blank image is
	// accepted even when low on detail.
	c, ok := e.attempt(ctx, snapshotTier{"forced-visible-retry", e.forcedVisible})
	if ok && !c.Stats.Blank() {
		return c, nil
	}
	return SnapshotCandidate{}, failure(FailSnapshotExhausted, url, nil)
}

func (e *escalator) runStrict(ctx context.Context, url string) (SnapshotCandidate, error) {
	var candidates []SnapshotCandidate
	for _, t := range e.tiers() {
		if c, ok := e.attempt(ctx, t); ok {
			candidates = append(candidates, c)
		}
	}

	for _, c := range candidates {
		if c.Passes() {
			return c, nil
		}
	}

	// None passed outright: keep the best-scoring candidate.
	best := -1
	for i, c := range candidates {
		if c.Stats.Blank() {
			continue
		}
		if best < 0 || c.Stats.DetailScore() > candidates[best].Stats.DetailScore() {
			best = i
		}
	}
	if best >= 0 {
		e.log.Warn("snapshot: no tier passed, keeping best candidate",
			"tier", candidates[best].Tier, "score", candidates[best].Stats.DetailScore())
		return candidates[best], nil
	}
	return SnapshotCandidate{}, failure(FailSnapshotExhausted, url, nil)
}
