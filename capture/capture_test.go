package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/snapdeck/engine"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine scripts the rendering-engine capability for tests. Zero-value
// behaviour: navigation finishes immediately, censuses are meaningful,
// snapshots return a noisy full-viewport image.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string

	// Overrides; nil uses the defaults above.
	loadFn     func(url string) (<-chan engine.NavEvent, error)
	evalFn     func(script string) (json.RawMessage, error)
	snapshotFn func(rect engine.Rect, wait bool) (image.Image, error)
	renderFn   func(rect engine.Rect) ([]byte, error)
	rasterFn   func(doc []byte) (image.Image, error)
	progress   float64

	compiled []string
	applied  []string
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEngine) calledOnce(prefixed string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == prefixed {
			n++
		}
	}
	return n
}

func (f *fakeEngine) Load(ctx context.Context, url string, timeout time.Duration) (<-chan engine.NavEvent, error) {
	f.record("load")
	if f.loadFn != nil {
		return f.loadFn(url)
	}
	ch := make(chan engine.NavEvent, 4)
	ch <- engine.NavEvent{Kind: engine.EventStarted}
	ch <- engine.NavEvent{Kind: engine.EventCommitted}
	ch <- engine.NavEvent{Kind: engine.EventFinished}
	close(ch)
	return ch, nil
}

func (f *fakeEngine) Evaluate(ctx context.Context, script string, timeout time.Duration) (json.RawMessage, error) {
	if f.evalFn != nil {
		return f.evalFn(script)
	}
	switch script {
	case censusScript:
		return json.Marshal(Census{Nodes: 300, TextLen: 2400, Interactive: 12, Media: 4, Headings: 2})
	case settleSampleScript:
		return json.Marshal(SettleSample{
			Ready: true, Nodes: 300, TextLen: 2400, Media: 4,
			ImagesTotal: 8, ImagesLoaded: 8, MutationIdleMs: 900,
		})
	case forceVisibleScript:
		f.record("eval:force-visible")
		return json.Marshal(true)
	case restoreVisibilityScript:
		return json.Marshal(true)
	case hostReadyScript:
		return json.Marshal(true)
	case hydrationScript:
		return json.Marshal(true)
	default:
		// Cleanup scripts.
		return json.Marshal(cleanupCounts{Clicked: 1, Hidden: 2})
	}
}

func (f *fakeEngine) Progress(ctx context.Context) float64 { return f.progress }

func (f *fakeEngine) Snapshot(ctx context.Context, rect engine.Rect, wait bool) (image.Image, error) {
	f.record(fmt.Sprintf("snapshot:wait=%v", wait))
	if f.snapshotFn != nil {
		return f.snapshotFn(rect, wait)
	}
	return testNoisyImage(rect.Width, rect.Height), nil
}

func (f *fakeEngine) RenderDocumentPage(ctx context.Context, rect engine.Rect) ([]byte, error) {
	f.record("render-document")
	if f.renderFn != nil {
		return f.renderFn(rect)
	}
	return []byte("%PDF-fake"), nil
}

func (f *fakeEngine) RasterizeDocument(ctx context.Context, doc []byte) (image.Image, error) {
	f.record("rasterize-document")
	if f.rasterFn != nil {
		return f.rasterFn(doc)
	}
	return testNoisyImage(800, 1100), nil
}

func (f *fakeEngine) CompileRules(ctx context.Context, id string, src engine.RuleSource) (engine.RuleHandle, error) {
	f.mu.Lock()
	f.compiled = append(f.compiled, id)
	f.mu.Unlock()
	return engine.RuleHandle{ID: id}, nil
}

func (f *fakeEngine) ApplyRules(ctx context.Context, h engine.RuleHandle) error {
	f.mu.Lock()
	f.applied = append(f.applied, h.ID)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func testNoisyImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func testCapturer(fe *fakeEngine) *Capturer {
	return New(fe, Config{Logger: discardLogger()})
}

func TestCapture_StaticPageEndToEnd(t *testing.T) {
	fe := &fakeEngine{}
	c := testCapturer(fe)

	res, err := c.Capture(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Profile != DefaultProfileID {
		t.Errorf("profile: got %q, want %q", res.Profile, DefaultProfileID)
	}
	b := res.Image.Bounds()
	if b.Dx() != 1920 || b.Dy() != 1080 {
		t.Errorf("image: got %dx%d, want 1920x1080", b.Dx(), b.Dy())
	}
	if res.Tier != "composited" {
		t.Errorf("tier: got %q, want composited", res.Tier)
	}
	if res.NavState != NavFinished {
		t.Errorf("nav state: got %q, want %q", res.NavState, NavFinished)
	}
	if len(fe.compiled) != 1 || fe.compiled[0] != DefaultRuleSetID {
		t.Errorf("compiled rules: got %v, want [%s]", fe.compiled, DefaultRuleSetID)
	}
	if len(fe.applied) != 1 {
		t.Errorf("applied rules: got %v, want one entry", fe.applied)
	}
}

func TestCapture_InvalidInput(t *testing.T) {
	c := testCapturer(&fakeEngine{})
	for _, raw := range []string{"ftp://example.com/x", "notaurl", "https://"} {
		_, err := c.Capture(context.Background(), raw)
		if KindOf(err) != FailInvalidInput {
			t.Errorf("%q: got kind %q, want %q", raw, KindOf(err), FailInvalidInput)
		}
	}
}

func TestCaptureAll_ContinuesPastFailure(t *testing.T) {
	fe := &fakeEngine{}
	c := testCapturer(fe)

	items := c.CaptureAll(context.Background(), []string{
		"ftp://bad.example/x",
		"https://example.com/",
	})
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if items[0].Err == nil {
		t.Error("first item: expected failure for bad scheme")
	}
	if items[1].Err != nil {
		t.Errorf("second item: %v", items[1].Err)
	}
	if items[1].Result == nil {
		t.Fatal("second item: nil result")
	}
}
