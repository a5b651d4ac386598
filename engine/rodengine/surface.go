package rodengine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/snapdeck/engine"
)

// Surface is one engine render surface backed by a stealth Chrome page.
// It implements engine.Engine. A Surface serves one capture session at a
// time; create a fresh one per session and Close it when done.
type Surface struct {
	mgr  *Manager
	page *rod.Page
	log  *slog.Logger

	// appliedRules is the rule-set id already installed on this surface.
	// Interceptors and injected stylesheets outlive a navigation, so
	// re-applying the same set must be a no-op.
	appliedRules string
	router       *rod.HijackRouter
	removeCSS    func() error
}

var _ engine.Engine = (*Surface)(nil)

// NewSurface opens a stealth page sized to the capture viewport.
func NewSurface(mgr *Manager, log *slog.Logger) (*Surface, error) {
	if log == nil {
		log = slog.Default()
	}
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("rodengine: manager not started")
	}
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("rodengine: stealth page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("rodengine: viewport: %w", err)
	}
	return &Surface{mgr: mgr, page: page, log: log}, nil
}

// Load starts navigating to url and returns a stream of navigation events.
// The stream closes after a terminal event or when the timeout elapses.
func (s *Surface) Load(ctx context.Context, url string, timeout time.Duration) (<-chan engine.NavEvent, error) {
	out := make(chan engine.NavEvent, 8)

	evCtx, cancel := context.WithTimeout(ctx, timeout)
	p := s.page.Context(evCtx)

	emit := func(ev engine.NavEvent) {
		select {
		case out <- ev:
		case <-evCtx.Done():
		}
	}

	wait := p.EachEvent(
		func(e *proto.PageFrameStartedLoading) {
			emit(engine.NavEvent{Kind: engine.EventStarted})
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame.ParentID == "" {
				emit(engine.NavEvent{Kind: engine.EventCommitted})
			}
		},
		func(e *proto.PageLoadEventFired) bool {
			emit(engine.NavEvent{Kind: engine.EventFinished})
			return true
		},
		func(e *proto.InspectorTargetCrashed) bool {
			emit(engine.NavEvent{Kind: engine.EventFailed, Err: engine.ErrRendererTerminated})
			return true
		},
	)

	go func() {
		defer cancel()
		defer close(out)
		wait()
	}()

	go func() {
		if err := p.Navigate(url); err != nil {
			emit(engine.NavEvent{Kind: engine.EventFailed, Err: classifyNavError(err)})
			cancel()
		}
	}()

	return out, nil
}

// classifyNavError maps Chrome navigation errors onto engine sentinels.
func classifyNavError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "net::ERR_ABORTED"):
		return engine.ErrLoadSuperseded
	case strings.Contains(msg, "target crashed"), strings.Contains(msg, "session closed"):
		return engine.ErrRendererTerminated
	default:
		return err
	}
}

// Evaluate runs script in the page and returns its JSON-encoded result.
func (s *Surface) Evaluate(ctx context.Context, script string, timeout time.Duration) (json.RawMessage, error) {
	evCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := s.page.Context(evCtx).Eval(script)
	if err != nil {
		return nil, fmt.Errorf("rodengine: eval: %w", classifyNavError(err))
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

// Progress estimates load progress from the document readyState. The
// engine exposes no finer-grained signal, so three coarse steps suffice
// for the watchdog and loose-exit checks.
func (s *Surface) Progress(ctx context.Context) float64 {
	evCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	res, err := s.page.Context(evCtx).Eval(`() => document.readyState`)
	if err != nil {
		return 0
	}
	switch res.Value.Str() {
	case "loading":
		return 0.3
	case "interactive":
		return 0.65
	case "complete":
		return 1.0
	default:
		return 0
	}
}

// Snapshot captures the given viewport rect as a raster image. When
// waitForCompositing is set the capture goes through the surface after two
// animation frames, so pending paints are flushed first.
func (s *Surface) Snapshot(ctx context.Context, rect engine.Rect, waitForCompositing bool) (image.Image, error) {
	p := s.page.Context(ctx)

	if waitForCompositing {
		_, err := p.Eval(`() => new Promise(r => requestAnimationFrame(() => requestAnimationFrame(r)))`)
		if err != nil {
			return nil, fmt.Errorf("rodengine: compositing wait: %w", classifyNavError(err))
		}
	}

	format := proto.PageCaptureScreenshotFormatPng
	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: format,
		Clip: &proto.PageViewport{
			X:      float64(rect.X),
			Y:      float64(rect.Y),
			Width:  float64(rect.Width),
			Height: float64(rect.Height),
			Scale:  1,
		},
		FromSurface: waitForCompositing,
	})
	if err != nil {
		return nil, fmt.Errorf("rodengine: screenshot: %w", classifyNavError(err))
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rodengine: decode screenshot: %w", err)
	}
	return img, nil
}

const pxPerInch = 96.0

// RenderDocumentPage prints the current page through the engine's print
// pipeline and returns the first page as a PDF document.
func (s *Surface) RenderDocumentPage(ctx context.Context, rect engine.Rect) ([]byte, error) {
	p := s.page.Context(ctx)

	w := float64(rect.Width) / pxPerInch
	h := float64(rect.Height) / pxPerInch
	printBG := true
	r, err := p.PDF(&proto.PagePrintToPDF{
		PrintBackground: printBG,
		PaperWidth:      &w,
		PaperHeight:     &h,
		PageRanges:      "1",
	})
	if err != nil {
		return nil, fmt.Errorf("rodengine: print: %w", classifyNavError(err))
	}
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rodengine: read print stream: %w", err)
	}
	return doc, nil
}

// RasterizeDocument opens the PDF in a scratch page and screenshots it.
// Needs headful Chrome: headless-shell ships without a PDF viewer, in
// which case the error propagates and the caller moves on.
func (s *Surface) RasterizeDocument(ctx context.Context, doc []byte) (image.Image, error) {
	b := s.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("rodengine: manager not started")
	}

	url := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(doc)
	scratch, err := b.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("rodengine: scratch page: %w", err)
	}
	defer scratch.Close()

	sp := scratch.Context(ctx)
	if err := sp.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("rodengine: scratch viewport: %w", err)
	}
	if err := sp.WaitLoad(); err != nil {
		return nil, fmt.Errorf("rodengine: pdf viewer load: %w", classifyNavError(err))
	}

	data, err := sp.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:      proto.PageCaptureScreenshotFormatPng,
		FromSurface: true,
	})
	if err != nil {
		return nil, fmt.Errorf("rodengine: pdf screenshot: %w", classifyNavError(err))
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rodengine: decode pdf screenshot: %w", err)
	}
	return img, nil
}

// Close releases the render surface.
func (s *Surface) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	return s.page.Close()
}
