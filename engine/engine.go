// Package engine defines the rendering-engine capability the capture core
// depends on. The core treats the engine as an opaque sandbox: it loads
// URLs, evaluates scripts that return small JSON results, and produces
// raster or print-pipeline output. Implementations live in subpackages
// (rodengine drives Chrome via Rod); tests supply fakes.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"time"
)

// EventKind classifies a navigation lifecycle event.
type EventKind string

const (
	// EventStarted fires when a provisional load begins.
	EventStarted EventKind = "started"
	// EventCommitted fires once the main frame has committed the new document.
	EventCommitted EventKind = "committed"
	// EventFinished fires on the engine's own "navigation finished" signal.
	EventFinished EventKind = "finished"
	// EventFailed carries a navigation error in Err.
	EventFailed EventKind = "failed"
)

// NavEvent is one element of the navigation event stream returned by Load.
type NavEvent struct {
	Kind EventKind
	Err  error
}

// Rect is a viewport-space rectangle in CSS pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RuleSource is an uncompiled declarative content rule set. Rule sets are
// supplied to the core, never derived by it.
type RuleSource struct {
	// Block lists URL filter patterns whose requests are aborted.
	Block []string
	// Hide lists CSS selectors hidden by an injected stylesheet.
	Hide []string
}

// RuleHandle refers to a compiled rule set, keyed by a stable identifier so
// the engine can look it up instead of recompiling.
type RuleHandle struct {
	ID string
}

// Sentinel errors implementations map engine-level failures onto.
var (
	// ErrLoadSuperseded marks a navigation error caused by a newer load
	// replacing the current one. Benign: the coordinator ignores it.
	ErrLoadSuperseded = errors.New("engine: load superseded")

	// ErrRendererTerminated marks a crashed or disconnected renderer
	// process. Fatal to the capture.
	ErrRendererTerminated = errors.New("engine: renderer terminated")
)

// Engine is the rendering capability contract. One Engine instance owns one
// off-screen render surface; callers must not share it across concurrent
// capture sessions.
type Engine interface {
	// Load starts navigating to url and returns the lifecycle event stream.
	// The stream is closed when the load reaches a terminal state or the
	// timeout expires engine-side.
	Load(ctx context.Context, url string, timeout time.Duration) (<-chan NavEvent, error)

	// Evaluate runs a script in the page sandbox and returns its JSON
	// result. Scripts are expected to return small structured values
	// (counts, booleans, censuses), never DOM handles.
	Evaluate(ctx context.Context, script string, timeout time.Duration) (json.RawMessage, error)

	// Progress reports the engine's estimated load progress in [0,1].
	// Best effort: implementations may approximate.
	Progress(ctx context.Context) float64

	// Snapshot rasters the given viewport rectangle. When
	// waitForCompositing is true the engine waits for the compositor to
	// settle before capturing.
	Snapshot(ctx context.Context, rect Rect, waitForCompositing bool) (image.Image, error)

	// RenderDocumentPage renders the page through the print pipeline into a
	// single-page document (PDF bytes) covering rect.
	RenderDocumentPage(ctx context.Context, rect Rect) ([]byte, error)

	// RasterizeDocument rasters the first page of a print-pipeline document
	// produced by RenderDocumentPage. The caller scales the result.
	RasterizeDocument(ctx context.Context, doc []byte) (image.Image, error)

	// CompileRules compiles a declarative rule set under a stable
	// identifier. Implementations return the existing handle when id was
	// already compiled.
	CompileRules(ctx context.Context, id string, src RuleSource) (RuleHandle, error)

	// ApplyRules activates a compiled rule set on the current surface.
	ApplyRules(ctx context.Context, h RuleHandle) error

	// Close releases the render surface.
	Close() error
}
