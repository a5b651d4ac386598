package capture

import (
	"errors"
	"fmt"
)

// FailureKind classifies a capture failure. Only navigation-level failures
// and full escalation-chain exhaustion reach callers; heuristic evaluation
// failures are absorbed as negative signals.
type FailureKind string

const (
	// FailInvalidInput marks a bad URL or unsupported scheme.
	FailInvalidInput FailureKind = "invalid_input"
	// FailNavigationTimeout marks zero navigation progress within budget.
	FailNavigationTimeout FailureKind = "navigation_timeout"
	// FailNavigationFailed marks a fatal engine or network error.
	FailNavigationFailed FailureKind = "navigation_failed"
	// FailRendererTerminated marks a crashed renderer process.
	FailRendererTerminated FailureKind = "renderer_terminated"
	// FailSnapshotExhausted marks all escalation tiers disqualified or errored.
	FailSnapshotExhausted FailureKind = "snapshot_exhausted"
)

// Error is a typed capture failure.
type Error struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture %s: %s", e.URL, e.Kind)
	}
	return fmt.Sprintf("capture %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failure(kind FailureKind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// KindOf extracts the failure kind from an error chain, or "" for non-capture
// errors.
func KindOf(err error) FailureKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
