package capture

import (
	"testing"
	"time"
)

func TestCensus_MeaningfulIsDisjunctive(t *testing.T) {
	cases := []struct {
		name string
		c    Census
		want bool
	}{
		{"empty", Census{}, false},
		{"nodes only", Census{Nodes: 60}, true},
		{"text only", Census{TextLen: 180}, true},
		{"interactive only", Census{Interactive: 10}, true},
		{"media only", Census{Media: 6}, true},
		{"heading with minimal text", Census{Headings: 1, TextLen: 40}, true},
		{"heading without text", Census{Headings: 1, TextLen: 10}, false},
		{"all just below", Census{Nodes: 59, TextLen: 179, Interactive: 9, Media: 5}, false},
	}
	for _, tc := range cases {
		if got := tc.c.Meaningful(); got != tc.want {
			t.Errorf("%s: Meaningful() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCensus_SafeToExitNav(t *testing.T) {
	if (Census{}).SafeToExitNav(0.5) {
		t.Error("empty census at progress 0.5: want not safe")
	}
	if !(Census{}).SafeToExitNav(0.92) {
		t.Error("progress 0.92 alone: want safe")
	}
	if !(Census{Nodes: 8}).SafeToExitNav(0) {
		t.Error("nodes 8: want safe")
	}
	if !(Census{Media: 1}).SafeToExitNav(0) {
		t.Error("one media element: want safe")
	}
}

func TestSettleSample_Settled(t *testing.T) {
	s := SettleSample{
		Ready: true, Nodes: 300, TextLen: 2400, Media: 10,
		ImagesTotal: 8, ImagesLoaded: 8, MutationIdleMs: 900,
	}
	if !s.Settled(700 * time.Millisecond) {
		t.Error("fully loaded sample with idle 900ms: Settled=false, want true")
	}

	s.ImagesLoaded = 2 // 25% < 92% tolerance
	if s.Settled(700 * time.Millisecond) {
		t.Error("25%% images loaded: Settled=true, want false")
	}

	s.ImagesLoaded = 8
	s.MutationIdleMs = 300
	if s.Settled(700 * time.Millisecond) {
		t.Error("idle 300ms under 700ms threshold: Settled=true, want false")
	}

	s.MutationIdleMs = 900
	s.Ready = false
	if s.Settled(700 * time.Millisecond) {
		t.Error("ready=false: Settled=true, want false")
	}
}

func TestSettleSample_ImageTolerance(t *testing.T) {
	// 12 of 13 = 92.3% passes the 92% bar; 11 of 12 = 91.7% does not.
	ok := SettleSample{Ready: true, ImagesTotal: 13, ImagesLoaded: 12, MutationIdleMs: 1000}
	if !ok.Settled(700 * time.Millisecond) {
		t.Error("92.3%% loaded: want settled")
	}
	notOK := SettleSample{Ready: true, ImagesTotal: 12, ImagesLoaded: 11, MutationIdleMs: 1000}
	if notOK.Settled(700 * time.Millisecond) {
		t.Error("91.7%% loaded: want not settled")
	}
}

func TestSettleSample_Stability(t *testing.T) {
	prev := SettleSample{Nodes: 560, TextLen: 5600, Media: 18, ImagesLoaded: 11}
	cur := SettleSample{Nodes: 568, TextLen: 5644, Media: 18, ImagesLoaded: 12}
	if !cur.stableWith(prev) {
		t.Error("in-bounds deltas: stable=false, want true")
	}

	prev = SettleSample{Nodes: 120, TextLen: 800, Media: 3, ImagesLoaded: 2}
	cur = SettleSample{Nodes: 360, TextLen: 2600, Media: 14, ImagesLoaded: 10}
	if cur.stableWith(prev) {
		t.Error("large deltas: stable=true, want false")
	}

	// Each bound individually.
	base := SettleSample{Nodes: 100, TextLen: 1000, Media: 5, ImagesLoaded: 3}
	for _, tc := range []struct {
		name string
		cur  SettleSample
	}{
		{"nodes", SettleSample{Nodes: 125, TextLen: 1000, Media: 5, ImagesLoaded: 3}},
		{"text", SettleSample{Nodes: 100, TextLen: 1091, Media: 5, ImagesLoaded: 3}},
		{"media", SettleSample{Nodes: 100, TextLen: 1000, Media: 8, ImagesLoaded: 3}},
		{"images", SettleSample{Nodes: 100, TextLen: 1000, Media: 5, ImagesLoaded: 5}},
	} {
		if tc.cur.stableWith(base) {
			t.Errorf("%s delta out of bounds: stable=true, want false", tc.name)
		}
	}
}

func TestSampleWindow_Bounded(t *testing.T) {
	w := newSampleWindow(3)
	for i := 0; i < 10; i++ {
		w.push(SettleSample{Nodes: i})
	}
	if len(w.buf) != 3 {
		t.Fatalf("window size: got %d, want 3", len(w.buf))
	}
	last, ok := w.last()
	if !ok || last.Nodes != 9 {
		t.Errorf("last: got %+v ok=%v, want Nodes=9", last, ok)
	}
}
