package capture

import (
	"sync"
	"testing"
)

func TestParseRuleSource(t *testing.T) {
	src := ParseRuleSource(`! comment
||ads.example.net^
tracker.example/pixel
##.ad-banner
##

`)
	if len(src.Block) != 2 {
		t.Fatalf("block rules: got %d, want 2", len(src.Block))
	}
	if src.Block[0] != "ads.example.net" {
		t.Errorf("block[0]: got %q", src.Block[0])
	}
	if src.Block[1] != "tracker.example/pixel" {
		t.Errorf("block[1]: got %q", src.Block[1])
	}
	if len(src.Hide) != 1 || src.Hide[0] != ".ad-banner" {
		t.Errorf("hide rules: got %v, want [.ad-banner]", src.Hide)
	}
}

func TestParseRuleSource_DefaultList(t *testing.T) {
	src := ParseRuleSource(defaultRuleText)
	if len(src.Block) == 0 || len(src.Hide) == 0 {
		t.Fatalf("default list: %d block / %d hide rules, want both non-empty",
			len(src.Block), len(src.Hide))
	}
}

func TestSharedRuleSource_SingleFlight(t *testing.T) {
	const id = "test-rules-singleflight"
	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := sharedRuleSource(id, "##.x\n||y.example^\n")
			results[i] = len(src.Block) + len(src.Hide)
		}(i)
	}
	wg.Wait()
	for i, n := range results {
		if n != 2 {
			t.Errorf("caller %d: got %d rules, want 2", i, n)
		}
	}
}
