package capture

import (
	"bufio"
	"strings"
	"sync"

	"github.com/hazyhaar/snapdeck/engine"
)

// DefaultRuleSetID keys the built-in rule list. The engine deduplicates
// compilation by this identifier, so concurrent sessions share one compiled
// rule set.
const DefaultRuleSetID = "snapdeck-base"

// defaultRuleText is the built-in block/hide list. Filter-list syntax
// subset: `!` comments, `##sel` hide rules, anything else a URL block
// pattern (`||host^` anchors to a domain).
const defaultRuleText = `! snapdeck base rules — supplied, not derived
||doubleclick.net^
||googlesyndication.com^
||googletagservices.com^
||adservice.google.com^
||amazon-adsystem.com^
||taboola.com^
||outbrain.com^
||criteo.com^
||adnxs.com^
||scorecardresearch.com^
##ins.adsbygoogle
##[id^="google_ads_iframe"]
##[class*="ad-banner"]
##[data-ad-slot]
##[id*="taboola-"]
##.OUTBRAIN
`

// ParseRuleSource parses filter-list text into block patterns and hide
// selectors. Unknown syntax is skipped, never an error: rule lists are
// static inputs, a bad line loses one rule.
func ParseRuleSource(text string) engine.RuleSource {
	var src engine.RuleSource
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "!"):
			continue
		case strings.HasPrefix(line, "##"):
			if sel := strings.TrimSpace(line[2:]); sel != "" {
				src.Hide = append(src.Hide, sel)
			}
		default:
			pat := strings.TrimSuffix(strings.TrimPrefix(line, "||"), "^")
			if pat != "" {
				src.Block = append(src.Block, pat)
			}
		}
	}
	return src
}

// Rule parsing is memoized process-wide with a single-flight guard: the
// first caller parses, concurrent callers wait on the same in-flight
// result, and the result lives for the process lifetime. Rule sets are
// static per process, so entries are never invalidated.
var ruleMemo = struct {
	mu      sync.Mutex
	entries map[string]*ruleEntry
}{entries: make(map[string]*ruleEntry)}

type ruleEntry struct {
	ready chan struct{}
	src   engine.RuleSource
}

// sharedRuleSource returns the parsed rule source for id, computing it at
// most once per process.
func sharedRuleSource(id, text string) engine.RuleSource {
	ruleMemo.mu.Lock()
	if e, ok := ruleMemo.entries[id]; ok {
		ruleMemo.mu.Unlock()
		<-e.ready
		return e.src
	}
	e := &ruleEntry{ready: make(chan struct{})}
	ruleMemo.entries[id] = e
	ruleMemo.mu.Unlock()

	e.src = ParseRuleSource(text)
	close(e.ready)
	return e.src
}
