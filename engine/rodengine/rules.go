package rodengine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/snapdeck/engine"
)

// compiledRules is the engine-side form of a rule set: host fragments to
// block on the wire and a stylesheet hiding matched selectors.
type compiledRules struct {
	blockHosts []string
	css        string
}

var (
	rulesMu  sync.Mutex
	rulesReg = map[string]*compiledRules{}
)

// CompileRules prepares a rule set for application. Compilation for a
// given id happens once per process; later calls return the cached handle.
func (s *Surface) CompileRules(ctx context.Context, id string, src engine.RuleSource) (engine.RuleHandle, error) {
	rulesMu.Lock()
	defer rulesMu.Unlock()

	if _, ok := rulesReg[id]; ok {
		return engine.RuleHandle{ID: id}, nil
	}

	c := &compiledRules{}
	for _, host := range src.Block {
		host = strings.TrimSpace(host)
		if host != "" {
			c.blockHosts = append(c.blockHosts, host)
		}
	}
	if len(src.Hide) > 0 {
		var b strings.Builder
		b.WriteString(strings.Join(src.Hide, ",\n"))
		b.WriteString(" { display: none !important; visibility: hidden !important; }")
		c.css = b.String()
	}

	rulesReg[id] = c
	return engine.RuleHandle{ID: id}, nil
}

// ApplyRules installs a compiled rule set on this surface: a request
// interceptor failing blocked hosts, and the hide stylesheet injected into
// every document the surface loads. Both survive navigations, so applying
// the set already installed is a no-op; applying a different set tears the
// previous one down first.
func (s *Surface) ApplyRules(ctx context.Context, h engine.RuleHandle) error {
	if h.ID == s.appliedRules {
		return nil
	}

	rulesMu.Lock()
	c, ok := rulesReg[h.ID]
	rulesMu.Unlock()
	if !ok {
		return fmt.Errorf("rodengine: unknown rule set %q", h.ID)
	}

	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	if s.removeCSS != nil {
		_ = s.removeCSS()
		s.removeCSS = nil
	}

	if len(c.blockHosts) > 0 {
		router := s.page.HijackRequests()
		blocked := c.blockHosts
		router.MustAdd("*", func(hctx *rod.Hijack) {
			u := hctx.Request.URL()
			for _, host := range blocked {
				if hostnameMatches(u.Hostname(), host) {
					hctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
					return
				}
			}
			hctx.ContinueRequest(&proto.FetchContinueRequest{})
		})
		go router.Run()
		s.router = router
	}

	if c.css != "" {
		script := fmt.Sprintf(`(() => {
			const apply = () => {
				const s = document.createElement('style');
				s.textContent = %q;
				(document.head || document.documentElement).appendChild(s);
			};
			if (document.readyState === 'loading') {
				document.addEventListener('DOMContentLoaded', apply);
			} else {
				apply();
			}
		})()`, c.css)
		remove, err := s.page.EvalOnNewDocument(script)
		if err != nil {
			return fmt.Errorf("rodengine: install hide styles: %w", err)
		}
		s.removeCSS = remove
	}

	s.appliedRules = h.ID
	return nil
}

// hostnameMatches reports whether host is rule or a subdomain of it.
func hostnameMatches(host, rule string) bool {
	host = strings.ToLower(host)
	rule = strings.ToLower(rule)
	return host == rule || strings.HasSuffix(host, "."+rule)
}
