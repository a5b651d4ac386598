package pagenote

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findContent locates the main content region of a document: semantic
// landmarks (<main>, <article>) first, then the densest text subtree of
// the body.
func findContent(doc *html.Node) *html.Node {
	for _, tag := range []atom.Atom{atom.Main, atom.Article} {
		for _, n := range findAllByTag(doc, tag) {
			if !isBoilerplate(n) && len(collectText(n)) >= minContentLen {
				return n
			}
		}
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}
	if best := densestNode(body); best != nil {
		return best
	}
	if len(collectText(body)) >= minContentLen {
		return body
	}
	return nil
}

// findAllByTag collects every element with the given tag, in document order.
func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

type regionScore struct {
	node     *html.Node
	textLen  int
	density  float64
	linkDens float64
}

// densestNode scores content-bearing subtrees by text-to-markup ratio,
// penalizing link-heavy regions (navigation, related-article blocks).
func densestNode(root *html.Node) *html.Node {
	var candidates []regionScore

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode || isBoilerplate(n) {
			return
		}
		if !isContentTag(n.DataAtom) && n.DataAtom != atom.Body {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			return
		}

		text := collectText(n)
		if len(text) >= minContentLen {
			markupLen := len(renderNode(n))
			if markupLen == 0 {
				markupLen = 1
			}
			linkLen := len(collectLinkText(n))
			candidates = append(candidates, regionScore{
				node:     n,
				textLen:  len(text),
				density:  float64(len(text)) / float64(markupLen),
				linkDens: float64(linkLen) / float64(len(text)),
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var best *regionScore
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		if c.linkDens > 0.5 {
			continue
		}
		score := c.density * logScale(c.textLen) * (1 - c.linkDens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.node
}

func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	scale := 1.0
	for v := n; v > 100; v /= 2 {
		scale++
	}
	return scale
}

var contentTags = map[atom.Atom]bool{
	atom.Article: true, atom.Main: true, atom.Section: true,
	atom.Div: true, atom.P: true, atom.Td: true,
}

func isContentTag(a atom.Atom) bool { return contentTags[a] }

var boilerplateTags = map[atom.Atom]bool{
	atom.Nav: true, atom.Footer: true, atom.Header: true,
	atom.Aside: true, atom.Form: true,
}

var boilerplateHints = []string{
	"nav", "menu", "footer", "sidebar", "banner", "cookie",
	"consent", "advert", "promo", "share", "comment",
}

// isBoilerplate reports whether a node is chrome rather than content,
// by tag and by class/id/role hints.
func isBoilerplate(n *html.Node) bool {
	if boilerplateTags[n.DataAtom] {
		return true
	}
	hint := strings.ToLower(attrValue(n, "class") + " " + attrValue(n, "id") + " " + attrValue(n, "role"))
	if hint == "  " {
		return false
	}
	for _, h := range boilerplateHints {
		if strings.Contains(hint, h) {
			return true
		}
	}
	return false
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func collectLinkText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node, bool)
	f = func(n *html.Node, inLink bool) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			inLink = true
		}
		if n.Type == html.TextNode && inLink {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c, inLink)
		}
	}
	f(n, false)
	return sb.String()
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
