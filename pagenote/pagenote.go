// Package pagenote derives a draft note for a capture from the page's HTML:
// it locates the main content region, converts it to markdown, and trims it
// to note size. The draft is a starting point for the deck editor, not a
// full article extraction.
package pagenote

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

// Note is a draft note extracted from a page.
type Note struct {
	Title    string
	Markdown string
	Text     string
	Hash     string
}

// minContentLen is the minimum text length for a region to count as content.
const minContentLen = 80

// maxNoteLen bounds the markdown draft; notes are summaries, not articles.
const maxNoteLen = 1200

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// Suggest extracts a draft note from page HTML. Selectors, when given, are
// tried first; otherwise semantic landmarks and text density decide.
func Suggest(pageHTML, pageURL string, selectors ...string) (*Note, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("pagenote: parse html: %w", err)
	}

	title := documentTitle(doc)

	var region *html.Node
	for _, sel := range selectors {
		for _, n := range querySelectorAll(doc, sel) {
			if len(collectText(n)) >= minContentLen {
				region = n
				break
			}
		}
		if region != nil {
			break
		}
	}
	if region == nil {
		region = findContent(doc)
	}

	var text, fragment string
	if region != nil {
		text = collectText(region)
		fragment = renderNode(region)
	}

	md := toMarkdown(fragment, pageURL, text)
	md = clampNote(md)

	return &Note{
		Title:    title,
		Markdown: md,
		Text:     text,
		Hash:     hashText(text),
	}, nil
}

func toMarkdown(fragment, pageURL, fallback string) string {
	if fragment == "" {
		return strings.TrimSpace(fallback)
	}
	out, err := mdConverter.ConvertString(fragment, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(out) == "" {
		return strings.TrimSpace(fallback)
	}
	return strings.TrimSpace(out)
}

// clampNote truncates at a paragraph boundary where possible.
func clampNote(md string) string {
	if len(md) <= maxNoteLen {
		return md
	}
	cut := md[:maxNoteLen]
	if idx := strings.LastIndex(cut, "\n\n"); idx > maxNoteLen/2 {
		return strings.TrimSpace(cut[:idx])
	}
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

func documentTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
