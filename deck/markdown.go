package deck

import (
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Notes use a small markdown subset: paragraphs, "- " bullet lists,
// *strong* and _em_. The output is sanitized before it reaches a page.

var (
	strongRE   = regexp.MustCompile(`\*(.+?)\*`)
	emRE       = regexp.MustCompile(`_(.+?)_`)
	notePolicy = bluemonday.UGCPolicy()
)

// RenderNote converts a note's markdown subset to sanitized HTML.
func RenderNote(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var parts []string
	var para []string
	inList := false

	flushPara := func() {
		if len(para) > 0 {
			parts = append(parts, "<p>"+inline(strings.Join(para, " "))+"</p>")
			para = nil
		}
	}
	closeList := func() {
		if inList {
			parts = append(parts, "</ul>")
			inList = false
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flushPara()
			closeList()
			continue
		}
		if strings.HasPrefix(line, "- ") {
			flushPara()
			if !inList {
				parts = append(parts, "<ul>")
				inList = true
			}
			parts = append(parts, "<li>"+inline(line[2:])+"</li>")
			continue
		}
		closeList()
		para = append(para, line)
	}
	flushPara()
	closeList()

	return template.HTML(notePolicy.Sanitize(strings.Join(parts, "")))
}

func inline(value string) string {
	escaped := html.EscapeString(value)
	escaped = strongRE.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = emRE.ReplaceAllString(escaped, "<em>$1</em>")
	return escaped
}
