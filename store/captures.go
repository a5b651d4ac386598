package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Record is one capture entry in a project's captures.md. The French field
// labels (Fichier, URL, Date) are part of the on-disk format.
type Record struct {
	ID   string `json:"id"`
	File string `json:"file"`
	URL  string `json:"url"`
	Date string `json:"date"`
}

var (
	captureRE = regexp.MustCompile(`^<!--\s*CAPTURE:\s*(.+?)\s*-->\s*$`)
	fieldRE   = regexp.MustCompile(`^-\s*(Fichier|URL|Date):\s*(.+?)\s*$`)
)

// ParseCaptures parses captures.md content into records. Unknown lines are
// skipped; a record without fields still counts.
func ParseCaptures(text string) []Record {
	var records []Record
	var cur *Record

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := captureRE.FindStringSubmatch(line); m != nil {
			if cur != nil {
				records = append(records, *cur)
			}
			cur = &Record{ID: m[1]}
			continue
		}
		if cur == nil {
			continue
		}
		if m := fieldRE.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch m[1] {
			case "Fichier":
				cur.File = strings.Trim(value, "`")
			case "URL":
				cur.URL = value
			case "Date":
				cur.Date = value
			}
		}
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records
}

// formatRecord renders a record as a captures.md block.
func formatRecord(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- CAPTURE: %s -->\n", r.ID)
	fmt.Fprintf(&b, "- Fichier: `%s`\n", r.File)
	fmt.Fprintf(&b, "- URL: %s\n", r.URL)
	fmt.Fprintf(&b, "- Date: %s\n", r.Date)
	return b.String()
}

// AppendCapture appends a record to the project's captures.md, creating the
// file on first use. An empty Date is filled with the current time.
func (s *Store) AppendCapture(project string, r Record) error {
	if r.Date == "" {
		r.Date = time.Now().Format("2006-01-02 15:04")
	}
	if err := os.MkdirAll(s.ProjectDir(project), 0o755); err != nil {
		return fmt.Errorf("store: create project dir: %w", err)
	}
	f, err := os.OpenFile(s.CapturesFile(project), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: open captures.md: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + formatRecord(r)); err != nil {
		return fmt.Errorf("store: append capture: %w", err)
	}
	return nil
}

// ReadCaptures loads the project's records with its order file applied.
// A missing captures.md yields an empty slice.
func (s *Store) ReadCaptures(project string) ([]Record, error) {
	data, err := os.ReadFile(s.CapturesFile(project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read captures.md: %w", err)
	}
	records := ParseCaptures(string(data))

	orderData, err := os.ReadFile(s.OrderFile(project))
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("store: read order file: %w", err)
	}
	return ApplyOrder(records, string(orderData)), nil
}

// ApplyOrder reorders records by filename according to an order file: one
// filename per line, blank lines and # comments ignored. Records not listed
// keep their relative order after the listed ones.
func ApplyOrder(records []Record, orderText string) []Record {
	var order []string
	for _, raw := range strings.Split(orderText, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		order = append(order, line)
	}
	if len(order) == 0 {
		return records
	}

	byFile := make(map[string]Record, len(records))
	for _, r := range records {
		if r.File != "" {
			byFile[r.File] = r
		}
	}
	listed := make(map[string]bool, len(order))

	var out []Record
	for _, name := range order {
		if r, ok := byFile[name]; ok {
			out = append(out, r)
			listed[name] = true
		}
	}
	for _, r := range records {
		if !listed[r.File] {
			out = append(out, r)
		}
	}
	return out
}

// WriteOrder replaces the project's order file with the given filenames.
func (s *Store) WriteOrder(project string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f != "" {
			b.WriteString(f)
			b.WriteByte('\n')
		}
	}
	path := s.OrderFile(project)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create order dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("store: write order file: %w", err)
	}
	return nil
}
