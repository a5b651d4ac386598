package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	noteStartRE = regexp.MustCompile(`^<!--\s*NOTE:\s*(.+?)\s*-->\s*$`)
	noteEndRE   = regexp.MustCompile(`^<!--\s*END NOTE\s*-->\s*$`)
)

// ParseNotes parses notes.md content into a capture-filename-to-note map.
// Notes are delimited by NOTE / END NOTE comment markers; a new NOTE marker
// implicitly closes the previous note.
func ParseNotes(text string) map[string]string {
	notes := map[string]string{}
	var name string
	var buf []string

	flush := func() {
		if name == "" {
			return
		}
		notes[name] = strings.TrimSpace(strings.Join(buf, "\n"))
		name = ""
		buf = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if m := noteStartRE.FindStringSubmatch(line); m != nil {
			flush()
			name = strings.TrimSpace(m[1])
			continue
		}
		if noteEndRE.MatchString(line) {
			flush()
			continue
		}
		if name != "" {
			buf = append(buf, raw)
		}
	}
	flush()
	return notes
}

// ReadNotes loads the project's notes. A missing file yields an empty map.
func (s *Store) ReadNotes(project string) (map[string]string, error) {
	data, err := os.ReadFile(s.NotesFile(project))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("store: read notes.md: %w", err)
	}
	return ParseNotes(string(data)), nil
}

// WriteNotes replaces the project's notes.md. Empty notes are dropped and
// entries are written in filename order so the file is stable across saves.
func (s *Store) WriteNotes(project string, notes map[string]string) error {
	names := make([]string, 0, len(notes))
	for name, body := range notes {
		if strings.TrimSpace(body) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "<!-- NOTE: %s -->\n", name)
		b.WriteString(strings.TrimSpace(notes[name]))
		b.WriteString("\n<!-- END NOTE -->\n\n")
	}

	path := s.NotesFile(project)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create notes dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("store: write notes.md: %w", err)
	}
	return nil
}
