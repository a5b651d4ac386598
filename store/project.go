package store

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultProject is the project used when no name (or an empty one after
// sanitization) is given. Its images live directly under screenshots/.
const DefaultProject = "default"

var projectCleanRE = regexp.MustCompile(`[^a-z0-9._-]+`)

// SanitizeProject normalizes a project name to lowercase with spaces turned
// into dashes and anything outside [a-z0-9._-] stripped. Empty results fall
// back to DefaultProject.
func SanitizeProject(value string) string {
	name := strings.ToLower(strings.TrimSpace(value))
	name = strings.ReplaceAll(name, " ", "-")
	name = projectCleanRE.ReplaceAllString(name, "")
	if name == "" {
		return DefaultProject
	}
	return name
}

// ProjectDir returns the screenshot directory for project.
func (s *Store) ProjectDir(project string) string {
	if project == DefaultProject {
		return filepath.Join(s.root, "screenshots")
	}
	return filepath.Join(s.root, "screenshots", project)
}

// CapturesFile returns the path of the project's captures.md.
func (s *Store) CapturesFile(project string) string {
	return filepath.Join(s.ProjectDir(project), "captures.md")
}

// NotesFile returns the path of the project's notes.md.
func (s *Store) NotesFile(project string) string {
	return filepath.Join(s.root, "notes", project, "notes.md")
}

// OrderFile returns the path of the project's order file.
func (s *Store) OrderFile(project string) string {
	return filepath.Join(s.root, "order", project+".md")
}

// ImageSrc returns the URL path under which a project image is served.
func ImageSrc(project, filename string) string {
	if project == DefaultProject {
		return "/screenshots/" + filename
	}
	return "/screenshots/" + project + "/" + filename
}

// Projects lists all projects that exist on disk, the default project
// first and the rest sorted by name.
func (s *Store) Projects() ([]string, error) {
	projects := []string{DefaultProject}
	entries, err := os.ReadDir(filepath.Join(s.root, "screenshots"))
	if err != nil {
		if os.IsNotExist(err) {
			return projects, nil
		}
		return nil, err
	}
	var named []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := SanitizeProject(e.Name())
		if name != DefaultProject {
			named = append(named, name)
		}
	}
	sort.Strings(named)
	return append(projects, named...), nil
}
