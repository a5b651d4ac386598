// Package deck builds slide decks from a project's captures: each capture
// becomes a card with its screenshot, source URL, date, and rendered note.
package deck

import (
	"fmt"
	"html/template"

	"github.com/hazyhaar/snapdeck/store"
)

// Slide is one card of a deck.
type Slide struct {
	ID       string
	File     string
	URL      string
	Date     string
	ImageSrc string
	NoteRaw  string
	NoteHTML template.HTML
}

// Deck is a renderable set of slides for one project.
type Deck struct {
	Project string
	Title   string
	Slides  []Slide
}

// Build assembles the deck for a project from its records, order and notes.
// An empty title defaults to "Captures - <project>".
func Build(s *store.Store, project, title string) (*Deck, error) {
	records, err := s.ReadCaptures(project)
	if err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	notes, err := s.ReadNotes(project)
	if err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	if title == "" {
		title = "Captures - " + project
	}

	d := &Deck{Project: project, Title: title}
	for _, r := range records {
		raw := notes[r.File]
		d.Slides = append(d.Slides, Slide{
			ID:       r.ID,
			File:     r.File,
			URL:      r.URL,
			Date:     r.Date,
			ImageSrc: store.ImageSrc(project, r.File),
			NoteRaw:  raw,
			NoteHTML: RenderNote(raw),
		})
	}
	return d, nil
}
