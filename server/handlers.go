package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/snapdeck/capture"
	"github.com/hazyhaar/snapdeck/deck"
	"github.com/hazyhaar/snapdeck/deckpdf"
	"github.com/hazyhaar/snapdeck/pagenote"
	"github.com/hazyhaar/snapdeck/store"
)

func (s *Service) handleDeckPage(w http.ResponseWriter, r *http.Request) {
	project := store.SanitizeProject(chi.URLParam(r, "project"))
	d, err := deck.Build(s.st, project, r.URL.Query().Get("title"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.Render(w); err != nil {
		s.log.Error("server: deck render", "project", project, "error", err)
	}
}

func (s *Service) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.st.Projects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Service) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	project := store.SanitizeProject(chi.URLParam(r, "project"))
	records, err := s.st.ReadCaptures(project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type item struct {
		ID   string `json:"id"`
		File string `json:"file"`
		URL  string `json:"url"`
		Date string `json:"date"`
	}
	items := make([]item, 0, len(records))
	for _, rec := range records {
		items = append(items, item{ID: rec.ID, File: rec.File, URL: rec.URL, Date: rec.Date})
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project, "captures": items})
}

type captureRequest struct {
	URL       string `json:"url"`
	DraftNote bool   `json:"draft_note"`
}

type CaptureResponse struct {
	Project    string `json:"project"`
	File       string `json:"file"`
	ImageURL   string `json:"image_url"`
	Tier       string `json:"tier"`
	NavState   string `json:"nav_state"`
	DurationMS int64  `json:"duration_ms"`
	NoteDraft  string `json:"note_draft,omitempty"`
}

func (s *Service) handleCapture(w http.ResponseWriter, r *http.Request) {
	project := store.SanitizeProject(chi.URLParam(r, "project"))

	var req captureRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resp, err := s.captureInto(r.Context(), project, req)
	if err != nil {
		writeError(w, captureStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CaptureURL runs a capture into project and records it: PNG, captures.md
// record, run log, and optionally a drafted note. Project must already be
// sanitized.
func (s *Service) CaptureURL(ctx context.Context, project, rawURL string, draftNote bool) (*CaptureResponse, error) {
	return s.captureInto(ctx, project, captureRequest{URL: rawURL, DraftNote: draftNote})
}

// captureInto is the shared body of the HTTP, MCP and CLI capture paths.
func (s *Service) captureInto(ctx context.Context, project string, req captureRequest) (*CaptureResponse, error) {
	res, err := s.cap.Capture(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	filename := captureFilename(req.URL)
	if _, err := s.st.SavePNG(project, filename, res.Image); err != nil {
		return nil, err
	}
	rec := store.Record{
		ID:   strings.TrimSuffix(filename, ".png"),
		File: filename,
		URL:  req.URL,
	}
	if err := s.st.AppendCapture(project, rec); err != nil {
		return nil, err
	}
	if err := s.st.LogCapture(ctx, store.LogEntry{
		Project:  project,
		File:     filename,
		URL:      req.URL,
		Tier:     res.Tier,
		NavState: string(res.NavState),
		Duration: res.Duration,
	}); err != nil {
		s.log.Warn("server: capture log write failed", "error", err)
	}

	out := &CaptureResponse{
		Project:    project,
		File:       filename,
		ImageURL:   store.ImageSrc(project, filename),
		Tier:       res.Tier,
		NavState:   string(res.NavState),
		DurationMS: res.Duration.Milliseconds(),
	}

	if req.DraftNote && res.HTML != "" {
		if note, err := pagenote.Suggest(res.HTML, req.URL); err == nil && note.Markdown != "" {
			notes, err := s.st.ReadNotes(project)
			if err == nil {
				notes[filename] = note.Markdown
				if err := s.st.WriteNotes(project, notes); err != nil {
					s.log.Warn("server: note draft write failed", "error", err)
				} else {
					out.NoteDraft = note.Markdown
				}
			}
		}
	}
	return out, nil
}

// captureFilename derives a stable-ish PNG name from the URL host and the
// current time.
func captureFilename(rawURL string) string {
	host := "page"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ReplaceAll(u.Hostname(), ".", "-")
	}
	return fmt.Sprintf("%s-%s.png", host, time.Now().Format("20060102-150405"))
}

func captureStatus(err error) int {
	switch capture.KindOf(err) {
	case capture.FailInvalidInput:
		return http.StatusBadRequest
	case capture.FailNavigationTimeout:
		return http.StatusGatewayTimeout
	case capture.FailNavigationFailed, capture.FailRendererTerminated, capture.FailSnapshotExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type editorStateRequest struct {
	Order []string          `json:"order"`
	Notes map[string]string `json:"notes"`
}

func (s *Service) handleEditorState(w http.ResponseWriter, r *http.Request) {
	project := store.SanitizeProject(chi.URLParam(r, "project"))

	var req editorStateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if len(req.Order) > 0 {
		if err := s.st.WriteOrder(project, req.Order); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	if req.Notes != nil {
		if err := s.st.WriteNotes(project, req.Notes); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Service) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	project := store.SanitizeProject(chi.URLParam(r, "project"))

	path, err := deckpdf.Export(s.st, project, s.log)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("server: pdf exported", "project", project, "path", path)
	writeJSON(w, http.StatusOK, map[string]string{"url": deckpdf.ExportURL(project)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
