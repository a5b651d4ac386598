// Package deckpdf exports a project's ordered captures as a single PDF,
// one slide per page.
package deckpdf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hazyhaar/snapdeck/store"
)

// Export builds the PDF for a project under <root>/exports/<project>.pdf
// and returns its path. Records whose image file is missing are skipped
// with a warning; a project with no usable images is an error.
func Export(s *store.Store, project string, log *slog.Logger) (string, error) {
	if log == nil {
		log = slog.Default()
	}
	records, err := s.ReadCaptures(project)
	if err != nil {
		return "", fmt.Errorf("deckpdf: %w", err)
	}

	var images []string
	for _, r := range records {
		if r.File == "" {
			continue
		}
		path := filepath.Join(s.ProjectDir(project), r.File)
		if _, err := os.Stat(path); err != nil {
			log.Warn("deckpdf: skipping missing image", "project", project, "file", r.File)
			continue
		}
		images = append(images, path)
	}
	if len(images) == 0 {
		return "", fmt.Errorf("deckpdf: project %q has no capture images", project)
	}

	exportDir := filepath.Join(s.Root(), "exports")
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("deckpdf: create export dir: %w", err)
	}
	out := filepath.Join(exportDir, project+".pdf")

	conf := model.NewDefaultConfiguration()
	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImagesFile(images, out, imp, conf); err != nil {
		return "", fmt.Errorf("deckpdf: import images: %w", err)
	}
	if err := api.OptimizeFile(out, out, conf); err != nil {
		return "", fmt.Errorf("deckpdf: optimize: %w", err)
	}

	log.Info("deckpdf: exported", "project", project, "pages", len(images), "path", out)
	return out, nil
}

// ExportURL returns the URL path under which an exported PDF is served.
func ExportURL(project string) string {
	return "/exports/" + project + ".pdf"
}
