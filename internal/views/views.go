// Package views embeds the portal page templates.
package views

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"

	"relatorio-ocorrencias/internal/models"
)

//go:embed *.html
var TemplatesFS embed.FS

const (
	PageDashboard = "relatorio_estatistico.html"
	PageFiltered  = "relatorio_filtrado.html"
)

// FilteredAnchors must exist before the filtered report is served.
// area-pdf is optional.
var FilteredAnchors = []string{"sala", "aluno", "btn-carregar-ocorrencias", "area-ocorrencias"}

var idAttr = regexp.MustCompile(`(?:^|\s)id="([^"{}]+)"`)

// Anchors returns the element ids declared in a template file.
func Anchors(fsys fs.FS, page string) (map[string]bool, error) {
	src, err := fs.ReadFile(fsys, page)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", page, err)
	}
	ids := make(map[string]bool)
	for _, m := range idAttr.FindAllSubmatch(src, -1) {
		ids[string(m[1])] = true
	}
	return ids, nil
}

// CheckAnchors returns a *models.IntegrityError listing every required id
// missing from page.
func CheckAnchors(fsys fs.FS, page string, required []string) error {
	ids, err := Anchors(fsys, page)
	if err != nil {
		return err
	}
	var missing []string
	for _, id := range required {
		if !ids[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &models.IntegrityError{Page: page, Missing: missing}
	}
	return nil
}
