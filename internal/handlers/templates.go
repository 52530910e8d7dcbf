package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"

	"relatorio-ocorrencias/internal/config"
	"relatorio-ocorrencias/internal/models"
	"relatorio-ocorrencias/internal/util"
	"relatorio-ocorrencias/internal/views"

	"github.com/gorilla/csrf"
)

var (
	templates     *template.Template
	templatesOnce sync.Once
	cfg           *config.Config
)

// SetConfig sets the config for debug logging
func SetConfig(c *config.Config) {
	cfg = c
}

// InitTemplates parses the embedded templates. It panics when they cannot be
// loaded so a broken build fails at startup rather than on first request.
func InitTemplates() {
	initTemplates()
}

func initTemplates() {
	templatesOnce.Do(func() {
		entries, err := fs.ReadDir(views.TemplatesFS, ".")
		if err != nil {
			log.Printf("ERROR: Failed to read template directory: %v", err)
			panic(fmt.Sprintf("Failed to read template directory: %v", err))
		}

		var templateFiles []string
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
				templateFiles = append(templateFiles, entry.Name())
			}
		}
		if len(templateFiles) == 0 {
			log.Printf("ERROR: No template files found in embedded filesystem")
			panic("No template files found in embedded filesystem")
		}
		if cfg != nil {
			cfg.Debugf("Template files: %s", strings.Join(templateFiles, ", "))
		}

		funcMap := template.FuncMap{
			"statusInfo":      models.GetStatusDisplayInfo,
			"formatTimestamp": util.FormatTimestamp,
		}
		templates, err = template.New("").Funcs(funcMap).ParseFS(views.TemplatesFS, "*.html")
		if err != nil {
			log.Printf("ERROR: Failed to parse templates: %v", err)
			panic(fmt.Sprintf("Failed to parse templates: %v", err))
		}
	})
}

// contentTemplateMap maps page files to the content template the layout
// renders.
var contentTemplateMap = map[string]string{
	views.PageDashboard: "relatorio_estatistico_content",
	views.PageFiltered:  "relatorio_filtrado_content",
	"erro":              "erro_content",
}

func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	renderTemplateStatus(w, r, http.StatusOK, name, data)
}

func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) {
	initTemplates()

	contentTemplateName, ok := contentTemplateMap[name]
	if !ok {
		log.Printf("ERROR: No content template mapping for %s", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if templates.Lookup(contentTemplateName) == nil {
		log.Printf("ERROR: Content template '%s' not found", contentTemplateName)
		http.Error(w, fmt.Sprintf("Content template '%s' not found", contentTemplateName), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	data["ContentTemplate"] = contentTemplateName
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Relatório de Ocorrências"
	}
	if r != nil {
		data["CSRFField"] = csrf.TemplateField(r)
	}

	// buffered: a failing template must still answer 500
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("ERROR: Template execute error: %v", err)
		http.Error(w, fmt.Sprintf("Template execute error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(buf.String())); err != nil {
		log.Printf("WARNING: Failed to write page %s: %v", name, err)
	}
	if cfg != nil {
		cfg.Debugf("Template %s rendered with status %d", name, status)
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	renderTemplateStatus(w, r, status, "erro", map[string]interface{}{
		"Title": "Erro",
		"Error": message,
	})
}
