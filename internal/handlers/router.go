package handlers

import (
	"net/http"

	"relatorio-ocorrencias/internal/middleware"

	"github.com/gorilla/mux"
)

// NewRouter registers every portal route. Session handling is applied to
// all routes; CSRF protection is added around the router by the caller.
func NewRouter(sessionSecret string, secureCookies bool, dash *DashboardHandler, filtered *FilteredHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.EnsureSession(sessionSecret, secureCookies))

	r.HandleFunc("/healthz", Health).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler("/relatorio/estatistico", http.StatusFound)).Methods(http.MethodGet)

	r.HandleFunc("/relatorio/estatistico", dash.Page).Methods(http.MethodGet)
	r.HandleFunc("/relatorio/estatistico/dados", dash.Data).Methods(http.MethodGet)
	r.HandleFunc("/relatorio/estatistico/graficos/{n:[0-9]+}.png", dash.ChartPNG).Methods(http.MethodGet)

	r.HandleFunc("/relatorio/filtrado", filtered.Page).Methods(http.MethodGet)
	r.HandleFunc("/relatorio/filtrado/sala", filtered.ChangeRoom).Methods(http.MethodPost)
	r.HandleFunc("/relatorio/filtrado/ocorrencias", filtered.LoadOccurrences).Methods(http.MethodPost)
	r.HandleFunc("/relatorio/filtrado/pdf", filtered.ExportPDF).Methods(http.MethodPost)
	r.HandleFunc("/relatorio/filtrado/exportacoes", filtered.ExportHistory).Methods(http.MethodGet)

	if cfg != nil {
		cfg.Debugf("Routes registered")
	}
	return r
}
