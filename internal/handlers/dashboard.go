package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"relatorio-ocorrencias/internal/dashboard"
	"relatorio-ocorrencias/internal/views"

	"github.com/gorilla/mux"
)

type DashboardHandler struct {
	stats dashboard.Fetcher
}

func NewDashboardHandler(stats dashboard.Fetcher) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

type chartImage struct {
	Title  string
	Height int
	Src    template.URL
}

// GET /relatorio/estatistico
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	d := dashboard.Load(r.Context(), h.stats)

	anchored := make(map[string]*chartImage)
	var appended []*chartImage
	if !d.Failed() && len(d.Charts) > 0 {
		images, err := dashboard.RenderImages(r.Context(), d.Charts)
		if err != nil {
			log.Printf("WARNING: Chart rendering aborted: %v", err)
		}
		for i, c := range d.Charts {
			img := &chartImage{Title: c.Title, Height: c.PixelHeight()}
			if i < len(images) && images[i] != "" {
				img.Src = template.URL(images[i])
			}
			if c.Appended {
				appended = append(appended, img)
			} else if img.Src != "" {
				anchored[c.Anchor] = img
			}
		}
	}

	renderTemplate(w, r, views.PageDashboard, map[string]interface{}{
		"Title":     "Relatório Estatístico",
		"Dashboard": d,
		"Charts":    anchored,
		"Appended":  appended,
	})
}

// GET /relatorio/estatistico/dados
func (h *DashboardHandler) Data(w http.ResponseWriter, r *http.Request) {
	d := dashboard.Load(r.Context(), h.stats)
	if d.Failed() {
		jsonResponse(w, http.StatusBadGateway, d)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// GET /relatorio/estatistico/graficos/{n}.png
func (h *DashboardHandler) ChartPNG(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n < 0 {
		jsonError(w, http.StatusBadRequest, "Invalid chart index")
		return
	}

	d := dashboard.Load(r.Context(), h.stats)
	if d.Failed() {
		jsonError(w, http.StatusBadGateway, d.Banner)
		return
	}
	if n >= len(d.Charts) {
		jsonError(w, http.StatusNotFound, "Chart not found")
		return
	}

	c := d.Charts[n]
	var buf bytes.Buffer
	if err := dashboard.RenderPNG(&buf, c.Spec, dashboard.ImageWidth, c.PixelHeight()); err != nil {
		if errors.Is(err, dashboard.ErrNoData) {
			jsonError(w, http.StatusNotFound, "Chart has no data")
			return
		}
		log.Printf("ERROR: Failed to render chart %d: %v", n, err)
		jsonError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("WARNING: Failed to write chart %d: %v", n, err)
	}
}
