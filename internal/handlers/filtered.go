package handlers

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"

	"relatorio-ocorrencias/internal/export"
	"relatorio-ocorrencias/internal/middleware"
	"relatorio-ocorrencias/internal/models"
	"relatorio-ocorrencias/internal/occurrences"
	"relatorio-ocorrencias/internal/session"
	"relatorio-ocorrencias/internal/views"
)

const exportHistoryLimit = 20

// ExportHistory lists past export attempts. Nil when the audit is disabled.
type ExportHistory interface {
	ListByStudent(ctx context.Context, studentID string, limit int) ([]*models.ExportRecord, error)
}

type FilteredHandler struct {
	store       *session.Store
	occurrences occurrences.Fetcher
	flow        *export.Flow
	history     ExportHistory
	anchorErr   error
}

func NewFilteredHandler(store *session.Store, occ occurrences.Fetcher, flow *export.Flow, history ExportHistory) *FilteredHandler {
	h := &FilteredHandler{
		store:       store,
		occurrences: occ,
		flow:        flow,
		history:     history,
	}
	h.anchorErr = views.CheckAnchors(views.TemplatesFS, views.PageFiltered, views.FilteredAnchors)
	return h
}

// AnchorError reports why the filtered report cannot be served, if it can't.
func (h *FilteredHandler) AnchorError() error {
	return h.anchorErr
}

func (h *FilteredHandler) unavailable(w http.ResponseWriter, r *http.Request) bool {
	if h.anchorErr == nil {
		return false
	}
	renderError(w, r, http.StatusInternalServerError, "Relatório filtrado indisponível: "+h.anchorErr.Error())
	return true
}

// page returns the visitor's page, initialising the cascade when the session
// is new.
func (h *FilteredHandler) page(r *http.Request) *session.Page {
	p, created := h.store.Get(middleware.GetSessionID(r))
	if created {
		p.Cascade.Init(r.Context())
	}
	return p
}

func (h *FilteredHandler) render(w http.ResponseWriter, r *http.Request, p *session.Page, alert string) {
	rooms, students := p.Cascade.Snapshot()
	renderTemplate(w, r, views.PageFiltered, map[string]interface{}{
		"Title":    "Relatório Filtrado",
		"Rooms":    rooms,
		"Students": students,
		"List":     p.List.View(),
		"Alert":    alert,
	})
}

// GET /relatorio/filtrado
func (h *FilteredHandler) Page(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	p := h.store.Reset(middleware.GetSessionID(r))
	p.Cascade.Init(r.Context())
	h.render(w, r, p, "")
}

// POST /relatorio/filtrado/sala
func (h *FilteredHandler) ChangeRoom(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	p := h.page(r)
	roomID := r.FormValue("sala")
	if !p.Cascade.ChangeRoom(r.Context(), roomID) && cfg != nil {
		cfg.Debugf("Room change to %q superseded", roomID)
	}
	h.render(w, r, p, "")
}

// POST /relatorio/filtrado/ocorrencias
func (h *FilteredHandler) LoadOccurrences(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	p := h.page(r)
	studentID := r.FormValue("aluno")
	if studentID != "" && !p.Cascade.SelectStudent(studentID) {
		log.Printf("WARNING: Student %s is not listed for the selected room", studentID)
		studentID = ""
	}

	if err := p.List.Load(r.Context(), h.occurrences, studentID); err != nil {
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			log.Printf("ERROR: Failed to load occurrences for student %s: %v", studentID, err)
		}
	}
	h.render(w, r, p, "")
}

// POST /relatorio/filtrado/pdf
func (h *FilteredHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		renderError(w, r, http.StatusBadRequest, "Formulário inválido")
		return
	}
	sessionID := middleware.GetSessionID(r)
	p := h.page(r)

	if err := p.List.SetChecked(r.PostForm["ocorrencia"]); err != nil && cfg != nil {
		cfg.Debugf("Selection ignored: %v", err)
	}

	res, err := h.flow.Submit(r.Context(), p.List, sessionID)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.render(w, r, p, verr.Message)
			return
		}
		h.render(w, r, p, "")
		return
	}

	contentType := res.Document.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Document.Data)))
	if _, err := w.Write(res.Document.Data); err != nil {
		log.Printf("WARNING: Failed to stream PDF %s: %v", res.Filename, err)
	}
}

// GET /relatorio/filtrado/exportacoes?aluno=<id>
func (h *FilteredHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		jsonError(w, http.StatusNotFound, "Export audit is disabled")
		return
	}
	studentID := r.URL.Query().Get("aluno")
	if studentID == "" {
		jsonError(w, http.StatusBadRequest, "Missing aluno parameter")
		return
	}

	records, err := h.history.ListByStudent(r.Context(), studentID, exportHistoryLimit)
	if err != nil {
		if errors.Is(err, models.ErrAuditUnavailable) {
			jsonError(w, http.StatusServiceUnavailable, "Export audit is unavailable")
			return
		}
		log.Printf("ERROR: Failed to list exports for student %s: %v", studentID, err)
		jsonError(w, http.StatusInternalServerError, "Failed to list exports")
		return
	}
	if records == nil {
		records = []*models.ExportRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}
