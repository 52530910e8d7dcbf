package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"relatorio-ocorrencias/internal/backend"
	"relatorio-ocorrencias/internal/export"
	"relatorio-ocorrencias/internal/models"
	"relatorio-ocorrencias/internal/session"

	"github.com/gorilla/mux"
)

const statsPayload = `{
	"total": 20, "abertas": 8, "finalizadas": 12,
	"tipos": {"Disciplinar": 12, "Pedagógica": 8},
	"por_sala": [{"sala": "1A", "total": 15, "menos_7d": 10, "mais_7d": 3, "nao_respondidas": 2}, {"sala": null, "total": 5}],
	"por_tutor": [{"tutor": "Carla", "total": 9, "finalizadas": 6, "abertas": 3, "media_dias_resposta": 2.5}],
	"tempo_resposta": {"labels": ["0-2", "3-7"], "valores": [5, 4]},
	"ocorrencias_por_mes": {"labels": ["Jan", "Fev"], "valores": [7, 13]}
}`

// fakeBackend serves the school backend endpoints from canned data.
type fakeBackend struct {
	mu          sync.Mutex
	statsStatus int
	pdfStatus   int
	pdfBodies   []string
}

func (f *fakeBackend) setStatus(stats, pdf int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsStatus = stats
	f.pdfStatus = pdf
}

func (f *fakeBackend) pdfRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pdfBodies...)
}

func (f *fakeBackend) handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/api/relatorio_estatistico", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.statsStatus
		f.mu.Unlock()
		if status != 0 {
			http.Error(w, "falha interna", status)
			return
		}
		io.WriteString(w, statsPayload)
	})
	m.HandleFunc("/api/salas_com_ocorrencias", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id": 1, "nome": "1A"}, {"id": 2, "nome": "2B"}]`)
	})
	m.HandleFunc("/api/alunos_com_ocorrencias_por_sala/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/api/alunos_com_ocorrencias_por_sala/") {
		case "1":
			io.WriteString(w, `[{"id": 7, "nome": "Ana Maria"}]`)
		default:
			io.WriteString(w, `[{"id": 8, "nome": "Bruno"}]`)
		}
	})
	m.HandleFunc("/api/ocorrencias_por_aluno/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/api/ocorrencias_por_aluno/") {
		case "7":
			io.WriteString(w, `[
				{"numero": 10, "data_hora": "2024-03-05T14:07:00", "status": "Aberta", "descricao": "Atraso", "aluno_nome": "Ana Maria"},
				{"numero": 11, "data_hora": "2024-03-06 09:00:00", "status": "Finalizada", "descricao": "Sem material", "aluno_nome": "Ana Maria"}
			]`)
		default:
			io.WriteString(w, `[]`)
		}
	})
	m.HandleFunc("/api/gerar_pdf_ocorrencias", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.pdfBodies = append(f.pdfBodies, string(body))
		status := f.pdfStatus
		f.mu.Unlock()
		if status != 0 {
			http.Error(w, "erro", status)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.4 fake")
	})
	return m
}

type fakeHistory struct {
	records []*models.ExportRecord
	err     error
	student string
	limit   int
}

func (f *fakeHistory) ListByStudent(ctx context.Context, studentID string, limit int) ([]*models.ExportRecord, error) {
	f.student = studentID
	f.limit = limit
	return f.records, f.err
}

// portal is a browser session against the router.
type portal struct {
	t       *testing.T
	fb      *fakeBackend
	router  *mux.Router
	cookies []*http.Cookie
	history *fakeHistory
	filter  *FilteredHandler
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	client := backend.New(srv.URL, 5*time.Second)
	history := &fakeHistory{}
	filtered := NewFilteredHandler(session.NewStore(client, time.Hour), client, export.NewFlow(client, nil), history)
	if err := filtered.AnchorError(); err != nil {
		t.Fatalf("embedded filtered page rejected: %v", err)
	}
	return &portal{
		t:       t,
		fb:      fb,
		router:  NewRouter("test-secret", false, NewDashboardHandler(client), filtered),
		history: history,
		filter:  filtered,
	}
}

func (p *portal) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	p.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range p.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		p.cookies = cs
	}
	return rec
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHealth(t *testing.T) {
	p := newPortal(t)
	rec := p.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRootRedirects(t *testing.T) {
	p := newPortal(t)
	rec := p.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/relatorio/estatistico" {
		t.Errorf("GET / = %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestDashboardPage(t *testing.T) {
	p := newPortal(t)
	rec := p.do(http.MethodGet, "/relatorio/estatistico", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	assertContains(t, rec.Body.String(),
		`id="total-ocorrencias">20<`,
		`id="abertas-ocorrencias">8<`,
		`id="tabela-resumo-geral"`,
		`<td>Indefinida</td>`,
		`<td>60.0%</td>`,
		`<section class="grid">`,
		`data:image/png;base64,`,
		`height="180"`,
	)
}

func TestDashboardPageBackendDown(t *testing.T) {
	p := newPortal(t)
	p.fb.setStatus(http.StatusInternalServerError, 0)

	rec := p.do(http.MethodGet, "/relatorio/estatistico", nil)
	body := rec.Body.String()
	assertContains(t, body, "Erro ao carregar estatísticas: ")
	if strings.Contains(body, `id="total-ocorrencias"`) || strings.Contains(body, `<section class="grid">`) {
		t.Error("a failed load must render the banner only")
	}
}

func TestDashboardData(t *testing.T) {
	p := newPortal(t)
	rec := p.do(http.MethodGet, "/relatorio/estatistico/dados", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Counters struct{ Total string } `json:"counters"`
		Charts   []struct {
			Appended bool `json:"appended"`
		} `json:"charts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Counters.Total != "20" || len(got.Charts) != 4 || !got.Charts[3].Appended {
		t.Errorf("dashboard JSON = %+v", got)
	}

	p.fb.setStatus(http.StatusServiceUnavailable, 0)
	if rec := p.do(http.MethodGet, "/relatorio/estatistico/dados", nil); rec.Code != http.StatusBadGateway {
		t.Errorf("failed load status = %d, want 502", rec.Code)
	}
}

func TestChartPNG(t *testing.T) {
	p := newPortal(t)

	rec := p.do(http.MethodGet, "/relatorio/estatistico/graficos/0.png", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("GET chart 0 = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("chart 0 is not a PNG")
	}

	if rec := p.do(http.MethodGet, "/relatorio/estatistico/graficos/9.png", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET chart 9 = %d, want 404", rec.Code)
	}
}

func TestFilteredReportFlow(t *testing.T) {
	p := newPortal(t)

	rec := p.do(http.MethodGet, "/relatorio/filtrado", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET page = %d", rec.Code)
	}
	assertContains(t, rec.Body.String(),
		`<option value="">Selecione...</option>`,
		`<option value="1">1A</option>`,
		`<option value="">Selecione a sala primeiro</option>`,
		`id="btn-carregar-ocorrencias"`,
	)

	rec = p.do(http.MethodPost, "/relatorio/filtrado/sala", url.Values{"sala": {"1"}})
	assertContains(t, rec.Body.String(),
		`<option value="1" selected>1A</option>`,
		`<option value="7">Ana Maria</option>`,
	)

	rec = p.do(http.MethodPost, "/relatorio/filtrado/ocorrencias", url.Values{"aluno": {"7"}})
	assertContains(t, rec.Body.String(),
		`Ocorrências de <b>Ana Maria</b>`,
		`id="form-ocorrencias"`,
		`class="checkbox-ocorrencia" name="ocorrencia" value="10"`,
		`05/03/2024 14:07`,
		`Gerar PDF`,
	)

	// nothing checked: alert, no request
	rec = p.do(http.MethodPost, "/relatorio/filtrado/pdf", url.Values{})
	assertContains(t, rec.Body.String(), "Selecione ao menos uma ocorrência!")
	if n := len(p.fb.pdfRequests()); n != 0 {
		t.Fatalf("empty selection sent %d requests", n)
	}

	rec = p.do(http.MethodPost, "/relatorio/filtrado/pdf", url.Values{"ocorrencia": {"11", "10"}})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("export = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "Ana_Maria_ocorrencias.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "%PDF-1.4 fake" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := p.fb.pdfRequests(); len(got) != 1 || got[0] != `{"numeros":["10","11"]}` {
		t.Errorf("backend received %q", got)
	}

	// the list is locked: a resubmit sends nothing and shows the locked state
	rec = p.do(http.MethodPost, "/relatorio/filtrado/pdf", url.Values{"ocorrencia": {"10"}})
	assertContains(t, rec.Body.String(), "Selecione ao menos uma ocorrência!", "PDF gerado com sucesso!", " disabled")
	if len(p.fb.pdfRequests()) != 1 {
		t.Errorf("locked list exported again")
	}
}

func TestFilteredExportFailure(t *testing.T) {
	p := newPortal(t)
	p.fb.setStatus(0, http.StatusInternalServerError)

	p.do(http.MethodGet, "/relatorio/filtrado", nil)
	p.do(http.MethodPost, "/relatorio/filtrado/sala", url.Values{"sala": {"1"}})
	p.do(http.MethodPost, "/relatorio/filtrado/ocorrencias", url.Values{"aluno": {"7"}})
	rec := p.do(http.MethodPost, "/relatorio/filtrado/pdf", url.Values{"ocorrencia": {"10"}})

	body := rec.Body.String()
	assertContains(t, body, "Erro ao gerar PDF.")
	if strings.Contains(body, " disabled") {
		t.Error("checkboxes must stay enabled after a failed export")
	}
}

func TestFilteredLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		aluno string
		want  string
	}{
		{name: "no student", aluno: "", want: "Selecione o aluno."},
		{name: "student of another room", aluno: "8", want: "Selecione o aluno."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortal(t)
			p.do(http.MethodGet, "/relatorio/filtrado", nil)
			p.do(http.MethodPost, "/relatorio/filtrado/sala", url.Values{"sala": {"1"}})
			rec := p.do(http.MethodPost, "/relatorio/filtrado/ocorrencias", url.Values{"aluno": {tt.aluno}})
			assertContains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestFilteredEmptyOccurrences(t *testing.T) {
	p := newPortal(t)
	p.do(http.MethodGet, "/relatorio/filtrado", nil)
	p.do(http.MethodPost, "/relatorio/filtrado/sala", url.Values{"sala": {"2"}})
	rec := p.do(http.MethodPost, "/relatorio/filtrado/ocorrencias", url.Values{"aluno": {"8"}})

	body := rec.Body.String()
	assertContains(t, body, "Nenhuma ocorrência encontrada para o aluno.")
	if strings.Contains(body, `id="form-ocorrencias"`) {
		t.Error("no form without occurrences")
	}
}

func TestFilteredMissingAnchors(t *testing.T) {
	p := newPortal(t)
	p.filter.anchorErr = &models.IntegrityError{Page: "relatorio_filtrado.html", Missing: []string{"aluno"}}
	var ierr *models.IntegrityError
	if !errors.As(p.filter.AnchorError(), &ierr) {
		t.Fatalf("AnchorError() = %v, want *models.IntegrityError", p.filter.AnchorError())
	}

	rec := p.do(http.MethodGet, "/relatorio/filtrado", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	assertContains(t, rec.Body.String(), "missing anchors: aluno")
	if p.filter.store.Len() != 0 {
		t.Error("the cascade must not be initialised")
	}
}

func TestExportHistory(t *testing.T) {
	p := newPortal(t)
	p.history.records = []*models.ExportRecord{{StudentID: "7", Status: models.ExportStatusOK, Numbers: []string{"10"}}}

	rec := p.do(http.MethodGet, "/relatorio/filtrado/exportacoes?aluno=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []models.ExportRecord
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Status != "ok" || p.history.student != "7" || p.history.limit != 20 {
		t.Errorf("history = %+v (student %q, limit %d)", got, p.history.student, p.history.limit)
	}

	if rec := p.do(http.MethodGet, "/relatorio/filtrado/exportacoes", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing aluno = %d, want 400", rec.Code)
	}

	p.history.err = models.ErrAuditUnavailable
	if rec := p.do(http.MethodGet, "/relatorio/filtrado/exportacoes?aluno=7", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable audit = %d, want 503", rec.Code)
	}

	p.history.err = errors.New("boom")
	if rec := p.do(http.MethodGet, "/relatorio/filtrado/exportacoes?aluno=7", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing audit = %d, want 500", rec.Code)
	}
}

func TestExportHistoryDisabled(t *testing.T) {
	h := &FilteredHandler{}
	rec := httptest.NewRecorder()
	h.ExportHistory(rec, httptest.NewRequest(http.MethodGet, "/relatorio/filtrado/exportacoes?aluno=7", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
