// Package occurrences holds the checkbox list of one student's occurrences
// and the set of occurrences the visitor has checked.
package occurrences

import (
	"context"
	"log"
	"sync"

	"relatorio-ocorrencias/internal/cascade"
	"relatorio-ocorrencias/internal/models"
)

const (
	MsgPickStudent = "Selecione o aluno."
	MsgLoading     = "Carregando ocorrências..."
	MsgNone        = "Nenhuma ocorrência encontrada para o aluno."
	MsgLoadError   = "Erro ao carregar ocorrências."
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusValidation Status = "validation"
	StatusEmpty      Status = "empty"
	StatusError      Status = "error"
	StatusReady      Status = "ready"
)

// Fetcher is the part of the backend client the list needs.
type Fetcher interface {
	Occurrences(ctx context.Context, studentID string) ([]models.Occurrence, error)
}

type Item struct {
	models.Occurrence
	Checked  bool
	Disabled bool
}

// View is an immutable copy of the list used for rendering.
type View struct {
	Status      Status
	StudentID   string
	StudentName string
	Message     string
	Items       []Item
	Locked      bool
	PDFMessage  string
	PDFOK       bool
}

// HasForm reports whether the export form is rendered.
func (v View) HasForm() bool {
	return v.Status == StatusReady
}

// List is the occurrence area of one visitor.
type List struct {
	guard cascade.Guard

	mu          sync.Mutex
	status      Status
	studentID   string
	studentName string
	message     string
	items       []Item
	locked      bool
	pdfMessage  string
	pdfOK       bool
}

func NewList() *List {
	return &List{status: StatusIdle}
}

// Load is the explicit load action for a student. An empty id only records
// the validation message. Every outcome is kept in the list state; the
// returned error is for logging.
func (l *List) Load(ctx context.Context, f Fetcher, studentID string) error {
	l.mu.Lock()
	tok := l.guard.Issue()
	l.reset()
	if studentID == "" {
		l.status = StatusValidation
		l.message = MsgPickStudent
		l.mu.Unlock()
		return &models.ValidationError{Message: MsgPickStudent, Err: models.ErrEmptyStudent}
	}
	l.status = StatusLoading
	l.message = MsgLoading
	l.studentID = studentID
	l.mu.Unlock()

	occurrences, err := f.Occurrences(ctx, studentID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.guard.Valid(tok) {
		log.Printf("WARNING: Discarding stale occurrence list for student %s", studentID)
		return nil
	}
	if err != nil {
		l.status = StatusError
		l.message = MsgLoadError
		return err
	}
	if len(occurrences) == 0 {
		l.status = StatusEmpty
		l.message = MsgNone
		return nil
	}

	l.status = StatusReady
	l.message = ""
	l.studentName = occurrences[0].StudentName
	l.items = make([]Item, 0, len(occurrences))
	for _, o := range occurrences {
		l.items = append(l.items, Item{Occurrence: o})
	}
	return nil
}

func (l *List) reset() {
	l.studentID = ""
	l.studentName = ""
	l.message = ""
	l.items = nil
	l.locked = false
	l.pdfMessage = ""
	l.pdfOK = false
}

// SetChecked replaces the selection set with numbers. Numbers that are not
// in the list are ignored. A locked list keeps its state.
func (l *List) SetChecked(numbers []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return models.ErrListLocked
	}
	want := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	for i := range l.items {
		l.items[i].Checked = want[l.items[i].Number.String()]
	}
	return nil
}

// Selected returns the checked numbers in list order. Disabled checkboxes
// are never submitted, so a locked list has no selection.
func (l *List) Selected() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected()
}

func (l *List) selected() []string {
	var out []string
	for _, it := range l.items {
		if it.Checked && !it.Disabled {
			out = append(out, it.Number.String())
		}
	}
	return out
}

// Export is the list as it was when a PDF submit started.
type Export struct {
	Token       cascade.Token
	StudentID   string
	StudentName string
	Numbers     []string
}

// BeginExport captures the student and the selection of the currently
// loaded list.
func (l *List) BeginExport() Export {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Export{
		Token:       l.guard.Current(),
		StudentID:   l.studentID,
		StudentName: l.studentName,
		Numbers:     l.selected(),
	}
}

// FinishExport records the PDF outcome and, on success, disables every
// checkbox. It does nothing and returns false when the list was reloaded
// after tok was captured.
func (l *List) FinishExport(tok cascade.Token, ok bool, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.guard.Valid(tok) {
		return false
	}
	if ok {
		l.locked = true
		for i := range l.items {
			l.items[i].Disabled = true
		}
	}
	l.pdfOK = ok
	l.pdfMessage = message
	return true
}

// View returns a copy of the current state.
func (l *List) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]Item, len(l.items))
	copy(items, l.items)
	return View{
		Status:      l.status,
		StudentID:   l.studentID,
		StudentName: l.studentName,
		Message:     l.message,
		Items:       items,
		Locked:      l.locked,
		PDFMessage:  l.pdfMessage,
		PDFOK:       l.pdfOK,
	}
}
