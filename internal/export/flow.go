// Package export turns the checked occurrences of a list into a PDF
// produced by the backend.
package export

import (
	"context"
	"log"
	"strings"
	"unicode"

	"relatorio-ocorrencias/internal/models"
	"relatorio-ocorrencias/internal/occurrences"

	"github.com/go-playground/validator/v10"
)

const (
	MsgSelectOne = "Selecione ao menos uma ocorrência!"
	MsgOK        = "PDF gerado com sucesso!"
	MsgFailed    = "Erro ao gerar PDF."
)

const filenameSuffix = "_ocorrencias.pdf"

// Exporter is the backend call that renders the PDF.
type Exporter interface {
	ExportPDF(ctx context.Context, numbers []string) (*models.Document, error)
}

// Auditor records export attempts. It may be nil.
type Auditor interface {
	Record(ctx context.Context, rec *models.ExportRecord) error
}

type request struct {
	Numeros []string `validate:"min=1,dive,required"`
}

type Result struct {
	Filename string
	Document *models.Document
}

type Flow struct {
	exporter Exporter
	auditor  Auditor
	validate *validator.Validate
}

func NewFlow(exporter Exporter, auditor Auditor) *Flow {
	return &Flow{
		exporter: exporter,
		auditor:  auditor,
		validate: validator.New(),
	}
}

// Submit exports the checked occurrences of list. An empty selection is
// refused with a *models.ValidationError before any request is made. On
// success the list is locked; on failure it stays editable for a retry.
// The filename and the audit record always name the student the selection
// was made for. When the list is reloaded while the request is in flight
// the outcome is not written into the new list.
// Concurrent submits for the same list are not serialised.
func (f *Flow) Submit(ctx context.Context, list *occurrences.List, sessionID string) (*Result, error) {
	snap := list.BeginExport()
	req := request{Numeros: snap.Numbers}
	if err := f.validate.Struct(req); err != nil {
		return nil, &models.ValidationError{Message: MsgSelectOne, Err: models.ErrEmptySelection}
	}

	doc, err := f.exporter.ExportPDF(ctx, req.Numeros)
	f.audit(ctx, snap, sessionID, err)
	if err != nil {
		log.Printf("ERROR: PDF export failed for student %s: %v", snap.StudentID, err)
		if !list.FinishExport(snap.Token, false, MsgFailed) {
			log.Printf("WARNING: List reloaded during export for student %s", snap.StudentID)
		}
		return nil, err
	}

	if !list.FinishExport(snap.Token, true, MsgOK) {
		log.Printf("WARNING: List reloaded during export for student %s", snap.StudentID)
	}
	return &Result{Filename: Filename(snap.StudentName), Document: doc}, nil
}

func (f *Flow) audit(ctx context.Context, snap occurrences.Export, sessionID string, exportErr error) {
	if f.auditor == nil {
		return
	}
	rec := &models.ExportRecord{
		SessionID:   sessionID,
		StudentID:   snap.StudentID,
		StudentName: snap.StudentName,
		Numbers:     snap.Numbers,
		Status:      models.ExportStatusOK,
		HTTPStatus:  200,
	}
	if exportErr != nil {
		rec.Status = models.ExportStatusFailed
		rec.HTTPStatus = models.StatusCode(exportErr)
	}
	if err := f.auditor.Record(ctx, rec); err != nil {
		log.Printf("WARNING: Failed to record export for student %s: %v", rec.StudentID, err)
	}
}

// Filename derives the download name from the student name: every
// whitespace character becomes an underscore.
func Filename(studentName string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, studentName)
	return name + filenameSuffix
}
