// Package backend is the HTTP client for the school backend's report endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relatorio-ocorrencias/internal/models"

	"github.com/google/uuid"
)

const (
	pathStatistics  = "/api/relatorio_estatistico"
	pathRooms       = "/api/salas_com_ocorrencias"
	pathStudents    = "/api/alunos_com_ocorrencias_por_sala/"
	pathOccurrences = "/api/ocorrencias_por_aluno/"
	pathExportPDF   = "/api/gerar_pdf_ocorrencias"
)

// maxErrorBody bounds how much of a failed response is kept for messages.
const maxErrorBody = 4 << 10

type Client struct {
	base string
	h    *http.Client
}

// New returns a client for the backend at base. A zero timeout means
// requests are bounded only by their context.
func New(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		h:    &http.Client{Timeout: timeout},
	}
}

// exportRequest is the body of the PDF endpoint.
type exportRequest struct {
	Numeros []string `json:"numeros"`
}

// Statistics fetches the aggregate statistics payload.
func (c *Client) Statistics(ctx context.Context) (*models.Statistics, error) {
	var stats *models.Statistics
	if err := c.getJSON(ctx, pathStatistics, &stats); err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, &models.FetchError{Op: http.MethodGet, URL: c.base + pathStatistics, Err: models.ErrEmptyPayload}
	}
	return stats, nil
}

// Rooms lists the rooms that have at least one occurrence.
func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	rooms := []models.Room{}
	if err := c.getJSON(ctx, pathRooms, &rooms); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}

// Students lists the students of a room that have occurrences.
func (c *Client) Students(ctx context.Context, roomID string) ([]models.Student, error) {
	students := []models.Student{}
	if err := c.getJSON(ctx, pathStudents+url.PathEscape(roomID), &students); err != nil {
		return nil, err
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Occurrences lists the occurrences recorded for a student.
func (c *Client) Occurrences(ctx context.Context, studentID string) ([]models.Occurrence, error) {
	occurrences := []models.Occurrence{}
	if err := c.getJSON(ctx, pathOccurrences+url.PathEscape(studentID), &occurrences); err != nil {
		return nil, err
	}
	if occurrences == nil {
		occurrences = []models.Occurrence{}
	}
	return occurrences, nil
}

// ExportPDF asks the backend to build a PDF with the given occurrences.
// A non-2xx answer is returned as *models.ServerError.
func (c *Client) ExportPDF(ctx context.Context, numbers []string) (*models.Document, error) {
	body, err := json.Marshal(exportRequest{Numeros: numbers})
	if err != nil {
		return nil, fmt.Errorf("failed to encode export request: %w", err)
	}

	u := c.base + pathExportPDF
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, &models.FetchError{Op: http.MethodPost, URL: u, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.do(req)
	if err != nil {
		return nil, &models.FetchError{Op: http.MethodPost, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &models.ServerError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.FetchError{Op: http.MethodPost, URL: u, Err: err}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &models.Document{Data: data, ContentType: contentType}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	u := c.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &models.FetchError{Op: http.MethodGet, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return &models.FetchError{Op: http.MethodGet, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &models.FetchError{
			Op:  http.MethodGet,
			URL: u,
			Err: &models.ServerError{StatusCode: resp.StatusCode, Body: string(b)},
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.FetchError{Op: http.MethodGet, URL: u, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.h.Do(req)
}
