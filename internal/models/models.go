package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ID is a backend identifier. The backend sends room and student ids as
// numbers or strings depending on the table, so both are accepted and kept
// in their textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type Room struct {
	ID   ID     `json:"id"`
	Name string `json:"nome"`
}

type Student struct {
	ID   ID     `json:"id"`
	Name string `json:"nome"`
}

// Occurrence is a snapshot of one backend record at fetch time.
type Occurrence struct {
	Number      ID     `json:"numero"`
	Timestamp   string `json:"data_hora"`
	Status      string `json:"status"`
	Description string `json:"descricao"`
	StudentName string `json:"aluno_nome"`
}

// Document is a binary file returned by the backend.
type Document struct {
	Data        []byte
	ContentType string
}

// Metric is an optional scalar shown verbatim in a table cell.
type Metric struct {
	Text  string
	Valid bool
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*m = Metric{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Metric{Text: s, Valid: true}
	default:
		*m = Metric{Text: string(b), Valid: true}
	}
	return nil
}

// OrDash returns the value or "-" when the backend left it out.
func (m Metric) OrDash() string {
	if !m.Valid {
		return "-"
	}
	return m.Text
}

// Statistics is the aggregate payload of the statistics report. Every field
// is optional; nil means the section was not sent.
type Statistics struct {
	Total             *float64         `json:"total"`
	Abertas           *float64         `json:"abertas"`
	Finalizadas       *float64         `json:"finalizadas"`
	Tipos             TypeCounts       `json:"tipos"`
	PorSala           []RoomBreakdown  `json:"por_sala"`
	PorTutor          []TutorBreakdown `json:"por_tutor"`
	TempoResposta     *Series          `json:"tempo_resposta"`
	OcorrenciasPorMes *Series          `json:"ocorrencias_por_mes"`
}

type TypeCount struct {
	Type  string
	Count float64
}

// TypeCounts keeps the per-type object in the order the backend wrote it.
// A nil value means the object was absent; a present but empty object
// decodes to a non-nil empty slice.
type TypeCounts []TypeCount

func (tc *TypeCounts) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tipos: expected object, got %v", tok)
	}

	out := TypeCounts{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("tipos: unexpected key %v", tok)
		}
		var count float64
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("tipos[%s]: %w", key, err)
		}
		out = append(out, TypeCount{Type: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*tc = out
	return nil
}

func (tc TypeCounts) MarshalJSON() ([]byte, error) {
	if tc == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range tc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(FormatNumber(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type RoomBreakdown struct {
	Sala           string  `json:"sala"`
	Total          float64 `json:"total"`
	Menos7d        Metric  `json:"menos_7d"`
	Mais7d         Metric  `json:"mais_7d"`
	NaoRespondidas Metric  `json:"nao_respondidas"`
}

type TutorBreakdown struct {
	Tutor             string  `json:"tutor"`
	Total             float64 `json:"total"`
	Finalizadas       float64 `json:"finalizadas"`
	Abertas           float64 `json:"abertas"`
	MediaDiasResposta Metric  `json:"media_dias_resposta"`
}

// Series is a labelled histogram (response-time buckets, months).
type Series struct {
	Labels  []string  `json:"labels"`
	Valores []float64 `json:"valores"`
}

// ExportRecord is one audited PDF export attempt.
type ExportRecord struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Numbers     []string  `json:"numeros"`
	Status      string    `json:"status"`
	HTTPStatus  int       `json:"http_status"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	ExportStatusOK     = "ok"
	ExportStatusFailed = "failed"
)

// FormatNumber prints a JSON number the way a browser would: no trailing
// zeros, no exponent for ordinary values.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
