// Package dashboard builds the statistics report: summary counters, three
// breakdown tables and declarative chart descriptions, all from a single
// aggregate payload.
package dashboard

import (
	"context"
	"log"
	"math"
	"math/big"

	"relatorio-ocorrencias/internal/models"
)

// Anchors of the statistics page.
const (
	AnchorTotal       = "total-ocorrencias"
	AnchorAbertas     = "abertas-ocorrencias"
	AnchorFinalizadas = "finalizadas-ocorrencias"
	AnchorTypeTable   = "tabela-resumo-geral"
	AnchorRoomTable   = "tabela-por-sala"
	AnchorTutorTable  = "tabela-por-tutor"
	AnchorChartResp   = "chart-respostas"
	AnchorChartTutor  = "chart-tutor"
	AnchorStatus      = "mensagem-status"
)

const (
	bannerPrefix    = "Erro ao carregar estatísticas: "
	undefinedRoom   = "Indefinida"
	undefinedTutor  = "Indefinido"
	appendedHeight  = 180
	percentFallback = 1
)

// Fetcher is the part of the backend client the dashboard needs.
type Fetcher interface {
	Statistics(ctx context.Context) (*models.Statistics, error)
}

type Counters struct {
	Total       string `json:"total"`
	Abertas     string `json:"abertas"`
	Finalizadas string `json:"finalizadas"`
}

type Table struct {
	Anchor  string     `json:"anchor"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Dashboard is the rendered report. A non-empty Banner means the payload
// could not be loaded and every other field is empty.
type Dashboard struct {
	Banner     string    `json:"banner,omitempty"`
	Counters   *Counters `json:"counters,omitempty"`
	TypeTable  *Table    `json:"tipos,omitempty"`
	RoomTable  *Table    `json:"por_sala,omitempty"`
	TutorTable *Table    `json:"por_tutor,omitempty"`
	Charts     []Chart   `json:"charts"`
}

// Failed reports whether the payload could not be loaded.
func (d *Dashboard) Failed() bool {
	return d.Banner != ""
}

// Load fetches the payload once and builds the dashboard. A failed fetch
// yields only the status banner.
func Load(ctx context.Context, f Fetcher) *Dashboard {
	stats, err := f.Statistics(ctx)
	if err == nil && stats == nil {
		err = models.ErrEmptyPayload
	}
	if err != nil {
		log.Printf("ERROR: Failed to load statistics: %v", err)
		return &Dashboard{Banner: bannerPrefix + err.Error(), Charts: []Chart{}}
	}
	return Build(stats)
}

// Build renders every section present in stats. Sections the backend left
// out are skipped.
func Build(stats *models.Statistics) *Dashboard {
	d := &Dashboard{
		Counters: &Counters{
			Total:       numberOrZero(stats.Total),
			Abertas:     numberOrZero(stats.Abertas),
			Finalizadas: numberOrZero(stats.Finalizadas),
		},
		Charts: []Chart{},
	}

	total := 0.0
	if stats.Total != nil {
		total = *stats.Total
	}

	if stats.Tipos != nil {
		d.TypeTable = typeTable(stats.Tipos, total)
	}
	if stats.PorSala != nil {
		d.RoomTable = roomTable(stats.PorSala, total)
	}
	if stats.PorTutor != nil {
		d.TutorTable = tutorTable(stats.PorTutor)
	}

	if stats.TempoResposta != nil {
		d.Charts = append(d.Charts, responseTimeChart(stats.TempoResposta))
	}
	if stats.PorTutor != nil {
		d.Charts = append(d.Charts, tutorChart(stats.PorTutor))
	}
	if stats.Tipos != nil {
		d.Charts = append(d.Charts, typeChart(stats.Tipos))
	}
	if stats.OcorrenciasPorMes != nil {
		d.Charts = append(d.Charts, monthChart(stats.OcorrenciasPorMes))
	}
	return d
}

func typeTable(tipos models.TypeCounts, total float64) *Table {
	t := &Table{
		Anchor:  AnchorTypeTable,
		Headers: []string{"Tipo", "Quantidade", "%"},
		Rows:    [][]string{},
	}
	for _, tc := range tipos {
		t.Rows = append(t.Rows, []string{tc.Type, models.FormatNumber(tc.Count), Percentage(tc.Count, total)})
	}
	return t
}

func roomTable(rows []models.RoomBreakdown, total float64) *Table {
	t := &Table{
		Anchor:  AnchorRoomTable,
		Headers: []string{"Sala", "Total", "%", "Respondidas < 7 dias", "Respondidas > 7 dias", "Não respondidas"},
		Rows:    [][]string{},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			orDefault(r.Sala, undefinedRoom),
			models.FormatNumber(r.Total),
			Percentage(r.Total, total),
			r.Menos7d.OrDash(),
			r.Mais7d.OrDash(),
			r.NaoRespondidas.OrDash(),
		})
	}
	return t
}

func tutorTable(rows []models.TutorBreakdown) *Table {
	t := &Table{
		Anchor:  AnchorTutorTable,
		Headers: []string{"Tutor", "Total", "Finalizadas", "Abertas", "Média de dias p/ resposta"},
		Rows:    [][]string{},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			orDefault(r.Tutor, undefinedTutor),
			models.FormatNumber(r.Total),
			models.FormatNumber(r.Finalizadas),
			models.FormatNumber(r.Abertas),
			r.MediaDiasResposta.OrDash(),
		})
	}
	return t
}

// Percentage renders count/total as a percentage with one decimal. A zero
// total is replaced by 1, so total=0 and count=5 gives "500.0%".
func Percentage(count, total float64) string {
	if total == 0 || math.IsNaN(total) {
		total = percentFallback
	}
	return toFixed1(count/total*100) + "%"
}

// toFixed1 rounds to one decimal with ties going up, working on the exact
// binary value so 0.25 becomes "0.3".
func toFixed1(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	neg := v < 0
	if neg {
		v = -v
	}
	x := new(big.Float).SetPrec(256).SetFloat64(v)
	x.Mul(x, big.NewFloat(10))
	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(x, new(big.Float).SetPrec(256).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	digits := n.String()
	if len(digits) < 2 {
		digits = "0" + digits
	}
	out := digits[:len(digits)-1] + "." + digits[len(digits)-1:]
	if neg {
		return "-" + out
	}
	return out
}

func numberOrZero(v *float64) string {
	if v == nil {
		return "0"
	}
	return models.FormatNumber(*v)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
