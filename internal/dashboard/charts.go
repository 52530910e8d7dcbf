package dashboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"relatorio-ocorrencias/internal/models"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"
)

const (
	ChartBar = "bar"
	ChartPie = "pie"
)

const (
	ImageWidth    = 480
	defaultHeight = 300
	renderWorkers = 4
)

var ErrNoData = errors.New("chart has no data to draw")

var (
	responseColor = "rgba(99, 102, 241, 0.6)"
	monthColor    = "rgba(251,191,36,0.7)"
	tutorColors   = Colors{
		"rgba(34,197,94,0.7)",
		"rgba(251,191,36,0.7)",
		"rgba(99,102,241,0.7)",
		"rgba(239,68,68,0.7)",
		"rgba(59,130,246,0.7)",
		"rgba(156,163,175,0.7)",
	}
	typeColors = Colors{
		"rgba(99,102,241,0.7)",
		"rgba(34,197,94,0.7)",
		"rgba(251,191,36,0.7)",
		"rgba(239,68,68,0.7)",
	}
)

// Chart places a chart description on the page: either in the canvas named
// by Anchor or appended to the chart grid.
type Chart struct {
	Title    string    `json:"title"`
	Anchor   string    `json:"anchor,omitempty"`
	Appended bool      `json:"appended"`
	Height   int       `json:"height,omitempty"`
	Spec     ChartSpec `json:"spec"`
}

// PixelHeight is the height used when the chart is drawn server side.
func (c Chart) PixelHeight() int {
	if c.Height > 0 {
		return c.Height
	}
	return defaultHeight
}

// ChartSpec is a declarative chart in the shape a Chart.js config expects.
type ChartSpec struct {
	Type    string         `json:"type"`
	Data    ChartData      `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor Colors    `json:"backgroundColor"`
}

// Colors marshals as a plain string when it holds one colour, which gives
// every bar the same fill.
type Colors []string

func (c Colors) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

func responseTimeChart(s *models.Series) Chart {
	return Chart{
		Title:  "Tempo de resposta",
		Anchor: AnchorChartResp,
		Spec: ChartSpec{
			Type: ChartBar,
			Data: ChartData{
				Labels:   nonNilLabels(s.Labels),
				Datasets: []Dataset{{Label: "Qtd Ocorrências", Data: nonNilValues(s.Valores), BackgroundColor: Colors{responseColor}}},
			},
			Options: map[string]any{
				"plugins": map[string]any{"legend": map[string]any{"display": false}},
				"scales": map[string]any{
					"x": map[string]any{"title": map[string]any{"display": true, "text": "Faixa de Dias"}},
					"y": map[string]any{"beginAtZero": true},
				},
			},
		},
	}
}

func tutorChart(rows []models.TutorBreakdown) Chart {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Tutor)
		values = append(values, r.Total)
	}
	return Chart{
		Title:  "Ocorrências por tutor",
		Anchor: AnchorChartTutor,
		Spec: ChartSpec{
			Type: ChartPie,
			Data: ChartData{
				Labels:   labels,
				Datasets: []Dataset{{Data: values, BackgroundColor: tutorColors}},
			},
			Options: map[string]any{
				"plugins": map[string]any{"legend": map[string]any{"position": "bottom"}},
			},
		},
	}
}

func typeChart(tipos models.TypeCounts) Chart {
	labels := make([]string, 0, len(tipos))
	values := make([]float64, 0, len(tipos))
	for _, tc := range tipos {
		labels = append(labels, tc.Type)
		values = append(values, tc.Count)
	}
	return Chart{
		Title:    "Ocorrências por tipo",
		Appended: true,
		Height:   appendedHeight,
		Spec: ChartSpec{
			Type: ChartPie,
			Data: ChartData{
				Labels:   labels,
				Datasets: []Dataset{{Data: values, BackgroundColor: typeColors}},
			},
			Options: map[string]any{
				"plugins": map[string]any{"legend": map[string]any{"position": "bottom"}},
			},
		},
	}
}

func monthChart(s *models.Series) Chart {
	return Chart{
		Title:    "Ocorrências por mês",
		Appended: true,
		Height:   appendedHeight,
		Spec: ChartSpec{
			Type: ChartBar,
			Data: ChartData{
				Labels:   nonNilLabels(s.Labels),
				Datasets: []Dataset{{Label: "Ocorrências por Mês", Data: nonNilValues(s.Valores), BackgroundColor: Colors{monthColor}}},
			},
			Options: map[string]any{
				"plugins": map[string]any{"legend": map[string]any{"display": false}},
				"scales": map[string]any{
					"x": map[string]any{"title": map[string]any{"display": true, "text": "Mês"}},
					"y": map[string]any{"beginAtZero": true},
				},
			},
		},
	}
}

func nonNilLabels(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilValues(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

// RenderPNG draws spec as a PNG image into w.
func RenderPNG(w io.Writer, spec ChartSpec, width, height int) error {
	if len(spec.Data.Datasets) == 0 {
		return ErrNoData
	}
	switch spec.Type {
	case ChartBar:
		return renderBar(w, spec, width, height)
	case ChartPie:
		return renderPie(w, spec, width, height)
	default:
		return fmt.Errorf("unsupported chart type %q", spec.Type)
	}
}

func renderBar(w io.Writer, spec ChartSpec, width, height int) error {
	ds := spec.Data.Datasets[0]
	bars := make([]chart.Value, 0, len(ds.Data))
	maxValue := 0.0
	for i, v := range ds.Data {
		bars = append(bars, chart.Value{
			Label: labelAt(spec.Data.Labels, i),
			Value: v,
			Style: chart.Style{
				FillColor:   colorAt(ds.BackgroundColor, i),
				StrokeColor: colorAt(ds.BackgroundColor, i),
				StrokeWidth: 1,
			},
		})
		if v > maxValue {
			maxValue = v
		}
	}
	if len(bars) == 0 || maxValue <= 0 {
		return ErrNoData
	}

	bc := chart.BarChart{
		Title:      ds.Label,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth(width, len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 28, Left: 12, Right: 12, Bottom: 12}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: maxValue}},
		Bars:       bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render bar chart: %w", err)
	}
	return nil
}

func renderPie(w io.Writer, spec ChartSpec, width, height int) error {
	ds := spec.Data.Datasets[0]
	values := make([]chart.Value, 0, len(ds.Data))
	for i, v := range ds.Data {
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: labelAt(spec.Data.Labels, i),
			Value: v,
			Style: chart.Style{FillColor: colorAt(ds.BackgroundColor, i)},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pc := chart.PieChart{
		Width:  width,
		Height: height,
		Values: values,
	}
	if err := pc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render pie chart: %w", err)
	}
	return nil
}

func barWidth(width, n int) int {
	bw := (width - 80) / (n * 2)
	switch {
	case bw < 8:
		return 8
	case bw > 60:
		return 60
	}
	return bw
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return ""
}

// colorAt cycles through the palette like a Chart.js dataset does.
func colorAt(c Colors, i int) drawing.Color {
	if len(c) == 0 {
		return chart.DefaultColors[i%len(chart.DefaultColors)]
	}
	col, err := parseRGBA(c[i%len(c)])
	if err != nil {
		return chart.DefaultColors[i%len(chart.DefaultColors)]
	}
	return col
}

// parseRGBA reads a CSS colour of the form rgba(r, g, b, a).
func parseRGBA(s string) (drawing.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "rgba(") || !strings.HasSuffix(s, ")") {
		return drawing.Color{}, fmt.Errorf("invalid rgba colour %q", s)
	}
	parts := strings.Split(s[len("rgba("):len(s)-1], ",")
	if len(parts) != 4 {
		return drawing.Color{}, fmt.Errorf("invalid rgba colour %q", s)
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 8)
		if err != nil {
			return drawing.Color{}, fmt.Errorf("invalid rgba colour %q: %w", s, err)
		}
		rgb[i] = uint8(n)
	}
	alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil || alpha < 0 || alpha > 1 {
		return drawing.Color{}, fmt.Errorf("invalid rgba alpha in %q", s)
	}
	return drawing.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: uint8(alpha*255 + 0.5)}, nil
}

// RenderImages draws every chart concurrently and returns PNG data URIs in
// chart order. A chart that cannot be drawn is logged and left empty.
func RenderImages(ctx context.Context, charts []Chart) ([]string, error) {
	images := make([]string, len(charts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(renderWorkers)
	for i, c := range charts {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := RenderPNG(&buf, c.Spec, ImageWidth, c.PixelHeight()); err != nil {
				log.Printf("WARNING: Failed to render chart %d (%s): %v", i, c.Spec.Type, err)
				return nil
			}
			images[i] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
