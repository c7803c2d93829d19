package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/report"
)

const (
	chartWidth  = 640
	chartHeight = 260
)

var (
	colorRevenue  = drawing.ColorFromHex("2563eb")
	colorCosts    = drawing.ColorFromHex("dc2626")
	colorCashFlow = drawing.ColorFromHex("059669")
	colorBaseline = drawing.ColorFromHex("9ca3af")
)

func usdTick(v interface{}) string {
	if f, ok := v.(float64); ok {
		return "$" + report.FormatUSD(f)
	}
	return ""
}

// yearTick labels whole years and leaves the fractional ticks blank.
func yearTick(v interface{}) string {
	f, ok := v.(float64)
	if !ok || f < 1 || f != math.Trunc(f) {
		return ""
	}
	return fmt.Sprintf("Y%d", int(f))
}

// revenueCostChart draws revenue and costs as paired bars per year. Only the
// revenue bar carries the year label.
func revenueCostChart(p []businesscase.YearlyProjection) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	top := 0.0
	bars := make([]chart.Value, 0, 2*len(p))
	for _, row := range p {
		top = math.Max(top, math.Max(row.Revenue, row.Costs))
		bars = append(bars,
			chart.Value{Label: fmt.Sprintf("Y%d", row.Year), Value: row.Revenue, Style: chart.Style{FillColor: colorRevenue, StrokeColor: colorRevenue}},
			chart.Value{Value: row.Costs, Style: chart.Style{FillColor: colorCosts, StrokeColor: colorCosts}},
		)
	}
	if top == 0 {
		top = 1
	}
	graph := chart.BarChart{
		Width:      chartWidth,
		Height:     chartHeight,
		BarSpacing: 6,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 10, Right: 10, Bottom: 10}},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: usdTick,
		},
		Bars: bars,
	}
	return renderSVG(graph.Render)
}

// cashFlowChart draws cumulative cash flow as a line over a dashed zero
// baseline. Both axes get explicit ranges so a one-year horizon still has a
// drawable domain.
func cashFlowChart(p []businesscase.YearlyProjection) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	xs := make([]float64, len(p))
	ys := make([]float64, len(p))
	lo, hi := 0.0, 0.0
	for i, row := range p {
		xs[i] = float64(row.Year)
		ys[i] = row.CumulativeCashFlow
		lo = math.Min(lo, row.CumulativeCashFlow)
		hi = math.Max(hi, row.CumulativeCashFlow)
	}
	if hi == lo {
		hi = lo + 1
	}
	left, right := 0.5, float64(p[len(p)-1].Year)+0.5

	graph := chart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 10, Right: 10, Bottom: 10}},
		XAxis: chart.XAxis{
			Range:          &chart.ContinuousRange{Min: left, Max: right},
			ValueFormatter: yearTick,
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: usdTick,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Break-even",
				Style:   chart.Style{StrokeColor: colorBaseline, StrokeDashArray: []float64{4, 3}},
				XValues: []float64{left, right},
				YValues: []float64{0, 0},
			},
			chart.ContinuousSeries{
				Name:    "Cumulative cash flow",
				Style:   chart.Style{StrokeColor: colorCashFlow, StrokeWidth: 2, DotColor: colorCashFlow, DotWidth: 3},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return renderSVG(graph.Render)
}

func renderSVG(render func(chart.RendererProvider, io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := render(chart.SVG, &buf); err != nil {
		return "", eris.Wrap(err, "render chart")
	}
	return strings.Replace(buf.String(), "<svg ", `<svg class="chart" role="img" `, 1), nil
}
