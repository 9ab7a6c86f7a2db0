// Package visual renders the equity curve as a self-contained HTML chart.
package visual

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"talon/internal/ledger"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorEquity        = "#3b82f6"

	chartWidthPx  = 1200
	chartHeightPx = 520
)

// EquityPoint is one step of the realized equity curve: balance after the
// trade closed at Time.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// BuildEquityCurve walks closed trades in exit order and accumulates realized
// PnL on top of the recorded baseline. Open trades are skipped.
func BuildEquityCurve(baseline float64, trades []ledger.TradeRecord) []EquityPoint {
	points := make([]EquityPoint, 0, len(trades))
	equity := baseline
	for _, t := range trades {
		if t.ExitTime == nil {
			continue
		}
		if t.Pnl != nil {
			equity += *t.Pnl
		}
		points = append(points, EquityPoint{Time: *t.ExitTime, Equity: equity})
	}
	return points
}

// RenderEquityCurve writes a standalone HTML page with the equity line chart.
func RenderEquityCurve(w io.Writer, title string, points []EquityPoint) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
			PageTitle:       title,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)

	xAxis := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		xAxis[i] = p.Time.UTC().Format("01-02 15:04")
		data[i] = opts.LineData{Value: round(p.Equity, 4)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line.Render(w)
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
