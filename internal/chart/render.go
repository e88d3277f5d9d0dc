package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		out = append(out, opts.LineData{Value: v})
	}
	return out
}

func forecastLine(title string, d *Data) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)
	line.SetXAxis(d.Dates).
		AddSeries("Forecast", lineData(d.Predicted)).
		AddSeries("Upper", lineData(d.Upper)).
		AddSeries("Lower", lineData(d.Lower))
	return line
}

func componentsLine(d *Data) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Forecast Components",
			},
		),
	)
	line.SetXAxis(d.Dates)
	if d.Trend != nil {
		line.AddSeries("Trend", lineData(d.Trend))
	}
	if d.Weekly != nil {
		line.AddSeries("Weekly", lineData(d.Weekly))
	}
	if d.Yearly != nil {
		line.AddSeries("Yearly", lineData(d.Yearly))
	}
	return line
}

// RenderHTML writes a standalone page with the forecast band and, when
// present, its decomposed components.
func RenderHTML(w io.Writer, title string, d *Data) error {
	if d == nil {
		return fmt.Errorf("nil chart data")
	}
	page := components.NewPage()
	page.AddCharts(forecastLine(title, d))
	if d.Trend != nil || d.Weekly != nil || d.Yearly != nil {
		page.AddCharts(componentsLine(d))
	}
	return page.Render(w)
}
