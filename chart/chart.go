// Package chart renders dashboard charts as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/warp/finhub/finance"
)

// ErrNoMonths is returned for an overview with an empty month window.
var ErrNoMonths = errors.New("chart: no months to plot")

const (
	width  = 8 * vg.Inch
	height = 4 * vg.Inch
)

// RenderMonthlyComparison draws inward and expense bars side by side for
// every month of the overview and writes a PNG to w.
func RenderMonthlyComparison(w io.Writer, ov finance.Overview, title string) error {
	if len(ov.Inward.Values) == 0 {
		return ErrNoMonths
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Amount"

	barWidth := vg.Points(10)
	inward, err := plotter.NewBarChart(plotter.Values(ov.Inward.Floats()), barWidth)
	if err != nil {
		return fmt.Errorf("inward bars: %w", err)
	}
	inward.LineStyle.Width = vg.Length(0)
	inward.Color = plotutil.Color(0)
	inward.Offset = -barWidth / 2

	expense, err := plotter.NewBarChart(plotter.Values(ov.Expense.Floats()), barWidth)
	if err != nil {
		return fmt.Errorf("expense bars: %w", err)
	}
	expense.LineStyle.Width = vg.Length(0)
	expense.Color = plotutil.Color(1)
	expense.Offset = barWidth / 2

	p.Add(inward, expense)
	p.Legend.Add("Inward", inward)
	p.Legend.Add("Expense", expense)
	p.Legend.Top = true
	p.NominalX(ov.Inward.Labels...)

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
