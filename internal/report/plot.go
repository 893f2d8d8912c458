package report

import (
	"fmt"
	"sort"

	"battery-arbitrage/internal/baseline"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// AnnualLine is one named series of yearly revenue on the comparison chart.
type AnnualLine struct {
	Name   string
	Points map[int]float64
}

// BaselineLine adapts baseline annual revenue for plotting.
func BaselineLine(name string, annual []baseline.AnnualRevenue) AnnualLine {
	pts := make(map[int]float64, len(annual))
	for _, a := range annual {
		pts[a.Year] = a.Revenue
	}
	return AnnualLine{Name: name, Points: pts}
}

// BucketLine adapts yearly buckets for plotting.
func BucketLine(name string, buckets []Bucket) AnnualLine {
	pts := make(map[int]float64, len(buckets))
	for _, b := range buckets {
		pts[b.Start.Year()] += b.Revenue.InexactFloat64()
	}
	return AnnualLine{Name: name, Points: pts}
}

// PlotAnnualComparison renders yearly revenue lines to path. The image
// format follows the file extension (.png, .svg, .pdf).
func PlotAnnualComparison(path string, lines ...AnnualLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("plot: no lines")
	}
	p := plot.New()
	p.Title.Text = "Annual revenue: baseline vs optimised"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Revenue"
	p.X.Tick.Marker = yearTicks{}
	p.Y.Tick.Marker = millionsTicks{}
	p.Add(plotter.NewGrid())

	var args []interface{}
	for _, l := range lines {
		args = append(args, l.Name, toXYs(l.Points))
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	p.Legend.Top = true

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

func toXYs(points map[int]float64) plotter.XYs {
	years := make([]int, 0, len(points))
	for y := range points {
		years = append(years, y)
	}
	sort.Ints(years)
	xys := make(plotter.XYs, len(years))
	for i, y := range years {
		xys[i].X = float64(y)
		xys[i].Y = points[y]
	}
	return xys
}

// millionsTicks labels the default ticks as "1.5M".
type millionsTicks struct{}

func (millionsTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		ticks[i].Label = formatMillions(ticks[i].Value)
	}
	return ticks
}

func formatMillions(v float64) string {
	return fmt.Sprintf("%.1fM", v/1e6)
}

// yearTicks places one labelled tick per whole year.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for y := int(min); float64(y) <= max; y++ {
		if float64(y) < min {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: float64(y), Label: fmt.Sprint(y)})
	}
	return ticks
}
