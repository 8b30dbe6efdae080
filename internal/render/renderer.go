package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sanspareilsmyn/latencymap/internal/config"
	"github.com/sanspareilsmyn/latencymap/internal/heatmap"
	"github.com/sanspareilsmyn/latencymap/internal/record"
)

const (
	// tokenDebugLevel switches cells to "token:value" text and stops clearing the screen.
	tokenDebugLevel = 2

	headerLine = "latencymap - heat maps of latency histograms (frequency & intensity)"
)

// Frame is everything needed to draw one screen.
type Frame struct {
	Window *heatmap.Window
	Range  heatmap.BucketRange
	// Unit is the latency unit of the wire values; labels are always shown in milliseconds.
	Unit record.LatencyUnit
}

// mapSpec parameterizes one of the two heat maps.
type mapSpec struct {
	metric  heatmap.Metric
	palette Palette
	fixed   float64
	title   string
	unit    string
	caption string
}

// Renderer lays out the frequency and intensity heat maps, legend and footer.
type Renderer struct {
	display config.DisplayConfig
	sink    Sink
}

// NewRenderer creates a renderer drawing to sink.
func NewRenderer(display config.DisplayConfig, sink Sink) *Renderer {
	return &Renderer{display: display, sink: sink}
}

// Render draws one full frame and flushes it.
func (r *Renderer) Render(f Frame) error {
	r.sink.Reset()
	if r.display.DebugLevel < tokenDebugLevel {
		r.sink.Clear()
		r.sink.Home()
	}
	r.sink.WriteString(headerLine + "\n")

	if r.display.FrequencyMap {
		r.drawMap(f, mapSpec{
			metric:  heatmap.Frequency,
			palette: BluePalette,
			fixed:   r.display.FrequencyMaxVal,
			title:   "Frequency Heatmap: events per sec",
			unit:    "(N#/sec)",
			caption: "x=time, y=latency bucket (ms), color=wait frequency (IOPS)",
		})
	}
	if r.display.IntensityMap {
		r.drawMap(f, mapSpec{
			metric:  heatmap.Intensity,
			palette: RedPalette,
			fixed:   r.display.IntensityMaxVal,
			title:   "Intensity Heatmap: time waited per sec",
			unit:    fmt.Sprintf("(%s/sec)", f.Unit),
			caption: "x=time, y=latency bucket (ms), color=time waited",
		})
	}
	r.drawFooter(f)

	r.sink.Reset()
	return r.sink.Flush()
}

// ScaleMax returns the value mapped to the top color band: the configured ceiling,
// or the window maximum when the ceiling is auto.
func ScaleMax(fixed float64, w *heatmap.Window, m heatmap.Metric) float64 {
	if fixed > 0 {
		return fixed
	}
	return w.Max(m)
}

func (r *Renderer) drawMap(f Frame, spec mapSpec) {
	n := r.display.NumRecords
	records := f.Window.Records()
	chartMax := f.Window.Max(spec.metric)
	maxVal := ScaleMax(spec.fixed, f.Window, spec.metric)

	line := padRight("Latency bucket", max(16, n/2-10)) + spec.title
	line = padRight(line, n+2) + "Latest values"
	if r.display.PrintLegend {
		line += "    Legend"
	}
	r.sink.WriteString(line + "\n")
	r.sink.WriteString(padRight("(millisec)", max(16, n-len(spec.unit)+14)) + spec.unit + "\n")

	lastRow := f.Range.Max - f.Range.Min
	for row, bucket := 0, f.Range.Max; bucket >= f.Range.Min; row, bucket = row+1, bucket-1 {
		r.sink.WriteString(padLeft(rowLabel(bucket, f.Range, f.Unit), 6, " ") + " ")

		var value float64
		for _, rec := range records {
			value = rec.Value(spec.metric, bucket)
			token := Token(value, maxVal)
			if r.display.DebugLevel >= tokenDebugLevel {
				r.sink.WriteString(fmt.Sprintf("%d:%v, ", token, value))
				continue
			}
			r.sink.WriteCell(token, spec.palette)
		}
		r.sink.Reset()
		r.sink.WriteString(padLeft(FormatValue(value), 7, "."))

		if r.display.PrintLegend {
			r.drawLegend(row, lastRow, maxVal, chartMax, spec.palette)
		}
		r.sink.WriteString("\n")
	}

	latest := f.Window.Latest()
	line = padRight("      "+spec.caption, n+3)
	line += "Sum:" + padLeft(FormatValue(latest.Sum(spec.metric)), 7, ".")
	line += "    " + FormatValue(f.Window.MaxSum(spec.metric))
	r.sink.WriteString(line + "\n\n")
}

// drawLegend appends the legend cell for a map row: one swatch per token with its lower
// threshold, then the window maximum, and the header of the max column-sum on the last row.
func (r *Renderer) drawLegend(row, lastRow int, maxVal, chartMax float64, palette Palette) {
	switch {
	case row < NumTokens:
		r.sink.WriteString("    ")
		r.sink.WriteCell(row, palette)
		r.sink.Reset()
		r.sink.WriteString(" ")
		if row == 0 {
			r.sink.WriteString("0")
			return
		}
		threshold := float64(int(maxVal * float64(row-1) / float64(NumTokens-1)))
		r.sink.WriteString(">" + FormatValue(threshold))
	case row == NumTokens:
		r.sink.WriteString("    Max: " + FormatValue(chartMax))
	case row == lastRow:
		r.sink.WriteString("    Max(Sum):")
	}
}

func rowLabel(bucket int, rng heatmap.BucketRange, unit record.LatencyUnit) string {
	switch bucket {
	case rng.Max:
		return ">" + BucketLabel(bucket-1, unit)
	case rng.Min:
		return "<" + BucketLabel(bucket, unit)
	}
	return BucketLabel(bucket, unit)
}

func (r *Renderer) drawFooter(f Frame) {
	latest := f.Window.Latest()
	totalAvg, latestAvg := Averages(f.Window)

	r.sink.WriteString(fmt.Sprintf("Average latency: %s %s. Average latency of latest values: %s %s\n",
		FormatValue(totalAvg), f.Unit, FormatValue(latestAvg), f.Unit))
	r.sink.WriteString(fmt.Sprintf("Sample num: %d. Delta time: %s sec. Date: %s\n",
		f.Window.Samples(),
		strconv.FormatFloat(float64(latest.DeltaTime)/1e6, 'f', 1, 64),
		strings.ToUpper(latest.Date)))
	if latest.Label != "" {
		r.sink.WriteString("Label: " + latest.Label + "\n")
	}
}

// Averages returns the window-wide and newest-column average latency.
func Averages(w *heatmap.Window) (total, latest float64) {
	l := w.Latest()
	return ratio(w.Total(heatmap.Intensity), w.Total(heatmap.Frequency)), ratio(l.SumIntensity, l.SumFrequency)
}

// ratio divides guarding against an empty denominator.
func ratio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return 0
}

// Dump writes every column of the window for metric as plain text, one line per column.
func (r *Renderer) Dump(w *heatmap.Window, m heatmap.Metric) error {
	title := "Frequency histograms:"
	if m == heatmap.Intensity {
		title = "Intensity histograms:"
	}
	r.sink.WriteString("\n" + title + "\n")
	for _, rec := range w.Records() {
		series := rec.Frequency
		if m == heatmap.Intensity {
			series = rec.Intensity
		}
		r.sink.WriteString(fmt.Sprintf("%v %d\n", series, rec.DeltaTime))
	}
	return r.sink.Flush()
}
