// Package charts renders dashboard aggregate series as PNG images.
package charts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"eventdash/pkg/contracts/domain"
)

var (
	// ErrNoData is returned when the requested series is empty
	ErrNoData = errors.New("no data to plot")
	// ErrUnknownChart is returned for chart names outside Names
	ErrUnknownChart = errors.New("unknown chart")
)

// Names lists the renderable series in dashboard order
var Names = []string{
	domain.SeriesVolumeByMonth,
	domain.SeriesAvgLOSByDiagnosis,
	domain.SeriesMonthlyTrend,
	domain.SeriesAgeGroupShare,
	domain.SeriesVolumeByOrgUnit,
	domain.SeriesLOSHistogram,
}

const (
	defaultWidth  = 1024
	defaultHeight = 480
	barWidth      = 40
	barSpacing    = 12
)

// Config sets the image size
type Config struct {
	Width  int
	Height int
}

// Renderer draws aggregate series with go-chart
type Renderer struct {
	logger *slog.Logger
	width  int
	height int
}

// NewRenderer creates a renderer, defaulting unset dimensions
func NewRenderer(logger *slog.Logger, cfg Config) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	return &Renderer{
		logger: logger.With(slog.String("component", "charts")),
		width:  cfg.Width,
		height: cfg.Height,
	}
}

// Render writes the PNG for the named series of agg to w
func (r *Renderer) Render(w io.Writer, name string, agg domain.Aggregates) error {
	var err error
	switch name {
	case domain.SeriesVolumeByMonth:
		err = r.volumeByMonth(w, agg.VolumeByMonth)
	case domain.SeriesAvgLOSByDiagnosis:
		err = r.avgLOSByDiagnosis(w, agg.AvgLOSByDiagnosis)
	case domain.SeriesMonthlyTrend:
		err = r.monthlyTrend(w, agg.MonthlyTrend)
	case domain.SeriesAgeGroupShare:
		err = r.ageGroupShare(w, agg.AgeGroupShare)
	case domain.SeriesVolumeByOrgUnit:
		err = r.volumeByOrgUnit(w, agg.VolumeByOrgUnit)
	case domain.SeriesLOSHistogram:
		err = r.losHistogram(w, agg.LOSHistogram)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
	if err != nil && !errors.Is(err, ErrNoData) {
		r.logger.Error("chart render failed", slog.String("chart", name), slog.String("error", err.Error()))
	}
	return err
}

func (r *Renderer) volumeByMonth(w io.Writer, s domain.Series[domain.MonthCount]) error {
	if s.NoData {
		return ErrNoData
	}
	bars := make([]chart.Value, len(s.Points))
	for i, p := range s.Points {
		bars[i] = chart.Value{Label: p.Month, Value: float64(p.Cases)}
	}
	return r.bars(w, s.Title, "cases", bars)
}

func (r *Renderer) avgLOSByDiagnosis(w io.Writer, s domain.Series[domain.DiagnosisLOS]) error {
	if s.NoData {
		return ErrNoData
	}
	bars := make([]chart.Value, len(s.Points))
	for i, p := range s.Points {
		bars[i] = chart.Value{Label: p.Diagnosis, Value: p.AverageDays}
	}
	return r.bars(w, s.Title, "days", bars)
}

func (r *Renderer) volumeByOrgUnit(w io.Writer, s domain.Series[domain.UnitCount]) error {
	if s.NoData {
		return ErrNoData
	}
	bars := make([]chart.Value, len(s.Points))
	for i, p := range s.Points {
		bars[i] = chart.Value{Label: p.OrganisationUnit, Value: float64(p.Cases)}
	}
	return r.bars(w, s.Title, "cases", bars)
}

func (r *Renderer) losHistogram(w io.Writer, s domain.Series[domain.HistogramBin]) error {
	if s.NoData {
		return ErrNoData
	}
	bars := make([]chart.Value, len(s.Points))
	for i, p := range s.Points {
		bars[i] = chart.Value{Label: formatTick(p.Lower), Value: float64(p.Count)}
	}
	return r.bars(w, s.Title, "cases", bars)
}

func (r *Renderer) ageGroupShare(w io.Writer, s domain.Series[domain.AgeGroupShare]) error {
	if s.NoData {
		return ErrNoData
	}
	values := make([]chart.Value, len(s.Points))
	for i, p := range s.Points {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", p.AgeGroup, p.Share*100),
			Value: float64(p.Cases),
		}
	}
	pie := chart.PieChart{
		Title:  s.Title,
		Width:  r.height,
		Height: r.height,
		Values: values,
	}
	return pie.Render(chart.PNG, w)
}

func (r *Renderer) monthlyTrend(w io.Writer, s domain.Series[domain.TrendPoint]) error {
	if s.NoData {
		return ErrNoData
	}
	times := make([]time.Time, 0, len(s.Points)+1)
	ys := make([]float64, 0, len(s.Points)+1)
	maxY := 0.0
	for _, p := range s.Points {
		times = append(times, p.Period)
		ys = append(ys, float64(p.Cases))
		maxY = math.Max(maxY, float64(p.Cases))
	}
	// Pad to at least two X values for go-chart
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Second))
		ys = append(ys, ys[0])
	}
	if maxY <= 0 {
		maxY = 1
	}

	ch := chart.Chart{
		Title:      s.Title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		XAxis: chart.XAxis{
			Name:           "Month",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: chart.YAxis{
			Name:  "cases",
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "cases",
				XValues: times,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    chart.ColorBlue,
				},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

// bars renders a vertical bar chart with a y range that always has height
func (r *Renderer) bars(w io.Writer, title, unit string, bars []chart.Value) error {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	hi *= 1.1
	if hi <= lo {
		hi = lo + 1
	}

	width := r.width
	if need := len(bars)*(barWidth+barSpacing) + 120; need > width {
		width = need
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     r.height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Bottom: 40}},
		YAxis: chart.YAxis{
			Name:  unit,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: styled(bars),
	}
	return bc.Render(chart.PNG, w)
}

func styled(bars []chart.Value) []chart.Value {
	colors := []drawing.Color{chart.ColorBlue, chart.ColorCyan, chart.ColorGreen, chart.ColorOrange}
	for i := range bars {
		c := colors[i%len(colors)]
		bars[i].Style = chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
	}
	return bars
}

func formatTick(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
