package dataprocessing

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"eventdash/pkg/contracts/domain"
)

// Series titles as shown on the dashboard
const (
	TitleVolumeByMonth     = "Patient Volume by Month"
	TitleAvgLOSByDiagnosis = "Average Length of Stay by Diagnosis"
	TitleMonthlyTrend      = "Monthly Trend of Patient Volume"
	TitleAgeGroupShare     = "Age Group Distribution"
	TitleVolumeByOrgUnit   = "Patient Volume by Organisation Unit"
	TitleLOSHistogram      = "Length of Stay Distribution"
	TitleLOSBoxplot        = "Length of Stay by Diagnosis"
)

const (
	DefaultTopDiagnoses  = 10
	DefaultHistogramBins = 20
	MaxHistogramBins     = 500
)

// Aggregator computes the named dashboard series over a filtered record set
type Aggregator struct {
	logger        *slog.Logger
	topDiagnoses  int
	histogramBins int
}

// AggregatorConfig holds the tunable limits of the aggregate series
type AggregatorConfig struct {
	TopDiagnoses  int // Maximum entries in the average length of stay series
	HistogramBins int // Number of equal-width length of stay bins
}

// DefaultAggregatorConfig returns the dashboard defaults
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		TopDiagnoses:  DefaultTopDiagnoses,
		HistogramBins: DefaultHistogramBins,
	}
}

// NewAggregator creates an aggregator, filling unset limits with defaults
func NewAggregator(logger *slog.Logger, config AggregatorConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopDiagnoses <= 0 {
		config.TopDiagnoses = DefaultTopDiagnoses
	}
	if config.HistogramBins <= 0 {
		config.HistogramBins = DefaultHistogramBins
	}
	if config.HistogramBins > MaxHistogramBins {
		logger.Warn("Histogram bins capped",
			slog.Int("requested", config.HistogramBins),
			slog.Int("max", MaxHistogramBins))
		config.HistogramBins = MaxHistogramBins
	}
	return &Aggregator{
		logger:        logger.With(slog.String("component", "aggregator")),
		topDiagnoses:  config.TopDiagnoses,
		histogramBins: config.HistogramBins,
	}
}

// Aggregate computes every series. An empty record set short-circuits to
// no-data series without touching the grouping code.
func (a *Aggregator) Aggregate(records []domain.Record) domain.Aggregates {
	if len(records) == 0 {
		return EmptyAggregates()
	}

	agg := domain.Aggregates{
		VolumeByMonth:     VolumeByMonth(records),
		AvgLOSByDiagnosis: AverageLOSByDiagnosis(records, a.topDiagnoses),
		MonthlyTrend:      MonthlyTrend(records),
		AgeGroupShare:     AgeGroupShares(records),
		VolumeByOrgUnit:   VolumeByOrgUnit(records),
		LOSHistogram:      LOSHistogram(records, a.histogramBins),
		LOSBoxplot:        LOSBoxplot(records),
	}
	a.logger.Debug("Computed aggregates",
		slog.Int("records", len(records)),
		slog.Int("months", len(agg.VolumeByMonth.Points)),
		slog.Int("diagnoses", len(agg.LOSBoxplot.Points)))
	return agg
}

// EmptyAggregates returns every series in its no-data form
func EmptyAggregates() domain.Aggregates {
	return domain.Aggregates{
		VolumeByMonth:     domain.NoDataSeries[domain.MonthCount](domain.SeriesVolumeByMonth, TitleVolumeByMonth),
		AvgLOSByDiagnosis: domain.NoDataSeries[domain.DiagnosisLOS](domain.SeriesAvgLOSByDiagnosis, TitleAvgLOSByDiagnosis),
		MonthlyTrend:      domain.NoDataSeries[domain.TrendPoint](domain.SeriesMonthlyTrend, TitleMonthlyTrend),
		AgeGroupShare:     domain.NoDataSeries[domain.AgeGroupShare](domain.SeriesAgeGroupShare, TitleAgeGroupShare),
		VolumeByOrgUnit:   domain.NoDataSeries[domain.UnitCount](domain.SeriesVolumeByOrgUnit, TitleVolumeByOrgUnit),
		LOSHistogram:      domain.NoDataSeries[domain.HistogramBin](domain.SeriesLOSHistogram, TitleLOSHistogram),
		LOSBoxplot:        domain.NoDataSeries[domain.BoxSummary](domain.SeriesLOSBoxplot, TitleLOSBoxplot),
	}
}

// VolumeByMonth counts records per event month in ascending month order
func VolumeByMonth(records []domain.Record) domain.Series[domain.MonthCount] {
	counts := countBy(records, func(r domain.Record) string { return r.Month })

	points := make([]domain.MonthCount, 0, len(counts))
	for month, n := range counts {
		points = append(points, domain.MonthCount{Month: month, Cases: n})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })

	return domain.NewSeries(domain.SeriesVolumeByMonth, TitleVolumeByMonth, points)
}

// AverageLOSByDiagnosis ranks diagnoses by mean length of stay, highest
// first, keeping at most limit entries
func AverageLOSByDiagnosis(records []domain.Record, limit int) domain.Series[domain.DiagnosisLOS] {
	if limit <= 0 {
		limit = DefaultTopDiagnoses
	}

	groups := losBy(records, func(r domain.Record) string { return r.PrimaryDiagnosis })
	points := make([]domain.DiagnosisLOS, 0, len(groups))
	for diagnosis, values := range groups {
		points = append(points, domain.DiagnosisLOS{
			Diagnosis:   diagnosis,
			AverageDays: stat.Mean(values, nil),
			Cases:       len(values),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].AverageDays != points[j].AverageDays {
			return points[i].AverageDays > points[j].AverageDays
		}
		return points[i].Diagnosis < points[j].Diagnosis
	})
	if len(points) > limit {
		points = points[:limit]
	}

	return domain.NewSeries(domain.SeriesAvgLOSByDiagnosis, TitleAvgLOSByDiagnosis, points)
}

// MonthlyTrend turns the monthly volume into a first-of-month time series
func MonthlyTrend(records []domain.Record) domain.Series[domain.TrendPoint] {
	volume := VolumeByMonth(records)

	points := make([]domain.TrendPoint, 0, len(volume.Points))
	for _, p := range volume.Points {
		period, err := time.Parse("2006-01", p.Month)
		if err != nil {
			continue
		}
		points = append(points, domain.TrendPoint{Period: period, Month: p.Month, Cases: p.Cases})
	}

	return domain.NewSeries(domain.SeriesMonthlyTrend, TitleMonthlyTrend, points)
}

// AgeGroupShares reports the proportion of records in each age group,
// largest group first
func AgeGroupShares(records []domain.Record) domain.Series[domain.AgeGroupShare] {
	counts := countBy(records, func(r domain.Record) string { return string(r.AgeGroup) })

	points := make([]domain.AgeGroupShare, 0, len(counts))
	for group, n := range counts {
		points = append(points, domain.AgeGroupShare{
			AgeGroup: domain.AgeGroup(group),
			Cases:    n,
			Share:    float64(n) / float64(len(records)),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Cases != points[j].Cases {
			return points[i].Cases > points[j].Cases
		}
		return points[i].AgeGroup < points[j].AgeGroup
	})

	return domain.NewSeries(domain.SeriesAgeGroupShare, TitleAgeGroupShare, points)
}

// VolumeByOrgUnit counts records per organisation unit, busiest first
func VolumeByOrgUnit(records []domain.Record) domain.Series[domain.UnitCount] {
	counts := countBy(records, func(r domain.Record) string { return r.OrganisationUnit })

	points := make([]domain.UnitCount, 0, len(counts))
	for unit, n := range counts {
		points = append(points, domain.UnitCount{OrganisationUnit: unit, Cases: n})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Cases != points[j].Cases {
			return points[i].Cases > points[j].Cases
		}
		return points[i].OrganisationUnit < points[j].OrganisationUnit
	})

	return domain.NewSeries(domain.SeriesVolumeByOrgUnit, TitleVolumeByOrgUnit, points)
}

// LOSHistogram bins length of stay into equal-width bins spanning the
// observed range. A single-valued range is widened by half a day each side.
// bins is capped at MaxHistogramBins.
func LOSHistogram(records []domain.Record, bins int) domain.Series[domain.HistogramBin] {
	if len(records) == 0 {
		return domain.NoDataSeries[domain.HistogramBin](domain.SeriesLOSHistogram, TitleLOSHistogram)
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	bins = min(bins, MaxHistogramBins)

	values := losValues(records)
	sort.Float64s(values)

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// the last bin is closed on the right
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, values, nil)

	points := make([]domain.HistogramBin, bins)
	for i := range points {
		upper := dividers[i+1]
		if i == bins-1 {
			upper = hi
		}
		points[i] = domain.HistogramBin{Lower: dividers[i], Upper: upper, Count: int(counts[i])}
	}

	return domain.NewSeries(domain.SeriesLOSHistogram, TitleLOSHistogram, points)
}

// LOSBoxplot summarises the length of stay distribution of each diagnosis
func LOSBoxplot(records []domain.Record) domain.Series[domain.BoxSummary] {
	groups := losBy(records, func(r domain.Record) string { return r.PrimaryDiagnosis })

	points := make([]domain.BoxSummary, 0, len(groups))
	for diagnosis, values := range groups {
		sort.Float64s(values)
		points = append(points, domain.BoxSummary{
			Diagnosis: diagnosis,
			Count:     len(values),
			Min:       values[0],
			Q1:        quantile(values, 0.25),
			Median:    quantile(values, 0.5),
			Q3:        quantile(values, 0.75),
			Max:       values[len(values)-1],
			Mean:      stat.Mean(values, nil),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Diagnosis < points[j].Diagnosis })

	return domain.NewSeries(domain.SeriesLOSBoxplot, TitleLOSBoxplot, points)
}

// quantile linearly interpolates between the closest ranks of sorted values
// (Hyndman-Fan type 7)
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	i := int(math.Floor(h))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

func countBy(records []domain.Record, key func(domain.Record) string) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[key(r)]++
	}
	return counts
}

func losBy(records []domain.Record, key func(domain.Record) string) map[string][]float64 {
	groups := make(map[string][]float64)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r.LengthOfStayDays)
	}
	return groups
}

func losValues(records []domain.Record) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.LengthOfStayDays
	}
	return values
}
