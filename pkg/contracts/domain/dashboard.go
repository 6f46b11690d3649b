package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Series names, also used as chart identifiers
const (
	SeriesVolumeByMonth     = "volume-by-month"
	SeriesAvgLOSByDiagnosis = "avg-los-by-diagnosis"
	SeriesMonthlyTrend      = "monthly-trend"
	SeriesAgeGroupShare     = "age-group-share"
	SeriesVolumeByOrgUnit   = "volume-by-org-unit"
	SeriesLOSHistogram      = "los-histogram"
	SeriesLOSBoxplot        = "los-boxplot"
)

// Unrestricted selector labels shown ahead of the concrete values
const (
	AnyMonthLabel     = "All"
	AnyDiagnosisLabel = "All Diagnoses"
	AnyAgeGroupLabel  = "All Age Groups"
	AnyOrgUnitLabel   = "All Units"
)

// NoPatientsMessage is reported when the filtered record set is empty
const NoPatientsMessage = "No patients found for the selected criteria."

// Series is a named aggregate. When NoData is set Points is empty and
// Message explains why.
type Series[T any] struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	NoData  bool   `json:"no_data"`
	Message string `json:"message,omitempty"`
	Points  []T    `json:"points"`
}

// NewSeries builds a populated series, falling back to a no-data series
// when points is empty
func NewSeries[T any](name, title string, points []T) Series[T] {
	if len(points) == 0 {
		return NoDataSeries[T](name, title)
	}
	return Series[T]{Name: name, Title: title, Points: points}
}

// NoDataSeries builds an explicit empty series
func NoDataSeries[T any](name, title string) Series[T] {
	return Series[T]{
		Name:    name,
		Title:   title,
		NoData:  true,
		Message: "No data available for the selected filters to plot " + title + ".",
		Points:  []T{},
	}
}

// MonthCount is the case count for one event month
type MonthCount struct {
	Month string `json:"month"`
	Cases int    `json:"cases"`
}

// DiagnosisLOS is the mean length of stay for one diagnosis
type DiagnosisLOS struct {
	Diagnosis   string  `json:"diagnosis"`
	AverageDays float64 `json:"average_days"`
	Cases       int     `json:"cases"`
}

// TrendPoint is one point of the monthly volume time series
type TrendPoint struct {
	Period time.Time `json:"period"`
	Month  string    `json:"month"`
	Cases  int       `json:"cases"`
}

// AgeGroupShare is the proportion of records in one age group
type AgeGroupShare struct {
	AgeGroup AgeGroup `json:"age_group"`
	Cases    int      `json:"cases"`
	Share    float64  `json:"share"`
}

// UnitCount is the case count for one organisation unit
type UnitCount struct {
	OrganisationUnit string `json:"organisation_unit"`
	Cases            int    `json:"cases"`
}

// HistogramBin is one equal-width length-of-stay bin, [Lower, Upper)
// except for the last bin which also includes Upper
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// BoxSummary is the five-number length-of-stay summary for one diagnosis
type BoxSummary struct {
	Diagnosis string  `json:"diagnosis"`
	Count     int     `json:"count"`
	Min       float64 `json:"min"`
	Q1        float64 `json:"q1"`
	Median    float64 `json:"median"`
	Q3        float64 `json:"q3"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
}

// Aggregates groups every named series computed over a filtered set
type Aggregates struct {
	VolumeByMonth     Series[MonthCount]    `json:"volume_by_month"`
	AvgLOSByDiagnosis Series[DiagnosisLOS]  `json:"avg_los_by_diagnosis"`
	MonthlyTrend      Series[TrendPoint]    `json:"monthly_trend"`
	AgeGroupShare     Series[AgeGroupShare] `json:"age_group_share"`
	VolumeByOrgUnit   Series[UnitCount]     `json:"volume_by_org_unit"`
	LOSHistogram      Series[HistogramBin]  `json:"los_histogram"`
	LOSBoxplot        Series[BoxSummary]    `json:"los_boxplot"`
}

// TableRow is one display row of the filtered patient table
type TableRow struct {
	Index            int      `json:"index"`
	Sex              string   `json:"sex"`
	Age              *float64 `json:"age"`
	AgeText          string   `json:"age_text,omitempty"`
	AgeGroup         AgeGroup `json:"age_group"`
	PrimaryDiagnosis string   `json:"primary_diagnosis"`
	OrganisationUnit string   `json:"organisation_unit"`
	LengthOfStayDays float64  `json:"length_of_stay_days"`
}

// DisplayAge is the age as it appeared in the source: the number when the
// cell was numeric, otherwise the cell text
func (r TableRow) DisplayAge() string {
	if r.Age != nil {
		return strconv.FormatFloat(*r.Age, 'f', -1, 64)
	}
	return r.AgeText
}

// Table is the filtered patient table
type Table struct {
	NoData  bool       `json:"no_data"`
	Message string     `json:"message,omitempty"`
	Rows    []TableRow `json:"rows"`
}

// Dashboard is the complete response to one filter selection
type Dashboard struct {
	Filters        Filters    `json:"filters"`
	TotalRecords   int        `json:"total_records"`
	MatchedRecords int        `json:"matched_records"`
	Table          Table      `json:"table"`
	Aggregates     Aggregates `json:"aggregates"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

// SelectorDomain lists the choices offered for one filter dimension
type SelectorDomain struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	AnyLabel string   `json:"any_label"`
	Values   []string `json:"values"`
}

// Choices returns the unrestricted label followed by the wire form of each
// value. Sending any choice back selects exactly that value's records.
func (d SelectorDomain) Choices() []string {
	choices := make([]string, 0, len(d.Values)+1)
	choices = append(choices, d.AnyLabel)
	for _, v := range d.Values {
		choices = append(choices, EncodeChoice(v, d.AnyLabel))
	}
	return choices
}

// Encode returns the wire form of value in this dimension
func (d SelectorDomain) Encode(value string) string {
	return EncodeChoice(value, d.AnyLabel)
}

// MarshalJSON adds the encoded choices next to the raw values
func (d SelectorDomain) MarshalJSON() ([]byte, error) {
	type plain SelectorDomain
	return json.Marshal(struct {
		plain
		Choices []string `json:"choices"`
	}{plain(d), d.Choices()})
}

// SelectorDomains holds the choices for all four filter dimensions
type SelectorDomains struct {
	Month     SelectorDomain `json:"month"`
	Diagnosis SelectorDomain `json:"diagnosis"`
	AgeGroup  SelectorDomain `json:"age_group"`
	OrgUnit   SelectorDomain `json:"org_unit"`
}
