package domain

import (
	"time"
)

// AgeGroup is the age bucket attached to every derived record
type AgeGroup string

const (
	AgeGroupChild      AgeGroup = "0-14 Years"
	AgeGroupAdult      AgeGroup = "15-49 Years"
	AgeGroupMiddleAged AgeGroup = "50-64 Years"
	AgeGroupSenior     AgeGroup = "65+ Years"
	AgeGroupUnknown    AgeGroup = "Unknown"
)

// AllAgeGroups lists the buckets in ascending age order, Unknown last
var AllAgeGroups = []AgeGroup{
	AgeGroupChild,
	AgeGroupAdult,
	AgeGroupMiddleAged,
	AgeGroupSenior,
	AgeGroupUnknown,
}

// RawRow is one source row before derivation. Every field holds the
// trimmed cell text exactly as read from the workbook.
type RawRow struct {
	Line             int    `json:"line"`
	Sex              string `json:"sex"`
	Age              string `json:"age"`
	EventDate        string `json:"event_date"`
	DischargeDate    string `json:"discharge_date"`
	PrimaryDiagnosis string `json:"primary_diagnosis"`
	OrganisationUnit string `json:"organisation_unit"`
}

// Record is a derived clinical event. Records only exist for rows whose
// event and discharge dates both parsed. Age is the numeric cell value as
// read; AgeText keeps the cell text.
type Record struct {
	Sex              string    `json:"sex"`
	Age              *float64  `json:"age"`
	AgeText          string    `json:"age_text,omitempty"`
	AgeGroup         AgeGroup  `json:"age_group"`
	EventDate        time.Time `json:"event_date"`
	DischargeDate    time.Time `json:"discharge_date"`
	PrimaryDiagnosis string    `json:"primary_diagnosis"`
	OrganisationUnit string    `json:"organisation_unit"`
	LengthOfStayDays float64   `json:"length_of_stay_days"`
	Month            string    `json:"month"`
}

// LoadStats summarises the row-level corrections made while deriving a dataset
type LoadStats struct {
	Source        string        `json:"source"`
	Sheet         string        `json:"sheet,omitempty"`
	RowsRead      int           `json:"rows_read"`
	RowsDropped   int           `json:"rows_dropped"`
	RowsKept      int           `json:"rows_kept"`
	UnknownAges   int           `json:"unknown_ages"`
	BadEventDates int           `json:"bad_event_dates"`
	BadDischarges int           `json:"bad_discharge_dates"`
	LoadedAt      time.Time     `json:"loaded_at"`
	LoadDuration  time.Duration `json:"load_duration"`
}

// Dataset is the immutable derived record set built once per load
type Dataset struct {
	records []Record
	stats   LoadStats
}

// NewDataset wraps derived records. The slice is owned by the dataset afterwards.
func NewDataset(records []Record, stats LoadStats) *Dataset {
	stats.RowsKept = len(records)
	return &Dataset{records: records, stats: stats}
}

// Records returns the derived records. Callers must treat the slice as read-only.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return d.records
}

// Len returns the number of derived records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Stats returns the load statistics
func (d *Dataset) Stats() LoadStats {
	if d == nil {
		return LoadStats{}
	}
	return d.stats
}
