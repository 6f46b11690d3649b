package dataprocessing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"eventdash/pkg/contracts/domain"
)

// Excel serial day numbers accepted as dates (1900-01-01 .. 9999-12-31)
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// timestampLayouts are tried in order for textual dates
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-Jan-2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// Timestamp is a parsed calendar timestamp that may be missing
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// Candidate is a source row whose dates have been parsed but which has not
// yet passed the completeness check
type Candidate struct {
	Raw           domain.RawRow
	EventDate     Timestamp
	DischargeDate Timestamp
}

// Complete reports whether both dates parsed
func (c Candidate) Complete() bool {
	return c.EventDate.Valid && c.DischargeDate.Valid
}

// ClassifyAge buckets an age cell. Missing or non-numeric ages are Unknown;
// numeric ages are truncated toward zero before bucketing.
func ClassifyAge(raw string) domain.AgeGroup {
	age, ok := parseAge(raw)
	if !ok {
		return domain.AgeGroupUnknown
	}
	return bucketAge(int64(math.Trunc(age)))
}

func bucketAge(age int64) domain.AgeGroup {
	switch {
	case 0 <= age && age <= 14:
		return domain.AgeGroupChild
	case 15 <= age && age <= 49:
		return domain.AgeGroupAdult
	case 50 <= age && age <= 64:
		return domain.AgeGroupMiddleAged
	case age >= 65:
		return domain.AgeGroupSenior
	default:
		// negative ages match no bucket
		return domain.AgeGroupUnknown
	}
}

// parseAge reads a finite numeric age cell
func parseAge(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v > math.MaxInt64 || v < math.MinInt64 {
		return 0, false
	}
	return v, true
}

// ParseTimestamp parses a date cell into a timezone-naive timestamp. Excel
// serial numbers and common textual layouts are accepted. Any UTC offset is
// discarded, keeping the wall clock. Unparseable input yields an invalid
// Timestamp rather than an error.
func ParseTimestamp(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(serial) || serial < minExcelSerial || serial > maxExcelSerial {
			return Timestamp{}
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return Timestamp{}
		}
		return Timestamp{Time: naive(t), Valid: true}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: naive(t), Valid: true}
		}
	}
	return Timestamp{}
}

// naive drops the location while keeping the wall clock
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ComputeLengthOfStay returns event minus discharge in fractional days. The
// result is signed. ok is false when either timestamp is missing.
func ComputeLengthOfStay(event, discharge Timestamp) (days float64, ok bool) {
	if !event.Valid || !discharge.Valid {
		return 0, false
	}
	return float64(event.Time.Sub(discharge.Time)) / float64(24*time.Hour), true
}

// ComputeMonth formats the event month as YYYY-MM
func ComputeMonth(event Timestamp) (string, bool) {
	if !event.Valid {
		return "", false
	}
	return event.Time.Format("2006-01"), true
}

// DropIncomplete removes candidates whose event or discharge date failed to parse
func DropIncomplete(candidates []Candidate) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Complete() {
			kept = append(kept, c)
		}
	}
	return kept
}

// Derive turns raw source rows into the immutable dataset. The completeness
// check runs exactly once, here, before any user filter can see the records.
func Derive(rows []domain.RawRow, stats domain.LoadStats, logger *slog.Logger) *domain.Dataset {
	if logger == nil {
		logger = slog.Default()
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		c := Candidate{
			Raw:           row,
			EventDate:     ParseTimestamp(row.EventDate),
			DischargeDate: ParseTimestamp(row.DischargeDate),
		}
		if !c.EventDate.Valid {
			stats.BadEventDates++
		}
		if !c.DischargeDate.Valid {
			stats.BadDischarges++
		}
		candidates = append(candidates, c)
	}
	stats.RowsRead = len(rows)

	kept := DropIncomplete(candidates)
	stats.RowsDropped = len(candidates) - len(kept)

	records := make([]domain.Record, 0, len(kept))
	for _, c := range kept {
		rec := deriveRecord(c)
		if rec.AgeGroup == domain.AgeGroupUnknown {
			stats.UnknownAges++
		}
		records = append(records, rec)
	}

	logger.Info("Derived event records",
		slog.String("source", stats.Source),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_dropped", stats.RowsDropped),
		slog.Int("records", len(records)),
		slog.Int("unknown_ages", stats.UnknownAges))

	return domain.NewDataset(records, stats)
}

func deriveRecord(c Candidate) domain.Record {
	los, _ := ComputeLengthOfStay(c.EventDate, c.DischargeDate)
	month, _ := ComputeMonth(c.EventDate)

	rec := domain.Record{
		Sex:              strings.TrimSpace(c.Raw.Sex),
		AgeText:          strings.TrimSpace(c.Raw.Age),
		AgeGroup:         ClassifyAge(c.Raw.Age),
		EventDate:        c.EventDate.Time,
		DischargeDate:    c.DischargeDate.Time,
		PrimaryDiagnosis: strings.TrimSpace(c.Raw.PrimaryDiagnosis),
		OrganisationUnit: strings.TrimSpace(c.Raw.OrganisationUnit),
		LengthOfStayDays: los,
		Month:            month,
	}
	if age, ok := parseAge(c.Raw.Age); ok {
		rec.Age = &age
	}
	return rec
}
