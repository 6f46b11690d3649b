package exporter

import (
	"strconv"
	"time"
)

// dateLayout is used for every timestamp written by the exporters
const dateLayout = "2006-01-02T15:04:05"

// formatFloat formats a float64 with the shortest exact representation
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
