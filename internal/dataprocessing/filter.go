package dataprocessing

import (
	"eventdash/pkg/contracts/domain"
)

// Apply returns the records matching every restricting selector. The input
// slice is never modified; the result is always a fresh slice.
func Apply(records []domain.Record, filters domain.Filters) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if filters.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
