package dataprocessing

import (
	"time"

	"eventdash/pkg/contracts/domain"
)

// Query runs one filter selection against the dataset and assembles the
// table and every aggregate. The dataset is read, never modified.
func (a *Aggregator) Query(ds *domain.Dataset, filters domain.Filters) *domain.Dashboard {
	matched := Apply(ds.Records(), filters)

	return &domain.Dashboard{
		Filters:        filters,
		TotalRecords:   ds.Len(),
		MatchedRecords: len(matched),
		Table:          BuildTable(matched),
		Aggregates:     a.Aggregate(matched),
		GeneratedAt:    time.Now().UTC(),
	}
}
