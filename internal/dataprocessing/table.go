package dataprocessing

import (
	"sort"

	"eventdash/pkg/contracts/domain"
)

// BuildTable projects filtered records into display rows indexed from 1
func BuildTable(records []domain.Record) domain.Table {
	if len(records) == 0 {
		return domain.Table{NoData: true, Message: domain.NoPatientsMessage, Rows: []domain.TableRow{}}
	}

	rows := make([]domain.TableRow, len(records))
	for i, r := range records {
		rows[i] = domain.TableRow{
			Index:            i + 1,
			Sex:              r.Sex,
			Age:              r.Age,
			AgeText:          r.AgeText,
			AgeGroup:         r.AgeGroup,
			PrimaryDiagnosis: r.PrimaryDiagnosis,
			OrganisationUnit: r.OrganisationUnit,
			LengthOfStayDays: r.LengthOfStayDays,
		}
	}
	return domain.Table{Rows: rows}
}

// SelectorDomainsOf lists the sorted distinct values of each filter
// dimension across the whole dataset
func SelectorDomainsOf(records []domain.Record) domain.SelectorDomains {
	return domain.SelectorDomains{
		Month: domain.SelectorDomain{
			Key: "month", Label: "Select Month", AnyLabel: domain.AnyMonthLabel,
			Values: distinct(records, func(r domain.Record) string { return r.Month }),
		},
		Diagnosis: domain.SelectorDomain{
			Key: "diagnosis", Label: "Select Diagnosis", AnyLabel: domain.AnyDiagnosisLabel,
			Values: distinct(records, func(r domain.Record) string { return r.PrimaryDiagnosis }),
		},
		AgeGroup: domain.SelectorDomain{
			Key: "age_group", Label: "Select Age Group", AnyLabel: domain.AnyAgeGroupLabel,
			Values: distinct(records, func(r domain.Record) string { return string(r.AgeGroup) }),
		},
		OrgUnit: domain.SelectorDomain{
			Key: "org_unit", Label: "Select Organisation Unit", AnyLabel: domain.AnyOrgUnitLabel,
			Values: distinct(records, func(r domain.Record) string { return r.OrganisationUnit }),
		},
	}
}

func distinct(records []domain.Record, key func(domain.Record) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, k)
	}
	sort.Strings(values)
	return values
}
