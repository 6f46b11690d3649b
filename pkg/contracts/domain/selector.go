package domain

import (
	"encoding/json"
	"strings"
)

// Selector restricts one filter dimension to a single value, or leaves it
// unrestricted. The zero value is unrestricted.
type Selector struct {
	value string
	set   bool
}

// Any returns an unrestricted selector
func Any() Selector {
	return Selector{}
}

// Only returns a selector matching exactly the trimmed value
func Only(value string) Selector {
	return Selector{value: strings.TrimSpace(value), set: true}
}

// IsAny reports whether the selector places no restriction
func (s Selector) IsAny() bool {
	return !s.set
}

// Value returns the selected value and whether one is set
func (s Selector) Value() (string, bool) {
	return s.value, s.set
}

// Matches reports whether a record key satisfies the selector
func (s Selector) Matches(key string) bool {
	if !s.set {
		return true
	}
	return strings.TrimSpace(key) == s.value
}

// String implements fmt.Stringer for logging
func (s Selector) String() string {
	if !s.set {
		return "*"
	}
	return s.value
}

// MarshalJSON encodes an unrestricted selector as null
func (s Selector) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON decodes null as unrestricted and any string as a restriction
func (s *Selector) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Any()
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Only(v)
	return nil
}

// BlankChoice is the wire form of an empty dimension value
const BlankChoice = "(blank)"

// choiceEscape prefixes a value that would otherwise read as the "All"
// label, BlankChoice or an escaped value
const choiceEscape = `\`

// EncodeChoice returns the wire form of a dimension value. Every value,
// including the empty one and one equal to anyLabel, gets a distinct form.
func EncodeChoice(value, anyLabel string) string {
	switch {
	case value == "":
		return BlankChoice
	case value == anyLabel || value == BlankChoice || strings.HasPrefix(value, choiceEscape):
		return choiceEscape + value
	default:
		return value
	}
}

// DecodeChoice is the inverse of EncodeChoice. An empty choice or anyLabel
// leaves the dimension unrestricted.
func DecodeChoice(choice, anyLabel string) Selector {
	choice = strings.TrimSpace(choice)
	switch {
	case choice == "" || choice == anyLabel:
		return Any()
	case choice == BlankChoice:
		return Only("")
	case strings.HasPrefix(choice, choiceEscape):
		return Only(choice[len(choiceEscape):])
	default:
		return Only(choice)
	}
}

// Filters holds the four independent dashboard selectors
type Filters struct {
	Month     Selector `json:"month"`
	Diagnosis Selector `json:"diagnosis"`
	AgeGroup  Selector `json:"age_group"`
	OrgUnit   Selector `json:"org_unit"`
}

// NoRestriction returns filters with every selector unrestricted
func NoRestriction() Filters {
	return Filters{}
}

// IsUnrestricted reports whether no selector restricts the record set
func (f Filters) IsUnrestricted() bool {
	return f.Month.IsAny() && f.Diagnosis.IsAny() && f.AgeGroup.IsAny() && f.OrgUnit.IsAny()
}

// Match reports whether a record satisfies every restricting selector
func (f Filters) Match(r Record) bool {
	return f.Month.Matches(r.Month) &&
		f.Diagnosis.Matches(r.PrimaryDiagnosis) &&
		f.AgeGroup.Matches(string(r.AgeGroup)) &&
		f.OrgUnit.Matches(r.OrganisationUnit)
}
