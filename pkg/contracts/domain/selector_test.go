package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeChoice(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "plain", value: "Flu", want: "Flu"},
		{name: "blank", value: "", want: BlankChoice},
		{name: "any label", value: AnyDiagnosisLabel, want: `\All Diagnoses`},
		{name: "blank marker", value: BlankChoice, want: `\(blank)`},
		{name: "leading escape", value: `\x`, want: `\\x`},
		{name: "other dimension label", value: AnyOrgUnitLabel, want: AnyOrgUnitLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeChoice(tt.value, AnyDiagnosisLabel))
		})
	}
}

func TestDecodeChoice(t *testing.T) {
	tests := []struct {
		name   string
		choice string
		want   Selector
	}{
		{name: "empty", choice: "", want: Any()},
		{name: "whitespace", choice: "  ", want: Any()},
		{name: "any label", choice: AnyDiagnosisLabel, want: Any()},
		{name: "padded any label", choice: " All Diagnoses ", want: Any()},
		{name: "blank", choice: BlankChoice, want: Only("")},
		{name: "escaped any label", choice: `\All Diagnoses`, want: Only(AnyDiagnosisLabel)},
		{name: "escaped blank marker", choice: `\(blank)`, want: Only(BlankChoice)},
		{name: "plain", choice: " Flu ", want: Only("Flu")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeChoice(tt.choice, AnyDiagnosisLabel))
		})
	}
}

func TestChoiceRoundTrip(t *testing.T) {
	values := []string{"", "Flu", AnyDiagnosisLabel, BlankChoice, `\`, `\\`, `\x`, strings.Repeat("z", 300)}

	for _, v := range values {
		assert.Equal(t, Only(v), DecodeChoice(EncodeChoice(v, AnyDiagnosisLabel), AnyDiagnosisLabel), "value %q", v)
	}
}

func TestSelectorDomain_MarshalJSON(t *testing.T) {
	d := SelectorDomain{Key: "diagnosis", Label: "Select Diagnosis", AnyLabel: AnyDiagnosisLabel, Values: []string{"", "Flu"}}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"key": "diagnosis",
		"label": "Select Diagnosis",
		"any_label": "All Diagnoses",
		"values": ["", "Flu"],
		"choices": ["All Diagnoses", "(blank)", "Flu"]
	}`, string(data))
}
