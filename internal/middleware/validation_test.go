package middleware

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "eventdash/internal/errors"
)

type sampleQuery struct {
	Month string `query:"month" validate:"omitempty,yearmonth"`
	Name  string `json:"name" validate:"omitempty,max=8"`
	Chart string `query:"chart" validate:"omitempty,chartname"`
}

func TestValidator_Struct(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		input      sampleQuery
		wantFields []string
	}{
		{name: "empty is valid", input: sampleQuery{}},
		{name: "good month", input: sampleQuery{Month: "2024-01"}},
		{name: "month 13", input: sampleQuery{Month: "2024-13"}, wantFields: []string{"month"}},
		{name: "month name", input: sampleQuery{Month: "January"}, wantFields: []string{"month"}},
		{name: "too long", input: sampleQuery{Name: strings.Repeat("x", 9)}, wantFields: []string{"name"}},
		{name: "good chart", input: sampleQuery{Chart: "los-histogram"}},
		{name: "bad chart", input: sampleQuery{Chart: "../etc"}, wantFields: []string{"chart"}},
		{
			name:       "several",
			input:      sampleQuery{Month: "24-1", Chart: "X"},
			wantFields: []string{"month", "chart"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			fields, ok := apiErr.Details.([]apierrors.ValidationError)
			require.True(t, ok)
			got := make([]string, 0, len(fields))
			for _, f := range fields {
				got = append(got, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.ElementsMatch(t, tt.wantFields, got)
		})
	}
}

func TestValidator_MonthMessage(t *testing.T) {
	err := NewValidator().Struct(sampleQuery{Month: "2024/01"})

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	fields := apiErr.Details.([]apierrors.ValidationError)
	assert.Equal(t, "month must be a month in YYYY-MM form", fields[0].Message)
}
