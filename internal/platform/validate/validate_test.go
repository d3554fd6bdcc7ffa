// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "full_name", "Opsdash Admin", false},
		{"empty_string", "full_name", "", true},
		{"whitespace_only", "full_name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_ModuleKey checks the lowercase-and-underscore key rule.
*/
func TestValidator_ModuleKey(t *testing.T) {
	tests := []struct {
		key     string
		isValid bool
	}{
		{"order_extractor", true},
		{"stock", true},
		{"Order_Extractor", false},
		{"order-extractor", false},
		{"labels2", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := &validate.Validator{}
			v.ModuleKey("module_key", tt.key)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_DateRange covers ordering, span and format failures.
*/
func TestValidator_DateRange(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		maxDays  int
		hasError bool
	}{
		{"same_day", "2026-03-01", "2026-03-01", 31, false},
		{"full_month", "2026-03-01", "2026-03-31", 31, false},
		{"too_long", "2026-03-01", "2026-04-02", 31, true},
		{"reversed", "2026-03-10", "2026-03-01", 31, true},
		{"bad_format", "03/01/2026", "2026-03-10", 31, true},
		{"unbounded", "2025-01-01", "2026-03-10", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			from, to := v.DateRange("start_date", tt.start, "end_date", tt.end, tt.maxDays)

			assert.Equal(t, tt.hasError, v.HasErrors())
			if !tt.hasError {
				assert.Equal(t, tt.start, from.Format(validate.DateLayout))
				assert.Equal(t, tt.end, to.Format(validate.DateLayout))
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "ops@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "ops@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("full_name", "").
		MinLen("password", "abc", 8).
		OneOf("role", "owner", "admin", "manager", "user").
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 3)
}
