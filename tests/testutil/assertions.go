// Custom assertion helpers for edge case testing.
//
// This file provides specialized assertion functions for boundary value
// testing, enum validation, and the canonical date format used across the
// API.
//
// Usage:
//
//	import "github.com/testlab/testplan-backend-service/tests/testutil"
//
//	func TestEdgeCase(t *testing.T) {
//	    testutil.AssertCanonicalDate(t, item.PlannedStartDate, "plannedStartDate")
//	    testutil.AssertValidEnum(t, item.TestResult, testutil.TestResults, "testResult")
//	}
package testutil

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

// AssertCanonicalDate verifies that a string is either empty or a real
// calendar date in yyyy-mm-dd form
func AssertCanonicalDate(t *testing.T, value string, fieldName string) bool {
	t.Helper()
	if value == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", value)
	return assert.NoError(t, err, "%s should be empty or yyyy-mm-dd, got %q", fieldName, value)
}

// AssertValidEnum verifies that a string value is one of the allowed enum values
func AssertValidEnum(t *testing.T, value string, validValues []string, fieldName string) bool {
	t.Helper()
	for _, valid := range validValues {
		if value == valid {
			return true
		}
	}
	assert.Failf(t, "invalid enum value", "%s should be one of %v, got %q", fieldName, validValues, value)
	return false
}

// AssertNonEmpty verifies that a string is not empty
func AssertNonEmpty(t *testing.T, value string, fieldName string) bool {
	t.Helper()
	return assert.NotEmpty(t, value, "%s should not be empty", fieldName)
}

// AssertMaxRunes verifies that a string does not exceed the maximum length.
// Lengths are counted in runes because names are usually Korean.
func AssertMaxRunes(t *testing.T, value string, maxRunes int, fieldName string) bool {
	t.Helper()
	return assert.LessOrEqual(t, utf8.RuneCountInString(value), maxRunes,
		"%s should not exceed %d characters", fieldName, maxRunes)
}

// AssertUploadURL verifies that a stored file reference points under the
// upload route and carries no path traversal
func AssertUploadURL(t *testing.T, value string, fieldName string) bool {
	t.Helper()
	if !assert.True(t, strings.HasPrefix(value, "/uploads/"), "%s should start with /uploads/, got %q", fieldName, value) {
		return false
	}
	return assert.NotContains(t, value, "..", "%s should not contain traversal segments", fieldName)
}

// AssertMapHasKey verifies that a map contains a required key
func AssertMapHasKey(t *testing.T, m map[string]interface{}, key string) bool {
	t.Helper()
	_, exists := m[key]
	return assert.True(t, exists, "Map should contain key '%s'", key)
}

// AssertMapKeyNotNil verifies that a map key exists and its value is not nil
func AssertMapKeyNotNil(t *testing.T, m map[string]interface{}, key string) bool {
	t.Helper()
	value, exists := m[key]
	if !assert.True(t, exists, "Map should contain key '%s'", key) {
		return false
	}
	return assert.NotNil(t, value, "Map key '%s' should not have nil value", key)
}
