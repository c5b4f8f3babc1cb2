package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTestResult(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"", "OK", "NG", "TBD"} {
		assert.True(t, ValidTestResult(v), "value %q should be valid", v)
	}
	for _, v := range []string{"ok", "PASS", "OK ", "합격"} {
		assert.False(t, ValidTestResult(v), "value %q should be rejected", v)
	}
}

func TestValidProgressStatus(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"대기중", "진행중", "완료"} {
		assert.True(t, ValidProgressStatus(v))
	}
	for _, v := range []string{"", "진행", "done", "완료 "} {
		assert.False(t, ValidProgressStatus(v), "value %q should be rejected", v)
	}
}

func TestValidReportStatus(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"대기중", "작성중", "완료"} {
		assert.True(t, ValidReportStatus(v))
	}
	assert.False(t, ValidReportStatus("진행중"), "progress-only value must not leak into report status")
	assert.False(t, ValidReportStatus(""))
}

func TestValidProjectStatusAndSeverity(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"진행중", "완료", "보류"} {
		assert.True(t, ValidProjectStatus(v))
	}
	assert.False(t, ValidProjectStatus("대기중"))

	for _, v := range []string{"High", "Medium", "Low"} {
		assert.True(t, ValidSeverity(v))
	}
	assert.False(t, ValidSeverity("high"))
	assert.False(t, ValidSeverity(""))
}

func TestTestItemApplyDefaults(t *testing.T) {
	t.Parallel()

	item := TestItem{Name: "전원 시험"}
	item.ApplyDefaults()

	assert.Equal(t, ProgressWaiting, item.ProgressStatus)
	assert.Equal(t, ReportWaiting, item.ReportStatus)
	assert.NotNil(t, item.Photos)
	assert.NotNil(t, item.Graphs)
	assert.NotNil(t, item.Attachments)

	// Existing values are left alone
	item2 := TestItem{ProgressStatus: ProgressDone, ReportStatus: ReportDrafting}
	item2.ApplyDefaults()
	assert.Equal(t, ProgressDone, item2.ProgressStatus)
	assert.Equal(t, ReportDrafting, item2.ReportStatus)
}

func TestTestItemValidate(t *testing.T) {
	t.Parallel()

	item := TestItem{Name: "전원 시험"}
	item.ApplyDefaults()
	assert.NoError(t, item.Validate())

	item.TestResult = "PASS"
	assert.ErrorIs(t, item.Validate(), ErrInvalidTestResult)

	item.TestResult = TestResultOK
	item.ProgressStatus = "시작"
	assert.ErrorIs(t, item.Validate(), ErrInvalidProgressStatus)

	item.ProgressStatus = ProgressDone
	item.ReportStatus = "done"
	assert.ErrorIs(t, item.Validate(), ErrInvalidReportStatus)
}

func TestIssueItemDefaultsAndValidate(t *testing.T) {
	t.Parallel()

	issue := IssueItem{Name: "전원부 발열"}
	issue.ApplyDefaults()
	assert.Equal(t, SeverityMedium, issue.Severity)
	assert.Equal(t, ProgressWaiting, issue.ProgressStatus)
	assert.NoError(t, issue.Validate())

	issue.Severity = "Critical"
	assert.ErrorIs(t, issue.Validate(), ErrInvalidSeverity)

	issue.Severity = SeverityHigh
	issue.ProgressStatus = "done"
	assert.ErrorIs(t, issue.Validate(), ErrInvalidProgressStatus)
}

func TestTestItemJSONShape(t *testing.T) {
	t.Parallel()

	item := TestItem{Name: "전원 시험"}
	item.ApplyDefaults()

	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// Clients rely on camelCase keys and never-null slices
	assert.Contains(t, decoded, "plannedStartDate")
	assert.Contains(t, decoded, "progressStatus")
	assert.Equal(t, []interface{}{}, decoded["photos"])
	assert.Equal(t, []interface{}{}, decoded["attachments"])
}

func TestUserPasswordNeverSerialized(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(User{Username: "alice", Password: "$2a$10$hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$10$hash")
	assert.NotContains(t, string(raw), "password")
}
