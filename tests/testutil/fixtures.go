// Package testutil provides shared fixtures and helpers for the testplan
// test suite.
//
// This package centralizes common test data and reusable assertions so the
// integration tests and package tests agree on what a valid project, test
// item, and issue item look like.
//
// Usage:
//
//	import "github.com/testlab/testplan-backend-service/tests/testutil"
//
//	func TestMyFeature(t *testing.T) {
//	    project := testutil.SampleProjectRequest()
//	    testutil.AssertCanonicalDate(t, project["startDate"].(string), "startDate")
//	    // ... test implementation ...
//	}
package testutil

// Common test credentials and boundary data
const (
	ValidUsername = "testuser"
	ValidPassword = "secret123"

	// Below the 3-character minimum
	ShortUsername = "ab"
	ShortPassword = "12345"

	EmptyString = ""
)

// Enum value sets accepted by the API
var (
	TestResults      = []string{"", "OK", "NG", "TBD"}
	ProgressStatuses = []string{"대기중", "진행중", "완료"}
	ReportStatuses   = []string{"대기중", "작성중", "완료"}
	ProjectStatuses  = []string{"진행중", "완료", "보류"}
	Severities       = []string{"High", "Medium", "Low"}
)

// SampleProjectRequest returns a valid project create payload
func SampleProjectRequest() map[string]interface{} {
	return map[string]interface{}{
		"name":        "수질계측기 정기시험",
		"description": "2024년 상반기 정기 시험 계획",
		"status":      "진행중",
		"startDate":   "2024-03-01",
		"endDate":     "2024-06-30",
	}
}

// SampleTestItemRequest returns a valid test item create payload
func SampleTestItemRequest() map[string]interface{} {
	return map[string]interface{}{
		"name":             "전원 시험",
		"testCondition":    "정격 입력 전압",
		"judgmentCriteria": "출력 전압 ±5% 이내",
		"plannedStartDate": "2024-03-01",
		"plannedEndDate":   "2024-03-10",
		"testResult":       "OK",
		"progressStatus":   "진행중",
	}
}

// SampleIssueItemRequest returns a valid issue item create payload
func SampleIssueItemRequest() map[string]interface{} {
	return map[string]interface{}{
		"name":        "전원부 발열",
		"description": "장시간 동작 시 전원부 온도 상승",
		"severity":    "High",
	}
}
