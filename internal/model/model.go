package model

import (
	"errors"

	"github.com/google/uuid"
)

// Status enums. The sets are closed: values outside them are rejected at
// every boundary (create, patch, import) rather than silently defaulted.
const (
	TestResultNone = ""
	TestResultOK   = "OK"
	TestResultNG   = "NG"
	TestResultTBD  = "TBD"

	ProgressWaiting    = "대기중"
	ProgressInProgress = "진행중"
	ProgressDone       = "완료"

	ReportWaiting  = "대기중"
	ReportDrafting = "작성중"
	ReportDone     = "완료"

	ProjectActive = "진행중"
	ProjectDone   = "완료"
	ProjectOnHold = "보류"

	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

var (
	ErrInvalidTestResult     = errors.New("invalid test result value")
	ErrInvalidProgressStatus = errors.New("invalid progress status value")
	ErrInvalidReportStatus   = errors.New("invalid report status value")
	ErrInvalidProjectStatus  = errors.New("invalid project status value")
	ErrInvalidSeverity       = errors.New("invalid severity value")
)

// ValidTestResult reports whether v is an allowed test result.
// The empty string is a legal value (result not yet recorded).
func ValidTestResult(v string) bool {
	switch v {
	case TestResultNone, TestResultOK, TestResultNG, TestResultTBD:
		return true
	}
	return false
}

// ValidProgressStatus reports whether v is an allowed progress status.
// Unlike the test result, the empty string is not a member of the set.
func ValidProgressStatus(v string) bool {
	switch v {
	case ProgressWaiting, ProgressInProgress, ProgressDone:
		return true
	}
	return false
}

// ValidReportStatus reports whether v is an allowed report status.
func ValidReportStatus(v string) bool {
	switch v {
	case ReportWaiting, ReportDrafting, ReportDone:
		return true
	}
	return false
}

// ValidProjectStatus reports whether v is an allowed project status.
func ValidProjectStatus(v string) bool {
	switch v {
	case ProjectActive, ProjectDone, ProjectOnHold:
		return true
	}
	return false
}

// ValidSeverity reports whether v is an allowed issue severity.
func ValidSeverity(v string) bool {
	switch v {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// User is an account that owns projects.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"` // bcrypt hash
	CreatedAt string    `json:"createdAt" db:"created_at"`
}

// Project is the top-level container for test and issue items.
type Project struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	UserID                 uuid.UUID `json:"userId" db:"user_id"`
	Name                   string    `json:"name" db:"name"`
	Description            string    `json:"description" db:"description"`
	ProductSpec            string    `json:"productSpec" db:"product_spec"`
	ProductSpecDescription string    `json:"productSpecDescription" db:"product_spec_description"`
	ProductImage           string    `json:"productImage" db:"product_image"`
	ScheduleImage          string    `json:"scheduleImage" db:"schedule_image"`
	ScheduleDescription    string    `json:"scheduleDescription" db:"schedule_description"`
	StartDate              string    `json:"startDate" db:"start_date"`
	EndDate                string    `json:"endDate" db:"end_date"`
	Status                 string    `json:"status" db:"status"`
	LastUpdatedAt          string    `json:"lastUpdatedAt" db:"last_updated_at"`
}

// Attachment is an uploaded file reference kept on an item.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// TestItem is one row of a project's test plan.
// Date fields hold the canonical YYYY-MM-DD form or are empty.
type TestItem struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	ProjectID        uuid.UUID    `json:"projectId" db:"project_id"`
	Name             string       `json:"name" db:"name"`
	PlannedStartDate string       `json:"plannedStartDate" db:"planned_start_date"`
	PlannedEndDate   string       `json:"plannedEndDate" db:"planned_end_date"`
	ActualEndDate    string       `json:"actualEndDate" db:"actual_end_date"`
	TestCondition    string       `json:"testCondition" db:"test_condition"`
	JudgmentCriteria string       `json:"judgmentCriteria" db:"judgment_criteria"`
	TestData         string       `json:"testData" db:"test_data"`
	TestResult       string       `json:"testResult" db:"test_result"`
	ProgressStatus   string       `json:"progressStatus" db:"progress_status"`
	ReportStatus     string       `json:"reportStatus" db:"report_status"`
	Notes            string       `json:"notes" db:"notes"`
	Photos           []string     `json:"photos" db:"-"`
	Graphs           []string     `json:"graphs" db:"-"`
	Attachments      []Attachment `json:"attachments" db:"-"`
}

// ApplyDefaults fills the enum and slice fields the way the create path does:
// absent progress/report values get their waiting default, nil slices become
// empty so they never serialize as null.
func (t *TestItem) ApplyDefaults() {
	if t.ProgressStatus == "" {
		t.ProgressStatus = ProgressWaiting
	}
	if t.ReportStatus == "" {
		t.ReportStatus = ReportWaiting
	}
	if t.Photos == nil {
		t.Photos = []string{}
	}
	if t.Graphs == nil {
		t.Graphs = []string{}
	}
	if t.Attachments == nil {
		t.Attachments = []Attachment{}
	}
}

// Validate checks the enum invariants after defaults have been applied.
func (t *TestItem) Validate() error {
	if !ValidTestResult(t.TestResult) {
		return ErrInvalidTestResult
	}
	if !ValidProgressStatus(t.ProgressStatus) {
		return ErrInvalidProgressStatus
	}
	if !ValidReportStatus(t.ReportStatus) {
		return ErrInvalidReportStatus
	}
	return nil
}

// IssueItem is a defect record attached to a project.
type IssueItem struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	ProjectID      uuid.UUID    `json:"projectId" db:"project_id"`
	Name           string       `json:"name" db:"name"`
	Description    string       `json:"description" db:"description"`
	Severity       string       `json:"severity" db:"severity"`
	ProgressStatus string       `json:"progressStatus" db:"progress_status"`
	Notes          string       `json:"notes" db:"notes"`
	Photos         []string     `json:"photos" db:"-"`
	Graphs         []string     `json:"graphs" db:"-"`
	Attachments    []Attachment `json:"attachments" db:"-"`
}

// ApplyDefaults mirrors TestItem.ApplyDefaults for issue records.
func (i *IssueItem) ApplyDefaults() {
	if i.Severity == "" {
		i.Severity = SeverityMedium
	}
	if i.ProgressStatus == "" {
		i.ProgressStatus = ProgressWaiting
	}
	if i.Photos == nil {
		i.Photos = []string{}
	}
	if i.Graphs == nil {
		i.Graphs = []string{}
	}
	if i.Attachments == nil {
		i.Attachments = []Attachment{}
	}
}

// Validate checks the enum invariants after defaults have been applied.
func (i *IssueItem) Validate() error {
	if !ValidSeverity(i.Severity) {
		return ErrInvalidSeverity
	}
	if !ValidProgressStatus(i.ProgressStatus) {
		return ErrInvalidProgressStatus
	}
	return nil
}
