// tests/integration-tests/002_mysql_storage_test.go
package integration_tests_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/tests/testutil"
)

// TestMySQLStorageRoundTrip exercises the MySQL backend against a real
// server. It shares the database with other runs, so every record it
// creates carries a unique name; projects and items are deleted at the
// end, the uniquely named user row stays behind.
func TestMySQLStorageRoundTrip(t *testing.T) {
	// Probe availability first; skips when no test database is reachable.
	probe := testutil.SetupTestDB(t)
	testutil.TeardownTestDB(t, probe)

	store, err := storage.NewMySQLStorage(testutil.GetTestDSN())
	require.NoError(t, err)
	defer store.Close()

	user := &model.User{
		Username: fmt.Sprintf("it-%s", uuid.NewString()[:8]),
		Password: "$2a$10$abcdefghijklmnopqrstuvwxyz012345678901234567890123456",
	}
	require.NoError(t, store.CreateUser(user))

	project := &model.Project{
		UserID:    user.ID,
		Name:      "MySQL 왕복 시험",
		Status:    "진행중",
		StartDate: "2024-03-01",
	}
	require.NoError(t, store.CreateProject(project))
	defer func() {
		assert.NoError(t, store.DeleteProject(project.ID))
	}()

	item := &model.TestItem{
		ProjectID:      project.ID,
		Name:           "전원 시험",
		TestResult:     "OK",
		ProgressStatus: "진행중",
		ReportStatus:   "대기중",
		Photos:         []string{"/uploads/1-aaaa.png"},
		Attachments:    []model.Attachment{{URL: "/uploads/2-bbbb.pdf", Filename: "보고서.pdf", Size: 1024}},
	}
	require.NoError(t, store.CreateTestItem(item))

	got, err := store.GetTestItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.Photos, got.Photos, "JSON columns must round trip")
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "보고서.pdf", got.Attachments[0].Filename)
	testutil.AssertValidEnum(t, got.TestResult, testutil.TestResults, "testResult")

	issue := &model.IssueItem{
		ProjectID:      project.ID,
		Name:           "전원부 발열",
		Severity:       "High",
		ProgressStatus: "대기중",
	}
	require.NoError(t, store.CreateIssueItem(issue))

	issues, err := store.GetIssueItemsByProject(project.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	// Cascade check: deleting the project must remove both item kinds
	require.NoError(t, store.DeleteProject(project.ID))
	_, err = store.GetTestItem(item.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetIssueItem(issue.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Recreate so the deferred cleanup delete stays a no-op error-free path
	require.NoError(t, store.CreateProject(project))
}
