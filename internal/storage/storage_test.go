package storage

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlab/testplan-backend-service/internal/model"
)

// The behavioral contract is shared by every backend, so the same suite
// runs against each constructor.
func backends(t *testing.T) map[string]func(t *testing.T) Storage {
	return map[string]func(t *testing.T) Storage{
		"memory": func(t *testing.T) Storage {
			return NewMemoryStorage()
		},
		"json": func(t *testing.T) Storage {
			store, err := NewJSONStorage(filepath.Join(t.TempDir(), "data.json"))
			require.NoError(t, err)
			return store
		},
	}
}

func newUser(t *testing.T, store Storage, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Password: "hashed"}
	require.NoError(t, store.CreateUser(user))
	require.NotEqual(t, uuid.Nil, user.ID)
	return user
}

func newProject(t *testing.T, store Storage, userID uuid.UUID, name string) *model.Project {
	t.Helper()
	project := &model.Project{UserID: userID, Name: name, Status: model.ProjectActive}
	require.NoError(t, store.CreateProject(project))
	return project
}

func newTestItem(t *testing.T, store Storage, projectID uuid.UUID, name string) *model.TestItem {
	t.Helper()
	item := &model.TestItem{ProjectID: projectID, Name: name}
	item.ApplyDefaults()
	require.NoError(t, store.CreateTestItem(item))
	return item
}

func TestStorageUsers(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			user := newUser(t, store, "alice")
			assert.NotEmpty(t, user.CreatedAt)

			got, err := store.GetUser(user.ID)
			require.NoError(t, err)
			assert.Equal(t, "alice", got.Username)

			got, err = store.GetUserByUsername("alice")
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)

			_, err = store.GetUserByUsername("nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			err = store.CreateUser(&model.User{Username: "alice", Password: "other"})
			assert.ErrorIs(t, err, ErrUsernameTaken)
		})
	}
}

func TestStorageProjectCRUD(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			user := newUser(t, store, "alice")
			other := newUser(t, store, "bob")

			p1 := newProject(t, store, user.ID, "모듈 A")
			p2 := newProject(t, store, user.ID, "모듈 B")
			newProject(t, store, other.ID, "모듈 C")

			assert.NotEmpty(t, p1.LastUpdatedAt)

			// Listing is scoped to the user and keeps creation order
			projects, err := store.GetProjectsByUser(user.ID)
			require.NoError(t, err)
			require.Len(t, projects, 2)
			assert.Equal(t, "모듈 A", projects[0].Name)
			assert.Equal(t, "모듈 B", projects[1].Name)

			p1.Description = "1차 시험"
			require.NoError(t, store.UpdateProject(p1))
			got, err := store.GetProject(p1.ID)
			require.NoError(t, err)
			assert.Equal(t, "1차 시험", got.Description)

			require.NoError(t, store.DeleteProject(p2.ID))
			_, err = store.GetProject(p2.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.UpdateProject(p2), ErrNotFound)
			assert.ErrorIs(t, store.DeleteProject(p2.ID), ErrNotFound)
		})
	}
}

func TestStorageTestItemCRUD(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			user := newUser(t, store, "alice")
			project := newProject(t, store, user.ID, "모듈 A")

			i1 := newTestItem(t, store, project.ID, "전원 시험")
			i2 := newTestItem(t, store, project.ID, "진동 시험")

			items, err := store.GetTestItemsByProject(project.ID)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "전원 시험", items[0].Name)
			assert.Equal(t, "진동 시험", items[1].Name)

			all, err := store.GetAllTestItems()
			require.NoError(t, err)
			assert.Len(t, all, 2)

			i1.TestResult = model.TestResultOK
			i1.Photos = append(i1.Photos, "/uploads/1.png")
			require.NoError(t, store.UpdateTestItem(i1))

			got, err := store.GetTestItem(i1.ID)
			require.NoError(t, err)
			assert.Equal(t, "OK", got.TestResult)
			assert.Equal(t, []string{"/uploads/1.png"}, got.Photos)

			require.NoError(t, store.DeleteTestItem(i2.ID))
			_, err = store.GetTestItem(i2.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.UpdateTestItem(i2), ErrNotFound)
		})
	}
}

func TestStorageIssueItemCRUD(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			user := newUser(t, store, "alice")
			project := newProject(t, store, user.ID, "모듈 A")

			issue := &model.IssueItem{ProjectID: project.ID, Name: "전원부 발열"}
			issue.ApplyDefaults()
			require.NoError(t, store.CreateIssueItem(issue))
			assert.Equal(t, model.SeverityMedium, issue.Severity)

			issues, err := store.GetIssueItemsByProject(project.ID)
			require.NoError(t, err)
			require.Len(t, issues, 1)

			issue.ProgressStatus = model.ProgressDone
			require.NoError(t, store.UpdateIssueItem(issue))
			got, err := store.GetIssueItem(issue.ID)
			require.NoError(t, err)
			assert.Equal(t, model.ProgressDone, got.ProgressStatus)

			require.NoError(t, store.DeleteIssueItem(issue.ID))
			_, err = store.GetIssueItem(issue.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStorageDeleteProjectCascades(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			user := newUser(t, store, "alice")
			doomed := newProject(t, store, user.ID, "삭제 대상")
			kept := newProject(t, store, user.ID, "유지 대상")

			item := newTestItem(t, store, doomed.ID, "전원 시험")
			keptItem := newTestItem(t, store, kept.ID, "진동 시험")

			issue := &model.IssueItem{ProjectID: doomed.ID, Name: "이슈"}
			issue.ApplyDefaults()
			require.NoError(t, store.CreateIssueItem(issue))

			require.NoError(t, store.DeleteProject(doomed.ID))

			_, err := store.GetTestItem(item.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.GetIssueItem(issue.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			// The sibling project and its items survive
			_, err = store.GetProject(kept.ID)
			require.NoError(t, err)
			_, err = store.GetTestItem(keptItem.ID)
			require.NoError(t, err)
		})
	}
}

func TestMemoryStorageDefensiveCopies(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	defer store.Close()

	user := newUser(t, store, "alice")
	project := newProject(t, store, user.ID, "모듈 A")
	item := newTestItem(t, store, project.ID, "전원 시험")

	got, err := store.GetTestItem(item.ID)
	require.NoError(t, err)

	// Mutating a returned record must not leak into the store
	got.Name = "변조"
	got.Photos = append(got.Photos, "/uploads/evil.png")

	fresh, err := store.GetTestItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "전원 시험", fresh.Name)
	assert.Empty(t, fresh.Photos)
}
