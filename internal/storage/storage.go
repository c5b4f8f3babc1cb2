package storage

import (
	"errors"

	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// Storage defines the persistence contract for users, projects and their
// owned items. List operations return records in insertion order. Item
// writes touch the owning project's lastUpdatedAt.
type Storage interface {
	// Users
	GetUser(id uuid.UUID) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	CreateUser(user *model.User) error

	// Projects
	GetProjectsByUser(userID uuid.UUID) ([]model.Project, error)
	GetProject(id uuid.UUID) (*model.Project, error)
	CreateProject(project *model.Project) error
	UpdateProject(project *model.Project) error
	// DeleteProject removes the project and cascades to its test and
	// issue items.
	DeleteProject(id uuid.UUID) error

	// Test items
	GetAllTestItems() ([]model.TestItem, error)
	GetTestItemsByProject(projectID uuid.UUID) ([]model.TestItem, error)
	GetTestItem(id uuid.UUID) (*model.TestItem, error)
	CreateTestItem(item *model.TestItem) error
	UpdateTestItem(item *model.TestItem) error
	DeleteTestItem(id uuid.UUID) error

	// Issue items
	GetIssueItemsByProject(projectID uuid.UUID) ([]model.IssueItem, error)
	GetIssueItem(id uuid.UUID) (*model.IssueItem, error)
	CreateIssueItem(item *model.IssueItem) error
	UpdateIssueItem(item *model.IssueItem) error
	DeleteIssueItem(id uuid.UUID) error

	// Close releases any underlying resources.
	Close() error
}
