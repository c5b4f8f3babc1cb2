package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/dates"
	"github.com/testlab/testplan-backend-service/internal/model"
)

// jsonData is the whole-store document serialized to disk. Slices keep
// insertion order, so listings stay stable across restarts.
type jsonData struct {
	Users      []model.User      `json:"users"`
	Projects   []model.Project   `json:"projects"`
	TestItems  []model.TestItem  `json:"testItems"`
	IssueItems []model.IssueItem `json:"issueItems"`
}

// JSONStorage persists the whole store as a single JSON file. Every write
// rewrites the file via a temp-file-and-rename so a crash mid-write never
// leaves a truncated store, and a flock guards against a second process
// opening the same file.
type JSONStorage struct {
	mu       sync.RWMutex
	filePath string
	fileLock *flock.Flock
	data     jsonData
}

const lockAcquireTimeout = 5 * time.Second

// NewJSONStorage opens (or creates) the JSON store at path.
func NewJSONStorage(path string) (*JSONStorage, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	lock := flock.New(absPath + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), lockAcquireTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire storage lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("storage file %s is locked by another process", absPath)
	}

	s := &JSONStorage{
		filePath: absPath,
		fileLock: lock,
	}

	if err := s.load(); err != nil {
		lock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *JSONStorage) load() error {
	raw, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = jsonData{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return fmt.Errorf("failed to parse storage file %s: %w", s.filePath, err)
	}
	return nil
}

// save rewrites the whole store. Caller must hold the write lock.
func (s *JSONStorage) save() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage data: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write storage temp file: %w", err)
	}
	// Rename is atomic on POSIX filesystems.
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

func (s *JSONStorage) touchProject(projectID uuid.UUID) {
	for i := range s.data.Projects {
		if s.data.Projects[i].ID == projectID {
			s.data.Projects[i].LastUpdatedAt = dates.Today()
			return
		}
	}
}

// GetUser retrieves a user by id.
func (s *JSONStorage) GetUser(id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Users {
		if s.data.Users[i].ID == id {
			c := s.data.Users[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByUsername retrieves a user by username.
func (s *JSONStorage) GetUserByUsername(username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Users {
		if s.data.Users[i].Username == username {
			c := s.data.Users[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// CreateUser stores a new user, rejecting duplicate usernames.
func (s *JSONStorage) CreateUser(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Users {
		if s.data.Users[i].Username == user.Username {
			return ErrUsernameTaken
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt == "" {
		user.CreatedAt = dates.Today()
	}

	s.data.Users = append(s.data.Users, *user)
	return s.save()
}

// GetProjectsByUser lists a user's projects in creation order.
func (s *JSONStorage) GetProjectsByUser(userID uuid.UUID) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := []model.Project{}
	for i := range s.data.Projects {
		if s.data.Projects[i].UserID == userID {
			projects = append(projects, s.data.Projects[i])
		}
	}
	return projects, nil
}

// GetProject retrieves a project by id.
func (s *JSONStorage) GetProject(id uuid.UUID) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Projects {
		if s.data.Projects[i].ID == id {
			c := s.data.Projects[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// CreateProject stores a new project.
func (s *JSONStorage) CreateProject(project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.LastUpdatedAt = dates.Today()
	s.data.Projects = append(s.data.Projects, *project)
	return s.save()
}

// UpdateProject replaces a stored project.
func (s *JSONStorage) UpdateProject(project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Projects {
		if s.data.Projects[i].ID == project.ID {
			project.LastUpdatedAt = dates.Today()
			s.data.Projects[i] = *project
			return s.save()
		}
	}
	return ErrNotFound
}

// DeleteProject removes a project and every item it owns.
func (s *JSONStorage) DeleteProject(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.data.Projects {
		if s.data.Projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	kept := s.data.TestItems[:0]
	for _, item := range s.data.TestItems {
		if item.ProjectID != id {
			kept = append(kept, item)
		}
	}
	s.data.TestItems = kept

	keptIssues := s.data.IssueItems[:0]
	for _, item := range s.data.IssueItems {
		if item.ProjectID != id {
			keptIssues = append(keptIssues, item)
		}
	}
	s.data.IssueItems = keptIssues

	s.data.Projects = append(s.data.Projects[:idx], s.data.Projects[idx+1:]...)
	return s.save()
}

// GetAllTestItems lists every stored test item in creation order.
func (s *JSONStorage) GetAllTestItems() ([]model.TestItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.TestItem, 0, len(s.data.TestItems))
	for i := range s.data.TestItems {
		items = append(items, *copyTestItem(&s.data.TestItems[i]))
	}
	return items, nil
}

// GetTestItemsByProject lists a project's test items in creation order.
func (s *JSONStorage) GetTestItemsByProject(projectID uuid.UUID) ([]model.TestItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []model.TestItem{}
	for i := range s.data.TestItems {
		if s.data.TestItems[i].ProjectID == projectID {
			items = append(items, *copyTestItem(&s.data.TestItems[i]))
		}
	}
	return items, nil
}

// GetTestItem retrieves a test item by id.
func (s *JSONStorage) GetTestItem(id uuid.UUID) (*model.TestItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.TestItems {
		if s.data.TestItems[i].ID == id {
			return copyTestItem(&s.data.TestItems[i]), nil
		}
	}
	return nil, ErrNotFound
}

// CreateTestItem stores a new test item and touches the owning project.
func (s *JSONStorage) CreateTestItem(item *model.TestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.data.TestItems = append(s.data.TestItems, *copyTestItem(item))
	s.touchProject(item.ProjectID)
	return s.save()
}

// UpdateTestItem replaces a stored test item and touches the owning project.
func (s *JSONStorage) UpdateTestItem(item *model.TestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.TestItems {
		if s.data.TestItems[i].ID == item.ID {
			s.data.TestItems[i] = *copyTestItem(item)
			s.touchProject(item.ProjectID)
			return s.save()
		}
	}
	return ErrNotFound
}

// DeleteTestItem removes a test item and touches the owning project.
func (s *JSONStorage) DeleteTestItem(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.TestItems {
		if s.data.TestItems[i].ID == id {
			projectID := s.data.TestItems[i].ProjectID
			s.data.TestItems = append(s.data.TestItems[:i], s.data.TestItems[i+1:]...)
			s.touchProject(projectID)
			return s.save()
		}
	}
	return ErrNotFound
}

// GetIssueItemsByProject lists a project's issue items in creation order.
func (s *JSONStorage) GetIssueItemsByProject(projectID uuid.UUID) ([]model.IssueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []model.IssueItem{}
	for i := range s.data.IssueItems {
		if s.data.IssueItems[i].ProjectID == projectID {
			items = append(items, *copyIssueItem(&s.data.IssueItems[i]))
		}
	}
	return items, nil
}

// GetIssueItem retrieves an issue item by id.
func (s *JSONStorage) GetIssueItem(id uuid.UUID) (*model.IssueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.IssueItems {
		if s.data.IssueItems[i].ID == id {
			return copyIssueItem(&s.data.IssueItems[i]), nil
		}
	}
	return nil, ErrNotFound
}

// CreateIssueItem stores a new issue item and touches the owning project.
func (s *JSONStorage) CreateIssueItem(item *model.IssueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.data.IssueItems = append(s.data.IssueItems, *copyIssueItem(item))
	s.touchProject(item.ProjectID)
	return s.save()
}

// UpdateIssueItem replaces a stored issue item and touches the owning project.
func (s *JSONStorage) UpdateIssueItem(item *model.IssueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.IssueItems {
		if s.data.IssueItems[i].ID == item.ID {
			s.data.IssueItems[i] = *copyIssueItem(item)
			s.touchProject(item.ProjectID)
			return s.save()
		}
	}
	return ErrNotFound
}

// DeleteIssueItem removes an issue item and touches the owning project.
func (s *JSONStorage) DeleteIssueItem(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.IssueItems {
		if s.data.IssueItems[i].ID == id {
			projectID := s.data.IssueItems[i].ProjectID
			s.data.IssueItems = append(s.data.IssueItems[:i], s.data.IssueItems[i+1:]...)
			s.touchProject(projectID)
			return s.save()
		}
	}
	return ErrNotFound
}

// Close releases the process lock on the storage file.
func (s *JSONStorage) Close() error {
	return s.fileLock.Unlock()
}
