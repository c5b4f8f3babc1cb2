package storage

import (
	"sync"

	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/dates"
	"github.com/testlab/testplan-backend-service/internal/model"
)

// MemoryStorage provides an in-memory implementation of Storage.
// Insertion order is tracked separately per record type so listings are
// stable, and every read returns a defensive copy.
type MemoryStorage struct {
	mu sync.RWMutex

	users      map[uuid.UUID]*model.User
	userOrder  []uuid.UUID
	projects   map[uuid.UUID]*model.Project
	projOrder  []uuid.UUID
	testItems  map[uuid.UUID]*model.TestItem
	testOrder  []uuid.UUID
	issueItems map[uuid.UUID]*model.IssueItem
	issueOrder []uuid.UUID
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:      make(map[uuid.UUID]*model.User),
		projects:   make(map[uuid.UUID]*model.Project),
		testItems:  make(map[uuid.UUID]*model.TestItem),
		issueItems: make(map[uuid.UUID]*model.IssueItem),
	}
}

func copyTestItem(item *model.TestItem) *model.TestItem {
	c := *item
	c.Photos = append([]string(nil), item.Photos...)
	c.Graphs = append([]string(nil), item.Graphs...)
	c.Attachments = append([]model.Attachment(nil), item.Attachments...)
	return &c
}

func copyIssueItem(item *model.IssueItem) *model.IssueItem {
	c := *item
	c.Photos = append([]string(nil), item.Photos...)
	c.Graphs = append([]string(nil), item.Graphs...)
	c.Attachments = append([]model.Attachment(nil), item.Attachments...)
	return &c
}

func removeID(order []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// touchProjectLocked stamps the owning project when an item changes.
// Caller must hold the write lock.
func (m *MemoryStorage) touchProjectLocked(projectID uuid.UUID) {
	if p, ok := m.projects[projectID]; ok {
		p.LastUpdatedAt = dates.Today()
	}
}

// GetUser retrieves a user by id.
func (m *MemoryStorage) GetUser(id uuid.UUID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *user
	return &c, nil
}

// GetUserByUsername retrieves a user by username.
func (m *MemoryStorage) GetUserByUsername(username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.userOrder {
		if m.users[id].Username == username {
			c := *m.users[id]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// CreateUser stores a new user, rejecting duplicate usernames.
func (m *MemoryStorage) CreateUser(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.userOrder {
		if m.users[id].Username == user.Username {
			return ErrUsernameTaken
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt == "" {
		user.CreatedAt = dates.Today()
	}

	c := *user
	m.users[user.ID] = &c
	m.userOrder = append(m.userOrder, user.ID)
	return nil
}

// GetProjectsByUser lists a user's projects in creation order.
func (m *MemoryStorage) GetProjectsByUser(userID uuid.UUID) ([]model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := []model.Project{}
	for _, id := range m.projOrder {
		if m.projects[id].UserID == userID {
			projects = append(projects, *m.projects[id])
		}
	}
	return projects, nil
}

// GetProject retrieves a project by id.
func (m *MemoryStorage) GetProject(id uuid.UUID) (*model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	project, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *project
	return &c, nil
}

// CreateProject stores a new project.
func (m *MemoryStorage) CreateProject(project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.LastUpdatedAt = dates.Today()

	c := *project
	m.projects[project.ID] = &c
	m.projOrder = append(m.projOrder, project.ID)
	return nil
}

// UpdateProject replaces a stored project.
func (m *MemoryStorage) UpdateProject(project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[project.ID]; !ok {
		return ErrNotFound
	}
	project.LastUpdatedAt = dates.Today()
	c := *project
	m.projects[project.ID] = &c
	return nil
}

// DeleteProject removes a project and every item it owns.
func (m *MemoryStorage) DeleteProject(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}

	for _, itemID := range append([]uuid.UUID(nil), m.testOrder...) {
		if m.testItems[itemID].ProjectID == id {
			delete(m.testItems, itemID)
			m.testOrder = removeID(m.testOrder, itemID)
		}
	}
	for _, itemID := range append([]uuid.UUID(nil), m.issueOrder...) {
		if m.issueItems[itemID].ProjectID == id {
			delete(m.issueItems, itemID)
			m.issueOrder = removeID(m.issueOrder, itemID)
		}
	}

	delete(m.projects, id)
	m.projOrder = removeID(m.projOrder, id)
	return nil
}

// GetAllTestItems lists every stored test item in creation order.
func (m *MemoryStorage) GetAllTestItems() ([]model.TestItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []model.TestItem{}
	for _, id := range m.testOrder {
		items = append(items, *copyTestItem(m.testItems[id]))
	}
	return items, nil
}

// GetTestItemsByProject lists a project's test items in creation order.
func (m *MemoryStorage) GetTestItemsByProject(projectID uuid.UUID) ([]model.TestItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []model.TestItem{}
	for _, id := range m.testOrder {
		if m.testItems[id].ProjectID == projectID {
			items = append(items, *copyTestItem(m.testItems[id]))
		}
	}
	return items, nil
}

// GetTestItem retrieves a test item by id.
func (m *MemoryStorage) GetTestItem(id uuid.UUID) (*model.TestItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.testItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTestItem(item), nil
}

// CreateTestItem stores a new test item and touches the owning project.
func (m *MemoryStorage) CreateTestItem(item *model.TestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.testItems[item.ID] = copyTestItem(item)
	m.testOrder = append(m.testOrder, item.ID)
	m.touchProjectLocked(item.ProjectID)
	return nil
}

// UpdateTestItem replaces a stored test item and touches the owning project.
func (m *MemoryStorage) UpdateTestItem(item *model.TestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.testItems[item.ID]; !ok {
		return ErrNotFound
	}
	m.testItems[item.ID] = copyTestItem(item)
	m.touchProjectLocked(item.ProjectID)
	return nil
}

// DeleteTestItem removes a test item and touches the owning project.
func (m *MemoryStorage) DeleteTestItem(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.testItems[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.testItems, id)
	m.testOrder = removeID(m.testOrder, id)
	m.touchProjectLocked(item.ProjectID)
	return nil
}

// GetIssueItemsByProject lists a project's issue items in creation order.
func (m *MemoryStorage) GetIssueItemsByProject(projectID uuid.UUID) ([]model.IssueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []model.IssueItem{}
	for _, id := range m.issueOrder {
		if m.issueItems[id].ProjectID == projectID {
			items = append(items, *copyIssueItem(m.issueItems[id]))
		}
	}
	return items, nil
}

// GetIssueItem retrieves an issue item by id.
func (m *MemoryStorage) GetIssueItem(id uuid.UUID) (*model.IssueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.issueItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyIssueItem(item), nil
}

// CreateIssueItem stores a new issue item and touches the owning project.
func (m *MemoryStorage) CreateIssueItem(item *model.IssueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.issueItems[item.ID] = copyIssueItem(item)
	m.issueOrder = append(m.issueOrder, item.ID)
	m.touchProjectLocked(item.ProjectID)
	return nil
}

// UpdateIssueItem replaces a stored issue item and touches the owning project.
func (m *MemoryStorage) UpdateIssueItem(item *model.IssueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.issueItems[item.ID]; !ok {
		return ErrNotFound
	}
	m.issueItems[item.ID] = copyIssueItem(item)
	m.touchProjectLocked(item.ProjectID)
	return nil
}

// DeleteIssueItem removes an issue item and touches the owning project.
func (m *MemoryStorage) DeleteIssueItem(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.issueItems[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.issueItems, id)
	m.issueOrder = removeID(m.issueOrder, id)
	m.touchProjectLocked(item.ProjectID)
	return nil
}

// Close is a no-op for in-memory storage.
func (m *MemoryStorage) Close() error {
	return nil
}
