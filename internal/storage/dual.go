package storage

import (
	"log"

	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/model"
)

// DualStorage writes through to a primary store and mirrors every mutation
// to a secondary one. Reads come from the primary and fall back to the
// mirror; mirror write failures are logged but do not fail the request as
// long as the primary write succeeded.
type DualStorage struct {
	primary Storage
	mirror  Storage
}

// NewDualStorage creates a dual storage backend.
func NewDualStorage(primary, mirror Storage) *DualStorage {
	return &DualStorage{
		primary: primary,
		mirror:  mirror,
	}
}

func (d *DualStorage) mirrorWrite(op string, err error) {
	if err != nil {
		log.Printf("ERROR: mirror storage %s failed: %v", op, err)
	}
}

// GetUser retrieves a user by id.
func (d *DualStorage) GetUser(id uuid.UUID) (*model.User, error) {
	user, err := d.primary.GetUser(id)
	if err != nil && err != ErrNotFound {
		log.Printf("WARNING: primary storage GetUser failed: %v, falling back to mirror", err)
		return d.mirror.GetUser(id)
	}
	return user, err
}

// GetUserByUsername retrieves a user by username.
func (d *DualStorage) GetUserByUsername(username string) (*model.User, error) {
	user, err := d.primary.GetUserByUsername(username)
	if err != nil && err != ErrNotFound {
		log.Printf("WARNING: primary storage GetUserByUsername failed: %v, falling back to mirror", err)
		return d.mirror.GetUserByUsername(username)
	}
	return user, err
}

// CreateUser stores a new user in both backends.
func (d *DualStorage) CreateUser(user *model.User) error {
	if err := d.primary.CreateUser(user); err != nil {
		return err
	}
	d.mirrorWrite("CreateUser", d.mirror.CreateUser(user))
	return nil
}

// GetProjectsByUser lists a user's projects.
func (d *DualStorage) GetProjectsByUser(userID uuid.UUID) ([]model.Project, error) {
	projects, err := d.primary.GetProjectsByUser(userID)
	if err != nil {
		log.Printf("WARNING: primary storage GetProjectsByUser failed: %v, falling back to mirror", err)
		return d.mirror.GetProjectsByUser(userID)
	}
	return projects, nil
}

// GetProject retrieves a project by id.
func (d *DualStorage) GetProject(id uuid.UUID) (*model.Project, error) {
	project, err := d.primary.GetProject(id)
	if err != nil && err != ErrNotFound {
		log.Printf("WARNING: primary storage GetProject failed: %v, falling back to mirror", err)
		return d.mirror.GetProject(id)
	}
	return project, err
}

// CreateProject stores a new project in both backends.
func (d *DualStorage) CreateProject(project *model.Project) error {
	if err := d.primary.CreateProject(project); err != nil {
		return err
	}
	d.mirrorWrite("CreateProject", d.mirror.CreateProject(project))
	return nil
}

// UpdateProject updates a project in both backends.
func (d *DualStorage) UpdateProject(project *model.Project) error {
	if err := d.primary.UpdateProject(project); err != nil {
		return err
	}
	d.mirrorWrite("UpdateProject", d.mirror.UpdateProject(project))
	return nil
}

// DeleteProject removes a project from both backends.
func (d *DualStorage) DeleteProject(id uuid.UUID) error {
	if err := d.primary.DeleteProject(id); err != nil {
		return err
	}
	d.mirrorWrite("DeleteProject", d.mirror.DeleteProject(id))
	return nil
}

// GetAllTestItems lists every stored test item.
func (d *DualStorage) GetAllTestItems() ([]model.TestItem, error) {
	items, err := d.primary.GetAllTestItems()
	if err != nil {
		log.Printf("WARNING: primary storage GetAllTestItems failed: %v, falling back to mirror", err)
		return d.mirror.GetAllTestItems()
	}
	return items, nil
}

// GetTestItemsByProject lists a project's test items.
func (d *DualStorage) GetTestItemsByProject(projectID uuid.UUID) ([]model.TestItem, error) {
	items, err := d.primary.GetTestItemsByProject(projectID)
	if err != nil {
		log.Printf("WARNING: primary storage GetTestItemsByProject failed: %v, falling back to mirror", err)
		return d.mirror.GetTestItemsByProject(projectID)
	}
	return items, nil
}

// GetTestItem retrieves a test item by id.
func (d *DualStorage) GetTestItem(id uuid.UUID) (*model.TestItem, error) {
	item, err := d.primary.GetTestItem(id)
	if err != nil && err != ErrNotFound {
		log.Printf("WARNING: primary storage GetTestItem failed: %v, falling back to mirror", err)
		return d.mirror.GetTestItem(id)
	}
	return item, err
}

// CreateTestItem stores a new test item in both backends.
func (d *DualStorage) CreateTestItem(item *model.TestItem) error {
	if err := d.primary.CreateTestItem(item); err != nil {
		return err
	}
	d.mirrorWrite("CreateTestItem", d.mirror.CreateTestItem(item))
	return nil
}

// UpdateTestItem updates a test item in both backends.
func (d *DualStorage) UpdateTestItem(item *model.TestItem) error {
	if err := d.primary.UpdateTestItem(item); err != nil {
		return err
	}
	d.mirrorWrite("UpdateTestItem", d.mirror.UpdateTestItem(item))
	return nil
}

// DeleteTestItem removes a test item from both backends.
func (d *DualStorage) DeleteTestItem(id uuid.UUID) error {
	if err := d.primary.DeleteTestItem(id); err != nil {
		return err
	}
	d.mirrorWrite("DeleteTestItem", d.mirror.DeleteTestItem(id))
	return nil
}

// GetIssueItemsByProject lists a project's issue items.
func (d *DualStorage) GetIssueItemsByProject(projectID uuid.UUID) ([]model.IssueItem, error) {
	items, err := d.primary.GetIssueItemsByProject(projectID)
	if err != nil {
		log.Printf("WARNING: primary storage GetIssueItemsByProject failed: %v, falling back to mirror", err)
		return d.mirror.GetIssueItemsByProject(projectID)
	}
	return items, nil
}

// GetIssueItem retrieves an issue item by id.
func (d *DualStorage) GetIssueItem(id uuid.UUID) (*model.IssueItem, error) {
	item, err := d.primary.GetIssueItem(id)
	if err != nil && err != ErrNotFound {
		log.Printf("WARNING: primary storage GetIssueItem failed: %v, falling back to mirror", err)
		return d.mirror.GetIssueItem(id)
	}
	return item, err
}

// CreateIssueItem stores a new issue item in both backends.
func (d *DualStorage) CreateIssueItem(item *model.IssueItem) error {
	if err := d.primary.CreateIssueItem(item); err != nil {
		return err
	}
	d.mirrorWrite("CreateIssueItem", d.mirror.CreateIssueItem(item))
	return nil
}

// UpdateIssueItem updates an issue item in both backends.
func (d *DualStorage) UpdateIssueItem(item *model.IssueItem) error {
	if err := d.primary.UpdateIssueItem(item); err != nil {
		return err
	}
	d.mirrorWrite("UpdateIssueItem", d.mirror.UpdateIssueItem(item))
	return nil
}

// DeleteIssueItem removes an issue item from both backends.
func (d *DualStorage) DeleteIssueItem(id uuid.UUID) error {
	if err := d.primary.DeleteIssueItem(id); err != nil {
		return err
	}
	d.mirrorWrite("DeleteIssueItem", d.mirror.DeleteIssueItem(id))
	return nil
}

// Close closes both backends.
func (d *DualStorage) Close() error {
	err := d.primary.Close()
	if mirrorErr := d.mirror.Close(); err == nil {
		err = mirrorErr
	}
	return err
}
