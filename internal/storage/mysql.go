package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testlab/testplan-backend-service/internal/dates"
	"github.com/testlab/testplan-backend-service/internal/model"
)

// MySQLStorage implements Storage on MySQL via sqlx. The photo, graph and
// attachment slices live in JSON columns so the row shape stays flat.
type MySQLStorage struct {
	db *sqlx.DB
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		password VARCHAR(100) NOT NULL,
		created_at VARCHAR(10) NOT NULL,
		seq INT AUTO_INCREMENT UNIQUE KEY
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS projects (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		product_spec TEXT NOT NULL,
		product_spec_description TEXT NOT NULL,
		product_image TEXT NOT NULL,
		schedule_image TEXT NOT NULL,
		schedule_description TEXT NOT NULL,
		start_date VARCHAR(10) NOT NULL,
		end_date VARCHAR(10) NOT NULL,
		status VARCHAR(20) NOT NULL,
		last_updated_at VARCHAR(10) NOT NULL,
		seq INT AUTO_INCREMENT UNIQUE KEY,
		INDEX idx_projects_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS test_items (
		id VARCHAR(36) PRIMARY KEY,
		project_id VARCHAR(36) NOT NULL,
		name TEXT NOT NULL,
		planned_start_date VARCHAR(10) NOT NULL,
		planned_end_date VARCHAR(10) NOT NULL,
		actual_end_date VARCHAR(10) NOT NULL,
		test_condition TEXT NOT NULL,
		judgment_criteria TEXT NOT NULL,
		test_data TEXT NOT NULL,
		test_result VARCHAR(10) NOT NULL,
		progress_status VARCHAR(20) NOT NULL,
		report_status VARCHAR(20) NOT NULL,
		notes TEXT NOT NULL,
		photos JSON NOT NULL,
		graphs JSON NOT NULL,
		attachments JSON NOT NULL,
		seq INT AUTO_INCREMENT UNIQUE KEY,
		INDEX idx_test_items_project (project_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS issue_items (
		id VARCHAR(36) PRIMARY KEY,
		project_id VARCHAR(36) NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		severity VARCHAR(10) NOT NULL,
		progress_status VARCHAR(20) NOT NULL,
		notes TEXT NOT NULL,
		photos JSON NOT NULL,
		graphs JSON NOT NULL,
		attachments JSON NOT NULL,
		seq INT AUTO_INCREMENT UNIQUE KEY,
		INDEX idx_issue_items_project (project_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// NewMySQLStorage connects to MySQL with a startup retry loop (containers
// come up slower than the service) and creates the schema if missing.
func NewMySQLStorage(dsn string) (*MySQLStorage, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	maxRetries := 30
	retryDelay := 1 * time.Second
	for i := 0; i < maxRetries; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		if i < maxRetries-1 {
			log.Printf("MySQL not ready yet (attempt %d/%d), retrying in %v...", i+1, maxRetries, retryDelay)
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStorage{db: db}, nil
}

type testItemRow struct {
	model.TestItem
	PhotosJSON      []byte `db:"photos"`
	GraphsJSON      []byte `db:"graphs"`
	AttachmentsJSON []byte `db:"attachments"`
}

func (r *testItemRow) toModel() (model.TestItem, error) {
	item := r.TestItem
	if err := json.Unmarshal(r.PhotosJSON, &item.Photos); err != nil {
		return item, fmt.Errorf("failed to decode photos column: %w", err)
	}
	if err := json.Unmarshal(r.GraphsJSON, &item.Graphs); err != nil {
		return item, fmt.Errorf("failed to decode graphs column: %w", err)
	}
	if err := json.Unmarshal(r.AttachmentsJSON, &item.Attachments); err != nil {
		return item, fmt.Errorf("failed to decode attachments column: %w", err)
	}
	item.ApplyDefaults()
	return item, nil
}

type issueItemRow struct {
	model.IssueItem
	PhotosJSON      []byte `db:"photos"`
	GraphsJSON      []byte `db:"graphs"`
	AttachmentsJSON []byte `db:"attachments"`
}

func (r *issueItemRow) toModel() (model.IssueItem, error) {
	item := r.IssueItem
	if err := json.Unmarshal(r.PhotosJSON, &item.Photos); err != nil {
		return item, fmt.Errorf("failed to decode photos column: %w", err)
	}
	if err := json.Unmarshal(r.GraphsJSON, &item.Graphs); err != nil {
		return item, fmt.Errorf("failed to decode graphs column: %w", err)
	}
	if err := json.Unmarshal(r.AttachmentsJSON, &item.Attachments); err != nil {
		return item, fmt.Errorf("failed to decode attachments column: %w", err)
	}
	item.ApplyDefaults()
	return item, nil
}

func marshalSlices(photos, graphs []string, attachments []model.Attachment) ([]byte, []byte, []byte, error) {
	if photos == nil {
		photos = []string{}
	}
	if graphs == nil {
		graphs = []string{}
	}
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	p, err := json.Marshal(photos)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal photos: %w", err)
	}
	g, err := json.Marshal(graphs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal graphs: %w", err)
	}
	a, err := json.Marshal(attachments)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	return p, g, a, nil
}

// GetUser retrieves a user by id.
func (s *MySQLStorage) GetUser(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.Get(&user, `SELECT id, username, password, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *MySQLStorage) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	err := s.db.Get(&user, `SELECT id, username, password, created_at FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// CreateUser stores a new user, rejecting duplicate usernames.
func (s *MySQLStorage) CreateUser(user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt == "" {
		user.CreatedAt = dates.Today()
	}

	var exists int
	if err := s.db.Get(&exists, `SELECT COUNT(*) FROM users WHERE username = ?`, user.Username); err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists > 0 {
		return ErrUsernameTaken
	}

	_, err := s.db.Exec(
		`INSERT INTO users (id, username, password, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.Password, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const projectColumns = `id, user_id, name, description, product_spec, product_spec_description,
	product_image, schedule_image, schedule_description, start_date, end_date, status, last_updated_at`

// GetProjectsByUser lists a user's projects in creation order.
func (s *MySQLStorage) GetProjectsByUser(userID uuid.UUID) ([]model.Project, error) {
	projects := []model.Project{}
	err := s.db.Select(&projects,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	return projects, nil
}

// GetProject retrieves a project by id.
func (s *MySQLStorage) GetProject(id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := s.db.Get(&project, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}
	return &project, nil
}

// CreateProject stores a new project.
func (s *MySQLStorage) CreateProject(project *model.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.LastUpdatedAt = dates.Today()

	_, err := s.db.Exec(
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.UserID, project.Name, project.Description, project.ProductSpec,
		project.ProductSpecDescription, project.ProductImage, project.ScheduleImage,
		project.ScheduleDescription, project.StartDate, project.EndDate, project.Status,
		project.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// UpdateProject replaces a stored project.
func (s *MySQLStorage) UpdateProject(project *model.Project) error {
	project.LastUpdatedAt = dates.Today()
	res, err := s.db.Exec(
		`UPDATE projects SET name = ?, description = ?, product_spec = ?,
			product_spec_description = ?, product_image = ?, schedule_image = ?,
			schedule_description = ?, start_date = ?, end_date = ?, status = ?,
			last_updated_at = ?
		WHERE id = ?`,
		project.Name, project.Description, project.ProductSpec, project.ProductSpecDescription,
		project.ProductImage, project.ScheduleImage, project.ScheduleDescription,
		project.StartDate, project.EndDate, project.Status, project.LastUpdatedAt, project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRow(res)
}

// DeleteProject removes a project and every item it owns in one transaction.
func (s *MySQLStorage) DeleteProject(id uuid.UUID) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM test_items WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete test items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM issue_items WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete issue items: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

const testItemColumns = `id, project_id, name, planned_start_date, planned_end_date, actual_end_date,
	test_condition, judgment_criteria, test_data, test_result, progress_status, report_status,
	notes, photos, graphs, attachments`

// GetAllTestItems lists every stored test item in creation order.
func (s *MySQLStorage) GetAllTestItems() ([]model.TestItem, error) {
	return s.selectTestItems(`SELECT ` + testItemColumns + ` FROM test_items ORDER BY seq ASC`)
}

// GetTestItemsByProject lists a project's test items in creation order.
func (s *MySQLStorage) GetTestItemsByProject(projectID uuid.UUID) ([]model.TestItem, error) {
	return s.selectTestItems(
		`SELECT `+testItemColumns+` FROM test_items WHERE project_id = ? ORDER BY seq ASC`, projectID)
}

func (s *MySQLStorage) selectTestItems(query string, args ...interface{}) ([]model.TestItem, error) {
	var rows []testItemRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query test items: %w", err)
	}
	items := make([]model.TestItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetTestItem retrieves a test item by id.
func (s *MySQLStorage) GetTestItem(id uuid.UUID) (*model.TestItem, error) {
	var row testItemRow
	err := s.db.Get(&row, `SELECT `+testItemColumns+` FROM test_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query test item: %w", err)
	}
	item, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateTestItem stores a new test item and touches the owning project.
func (s *MySQLStorage) CreateTestItem(item *model.TestItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	photos, graphs, attachments, err := marshalSlices(item.Photos, item.Graphs, item.Attachments)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO test_items (`+testItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.Name, item.PlannedStartDate, item.PlannedEndDate,
		item.ActualEndDate, item.TestCondition, item.JudgmentCriteria, item.TestData,
		item.TestResult, item.ProgressStatus, item.ReportStatus, item.Notes,
		photos, graphs, attachments,
	)
	if err != nil {
		return fmt.Errorf("failed to insert test item: %w", err)
	}
	return s.touchProject(item.ProjectID)
}

// UpdateTestItem replaces a stored test item and touches the owning project.
func (s *MySQLStorage) UpdateTestItem(item *model.TestItem) error {
	photos, graphs, attachments, err := marshalSlices(item.Photos, item.Graphs, item.Attachments)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`UPDATE test_items SET name = ?, planned_start_date = ?, planned_end_date = ?,
			actual_end_date = ?, test_condition = ?, judgment_criteria = ?, test_data = ?,
			test_result = ?, progress_status = ?, report_status = ?, notes = ?,
			photos = ?, graphs = ?, attachments = ?
		WHERE id = ?`,
		item.Name, item.PlannedStartDate, item.PlannedEndDate, item.ActualEndDate,
		item.TestCondition, item.JudgmentCriteria, item.TestData, item.TestResult,
		item.ProgressStatus, item.ReportStatus, item.Notes,
		photos, graphs, attachments, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test item: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return s.touchProject(item.ProjectID)
}

// DeleteTestItem removes a test item and touches the owning project.
func (s *MySQLStorage) DeleteTestItem(id uuid.UUID) error {
	item, err := s.GetTestItem(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM test_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete test item: %w", err)
	}
	return s.touchProject(item.ProjectID)
}

const issueItemColumns = `id, project_id, name, description, severity, progress_status, notes,
	photos, graphs, attachments`

// GetIssueItemsByProject lists a project's issue items in creation order.
func (s *MySQLStorage) GetIssueItemsByProject(projectID uuid.UUID) ([]model.IssueItem, error) {
	var rows []issueItemRow
	err := s.db.Select(&rows,
		`SELECT `+issueItemColumns+` FROM issue_items WHERE project_id = ? ORDER BY seq ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issue items: %w", err)
	}
	items := make([]model.IssueItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetIssueItem retrieves an issue item by id.
func (s *MySQLStorage) GetIssueItem(id uuid.UUID) (*model.IssueItem, error) {
	var row issueItemRow
	err := s.db.Get(&row, `SELECT `+issueItemColumns+` FROM issue_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query issue item: %w", err)
	}
	item, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateIssueItem stores a new issue item and touches the owning project.
func (s *MySQLStorage) CreateIssueItem(item *model.IssueItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	photos, graphs, attachments, err := marshalSlices(item.Photos, item.Graphs, item.Attachments)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO issue_items (`+issueItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.Name, item.Description, item.Severity,
		item.ProgressStatus, item.Notes, photos, graphs, attachments,
	)
	if err != nil {
		return fmt.Errorf("failed to insert issue item: %w", err)
	}
	return s.touchProject(item.ProjectID)
}

// UpdateIssueItem replaces a stored issue item and touches the owning project.
func (s *MySQLStorage) UpdateIssueItem(item *model.IssueItem) error {
	photos, graphs, attachments, err := marshalSlices(item.Photos, item.Graphs, item.Attachments)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`UPDATE issue_items SET name = ?, description = ?, severity = ?, progress_status = ?,
			notes = ?, photos = ?, graphs = ?, attachments = ?
		WHERE id = ?`,
		item.Name, item.Description, item.Severity, item.ProgressStatus, item.Notes,
		photos, graphs, attachments, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue item: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return s.touchProject(item.ProjectID)
}

// DeleteIssueItem removes an issue item and touches the owning project.
func (s *MySQLStorage) DeleteIssueItem(id uuid.UUID) error {
	item, err := s.GetIssueItem(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM issue_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete issue item: %w", err)
	}
	return s.touchProject(item.ProjectID)
}

func (s *MySQLStorage) touchProject(projectID uuid.UUID) error {
	_, err := s.db.Exec(`UPDATE projects SET last_updated_at = ? WHERE id = ?`, dates.Today(), projectID)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *MySQLStorage) Close() error {
	return s.db.Close()
}
