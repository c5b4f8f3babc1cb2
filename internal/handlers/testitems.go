package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/internal/validation"
)

// TestItemHandler serves the test-item surface of a project's test plan.
type TestItemHandler struct {
	storage storage.Storage
	files   *FileStore
}

func NewTestItemHandler(store storage.Storage, files *FileStore) *TestItemHandler {
	return &TestItemHandler{storage: store, files: files}
}

// loadOwnedItem resolves the {id} URL param to a test item whose project
// belongs to the authenticated user. A nil return means the response has
// already been written.
func (h *TestItemHandler) loadOwnedItem(w http.ResponseWriter, r *http.Request) *model.TestItem {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return nil
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "시험항목을 찾을 수 없습니다")
		return nil
	}

	item, err := h.storage.GetTestItem(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("ERROR: failed to load test item %s: %v", id, err)
		}
		writeError(w, http.StatusNotFound, "시험항목을 찾을 수 없습니다")
		return nil
	}

	project, err := h.storage.GetProject(item.ProjectID)
	if err != nil || project.UserID != userID {
		log.Printf("SECURITY: user %s denied access to test item %s", userID, id)
		writeError(w, http.StatusNotFound, "시험항목을 찾을 수 없습니다")
		return nil
	}
	return item
}

// ListAll handles GET /api/test-items.
func (h *TestItemHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.storage.GetAllTestItems()
	if err != nil {
		log.Printf("ERROR: failed to list test items: %v", err)
		writeError(w, http.StatusInternalServerError, "시험항목 목록을 불러오지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListByProject handles GET /api/projects/{id}/test-items.
func (h *TestItemHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	items, err := h.storage.GetTestItemsByProject(project.ID)
	if err != nil {
		log.Printf("ERROR: failed to list test items for project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "시험항목 목록을 불러오지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type createTestItemRequest struct {
	Name             string `json:"name"`
	PlannedStartDate string `json:"plannedStartDate"`
	PlannedEndDate   string `json:"plannedEndDate"`
	ActualEndDate    string `json:"actualEndDate"`
	TestCondition    string `json:"testCondition"`
	JudgmentCriteria string `json:"judgmentCriteria"`
	TestData         string `json:"testData"`
	TestResult       string `json:"testResult"`
	ProgressStatus   string `json:"progressStatus"`
	ReportStatus     string `json:"reportStatus"`
	Notes            string `json:"notes"`
}

// Create handles POST /api/projects/{id}/test-items.
func (h *TestItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	var req createTestItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}

	if err := validation.ValidateItemName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := &model.TestItem{
		ProjectID:        project.ID,
		Name:             req.Name,
		TestCondition:    req.TestCondition,
		JudgmentCriteria: req.JudgmentCriteria,
		TestData:         req.TestData,
		TestResult:       req.TestResult,
		ProgressStatus:   req.ProgressStatus,
		ReportStatus:     req.ReportStatus,
		Notes:            req.Notes,
	}

	for _, d := range []struct {
		in  string
		out *string
	}{
		{req.PlannedStartDate, &item.PlannedStartDate},
		{req.PlannedEndDate, &item.PlannedEndDate},
		{req.ActualEndDate, &item.ActualEndDate},
	} {
		date, ok := normalizeDate(d.in)
		if !ok {
			writeError(w, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다: "+d.in)
			return
		}
		*d.out = date
	}

	item.ApplyDefaults()
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, statusErrorMessage(err))
		return
	}

	if err := h.storage.CreateTestItem(item); err != nil {
		log.Printf("ERROR: failed to create test item in project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "시험항목을 생성하지 못했습니다")
		return
	}

	log.Printf("DATA: test item %s created in project %s", item.ID, project.ID)
	writeJSON(w, http.StatusCreated, item)
}

type patchTestItemRequest struct {
	Name             *string             `json:"name"`
	PlannedStartDate *string             `json:"plannedStartDate"`
	PlannedEndDate   *string             `json:"plannedEndDate"`
	ActualEndDate    *string             `json:"actualEndDate"`
	TestCondition    *string             `json:"testCondition"`
	JudgmentCriteria *string             `json:"judgmentCriteria"`
	TestData         *string             `json:"testData"`
	TestResult       *string             `json:"testResult"`
	ProgressStatus   *string             `json:"progressStatus"`
	ReportStatus     *string             `json:"reportStatus"`
	Notes            *string             `json:"notes"`
	Photos           *[]string           `json:"photos"`
	Graphs           *[]string           `json:"graphs"`
	Attachments      *[]model.Attachment `json:"attachments"`
}

// Patch handles PATCH /api/test-items/{id}.
func (h *TestItemHandler) Patch(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	var req patchTestItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}

	if req.Name != nil {
		if err := validation.ValidateItemName(*req.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		item.Name = *req.Name
	}
	for _, d := range []struct {
		in  *string
		out *string
	}{
		{req.PlannedStartDate, &item.PlannedStartDate},
		{req.PlannedEndDate, &item.PlannedEndDate},
		{req.ActualEndDate, &item.ActualEndDate},
	} {
		if d.in == nil {
			continue
		}
		date, ok := normalizeDate(*d.in)
		if !ok {
			writeError(w, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다: "+*d.in)
			return
		}
		*d.out = date
	}
	if req.TestCondition != nil {
		item.TestCondition = *req.TestCondition
	}
	if req.JudgmentCriteria != nil {
		item.JudgmentCriteria = *req.JudgmentCriteria
	}
	if req.TestData != nil {
		item.TestData = *req.TestData
	}
	if req.TestResult != nil {
		item.TestResult = *req.TestResult
	}
	if req.ProgressStatus != nil {
		item.ProgressStatus = *req.ProgressStatus
	}
	if req.ReportStatus != nil {
		item.ReportStatus = *req.ReportStatus
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.Photos != nil {
		item.Photos = *req.Photos
	}
	if req.Graphs != nil {
		item.Graphs = *req.Graphs
	}
	if req.Attachments != nil {
		item.Attachments = *req.Attachments
	}

	item.ApplyDefaults()
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, statusErrorMessage(err))
		return
	}

	if err := h.storage.UpdateTestItem(item); err != nil {
		log.Printf("ERROR: failed to update test item %s: %v", item.ID, err)
		writeError(w, http.StatusInternalServerError, "시험항목을 수정하지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/test-items/{id}.
func (h *TestItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	if err := h.storage.DeleteTestItem(item.ID); err != nil {
		log.Printf("ERROR: failed to delete test item %s: %v", item.ID, err)
		writeError(w, http.StatusInternalServerError, "시험항목을 삭제하지 못했습니다")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto handles POST /api/test-items/{id}/photos.
func (h *TestItemHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	url, _, err := h.files.Save(r, "file")
	if err != nil {
		h.writeUploadError(w, item.ID, err)
		return
	}

	item.Photos = append(item.Photos, url)
	h.saveUpload(w, item)
}

// UploadGraph handles POST /api/test-items/{id}/graphs.
func (h *TestItemHandler) UploadGraph(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	url, _, err := h.files.Save(r, "file")
	if err != nil {
		h.writeUploadError(w, item.ID, err)
		return
	}

	item.Graphs = append(item.Graphs, url)
	h.saveUpload(w, item)
}

// UploadAttachment handles POST /api/test-items/{id}/attachments. Unlike
// photos and graphs, the original filename and size are kept for display.
func (h *TestItemHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	url, header, err := h.files.Save(r, "file")
	if err != nil {
		h.writeUploadError(w, item.ID, err)
		return
	}

	item.Attachments = append(item.Attachments, model.Attachment{
		URL:      url,
		Filename: header.Filename,
		Size:     header.Size,
	})
	h.saveUpload(w, item)
}

func (h *TestItemHandler) saveUpload(w http.ResponseWriter, item *model.TestItem) {
	if err := h.storage.UpdateTestItem(item); err != nil {
		log.Printf("ERROR: failed to save upload on test item %s: %v", item.ID, err)
		writeError(w, http.StatusInternalServerError, "파일 업로드에 실패했습니다")
		return
	}
	log.Printf("DATA: file uploaded for test item %s", item.ID)
	writeJSON(w, http.StatusOK, item)
}

func (h *TestItemHandler) writeUploadError(w http.ResponseWriter, itemID uuid.UUID, err error) {
	if errors.Is(err, errNoFile) {
		writeError(w, http.StatusBadRequest, "업로드할 파일이 없습니다")
		return
	}
	log.Printf("ERROR: failed to store upload for test item %s: %v", itemID, err)
	writeError(w, http.StatusInternalServerError, "파일 업로드에 실패했습니다")
}

// statusErrorMessage maps the model's enum sentinels to user-facing text.
func statusErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidTestResult):
		return "시험 결과 값이 올바르지 않습니다"
	case errors.Is(err, model.ErrInvalidProgressStatus):
		return "진행 상황 값이 올바르지 않습니다"
	case errors.Is(err, model.ErrInvalidReportStatus):
		return "성적서 작성 값이 올바르지 않습니다"
	case errors.Is(err, model.ErrInvalidSeverity):
		return "심각도 값이 올바르지 않습니다"
	}
	return "요청 값이 올바르지 않습니다"
}
