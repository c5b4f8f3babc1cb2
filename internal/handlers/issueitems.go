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

// IssueItemHandler serves a project's defect records. The surface mirrors
// the test-item handler.
type IssueItemHandler struct {
	storage storage.Storage
	files   *FileStore
}

func NewIssueItemHandler(store storage.Storage, files *FileStore) *IssueItemHandler {
	return &IssueItemHandler{storage: store, files: files}
}

func (h *IssueItemHandler) loadOwnedItem(w http.ResponseWriter, r *http.Request) *model.IssueItem {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return nil
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "이슈항목을 찾을 수 없습니다")
		return nil
	}

	item, err := h.storage.GetIssueItem(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("ERROR: failed to load issue item %s: %v", id, err)
		}
		writeError(w, http.StatusNotFound, "이슈항목을 찾을 수 없습니다")
		return nil
	}

	project, err := h.storage.GetProject(item.ProjectID)
	if err != nil || project.UserID != userID {
		log.Printf("SECURITY: user %s denied access to issue item %s", userID, id)
		writeError(w, http.StatusNotFound, "이슈항목을 찾을 수 없습니다")
		return nil
	}
	return item
}

// ListByProject handles GET /api/projects/{id}/issue-items.
func (h *IssueItemHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	items, err := h.storage.GetIssueItemsByProject(project.ID)
	if err != nil {
		log.Printf("ERROR: failed to list issue items for project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "이슈항목 목록을 불러오지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type createIssueItemRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	ProgressStatus string `json:"progressStatus"`
	Notes          string `json:"notes"`
}

// Create handles POST /api/projects/{id}/issue-items.
func (h *IssueItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	var req createIssueItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}

	if err := validation.ValidateItemName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := &model.IssueItem{
		ProjectID:      project.ID,
		Name:           req.Name,
		Description:    req.Description,
		Severity:       req.Severity,
		ProgressStatus: req.ProgressStatus,
		Notes:          req.Notes,
	}

	item.ApplyDefaults()
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, statusErrorMessage(err))
		return
	}

	if err := h.storage.CreateIssueItem(item); err != nil {
		log.Printf("ERROR: failed to create issue item in project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "이슈항목을 생성하지 못했습니다")
		return
	}

	log.Printf("DATA: issue item %s created in project %s", item.ID, project.ID)
	writeJSON(w, http.StatusCreated, item)
}

type patchIssueItemRequest struct {
	Name           *string             `json:"name"`
	Description    *string             `json:"description"`
	Severity       *string             `json:"severity"`
	ProgressStatus *string             `json:"progressStatus"`
	Notes          *string             `json:"notes"`
	Photos         *[]string           `json:"photos"`
	Graphs         *[]string           `json:"graphs"`
	Attachments    *[]model.Attachment `json:"attachments"`
}

// Patch handles PATCH /api/issue-items/{id}.
func (h *IssueItemHandler) Patch(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	var req patchIssueItemRequest
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
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Severity != nil {
		item.Severity = *req.Severity
	}
	if req.ProgressStatus != nil {
		item.ProgressStatus = *req.ProgressStatus
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

	if err := h.storage.UpdateIssueItem(item); err != nil {
		log.Printf("ERROR: failed to update issue item %s: %v", item.ID, err)
		writeError(w, http.StatusInternalServerError, "이슈항목을 수정하지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/issue-items/{id}.
func (h *IssueItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.loadOwnedItem(w, r)
	if item == nil {
		return
	}

	if err := h.storage.DeleteIssueItem(item.ID); err != nil {
		log.Printf("ERROR: failed to delete issue item %s: %v", item.ID, err)
		writeError(w, http.StatusInternalServerError, "이슈항목을 삭제하지 못했습니다")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto handles POST /api/issue-items/{id}/photos.
func (h *IssueItemHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
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

// UploadGraph handles POST /api/issue-items/{id}/graphs.
func (h *IssueItemHandler) UploadGraph(w http.ResponseWriter, r *http.Request) {
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

// UploadAttachment handles POST /api/issue-items/{id}/attachments.
func (h *IssueItemHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
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

func (h *IssueItemHandler) saveUpload(w http.ResponseWriter, item *model.IssueItem) {
	if err := h.storage.UpdateIssueItem(item); err != nil {
		log.Printf("ERROR: failed to save upload on issue item %s: %v", item.ID, err)
		writeError(w, http.StatusInternalServerError, "파일 업로드에 실패했습니다")
		return
	}
	log.Printf("DATA: file uploaded for issue item %s", item.ID)
	writeJSON(w, http.StatusOK, item)
}

func (h *IssueItemHandler) writeUploadError(w http.ResponseWriter, itemID uuid.UUID, err error) {
	if errors.Is(err, errNoFile) {
		writeError(w, http.StatusBadRequest, "업로드할 파일이 없습니다")
		return
	}
	log.Printf("ERROR: failed to store upload for issue item %s: %v", itemID, err)
	writeError(w, http.StatusInternalServerError, "파일 업로드에 실패했습니다")
}
