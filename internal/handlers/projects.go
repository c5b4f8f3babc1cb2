package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/dates"
	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/internal/validation"
)

// ProjectHandler serves the project CRUD surface. Every route is scoped to
// the authenticated user; a project owned by someone else reads as missing.
type ProjectHandler struct {
	storage storage.Storage
	files   *FileStore
}

func NewProjectHandler(store storage.Storage, files *FileStore) *ProjectHandler {
	return &ProjectHandler{storage: store, files: files}
}

// loadOwnedProject fetches the project named by the {id} URL param and
// verifies it belongs to the authenticated user. A nil return means the
// response has already been written. Shared by every per-project route.
func loadOwnedProject(w http.ResponseWriter, r *http.Request, store storage.Storage) *model.Project {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return nil
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "프로젝트를 찾을 수 없습니다")
		return nil
	}

	project, err := store.GetProject(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("ERROR: failed to load project %s: %v", id, err)
		}
		writeError(w, http.StatusNotFound, "프로젝트를 찾을 수 없습니다")
		return nil
	}
	if project.UserID != userID {
		// Ownership failures read as not-found so project ids don't leak.
		log.Printf("SECURITY: user %s denied access to project %s", userID, id)
		writeError(w, http.StatusNotFound, "프로젝트를 찾을 수 없습니다")
		return nil
	}
	return project
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return
	}

	projects, err := h.storage.GetProjectsByUser(userID)
	if err != nil {
		log.Printf("ERROR: failed to list projects for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "프로젝트 목록을 불러오지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get handles GET /api/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type createProjectRequest struct {
	Name                   string `json:"name"`
	Description            string `json:"description"`
	ProductSpec            string `json:"productSpec"`
	ProductSpecDescription string `json:"productSpecDescription"`
	ScheduleDescription    string `json:"scheduleDescription"`
	StartDate              string `json:"startDate"`
	EndDate                string `json:"endDate"`
	Status                 string `json:"status"`
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}

	if err := validation.ValidateProjectName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status == "" {
		req.Status = model.ProjectActive
	}
	if !model.ValidProjectStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "프로젝트 상태 값이 올바르지 않습니다: "+req.Status)
		return
	}
	startDate, ok := normalizeDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다: "+req.StartDate)
		return
	}
	endDate, ok := normalizeDate(req.EndDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다: "+req.EndDate)
		return
	}

	project := &model.Project{
		UserID:                 userID,
		Name:                   req.Name,
		Description:            req.Description,
		ProductSpec:            req.ProductSpec,
		ProductSpecDescription: req.ProductSpecDescription,
		ScheduleDescription:    req.ScheduleDescription,
		StartDate:              startDate,
		EndDate:                endDate,
		Status:                 req.Status,
	}
	if err := h.storage.CreateProject(project); err != nil {
		log.Printf("ERROR: failed to create project for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "프로젝트를 생성하지 못했습니다")
		return
	}

	log.Printf("DATA: project %s created by user %s", project.ID, userID)
	writeJSON(w, http.StatusCreated, project)
}

// patchProjectRequest distinguishes absent fields from explicit empties, so
// a PATCH only touches the fields the client sent.
type patchProjectRequest struct {
	Name                   *string `json:"name"`
	Description            *string `json:"description"`
	ProductSpec            *string `json:"productSpec"`
	ProductSpecDescription *string `json:"productSpecDescription"`
	ProductImage           *string `json:"productImage"`
	ScheduleImage          *string `json:"scheduleImage"`
	ScheduleDescription    *string `json:"scheduleDescription"`
	StartDate              *string `json:"startDate"`
	EndDate                *string `json:"endDate"`
	Status                 *string `json:"status"`
}

// Patch handles PATCH /api/projects/{id}.
func (h *ProjectHandler) Patch(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	var req patchProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}

	if req.Name != nil {
		if err := validation.ValidateProjectName(*req.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.ProductSpec != nil {
		project.ProductSpec = *req.ProductSpec
	}
	if req.ProductSpecDescription != nil {
		project.ProductSpecDescription = *req.ProductSpecDescription
	}
	if req.ProductImage != nil {
		project.ProductImage = *req.ProductImage
	}
	if req.ScheduleImage != nil {
		project.ScheduleImage = *req.ScheduleImage
	}
	if req.ScheduleDescription != nil {
		project.ScheduleDescription = *req.ScheduleDescription
	}
	if req.StartDate != nil {
		date, ok := normalizeDate(*req.StartDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다: "+*req.StartDate)
			return
		}
		project.StartDate = date
	}
	if req.EndDate != nil {
		date, ok := normalizeDate(*req.EndDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다: "+*req.EndDate)
			return
		}
		project.EndDate = date
	}
	if req.Status != nil {
		if !model.ValidProjectStatus(*req.Status) {
			writeError(w, http.StatusBadRequest, "프로젝트 상태 값이 올바르지 않습니다: "+*req.Status)
			return
		}
		project.Status = *req.Status
	}

	if err := h.storage.UpdateProject(project); err != nil {
		log.Printf("ERROR: failed to update project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "프로젝트를 수정하지 못했습니다")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/{id}. Items cascade in storage.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	if err := h.storage.DeleteProject(project.ID); err != nil {
		log.Printf("ERROR: failed to delete project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "프로젝트를 삭제하지 못했습니다")
		return
	}

	log.Printf("DATA: project %s deleted", project.ID)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/projects/{id}/images. The multipart form
// carries the file under "file" and a "type" of product or schedule.
func (h *ProjectHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	url, _, err := h.files.Save(r, "file")
	if err != nil {
		if errors.Is(err, errNoFile) {
			writeError(w, http.StatusBadRequest, "업로드할 파일이 없습니다")
			return
		}
		log.Printf("ERROR: failed to store project image for %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "파일 업로드에 실패했습니다")
		return
	}

	switch r.FormValue("type") {
	case "product":
		project.ProductImage = url
	case "schedule":
		project.ScheduleImage = url
	default:
		writeError(w, http.StatusBadRequest, "이미지 종류가 올바르지 않습니다")
		return
	}

	if err := h.storage.UpdateProject(project); err != nil {
		log.Printf("ERROR: failed to save project image for %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "파일 업로드에 실패했습니다")
		return
	}

	log.Printf("DATA: image uploaded for project %s", project.ID)
	writeJSON(w, http.StatusOK, project)
}

// normalizeDate maps user date input to the canonical stored form. Empty
// input clears the field; anything else must be a real calendar date.
func normalizeDate(input string) (string, bool) {
	if input == "" {
		return "", true
	}
	return dates.Parse(input)
}
