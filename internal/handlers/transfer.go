package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/sheet"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/internal/validation"
)

// TransferHandler serves the spreadsheet export and import of a project's
// test items.
type TransferHandler struct {
	storage storage.Storage
	files   *FileStore
}

func NewTransferHandler(store storage.Storage, files *FileStore) *TransferHandler {
	return &TransferHandler{storage: store, files: files}
}

// Export handles GET /api/projects/{id}/test-items/export. The response is
// an XLSX attachment named after the project.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	items, err := h.storage.GetTestItemsByProject(project.ID)
	if err != nil {
		log.Printf("ERROR: failed to load test items for export of project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "내보내기에 실패했습니다")
		return
	}

	data, err := sheet.Export(items)
	if err != nil {
		log.Printf("ERROR: failed to render export for project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "내보내기에 실패했습니다")
		return
	}

	// mime.FormatMediaType percent-encodes the Korean filename per RFC 2231.
	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": sheet.ExportFilename(project.Name),
	})
	w.Header().Set("Content-Type", sheet.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("ERROR: failed to send export for project %s: %v", project.ID, err)
	}

	log.Printf("DATA: exported %d test items from project %s", len(items), project.ID)
}

// Import handles POST /api/projects/{id}/test-items/import. The multipart
// form carries the spreadsheet under "file". The batch is all-or-nothing:
// validation failures reject every row and create nothing.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	project := loadOwnedProject(w, r, h.storage)
	if project == nil {
		return
	}

	path, declaredName, cleanup, err := h.files.SaveTemp(r, "file")
	if err != nil {
		if errors.Is(err, errNoFile) {
			writeError(w, http.StatusBadRequest, "업로드할 파일이 없습니다")
			return
		}
		log.Printf("ERROR: failed to receive import for project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "가져오기에 실패했습니다")
		return
	}
	defer cleanup()

	if ext, ok := validation.ImportExtension(declaredName); !ok {
		writeError(w, http.StatusBadRequest, "지원하지 않는 파일 형식입니다: "+ext)
		return
	}

	grid, err := sheet.ParseFile(path, declaredName)
	if err != nil {
		log.Printf("ERROR: failed to parse import %q for project %s: %v", declaredName, project.ID, err)
		writeError(w, http.StatusBadRequest, "파일을 읽을 수 없습니다")
		return
	}

	items, err := sheet.Import(grid)
	if err != nil {
		var verr *sheet.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("ERROR: failed to import into project %s: %v", project.ID, err)
		writeError(w, http.StatusInternalServerError, "가져오기에 실패했습니다")
		return
	}

	created := make([]model.TestItem, 0, len(items))
	for i := range items {
		items[i].ProjectID = project.ID
		if err := h.storage.CreateTestItem(&items[i]); err != nil {
			log.Printf("ERROR: failed to store imported item %d of project %s: %v", i+1, project.ID, err)
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("%d개 항목 저장 중 오류가 발생했습니다", len(items)))
			return
		}
		created = append(created, items[i])
	}

	log.Printf("DATA: imported %d test items into project %s", len(created), project.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(created),
		"items": created,
	})
}
