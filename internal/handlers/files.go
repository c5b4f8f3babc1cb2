package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/testlab/testplan-backend-service/internal/validation"
)

var errNoFile = errors.New("no file uploaded")

// FileStore persists multipart uploads under a single directory and serves
// them back at /uploads/{name}.
type FileStore struct {
	dir      string
	maxBytes int64
}

// NewFileStore creates the upload directory if needed.
func NewFileStore(dir string, maxBytes int64) (*FileStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStore{dir: absDir, maxBytes: maxBytes}, nil
}

// uniqueName builds a collision-free stored filename keeping only the
// original extension, so arbitrary client filenames never reach the disk.
func uniqueName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
}

// Save stores the named multipart field and returns its public URL and
// the original file header.
func (f *FileStore) Save(r *http.Request, field string) (string, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, f.maxBytes)

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	name := uniqueName(header.Filename)
	dst, err := os.Create(filepath.Join(f.dir, name))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return "/uploads/" + name, header, nil
}

// SaveTemp spools the named multipart field to a temporary file and
// returns its path, the client's declared filename and a cleanup func.
// Callers must run cleanup on every exit path.
func (f *FileStore) SaveTemp(r *http.Request, field string) (string, string, func(), error) {
	r.Body = http.MaxBytesReader(nil, r.Body, f.maxBytes)

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", nil, errNoFile
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "import-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	path := tmp.Name()
	cleanup := func() { os.Remove(path) }
	return path, header.Filename, cleanup, nil
}

// Serve handles GET /uploads/{name}.
func (f *FileStore) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validation.SafeUploadName(name) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(f.dir, name)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
