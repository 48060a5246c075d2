package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/luxury-studio/internal/batch"
	"github.com/jonathan/luxury-studio/internal/imageutil"
)

// BatchResponse is returned by both processing endpoints.
type BatchResponse struct {
	Results []batch.Result `json:"results"`
}

// FolderRequest optionally restricts the folder endpoint to named files.
type FolderRequest struct {
	Files []string `json:"files,omitempty" validate:"omitempty,max=500,dive,required,max=255"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename reduces an uploaded name to a safe base name.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// handleUploadBatch stores each uploaded image under the input directory and
// runs the batch over them. Files rejected before the run are reported in place.
func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	maxBody := s.cfg.MaxUploadBytes*int64(s.cfg.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if err := s.checkUploadCount(len(headers)); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	results := make([]batch.Result, len(headers))
	var items []batch.Item
	var positions []int
	for i, header := range headers {
		name := sanitizeFilename(header.Filename)
		item, err := s.storeUpload(header, name)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Upload rejected")
			results[i] = batch.Result{File: name, Status: batch.StatusError, Error: err.Error()}
			continue
		}
		items = append(items, item)
		positions = append(positions, i)
	}

	for j, res := range s.runner.Process(r.Context(), items) {
		results[positions[j]] = res
	}
	s.jsonResponse(w, http.StatusOK, BatchResponse{Results: results})
}

func (s *Server) checkUploadCount(n int) error {
	if n == 0 {
		return &ErrValidation{Field: "files", Message: "at least one file is required"}
	}
	if n > s.cfg.MaxFiles {
		return &ErrValidation{Field: "files", Message: fmt.Sprintf("at most %d files per request", s.cfg.MaxFiles)}
	}
	return nil
}

// storeUpload validates one part and writes it to the input directory with a
// unique prefix. The item keeps the sanitized original name and uses the
// stored name as its artifact key.
func (s *Server) storeUpload(header *multipart.FileHeader, name string) (batch.Item, error) {
	if !imageutil.SupportedExtension(name) {
		return batch.Item{}, &ErrValidation{Field: "files", Message: "unsupported file type " + filepath.Ext(name)}
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return batch.Item{}, &ErrValidation{Field: "files", Message: fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes)}
	}

	f, err := header.Open()
	if err != nil {
		return batch.Item{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return batch.Item{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return batch.Item{}, &ErrValidation{Field: "files", Message: fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes)}
	}
	if _, _, err := imageutil.Decode(data); err != nil {
		return batch.Item{}, &ErrValidation{Field: "files", Message: err.Error()}
	}

	if err := os.MkdirAll(s.cfg.InputDir, 0o755); err != nil {
		return batch.Item{}, fmt.Errorf("failed to create input directory: %w", err)
	}
	stored := uuid.NewString() + "_" + name
	path := filepath.Join(s.cfg.InputDir, stored)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return batch.Item{}, fmt.Errorf("failed to store upload: %w", err)
	}
	return batch.Item{File: name, Key: stored, Path: path, Data: data}, nil
}

// handleFolder runs the batch over the images in the input directory.
func (s *Server) handleFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	items, err := batch.ScanFolder(s.cfg.InputDir)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	items = filterItems(items, req.Files)
	if len(items) == 0 {
		s.jsonResponse(w, http.StatusOK, BatchResponse{Results: []batch.Result{}})
		return
	}

	s.jsonResponse(w, http.StatusOK, BatchResponse{Results: s.runner.Process(r.Context(), items)})
}

// filterItems keeps the items named in files; an empty filter keeps all.
func filterItems(items []batch.Item, files []string) []batch.Item {
	if len(files) == 0 {
		return items
	}
	wanted := make(map[string]bool, len(files))
	for _, f := range files {
		wanted[filepath.Base(f)] = true
	}
	var kept []batch.Item
	for _, item := range items {
		if wanted[item.File] {
			kept = append(kept, item)
		}
	}
	return kept
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// handleResult returns the persisted result record for a product file.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if s.store == nil {
		s.errorResponse(w, http.StatusNotFound, "no result store configured")
		return
	}
	record, err := s.store.LoadResult(r.Context(), file)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}
