package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"inkpost/internal/api"
	"inkpost/internal/models"
	"inkpost/internal/store"
)

// multipartOverhead covers form fields and boundaries around the file part.
const multipartOverhead = 1 << 20

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.uploadLimiter, w, r, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxRequestBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(s.multipartMem); err != nil {
		s.writeServiceError(w, r, classifyMultipartError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	category := strings.TrimSpace(r.FormValue("category"))
	if category == "" {
		category = string(models.CategoryPost)
	}
	declared := firstNonEmpty(r.FormValue("media_type"), header.Header.Get("Content-Type"))
	if declared == fallbackContentType {
		declared = ""
	}

	upload, err := s.uploads.Store(r.Context(), category, firstNonEmpty(r.FormValue("filename"), header.Filename), declared, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("upload stored", "id", upload.ID, "category", upload.Category, "key", upload.BlobKey, "size_bytes", upload.SizeBytes)
	s.writeJSON(w, http.StatusCreated, upload)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", store.DefaultListLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	uploads, err := s.uploads.List(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if uploads == nil {
		uploads = []models.Upload{}
	}
	s.writeJSON(w, http.StatusOK, uploads)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := s.uploads.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, upload)
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.uploads.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: id, Deleted: true})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.uploads.Open(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if content.Filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": content.Filename}))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Debug("stream content", "key", r.PathValue("key"), "error", err)
	}
}
