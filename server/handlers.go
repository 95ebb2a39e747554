package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avolkhin/normdoc"
)

// processRequest is the body shared by the processing endpoints.
type processRequest struct {
	Content            string            `json:"content"`
	FilePath           string            `json:"file_path,omitempty"`
	AdditionalMetadata map[string]string `json:"additional_metadata,omitempty"`
}

// POST /api/process
// Runs the full pipeline on raw text and returns the complete result.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result := s.engine.Processor().Process(req.Content, req.FilePath, req.AdditionalMetadata)
	writeJSON(w, http.StatusOK, result)
}

// POST /api/structure
// Returns only the extracted structure, no chunks.
func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result := s.engine.Processor().Structure(req.Content, req.FilePath, req.AdditionalMetadata)
	writeJSON(w, http.StatusOK, result)
}

// POST /api/chunks
// Returns only the chunk projections for raw text.
func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	chunks := s.engine.Processor().Chunks(req.Content, req.FilePath)
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

// POST /api/ingest
// Accepts a multipart file upload or JSON with a file path.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	// Try multipart upload first.
	if err := r.ParseMultipartForm(100 << 20); err == nil { // 100MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			s.ingestUpload(ctx, w, file, header.Filename)
			return
		}
	}

	var req struct {
		Path     string            `json:"path"`
		Force    bool              `json:"force,omitempty"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing file")
		return
	}

	var opts []normdoc.IngestOption
	if req.Force {
		opts = append(opts, normdoc.WithForceReprocess())
	}
	if req.Metadata != nil {
		opts = append(opts, normdoc.WithMetadata(req.Metadata))
	}

	docKey, err := s.engine.Ingest(ctx, absPath, opts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		s.log.Error("ingest error", "path", absPath, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document": docKey,
		"path":     absPath,
	})
}

// ingestUpload saves an uploaded file to a temp path and ingests it.
func (s *Server) ingestUpload(ctx context.Context, w http.ResponseWriter, file io.Reader, filename string) {
	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(filename)
	tmpPath := filepath.Join(os.TempDir(), safeName)

	dst, err := os.Create(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		s.log.Error("creating temp file", "error", err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		s.log.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()
	defer os.Remove(tmpPath)

	docKey, err := s.engine.Ingest(ctx, tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		s.log.Error("ingest error", "file", safeName, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document": docKey,
		"filename": safeName,
	})
}

// GET /api/search?q=...&limit=...&fts_only=true
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	var opts []normdoc.SearchOption
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		opts = append(opts, normdoc.WithMaxResults(limit))
	}
	if r.URL.Query().Get("fts_only") == "true" {
		opts = append(opts, normdoc.WithFTSOnly())
	}

	results, err := s.engine.Search(r.Context(), query, opts...)
	if err != nil {
		if errors.Is(err, normdoc.ErrNoResults) {
			writeJSON(w, http.StatusOK, map[string]any{"results": []normdoc.SearchResult{}})
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		s.log.Error("search error", "query", query, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// GET /api/documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.engine.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		s.log.Error("list documents error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// DELETE /api/documents/{docKey}
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docKey := chi.URLParam(r, "docKey")
	if err := s.engine.Delete(r.Context(), docKey); err != nil {
		if errors.Is(err, normdoc.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete failed")
		s.log.Error("delete error", "document", docKey, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
