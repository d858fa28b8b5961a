package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finmate-ai/voice-platform/internal/docstore"
	"github.com/finmate-ai/voice-platform/internal/document"
	"github.com/finmate-ai/voice-platform/internal/pipeline"
	"github.com/finmate-ai/voice-platform/pkg/logger"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// maxUploadSize bounds document uploads.
const maxUploadSize = 20 << 20

// DocumentsHandler handles document upload and the cached analysis.
type DocumentsHandler struct {
	processor *document.Processor
	store     *docstore.Store
	pipe      *pipeline.Pipeline
	logger    *logger.Logger
}

// NewDocumentsHandler creates the documents handler.
func NewDocumentsHandler(processor *document.Processor, store *docstore.Store, pipe *pipeline.Pipeline, log *logger.Logger) *DocumentsHandler {
	return &DocumentsHandler{processor: processor, store: store, pipe: pipe, logger: log}
}

// Upload handles POST /sessions/{sessionID}/documents. The parsed
// analysis replaces any previous document for the session.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	if !document.Allowed(header.Filename) {
		metrics.DocumentsProcessed.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	doc, err := h.processor.Process(header.Filename, content)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("failed").Inc()
		h.logger.Warn("document processing failed",
			"session_id", sessionID,
			"file", header.Filename,
			"error", err,
		)
		writeError(w, http.StatusUnprocessableEntity, "could not process document")
		return
	}

	// Translate the summary when the caller asked for a non-English
	// target; the translated copy rides along in the cache.
	if target := r.FormValue("language"); target != "" && target != "en-IN" {
		doc.TranslatedText = h.pipe.Translate(r.Context(), doc.SummaryExcerpt, "en-IN", target)
	}

	if err := h.store.Put(sessionID, doc); err != nil {
		metrics.DocumentsProcessed.WithLabelValues("failed").Inc()
		h.logger.Error("failed to cache document", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store document")
		return
	}

	metrics.DocumentsProcessed.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"filename":         doc.FileName,
		"pages_processed":  doc.PagesProcessed,
		"total_pages":      doc.TotalPages,
		"extracted_info":   doc.ExtractedFields,
		"document_summary": doc.SummaryExcerpt,
	})
}

// Get handles GET /sessions/{sessionID}/documents.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	doc, err := h.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no document for session")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /sessions/{sessionID}/documents.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
