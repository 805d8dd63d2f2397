package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/scribe-engine/internal/artifact"
	"github.com/snarg/scribe-engine/internal/database"
	"github.com/snarg/scribe-engine/internal/pipeline"
	"github.com/snarg/scribe-engine/internal/transcribe"
)

// TranscriptionsHandler serves uploads and the persisted record API.
type TranscriptionsHandler struct {
	orch            *pipeline.Orchestrator
	db              *database.DB
	uploadDir       string
	maxUploadBytes  int64
	defaultModel    string
	defaultLanguage string
	log             zerolog.Logger
}

func NewTranscriptionsHandler(orch *pipeline.Orchestrator, db *database.DB, uploadDir string, maxUploadBytes int64, defaultModel, defaultLanguage string, log zerolog.Logger) *TranscriptionsHandler {
	return &TranscriptionsHandler{
		orch:            orch,
		db:              db,
		uploadDir:       uploadDir,
		maxUploadBytes:  maxUploadBytes,
		defaultModel:    defaultModel,
		defaultLanguage: defaultLanguage,
		log:             log.With().Str("handler", "transcriptions").Logger(),
	}
}

// Routes registers transcription routes on the given router.
func (h *TranscriptionsHandler) Routes(r chi.Router) {
	r.Post("/transcriptions", h.Create)
	r.Get("/transcriptions", h.List)
	r.Get("/transcriptions/{id}", h.Get)
	r.Delete("/transcriptions/{id}", h.Delete)
}

// Create handles POST /api/v1/transcriptions.
// Accepts a multipart upload ("file" field, optional "model", "language" and
// "title" fields) and streams progress events back as SSE until the run ends.
func (h *TranscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	model := r.FormValue("model")
	if model == "" {
		model = h.defaultModel
	}
	language := r.FormValue("language")
	if language == "" {
		language = h.defaultLanguage
	}
	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	// Reject bad requests before any bytes hit disk or the SSE stream opens.
	if !transcribe.AllowedExtension(header.Filename) {
		WriteError(w, http.StatusBadRequest, (&transcribe.UnsupportedFormatError{Filename: header.Filename}).Error())
		return
	}
	if !transcribe.ValidTier(model) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown model tier %q", model))
		return
	}

	token := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	safe := artifact.SanitizeName(header.Filename)
	stem := strings.TrimSuffix(safe, filepath.Ext(safe))
	if stem == "" {
		stem = "upload"
	}
	baseName := stem + "_" + token[:8]
	inputPath := filepath.Join(h.uploadDir, baseName+ext)

	if err := saveUpload(inputPath, file); err != nil {
		h.log.Error().Err(err).Str("path", inputPath).Msg("failed to save upload")
		WriteError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	req := transcribe.Request{
		InputPath: inputPath,
		Model:     model,
		Language:  language,
		BaseName:  baseName,
		Title:     title,
	}

	// SSE from here on. Errors surface as terminal error events, not HTTP
	// status codes, since the 200 header is already on the wire.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)

	events := make(chan pipeline.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.orch.Run(r.Context(), token, req, events)
	}()

	log := hlog.FromRequest(r)
	log.Info().Str("token", token).Str("model", model).Str("file", header.Filename).Msg("transcription started")

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		rc.Flush()
	}
	<-done
}

func saveUpload(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// ListResponse wraps a page of transcription records.
type ListResponse struct {
	Transcriptions []database.TranscriptionRecord `json:"transcriptions"`
	Total          int                            `json:"total"`
	Limit          int                            `json:"limit"`
	Offset         int                            `json:"offset"`
}

// List handles GET /api/v1/transcriptions.
func (h *TranscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteError(w, http.StatusServiceUnavailable, "record store not configured")
		return
	}
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, total, err := h.db.ListTranscriptions(r.Context(), p.Limit, p.Offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list transcriptions")
		WriteError(w, http.StatusInternalServerError, "failed to list transcriptions")
		return
	}
	WriteJSON(w, http.StatusOK, ListResponse{
		Transcriptions: recs,
		Total:          total,
		Limit:          p.Limit,
		Offset:         p.Offset,
	})
}

// Get handles GET /api/v1/transcriptions/{id}.
func (h *TranscriptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteError(w, http.StatusServiceUnavailable, "record store not configured")
		return
	}
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.db.GetTranscription(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("failed to get transcription")
		WriteError(w, http.StatusInternalServerError, "failed to get transcription")
		return
	}
	if rec == nil {
		WriteError(w, http.StatusNotFound, "transcription not found")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/v1/transcriptions/{id}.
func (h *TranscriptionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteError(w, http.StatusServiceUnavailable, "record store not configured")
		return
	}
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	deleted, err := h.db.DeleteTranscription(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("failed to delete transcription")
		WriteError(w, http.StatusInternalServerError, "failed to delete transcription")
		return
	}
	if !deleted {
		WriteError(w, http.StatusNotFound, "transcription not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
