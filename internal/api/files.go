package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/scribe-engine/internal/artifact"
)

// ArtifactURLer resolves a download link for an artifact held in an off-box
// mirror. Satisfied by storage.S3Mirror.
type ArtifactURLer interface {
	URL(ctx context.Context, name string) (string, error)
}

// FilesHandler serves generated transcript artifacts for download. When a
// mirror is configured, artifacts that are no longer on local disk are
// redirected to a presigned mirror link instead of 404ing.
type FilesHandler struct {
	dir    string
	mirror ArtifactURLer // nil when no mirror is configured
	log    zerolog.Logger
}

func NewFilesHandler(dir string, mirror ArtifactURLer, log zerolog.Logger) *FilesHandler {
	return &FilesHandler{dir: dir, mirror: mirror, log: log.With().Str("handler", "files").Logger()}
}

// Routes registers the download endpoint.
func (h *FilesHandler) Routes(r chi.Router) {
	r.Get("/files/{name}", h.Download)
}

// Download handles GET /api/v1/files/{name}.
// Only .txt and .srt artifacts under the output directory are served.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || artifact.SanitizeName(name) != name {
		WriteError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	var contentType string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		contentType = "text/plain; charset=utf-8"
	case ".srt":
		contentType = "application/x-subrip"
	default:
		WriteError(w, http.StatusBadRequest, "only .txt and .srt files are served")
		return
	}

	path := filepath.Join(h.dir, name)
	if _, err := os.Stat(path); err != nil {
		if h.mirror != nil {
			url, presignErr := h.mirror.URL(r.Context(), name)
			if presignErr != nil {
				h.log.Warn().Err(presignErr).Str("name", name).Msg("presign failed")
				WriteError(w, http.StatusNotFound, "file not found")
				return
			}
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
		WriteError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
