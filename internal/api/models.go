package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/scribe-engine/internal/transcribe"
)

// ModelsHandler exposes model cache operations.
type ModelsHandler struct {
	cache *transcribe.ModelCache
	log   zerolog.Logger
}

func NewModelsHandler(cache *transcribe.ModelCache, log zerolog.Logger) *ModelsHandler {
	return &ModelsHandler{cache: cache, log: log.With().Str("handler", "models").Logger()}
}

// Routes registers model routes on the given router.
func (h *ModelsHandler) Routes(r chi.Router) {
	r.Post("/models/preload", h.Preload)
}

type preloadRequest struct {
	Model string `json:"model"`
}

type preloadResponse struct {
	Model     string  `json:"model"`
	Device    string  `json:"device"`
	Compute   string  `json:"compute_type"`
	LoadedSec float64 `json:"loaded_sec"`
	Cached    int     `json:"cached_models"`
}

// Preload handles POST /api/v1/models/preload.
// Loads the requested model into the cache so the first transcription
// does not pay the download cost.
func (h *ModelsHandler) Preload(w http.ResponseWriter, r *http.Request) {
	var req preloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !transcribe.ValidTier(req.Model) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown model tier %q", req.Model))
		return
	}

	start := time.Now()
	handle, err := h.cache.Get(r.Context(), req.Model)
	if err != nil {
		h.log.Error().Err(err).Str("model", req.Model).Msg("model preload failed")
		WriteErrorDetail(w, http.StatusInternalServerError, "model preload failed", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, preloadResponse{
		Model:     handle.Model,
		Device:    handle.Device.Name,
		Compute:   handle.Device.Compute,
		LoadedSec: time.Since(start).Seconds(),
		Cached:    h.cache.Size(),
	})
}
