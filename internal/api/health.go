package api

import (
	"net/http"
	"time"

	"github.com/snarg/scribe-engine/internal/database"
	"github.com/snarg/scribe-engine/internal/notify"
	"github.com/snarg/scribe-engine/internal/transcribe"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Backend       string            `json:"backend"`
	CachedModels  int               `json:"cached_models"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        *database.DB
	notifier  *notify.Notifier
	backend   transcribe.Backend
	cache     *transcribe.ModelCache
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, notifier *notify.Notifier, backend transcribe.Backend, cache *transcribe.ModelCache, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		notifier:  notifier,
		backend:   backend,
		cache:     cache,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Backend:       h.backend.Name(),
		CachedModels:  h.cache.Size(),
		Checks:        make(map[string]string),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			resp.Checks["database"] = "unreachable: " + err.Error()
			resp.Status = "degraded"
		} else {
			resp.Checks["database"] = "ok"
		}
	} else {
		resp.Checks["database"] = "disabled"
	}

	if h.notifier != nil {
		if h.notifier.Connected() {
			resp.Checks["mqtt"] = "ok"
		} else {
			resp.Checks["mqtt"] = "disconnected"
			resp.Status = "degraded"
		}
	} else {
		resp.Checks["mqtt"] = "disabled"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}
