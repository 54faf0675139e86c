package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/credentials"
	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

// StatsSource produces resource counts.
type StatsSource interface {
	Stats(ctx context.Context) (*keygen.Stats, error)
}

// CacheObserver is notified of cache hits and misses.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// DashboardHandler serves resource counts, cached for cacheDuration.
type DashboardHandler struct {
	source        StatsSource
	observer      CacheObserver
	logger        *logging.Logger
	cacheMutex    sync.RWMutex
	cachedData    []byte
	cacheTime     time.Time
	cacheDuration time.Duration
	now           func() time.Time
}

func NewDashboardHandler(source StatsSource, cacheDuration time.Duration, observer CacheObserver, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &DashboardHandler{
		source:        source,
		observer:      observer,
		logger:        logger,
		cacheDuration: cacheDuration,
		now:           time.Now,
	}
}

type statsResponse struct {
	Data struct {
		Type       string        `json:"type"`
		ID         string        `json:"id"`
		Attributes *keygen.Stats `json:"attributes"`
	} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.cacheMutex.RLock()
	if h.cachedData != nil && h.now().Sub(h.cacheTime) < h.cacheDuration {
		cachedData := h.cachedData
		age := h.now().Sub(h.cacheTime)
		h.cacheMutex.RUnlock()

		h.hit()
		w.Header().Set("Content-Type", api.MediaType)
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("X-Cache-Age", fmt.Sprintf("%d", int(age.Seconds())))
		_, _ = w.Write(cachedData)
		return
	}
	h.cacheMutex.RUnlock()
	h.miss()

	stats, err := h.source.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to fetch dashboard stats", logging.Error(err))
		writeError(w, err)
		return
	}

	var resp statsResponse
	resp.Data.Type = "stats"
	resp.Data.ID = "dashboard"
	resp.Data.Attributes = stats
	resp.Meta = map[string]interface{}{"generated_at": h.now().UTC().Format(time.RFC3339)}

	body, err := json.Marshal(resp)
	if err != nil {
		writeJSONAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error", "failed to encode stats")
		return
	}

	h.cacheMutex.Lock()
	h.cachedData = body
	h.cacheTime = h.now()
	h.cacheMutex.Unlock()

	w.Header().Set("Content-Type", api.MediaType)
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(body)
}

// Invalidate drops the cached counts.
func (h *DashboardHandler) Invalidate() {
	h.cacheMutex.Lock()
	h.cachedData = nil
	h.cacheMutex.Unlock()
}

func (h *DashboardHandler) hit() {
	if h.observer != nil {
		h.observer.CacheHit()
	}
}

func (h *DashboardHandler) miss() {
	if h.observer != nil {
		h.observer.CacheMiss()
	}
}

// writeError maps a client error to a response: classified errors keep
// their status, missing credentials are 401, anything else is a 502.
func writeError(w http.ResponseWriter, err error) {
	if apiErr, ok := api.AsError(err); ok {
		writeAPIError(w, apiErr)
		return
	}
	if errors.Is(err, credentials.ErrNotLoggedIn) || errors.Is(err, api.ErrMissingAccount) {
		writeJSONAPIError(w, http.StatusUnauthorized, "not_logged_in", "Unauthorized", err.Error())
		return
	}
	writeJSONAPIError(w, http.StatusBadGateway, "upstream_unavailable", "Bad Gateway", err.Error())
}
