package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/angeloszaimis/rpc-proxy/internal/pool"
)

// HealthHandler serves the health-check endpoint: the pool snapshot
// plus process uptime and memory.
type HealthHandler struct {
	pool      *pool.Pool
	startTime time.Time
}

type healthReport struct {
	Status       string           `json:"status"`
	Uptime       string           `json:"uptime"`
	AllocBytes   uint64           `json:"alloc_bytes"`
	SysBytes     uint64           `json:"sys_bytes"`
	NumGoroutine int              `json:"num_goroutine"`
	Pool         pool.Snapshot    `json:"pool"`
	Endpoints    []endpointReport `json:"endpoints"`
}

type endpointReport struct {
	URL          string `json:"url"`
	Available    bool   `json:"available"`
	FailureCount uint64 `json:"failure_count"`
	LastFailure  string `json:"last_failure,omitempty"`
}

// NewHealthHandler creates the health endpoint over the given pool.
func NewHealthHandler(p *pool.Pool) *HealthHandler {
	return &HealthHandler{
		pool:      p,
		startTime: time.Now(),
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snapshot := h.pool.HealthSnapshot()

	report := healthReport{
		Status:       "ok",
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		AllocBytes:   mem.Alloc,
		SysBytes:     mem.Sys,
		NumGoroutine: runtime.NumGoroutine(),
		Pool:         snapshot,
	}

	if snapshot.AvailableCount == 0 {
		report.Status = "degraded"
	}

	for _, e := range h.pool.Endpoints() {
		er := endpointReport{
			URL:          e.URL().String(),
			Available:    e.Available(),
			FailureCount: e.FailureCount(),
		}
		if last := e.LastFailure(); !last.IsZero() {
			er.LastFailure = last.UTC().Format(time.RFC3339)
		}
		report.Endpoints = append(report.Endpoints, er)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
