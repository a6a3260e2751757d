// Package rest exposes the registration engine as a small JSON HTTP
// service: a single /v1/register endpoint plus health/stats, sitting
// directly on pkg/registration with no RPC hop.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/anirudhpillai/goicp/internal/goicpconfig"
	"github.com/anirudhpillai/goicp/internal/obs"
	"github.com/anirudhpillai/goicp/pkg/api/rest/middleware"
	"github.com/anirudhpillai/goicp/pkg/pointcloud"
	"github.com/anirudhpillai/goicp/pkg/registration"
	"github.com/anirudhpillai/goicp/pkg/tenant"
)

// Handler wraps the in-process registration engine and the tenant
// manager gating job submission.
type Handler struct {
	tenants  *tenant.Manager
	log      *obs.Logger
	metrics  *obs.Metrics
	quota    tenant.Quota
	startedAt time.Time

	statsMu   sync.Mutex
	jobsRun   int64
	totalTime time.Duration
}

// NewHandler creates a registration-service handler. quota is applied
// to every tenant created on first use.
func NewHandler(log *obs.Logger, metrics *obs.Metrics, quota tenant.Quota) *Handler {
	return &Handler{
		tenants:   tenant.NewManager(),
		log:       log,
		metrics:   metrics,
		quota:     quota,
		startedAt: time.Now(),
	}
}

// pointJSON is a point cloud encoded as an array of [x,y,z] triples.
type pointJSON = [3]float64

// configRequest carries the subset of goicpconfig.Config a caller may
// override; any field omitted from the request falls back to
// goicpconfig.Default(). Pointer fields distinguish "absent" from "0",
// so an explicit 0 is applied as given.
type configRequest struct {
	MSEThresh             *float64    `json:"mse_thresh,omitempty"`
	RotMin                *[3]float64 `json:"rot_min,omitempty"`
	RotWidth              *float64    `json:"rot_width,omitempty"`
	TransMin              *[3]float64 `json:"trans_min,omitempty"`
	TransWidth            *float64    `json:"trans_width,omitempty"`
	TrimFraction          *float64    `json:"trim_fraction,omitempty"`
	DistTransSize         *int        `json:"dist_trans_size,omitempty"`
	DistTransExpandFactor *float64    `json:"dist_trans_expand_factor,omitempty"`
}

func (c *configRequest) toConfig() *goicpconfig.Config {
	cfg := goicpconfig.Default()
	if c == nil {
		return cfg
	}
	if c.MSEThresh != nil {
		cfg.BnB.MSEThresh = *c.MSEThresh
	}
	if c.RotMin != nil {
		cfg.BnB.RotMinX, cfg.BnB.RotMinY, cfg.BnB.RotMinZ = c.RotMin[0], c.RotMin[1], c.RotMin[2]
	}
	if c.RotWidth != nil {
		cfg.BnB.RotWidth = *c.RotWidth
	}
	if c.TransMin != nil {
		cfg.BnB.TransMinX, cfg.BnB.TransMinY, cfg.BnB.TransMinZ = c.TransMin[0], c.TransMin[1], c.TransMin[2]
	}
	if c.TransWidth != nil {
		cfg.BnB.TransWidth = *c.TransWidth
	}
	if c.TrimFraction != nil {
		cfg.BnB.TrimFraction = *c.TrimFraction
	}
	if c.DistTransSize != nil {
		cfg.DistTrans.Size = *c.DistTransSize
	}
	if c.DistTransExpandFactor != nil {
		cfg.DistTrans.ExpandFactor = *c.DistTransExpandFactor
	}
	return cfg
}

// registerRequest is the POST /v1/register body.
type registerRequest struct {
	Model  []pointJSON    `json:"model"`
	Data   []pointJSON    `json:"data"`
	Config *configRequest `json:"config,omitempty"`
}

// registerResponse is the POST /v1/register response.
type registerResponse struct {
	Rotation       [3][3]float64 `json:"rotation"`
	Translation    [3]float64    `json:"translation"`
	Error          float64       `json:"error"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
}

// Register handles POST /v1/register: runs one full BnB registration
// in-process and returns the recovered rigid transform.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Model) == 0 || len(req.Data) == 0 {
		writeError(w, "model and data point clouds must be non-empty", http.StatusBadRequest)
		return
	}

	t := h.tenantFor(r)
	if err := t.CheckPointQuota(len(req.Model) + len(req.Data)); err != nil {
		writeError(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	if err := t.BeginJob(); err != nil {
		writeError(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	defer t.EndJob()

	model := toPoint3(req.Model)
	data := toPoint3(req.Data)
	cfg := req.Config.toConfig()

	start := time.Now()
	result := registration.Register(model, data, cfg, registration.Options{Log: h.log, Metrics: h.metrics})
	elapsed := time.Since(start)

	h.recordJob(elapsed)
	writeJSON(w, registerResponse{
		Rotation:       result.R,
		Translation:    result.T,
		Error:          result.Error,
		ElapsedSeconds: elapsed.Seconds(),
	}, http.StatusOK)
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	}, http.StatusOK)
}

// GetStats handles GET /v1/stats: job counts and mean registration
// duration across the process lifetime.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.statsMu.Lock()
	jobs, total := h.jobsRun, h.totalTime
	h.statsMu.Unlock()

	meanSeconds := 0.0
	if jobs > 0 {
		meanSeconds = (total / time.Duration(jobs)).Seconds()
	}
	writeJSON(w, map[string]interface{}{
		"jobs_run":            jobs,
		"mean_duration_seconds": meanSeconds,
		"tenants":             len(h.tenants.ListTenants()),
	}, http.StatusOK)
}

func (h *Handler) recordJob(d time.Duration) {
	h.statsMu.Lock()
	h.jobsRun++
	h.totalTime += d
	h.statsMu.Unlock()
}

// tenantFor resolves the calling client's tenant, creating one on first
// use with the handler's default quota. Namespace is taken from the
// authenticated JWT claims when present, else a single shared "default"
// namespace.
func (h *Handler) tenantFor(r *http.Request) *tenant.Tenant {
	namespace := "default"
	if claims, ok := middleware.GetClaimsFromContext(r.Context()); ok && claims.Namespace != "" {
		namespace = claims.Namespace
	}

	t, err := h.tenants.GetTenant(namespace)
	if err != nil {
		t, err = h.tenants.CreateTenant(namespace, h.quota)
		if err != nil {
			// Lost a race against a concurrent first request for the same
			// namespace; the other caller's tenant is equally valid.
			t, _ = h.tenants.GetTenant(namespace)
		}
	}
	h.metrics.UpdateTenantCount(len(h.tenants.ListTenants()))
	return t
}

func toPoint3(pts []pointJSON) []pointcloud.Point3 {
	out := make([]pointcloud.Point3, len(pts))
	for i, p := range pts {
		out[i] = pointcloud.Point3{X: float32(p[0]), Y: float32(p[1]), Z: float32(p[2])}
	}
	return out
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}
