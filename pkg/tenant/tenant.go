// Package tenant tracks per-client quotas and usage for the optional
// registration REST service, gating job submission the way a
// multi-tenant store gates writes by namespace quota.
package tenant

import (
	"fmt"
	"sync"
	"time"
)

// Quota represents resource limits for a registration client.
type Quota struct {
	MaxPoints      int64 // maximum points per job (model and data combined)
	MaxConcurrent  int   // maximum concurrently running registration jobs
	RateLimitQPS   int   // job submissions per second
}

// Usage tracks current resource usage for a tenant.
type Usage struct {
	RunningJobs  int
	JobsRun      int64
	LastRunTime  time.Time
	QueryCount   int64
	mu           sync.RWMutex
}

// Tenant is a registration-service client: a namespace with a quota and
// live usage counters.
type Tenant struct {
	ID        string
	Namespace string
	Quota     Quota
	Usage     Usage
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
	mu        sync.RWMutex
}

// Manager handles tenant lifecycle and quota enforcement.
type Manager struct {
	tenants map[string]*Tenant
	mu      sync.RWMutex
}

// NewManager creates an empty tenant manager.
func NewManager() *Manager {
	return &Manager{tenants: make(map[string]*Tenant)}
}

// CreateTenant registers a new tenant under namespace with the given
// quota.
func (m *Manager) CreateTenant(namespace string, quota Quota) (*Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[namespace]; exists {
		return nil, fmt.Errorf("tenant: namespace %q already exists", namespace)
	}

	t := &Tenant{
		ID:        generateTenantID(namespace),
		Namespace: namespace,
		Quota:     quota,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		IsActive:  true,
	}
	m.tenants[namespace] = t
	return t, nil
}

// GetTenant retrieves a tenant by namespace.
func (m *Manager) GetTenant(namespace string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.tenants[namespace]
	if !exists {
		return nil, fmt.Errorf("tenant: namespace %q not found", namespace)
	}
	return t, nil
}

// DeleteTenant removes a tenant.
func (m *Manager) DeleteTenant(namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[namespace]; !exists {
		return fmt.Errorf("tenant: namespace %q not found", namespace)
	}
	delete(m.tenants, namespace)
	return nil
}

// ListTenants returns every registered tenant.
func (m *Manager) ListTenants() []*Tenant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	return out
}

// CheckPointQuota reports whether submitting a job with the given
// number of points would exceed the tenant's point quota.
func (t *Tenant) CheckPointQuota(points int) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.Quota.MaxPoints > 0 && int64(points) > t.Quota.MaxPoints {
		return fmt.Errorf("tenant: point quota exceeded: requested=%d, max=%d", points, t.Quota.MaxPoints)
	}
	return nil
}

// BeginJob reserves a concurrency slot for a registration job, failing
// if the tenant's MaxConcurrent limit is already saturated.
func (t *Tenant) BeginJob() error {
	t.Usage.mu.Lock()
	defer t.Usage.mu.Unlock()

	if t.Quota.MaxConcurrent > 0 && t.Usage.RunningJobs >= t.Quota.MaxConcurrent {
		return fmt.Errorf("tenant: concurrent job quota exceeded: running=%d, max=%d",
			t.Usage.RunningJobs, t.Quota.MaxConcurrent)
	}
	t.Usage.RunningJobs++
	return nil
}

// EndJob releases a concurrency slot and records completion.
func (t *Tenant) EndJob() {
	t.Usage.mu.Lock()
	defer t.Usage.mu.Unlock()

	if t.Usage.RunningJobs > 0 {
		t.Usage.RunningJobs--
	}
	t.Usage.JobsRun++
	t.Usage.LastRunTime = time.Now()
}

// CheckRateLimit enforces the tenant's job-submission rate, in whole
// seconds.
func (t *Tenant) CheckRateLimit() error {
	t.Usage.mu.Lock()
	defer t.Usage.mu.Unlock()

	if t.Quota.RateLimitQPS <= 0 {
		return nil
	}

	now := time.Now()
	if now.Sub(t.Usage.LastRunTime) < time.Second {
		if t.Usage.QueryCount >= int64(t.Quota.RateLimitQPS) {
			return fmt.Errorf("tenant: rate limit exceeded: %d submissions/sec (max: %d)",
				t.Usage.QueryCount, t.Quota.RateLimitQPS)
		}
	} else {
		t.Usage.QueryCount = 0
		t.Usage.LastRunTime = now
	}
	t.Usage.QueryCount++
	return nil
}

func generateTenantID(namespace string) string {
	return fmt.Sprintf("tenant_%s_%d", namespace, time.Now().UnixNano())
}

// DefaultQuota returns a conservative default quota for a registration
// client.
func DefaultQuota() Quota {
	return Quota{MaxPoints: 200000, MaxConcurrent: 2, RateLimitQPS: 5}
}

// UnlimitedQuota returns a quota with no enforced limits.
func UnlimitedQuota() Quota {
	return Quota{MaxPoints: -1, MaxConcurrent: -1, RateLimitQPS: -1}
}
